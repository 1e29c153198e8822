// Package engine runs WebAssembly core modules on two wazero tiers and
// records which tier each call executes on.
//
// # Tiers
//
// Every Engine owns two wazero runtimes:
//
//	TierInterpreter  wazero.NewRuntimeConfigInterpreter   tracker.Interpreted
//	TierCompiler     wazero.NewRuntimeConfigCompiler      tracker.Compiled
//
// A module is compiled on Config.InitialTier when loaded. Calls through any of
// its instances are counted, and once Config.PromoteAfter calls have been made
// the module is compiled a second time on the compiler tier. Instances
// created after that run compiled; existing instances keep their tier.
// Module.Promote forces promotion.
//
// # Mode accounting
//
// Instance.Call looks up the calling thread with tracker.FromContext. When one
// is present, the thread enters the instance tier's mode for the duration of
// the call and returns to its previous mode afterwards. Host functions
// registered with RegisterHostFunc run in tracker.Native, which leaves the
// enclosing interval open, so time spent in the host is charged to the tier
// that called it.
//
//	th := tr.Attach(tracker.AttachConfig{Name: "worker"})
//	ctx = tracker.WithThread(ctx, th)
//	res, err := inst.Call(ctx, "sum", 10)
//
// Modules, the engine, and tier promotion are safe for concurrent use.
// An Instance is not: each goroutine should use its own.
package engine
