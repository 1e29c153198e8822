// Package modeclock measures how much time a tiered WebAssembly runtime
// spends interpreting guest code versus running compiled guest code.
//
// Every thread that runs guest code is attached to a tracker and is always
// in one of three modes: interpreted, compiled or native. Time spent in the
// first two is charged to the thread and to process-wide totals; native
// time (host calls, compilation, bookkeeping) is not charged. When a thread
// exits, and when the process halts, a knell reports the counters.
//
// # Packages
//
//	modeclock/
//	├── clock/       Monotonic nanosecond timestamps, plus a manual clock for tests
//	├── tracker/     Per-thread mode state and atomic process totals
//	├── knell/       Snapshots of thread and process counters, delivered to sinks
//	├── lifecycle/   Shutdown hooks, finalizers and the halt knell
//	├── engine/      wazero interpreter and compiler tiers with call-count promotion
//	├── runtime/     High-level API tying engine, tracker, knell and lifecycle together
//	├── metrics/     Prometheus collector over the tracker
//	├── config/      Viper-backed configuration and zap logger construction
//	├── errors/      Structured errors with phase and kind
//	└── cmd/modeclock  CLI that runs workloads and prints reports
//
// # Quick Start
//
//	rt, err := runtime.New(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	mod, err := rt.LoadModule(ctx, wasmBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx, _ = rt.Attach(ctx, "worker")
//	defer rt.Detach(ctx)
//
//	inst, err := mod.Instantiate(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	results, err := inst.Call(ctx, "sum", 100)
//
//	rt.Exit(0) // knells "halt" with the process totals
//
// # Thread Safety
//
// Runtime, Module and the tracker are safe for concurrent use. A
// tracker.Thread belongs to the goroutine that attached it; other
// goroutines may read its counters but only the owner transitions it.
// Instance is NOT thread-safe and should be used by a single goroutine.
package modeclock
