// Package runtime wires the tiered engine, the mode tracker, the knell
// reporter and the shutdown sequencer into one object.
//
// # Quick Start
//
//	ctx := context.Background()
//	rt, err := runtime.New(ctx, config.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	// Host functions are registered before any module is instantiated
//	rt.RegisterFunc("env", "tick", func(ctx context.Context) {})
//
//	mod, err := rt.LoadModule(ctx, wasmBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Each goroutine attaches its own thread and carries it in ctx
//	ctx, _ = rt.Attach(ctx, "worker-1")
//	defer rt.Detach(ctx) // knells "thread-exit:worker-1"
//
//	inst, err := mod.Instantiate(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	res, err := inst.Call(ctx, "sum", 10)
//
// # Host Functions
//
// RegisterFunc accepts Go functions whose parameters and results map to
// core WebAssembly value types. An optional leading context.Context receives
// the call context, and an optional trailing error traps the guest.
//
//	Go Type                  Wasm Type
//	──────────────────────────────────
//	bool, int32, uint32      i32
//	int64, uint64            i64
//	float32                  f32
//	float64                  f64
//
// RegisterHost registers every exported method of a Host under its
// namespace, converting method names to snake_case (GetValue -> get_value).
//
// # Shutdown
//
// Exit runs the registered shutdown hooks in slot order and halts the
// process; the halt rings a knell tagged "halt" with the process totals.
// Close releases the engine without halting.
//
// # Thread Safety
//
// Runtime and Module are safe for concurrent use. A tracker thread and an
// Instance belong to the goroutine that created them.
package runtime
