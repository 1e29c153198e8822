package runtime

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/wippyai/modeclock/config"
	"github.com/wippyai/modeclock/engine"
	"github.com/wippyai/modeclock/errors"
	"github.com/wippyai/modeclock/knell"
	"github.com/wippyai/modeclock/lifecycle"
	"github.com/wippyai/modeclock/tracker"
)

// ThreadExitTag prefixes the knell tag rung by Detach.
const ThreadExitTag = "thread-exit:"

// HookEngineClose is the shutdown slot that closes the engine. It is the last
// slot so user hooks still see a live engine.
const HookEngineClose = lifecycle.MaxHooks - 1

type Runtime struct {
	engine   *engine.Engine
	tracker  *tracker.Tracker
	reporter *knell.Reporter
	seq      *lifecycle.Sequencer
	pin      bool
}

// New creates a runtime from cfg. A nil cfg means config.Default().
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tracker == nil {
		o.tracker = tracker.Default()
	}
	if len(o.sinks) == 0 {
		o.sinks = []knell.Sink{knell.NewLogSink(nil)}
	}

	initial, err := engine.ParseTier(cfg.Engine.InitialTier)
	if err != nil {
		return nil, err
	}
	eng, err := engine.New(ctx, &engine.Config{
		InitialTier:      initial,
		PromoteAfter:     cfg.Engine.PromoteAfter,
		MemoryLimitPages: cfg.Engine.MemoryLimitPages,
		EnableWASI:       o.wasi,
	})
	if err != nil {
		return nil, errors.Load("create engine", err)
	}

	r := &Runtime{
		engine:   eng,
		tracker:  o.tracker,
		reporter: knell.NewReporter(o.tracker, o.sinks...),
		pin:      o.pin,
	}

	halt := o.halt
	if halt == nil {
		halt = os.Exit
	}
	r.seq = lifecycle.New(&lifecycle.Config{
		Halt:       halt,
		Finalizers: o.finalizers,
		Knell: func(tag string) {
			r.reporter.Knell(nil, tag)
		},
	})
	if err := r.seq.Add(HookEngineClose, false, func() {
		if err := r.engine.Close(context.Background()); err != nil {
			Logger().Warn("engine close failed", zap.Error(err))
		}
	}); err != nil {
		eng.Close(ctx)
		return nil, err
	}

	Logger().Debug("runtime created",
		zap.Stringer("initial_tier", initial),
		zap.Uint64("promote_after", cfg.Engine.PromoteAfter))
	return r, nil
}

// Close releases the engine. It does not run shutdown hooks or halt.
func (r *Runtime) Close(ctx context.Context) error {
	return r.engine.Close(ctx)
}

func (r *Runtime) Engine() *engine.Engine {
	return r.engine
}

func (r *Runtime) Tracker() *tracker.Tracker {
	return r.tracker
}

func (r *Runtime) Reporter() *knell.Reporter {
	return r.reporter
}

// Shutdown returns the sequencer used by Exit, for registering hooks.
func (r *Runtime) Shutdown() *lifecycle.Sequencer {
	return r.seq
}

// LoadModule compiles a core module on the configured initial tier.
func (r *Runtime) LoadModule(ctx context.Context, wasm []byte) (*engine.Module, error) {
	return r.engine.LoadModule(ctx, wasm)
}

// LoadFile reads and loads a module from path.
func (r *Runtime) LoadFile(ctx context.Context, path string) (*engine.Module, error) {
	wasm, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.PhaseLoad, errors.KindNotFound).
			Path(path).
			Cause(err).
			Detail("read module file").
			Build()
	}
	return r.LoadModule(ctx, wasm)
}

// Exit runs the shutdown sequence and halts with status.
func (r *Runtime) Exit(status int) {
	r.seq.Exit(status)
}
