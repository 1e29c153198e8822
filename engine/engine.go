package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/wippyai/modeclock/errors"
)

// Config holds configuration for engine creation
type Config struct {
	// InitialTier is the tier modules are compiled on when loaded.
	InitialTier Tier

	// PromoteAfter is the number of calls after which a module is compiled on
	// the compiler tier. 0 disables promotion.
	PromoteAfter uint64

	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	MemoryLimitPages uint32

	// EnableWASI instantiates wasi_snapshot_preview1 in both tiers.
	EnableWASI bool
}

// Engine owns one wazero runtime per tier and the host functions shared by
// every module loaded into it.
type Engine struct {
	cfg      Config
	runtimes [tierCount]wazero.Runtime

	hostMu    sync.RWMutex
	hostFuncs map[string][]hostFunc // namespace -> functions
	hostInit  [tierCount]sync.Once
	hostErr   [tierCount]error
	hostFixed atomic.Bool // set once any tier has instantiated its host modules

	closed atomic.Bool
}

// New creates an engine. A nil cfg uses the interpreter as initial tier with
// promotion disabled.
func New(ctx context.Context, cfg *Config) (*Engine, error) {
	e := &Engine{hostFuncs: make(map[string][]hostFunc)}
	if cfg != nil {
		e.cfg = *cfg
	}
	if !e.cfg.InitialTier.valid() {
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path("initial_tier").
			Value(e.cfg.InitialTier).
			Detail("unknown tier").
			Build()
	}
	if !CompilerSupported() {
		Logger().Warn("compiler tier not supported on this platform, using interpreter")
	}

	for t := Tier(0); t < tierCount; t++ {
		e.runtimes[t] = wazero.NewRuntimeWithConfig(ctx, runtimeConfig(t, e.cfg.MemoryLimitPages))
	}
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// RegisterHostFunc defines namespace.name for guest imports. Registration
// must happen before the first instantiation. The function runs with the
// calling thread in tracker.Native.
func (e *Engine) RegisterHostFunc(namespace, name string, fn HostFunc, params, results []api.ValueType) error {
	if namespace == "" || name == "" {
		return errors.InvalidInput(errors.PhaseHost, "host function needs namespace and name")
	}
	if fn == nil {
		return errors.InvalidInput(errors.PhaseHost, fmt.Sprintf("nil host function %s#%s", namespace, name))
	}
	if namespace == wasi_snapshot_preview1.ModuleName && e.cfg.EnableWASI {
		return errors.Registration(namespace, name, fmt.Errorf("namespace reserved for WASI"))
	}

	e.hostMu.Lock()
	defer e.hostMu.Unlock()

	if e.hostFixed.Load() {
		return errors.InvalidState(errors.PhaseHost, "host functions must be registered before instantiation")
	}
	for _, hf := range e.hostFuncs[namespace] {
		if hf.name == name {
			return errors.Registration(namespace, name, fmt.Errorf("already registered"))
		}
	}

	e.hostFuncs[namespace] = append(e.hostFuncs[namespace], hostFunc{
		name:    name,
		fn:      fn,
		params:  params,
		results: results,
	})
	return nil
}

// initHostModules instantiates host modules and WASI in the tier's runtime
// once. Safe for concurrent calls.
func (e *Engine) initHostModules(ctx context.Context, t Tier) error {
	e.hostInit[t].Do(func() {
		e.hostMu.Lock()
		e.hostFixed.Store(true)
		funcs := e.hostFuncs
		e.hostMu.Unlock()

		r := e.runtimes[t]
		if e.cfg.EnableWASI {
			if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
				e.hostErr[t] = errors.Wrap(errors.PhaseHost, errors.KindFailed, err, "instantiate WASI")
				return
			}
		}

		for ns, fns := range funcs {
			builder := r.NewHostModuleBuilder(ns)
			for _, hf := range fns {
				builder = builder.NewFunctionBuilder().
					WithGoModuleFunction(nativeFunc(hf.fn), hf.params, hf.results).
					WithName(hf.name).
					Export(hf.name)
			}
			if _, err := builder.Instantiate(ctx); err != nil {
				e.hostErr[t] = errors.Wrap(errors.PhaseHost, errors.KindFailed, err, "instantiate host module "+ns)
				return
			}
		}

		Logger().Debug("host modules instantiated",
			zap.Stringer("tier", t),
			zap.Int("namespaces", len(funcs)),
			zap.Bool("wasi", e.cfg.EnableWASI))
	})
	return e.hostErr[t]
}

// LoadModule compiles wasm on the initial tier.
func (e *Engine) LoadModule(ctx context.Context, wasm []byte) (*Module, error) {
	if e.closed.Load() {
		return nil, errors.Closed(errors.PhaseLoad, "engine")
	}
	if len(wasm) == 0 {
		return nil, errors.InvalidInput(errors.PhaseLoad, "empty module")
	}

	t := e.cfg.InitialTier
	compiled, err := e.runtimes[t].CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Load("compile module", errors.Compile(t.String(), err))
	}

	m := &Module{
		engine: e,
		wasm:   wasm,
	}
	m.compiled[t] = compiled
	m.tier.Store(int32(t))

	Logger().Debug("module loaded",
		zap.Stringer("tier", t),
		zap.Int("bytes", len(wasm)),
		zap.Int("exports", len(compiled.ExportedFunctions())))
	return m, nil
}

// Close closes both runtimes and every module and instance created from them.
func (e *Engine) Close(ctx context.Context) error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	var firstErr error
	for _, r := range e.runtimes {
		if err := r.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
