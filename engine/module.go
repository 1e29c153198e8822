package engine

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/wippyai/modeclock/errors"
	"github.com/wippyai/modeclock/tracker"
)

// Module is a compiled module. It is compiled on the initial tier when loaded
// and on the compiler tier when promoted.
type Module struct {
	engine   *Engine
	wasm     []byte
	compiled [tierCount]wazero.CompiledModule

	tier  atomic.Int32
	calls atomic.Uint64

	mu     sync.Mutex // guards compiled during promotion and close
	closed bool
}

// Tier returns the tier new instances will run on.
func (m *Module) Tier() Tier {
	return Tier(m.tier.Load())
}

// Calls returns the number of calls made through all instances.
func (m *Module) Calls() uint64 {
	return m.calls.Load()
}

// ExportNames returns the exported function names, sorted.
func (m *Module) ExportNames() []string {
	m.mu.Lock()
	compiled := m.compiled[m.Tier()]
	m.mu.Unlock()
	if compiled == nil {
		return nil
	}

	defs := compiled.ExportedFunctions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Promote compiles the module on the compiler tier. Later instantiations run
// compiled. Promoting an already compiled module is a no-op.
func (m *Module) Promote(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.Closed(errors.PhaseCompile, "module")
	}
	if m.Tier() == TierCompiler {
		return nil
	}

	if m.compiled[TierCompiler] == nil {
		compiled, err := m.engine.runtimes[TierCompiler].CompileModule(ctx, m.wasm)
		if err != nil {
			return errors.Compile(TierCompiler.String(), err)
		}
		m.compiled[TierCompiler] = compiled
	}
	m.tier.Store(int32(TierCompiler))

	Logger().Info("module promoted",
		zap.Stringer("tier", TierCompiler),
		zap.Uint64("calls", m.calls.Load()))
	return nil
}

// recordCall counts one call and promotes the module when the threshold is
// reached. Compilation runs on the caller's thread in Native.
func (m *Module) recordCall(ctx context.Context) {
	n := m.calls.Add(1)
	threshold := m.engine.cfg.PromoteAfter
	if threshold == 0 || n != threshold || m.Tier() == TierCompiler {
		return
	}

	if th := tracker.FromContext(ctx); th != nil {
		prev := th.Enter(tracker.Native)
		defer th.Transition(prev)
	}
	if err := m.Promote(ctx); err != nil {
		Logger().Warn("module promotion failed", zap.Error(err))
	}
}

// Instantiate creates an instance on the module's current tier.
func (m *Module) Instantiate(ctx context.Context) (*Instance, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, errors.Closed(errors.PhaseInstantiate, "module")
	}
	t := m.Tier()
	compiled := m.compiled[t]
	m.mu.Unlock()

	if err := m.engine.initHostModules(ctx, t); err != nil {
		return nil, err
	}

	// Anonymous so instances can be created in parallel.
	mod, err := m.engine.runtimes[t].InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return nil, errors.Instantiation(err)
	}

	return &Instance{
		module:    m,
		instance:  mod,
		tier:      t,
		funcCache: make(map[string]*exportedFunc),
	}, nil
}

// Close releases the compiled code on both tiers. Open instances are not
// closed.
func (m *Module) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	var firstErr error
	for i, c := range m.compiled {
		if c == nil {
			continue
		}
		if err := c.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		m.compiled[i] = nil
	}
	return firstErr
}
