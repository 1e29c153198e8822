package engine

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/modeclock/errors"
	"github.com/wippyai/modeclock/tracker"
)

// Instance is a running module instance.
// It is NOT safe for concurrent use from multiple goroutines.
// Each goroutine should have its own Instance.
type Instance struct {
	module    *Module
	instance  api.Module
	funcCache map[string]*exportedFunc
	tier      Tier
}

type exportedFunc struct {
	fn      api.Function
	params  int
	results int
}

// Tier returns the tier this instance runs on. It does not change when the
// module is promoted.
func (i *Instance) Tier() Tier {
	return i.tier
}

// Module returns the module this instance was created from.
func (i *Instance) Module() *Module {
	return i.module
}

func (i *Instance) lookup(name string) (*exportedFunc, error) {
	if ef, ok := i.funcCache[name]; ok {
		return ef, nil
	}
	fn := i.instance.ExportedFunction(name)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseCall, "export", name)
	}
	def := fn.Definition()
	ef := &exportedFunc{
		fn:      fn,
		params:  len(def.ParamTypes()),
		results: len(def.ResultTypes()),
	}
	i.funcCache[name] = ef
	return ef, nil
}

// Call invokes an exported function. If ctx carries a tracker thread, the
// thread runs in the tier's mode for the duration of the call and returns to
// its previous mode afterwards.
func (i *Instance) Call(ctx context.Context, name string, args ...uint64) ([]uint64, error) {
	if i.instance == nil {
		return nil, errors.Closed(errors.PhaseCall, "instance")
	}
	ef, err := i.lookup(name)
	if err != nil {
		return nil, err
	}
	if len(args) != ef.params {
		return nil, errors.New(errors.PhaseCall, errors.KindInvalidInput).
			Path(name).
			Value(len(args)).
			Detail("expected %d arguments", ef.params).
			Build()
	}

	results, err := i.call(ctx, ef.fn, args)
	i.module.recordCall(ctx)
	if err != nil {
		return nil, errors.Call(name, err)
	}
	return results, nil
}

func (i *Instance) call(ctx context.Context, fn api.Function, args []uint64) ([]uint64, error) {
	th := tracker.FromContext(ctx)
	if th == nil {
		return fn.Call(ctx, args...)
	}
	prev := th.Enter(i.tier.Mode())
	defer th.Transition(prev)
	return fn.Call(ctx, args...)
}

// Close closes the instance.
func (i *Instance) Close(ctx context.Context) error {
	if i.instance == nil {
		return nil
	}
	err := i.instance.Close(ctx)
	i.instance = nil
	i.funcCache = nil
	return err
}
