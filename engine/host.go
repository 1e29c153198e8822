package engine

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/modeclock/tracker"
)

// HostFunc implements a guest import. Parameters are read from stack and
// results written back to it, as with api.GoModuleFunc.
type HostFunc func(ctx context.Context, mod api.Module, stack []uint64)

type hostFunc struct {
	fn      HostFunc
	name    string
	params  []api.ValueType
	results []api.ValueType
}

// nativeFunc switches the calling thread to Native for the duration of fn.
func nativeFunc(fn HostFunc) api.GoModuleFunc {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		th := tracker.FromContext(ctx)
		if th == nil {
			fn(ctx, mod, stack)
			return
		}
		prev := th.Enter(tracker.Native)
		defer th.Transition(prev)
		fn(ctx, mod, stack)
	}
}
