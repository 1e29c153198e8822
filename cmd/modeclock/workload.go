package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/modeclock/engine"
	"github.com/wippyai/modeclock/runtime"
)

// workload calls one export repeatedly from a fixed number of attached
// threads.
type workload struct {
	rt   *runtime.Runtime
	mod  *engine.Module
	log  *zap.Logger
	fn   string
	args []uint64

	threads     int
	calls       int // per thread
	perInstance int // calls per instantiation, 0 means one instance per thread

	done atomic.Uint64
}

func (w *workload) total() uint64 {
	return uint64(w.threads) * uint64(w.calls)
}

func (w *workload) run(ctx context.Context) error {
	var wg sync.WaitGroup
	errs := make([]error, w.threads)
	for i := 0; i < w.threads; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			errs[id] = w.worker(ctx, id)
		}(i)
	}
	wg.Wait()
	return stderrors.Join(errs...)
}

func (w *workload) worker(ctx context.Context, id int) error {
	ctx, th := w.rt.Attach(ctx, fmt.Sprintf("worker-%d", id))
	defer w.rt.Detach(ctx)

	var inst *engine.Instance
	defer func() {
		if inst != nil {
			inst.Close(ctx)
		}
	}()

	for n := 0; n < w.calls; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if inst == nil || (w.perInstance > 0 && n%w.perInstance == 0) {
			if inst != nil {
				inst.Close(ctx)
			}
			var err error
			if inst, err = w.mod.Instantiate(ctx); err != nil {
				return fmt.Errorf("worker %d: %w", id, err)
			}
		}
		if _, err := inst.Call(ctx, w.fn, w.args...); err != nil {
			return fmt.Errorf("worker %d call %d: %w", id, n, err)
		}
		w.done.Add(1)
	}

	fields := []zap.Field{
		zap.Int("worker", id),
		zap.Uint64("thread", th.ID()),
		zap.Int("tid", th.OSThread()),
	}
	if inst != nil {
		fields = append(fields, zap.Stringer("tier", inst.Tier()))
	}
	w.log.Debug("worker finished", fields...)
	return nil
}

// parseArgs parses signed or unsigned integers into raw stack values.
func parseArgs(in []string) ([]uint64, error) {
	out := make([]uint64, 0, len(in))
	for _, s := range in {
		if v, err := strconv.ParseInt(s, 0, 64); err == nil {
			out = append(out, uint64(v))
			continue
		}
		v, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", s, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// pickFunc returns name if set, else a common entry point, else the only
// export.
func pickFunc(name string, exports []string) (string, error) {
	if name != "" {
		for _, e := range exports {
			if e == name {
				return name, nil
			}
		}
		return "", fmt.Errorf("function %q not exported (exports: %v)", name, exports)
	}
	for _, candidate := range []string{"_start", "run", "main"} {
		for _, e := range exports {
			if e == candidate {
				return candidate, nil
			}
		}
	}
	if len(exports) == 1 {
		return exports[0], nil
	}
	return "", fmt.Errorf("no entry point found, use --func (exports: %v)", exports)
}
