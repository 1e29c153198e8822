package runtime

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/modeclock/tracker"
)

// Attach creates a tracker thread for the calling goroutine, starting in
// Interpreted, and returns ctx carrying it. The thread must be released with
// Detach on the same goroutine.
func (r *Runtime) Attach(ctx context.Context, name string) (context.Context, *tracker.Thread) {
	th := r.tracker.Attach(tracker.AttachConfig{
		Name:        name,
		InitialMode: tracker.Interpreted,
		PinOSThread: r.pin,
	})
	Logger().Debug("thread attached",
		zap.Uint64("thread", th.ID()),
		zap.String("name", name),
		zap.Int("tid", th.OSThread()))
	return tracker.WithThread(ctx, th), th
}

// Detach knells the thread carried by ctx with tag "thread-exit:<name>" and
// detaches it. It is a no-op when ctx carries no thread or the thread is
// already detached.
func (r *Runtime) Detach(ctx context.Context) {
	th := tracker.FromContext(ctx)
	if th == nil || th.Detached() {
		return
	}
	r.reporter.Knell(th, ThreadExitTag+th.Name())
	th.Detach()
	Logger().Debug("thread detached", zap.Uint64("thread", th.ID()))
}
