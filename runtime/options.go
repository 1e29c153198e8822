package runtime

import (
	"github.com/wippyai/modeclock/knell"
	"github.com/wippyai/modeclock/tracker"
)

// Option customizes a Runtime.
type Option func(*options)

type options struct {
	tracker    *tracker.Tracker
	sinks      []knell.Sink
	halt       func(int)
	finalizers func()
	pin        bool
	wasi       bool
}

// WithTracker uses tr instead of tracker.Default().
func WithTracker(tr *tracker.Tracker) Option {
	return func(o *options) { o.tracker = tr }
}

// WithSinks sets the knell sinks. Without it knells go to the knell package
// logger.
func WithSinks(sinks ...knell.Sink) Option {
	return func(o *options) { o.sinks = append(o.sinks, sinks...) }
}

// WithHalt replaces os.Exit as the final step of Exit.
func WithHalt(halt func(status int)) Option {
	return func(o *options) { o.halt = halt }
}

// WithFinalizers sets the work run after shutdown hooks when finalizers on
// exit are enabled.
func WithFinalizers(fn func()) Option {
	return func(o *options) { o.finalizers = fn }
}

// WithPinnedThreads locks attached goroutines to their OS threads.
func WithPinnedThreads(pin bool) Option {
	return func(o *options) { o.pin = pin }
}

// WithWASI makes wasi_snapshot_preview1 available to modules.
func WithWASI(enable bool) Option {
	return func(o *options) { o.wasi = enable }
}
