package tracker

import "context"

type threadKey struct{}

// WithThread returns a copy of ctx carrying th.
func WithThread(ctx context.Context, th *Thread) context.Context {
	return context.WithValue(ctx, threadKey{}, th)
}

// FromContext returns the thread carried by ctx, or nil.
func FromContext(ctx context.Context) *Thread {
	if ctx == nil {
		return nil
	}
	th, _ := ctx.Value(threadKey{}).(*Thread)
	return th
}
