package knell

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/modeclock/tracker"
)

// Reporter rings knells against one tracker.
type Reporter struct {
	tracker *tracker.Tracker
	sinks   []Sink
}

// NewReporter creates a reporter over tr. A nil tr means tracker.Default().
func NewReporter(tr *tracker.Tracker, sinks ...Sink) *Reporter {
	if tr == nil {
		tr = tracker.Default()
	}
	return &Reporter{tracker: tr, sinks: sinks}
}

// Tracker returns the tracker the reporter reads.
func (r *Reporter) Tracker() *tracker.Tracker {
	return r.tracker
}

// Snapshot builds the report Knell would emit, without emitting it.
// th may be nil.
func (r *Reporter) Snapshot(th *tracker.Thread, tag string) Report {
	rep := Report{
		Tag: tag,
		At:  r.tracker.Clock().Now(),
	}

	if th != nil {
		rep.HasThread = true
		rep.Thread = ThreadInfo{
			ID:       th.ID(),
			Name:     th.Name(),
			OSThread: th.OSThread(),
			Mode:     th.Mode(),
		}
		rep.Local = th.Counters()
		rep.OpenMode, rep.OpenElapsed = th.Open()
	}

	rep.Global = r.tracker.Totals()
	rep.Attached = r.tracker.Attached()
	return rep
}

// Knell reports th, which must belong to the calling goroutine, under tag.
// th may be nil to report only the process totals.
func (r *Reporter) Knell(th *tracker.Thread, tag string) {
	rep := r.Snapshot(th, tag)
	for _, s := range r.sinks {
		if err := s.Emit(rep); err != nil {
			Logger().Warn("knell sink failed", zap.String("tag", tag), zap.Error(err))
		}
	}
}

// KnellContext reports the thread carried by ctx, if any.
func (r *Reporter) KnellContext(ctx context.Context, tag string) {
	r.Knell(tracker.FromContext(ctx), tag)
}

var std atomic.Pointer[Reporter]

func init() {
	std.Store(NewReporter(tracker.Default(), NewLogSink(nil)))
}

// Default returns the process-wide reporter. Until replaced with SetDefault it
// reads tracker.Default() and writes to the package logger.
func Default() *Reporter {
	return std.Load()
}

// SetDefault replaces the process-wide reporter.
func SetDefault(r *Reporter) {
	std.Store(r)
}

// Knell rings the default reporter.
func Knell(th *tracker.Thread, tag string) {
	Default().Knell(th, tag)
}
