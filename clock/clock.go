// Package clock is the monotonic time source used for mode accounting.
//
// Timestamps are nanoseconds since the process started. They come from the
// monotonic reading of the Go runtime clock, so they never regress and can be
// read from any goroutine without coordination. There is no error path: the
// runtime clock is always available, and if it were not the process could not
// have started.
package clock

import (
	"sync/atomic"
	"time"
)

// Timestamp is a point in time in nanoseconds on the process monotonic clock.
type Timestamp uint64

// Sub returns the nanoseconds elapsed from earlier to t.
// It returns 0 when earlier is after t.
func (t Timestamp) Sub(earlier Timestamp) uint64 {
	if t < earlier {
		return 0
	}
	return uint64(t - earlier)
}

// Duration converts t to the duration since process start.
func (t Timestamp) Duration() time.Duration {
	return time.Duration(t)
}

// Source provides timestamps.
type Source interface {
	Now() Timestamp
}

// SourceFunc adapts a function to Source.
type SourceFunc func() Timestamp

func (f SourceFunc) Now() Timestamp { return f() }

// time.Since reads only the monotonic component of epoch.
var epoch = time.Now()

// Now returns the current monotonic timestamp.
func Now() Timestamp {
	return Timestamp(time.Since(epoch))
}

type monotonic struct{}

func (monotonic) Now() Timestamp { return Now() }

// Monotonic is the process clock as a Source.
var Monotonic Source = monotonic{}

// Manual is a Source that only moves when told to. Safe for concurrent use.
type Manual struct {
	now atomic.Uint64
}

// NewManual returns a manual clock reading start.
func NewManual(start Timestamp) *Manual {
	m := &Manual{}
	m.now.Store(uint64(start))
	return m
}

func (m *Manual) Now() Timestamp {
	return Timestamp(m.now.Load())
}

// Set moves the clock to t. Moving backwards is ignored.
func (m *Manual) Set(t Timestamp) {
	for {
		cur := m.now.Load()
		if uint64(t) <= cur {
			return
		}
		if m.now.CompareAndSwap(cur, uint64(t)) {
			return
		}
	}
}

// Advance moves the clock forward by d nanoseconds and returns the new reading.
func (m *Manual) Advance(d uint64) Timestamp {
	return Timestamp(m.now.Add(d))
}
