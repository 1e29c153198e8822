package tracker

import (
	"github.com/wippyai/modeclock/clock"
	"github.com/wippyai/modeclock/internal/osthread"
)

// Thread is the mode state of one goroutine. It must only be used by the
// goroutine that attached it.
type Thread struct {
	tracker *Tracker
	clock   clock.Source
	name    string

	id       uint64
	osThread int
	pinned   bool
	detached bool

	mode Mode
	// accounted is the mode whose interval is open. It equals mode unless
	// mode is Native.
	accounted Mode

	start  [accountedModes]clock.Timestamp
	counts [accountedModes]uint64
}

// ID is unique per Tracker.
func (t *Thread) ID() uint64 { return t.id }

func (t *Thread) Name() string { return t.name }

// OSThread returns the kernel thread id if the thread was pinned on a
// platform that reports it, otherwise 0.
func (t *Thread) OSThread() int { return t.osThread }

func (t *Thread) Tracker() *Tracker { return t.tracker }

// Mode returns the current mode.
func (t *Thread) Mode() Mode { return t.mode }

// Counters returns the closed-interval totals of this thread. The open
// interval is not included.
func (t *Thread) Counters() Counters {
	return Counters{
		Interpreted: t.counts[Interpreted],
		Compiled:    t.counts[Compiled],
	}
}

// IntervalStart returns when the thread last entered m. The second result is
// false for modes without an interval.
func (t *Thread) IntervalStart(m Mode) (clock.Timestamp, bool) {
	if !m.Accounted() {
		return 0, false
	}
	return t.start[m], true
}

// Open returns the mode whose interval is open and how long it has been open.
func (t *Thread) Open() (Mode, uint64) {
	now := t.clock.Now()
	return t.accounted, now.Sub(t.start[t.accounted])
}

// Detached reports whether Detach was called.
func (t *Thread) Detached() bool { return t.detached }

// Transition records that the thread now executes in mode to.
//
// The open interval is closed and its length added to the thread counter and
// the tracker totals. Repeating the current mode is a no-op, as are unknown
// modes and any call after Detach. Native does not close or open intervals.
func (t *Thread) Transition(to Mode) {
	if t.detached || to == t.mode || !to.Valid() {
		return
	}
	t.mode = to
	if !to.Accounted() {
		return
	}

	from := t.accounted
	if from == to {
		// back from Native into the mode that was already open
		return
	}

	now := t.clock.Now()
	elapsed := now.Sub(t.start[from])
	t.counts[from] += elapsed
	t.tracker.totals.Add(from, elapsed)

	t.start[to] = now
	t.accounted = to
}

// Enter transitions to mode to and returns the previous mode, so callers can
// restore it with a deferred Transition.
func (t *Thread) Enter(to Mode) Mode {
	prev := t.mode
	t.Transition(to)
	return prev
}

// Detach ends the thread. The open interval is dropped, not folded into the
// counters. If the thread was pinned, the goroutine is released from its OS
// thread, so Detach must run on the owning goroutine. Calling it again is a
// no-op.
func (t *Thread) Detach() {
	if t.detached {
		return
	}
	t.detached = true
	if t.pinned {
		osthread.Unpin()
		t.pinned = false
	}
	t.tracker.attached.Add(-1)
}
