package tracker

import (
	"sync/atomic"

	"github.com/wippyai/modeclock/clock"
	"github.com/wippyai/modeclock/internal/osthread"
)

// Tracker owns a set of Totals and hands out the Threads that feed them.
// Most programs use Default; tests and embedders that need isolated totals
// create their own with New.
type Tracker struct {
	clock    clock.Source
	totals   Totals
	nextID   atomic.Uint64
	attached atomic.Int64
}

// New creates a tracker reading time from src. A nil src means clock.Monotonic.
func New(src clock.Source) *Tracker {
	if src == nil {
		src = clock.Monotonic
	}
	return &Tracker{clock: src}
}

var defaultTracker = New(nil)

// Default returns the process-wide tracker.
func Default() *Tracker {
	return defaultTracker
}

// Clock returns the tracker's time source.
func (tr *Tracker) Clock() clock.Source {
	return tr.clock
}

// Totals returns a snapshot of the aggregate counters.
func (tr *Tracker) Totals() Counters {
	return tr.totals.Snapshot()
}

// Aggregate exposes the live totals for direct inspection.
func (tr *Tracker) Aggregate() *Totals {
	return &tr.totals
}

// Attached returns the number of threads attached and not yet detached.
func (tr *Tracker) Attached() int64 {
	return tr.attached.Load()
}

// AttachConfig configures a new Thread.
type AttachConfig struct {
	// Name labels the thread in reports.
	Name string

	// InitialMode is the mode the thread starts in. The zero value is
	// Interpreted. Starting in Native opens the Interpreted interval.
	InitialMode Mode

	// Clock overrides the tracker's time source for this thread.
	Clock clock.Source

	// PinOSThread locks the calling goroutine to its OS thread until Detach
	// and records the kernel thread id.
	PinOSThread bool
}

// Attach creates the Thread for the calling goroutine.
func (tr *Tracker) Attach(cfg AttachConfig) *Thread {
	th := &Thread{
		tracker: tr,
		id:      tr.nextID.Add(1),
		name:    cfg.Name,
		clock:   cfg.Clock,
	}
	if th.clock == nil {
		th.clock = tr.clock
	}

	if cfg.PinOSThread {
		th.osThread = osthread.Pin()
		th.pinned = true
	}

	mode := cfg.InitialMode
	if !mode.Valid() {
		mode = Interpreted
	}
	th.mode = mode
	th.accounted = mode
	if !mode.Accounted() {
		th.accounted = Interpreted
	}
	th.start[th.accounted] = th.clock.Now()

	tr.attached.Add(1)
	return th
}

// NewThread is Attach with only a name.
func (tr *Tracker) NewThread(name string) *Thread {
	return tr.Attach(AttachConfig{Name: name})
}
