package knell

import (
	"github.com/wippyai/modeclock/clock"
	"github.com/wippyai/modeclock/tracker"
)

// ThreadInfo identifies the thread a report was rung on.
type ThreadInfo struct {
	Name     string
	ID       uint64
	OSThread int
	Mode     tracker.Mode
}

// Report is a point-in-time summary. Global is read after Local, and other
// threads may keep adding to the totals while it is built.
type Report struct {
	Tag    string
	Thread ThreadInfo

	// Local holds the closed intervals of the reporting thread.
	Local tracker.Counters
	// Global is a snapshot of the tracker totals.
	Global tracker.Counters

	// OpenMode and OpenElapsed describe the reporting thread's interval that
	// is still accruing and therefore not part of Local or Global.
	OpenMode    tracker.Mode
	OpenElapsed uint64

	// Attached is the number of live threads on the tracker.
	Attached int64
	At       clock.Timestamp

	// HasThread is false when the knell was rung without a thread.
	HasThread bool
}
