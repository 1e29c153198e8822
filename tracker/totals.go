package tracker

import "sync/atomic"

// Counters is a pair of per-mode nanosecond counts.
type Counters struct {
	Interpreted uint64
	Compiled    uint64
}

// Get returns the count for m, or 0 for modes without a counter.
func (c Counters) Get(m Mode) uint64 {
	switch m {
	case Interpreted:
		return c.Interpreted
	case Compiled:
		return c.Compiled
	}
	return 0
}

// Sum returns Interpreted + Compiled.
func (c Counters) Sum() uint64 {
	return c.Interpreted + c.Compiled
}

// Add returns the element-wise sum of c and o.
func (c Counters) Add(o Counters) Counters {
	return Counters{
		Interpreted: c.Interpreted + o.Interpreted,
		Compiled:    c.Compiled + o.Compiled,
	}
}

// Totals is the process-wide aggregate. Every method is safe for concurrent
// use; adds are single atomic operations, so no increment is lost.
type Totals struct {
	interpreted atomic.Uint64
	compiled    atomic.Uint64
}

// Add adds d to the total of m. Modes without a counter are ignored.
func (t *Totals) Add(m Mode, d uint64) {
	switch m {
	case Interpreted:
		t.interpreted.Add(d)
	case Compiled:
		t.compiled.Add(d)
	}
}

func (t *Totals) Interpreted() uint64 { return t.interpreted.Load() }

func (t *Totals) Compiled() uint64 { return t.compiled.Load() }

// Snapshot loads both totals. The two loads are independent; a concurrent
// transition may land between them.
func (t *Totals) Snapshot() Counters {
	return Counters{
		Interpreted: t.interpreted.Load(),
		Compiled:    t.compiled.Load(),
	}
}
