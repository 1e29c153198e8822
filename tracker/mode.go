package tracker

import "strconv"

// Mode is an execution mode of a thread.
type Mode int8

const (
	// Interpreted is the initial mode of every thread.
	Interpreted Mode = iota
	// Compiled is execution of natively compiled guest code.
	Compiled
	// Native is reserved for host calls. It is accounting-inert: transitions
	// into or out of it never move time between the Interpreted and Compiled
	// counters.
	Native
)

// accountedModes is the number of modes with counters.
const accountedModes = 2

// Accounted reports whether time spent in m is counted.
func (m Mode) Accounted() bool {
	return m == Interpreted || m == Compiled
}

// Valid reports whether m is a defined mode.
func (m Mode) Valid() bool {
	return m >= Interpreted && m <= Native
}

func (m Mode) String() string {
	switch m {
	case Interpreted:
		return "interpreted"
	case Compiled:
		return "compiled"
	case Native:
		return "native"
	default:
		return "mode(" + strconv.Itoa(int(m)) + ")"
	}
}

// ParseMode is the inverse of Mode.String for defined modes.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "interpreted":
		return Interpreted, true
	case "compiled":
		return Compiled, true
	case "native":
		return Native, true
	}
	return 0, false
}
