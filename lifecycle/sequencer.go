// Package lifecycle sequences process shutdown: registered hooks run in slot
// order, then optional finalizers, then the process halts. The halt path
// rings a knell tagged "halt" so the final mode totals are reported.
package lifecycle

import (
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/modeclock/errors"
)

// MaxHooks is the number of hook slots.
const MaxHooks = 10

// HaltTag is the knell tag used when the process halts.
const HaltTag = "halt"

// State is the shutdown progress.
type State int32

const (
	StateRunning State = iota
	StateHooks
	StateFinalizers
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateHooks:
		return "hooks"
	case StateFinalizers:
		return "finalizers"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Config wires a Sequencer to the process.
type Config struct {
	// Halt terminates the process. Defaults to os.Exit.
	Halt func(status int)
	// Finalizers runs after the hooks when finalizers-on-exit is enabled.
	Finalizers func()
	// Knell is called with HaltTag just before Halt.
	Knell func(tag string)
	// Now stamps the halt log entry. Defaults to time.Now.
	Now func() time.Time
}

// Sequencer runs the shutdown sequence at most once.
type Sequencer struct {
	halt       func(int)
	finalizers func()
	knell      func(string)
	now        func() time.Time

	mu                  sync.Mutex
	state               State
	runFinalizersOnExit bool
	hooks               [MaxHooks]func()
	currentHook         int

	// seqMu serializes whole exit/shutdown sequences; haltMu serializes halts.
	seqMu  sync.Mutex
	haltMu sync.Mutex
}

// New creates a sequencer in StateRunning. cfg may be nil.
func New(cfg *Config) *Sequencer {
	s := &Sequencer{
		halt: os.Exit,
		now:  time.Now,
	}
	if cfg != nil {
		if cfg.Halt != nil {
			s.halt = cfg.Halt
		}
		if cfg.Now != nil {
			s.now = cfg.Now
		}
		s.finalizers = cfg.Finalizers
		s.knell = cfg.Knell
	}
	return s
}

// State returns the current state.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetRunFinalizersOnExit enables or disables finalizers after the hooks.
func (s *Sequencer) SetRunFinalizersOnExit(run bool) {
	s.mu.Lock()
	s.runFinalizersOnExit = run
	s.mu.Unlock()
}

// Add registers hook in slot. With registerInProgress a hook may still be
// added while hooks are running, as long as its slot has not been reached.
func (s *Sequencer) Add(slot int, registerInProgress bool, hook func()) error {
	if slot < 0 || slot >= MaxHooks {
		return errors.InvalidInput(errors.PhaseShutdown, fmt.Sprintf("hook slot %d out of range [0,%d)", slot, MaxHooks))
	}
	if hook == nil {
		return errors.InvalidInput(errors.PhaseShutdown, "nil hook")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hooks[slot] != nil {
		return errors.Conflict(errors.PhaseShutdown, fmt.Sprintf("hook slot %d already registered", slot), slot)
	}
	if !registerInProgress {
		if s.state > StateRunning {
			return errors.InvalidState(errors.PhaseShutdown, "shutdown in progress")
		}
	} else if s.state > StateHooks || (s.state == StateHooks && slot <= s.currentHook) {
		return errors.InvalidState(errors.PhaseShutdown, "shutdown in progress")
	}

	s.hooks[slot] = hook
	return nil
}

// Exit runs the shutdown sequence and halts with status. A nonzero status
// disables finalizers. A nonzero exit during finalization halts at once. A
// concurrent Exit waits for the running sequence and then halts.
func (s *Sequencer) Exit(status int) {
	runMore := false

	s.mu.Lock()
	if status != 0 {
		s.runFinalizersOnExit = false
	}
	switch s.state {
	case StateRunning:
		s.state = StateHooks
	case StateHooks:
	case StateFinalizers:
		if status != 0 {
			s.mu.Unlock()
			s.Halt(status)
			return
		}
		runMore = s.runFinalizersOnExit
	}
	s.mu.Unlock()

	if runMore {
		s.runFinalizers()
		s.Halt(status)
		return
	}

	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	s.sequence()
	s.Halt(status)
}

// Shutdown runs the shutdown sequence without halting. It is used when the
// last worker finishes normally.
func (s *Sequencer) Shutdown() {
	s.mu.Lock()
	if s.state == StateRunning {
		s.state = StateHooks
	}
	s.mu.Unlock()

	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	s.sequence()
}

// Halt reports the final totals and terminates the process without running
// hooks.
func (s *Sequencer) Halt(status int) {
	s.haltMu.Lock()
	defer s.haltMu.Unlock()

	Logger().Info("halt",
		zap.Int("status", status),
		zap.Int64("at_ms", s.now().UnixMilli()),
	)
	if s.knell != nil {
		s.knell(HaltTag)
	}
	s.halt(status)
}

func (s *Sequencer) sequence() {
	s.mu.Lock()
	if s.state != StateHooks {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.runHooks()

	s.mu.Lock()
	s.state = StateFinalizers
	rfoe := s.runFinalizersOnExit
	s.mu.Unlock()

	if rfoe {
		s.runFinalizers()
	}
}

func (s *Sequencer) runHooks() {
	for i := 0; i < MaxHooks; i++ {
		s.mu.Lock()
		s.currentHook = i
		hook := s.hooks[i]
		s.mu.Unlock()

		if hook != nil {
			s.runHook(i, hook)
		}
	}
}

func (s *Sequencer) runHook(slot int, hook func()) {
	defer func() {
		if r := recover(); r != nil {
			Logger().Error("shutdown hook panicked",
				zap.Int("slot", slot),
				zap.Any("panic", r),
			)
		}
	}()
	hook()
}

func (s *Sequencer) runFinalizers() {
	if s.finalizers == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			Logger().Error("finalizers panicked", zap.Any("panic", r))
		}
	}()
	s.finalizers()
}
