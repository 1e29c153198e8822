package engine

import (
	"fmt"
	goruntime "runtime"

	"github.com/tetratelabs/wazero"

	"github.com/wippyai/modeclock/errors"
	"github.com/wippyai/modeclock/tracker"
)

// Tier selects the wazero execution strategy.
type Tier int8

const (
	TierInterpreter Tier = iota
	TierCompiler

	tierCount = 2
)

func (t Tier) String() string {
	switch t {
	case TierInterpreter:
		return "interpreter"
	case TierCompiler:
		return "compiler"
	default:
		return fmt.Sprintf("tier(%d)", int8(t))
	}
}

// Mode returns the execution mode calls on this tier are charged to.
func (t Tier) Mode() tracker.Mode {
	if t == TierCompiler {
		return tracker.Compiled
	}
	return tracker.Interpreted
}

func (t Tier) valid() bool {
	return t >= 0 && t < tierCount
}

// ParseTier parses "interpreter" or "compiler".
func ParseTier(s string) (Tier, error) {
	switch s {
	case "interpreter":
		return TierInterpreter, nil
	case "compiler":
		return TierCompiler, nil
	default:
		return 0, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path("tier").
			Value(s).
			Detail("unknown tier").
			Build()
	}
}

// CompilerSupported reports whether wazero can generate native code on this
// platform. When it cannot, the compiler tier runs on the interpreter.
func CompilerSupported() bool {
	switch goruntime.GOARCH {
	case "amd64", "arm64":
	default:
		return false
	}
	switch goruntime.GOOS {
	case "linux", "darwin", "freebsd", "netbsd", "windows":
		return true
	default:
		return false
	}
}

func runtimeConfig(t Tier, memoryLimitPages uint32) wazero.RuntimeConfig {
	var cfg wazero.RuntimeConfig
	if t == TierCompiler && CompilerSupported() {
		cfg = wazero.NewRuntimeConfigCompiler()
	} else {
		cfg = wazero.NewRuntimeConfigInterpreter()
	}
	if memoryLimitPages > 0 {
		cfg = cfg.WithMemoryLimitPages(memoryLimitPages)
	}
	return cfg
}
