// Package config holds the modeclock configuration and its loading from
// files, environment and flags via viper.
package config

import (
	stderrors "errors"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/modeclock/errors"
)

// EnvPrefix prefixes environment overrides, e.g. MODECLOCK_ENGINE_PROMOTE_AFTER.
const EnvPrefix = "MODECLOCK"

const (
	TierInterpreter = "interpreter"
	TierCompiler    = "compiler"

	ReportLog   = "log"
	ReportTable = "table"
	ReportNone  = "none"
)

// Config is the full configuration.
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine" yaml:"engine"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Report  ReportConfig  `mapstructure:"report" yaml:"report"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// EngineConfig configures the tiered engine.
type EngineConfig struct {
	// InitialTier is the tier new modules start on.
	InitialTier string `mapstructure:"initial_tier" yaml:"initial_tier"`
	// PromoteAfter is the number of calls after which a module is compiled.
	// 0 disables promotion.
	PromoteAfter uint64 `mapstructure:"promote_after" yaml:"promote_after"`
	// MemoryLimitPages caps instance memory in 64KiB pages. 0 keeps the
	// wazero default.
	MemoryLimitPages uint32 `mapstructure:"memory_limit_pages" yaml:"memory_limit_pages"`
}

// LogConfig configures the root zap logger.
type LogConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

// ReportConfig selects the knell sink.
type ReportConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
	// Output is "stderr", "stdout" or a file path.
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig configures the Prometheus endpoint. An empty ListenAddress
// disables it.
type MetricsConfig struct {
	ListenAddress string `mapstructure:"listen_address" yaml:"listen_address"`
	Path          string `mapstructure:"path" yaml:"path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			InitialTier:  TierInterpreter,
			PromoteAfter: 1000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Report: ReportConfig{
			Format: ReportTable,
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Path: "/metrics",
		},
	}
}

// SetDefaults registers the defaults on v so environment variables bind to
// every key.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("engine.initial_tier", d.Engine.InitialTier)
	v.SetDefault("engine.promote_after", d.Engine.PromoteAfter)
	v.SetDefault("engine.memory_limit_pages", d.Engine.MemoryLimitPages)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.development", d.Log.Development)
	v.SetDefault("report.format", d.Report.Format)
	v.SetDefault("report.output", d.Report.Output)
	v.SetDefault("metrics.listen_address", d.Metrics.ListenAddress)
	v.SetDefault("metrics.path", d.Metrics.Path)
}

// Load reads the configuration from v: defaults, then the config file if one
// is set or found, then MODECLOCK_* environment variables, then any flags
// bound to v. The result is validated.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindFailed, err, "read config file")
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated fields.
func (c *Config) Validate() error {
	switch c.Engine.InitialTier {
	case TierInterpreter, TierCompiler:
	default:
		return invalid(c.Engine.InitialTier, `must be "interpreter" or "compiler"`, "engine", "initial_tier")
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path("log", "level").
			Value(c.Log.Level).
			Cause(err).
			Build()
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		return invalid(c.Log.Format, `must be "console" or "json"`, "log", "format")
	}

	switch c.Report.Format {
	case ReportLog, ReportTable, ReportNone:
	default:
		return invalid(c.Report.Format, "must be log, table or none", "report", "format")
	}

	if c.Metrics.ListenAddress != "" && !strings.HasPrefix(c.Metrics.Path, "/") {
		return invalid(c.Metrics.Path, "must start with /", "metrics", "path")
	}
	return nil
}

func invalid(value any, detail string, path ...string) error {
	return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
		Path(path...).
		Value(value).
		Detail("%s", detail).
		Build()
}

// YAML renders the configuration.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// Build creates the root logger.
func (l LogConfig) Build() (*zap.Logger, error) {
	var zc zap.Config
	if l.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}

	if l.Level != "" {
		lvl, err := zapcore.ParseLevel(l.Level)
		if err != nil {
			return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Path("log", "level").
				Value(l.Level).
				Cause(err).
				Build()
		}
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}
	if l.Format != "" {
		zc.Encoding = l.Format
	}
	if zc.Encoding == "console" {
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	return zc.Build()
}
