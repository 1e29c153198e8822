package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/wippyai/modeclock/config"
	"github.com/wippyai/modeclock/engine"
	"github.com/wippyai/modeclock/knell"
	"github.com/wippyai/modeclock/lifecycle"
	"github.com/wippyai/modeclock/runtime"
)

// app carries state shared by subcommands once the config is loaded.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	log     *zap.Logger
	halt    func(status int)
}

func newRootCmd() *cobra.Command {
	return newApp(os.Exit).rootCmd()
}

func newApp(halt func(status int)) *app {
	return &app{v: viper.New(), halt: halt}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "modeclock",
		Short: "Execution-mode timing for a tiered WebAssembly runtime",
		Long: `modeclock runs WebAssembly core modules on an interpreter tier and a
compiler tier, tracks per-thread time in each mode, and reports the totals
when threads exit and when the process halts.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (yaml, json or toml)")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")
	root.PersistentFlags().String("log-format", "", "log format: console or json")
	_ = a.v.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))
	_ = a.v.BindPFlag("log.format", root.PersistentFlags().Lookup("log-format"))

	root.AddCommand(newRunCmd(a), newConfigCmd(a))
	return root
}

// load reads the configuration and installs the root logger in every
// package that logs.
func (a *app) load() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.SetConfigName("modeclock")
		a.v.AddConfigPath(".")
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	log, err := cfg.Log.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	a.setLogger(log)

	if used := a.v.ConfigFileUsed(); used != "" {
		a.log.Debug("config loaded", zap.String("file", used))
	}
	return nil
}

func (a *app) setLogger(l *zap.Logger) {
	a.log = l
	engine.SetLogger(l.Named("engine"))
	knell.SetLogger(l.Named("knell"))
	lifecycle.SetLogger(l.Named("lifecycle"))
	runtime.SetLogger(l.Named("runtime"))
}
