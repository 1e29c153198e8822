package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/modeclock/engine"
	"github.com/wippyai/modeclock/internal/fixture"
	"github.com/wippyai/modeclock/runtime"
	"github.com/wippyai/modeclock/tracker"
)

// hookMetrics is the shutdown slot that stops the metrics server.
const hookMetrics = 1

type runOptions struct {
	funcName    string
	args        []string
	threads     int
	calls       int
	perInstance int
	demo        bool
	interactive bool
	wasi        bool
	list        bool
}

func newRunCmd(a *app) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run [file.wasm]",
		Short: "Run a workload and report interpreted and compiled time",
		Long: `run loads a core WebAssembly module, starts --threads workers that each
call --func --calls times, and knells every worker on exit. The process
then exits through the shutdown sequence, which knells the process totals.

With --demo a built-in module is used whose env.tick import is provided.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := ""
			if len(args) == 1 {
				file = args[0]
			}
			if file == "" && !o.demo {
				return fmt.Errorf("a module file or --demo is required")
			}
			return a.run(cmd.Context(), file, o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.funcName, "func", "", "exported function to call")
	f.StringSliceVar(&o.args, "arg", nil, "integer arguments passed to the function")
	f.IntVar(&o.threads, "threads", 4, "number of worker threads")
	f.IntVar(&o.calls, "calls", 10000, "calls per thread")
	f.IntVar(&o.perInstance, "per-instance", 0, "calls per instance before re-instantiating (0 keeps one instance per thread)")
	f.BoolVar(&o.demo, "demo", false, "use the built-in demo module")
	f.BoolVarP(&o.interactive, "interactive", "i", false, "show live progress when stdout is a terminal")
	f.BoolVar(&o.wasi, "wasi", false, "provide wasi_snapshot_preview1 to the module")
	f.BoolVar(&o.list, "list", false, "list exported functions and exit")

	f.String("tier", "", "initial tier: interpreter or compiler")
	f.Uint64("promote-after", 0, "calls before a module is compiled (0 disables)")
	f.Uint32("memory-limit-pages", 0, "instance memory limit in 64KiB pages")
	f.String("report", "", "knell output: log, table or none")
	f.String("report-output", "", "table output: stderr, stdout or a file path")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address")

	for key, flag := range map[string]string{
		"engine.initial_tier":       "tier",
		"engine.promote_after":      "promote-after",
		"engine.memory_limit_pages": "memory-limit-pages",
		"report.format":             "report",
		"report.output":             "report-output",
		"metrics.listen_address":    "metrics-addr",
	} {
		_ = a.v.BindPFlag(key, f.Lookup(flag))
	}
	return cmd
}

func (a *app) run(ctx context.Context, file string, o *runOptions) error {
	if o.threads < 1 {
		return fmt.Errorf("--threads must be at least 1")
	}
	if o.calls < 0 || o.perInstance < 0 {
		return fmt.Errorf("--calls and --per-instance must not be negative")
	}

	runID := uuid.NewString()
	a.setLogger(a.log.With(zap.String("run_id", runID)))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sinks, held, err := reportSinks(a.cfg.Report)
	if err != nil {
		return err
	}

	tr := tracker.Default()
	rt, err := runtime.New(ctx, a.cfg,
		runtime.WithTracker(tr),
		runtime.WithSinks(sinks...),
		runtime.WithPinnedThreads(true),
		runtime.WithWASI(o.wasi),
		runtime.WithHalt(a.halt),
	)
	if err != nil {
		return fmt.Errorf("create runtime: %w", err)
	}

	var ticks atomic.Uint64
	if o.demo {
		if err := rt.RegisterFunc(fixture.ImportModule, fixture.ImportTick, func() { ticks.Add(1) }); err != nil {
			return fmt.Errorf("register demo host: %w", err)
		}
	}

	if a.cfg.Metrics.ListenAddress != "" {
		srv, err := startMetrics(a.cfg.Metrics, tr, a.log)
		if err != nil {
			rt.Close(ctx)
			return err
		}
		if err := rt.Shutdown().Add(hookMetrics, false, func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				a.log.Warn("metrics server shutdown", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	source := file
	if o.demo {
		source = "demo"
	}
	engMod, err := loadModule(ctx, rt, file, o.demo)
	if err != nil {
		rt.Close(ctx)
		return err
	}

	exports := engMod.ExportNames()
	if o.list {
		for _, name := range exports {
			fmt.Fprintln(os.Stdout, name)
		}
		return rt.Close(ctx)
	}

	funcName, argStrings := o.funcName, o.args
	if o.demo && funcName == "" {
		funcName = fixture.ExportSum
		if len(argStrings) == 0 {
			argStrings = []string{"100"}
		}
	}
	fn, err := pickFunc(funcName, exports)
	if err != nil {
		rt.Close(ctx)
		return err
	}
	args, err := parseArgs(argStrings)
	if err != nil {
		rt.Close(ctx)
		return err
	}

	w := &workload{
		rt:          rt,
		mod:         engMod,
		log:         a.log,
		fn:          fn,
		args:        args,
		threads:     o.threads,
		calls:       o.calls,
		perInstance: o.perInstance,
	}

	a.log.Info("workload starting",
		zap.String("module", source),
		zap.String("func", fn),
		zap.Int("threads", o.threads),
		zap.Int("calls", o.calls),
		zap.Stringer("tier", engMod.Tier()),
		zap.Uint64("promote_after", a.cfg.Engine.PromoteAfter))

	start := time.Now()
	var runErr error
	if o.interactive && term.IsTerminal(int(os.Stdout.Fd())) {
		if held != nil {
			held.hold()
		}
		runErr = runInteractive(ctx, w, source)
		if held != nil {
			if err := held.release(); err != nil {
				a.log.Warn("flush reports", zap.Error(err))
			}
		}
	} else {
		runErr = w.run(ctx)
	}

	totals := tr.Totals()
	a.log.Info("workload finished",
		zap.Uint64("calls", w.done.Load()),
		zap.Uint64("host_calls", ticks.Load()),
		zap.Duration("elapsed", time.Since(start)),
		zap.Stringer("tier", engMod.Tier()),
		zap.Duration("interpreted", time.Duration(totals.Interpreted)),
		zap.Duration("compiled", time.Duration(totals.Compiled)))

	status := 0
	if runErr != nil {
		a.log.Error("workload failed", zap.Error(runErr))
		status = 1
		if ctx.Err() != nil {
			status = 130
		}
	}
	rt.Exit(status)
	return nil
}

func loadModule(ctx context.Context, rt *runtime.Runtime, file string, demo bool) (*engine.Module, error) {
	if demo {
		mod, err := rt.LoadModule(ctx, fixture.Counter)
		if err != nil {
			return nil, fmt.Errorf("load demo module: %w", err)
		}
		return mod, nil
	}
	mod, err := rt.LoadFile(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", file, err)
	}
	return mod, nil
}
