package runtime

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/wippyai/modeclock/clock"
	"github.com/wippyai/modeclock/config"
	"github.com/wippyai/modeclock/engine"
	"github.com/wippyai/modeclock/errors"
	"github.com/wippyai/modeclock/internal/fixture"
	"github.com/wippyai/modeclock/knell"
	"github.com/wippyai/modeclock/tracker"
)

type captured struct {
	mu      sync.Mutex
	reports []knell.Report
}

func (c *captured) Emit(r knell.Report) error {
	c.mu.Lock()
	c.reports = append(c.reports, r)
	c.mu.Unlock()
	return nil
}

func (c *captured) tags() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	tags := make([]string, len(c.reports))
	for i, r := range c.reports {
		tags[i] = r.Tag
	}
	return tags
}

func newRuntime(t *testing.T, cfg *config.Config, opts ...Option) (*Runtime, *clock.Manual, *captured) {
	t.Helper()
	c := clock.NewManual(0)
	sink := &captured{}
	opts = append([]Option{
		WithTracker(tracker.New(c)),
		WithSinks(sink),
		WithHalt(func(int) {}),
	}, opts...)

	rt, err := New(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { rt.Close(context.Background()) })
	return rt, c, sink
}

func TestNew(t *testing.T) {
	rt, _, _ := newRuntime(t, nil)
	if rt.Engine().Config().InitialTier != engine.TierInterpreter {
		t.Errorf("initial tier = %v", rt.Engine().Config().InitialTier)
	}
	if rt.Engine().Config().PromoteAfter != 1000 {
		t.Errorf("promote after = %d", rt.Engine().Config().PromoteAfter)
	}
	if rt.Reporter().Tracker() != rt.Tracker() {
		t.Error("reporter reads a different tracker")
	}

	bad := config.Default()
	bad.Engine.InitialTier = "jit"
	if _, err := New(context.Background(), bad); !stderrors.Is(err, &errors.Error{Phase: errors.PhaseConfig, Kind: errors.KindInvalidInput}) {
		t.Errorf("invalid config err = %v", err)
	}
}

func TestAttachDetach(t *testing.T) {
	rt, c, sink := newRuntime(t, nil)

	ctx, th := rt.Attach(context.Background(), "worker")
	if tracker.FromContext(ctx) != th {
		t.Fatal("context does not carry the thread")
	}
	if th.Mode() != tracker.Interpreted || rt.Tracker().Attached() != 1 {
		t.Fatalf("mode = %v, attached = %d", th.Mode(), rt.Tracker().Attached())
	}

	c.Set(100)
	th.Transition(tracker.Compiled)
	c.Set(150)
	th.Transition(tracker.Interpreted)

	rt.Detach(ctx)
	rt.Detach(ctx)
	rt.Detach(context.Background())

	if got := sink.tags(); len(got) != 1 || got[0] != "thread-exit:worker" {
		t.Fatalf("tags = %v", got)
	}
	rep := sink.reports[0]
	want := tracker.Counters{Interpreted: 100, Compiled: 50}
	if rep.Local != want || rep.Global != want {
		t.Errorf("report local=%+v global=%+v, want %+v", rep.Local, rep.Global, want)
	}
	if !th.Detached() || rt.Tracker().Attached() != 0 {
		t.Error("thread still attached")
	}
}

func TestWorkloadAccounting(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.InitialTier = config.TierCompiler
	rt, c, sink := newRuntime(t, cfg)

	ticks := 0
	if err := rt.RegisterFunc(fixture.ImportModule, fixture.ImportTick, func(ctx context.Context) {
		ticks++
		if m := tracker.FromContext(ctx).Mode(); m != tracker.Native {
			t.Errorf("host mode = %v", m)
		}
		c.Advance(7)
	}); err != nil {
		t.Fatal(err)
	}

	ctx, th := rt.Attach(context.Background(), "w")
	mod, err := rt.LoadModule(ctx, fixture.Counter)
	if err != nil {
		t.Fatal(err)
	}
	inst, err := mod.Instantiate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer inst.Close(ctx)

	for i := 0; i < 3; i++ {
		if _, err := inst.Call(ctx, fixture.ExportCallHost, uint64(i)); err != nil {
			t.Fatal(err)
		}
	}
	if ticks != 3 {
		t.Errorf("ticks = %d", ticks)
	}
	if got := th.Counters(); got.Compiled != 21 || got.Interpreted != 0 {
		t.Errorf("counters = %+v, want compiled=21", got)
	}

	rt.Detach(ctx)
	if len(sink.reports) != 1 || sink.reports[0].Global.Compiled != 21 {
		t.Errorf("reports = %+v", sink.reports)
	}
}

func TestExit(t *testing.T) {
	var status []int
	rt, _, sink := newRuntime(t, nil, WithHalt(func(s int) { status = append(status, s) }))

	hookRan := false
	if err := rt.Shutdown().Add(0, false, func() { hookRan = true }); err != nil {
		t.Fatal(err)
	}
	if err := rt.Shutdown().Add(HookEngineClose, false, func() {}); err == nil {
		t.Error("engine close slot should be taken")
	}

	rt.Exit(3)

	if !hookRan {
		t.Error("hook did not run")
	}
	if len(status) != 1 || status[0] != 3 {
		t.Errorf("halt status = %v", status)
	}
	if got := sink.tags(); len(got) != 1 || got[0] != "halt" {
		t.Errorf("tags = %v", got)
	}
	if sink.reports[0].HasThread {
		t.Error("halt report should not carry a thread")
	}
	if _, err := rt.LoadModule(context.Background(), fixture.Counter); !stderrors.Is(err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindUnavailable}) {
		t.Errorf("engine not closed by shutdown: %v", err)
	}
}

func TestFinalizersOnExit(t *testing.T) {
	ran := false
	rt, _, _ := newRuntime(t, nil, WithFinalizers(func() { ran = true }))
	rt.Shutdown().SetRunFinalizersOnExit(true)
	rt.Exit(0)
	if !ran {
		t.Error("finalizers did not run")
	}
}

func TestLoadFile(t *testing.T) {
	rt, _, _ := newRuntime(t, nil)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "counter.wasm")
	if err := os.WriteFile(path, fixture.Counter, 0o600); err != nil {
		t.Fatal(err)
	}
	mod, err := rt.LoadFile(ctx, path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(mod.ExportNames()) != 3 {
		t.Errorf("exports = %v", mod.ExportNames())
	}

	_, err = rt.LoadFile(ctx, filepath.Join(t.TempDir(), "missing.wasm"))
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindNotFound}) {
		t.Errorf("missing file err = %v", err)
	}
}

func TestPinnedThreads(t *testing.T) {
	rt, _, _ := newRuntime(t, nil, WithPinnedThreads(true))

	done := make(chan struct{})
	go func() {
		defer close(done)
		ctx, th := rt.Attach(context.Background(), "pinned")
		defer rt.Detach(ctx)
		if th.OSThread() < 0 {
			t.Errorf("tid = %d", th.OSThread())
		}
	}()
	<-done
}
