package knell

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/modeclock/clock"
	"github.com/wippyai/modeclock/tracker"
)

func scenario(t *testing.T) (*tracker.Tracker, *tracker.Thread, *clock.Manual) {
	t.Helper()
	c := clock.NewManual(0)
	tr := tracker.New(c)
	th := tr.Attach(tracker.AttachConfig{Name: "worker"})
	c.Set(100)
	th.Transition(tracker.Compiled)
	c.Set(150)
	th.Transition(tracker.Interpreted)
	c.Set(170)
	return tr, th, c
}

func TestSnapshot(t *testing.T) {
	tr, th, _ := scenario(t)
	r := NewReporter(tr)

	rep := r.Snapshot(th, "exit")
	if !rep.HasThread {
		t.Fatal("expected thread info")
	}
	if rep.Tag != "exit" {
		t.Errorf("tag = %q", rep.Tag)
	}
	if rep.Local.Interpreted != 100 || rep.Local.Compiled != 50 {
		t.Errorf("local = %+v, want {100 50}", rep.Local)
	}
	if rep.Global != rep.Local {
		t.Errorf("global = %+v, want %+v", rep.Global, rep.Local)
	}
	if rep.OpenMode != tracker.Interpreted || rep.OpenElapsed != 20 {
		t.Errorf("open = %v/%d, want interpreted/20", rep.OpenMode, rep.OpenElapsed)
	}
	if rep.Thread.Name != "worker" || rep.Thread.Mode != tracker.Interpreted {
		t.Errorf("thread = %+v", rep.Thread)
	}
	if rep.Attached != 1 {
		t.Errorf("attached = %d", rep.Attached)
	}
	if rep.At != 170 {
		t.Errorf("at = %d", rep.At)
	}
}

func TestSnapshotWithoutThread(t *testing.T) {
	tr, _, _ := scenario(t)
	rep := NewReporter(tr).Snapshot(nil, "halt")
	if rep.HasThread {
		t.Error("unexpected thread info")
	}
	if rep.Local != (tracker.Counters{}) {
		t.Errorf("local = %+v, want zero", rep.Local)
	}
	if rep.Global.Interpreted != 100 || rep.Global.Compiled != 50 {
		t.Errorf("global = %+v", rep.Global)
	}
}

func TestKnellDoesNotModifyCounters(t *testing.T) {
	tr, th, _ := scenario(t)
	before, beforeTotals := th.Counters(), tr.Totals()

	var got []Report
	r := NewReporter(tr, SinkFunc(func(rep Report) error {
		got = append(got, rep)
		return nil
	}))
	r.Knell(th, "a")
	r.Knell(th, "b")

	if th.Counters() != before || tr.Totals() != beforeTotals {
		t.Error("knell changed counters")
	}
	if th.Mode() != tracker.Interpreted {
		t.Errorf("mode = %v", th.Mode())
	}
	if len(got) != 2 || got[0].Tag != "a" || got[1].Tag != "b" {
		t.Fatalf("reports = %+v", got)
	}
}

func TestKnellSinkErrorIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	old := Logger()
	SetLogger(zap.New(core))
	defer SetLogger(old)

	tr, th, _ := scenario(t)
	calls := 0
	r := NewReporter(tr,
		SinkFunc(func(Report) error { return errors.New("disk full") }),
		SinkFunc(func(Report) error { calls++; return nil }),
	)
	r.Knell(th, "exit")

	if calls != 1 {
		t.Errorf("second sink called %d times, want 1", calls)
	}
	entries := logs.FilterMessage("knell sink failed").All()
	if len(entries) != 1 {
		t.Fatalf("got %d warnings, want 1", len(entries))
	}
	if entries[0].ContextMap()["tag"] != "exit" {
		t.Errorf("fields = %v", entries[0].ContextMap())
	}
}

func TestKnellContext(t *testing.T) {
	tr, th, _ := scenario(t)
	var got Report
	r := NewReporter(tr, SinkFunc(func(rep Report) error { got = rep; return nil }))

	r.KnellContext(tracker.WithThread(context.Background(), th), "ctx")
	if !got.HasThread || got.Thread.ID != th.ID() {
		t.Errorf("report = %+v", got)
	}

	r.KnellContext(context.Background(), "bare")
	if got.HasThread {
		t.Error("expected no thread for bare context")
	}
}

func TestLogSink(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	tr, th, _ := scenario(t)

	NewReporter(tr, NewLogSink(zap.New(core))).Knell(th, "thread-exit:worker")

	entries := logs.FilterMessage("knell").All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	tests := []struct {
		key  string
		want any
	}{
		{"tag", "thread-exit:worker"},
		{"interpreted", 100 * time.Nanosecond},
		{"compiled", 50 * time.Nanosecond},
		{"total_interpreted", 100 * time.Nanosecond},
		{"total_compiled", 50 * time.Nanosecond},
		{"thread_name", "worker"},
		{"mode", "interpreted"},
		{"threads_attached", int64(1)},
	}
	for _, tt := range tests {
		if got := fields[tt.key]; got != tt.want {
			t.Errorf("%s = %v (%T), want %v", tt.key, got, got, tt.want)
		}
	}
}

func TestLogSinkUsesPackageLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	old := Logger()
	SetLogger(zap.New(core))
	defer SetLogger(old)

	tr, _, _ := scenario(t)
	NewReporter(tr, NewLogSink(nil)).Knell(nil, "halt")

	entries := logs.FilterMessage("knell").All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if _, ok := entries[0].ContextMap()["thread"]; ok {
		t.Error("thread field present for threadless knell")
	}
}

func TestTableSink(t *testing.T) {
	var buf bytes.Buffer
	tr, th, _ := scenario(t)

	NewReporter(tr, NewTableSink(&buf)).Knell(th, "exit")

	out := buf.String()
	for _, want := range []string{`knell "exit"`, "name=worker", "mode=interpreted", "100ns", "50ns", "150ns"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	upper := strings.ToUpper(out)
	for _, want := range []string{"THREAD", "PROCESS"} {
		if !strings.Contains(upper, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTableSinkConcurrent(t *testing.T) {
	var buf bytes.Buffer
	tr := tracker.New(clock.NewManual(0))
	r := NewReporter(tr, NewTableSink(&buf))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			th := tr.NewThread("w")
			defer th.Detach()
			r.Knell(th, "exit")
		}()
	}
	wg.Wait()

	if n := strings.Count(buf.String(), `knell "exit"`); n != 8 {
		t.Errorf("got %d reports, want 8", n)
	}
}

func TestDefault(t *testing.T) {
	old := Default()
	defer SetDefault(old)

	var got []string
	tr := tracker.New(clock.NewManual(0))
	SetDefault(NewReporter(tr, SinkFunc(func(rep Report) error {
		got = append(got, rep.Tag)
		return nil
	})))

	Knell(nil, "halt")
	if len(got) != 1 || got[0] != "halt" {
		t.Errorf("got %v", got)
	}
	if Default().Tracker() != tr {
		t.Error("default reporter tracker mismatch")
	}
}

func TestNewReporterNilTracker(t *testing.T) {
	if NewReporter(nil).Tracker() != tracker.Default() {
		t.Error("nil tracker should fall back to default")
	}
}
