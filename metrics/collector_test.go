package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/wippyai/modeclock/clock"
	"github.com/wippyai/modeclock/tracker"
)

func populated(t *testing.T) *tracker.Tracker {
	t.Helper()
	c := clock.NewManual(0)
	tr := tracker.New(c)
	th := tr.Attach(tracker.AttachConfig{Name: "w"})
	c.Set(1_500_000_000)
	th.Transition(tracker.Compiled)
	c.Set(2_000_000_000)
	th.Transition(tracker.Interpreted)
	return tr
}

func TestCollector(t *testing.T) {
	tr := populated(t)
	c := NewCollector(tr)

	expected := `
# HELP modeclock_mode_seconds_total Time spent executing in each mode, summed over closed intervals of all threads.
# TYPE modeclock_mode_seconds_total counter
modeclock_mode_seconds_total{mode="compiled"} 0.5
modeclock_mode_seconds_total{mode="interpreted"} 1.5
# HELP modeclock_threads_attached Number of threads currently attached to the tracker.
# TYPE modeclock_threads_attached gauge
modeclock_threads_attached 1
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected)); err != nil {
		t.Fatal(err)
	}
	if n := testutil.CollectAndCount(c); n != 3 {
		t.Errorf("metric count = %d, want 3", n)
	}
}

func TestCollectorTracksDetach(t *testing.T) {
	tr := tracker.New(clock.NewManual(0))
	c := NewCollector(tr)
	th := tr.NewThread("w")

	const head = `
# HELP modeclock_threads_attached Number of threads currently attached to the tracker.
# TYPE modeclock_threads_attached gauge
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(head+"modeclock_threads_attached 1\n"), "modeclock_threads_attached"); err != nil {
		t.Error(err)
	}
	th.Detach()
	if err := testutil.CollectAndCompare(c, strings.NewReader(head+"modeclock_threads_attached 0\n"), "modeclock_threads_attached"); err != nil {
		t.Error(err)
	}
}

func TestRegisterAndHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := Register(reg, populated(t)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := Register(reg, populated(t)); err == nil {
		t.Error("duplicate registration accepted")
	}

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), `modeclock_mode_seconds_total{mode="interpreted"} 1.5`) {
		t.Errorf("body missing interpreted total:\n%s", body)
	}
}
