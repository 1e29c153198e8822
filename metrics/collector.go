// Package metrics exposes tracker totals to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wippyai/modeclock/tracker"
)

const namespace = "modeclock"

// Collector implements prometheus.Collector over a tracker. Values are read
// from the tracker's atomics on each scrape.
type Collector struct {
	tracker *tracker.Tracker

	modeSecondsDesc *prometheus.Desc
	attachedDesc    *prometheus.Desc
}

// NewCollector creates a collector for tr. A nil tr means tracker.Default().
func NewCollector(tr *tracker.Tracker) *Collector {
	if tr == nil {
		tr = tracker.Default()
	}
	return &Collector{
		tracker: tr,
		modeSecondsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "mode_seconds_total"),
			"Time spent executing in each mode, summed over closed intervals of all threads.",
			[]string{"mode"}, nil,
		),
		attachedDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "threads_attached"),
			"Number of threads currently attached to the tracker.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.modeSecondsDesc
	ch <- c.attachedDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	totals := c.tracker.Totals()
	for _, m := range []tracker.Mode{tracker.Interpreted, tracker.Compiled} {
		ch <- prometheus.MustNewConstMetric(
			c.modeSecondsDesc,
			prometheus.CounterValue,
			float64(totals.Get(m))/1e9,
			m.String(),
		)
	}
	ch <- prometheus.MustNewConstMetric(
		c.attachedDesc,
		prometheus.GaugeValue,
		float64(c.tracker.Attached()),
	)
}

// Handler serves the metrics gathered by g. A nil g means the default
// gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Register adds a collector for tr to reg and returns it.
func Register(reg prometheus.Registerer, tr *tracker.Tracker) (*Collector, error) {
	c := NewCollector(tr)
	if err := reg.Register(c); err != nil {
		return nil, err
	}
	return c, nil
}
