package main

import (
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/wippyai/modeclock/config"
	"github.com/wippyai/modeclock/metrics"
	"github.com/wippyai/modeclock/tracker"
)

// startMetrics serves the tracker collector plus Go and process metrics.
func startMetrics(cfg config.MetricsConfig, tr *tracker.Tracker, log *zap.Logger) (*http.Server, error) {
	reg := prometheus.NewRegistry()
	if _, err := metrics.Register(reg, tr); err != nil {
		return nil, fmt.Errorf("register collector: %w", err)
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, metrics.Handler(reg))

	ln, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", cfg.ListenAddress, err)
	}

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", zap.Error(err))
		}
	}()

	log.Info("metrics listening",
		zap.String("address", ln.Addr().String()),
		zap.String("path", cfg.Path))
	return srv, nil
}
