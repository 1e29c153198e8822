package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/wippyai/modeclock/config"
	"github.com/wippyai/modeclock/knell"
)

// heldWriter buffers writes while held and flushes them on release. Table
// reports are held while the interactive view owns the terminal.
type heldWriter struct {
	mu   sync.Mutex
	w    io.Writer
	buf  bytes.Buffer
	held bool
}

func (h *heldWriter) Write(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.held {
		return h.buf.Write(p)
	}
	return h.w.Write(p)
}

func (h *heldWriter) hold() {
	h.mu.Lock()
	h.held = true
	h.mu.Unlock()
}

func (h *heldWriter) release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.held = false
	_, err := h.buf.WriteTo(h.w)
	return err
}

func openOutput(name string) (io.Writer, error) {
	switch name {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	default:
		f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open report output: %w", err)
		}
		return f, nil
	}
}

// reportSinks builds the knell sinks for cfg. The returned writer is nil
// unless the table sink is used.
func reportSinks(cfg config.ReportConfig) ([]knell.Sink, *heldWriter, error) {
	switch cfg.Format {
	case config.ReportNone:
		return []knell.Sink{knell.SinkFunc(func(knell.Report) error { return nil })}, nil, nil
	case config.ReportLog:
		return []knell.Sink{knell.NewLogSink(nil)}, nil, nil
	default:
		w, err := openOutput(cfg.Output)
		if err != nil {
			return nil, nil, err
		}
		hw := &heldWriter{w: w}
		return []knell.Sink{knell.NewTableSink(hw)}, hw, nil
	}
}
