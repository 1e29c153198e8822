package knell

import (
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"
)

// Sink receives reports.
type Sink interface {
	Emit(r Report) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(r Report) error

func (f SinkFunc) Emit(r Report) error { return f(r) }

// LogSink writes each report as one structured log entry.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink returns a sink writing to l. A nil l uses the package logger at
// emit time, so SetLogger after construction still takes effect.
func NewLogSink(l *zap.Logger) *LogSink {
	return &LogSink{logger: l}
}

func (s *LogSink) Emit(r Report) error {
	l := s.logger
	if l == nil {
		l = Logger()
	}

	fields := []zap.Field{
		zap.String("tag", r.Tag),
		zap.Duration("interpreted", time.Duration(r.Local.Interpreted)),
		zap.Duration("compiled", time.Duration(r.Local.Compiled)),
		zap.Duration("total_interpreted", time.Duration(r.Global.Interpreted)),
		zap.Duration("total_compiled", time.Duration(r.Global.Compiled)),
		zap.Int64("threads_attached", r.Attached),
	}
	if r.HasThread {
		fields = append(fields,
			zap.Uint64("thread", r.Thread.ID),
			zap.String("thread_name", r.Thread.Name),
			zap.Int("tid", r.Thread.OSThread),
			zap.Stringer("mode", r.Thread.Mode),
			zap.Stringer("open_mode", r.OpenMode),
			zap.Duration("open", time.Duration(r.OpenElapsed)),
		)
	}

	l.Info("knell", fields...)
	return nil
}

// TableSink renders each report as a table. Concurrent reports are written
// one at a time.
type TableSink struct {
	w  io.Writer
	mu sync.Mutex
}

func NewTableSink(w io.Writer) *TableSink {
	return &TableSink{w: w}
}

func (s *TableSink) Emit(r Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	title := "knell " + strconv.Quote(r.Tag)
	if r.HasThread {
		title += fmt.Sprintf(" thread=%d", r.Thread.ID)
		if r.Thread.Name != "" {
			title += " name=" + r.Thread.Name
		}
		if r.Thread.OSThread != 0 {
			title += fmt.Sprintf(" tid=%d", r.Thread.OSThread)
		}
		title += " mode=" + r.Thread.Mode.String()
	}
	if _, err := fmt.Fprintln(s.w, title); err != nil {
		return err
	}

	table := tablewriter.NewWriter(s.w)
	table.Header("Scope", "Interpreted", "Compiled", "Total")
	if r.HasThread {
		if err := table.Append("thread", dur(r.Local.Interpreted), dur(r.Local.Compiled), dur(r.Local.Sum())); err != nil {
			return err
		}
	}
	if err := table.Append("process", dur(r.Global.Interpreted), dur(r.Global.Compiled), dur(r.Global.Sum())); err != nil {
		return err
	}
	return table.Render()
}

func dur(ns uint64) string {
	return time.Duration(ns).String()
}
