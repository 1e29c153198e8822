package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB")).
			Width(14)

	interpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD866"))

	compiledStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const refreshInterval = 100 * time.Millisecond

type tickMsg time.Time

type doneMsg struct {
	err error
}

type progressModel struct {
	w      *workload
	source string
	cancel context.CancelFunc
	bar    progress.Model
	start  time.Time
	err    error
	done   bool
}

func newProgressModel(w *workload, source string, cancel context.CancelFunc) *progressModel {
	return &progressModel{
		w:      w,
		source: source,
		cancel: cancel,
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(50)),
		start:  time.Now(),
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *progressModel) Init() tea.Cmd {
	return tick()
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.cancel()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.bar.Width = min(msg.Width-4, 60)

	case tickMsg:
		if m.done {
			return m, nil
		}
		return m, tick()

	case doneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m *progressModel) fraction() float64 {
	total := m.w.total()
	if total == 0 {
		return 1
	}
	return float64(m.w.done.Load()) / float64(total)
}

func (m *progressModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("modeclock"))
	b.WriteString(" ")
	b.WriteString(m.source)
	b.WriteString("\n\n")

	b.WriteString(m.bar.ViewAs(m.fraction()))
	b.WriteString("\n\n")

	tr := m.w.rt.Tracker()
	totals := tr.Totals()
	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}
	row("calls", fmt.Sprintf("%d / %d", m.w.done.Load(), m.w.total()))
	row("function", m.w.fn)
	row("module tier", m.w.mod.Tier().String())
	row("threads", fmt.Sprintf("%d attached", tr.Attached()))
	row("interpreted", interpStyle.Render(time.Duration(totals.Interpreted).String()))
	row("compiled", compiledStyle.Render(time.Duration(totals.Compiled).String()))
	row("elapsed", time.Since(m.start).Round(time.Millisecond).String())

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("q stop"))
	b.WriteString("\n")
	return b.String()
}

// runInteractive runs w while rendering live totals. Quitting the view
// cancels the workers.
func runInteractive(ctx context.Context, w *workload, source string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newProgressModel(w, source, cancel))

	result := make(chan error, 1)
	go func() {
		err := w.run(ctx)
		result <- err
		p.Send(doneMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-result
		return fmt.Errorf("interactive view: %w", err)
	}
	return <-result
}
