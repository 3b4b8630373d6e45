package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tourlab/internal/opt"
)

const refreshInterval = 100 * time.Millisecond

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(16)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	doneStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	warnStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// stopper is the part of opt.Algorithm the view drives.
type stopper interface {
	Stop()
	Runtime() time.Duration
}

type eventMsg opt.Event

type closedMsg struct{}

type tickMsg time.Time

// model renders one run: a progress bar, the best distance so far, the
// number of interim results and the accumulated runtime.
type model struct {
	alg    stopper
	events <-chan opt.Event
	name   string
	points int

	bar      progress.Model
	progress int
	distance float64
	results  int
	runtime  time.Duration
	summary  *opt.Summary
	stopping bool
	quitting bool
}

func newModel(alg stopper, events <-chan opt.Event, name string, points int) model {
	return model{
		alg:    alg,
		events: events,
		name:   name,
		points: points,
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.listen(), tick())
}

func (m model) listen() tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-m.events
		if !ok {
			return closedMsg{}
		}
		return eventMsg(evt)
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = max(10, min(msg.Width-20, 60))
	case tea.KeyMsg:
		switch msg.String() {
		case "s":
			if m.summary == nil {
				m.stopping = true
				m.alg.Stop()
			}
		case "q", "ctrl+c", "esc":
			m.quitting = true
			if m.summary != nil {
				return m, tea.Quit
			}
			// quit once the run reports its summary
			m.stopping = true
			m.alg.Stop()
		}
	case eventMsg:
		switch msg.Kind {
		case opt.EventResult:
			m.distance = msg.Distance
			m.results++
		case opt.EventProgress:
			m.progress = msg.Progress
		case opt.EventFinished:
			m.summary = msg.Summary
			m.distance = msg.Summary.Distance
			m.runtime = msg.Summary.Runtime
			if m.quitting {
				return m, tea.Quit
			}
		}
		return m, m.listen()
	case closedMsg:
		if m.quitting {
			return m, tea.Quit
		}
	case tickMsg:
		if m.summary == nil {
			m.runtime = m.alg.Runtime()
			return m, tick()
		}
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("tourctl · "+m.name) + "\n\n")
	b.WriteString(m.bar.ViewAs(float64(m.progress)/100) + "\n\n")
	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Points", fmt.Sprint(m.points))
	row("Distance", fmt.Sprintf("%.3f", m.distance))
	row("Interim results", fmt.Sprint(m.results))
	row("Runtime", m.runtime.Truncate(time.Millisecond).String())
	b.WriteString("\n")
	switch {
	case m.summary != nil && m.summary.Err != nil:
		b.WriteString(warnStyle.Render("failed: "+m.summary.Err.Error()) + "\n")
	case m.summary != nil && m.summary.Cancelled:
		b.WriteString(warnStyle.Render("stopped") + "\n")
	case m.summary != nil:
		b.WriteString(doneStyle.Render("finished") + "\n")
	case m.stopping:
		b.WriteString(warnStyle.Render("stopping…") + "\n")
	}
	if m.summary == nil {
		b.WriteString(helpStyle.Render("s stop · q quit"))
	} else {
		b.WriteString(helpStyle.Render("q quit"))
	}
	return b.String() + "\n"
}
