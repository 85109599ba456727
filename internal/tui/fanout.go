// Package tui provides the terminal user interface for chainctl.
package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ryan258/promptchaining-for-5th-graders-sub000/internal/fanout"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#45B7D1"))
	queuedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#96E6A1"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	winnerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFC857"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))
)

// EventMsg carries a backend phase change into the TUI.
type EventMsg fanout.Event

// DoneMsg signals that the whole fan-out finished.
type DoneMsg struct {
	Result *fanout.Result
	Err    error
}

type row struct {
	name  string
	phase fanout.Phase
	err   error
}

// FanoutModel renders live per-backend progress for a fan-out run.
type FanoutModel struct {
	title   string
	spin    spinner.Model
	rows    []row
	result  *fanout.Result
	runErr  error
	done    bool
	quitKey bool
}

// NewFanoutModel creates a model with one row per backend name.
func NewFanoutModel(title string, names []string) *FanoutModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = runningStyle

	rows := make([]row, len(names))
	for i, name := range names {
		rows[i] = row{name: name, phase: fanout.PhaseQueued}
	}

	return &FanoutModel{title: title, spin: s, rows: rows}
}

// Result returns the final fan-out result once the run is done.
func (m *FanoutModel) Result() (*fanout.Result, error) {
	return m.result, m.runErr
}

// Init implements tea.Model.
func (m *FanoutModel) Init() tea.Cmd {
	return m.spin.Tick
}

// Update implements tea.Model.
func (m *FanoutModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitKey = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case EventMsg:
		if msg.Index >= 0 && msg.Index < len(m.rows) {
			m.rows[msg.Index].phase = msg.Phase
			m.rows[msg.Index].err = msg.Err
		}

	case DoneMsg:
		m.done = true
		m.result = msg.Result
		m.runErr = msg.Err
		return m, tea.Quit
	}

	return m, nil
}

// View implements tea.Model.
func (m *FanoutModel) View() string {
	if m.quitKey {
		return "Cancelled.\n"
	}

	out := titleStyle.Render(m.title) + "\n\n"
	for i, r := range m.rows {
		out += "  " + m.rowView(i, r) + "\n"
	}
	out += "\n"

	if m.done {
		out += m.summaryView()
	} else {
		out += queuedStyle.Render("q to cancel") + "\n"
	}
	return out
}

func (m *FanoutModel) rowView(i int, r row) string {
	switch r.phase {
	case fanout.PhaseRunning:
		return fmt.Sprintf("%s %s", m.spin.View(), r.name)
	case fanout.PhaseDone:
		label := doneStyle.Render("✓") + " " + r.name
		if m.result != nil && m.result.TopIndex == i {
			label += "  " + winnerStyle.Render("← top")
		}
		return label
	case fanout.PhaseFailed:
		msg := "failed"
		if r.err != nil {
			msg = r.err.Error()
		}
		return failedStyle.Render("✗") + " " + r.name + "  " + queuedStyle.Render(msg)
	default:
		return queuedStyle.Render("· " + r.name)
	}
}

func (m *FanoutModel) summaryView() string {
	if m.runErr != nil {
		return failedStyle.Render("✗ "+m.runErr.Error()) + "\n"
	}
	if m.result == nil {
		return ""
	}
	if m.result.TopIndex < 0 {
		return failedStyle.Render("✗ every backend failed") + "\n"
	}
	var tokens int64
	for _, u := range m.result.Usage {
		tokens += u.Total()
	}
	return doneStyle.Render(fmt.Sprintf("✓ top: %s (%d tokens total)",
		m.result.Names[m.result.TopIndex], tokens)) + "\n"
}

// NewProgram wraps the model in a bubbletea program. Callers feed it
// EventMsg values via Send() from the fan-out's OnEvent hook.
func NewProgram(title string, names []string) (*tea.Program, *FanoutModel) {
	model := NewFanoutModel(title, names)
	p := tea.NewProgram(model)
	return p, model
}
