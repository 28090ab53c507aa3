package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type pollStatusMsg struct {
	status   string
	progress float64
}

type pollDoneMsg struct {
	err error
}

type pollSpinnerModel struct {
	spinner  spinner.Model
	label    string
	status   string
	progress float64
	start    tea.Cmd
	err      error
	done     bool
}

func newPollSpinnerModel(label string, start tea.Cmd) pollSpinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return pollSpinnerModel{
		spinner: s,
		label:   label,
		start:   start,
	}
}

func (m pollSpinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.start)
}

func (m pollSpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case pollStatusMsg:
		m.status = msg.status
		m.progress = msg.progress
		return m, nil
	case pollDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m pollSpinnerModel) View() string {
	if m.done {
		return ""
	}

	if m.status == "" {
		return fmt.Sprintf("%s %s", m.spinner.View(), m.label)
	}

	return fmt.Sprintf("%s %s: %s (%.0f%%)", m.spinner.View(), m.label, m.status, m.progress)
}

// runPollSpinner renders a spinner while run executes. The callback it hands
// to run may be called from another goroutine to push status updates.
func runPollSpinner(ctx context.Context, output io.Writer, label string, run func(context.Context, func(status string, progress float64)) error) error {
	var p *tea.Program

	startCmd := func() tea.Msg {
		onStatus := func(status string, progress float64) {
			p.Send(pollStatusMsg{status: status, progress: progress})
		}
		return pollDoneMsg{err: run(ctx, onStatus)}
	}

	p = tea.NewProgram(
		newPollSpinnerModel(label, startCmd),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	result, ok := finalModel.(pollSpinnerModel)
	if !ok {
		return fmt.Errorf("unexpected final spinner model type %T", finalModel)
	}

	return result.err
}
