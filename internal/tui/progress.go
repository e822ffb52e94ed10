// Package tui renders run progress and outcome reports for the
// terminal.
package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"shelfmark/internal/organizer"
)

var (
	phaseStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")).
			Bold(true)

	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))
)

type progressMsg organizer.Progress

type doneMsg struct{}

// runModel is the live view of an in-flight reorganization run.
type runModel struct {
	spinner  spinner.Model
	bar      progress.Model
	current  organizer.Progress
	quitting bool
}

func newRunModel() runModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))

	return runModel{
		spinner: s,
		bar:     progress.New(progress.WithDefaultGradient()),
		current: organizer.Progress{Phase: organizer.PhaseScanning},
	}
}

// Init implements tea.Model.
func (m runModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// The pipeline exposes no mid-run cancellation; ctrl+c only
		// detaches the view, the run finishes in the background.
		if msg.Type == tea.KeyCtrlC {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case progressMsg:
		m.current = organizer.Progress(msg)
		return m, nil

	case doneMsg:
		m.quitting = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m runModel) View() string {
	if m.quitting {
		return ""
	}

	line := m.spinner.View() + " " + phaseStyle.Render(phaseLabel(m.current.Phase))

	switch m.current.Phase {
	case organizer.PhaseClassifying:
		if m.current.TotalBatches > 0 {
			ratio := float64(m.current.Batch) / float64(m.current.TotalBatches)
			line += fmt.Sprintf("  batch %d/%d\n%s", m.current.Batch, m.current.TotalBatches, m.bar.ViewAs(ratio))
		}
	case organizer.PhaseMutating:
		if m.current.TotalMoves > 0 {
			ratio := float64(m.current.Moved) / float64(m.current.TotalMoves)
			line += fmt.Sprintf("  %d/%d moved\n%s", m.current.Moved, m.current.TotalMoves, m.bar.ViewAs(ratio))
		}
	default:
		if m.current.Message != "" {
			line += "  " + detailStyle.Render(m.current.Message)
		}
	}

	return line + "\n"
}

func phaseLabel(phase organizer.Phase) string {
	switch phase {
	case organizer.PhaseScanning:
		return "Scanning bookmarks"
	case organizer.PhaseDedup:
		return "Removing duplicates"
	case organizer.PhaseClassifying:
		return "Classifying"
	case organizer.PhaseMutating:
		return "Moving bookmarks"
	case organizer.PhasePruning:
		return "Pruning empty folders"
	case organizer.PhaseDone:
		return "Done"
	}
	return string(phase)
}

// RunWithProgress executes run while showing a live progress view. The
// run always finishes even if the user detaches the view early.
func RunWithProgress(run func(onProgress organizer.ProgressFunc) (*organizer.Report, error)) (*organizer.Report, error) {
	p := tea.NewProgram(newRunModel())

	var report *organizer.Report
	var runErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		report, runErr = run(func(pr organizer.Progress) {
			p.Send(progressMsg(pr))
		})
		p.Send(doneMsg{})
	}()

	if _, err := p.Run(); err != nil {
		<-done
		if runErr != nil {
			return report, runErr
		}
		return report, err
	}
	<-done
	return report, runErr
}
