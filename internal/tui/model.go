package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/constants"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/models"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/render"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/tui/components/plan"
)

// Phase is where the watched job stands from the view's point of view
type Phase int

const (
	PhaseWatching Phase = iota
	PhaseCompleted
	PhaseFailed
	PhaseCancelled
	// PhaseDetached means the user stopped watching a job that is still running
	PhaseDetached
)

// CancelFunc asks the agent to stop the watched job
type CancelFunc func() error

// Outcome is how the progress view ended
type Outcome struct {
	Phase      Phase
	Completion *models.Completion
	Failure    string
}

const maxBarWidth = 60

type ProgressModel struct {
	jobID      string
	keys       KeyMap
	help       help.Model
	bar        progress.Model
	spinner    spinner.Model
	planView   plan.Model
	view       models.ProgressView
	phase      Phase
	completion *models.Completion
	failure    string
	notice     string
	cancelling bool
	onCancel   CancelFunc
	width      int
	height     int
}

// NewProgressModel creates the view for jobID. onCancel may be nil to disable the cancel key.
func NewProgressModel(jobID string, onCancel CancelFunc) ProgressModel {
	return ProgressModel{
		jobID:    jobID,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(maxBarWidth)),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(warnStyle)),
		planView: plan.New(0, 0),
		view:     models.ProgressView{JobID: jobID, Status: constants.StatusPending},
		onCancel: onCancel,
	}
}

func (m ProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Outcome reports how the view finished; call it on the model returned by Program.Run
func (m ProgressModel) Outcome() Outcome {
	return Outcome{Phase: m.phase, Completion: m.completion, Failure: m.failure}
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.bar.Width = min(maxBarWidth, max(10, msg.Width-8))
		m.planView.SetSize(max(20, msg.Width-4), max(5, msg.Height-6))
		return m, nil

	case spinner.TickMsg:
		if m.phase != PhaseWatching {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progressMsg:
		if m.phase == PhaseWatching {
			m.view = models.ProgressView(msg)
		}
		return m, nil

	case completedMsg:
		if m.phase != PhaseWatching {
			return m, nil
		}
		c := models.Completion(msg)
		m.completion = &c
		m.phase = PhaseCompleted
		m.view.Percent = 100
		if c.Result == nil {
			return m, tea.Quit
		}
		m.planView.SetResult(c.Result)
		return m, nil

	case failedMsg:
		if m.phase != PhaseWatching {
			return m, nil
		}
		m.phase = PhaseFailed
		m.failure = string(msg)
		return m, tea.Quit

	case cancelDoneMsg:
		m.cancelling = false
		if msg.err != nil {
			m.notice = fmt.Sprintf("Cancel failed: %v", msg.err)
			return m, nil
		}
		if m.phase == PhaseWatching {
			m.phase = PhaseCancelled
		}
		return m, tea.Quit

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			if m.phase == PhaseWatching {
				m.phase = PhaseDetached
			}
			return m, tea.Quit
		case key.Matches(msg, m.keys.Cancel):
			if m.phase != PhaseWatching || m.cancelling || m.onCancel == nil {
				return m, nil
			}
			m.cancelling = true
			m.notice = "Cancelling..."
			cancel := m.onCancel
			return m, func() tea.Msg {
				return cancelDoneMsg{err: cancel()}
			}
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
			if m.phase == PhaseCompleted {
				var cmd tea.Cmd
				m.planView, cmd = m.planView.Update(msg)
				return m, cmd
			}
		}
	}

	return m, nil
}

func (m ProgressModel) View() string {
	header := lipgloss.JoinHorizontal(lipgloss.Top,
		headerStyle.Render("Heritage travel planner"),
		jobStyle.Render(m.jobID),
	)

	var body string
	switch m.phase {
	case PhaseWatching:
		body = m.viewWatching()
	case PhaseCompleted:
		if m.completion != nil && m.completion.Result != nil {
			body = m.planView.View()
		} else {
			body = warnStyle.Render(constants.MsgResultMissing)
		}
	case PhaseFailed:
		body = errorStyle.Render(constants.MsgPlanFailedPrefix + m.failure)
	case PhaseCancelled:
		body = warnStyle.Render(constants.MsgPlanCancelled)
	case PhaseDetached:
		body = jobStyle.Render(fmt.Sprintf("Stopped watching. Run '%s resume' to continue.", constants.AppName))
	}

	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		body,
		"",
		m.help.View(m.keys),
	))
}

func (m ProgressModel) viewWatching() string {
	current := m.view.CurrentStep
	if current == "" {
		current = string(m.view.Status)
	}

	lines := []string{
		m.spinner.View() + " " + stepStyle.Render(current),
		m.bar.ViewAs(float64(m.view.Percent) / 100),
	}
	if steps := render.Steps(m.view.Steps); steps != "" {
		lines = append(lines, "", steps)
	}
	if m.notice != "" {
		lines = append(lines, "", warnStyle.Render(m.notice))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
