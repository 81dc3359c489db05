package tui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/models"
)

// SendFunc delivers one message to the agent and returns its answer
type SendFunc func(message string) (*models.ChatReply, error)

type chatReplyMsg struct {
	reply *models.ChatReply
	err   error
}

// ChatKeyMap binds the keys of the plan editing view
type ChatKeyMap struct {
	Send     key.Binding
	Quit     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
}

func (k ChatKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.Quit}
}

func (k ChatKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Send, k.Quit}, {k.PageUp, k.PageDown}}
}

func DefaultChatKeyMap() ChatKeyMap {
	return ChatKeyMap{
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Quit: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "finish editing"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdown", "scroll down"),
		),
	}
}

// ChatModel is a conversation with the agent about one finished plan
type ChatModel struct {
	title    string
	send     SendFunc
	keys     ChatKeyMap
	help     help.Model
	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model
	history  []models.ChatMessage
	waiting  bool
	notice   string
	updated  json.RawMessage
	changes  int
	width    int
}

func NewChatModel(title string, send SendFunc) ChatModel {
	in := textinput.New()
	in.Placeholder = "Ask about the plan, or try 'title: ...' / 'tip: ...'"
	in.CharLimit = 2000
	in.Focus()

	return ChatModel{
		title:    title,
		send:     send,
		keys:     DefaultChatKeyMap(),
		help:     help.New(),
		input:    in,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(warnStyle)),
		viewport: viewport.New(76, 12),
		width:    76,
	}
}

func (m ChatModel) Init() tea.Cmd {
	return textinput.Blink
}

// Updated returns the latest edited plan, or nil when nothing changed
func (m ChatModel) Updated() json.RawMessage {
	return m.updated
}

// Changes counts the replies that modified the plan
func (m ChatModel) Changes() int {
	return m.changes
}

// History returns the conversation shown in the view
func (m ChatModel) History() []models.ChatMessage {
	return m.history
}

func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = max(20, msg.Width-4)
		m.help.Width = msg.Width
		m.input.Width = max(10, m.width-4)
		m.viewport.Width = m.width
		m.viewport.Height = max(3, msg.Height-10)
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case chatReplyMsg:
		m.waiting = false
		if msg.err != nil {
			m.notice = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}
		m.notice = ""
		m.history = append(m.history, models.ChatMessage{Role: models.RoleAssistant, Content: msg.reply.Response})
		if msg.reply.ChangesMade && len(msg.reply.UpdatedPlan) > 0 {
			m.updated = msg.reply.UpdatedPlan
			m.changes++
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		case key.Matches(msg, m.keys.Send):
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.waiting {
				return m, nil
			}
			m.input.Reset()
			m.history = append(m.history, models.ChatMessage{Role: models.RoleUser, Content: text})
			m.waiting = true
			m.notice = ""
			m.refresh()
			send := m.send
			return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
				reply, err := send(text)
				return chatReplyMsg{reply: reply, err: err}
			})
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *ChatModel) refresh() {
	lines := make([]string, 0, len(m.history))
	wrap := lipgloss.NewStyle().Width(m.width)
	for _, turn := range m.history {
		label := agentLabelStyle.Render("Agent")
		if turn.Role == models.RoleUser {
			label = userLabelStyle.Render("You")
		}
		lines = append(lines, wrap.Render(label+"  "+turn.Content), "")
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
	m.viewport.GotoBottom()
}

func (m ChatModel) View() string {
	header := lipgloss.JoinHorizontal(lipgloss.Top,
		headerStyle.Render("Edit plan"),
		jobStyle.Render(m.title),
	)

	status := ""
	switch {
	case m.waiting:
		status = m.spinner.View() + " " + stepStyle.Render("Waiting for the agent...")
	case m.notice != "":
		status = errorStyle.Render(m.notice)
	case m.changes > 0:
		status = warnStyle.Render(fmt.Sprintf("%d change(s) will be saved when you finish", m.changes))
	}

	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		m.viewport.View(),
		status,
		m.input.View(),
		"",
		m.help.View(m.keys),
	))
}
