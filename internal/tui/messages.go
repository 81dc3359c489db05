package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/models"
)

type progressMsg models.ProgressView

type completedMsg models.Completion

type failedMsg string

type cancelDoneMsg struct{ err error }

// Owner forwards tracker callbacks into a running bubbletea program
type Owner struct {
	send func(tea.Msg)
}

// NewOwner wraps a program's Send function, usually (*tea.Program).Send
func NewOwner(send func(tea.Msg)) *Owner {
	return &Owner{send: send}
}

func (o *Owner) OnProgress(view models.ProgressView) {
	o.send(progressMsg(view))
}

func (o *Owner) OnCompleted(c models.Completion) {
	o.send(completedMsg(c))
}

func (o *Owner) OnFailed(message string) {
	o.send(failedMsg(message))
}
