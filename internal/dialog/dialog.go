package dialog

import (
	"context"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/models"
)

// EventKind identifies how the user interacted with the dialog
type EventKind int

const (
	EventSubmit EventKind = iota
	EventCancel
	EventClose
	EventEscape
)

func (k EventKind) String() string {
	switch k {
	case EventSubmit:
		return "submit"
	case EventCancel:
		return "cancel"
	case EventClose:
		return "close"
	case EventEscape:
		return "escape"
	default:
		return "unknown"
	}
}

// Event is emitted by a Surface. Form is only set for EventSubmit.
type Event struct {
	Kind EventKind
	Form models.ConfigurationForm
}

// Surface is one presented dialog
type Surface interface {
	// Events delivers user actions. The channel is closed when the surface goes away.
	Events() <-chan Event
	// Raise brings the dialog to the user's attention
	Raise()
	// ShowError displays a validation message and keeps the dialog editable
	ShowError(msg string)
	// Close removes the dialog. Calling it again is a no-op.
	Close() error
}

// Presenter creates surfaces
type Presenter interface {
	Present(ctx context.Context, initial models.ConfigurationForm) (Surface, error)
	// Sweep removes surfaces left behind by an earlier failed teardown and reports how many
	Sweep() int
}
