package dialog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/constants"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/logger"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/models"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/validation"
)

// Controller presents the planning configuration dialog, at most one at a time
type Controller struct {
	presenter Presenter
	validator *validation.Validator

	mu       sync.Mutex
	open     bool
	current  Surface
	disposer []func()
}

// NewController creates a controller for the given presenter
func NewController(p Presenter, v *validation.Validator) *Controller {
	if v == nil {
		v = validation.New()
	}
	return &Controller{presenter: p, validator: v}
}

// OnDispose registers fn to run whenever an open dialog is torn down
func (c *Controller) OnDispose(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disposer = append(c.disposer, fn)
}

// IsOpen reports whether a dialog is currently presented
func (c *Controller) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Open presents the dialog and blocks until the user finishes with it.
// A nil configuration with a nil error means the user cancelled, or that a dialog
// was already open, in which case the existing one is only raised.
func (c *Controller) Open(ctx context.Context) (*models.PlanningConfiguration, error) {
	c.mu.Lock()
	if c.open {
		existing := c.current
		c.mu.Unlock()
		if existing != nil {
			existing.Raise()
		}
		logger.Debug("Planning dialog already open, raising it")
		return nil, nil
	}
	if n := c.presenter.Sweep(); n > 0 {
		logger.Warn("Removed stray planning dialogs", "count", n)
	}
	c.open = true
	c.mu.Unlock()

	surface, err := c.presenter.Present(ctx, models.DefaultConfigurationForm())
	if err != nil {
		c.release(nil)
		return nil, fmt.Errorf("failed to present planning dialog: %w", err)
	}

	s := &session{ctrl: c, surface: surface}
	c.mu.Lock()
	c.current = surface
	c.mu.Unlock()

	return s.run(ctx)
}

// release clears the singleton flag if surface is still the current one
func (c *Controller) release(surface Surface) []func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == surface {
		c.open = false
		c.current = nil
	}
	return append([]func(){}, c.disposer...)
}

type session struct {
	ctrl    *Controller
	surface Surface

	once   sync.Once
	result *models.PlanningConfiguration
}

func (s *session) run(ctx context.Context) (*models.PlanningConfiguration, error) {
	events := s.surface.Events()
	for {
		select {
		case <-ctx.Done():
			s.teardown(nil, "context")
			return nil, ctx.Err()

		case ev, ok := <-events:
			if !ok {
				s.teardown(nil, "surface closed")
				return s.result, nil
			}

			switch ev.Kind {
			case EventSubmit:
				cfg, err := s.ctrl.validator.ValidateForm(ev.Form)
				if err != nil {
					msg := constants.MsgSubmissionError
					var fe *validation.FormError
					if errors.As(err, &fe) {
						msg = fe.Message
					}
					logger.Debug("Planning dialog validation failed", "error", err)
					s.surface.ShowError(msg)
					continue
				}
				s.teardown(cfg, ev.Kind.String())
				return s.result, nil

			case EventCancel, EventClose, EventEscape:
				s.teardown(nil, ev.Kind.String())
				return s.result, nil
			}
		}
	}
}

// teardown delivers the result, closes the surface, releases the singleton flag
// and runs dispose hooks. Only the first call has any effect.
func (s *session) teardown(cfg *models.PlanningConfiguration, reason string) {
	s.once.Do(func() {
		s.result = cfg

		if err := s.surface.Close(); err != nil {
			logger.Warn("Failed to close planning dialog", "reason", reason, "error", err)
		}

		for _, fn := range s.ctrl.release(s.surface) {
			fn()
		}
		logger.Debug("Planning dialog closed", "reason", reason, "submitted", cfg != nil)
	})
}
