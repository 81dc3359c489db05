package dialog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/constants"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/logger"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/models"
)

const closeTimeout = 2 * time.Second

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(lipgloss.Color("236")).
			Padding(0, 1).
			Bold(true)

	dangerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Italic(true)

	hintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	docStyle = lipgloss.NewStyle().Padding(1, 2)
)

type (
	formErrorMsg string
	raiseMsg     struct{}
)

// HuhPresenter shows the dialog as a huh form inside a bubbletea program
type HuhPresenter struct {
	opts []tea.ProgramOption

	mu   sync.Mutex
	live map[*huhSurface]struct{}
}

// NewHuhPresenter creates a presenter; opts are passed to every tea.Program
func NewHuhPresenter(opts ...tea.ProgramOption) *HuhPresenter {
	return &HuhPresenter{opts: opts, live: make(map[*huhSurface]struct{})}
}

func (p *HuhPresenter) Present(ctx context.Context, initial models.ConfigurationForm) (Surface, error) {
	events := make(chan Event, 4)
	m := newDialogModel(initial, events)

	opts := append([]tea.ProgramOption{tea.WithContext(ctx)}, p.opts...)
	s := &huhSurface{
		program: tea.NewProgram(m, opts...),
		events:  events,
		exited:  make(chan struct{}),
	}

	p.mu.Lock()
	p.live[s] = struct{}{}
	p.mu.Unlock()

	go func() {
		defer func() {
			p.mu.Lock()
			delete(p.live, s)
			p.mu.Unlock()
			close(s.events)
			close(s.exited)
		}()
		if _, err := s.program.Run(); err != nil && ctx.Err() == nil {
			logger.Warn("Planning dialog program exited with error", "error", err)
		}
	}()

	return s, nil
}

func (p *HuhPresenter) Sweep() int {
	p.mu.Lock()
	stray := make([]*huhSurface, 0, len(p.live))
	for s := range p.live {
		stray = append(stray, s)
	}
	p.mu.Unlock()

	for _, s := range stray {
		s.program.Kill()
		select {
		case <-s.exited:
		case <-time.After(closeTimeout):
			logger.Warn("Stray planning dialog did not exit after kill")
		}
	}
	return len(stray)
}

type huhSurface struct {
	program *tea.Program
	events  chan Event
	exited  chan struct{}
	once    sync.Once
}

func (s *huhSurface) Events() <-chan Event { return s.events }

func (s *huhSurface) Raise() { s.program.Send(raiseMsg{}) }

func (s *huhSurface) ShowError(msg string) { s.program.Send(formErrorMsg(msg)) }

func (s *huhSurface) Close() error {
	var err error
	s.once.Do(func() {
		s.program.Quit()
		select {
		case <-s.exited:
		case <-time.After(closeTimeout):
			s.program.Kill()
			err = fmt.Errorf("planning dialog did not exit within %s", closeTimeout)
		}
	})
	return err
}

type dialogModel struct {
	form      *huh.Form
	values    *models.ConfigurationForm
	confirm   bool
	formError string
	notice    string
	waiting   bool
	events    chan<- Event
}

func newDialogModel(initial models.ConfigurationForm, events chan<- Event) *dialogModel {
	m := &dialogModel{
		values:  &initial,
		confirm: true,
		events:  events,
	}
	m.form = newConfigurationForm(m.values, &m.confirm)
	return m
}

func newConfigurationForm(fm *models.ConfigurationForm, confirm *bool) *huh.Form {
	dayOptions := []huh.Option[string]{huh.NewOption("Select...", "")}
	for _, d := range constants.TravelDayOptions {
		label := fmt.Sprintf("%d days", d)
		if d == 1 {
			label = "1 day"
		}
		dayOptions = append(dayOptions, huh.NewOption(label, fmt.Sprint(d)))
	}

	modeOptions := make([]huh.Option[constants.TravelMode], 0, len(constants.TravelModes))
	for _, mode := range constants.TravelModes {
		modeOptions = append(modeOptions, huh.NewOption(mode.Label(), mode))
	}

	budgetOptions := make([]huh.Option[constants.BudgetRange], 0, len(constants.BudgetRanges))
	for _, b := range constants.BudgetRanges {
		budgetOptions = append(budgetOptions, huh.NewOption(b.Label(), b))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Travel days").
				Options(dayOptions...).
				Value(&fm.TravelDays),
			huh.NewInput().
				Title("Departure location").
				Placeholder("e.g. Xi'an").
				Value(&fm.DepartureLocation),
			huh.NewSelect[constants.TravelMode]().
				Title("Travel mode").
				Options(modeOptions...).
				Value(&fm.TravelMode),
			huh.NewSelect[constants.BudgetRange]().
				Title("Budget").
				Options(budgetOptions...).
				Value(&fm.BudgetRange),
			huh.NewInput().
				Title("Group size").
				Description(fmt.Sprintf("%d-%d people", constants.MinGroupSize, constants.MaxGroupSize)).
				Value(&fm.GroupSize),
			huh.NewText().
				Title("Special requirements").
				Description("One per line").
				Lines(3).
				Value(&fm.SpecialRequirements),
			huh.NewConfirm().
				Title("Generate the travel plan?").
				Affirmative("Generate").
				Negative("Cancel").
				Value(confirm),
		),
	).WithTheme(huh.ThemeDracula())
}

func (m *dialogModel) emit(ev Event) {
	select {
	case m.events <- ev:
	default:
		logger.Warn("Dropped planning dialog event", "kind", ev.Kind)
	}
}

func (m *dialogModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m *dialogModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case formErrorMsg:
		m.formError = string(msg)
		m.waiting = false
		m.confirm = true
		m.form.State = huh.StateNormal
		return m, nil
	case raiseMsg:
		m.notice = "The planning dialog is already open."
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc:
			m.emit(Event{Kind: EventEscape})
			return m, nil
		case tea.KeyCtrlC:
			m.emit(Event{Kind: EventClose})
			return m, nil
		}
	}

	if m.waiting {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.waiting = true
		if m.confirm {
			m.emit(Event{Kind: EventSubmit, Form: *m.values})
		} else {
			m.emit(Event{Kind: EventCancel})
		}
	case huh.StateAborted:
		m.waiting = true
		m.emit(Event{Kind: EventCancel})
	}
	return m, cmd
}

func (m *dialogModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Plan a heritage trip"))
	b.WriteString("\n\n")
	b.WriteString(m.form.View())
	if m.formError != "" {
		b.WriteString("\n")
		b.WriteString(dangerStyle.Render(m.formError))
	}
	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(warningStyle.Render(m.notice))
	}
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("esc: dismiss • ctrl+c: close"))
	return docStyle.Render(b.String())
}
