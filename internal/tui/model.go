// Package tui is the terminal front end: token activation, the live
// session view and the plan and report forms.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Mansoor88-6/pondok-tracker/internal/activation"
	"Mansoor88-6/pondok-tracker/internal/apperrors"
	"Mansoor88-6/pondok-tracker/internal/backend"
	"Mansoor88-6/pondok-tracker/internal/session"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

type (
	restoredMsg struct {
		cred activation.Credential
		ok   bool
		err  error
	}
	activatedMsg struct {
		cred activation.Credential
		err  error
	}
	commandDoneMsg struct {
		command string
		err     error
	}
	// polledMsg carries the error of the latest reconciliation poll
	polledMsg struct{ err error }
)

// Model is the bubbletea model of the terminal front end
type Model struct {
	ctx        context.Context
	backend    backend.Backend
	controller *activation.Controller
	interval   time.Duration
	logger     *zap.Logger

	// send delivers loop updates to the running program
	send func(tea.Msg)

	cred    activation.Credential
	machine *session.Machine
	loop    *session.Loop

	restoring bool
	busy      bool
	errText   string
	offline   bool

	token         textinput.Model
	plan          textinput.Model
	result        textinput.Model
	obstacle      textinput.Model
	focusObstacle bool
}

// New creates the model. interval is the reconciliation cadence.
func New(ctx context.Context, b backend.Backend, interval time.Duration, logger *zap.Logger) *Model {
	if interval <= 0 {
		interval = session.DefaultInterval
	}

	token := textinput.New()
	token.Placeholder = "activation token"
	token.EchoMode = textinput.EchoPassword
	token.EchoCharacter = '•'
	token.Width = 40
	token.Focus()

	plan := textinput.New()
	plan.Placeholder = "what will you study?"
	plan.CharLimit = 500
	plan.Width = 50

	result := textinput.New()
	result.Placeholder = "what did you get done?"
	result.CharLimit = 1000
	result.Width = 50

	obstacle := textinput.New()
	obstacle.Placeholder = "anything that got in the way (optional)"
	obstacle.CharLimit = 1000
	obstacle.Width = 50

	return &Model{
		ctx:        ctx,
		backend:    b,
		controller: activation.NewController(b, logger),
		interval:   interval,
		logger:     logger,
		restoring:  true,
		token:      token,
		plan:       plan,
		result:     result,
		obstacle:   obstacle,
	}
}

// Run shows the terminal UI until the user quits
func Run(ctx context.Context, b backend.Backend, interval time.Duration, logger *zap.Logger) error {
	m := New(ctx, b, interval, logger)
	// The loop is stopped only after the program exits, so a pending Send
	// cannot block it.
	defer m.stop()

	p := tea.NewProgram(m, tea.WithAltScreen())
	m.send = p.Send
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run terminal UI: %w", err)
	}
	return nil
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.restore())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		}
		if m.machine == nil {
			return m, m.handleActivationKey(msg)
		}
		return m, m.handleTrackingKey(msg)

	case restoredMsg:
		m.restoring = false
		if msg.err != nil {
			m.offline = true
			m.logger.Warn("Failed to restore activation", zap.Error(msg.err))
			return m, nil
		}
		if msg.ok {
			return m, m.activated(msg.cred)
		}
		return m, nil

	case activatedMsg:
		m.busy = false
		if msg.err != nil {
			m.errText = errorText(msg.err)
			return m, nil
		}
		m.token.Reset()
		return m, m.activated(msg.cred)

	case commandDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.errText = errorText(msg.err)
			return m, nil
		}
		m.errText = ""
		return m, m.afterCommand(msg.command)

	case polledMsg:
		m.offline = msg.err != nil
		if m.machine == nil {
			return m, nil
		}
		return m, m.syncForms()
	}

	return m, nil
}

func (m *Model) handleActivationKey(msg tea.KeyMsg) tea.Cmd {
	if msg.Type == tea.KeyEnter {
		if m.busy || m.restoring {
			return nil
		}
		m.busy = true
		m.errText = ""
		token := m.token.Value()
		return func() tea.Msg {
			cred, err := m.controller.Activate(m.ctx, token)
			return activatedMsg{cred: cred, err: err}
		}
	}

	var cmd tea.Cmd
	m.token, cmd = m.token.Update(msg)
	return cmd
}

func (m *Model) handleTrackingKey(msg tea.KeyMsg) tea.Cmd {
	phase := m.machine.Phase()

	if phase.IsAwaitingReport() {
		switch msg.Type {
		case tea.KeyTab, tea.KeyShiftTab:
			m.focusObstacle = !m.focusObstacle
			if m.focusObstacle {
				m.result.Blur()
				return m.obstacle.Focus()
			}
			m.obstacle.Blur()
			return m.result.Focus()
		case tea.KeyEnter:
			result, obstacle := m.result.Value(), m.obstacle.Value()
			return m.command(session.CommandSubmit, func(ctx context.Context) error {
				return m.machine.Submit(ctx, result, &obstacle)
			})
		}
		var cmd tea.Cmd
		if m.focusObstacle {
			m.obstacle, cmd = m.obstacle.Update(msg)
		} else {
			m.result, cmd = m.result.Update(msg)
		}
		return cmd
	}

	status, _ := phase.Status()
	if status == session.StatusStandby {
		if msg.Type == tea.KeyEnter {
			plan := m.plan.Value()
			return m.command(session.CommandStart, func(ctx context.Context) error {
				return m.machine.Start(ctx, plan)
			})
		}
		var cmd tea.Cmd
		m.plan, cmd = m.plan.Update(msg)
		return cmd
	}

	switch msg.String() {
	case "q":
		return tea.Quit
	case "p":
		return m.command(session.CommandPause, m.machine.Pause)
	case "r":
		return m.command(session.CommandResume, m.machine.Resume)
	case "e":
		return m.command(session.CommandEnd, m.machine.End)
	}
	return nil
}

// command runs fn in the background unless another command is in flight
func (m *Model) command(name string, fn func(context.Context) error) tea.Cmd {
	if m.busy {
		return nil
	}
	m.busy = true
	m.errText = ""
	ctx := m.ctx
	return func() tea.Msg {
		return commandDoneMsg{command: name, err: fn(ctx)}
	}
}

func (m *Model) afterCommand(command string) tea.Cmd {
	switch command {
	case session.CommandStart:
		m.plan.Reset()
		m.plan.Blur()
	case session.CommandEnd:
		m.focusObstacle = false
		return m.result.Focus()
	case session.CommandSubmit:
		m.result.Reset()
		m.obstacle.Reset()
		m.result.Blur()
		m.obstacle.Blur()
		m.focusObstacle = false
		return m.plan.Focus()
	}
	return nil
}

func (m *Model) restore() tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		cred, ok, err := m.controller.Restore(ctx)
		return restoredMsg{cred: cred, ok: ok, err: err}
	}
}

func (m *Model) activated(cred activation.Credential) tea.Cmd {
	m.cred = cred
	m.machine = session.NewMachine(m.backend, cred, m.logger)
	m.loop = session.NewLoop(m.machine, m.interval, m.logger)
	m.token.Blur()
	m.errText = ""
	m.loop.Start(m.loopUpdated)
	return tea.Batch(m.plan.Focus(), m.poll())
}

func (m *Model) loopUpdated(lastErr error) {
	if m.send != nil {
		m.send(polledMsg{err: lastErr})
	}
}

// syncForms moves focus to the form matching the phase, which can change
// without a local command when another front end ends or reports a session
func (m *Model) syncForms() tea.Cmd {
	if m.machine.Phase().IsAwaitingReport() {
		if m.result.Focused() || m.obstacle.Focused() {
			return nil
		}
		m.plan.Blur()
		m.focusObstacle = false
		return m.result.Focus()
	}
	if m.result.Focused() || m.obstacle.Focused() {
		m.result.Reset()
		m.obstacle.Reset()
		m.result.Blur()
		m.obstacle.Blur()
		m.focusObstacle = false
		return m.plan.Focus()
	}
	return nil
}

// poll refreshes the machine right away instead of waiting for the first
// loop tick
func (m *Model) poll() tea.Cmd {
	loop, ctx := m.loop, m.ctx
	return func() tea.Msg {
		return polledMsg{err: loop.Tick(ctx)}
	}
}

func (m *Model) stop() {
	if m.loop != nil {
		m.loop.Stop()
	}
}

func errorText(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrEmptyInput):
		return "This field is required"
	case apperrors.IsTransient(err):
		return "Cannot reach the tracking service, please try again"
	default:
		return apperrors.UserMessage(err)
	}
}
