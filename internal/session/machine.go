package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"Mansoor88-6/pondok-tracker/internal/activation"
	"Mansoor88-6/pondok-tracker/internal/apperrors"
	"Mansoor88-6/pondok-tracker/internal/backend"
	"Mansoor88-6/pondok-tracker/internal/metrics"
	"Mansoor88-6/pondok-tracker/internal/models"
	"Mansoor88-6/pondok-tracker/internal/usage"

	"go.uber.org/zap"
)

// Command names used in errors, logs and metrics
const (
	CommandStart  = "start"
	CommandPause  = "pause"
	CommandResume = "resume"
	CommandEnd    = "end"
	CommandSubmit = "submit"
)

// Machine owns the local session state and enforces legal transitions.
// Commands are serialized with each other; reconciliation polls may run
// while a command is in flight.
type Machine struct {
	backend backend.Backend
	cred    activation.Credential
	logger  *zap.Logger

	cmdMu sync.Mutex // serializes commands

	mu             sync.RWMutex
	state          State
	awaitingReport bool
	usage          []usage.Record

	// Poll ordering. issuedSeq is handed out by BeginPoll; a poll is applied
	// only if its seq is newer than appliedSeq. lastVersion is the highest
	// agent version applied so far.
	issuedSeq   uint64
	appliedSeq  uint64
	lastVersion uint64
}

// NewMachine creates a state machine in standby that issues commands with cred
func NewMachine(b backend.Backend, cred activation.Credential, logger *zap.Logger) *Machine {
	return &Machine{
		backend: b,
		cred:    cred,
		logger:  logger,
		state:   State{Status: StatusStandby},
	}
}

// Credential returns the credential commands are issued with
func (m *Machine) Credential() activation.Credential {
	return m.cred
}

// Snapshot returns a copy of the current state
func (m *Machine) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Clone()
}

// Phase returns the current display phase
func (m *Machine) Phase() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phaseLocked()
}

// Usage returns a copy of the latest application usage set
func (m *Machine) Usage() []usage.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return usage.Clone(m.usage)
}

// Ranking returns the top applications of the latest usage set relative
// to the current elapsed time
func (m *Machine) Ranking() []usage.Ranked {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return usage.Rank(m.usage, m.state.ElapsedSeconds)
}

func (m *Machine) phaseLocked() Phase {
	if m.awaitingReport {
		return AwaitingReport
	}
	return Normal(m.state.Status)
}

// Start opens a session tagged with plan
func (m *Machine) Start(ctx context.Context, plan string) error {
	m.cmdMu.Lock()
	defer m.cmdMu.Unlock()

	if err := m.require(CommandStart, func(p Phase) bool {
		s, ok := p.Status()
		return ok && s == StatusStandby
	}); err != nil {
		return err
	}

	plan = strings.TrimSpace(plan)
	if plan == "" {
		return m.fail(CommandStart, apperrors.ErrEmptyInput)
	}

	res, err := m.backend.StartTracking(ctx, plan, m.cred.Token)
	if err != nil {
		return m.fail(CommandStart, fmt.Errorf("failed to start session: %w", err))
	}
	if !res.Success {
		return m.fail(CommandStart, apperrors.NewRejected("session could not be started"))
	}

	id := res.TrackingID
	m.commit(CommandStart, func(s *State) {
		*s = State{
			Status:    StatusActive,
			SessionID: &id,
		}
		m.usage = nil
	})

	m.logger.Info("Session started",
		zap.Int64("session_id", id),
		zap.String("plan", plan),
	)
	return nil
}

// Pause suspends accounting of an active (or idle) session
func (m *Machine) Pause(ctx context.Context) error {
	m.cmdMu.Lock()
	defer m.cmdMu.Unlock()

	if err := m.require(CommandPause, isStatus(StatusActive, StatusIdle)); err != nil {
		return err
	}

	if err := m.backend.PauseTracking(ctx); err != nil {
		return m.fail(CommandPause, fmt.Errorf("failed to pause session: %w", err))
	}

	m.commit(CommandPause, func(s *State) {
		s.Status = StatusPaused
	})
	m.logger.Info("Session paused")
	return nil
}

// Resume continues a paused session
func (m *Machine) Resume(ctx context.Context) error {
	m.cmdMu.Lock()
	defer m.cmdMu.Unlock()

	if err := m.require(CommandResume, isStatus(StatusPaused)); err != nil {
		return err
	}

	if err := m.backend.ResumeTracking(ctx); err != nil {
		return m.fail(CommandResume, fmt.Errorf("failed to resume session: %w", err))
	}

	m.commit(CommandResume, func(s *State) {
		s.Status = StatusActive
	})
	m.logger.Info("Session resumed")
	return nil
}

// End closes the session. The report form becomes obligatory: the only
// command accepted afterwards is Submit.
func (m *Machine) End(ctx context.Context) error {
	m.cmdMu.Lock()
	defer m.cmdMu.Unlock()

	if err := m.require(CommandEnd, isStatus(StatusActive, StatusIdle, StatusPaused)); err != nil {
		return err
	}

	if err := m.backend.EndTracking(ctx); err != nil {
		return m.fail(CommandEnd, fmt.Errorf("failed to end session: %w", err))
	}

	m.commit(CommandEnd, func(s *State) {
		s.Status = StatusStandby
		s.SessionID = nil
		m.awaitingReport = true
	})
	m.logger.Info("Session ended, awaiting report")
	return nil
}

// Submit attaches the report to the just-closed session and resets to
// standby. A blank obstacle is sent as null.
func (m *Machine) Submit(ctx context.Context, result string, obstacle *string) error {
	m.cmdMu.Lock()
	defer m.cmdMu.Unlock()

	if err := m.require(CommandSubmit, Phase.IsAwaitingReport); err != nil {
		return err
	}

	result = strings.TrimSpace(result)
	if result == "" {
		return m.fail(CommandSubmit, apperrors.ErrEmptyInput)
	}
	if obstacle != nil {
		o := strings.TrimSpace(*obstacle)
		if o == "" {
			obstacle = nil
		} else {
			obstacle = &o
		}
	}

	if err := m.backend.SubmitReport(ctx, result, obstacle, m.cred.Token); err != nil {
		return m.fail(CommandSubmit, fmt.Errorf("failed to submit report: %w", err))
	}

	m.commit(CommandSubmit, func(s *State) {
		*s = State{Status: StatusStandby}
		m.usage = nil
		m.awaitingReport = false
	})
	m.logger.Info("Report submitted")
	return nil
}

// require checks the command precondition against the current phase
func (m *Machine) require(command string, allowed func(Phase) bool) error {
	m.mu.RLock()
	phase := m.phaseLocked()
	m.mu.RUnlock()

	if allowed(phase) {
		return nil
	}
	metrics.CommandsTotal.WithLabelValues(command, metrics.ResultIllegal).Inc()
	return &apperrors.IllegalTransitionError{Command: command, From: phase.String()}
}

// commit applies a successful command's effect. Polls issued before the
// command completed are discarded so they cannot undo it.
func (m *Machine) commit(command string, apply func(*State)) {
	m.mu.Lock()
	apply(&m.state)
	m.appliedSeq = m.issuedSeq
	m.mu.Unlock()

	metrics.CommandsTotal.WithLabelValues(command, metrics.ResultOK).Inc()
}

func (m *Machine) fail(command string, err error) error {
	result := metrics.ResultFailed
	switch {
	case errors.Is(err, apperrors.ErrEmptyInput):
		result = metrics.ResultInvalid
	case apperrors.IsRejected(err):
		result = metrics.ResultRejected
	case apperrors.IsTransient(err):
		result = metrics.ResultTransient
	}
	metrics.CommandsTotal.WithLabelValues(command, result).Inc()

	if result != metrics.ResultInvalid {
		m.logger.Warn("Session command failed",
			zap.String("command", command),
			zap.Error(err),
		)
	}
	return err
}

func isStatus(allowed ...Status) func(Phase) bool {
	return func(p Phase) bool {
		s, ok := p.Status()
		if !ok {
			return false
		}
		for _, a := range allowed {
			if s == a {
				return true
			}
		}
		return false
	}
}

// Advance is the optimistic half of a reconciliation tick: one second is
// added to elapsed time if the locally held status is active.
func (m *Machine) Advance() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.awaitingReport && m.state.Status == StatusActive {
		m.state.ElapsedSeconds++
	}
}

// BeginPoll returns the sequence number for a poll about to be issued
func (m *Machine) BeginPoll() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issuedSeq++
	return m.issuedSeq
}

// Apply overwrites the state and usage set with an authoritative snapshot.
// A snapshot carrying awaiting_report puts the machine in the report phase,
// so a report left unsent by another front end can still be submitted.
// It returns false, leaving everything unchanged, when a newer poll has
// already been applied or the snapshot's version is older than one already
// seen.
func (m *Machine) Apply(seq uint64, snap *models.TrackingState, records []usage.Record) bool {
	if snap == nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if seq <= m.appliedSeq {
		return false
	}
	if snap.Version != 0 && snap.Version < m.lastVersion {
		return false
	}

	m.appliedSeq = seq
	if snap.Version > m.lastVersion {
		m.lastVersion = snap.Version
	}
	m.state = stateFromSnapshot(snap)
	m.awaitingReport = snap.AwaitingReport && !snap.Status.Open()
	m.usage = usage.Clone(records)
	return true
}
