// Package session holds the work-session state machine and the loop that
// keeps it reconciled with the tracking agent.
package session

import (
	"fmt"
	"math"

	"Mansoor88-6/pondok-tracker/internal/models"
)

// Status is the session status as reported by the agent
type Status = models.Status

const (
	StatusStandby = models.StatusStandby
	StatusActive  = models.StatusActive
	StatusPaused  = models.StatusPaused
	StatusIdle    = models.StatusIdle
)

// State is the locally held view of the current session
type State struct {
	Status            Status
	SessionID         *int64
	ElapsedSeconds    int64
	ProductiveSeconds int64
	IdleSeconds       int64
	CurrentApp        string
	CurrentWindow     string
}

// NeutralSeconds is the part of elapsed time that was neither productive
// nor idle. Agent values are not trusted to keep productive+idle within
// elapsed, so the result is clamped at zero.
func (s State) NeutralSeconds() int64 {
	n := s.ElapsedSeconds - s.ProductiveSeconds - s.IdleSeconds
	if n < 0 {
		return 0
	}
	return n
}

// ProductivityPercent returns productive time as a rounded percentage of
// elapsed time, or 0 when nothing has elapsed
func (s State) ProductivityPercent() int {
	if s.ElapsedSeconds <= 0 {
		return 0
	}
	return int(math.Round(float64(s.ProductiveSeconds) / float64(s.ElapsedSeconds) * 100))
}

// Clone returns a copy that does not share the session id pointer
func (s State) Clone() State {
	if s.SessionID != nil {
		id := *s.SessionID
		s.SessionID = &id
	}
	return s
}

func stateFromSnapshot(snap *models.TrackingState) State {
	st := State{
		Status:            snap.Status,
		ElapsedSeconds:    nonNegative(snap.Duration),
		ProductiveSeconds: nonNegative(snap.ProductiveDuration),
		IdleSeconds:       nonNegative(snap.IdleDuration),
		CurrentApp:        snap.CurrentApp,
		CurrentWindow:     snap.CurrentWindow,
	}
	if snap.TrackingID != nil {
		id := *snap.TrackingID
		st.SessionID = &id
	}
	return st
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

// Phase is what the front end shows: either a normal status or the
// end-of-session report form. The agent reports a pending report as a flag
// on the standby snapshot, never as a status.
type Phase struct {
	awaitingReport bool
	status         Status
}

// Normal wraps a status reported by the agent
func Normal(s Status) Phase {
	return Phase{status: s}
}

// AwaitingReport is the phase between a successful End and a successful Submit
var AwaitingReport = Phase{awaitingReport: true}

// IsAwaitingReport reports whether the report form is obligatory
func (p Phase) IsAwaitingReport() bool {
	return p.awaitingReport
}

// Status returns the wrapped status. ok is false for AwaitingReport.
func (p Phase) Status() (s Status, ok bool) {
	if p.awaitingReport {
		return "", false
	}
	return p.status, true
}

func (p Phase) String() string {
	if p.awaitingReport {
		return "awaiting_report"
	}
	return string(p.status)
}

// FormatDuration renders seconds as HH:MM:SS
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
