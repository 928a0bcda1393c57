package models

// Status is the session status as reported by the agent
type Status string

const (
	StatusStandby Status = "standby"
	StatusActive  Status = "active"
	StatusPaused  Status = "paused"
	StatusIdle    Status = "idle" // agent-detected inactivity during an active session
)

// Valid reports whether s is a status the agent can report
func (s Status) Valid() bool {
	switch s {
	case StatusStandby, StatusActive, StatusPaused, StatusIdle:
		return true
	}
	return false
}

// Open reports whether a session is running (active, idle or paused)
func (s Status) Open() bool {
	return s == StatusActive || s == StatusIdle || s == StatusPaused
}

// TrackingState is the authoritative session snapshot served by the agent
type TrackingState struct {
	Status             Status `json:"status"`
	TrackingID         *int64 `json:"tracking_id"`
	Duration           int64  `json:"duration"`            // seconds
	ProductiveDuration int64  `json:"productive_duration"` // seconds
	IdleDuration       int64  `json:"idle_duration"`       // seconds
	CurrentApp         string `json:"current_app"`
	CurrentWindow      string `json:"current_window"`
	// AwaitingReport is set between a successful end and a successful report
	AwaitingReport  bool   `json:"awaiting_report"`
	PendingReportID *int64 `json:"pending_report_id,omitempty"`
	// Version increases with every change on the agent. Zero means unversioned.
	Version uint64 `json:"version"`
}

// StartRequest opens a session tagged with the study plan
type StartRequest struct {
	Plan  string `json:"plan"`
	Token string `json:"token"`
}

// StartResult is the agent's answer to StartRequest
type StartResult struct {
	Success    bool  `json:"success"`
	TrackingID int64 `json:"tracking_id"`
}

// ReportRequest attaches the end-of-session report to the just-closed session
type ReportRequest struct {
	Result   string  `json:"result"`
	Obstacle *string `json:"obstacle"`
	Token    string  `json:"token"`
}

// ErrorResponse is the body of every non-2xx agent response
type ErrorResponse struct {
	Error string `json:"error"`
}
