package models

import "time"

// ActivationCheck reports whether this device already holds an activation
type ActivationCheck struct {
	IsActivated bool   `json:"is_activated"`
	SubjectID   *int64 `json:"subject_id"`
	DisplayName string `json:"display_name"`
	Token       string `json:"token"`
}

// ActivateRequest carries the one-time token typed by the user
type ActivateRequest struct {
	Token string `json:"token"`
}

// ActivationResult is the agent's answer to ActivateRequest.
// On failure Message holds the reason to show the user.
type ActivationResult struct {
	Success     bool   `json:"success"`
	SubjectID   int64  `json:"subject_id"`
	DisplayName string `json:"display_name"`
	Message     string `json:"message"`
}

// Activation is the persisted activation of this device
type Activation struct {
	SubjectID   int64
	DisplayName string
	Token       string
	DeviceID    string
	ActivatedAt time.Time
}
