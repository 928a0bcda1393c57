// Package backend defines the calls front ends make to the tracking agent,
// which owns the authoritative session state.
package backend

import (
	"context"

	"Mansoor88-6/pondok-tracker/internal/models"
	"Mansoor88-6/pondok-tracker/internal/usage"
)

// Backend is the agent as seen by the activation controller and the session
// state machine. Implementations return *apperrors.RejectedError when the
// agent declines a request and *apperrors.TransientError for network or
// server faults.
type Backend interface {
	CheckActivation(ctx context.Context) (*models.ActivationCheck, error)
	ActivateToken(ctx context.Context, token string) (*models.ActivationResult, error)

	GetTrackingState(ctx context.Context) (*models.TrackingState, error)
	GetAppUsage(ctx context.Context) ([]usage.Record, error)

	StartTracking(ctx context.Context, plan, token string) (*models.StartResult, error)
	PauseTracking(ctx context.Context) error
	ResumeTracking(ctx context.Context) error
	EndTracking(ctx context.Context) error
	SubmitReport(ctx context.Context, result string, obstacle *string, token string) error
}
