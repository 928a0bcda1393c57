// Package activation exchanges a one-time token for the credential used by
// every later session command.
package activation

import (
	"context"
	"fmt"
	"strings"

	"Mansoor88-6/pondok-tracker/internal/apperrors"
	"Mansoor88-6/pondok-tracker/internal/backend"

	"go.uber.org/zap"
)

// Credential is the activated identity. It is created once and never changes
// for the lifetime of the process.
type Credential struct {
	SubjectID   int64
	DisplayName string
	Token       string
}

// Controller performs token activation against the agent
type Controller struct {
	backend backend.Backend
	logger  *zap.Logger
}

// NewController creates a new activation controller
func NewController(b backend.Backend, logger *zap.Logger) *Controller {
	return &Controller{
		backend: b,
		logger:  logger,
	}
}

// Activate trims tokenText and exchanges it for a Credential. A blank token
// fails with apperrors.ErrEmptyInput without calling the agent. A declined
// token yields a *apperrors.RejectedError carrying the agent's message.
func (c *Controller) Activate(ctx context.Context, tokenText string) (Credential, error) {
	token := strings.TrimSpace(tokenText)
	if token == "" {
		return Credential{}, apperrors.ErrEmptyInput
	}

	c.logger.Info("Activating device")

	res, err := c.backend.ActivateToken(ctx, token)
	if err != nil {
		c.logger.Warn("Activation request failed", zap.Error(err))
		return Credential{}, fmt.Errorf("failed to activate token: %w", err)
	}

	if !res.Success {
		reason := res.Message
		if reason == "" {
			reason = "invalid token"
		}
		c.logger.Info("Activation declined", zap.String("reason", reason))
		return Credential{}, apperrors.NewRejected(reason)
	}

	cred := Credential{
		SubjectID:   res.SubjectID,
		DisplayName: res.DisplayName,
		Token:       token,
	}

	c.logger.Info("Device activated",
		zap.Int64("subject_id", cred.SubjectID),
		zap.String("display_name", cred.DisplayName),
	)

	return cred, nil
}

// Restore returns the credential of an activation the agent already holds.
// ok is false when the device has not been activated yet.
func (c *Controller) Restore(ctx context.Context) (cred Credential, ok bool, err error) {
	check, err := c.backend.CheckActivation(ctx)
	if err != nil {
		return Credential{}, false, fmt.Errorf("failed to check activation: %w", err)
	}

	if !check.IsActivated || check.Token == "" {
		return Credential{}, false, nil
	}

	cred = Credential{
		DisplayName: check.DisplayName,
		Token:       check.Token,
	}
	if check.SubjectID != nil {
		cred.SubjectID = *check.SubjectID
	}

	c.logger.Debug("Restored activation", zap.Int64("subject_id", cred.SubjectID))
	return cred, true, nil
}
