package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"Mansoor88-6/pondok-tracker/internal/models"
)

// ErrNotActivated is returned by Load when no activation is stored
var ErrNotActivated = errors.New("device not activated")

type ActivationRepository struct {
	db *sql.DB
}

func NewActivationRepository(db *sql.DB) *ActivationRepository {
	return &ActivationRepository{db: db}
}

// Save stores the activation, replacing any earlier one
func (r *ActivationRepository) Save(a *models.Activation) error {
	query := `
		INSERT INTO activation (id, subject_id, display_name, token, device_id, activated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			subject_id = excluded.subject_id,
			display_name = excluded.display_name,
			token = excluded.token,
			device_id = excluded.device_id,
			activated_at = excluded.activated_at
	`

	_, err := r.db.Exec(query, a.SubjectID, a.DisplayName, a.Token, a.DeviceID, a.ActivatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save activation: %w", err)
	}
	return nil
}

// Load returns the stored activation or ErrNotActivated
func (r *ActivationRepository) Load() (*models.Activation, error) {
	query := `
		SELECT subject_id, display_name, token, device_id, activated_at
		FROM activation
		WHERE id = 1
	`

	var a models.Activation
	var activatedAt int64
	err := r.db.QueryRow(query).Scan(&a.SubjectID, &a.DisplayName, &a.Token, &a.DeviceID, &activatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotActivated
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load activation: %w", err)
	}

	a.ActivatedAt = time.Unix(activatedAt, 0)
	return &a, nil
}

// Delete removes the stored activation
func (r *ActivationRepository) Delete() error {
	if _, err := r.db.Exec(`DELETE FROM activation WHERE id = 1`); err != nil {
		return fmt.Errorf("failed to delete activation: %w", err)
	}
	return nil
}
