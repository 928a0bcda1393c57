package queue

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"Mansoor88-6/pondok-tracker/internal/models"

	"go.uber.org/zap"
)

// MaxRetries is the retry count after which old activities are dropped by Cleanup
const MaxRetries = 10

// ActivityQueue is a persistent queue of activities that failed to sync
type ActivityQueue struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewActivityQueue creates a new activity queue
func NewActivityQueue(db *sql.DB, logger *zap.Logger) *ActivityQueue {
	return &ActivityQueue{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// Enqueue adds activities to the queue
func (q *ActivityQueue) Enqueue(activities []models.SessionActivity) error {
	tx, err := q.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO pending_activities (tracking_id, activity_data, created_at, retry_count)
		VALUES (?, ?, ?, 0)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	createdAt := q.now().Unix()
	for _, a := range activities {
		data, err := json.Marshal(a.Activity)
		if err != nil {
			q.logger.Error("Failed to marshal activity", zap.Error(err))
			continue
		}

		if _, err := stmt.Exec(a.TrackingID, string(data), createdAt); err != nil {
			return fmt.Errorf("failed to enqueue activity: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	q.logger.Debug("Activities enqueued", zap.Int("count", len(activities)))
	return nil
}

// Dequeue returns up to limit of the oldest queued activities with their row ids.
// Rows are not removed until Remove is called.
func (q *ActivityQueue) Dequeue(limit int) ([]models.SessionActivity, []int64, error) {
	rows, err := q.db.Query(`
		SELECT id, tracking_id, activity_data
		FROM pending_activities
		ORDER BY created_at ASC, id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query pending activities: %w", err)
	}
	defer rows.Close()

	var activities []models.SessionActivity
	var ids []int64
	var corrupted []int64

	for rows.Next() {
		var id, trackingID int64
		var data string
		if err := rows.Scan(&id, &trackingID, &data); err != nil {
			return nil, nil, fmt.Errorf("failed to scan pending activity: %w", err)
		}

		var a models.Activity
		if err := json.Unmarshal([]byte(data), &a); err != nil {
			q.logger.Error("Failed to unmarshal activity", zap.Error(err), zap.Int64("id", id))
			corrupted = append(corrupted, id)
			continue
		}

		activities = append(activities, models.SessionActivity{TrackingID: trackingID, Activity: a})
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read pending activities: %w", err)
	}

	if len(corrupted) > 0 {
		if err := q.Remove(corrupted); err != nil {
			q.logger.Error("Failed to remove corrupted activities", zap.Error(err))
		}
	}

	return activities, ids, nil
}

// Remove removes activities from the queue by their row ids
func (q *ActivityQueue) Remove(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders, args := inClause(ids)
	result, err := q.db.Exec("DELETE FROM pending_activities WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return fmt.Errorf("failed to remove activities: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	q.logger.Debug("Activities removed from queue", zap.Int64("count", rowsAffected))
	return nil
}

// IncrementRetry increments the retry count of the given rows
func (q *ActivityQueue) IncrementRetry(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders, idArgs := inClause(ids)
	args := append([]interface{}{q.now().Unix()}, idArgs...)
	_, err := q.db.Exec(
		"UPDATE pending_activities SET retry_count = retry_count + 1, last_attempt = ? WHERE id IN ("+placeholders+")",
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to increment retry: %w", err)
	}
	return nil
}

// PendingCount returns the number of queued activities
func (q *ActivityQueue) PendingCount() (int, error) {
	var count int
	if err := q.db.QueryRow(`SELECT COUNT(*) FROM pending_activities`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get pending count: %w", err)
	}
	return count, nil
}

// Cleanup drops activities older than olderThan that exceeded MaxRetries
func (q *ActivityQueue) Cleanup(olderThan time.Duration) (int64, error) {
	cutoff := q.now().Add(-olderThan).Unix()
	result, err := q.db.Exec(`
		DELETE FROM pending_activities
		WHERE created_at < ? AND retry_count > ?
	`, cutoff, MaxRetries)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old activities: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected > 0 {
		q.logger.Info("Cleaned up old activities", zap.Int64("count", rowsAffected))
	}
	return rowsAffected, nil
}

func inClause(ids []int64) (string, []interface{}) {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","), args
}
