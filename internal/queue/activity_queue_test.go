package queue

import (
	"testing"
	"time"

	"Mansoor88-6/pondok-tracker/internal/database"
	"Mansoor88-6/pondok-tracker/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestQueue(t *testing.T) (*ActivityQueue, *database.DB) {
	t.Helper()
	db, err := database.New(database.MemoryPath, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewActivityQueue(db.DB, zap.NewNop()), db
}

func activity(trackingID int64, name string) models.SessionActivity {
	return models.SessionActivity{
		TrackingID: trackingID,
		Activity: models.Activity{
			Type:       models.ActivityApp,
			Name:       name,
			Duration:   30,
			RecordedAt: "2026-03-01T08:00:00Z",
		},
	}
}

func TestActivityQueue_EnqueueDequeueRemove(t *testing.T) {
	q, _ := newTestQueue(t)

	require.NoError(t, q.Enqueue([]models.SessionActivity{
		activity(1, "code"),
		activity(1, "firefox"),
		activity(2, "terminal"),
	}))

	count, err := q.PendingCount()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	got, ids, err := q.Dequeue(2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Len(t, ids, 2)
	assert.Equal(t, "code", got[0].Activity.Name)
	assert.Equal(t, int64(1), got[0].TrackingID)
	assert.Equal(t, "firefox", got[1].Activity.Name)

	// Dequeue does not remove
	count, err = q.PendingCount()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.NoError(t, q.Remove(ids))
	got, _, err = q.Dequeue(10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "terminal", got[0].Activity.Name)
	assert.Equal(t, int64(2), got[0].TrackingID)
}

func TestActivityQueue_DropsCorruptedRows(t *testing.T) {
	q, db := newTestQueue(t)

	_, err := db.Exec(`INSERT INTO pending_activities (tracking_id, activity_data, created_at) VALUES (1, 'not json', 0)`)
	require.NoError(t, err)
	require.NoError(t, q.Enqueue([]models.SessionActivity{activity(1, "code")}))

	got, ids, err := q.Dequeue(10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Len(t, ids, 1)

	count, err := q.PendingCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestActivityQueue_Cleanup(t *testing.T) {
	q, _ := newTestQueue(t)
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	// Old activity that keeps failing
	q.now = func() time.Time { return now.Add(-8 * 24 * time.Hour) }
	require.NoError(t, q.Enqueue([]models.SessionActivity{activity(1, "old")}))
	_, oldIDs, err := q.Dequeue(1)
	require.NoError(t, err)
	for i := 0; i <= MaxRetries; i++ {
		require.NoError(t, q.IncrementRetry(oldIDs))
	}

	// Old activity with few retries, and a recent one
	require.NoError(t, q.Enqueue([]models.SessionActivity{activity(1, "old-few-retries")}))
	q.now = func() time.Time { return now }
	require.NoError(t, q.Enqueue([]models.SessionActivity{activity(1, "recent")}))

	removed, err := q.Cleanup(7 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	got, _, err := q.Dequeue(10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "old-few-retries", got[0].Activity.Name)
	assert.Equal(t, "recent", got[1].Activity.Name)
}

func TestActivityQueue_EmptyIDs(t *testing.T) {
	q, _ := newTestQueue(t)
	assert.NoError(t, q.Remove(nil))
	assert.NoError(t, q.IncrementRetry(nil))
}
