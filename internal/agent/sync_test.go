package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"Mansoor88-6/pondok-tracker/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupBySession(t *testing.T) {
	items := []models.SessionActivity{
		{TrackingID: 2, Activity: models.Activity{Name: "a"}},
		{TrackingID: 1, Activity: models.Activity{Name: "b"}},
		{TrackingID: 2, Activity: models.Activity{Name: "c"}},
	}

	groups := groupBySession(items, []int64{10, 11, 12})
	require.Len(t, groups, 2)
	assert.Equal(t, int64(2), groups[0].trackingID)
	assert.Equal(t, []int64{10, 12}, groups[0].ids)
	assert.Equal(t, "c", groups[0].activities()[1].Name)
	assert.Equal(t, int64(1), groups[1].trackingID)
	assert.Equal(t, []int64{11}, groups[1].ids)

	assert.Nil(t, groupBySession(items, nil)[0].ids)
}

func TestEngine_EndSyncsActivities(t *testing.T) {
	te := newTestEngine(t)
	id := te.startSession(t)
	start := te.clock.Now()

	te.windows.set("code", "main.go")
	te.tick()
	te.tick()
	te.windows.set("Google Chrome", "Go Packages - Google Chrome")
	te.urls.Store("chrome", "Go Packages", "https://pkg.go.dev/")
	te.tick()
	te.idle.set(true)
	te.tick()

	require.NoError(t, te.EndTracking(context.Background()))

	syncs := te.remote.syncCalls()
	require.Len(t, syncs, 1)
	req := syncs[0]
	assert.Equal(t, id, req.TrackingID)
	assert.Equal(t, "tok-123", req.Token)
	assert.NotEmpty(t, req.BatchID)
	require.Len(t, req.Activities, 3)

	code := req.Activities[0]
	assert.Equal(t, models.ActivityApp, code.Type)
	assert.Equal(t, "code", code.Name)
	assert.Equal(t, "main.go", code.WindowTitle)
	assert.Equal(t, int64(2), code.Duration)
	assert.Equal(t, start.Format(time.RFC3339), code.RecordedAt)
	assert.Nil(t, code.URL)

	browser := req.Activities[1]
	assert.Equal(t, int64(1), browser.Duration)
	require.NotNil(t, browser.URL)
	assert.Equal(t, "https://pkg.go.dev/", *browser.URL)

	idle := req.Activities[2]
	assert.Equal(t, models.ActivityIdle, idle.Type)
	assert.Equal(t, int64(1), idle.Duration)
}

func TestEngine_FailedSyncIsQueuedAndRetried(t *testing.T) {
	te := newTestEngine(t)
	id := te.startSession(t)

	te.remote.setSyncErr(errors.New("remote down"))
	te.windows.set("code", "main.go")
	te.tick()
	require.NoError(t, te.PauseTracking())
	te.onBatchReady([]models.SessionActivity{{TrackingID: id, Activity: models.Activity{Type: models.ActivityApp, Name: "code", Duration: 1}}})

	pending, err := te.queue.PendingCount()
	require.NoError(t, err)
	assert.Equal(t, 1, pending)

	// Still failing: stays queued
	te.processQueue()
	pending, err = te.queue.PendingCount()
	require.NoError(t, err)
	assert.Equal(t, 1, pending)

	te.remote.setSyncErr(nil)
	te.processQueue()
	pending, err = te.queue.PendingCount()
	require.NoError(t, err)
	assert.Zero(t, pending)

	syncs := te.remote.syncCalls()
	require.Len(t, syncs, 1)
	assert.Equal(t, id, syncs[0].TrackingID)
	assert.Equal(t, "code", syncs[0].Activities[0].Name)
}

func TestEngine_BatchWithoutActivationIsQueued(t *testing.T) {
	te := newTestEngine(t)

	te.onBatchReady([]models.SessionActivity{{TrackingID: 5, Activity: models.Activity{Name: "code", Duration: 1}}})
	te.processQueue()

	pending, err := te.queue.PendingCount()
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
	assert.Empty(t, te.remote.syncCalls())
}

func TestEngine_StopQueuesOpenSegment(t *testing.T) {
	te := newTestEngine(t)
	te.startSession(t)
	te.windows.set("code", "main.go")
	te.tick()

	require.NoError(t, te.Stop())
	require.NoError(t, te.Stop())

	pending, err := te.queue.PendingCount()
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
	assert.Empty(t, te.remote.syncCalls())
}

func TestEngine_Heartbeat(t *testing.T) {
	te := newTestEngine(t)
	te.heartbeat()
	assert.Zero(t, te.remote.heartbeats, "not activated")

	te.activate(t)
	te.heartbeat()
	assert.Equal(t, 1, te.remote.heartbeats)
}
