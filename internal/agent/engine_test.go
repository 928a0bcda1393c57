package agent

import (
	"context"
	"errors"
	"testing"

	"Mansoor88-6/pondok-tracker/internal/apperrors"
	"Mansoor88-6/pondok-tracker/internal/client"
	"Mansoor88-6/pondok-tracker/internal/models"
	"Mansoor88-6/pondok-tracker/internal/usage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_Activate(t *testing.T) {
	ctx := context.Background()

	t.Run("blank token", func(t *testing.T) {
		te := newTestEngine(t)
		_, err := te.Activate(ctx, "   ")
		assert.ErrorIs(t, err, apperrors.ErrEmptyInput)
		assert.Empty(t, te.remote.activations)
	})

	t.Run("declined", func(t *testing.T) {
		te := newTestEngine(t)
		te.remote.activateResult = &client.ActivateResult{Success: false, Message: "token expired"}

		res, err := te.Activate(ctx, "tok-123")
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "token expired", res.Message)
		assert.False(t, te.CheckActivation().IsActivated)
	})

	t.Run("remote unreachable", func(t *testing.T) {
		te := newTestEngine(t)
		te.remote.activateErr = errors.New("connection refused")

		_, err := te.Activate(ctx, "tok-123")
		assert.True(t, apperrors.IsTransient(err))
	})

	t.Run("accepted and persisted", func(t *testing.T) {
		te := newTestEngine(t)

		res, err := te.Activate(ctx, "  tok-123 ")
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, int64(3), res.SubjectID)
		assert.Equal(t, "Ahmad", res.DisplayName)

		require.Len(t, te.remote.activations, 1)
		info := te.remote.activations[0]
		assert.Equal(t, "dev-1", info.DeviceID)
		assert.Equal(t, "lab-pc", info.DeviceName)
		assert.Equal(t, "1.0.0", info.AgentVersion)

		check := te.CheckActivation()
		assert.True(t, check.IsActivated)
		require.NotNil(t, check.SubjectID)
		assert.Equal(t, int64(3), *check.SubjectID)
		assert.Equal(t, "tok-123", check.Token)

		stored, err := te.repo.Load()
		require.NoError(t, err)
		assert.Equal(t, "tok-123", stored.Token)
		assert.Equal(t, "dev-1", stored.DeviceID)
	})
}

func TestEngine_RestoreUsesStoredDeviceID(t *testing.T) {
	te := newTestEngine(t)
	require.NoError(t, te.Restore())
	assert.False(t, te.CheckActivation().IsActivated)

	require.NoError(t, te.repo.Save(&models.Activation{
		SubjectID:   9,
		DisplayName: "Fatimah",
		Token:       "tok-9",
		DeviceID:    "dev-stored",
		ActivatedAt: te.clock.Now(),
	}))
	require.NoError(t, te.Restore())

	check := te.CheckActivation()
	assert.True(t, check.IsActivated)
	assert.Equal(t, "Fatimah", check.DisplayName)
	assert.Equal(t, "dev-stored", te.Health().DeviceID)
}

func TestEngine_StartPreconditions(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine(t)

	_, err := te.StartTracking(ctx, "belajar", "")
	assert.True(t, apperrors.IsRejected(err), "not activated")

	te.activate(t)
	_, err = te.StartTracking(ctx, "  ", "")
	assert.ErrorIs(t, err, apperrors.ErrEmptyInput)
	assert.Empty(t, te.remote.starts)

	te.remote.startErr = &client.BadRequestError{Message: "santri already tracking", StatusCode: 409}
	_, err = te.StartTracking(ctx, "belajar", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsRejected(err))
	assert.Equal(t, "santri already tracking", apperrors.UserMessage(err))
	assert.Equal(t, models.StatusStandby, te.State().Status)

	te.remote.startErr = nil
	before := te.State().Version
	res, err := te.StartTracking(ctx, " belajar ", "")
	require.NoError(t, err)
	assert.True(t, res.Success)

	s := te.State()
	assert.Equal(t, models.StatusActive, s.Status)
	require.NotNil(t, s.TrackingID)
	assert.Equal(t, res.TrackingID, *s.TrackingID)
	assert.Zero(t, s.Duration)
	assert.Greater(t, s.Version, before)
	assert.Equal(t, "belajar", te.remote.starts[len(te.remote.starts)-1])

	_, err = te.StartTracking(ctx, "again", "")
	assert.True(t, apperrors.IsIllegalTransition(err))
}

func TestEngine_SampleAccounting(t *testing.T) {
	te := newTestEngine(t)
	te.startSession(t)

	te.windows.set("Visual Studio Code", "engine.go")
	te.tick()
	te.tick()
	te.windows.set("firefox", "YouTube - Mozilla Firefox")
	te.tick()
	te.idle.set(true)
	te.tick()
	te.tick()

	s := te.State()
	assert.Equal(t, models.StatusIdle, s.Status)
	assert.Equal(t, int64(5), s.Duration)
	assert.Equal(t, int64(2), s.ProductiveDuration)
	assert.Equal(t, int64(2), s.IdleDuration)
	assert.LessOrEqual(t, s.ProductiveDuration+s.IdleDuration, s.Duration)
	assert.Equal(t, "firefox", s.CurrentApp)

	apps := te.AppUsage()
	require.Len(t, apps, 2)
	assert.Equal(t, usage.Record{Name: "Visual Studio Code", DurationSeconds: 2, Category: usage.CategoryProductive}, apps[0])
	assert.Equal(t, usage.Record{Name: "firefox", DurationSeconds: 1, Category: usage.CategoryNeutral}, apps[1])

	te.idle.set(false)
	te.tick()
	assert.Equal(t, models.StatusActive, te.State().Status)
}

func TestEngine_SampleUnknownWindow(t *testing.T) {
	te := newTestEngine(t)
	te.startSession(t)

	te.tick()
	assert.Equal(t, "Unknown", te.State().CurrentApp)
	assert.Equal(t, int64(1), te.AppUsage()[0].DurationSeconds)
}

func TestEngine_NoAccountingOutsideActiveSession(t *testing.T) {
	te := newTestEngine(t)
	te.windows.set("code", "main.go")

	te.tick()
	assert.Zero(t, te.State().Duration, "standby")

	te.startSession(t)
	te.tick()
	require.NoError(t, te.PauseTracking())
	version := te.State().Version
	te.tick()
	te.tick()

	s := te.State()
	assert.Equal(t, models.StatusPaused, s.Status)
	assert.Equal(t, int64(1), s.Duration)
	assert.Equal(t, version, s.Version)
}

func TestEngine_PauseResume(t *testing.T) {
	te := newTestEngine(t)

	assert.True(t, apperrors.IsIllegalTransition(te.PauseTracking()))
	assert.True(t, apperrors.IsIllegalTransition(te.ResumeTracking()))

	te.startSession(t)
	assert.True(t, apperrors.IsIllegalTransition(te.ResumeTracking()))

	te.idle.set(true)
	te.tick()
	require.Equal(t, models.StatusIdle, te.State().Status)
	require.NoError(t, te.PauseTracking(), "pause while idle")
	require.NoError(t, te.ResumeTracking())
	assert.Equal(t, models.StatusActive, te.State().Status)
}

func TestEngine_EndAndReport(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine(t)

	assert.True(t, apperrors.IsIllegalTransition(te.EndTracking(ctx)))
	assert.True(t, apperrors.IsIllegalTransition(te.SubmitReport(ctx, "done", nil, "")))

	id := te.startSession(t)
	te.windows.set("code", "main.go")
	te.tick()
	te.tick()
	te.tick()

	te.remote.endErr = errors.New("timeout")
	err := te.EndTracking(ctx)
	assert.True(t, apperrors.IsTransient(err))
	assert.Equal(t, models.StatusActive, te.State().Status)

	te.remote.endErr = nil
	require.NoError(t, te.EndTracking(ctx))
	assert.Equal(t, []int64{id, id}, te.remote.ends)

	s := te.State()
	assert.Equal(t, models.StatusStandby, s.Status)
	assert.Nil(t, s.TrackingID)
	assert.Equal(t, int64(3), s.Duration, "durations are kept until the report")
	assert.Len(t, te.AppUsage(), 1)
	assert.True(t, s.AwaitingReport)
	require.NotNil(t, s.PendingReportID)
	assert.Equal(t, id, *s.PendingReportID)

	assert.ErrorIs(t, te.SubmitReport(ctx, " ", nil, ""), apperrors.ErrEmptyInput)

	blank := "  "
	require.NoError(t, te.SubmitReport(ctx, "selesai bab 3", &blank, "tok-123"))
	require.Len(t, te.remote.reports, 1)
	report := te.remote.reports[0]
	assert.Equal(t, id, report.trackingID)
	assert.Equal(t, "selesai bab 3", report.result)
	assert.Nil(t, report.obstacle)
	assert.Equal(t, "tok-123", report.token)

	s = te.State()
	assert.Equal(t, models.StatusStandby, s.Status)
	assert.Zero(t, s.Duration)
	assert.Empty(t, te.AppUsage())
	assert.False(t, s.AwaitingReport)
	assert.Nil(t, s.PendingReportID)

	assert.True(t, apperrors.IsIllegalTransition(te.SubmitReport(ctx, "again", nil, "")))
}

func TestEngine_FailedReportCanBeRetried(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine(t)

	id := te.startSession(t)
	require.NoError(t, te.EndTracking(ctx))
	ended := te.State()

	te.remote.reportErr = errors.New("status 503")
	err := te.SubmitReport(ctx, "selesai", nil, "")
	assert.True(t, apperrors.IsTransient(err))

	s := te.State()
	assert.True(t, s.AwaitingReport)
	require.NotNil(t, s.PendingReportID)
	assert.Equal(t, id, *s.PendingReportID)
	assert.Equal(t, ended.Version, s.Version)

	// A new session would orphan the report
	_, err = te.StartTracking(ctx, "belajar lagi", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsIllegalTransition(err))
	assert.Contains(t, err.Error(), "awaiting_report")
	assert.Len(t, te.remote.starts, 1)

	te.remote.reportErr = nil
	require.NoError(t, te.SubmitReport(ctx, "selesai", nil, ""))
	require.Len(t, te.remote.reports, 2)
	assert.Equal(t, id, te.remote.reports[1].trackingID)

	s = te.State()
	assert.False(t, s.AwaitingReport)
	assert.Greater(t, s.Version, ended.Version)

	_, err = te.StartTracking(ctx, "belajar lagi", "")
	require.NoError(t, err)
}

func TestEngine_VersionIncreases(t *testing.T) {
	te := newTestEngine(t)
	initial := te.State().Version
	assert.Equal(t, uint64(te.clock.Now().UnixNano()), initial)

	te.startSession(t)
	v1 := te.State().Version
	te.tick()
	v2 := te.State().Version
	require.NoError(t, te.PauseTracking())
	v3 := te.State().Version

	assert.Less(t, initial, v1)
	assert.Less(t, v1, v2)
	assert.Less(t, v2, v3)
}

func TestEngine_Health(t *testing.T) {
	te := newTestEngine(t)
	h := te.Health()
	assert.Equal(t, "dev-1", h.DeviceID)
	assert.False(t, h.Activated)
	assert.Equal(t, models.StatusStandby, h.Status)
	assert.Zero(t, h.PendingActivities)
}
