package agent

import (
	"context"
	"sync"
	"testing"
	"time"

	"Mansoor88-6/pondok-tracker/internal/client"
	"Mansoor88-6/pondok-tracker/internal/collector"
	"Mansoor88-6/pondok-tracker/internal/database"
	"Mansoor88-6/pondok-tracker/internal/device"
	"Mansoor88-6/pondok-tracker/internal/models"
	"Mansoor88-6/pondok-tracker/internal/platform"
	"Mansoor88-6/pondok-tracker/internal/queue"
	"Mansoor88-6/pondok-tracker/internal/repository"
	"Mansoor88-6/pondok-tracker/internal/usage"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRemote struct {
	mu sync.Mutex

	activateResult *client.ActivateResult
	activateErr    error
	nextTrackingID int64
	startErr       error
	endErr         error
	reportErr      error
	syncErr        error

	activations []client.DeviceInfo
	starts      []string
	ends        []int64
	reports     []reportCall
	syncs       []models.SyncRequest
	heartbeats  int
}

type reportCall struct {
	trackingID int64
	result     string
	obstacle   *string
	token      string
}

func (f *fakeRemote) Activate(ctx context.Context, token string, info client.DeviceInfo) (*client.ActivateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activations = append(f.activations, info)
	if f.activateErr != nil {
		return nil, f.activateErr
	}
	if f.activateResult != nil {
		return f.activateResult, nil
	}
	return &client.ActivateResult{Success: true, SubjectID: 3, Name: "Ahmad"}, nil
}

func (f *fakeRemote) Heartbeat(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heartbeats++
	return nil
}

func (f *fakeRemote) StartTracking(ctx context.Context, token, plan string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, plan)
	if f.startErr != nil {
		return 0, f.startErr
	}
	f.nextTrackingID++
	return f.nextTrackingID, nil
}

func (f *fakeRemote) EndTracking(ctx context.Context, token string, trackingID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ends = append(f.ends, trackingID)
	return f.endErr
}

func (f *fakeRemote) SubmitReport(ctx context.Context, token string, trackingID int64, result string, obstacle *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, reportCall{trackingID, result, obstacle, token})
	return f.reportErr
}

func (f *fakeRemote) SyncActivities(ctx context.Context, req models.SyncRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.syncErr != nil {
		return f.syncErr
	}
	f.syncs = append(f.syncs, req)
	return nil
}

func (f *fakeRemote) setSyncErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncErr = err
}

func (f *fakeRemote) syncCalls() []models.SyncRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.SyncRequest(nil), f.syncs...)
}

type fakeWindows struct {
	mu     sync.Mutex
	window *platform.WindowInfo
}

func (f *fakeWindows) GetCurrentWindow() *platform.WindowInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.window
}

func (f *fakeWindows) set(app, title string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.window = &platform.WindowInfo{Application: app, Title: title}
}

type fakeIdle struct {
	mu   sync.Mutex
	idle bool
}

func (f *fakeIdle) IsIdle() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.idle
}

func (f *fakeIdle) set(idle bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.idle = idle
}

type testEngine struct {
	*Engine
	remote  *fakeRemote
	windows *fakeWindows
	idle    *fakeIdle
	clock   *TestClock
	queue   *queue.ActivityQueue
	repo    *repository.ActivationRepository
	urls    *URLStore
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()

	db, err := database.New(database.MemoryPath, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	categorizer, err := usage.NewCategorizer(nil, nil, 0)
	require.NoError(t, err)

	te := &testEngine{
		remote:  &fakeRemote{},
		windows: &fakeWindows{},
		idle:    &fakeIdle{},
		clock:   &TestClock{CurrentTime: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)},
		queue:   queue.NewActivityQueue(db.DB, zap.NewNop()),
		repo:    repository.NewActivationRepository(db.DB),
	}
	te.urls = NewURLStore(time.Minute, te.clock, zap.NewNop())

	te.Engine = NewEngine(
		te.remote,
		te.repo,
		te.windows,
		te.idle,
		categorizer,
		collector.NewActivityCollector(100, time.Hour, zap.NewNop()),
		te.queue,
		te.urls,
		device.Identity{ID: "dev-1", Name: "lab-pc", OS: "linux", OSVersion: "6.1"},
		Options{
			SampleInterval:     time.Hour,
			HeartbeatInterval:  time.Hour,
			QueueRetryInterval: time.Hour,
			AgentVersion:       "1.0.0",
		},
		te.clock,
		zap.NewNop(),
	)
	te.Start()
	t.Cleanup(func() { _ = te.Stop() })
	return te
}

// tick runs one sample and moves the clock one second forward
func (te *testEngine) tick() {
	te.sample()
	te.clock.Advance(time.Second)
}

func (te *testEngine) activate(t *testing.T) {
	t.Helper()
	res, err := te.Activate(context.Background(), "tok-123")
	require.NoError(t, err)
	require.True(t, res.Success)
}

func (te *testEngine) startSession(t *testing.T) int64 {
	t.Helper()
	te.activate(t)
	res, err := te.StartTracking(context.Background(), "belajar golang", "")
	require.NoError(t, err)
	return res.TrackingID
}
