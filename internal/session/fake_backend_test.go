package session

import (
	"context"
	"sync"

	"Mansoor88-6/pondok-tracker/internal/backend"
	"Mansoor88-6/pondok-tracker/internal/models"
	"Mansoor88-6/pondok-tracker/internal/usage"
)

// fakeBackend records calls and returns canned responses
type fakeBackend struct {
	mu sync.Mutex

	calls []string

	state    *models.TrackingState
	records  []usage.Record
	pollErr  error
	usageErr error

	startResult *models.StartResult
	commandErr  error

	lastPlan     string
	lastToken    string
	lastResult   string
	lastObstacle *string

	// pollHook runs inside GetTrackingState before it returns
	pollHook func()
}

var _ backend.Backend = (*fakeBackend)(nil)

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		state:       &models.TrackingState{Status: models.StatusStandby},
		startResult: &models.StartResult{Success: true, TrackingID: 1},
	}
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeBackend) SetState(s models.TrackingState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = &s
}

func (f *fakeBackend) CheckActivation(ctx context.Context) (*models.ActivationCheck, error) {
	f.record("check_activation")
	return &models.ActivationCheck{}, nil
}

func (f *fakeBackend) ActivateToken(ctx context.Context, token string) (*models.ActivationResult, error) {
	f.record("activate")
	return &models.ActivationResult{Success: true}, nil
}

func (f *fakeBackend) GetTrackingState(ctx context.Context) (*models.TrackingState, error) {
	f.record("get_state")
	f.mu.Lock()
	hook := f.pollHook
	err := f.pollErr
	var snap models.TrackingState
	if f.state != nil {
		snap = *f.state
	}
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (f *fakeBackend) GetAppUsage(ctx context.Context) ([]usage.Record, error) {
	f.record("get_usage")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.usageErr != nil {
		return nil, f.usageErr
	}
	return usage.Clone(f.records), nil
}

func (f *fakeBackend) StartTracking(ctx context.Context, plan, token string) (*models.StartResult, error) {
	f.record("start")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPlan = plan
	f.lastToken = token
	if f.commandErr != nil {
		return nil, f.commandErr
	}
	res := *f.startResult
	return &res, nil
}

func (f *fakeBackend) PauseTracking(ctx context.Context) error {
	f.record("pause")
	return f.cmdErr()
}

func (f *fakeBackend) ResumeTracking(ctx context.Context) error {
	f.record("resume")
	return f.cmdErr()
}

func (f *fakeBackend) EndTracking(ctx context.Context) error {
	f.record("end")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commandErr != nil {
		return f.commandErr
	}
	f.state = &models.TrackingState{Status: models.StatusStandby, AwaitingReport: true}
	return nil
}

func (f *fakeBackend) SubmitReport(ctx context.Context, result string, obstacle *string, token string) error {
	f.record("report")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastResult = result
	f.lastObstacle = obstacle
	f.lastToken = token
	if f.commandErr != nil {
		return f.commandErr
	}
	f.state = &models.TrackingState{Status: models.StatusStandby}
	return nil
}

func (f *fakeBackend) cmdErr() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.commandErr
}

func (f *fakeBackend) setCommandErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commandErr = err
}
