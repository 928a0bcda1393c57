// Package agent owns the authoritative tracking state served to front ends:
// the device activation, the open session and its time accounting, and the
// foreground-application activities synced to the remote API.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"Mansoor88-6/pondok-tracker/internal/apperrors"
	"Mansoor88-6/pondok-tracker/internal/client"
	"Mansoor88-6/pondok-tracker/internal/collector"
	"Mansoor88-6/pondok-tracker/internal/device"
	"Mansoor88-6/pondok-tracker/internal/metrics"
	"Mansoor88-6/pondok-tracker/internal/models"
	"Mansoor88-6/pondok-tracker/internal/platform"
	"Mansoor88-6/pondok-tracker/internal/queue"
	"Mansoor88-6/pondok-tracker/internal/repository"
	"Mansoor88-6/pondok-tracker/internal/usage"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// Command names, as used in errors and metrics
const (
	CommandActivate = "activate"
	CommandStart    = "start"
	CommandPause    = "pause"
	CommandResume   = "resume"
	CommandEnd      = "end"
	CommandReport   = "report"
)

const (
	queueBatchLimit = 100
	queueMaxAge     = 7 * 24 * time.Hour
	idleActivity    = "Idle"
)

const errNotActivated = "device is not activated"

// phaseAwaitingReport is reported as the origin of commands refused while a
// report is pending
const phaseAwaitingReport = "awaiting_report"

// RemoteAPI is the remote school API. *client.APIClient implements it.
type RemoteAPI interface {
	Activate(ctx context.Context, token string, info client.DeviceInfo) (*client.ActivateResult, error)
	Heartbeat(ctx context.Context, token string) error
	StartTracking(ctx context.Context, token, plan string) (int64, error)
	EndTracking(ctx context.Context, token string, trackingID int64) error
	SubmitReport(ctx context.Context, token string, trackingID int64, result string, obstacle *string) error
	SyncActivities(ctx context.Context, req models.SyncRequest) error
}

// ActivationStore persists the device activation
type ActivationStore interface {
	Save(a *models.Activation) error
	Load() (*models.Activation, error)
}

// WindowSource reports the current foreground window
type WindowSource interface {
	GetCurrentWindow() *platform.WindowInfo
}

// IdleSource reports whether the user is away from the keyboard
type IdleSource interface {
	IsIdle() bool
}

// Options holds the engine's intervals
type Options struct {
	SampleInterval     time.Duration
	HeartbeatInterval  time.Duration
	QueueRetryInterval time.Duration
	AgentVersion       string
}

// segment is the activity currently being accumulated
type segment struct {
	kind       string
	name       string
	title      string
	trackingID int64
	startedAt  time.Time
	seconds    int64
}

// Health summarises the engine for the health endpoint
type Health struct {
	DeviceID          string        `json:"device_id"`
	Activated         bool          `json:"activated"`
	Status            models.Status `json:"status"`
	PendingActivities int           `json:"pending_activities"`
	CollectorPending  int           `json:"collector_pending"`
}

// Engine is the authoritative owner of tracking and activation state
type Engine struct {
	remote      RemoteAPI
	store       ActivationStore
	windows     WindowSource
	idle        IdleSource
	categorizer *usage.Categorizer
	collector   *collector.ActivityCollector
	queue       *queue.ActivityQueue
	urls        *URLStore
	identity    device.Identity
	opts        Options
	clock       Clock
	logger      *zap.Logger

	// cmdMu serializes commands; mu guards the fields below it
	cmdMu            sync.Mutex
	mu               sync.RWMutex
	activation       *models.Activation
	state            models.TrackingState
	apps             map[string]int64
	closedTrackingID *int64
	current          *segment
	stopped          bool
	shutdownErr      *multierror.Error

	ctx      context.Context
	cancel   context.CancelFunc
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewEngine creates a new engine. urls may be nil when the browser
// extension endpoint is disabled.
func NewEngine(
	remote RemoteAPI,
	store ActivationStore,
	windows WindowSource,
	idle IdleSource,
	categorizer *usage.Categorizer,
	activityCollector *collector.ActivityCollector,
	activityQueue *queue.ActivityQueue,
	urls *URLStore,
	identity device.Identity,
	opts Options,
	clock Clock,
	logger *zap.Logger,
) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		remote:      remote,
		store:       store,
		windows:     windows,
		idle:        idle,
		categorizer: categorizer,
		collector:   activityCollector,
		queue:       activityQueue,
		urls:        urls,
		identity:    identity,
		opts:        opts,
		clock:       clock,
		logger:      logger,
		state: models.TrackingState{
			Status: models.StatusStandby,
			// Seeded from the wall clock so versions keep increasing across restarts
			Version: uint64(clock.Now().UnixNano()),
		},
		apps:     make(map[string]int64),
		ctx:      ctx,
		cancel:   cancel,
		stopChan: make(chan struct{}),
	}
}

// Restore loads the persisted activation, if any
func (e *Engine) Restore() error {
	a, err := e.store.Load()
	if errors.Is(err, repository.ErrNotActivated) {
		e.logger.Info("Device not activated yet", zap.String("device_id", e.identity.ID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to restore activation: %w", err)
	}

	e.mu.Lock()
	e.activation = a
	if a.DeviceID != "" {
		e.identity.ID = a.DeviceID
	}
	e.mu.Unlock()

	e.logger.Info("Activation restored",
		zap.Int64("subject_id", a.SubjectID),
		zap.String("device_id", e.identity.ID),
	)
	return nil
}

// Start begins sampling, queue processing and heartbeats
func (e *Engine) Start() {
	e.collector.Start(e.onBatchReady)

	e.wg.Add(3)
	go e.runEvery(e.opts.SampleInterval, e.sample)
	go e.runEvery(e.opts.QueueRetryInterval, e.processQueue)
	go e.runEvery(e.opts.HeartbeatInterval, e.heartbeat)

	e.logger.Info("Tracking engine started",
		zap.String("device_id", e.identity.ID),
		zap.Duration("sample_interval", e.opts.SampleInterval),
	)
}

// Stop stops the background loops. Activities not yet synced are kept in
// the local queue. It is safe to call more than once.
func (e *Engine) Stop() error {
	e.mu.Lock()
	select {
	case <-e.stopChan:
		e.mu.Unlock()
		return nil
	default:
		e.stopped = true
		close(e.stopChan)
	}
	finished := e.closeSegmentLocked()
	e.mu.Unlock()

	e.cancel()
	e.wg.Wait()

	if finished != nil {
		e.collector.Add(*finished)
	}
	e.collector.Stop()

	e.mu.Lock()
	result := e.shutdownErr
	e.mu.Unlock()

	if _, err := e.queue.Cleanup(queueMaxAge); err != nil {
		result = multierror.Append(result, err)
	}

	e.logger.Info("Tracking engine stopped")
	return result.ErrorOrNil()
}

func (e *Engine) runEvery(interval time.Duration, fn func()) {
	defer e.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fn()
		case <-e.stopChan:
			return
		}
	}
}

// sample accounts one second of the open session
func (e *Engine) sample() {
	window := e.windows.GetCurrentWindow()
	idle := e.idle.IsIdle()

	e.mu.Lock()
	if e.state.Status != models.StatusActive && e.state.Status != models.StatusIdle {
		e.mu.Unlock()
		return
	}

	var finished *models.SessionActivity
	var category string
	e.state.Duration++

	if idle {
		e.state.Status = models.StatusIdle
		e.state.IdleDuration++
		finished = e.advanceSegmentLocked(models.ActivityIdle, idleActivity, "")
		category = "idle"
	} else {
		app, title := platform.UnknownApplication, ""
		if window != nil {
			title = window.Title
			if window.Application != "" {
				app = window.Application
			}
		}

		e.state.Status = models.StatusActive
		e.state.CurrentApp = app
		e.state.CurrentWindow = title
		e.apps[app]++

		cat := e.categorizer.Categorize(app)
		if cat == usage.CategoryProductive {
			e.state.ProductiveDuration++
		}
		finished = e.advanceSegmentLocked(models.ActivityApp, app, title)
		category = string(cat)
	}

	e.state.Version++
	e.mu.Unlock()

	metrics.TrackedSecondsTotal.WithLabelValues(category).Inc()
	if finished != nil {
		e.collector.Add(*finished)
	}
}

// advanceSegmentLocked counts one second towards the current segment,
// starting a new one (and returning the finished one) when the activity changed
func (e *Engine) advanceSegmentLocked(kind, name, title string) *models.SessionActivity {
	if c := e.current; c != nil && c.kind == kind && c.name == name && c.title == title {
		c.seconds++
		return nil
	}

	finished := e.closeSegmentLocked()
	e.current = &segment{
		kind:       kind,
		name:       name,
		title:      title,
		trackingID: *e.state.TrackingID,
		startedAt:  e.clock.Now(),
		seconds:    1,
	}
	return finished
}

func (e *Engine) closeSegmentLocked() *models.SessionActivity {
	c := e.current
	if c == nil {
		return nil
	}
	e.current = nil

	a := models.Activity{
		Type:        c.kind,
		Name:        c.name,
		WindowTitle: c.title,
		Duration:    c.seconds,
		RecordedAt:  c.startedAt.UTC().Format(time.RFC3339),
	}
	if c.kind == models.ActivityApp {
		a.URL = e.urls.ResolveURL(c.name, c.title)
	}
	return &models.SessionActivity{TrackingID: c.trackingID, Activity: a}
}

// State returns a copy of the current tracking snapshot
func (e *Engine) State() models.TrackingState {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s := e.state
	if s.TrackingID != nil {
		id := *s.TrackingID
		s.TrackingID = &id
	}
	if e.closedTrackingID != nil {
		id := *e.closedTrackingID
		s.AwaitingReport = true
		s.PendingReportID = &id
	}
	return s
}

// AppUsage returns per-application time of the current session, longest first
func (e *Engine) AppUsage() []usage.Record {
	e.mu.RLock()
	records := make([]usage.Record, 0, len(e.apps))
	for name, seconds := range e.apps {
		records = append(records, usage.Record{Name: name, DurationSeconds: seconds})
	}
	e.mu.RUnlock()

	for i := range records {
		records[i].Category = e.categorizer.Categorize(records[i].Name)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].DurationSeconds != records[j].DurationSeconds {
			return records[i].DurationSeconds > records[j].DurationSeconds
		}
		return records[i].Name < records[j].Name
	})
	return records
}

// CheckActivation reports the persisted activation of this device
func (e *Engine) CheckActivation() *models.ActivationCheck {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.activation == nil {
		return &models.ActivationCheck{IsActivated: false}
	}
	id := e.activation.SubjectID
	return &models.ActivationCheck{
		IsActivated: true,
		SubjectID:   &id,
		DisplayName: e.activation.DisplayName,
		Token:       e.activation.Token,
	}
}

// Health returns a summary of the engine
func (e *Engine) Health() Health {
	e.mu.RLock()
	h := Health{
		DeviceID:  e.identity.ID,
		Activated: e.activation != nil,
		Status:    e.state.Status,
	}
	e.mu.RUnlock()

	if pending, err := e.queue.PendingCount(); err == nil {
		h.PendingActivities = pending
	}
	h.CollectorPending = e.collector.PendingCount()
	return h
}

// Activate exchanges a one-time token with the remote API and persists the
// resulting activation. A declined token is reported in the result, not as
// an error.
func (e *Engine) Activate(ctx context.Context, token string) (*models.ActivationResult, error) {
	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, e.failed(CommandActivate, apperrors.ErrEmptyInput)
	}

	e.mu.RLock()
	identity := e.identity
	e.mu.RUnlock()

	res, err := e.remote.Activate(ctx, token, client.DeviceInfo{
		DeviceID:     identity.ID,
		DeviceName:   identity.Name,
		OS:           identity.OS,
		OSVersion:    identity.OSVersion,
		AgentVersion: e.opts.AgentVersion,
	})
	if err != nil {
		return nil, e.failed(CommandActivate, apperrors.NewTransient("activate", err))
	}
	if !res.Success {
		metrics.CommandsTotal.WithLabelValues(CommandActivate, metrics.ResultRejected).Inc()
		e.logger.Info("Activation declined", zap.String("message", res.Message))
		return &models.ActivationResult{Success: false, Message: res.Message}, nil
	}

	a := &models.Activation{
		SubjectID:   res.SubjectID,
		DisplayName: res.Name,
		Token:       token,
		DeviceID:    identity.ID,
		ActivatedAt: e.clock.Now(),
	}
	if err := e.store.Save(a); err != nil {
		return nil, e.failed(CommandActivate, err)
	}

	e.mu.Lock()
	e.activation = a
	e.mu.Unlock()

	metrics.CommandsTotal.WithLabelValues(CommandActivate, metrics.ResultOK).Inc()
	e.logger.Info("Device activated",
		zap.Int64("subject_id", a.SubjectID),
		zap.String("device_id", a.DeviceID),
	)
	return &models.ActivationResult{
		Success:     true,
		SubjectID:   a.SubjectID,
		DisplayName: a.DisplayName,
	}, nil
}

// StartTracking opens a remote session for the study plan and resets the
// session counters. It is refused while the previous session's report is
// still pending.
func (e *Engine) StartTracking(ctx context.Context, plan, token string) (*models.StartResult, error) {
	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()

	e.mu.RLock()
	status := e.state.Status
	activation := e.activation
	pending := e.closedTrackingID != nil
	e.mu.RUnlock()

	if status != models.StatusStandby {
		return nil, e.illegal(CommandStart, string(status))
	}
	if pending {
		return nil, e.illegal(CommandStart, phaseAwaitingReport)
	}
	if activation == nil {
		return nil, e.failed(CommandStart, apperrors.NewRejected(errNotActivated))
	}
	plan = strings.TrimSpace(plan)
	if plan == "" {
		return nil, e.failed(CommandStart, apperrors.ErrEmptyInput)
	}

	id, err := e.remote.StartTracking(ctx, tokenOr(token, activation), plan)
	if err != nil {
		return nil, e.failed(CommandStart, remoteError("start tracking", err))
	}

	e.mu.Lock()
	e.state = models.TrackingState{
		Status:     models.StatusActive,
		TrackingID: &id,
		Version:    e.state.Version + 1,
	}
	e.apps = make(map[string]int64)
	e.current = nil
	e.mu.Unlock()

	metrics.CommandsTotal.WithLabelValues(CommandStart, metrics.ResultOK).Inc()
	e.logger.Info("Tracking started", zap.Int64("tracking_id", id))
	return &models.StartResult{Success: true, TrackingID: id}, nil
}

// PauseTracking stops time accounting until ResumeTracking
func (e *Engine) PauseTracking() error {
	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()

	e.mu.Lock()
	status := e.state.Status
	if status != models.StatusActive && status != models.StatusIdle {
		e.mu.Unlock()
		return e.illegal(CommandPause, string(status))
	}
	finished := e.closeSegmentLocked()
	e.state.Status = models.StatusPaused
	e.state.Version++
	e.mu.Unlock()

	if finished != nil {
		e.collector.Add(*finished)
	}
	metrics.CommandsTotal.WithLabelValues(CommandPause, metrics.ResultOK).Inc()
	e.logger.Info("Tracking paused")
	return nil
}

// ResumeTracking continues a paused session. The next sample decides
// whether the user is active or idle.
func (e *Engine) ResumeTracking() error {
	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()

	e.mu.Lock()
	status := e.state.Status
	if status != models.StatusPaused {
		e.mu.Unlock()
		return e.illegal(CommandResume, string(status))
	}
	e.state.Status = models.StatusActive
	e.state.Version++
	e.mu.Unlock()

	metrics.CommandsTotal.WithLabelValues(CommandResume, metrics.ResultOK).Inc()
	e.logger.Info("Tracking resumed")
	return nil
}

// EndTracking closes the remote session. Durations are kept until the
// report is submitted.
func (e *Engine) EndTracking(ctx context.Context) error {
	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()

	e.mu.RLock()
	status := e.state.Status
	activation := e.activation
	var id int64
	if e.state.TrackingID != nil {
		id = *e.state.TrackingID
	}
	e.mu.RUnlock()

	if !status.Open() {
		return e.illegal(CommandEnd, string(status))
	}

	if err := e.remote.EndTracking(ctx, tokenOr("", activation), id); err != nil {
		return e.failed(CommandEnd, remoteError("end tracking", err))
	}

	e.mu.Lock()
	finished := e.closeSegmentLocked()
	e.state.Status = models.StatusStandby
	e.state.TrackingID = nil
	e.state.CurrentApp = ""
	e.state.CurrentWindow = ""
	e.state.Version++
	e.closedTrackingID = &id
	e.mu.Unlock()

	if finished != nil {
		e.collector.Add(*finished)
	}
	e.collector.Flush()

	metrics.CommandsTotal.WithLabelValues(CommandEnd, metrics.ResultOK).Inc()
	e.logger.Info("Tracking ended", zap.Int64("tracking_id", id))
	return nil
}

// SubmitReport sends the end-of-session report for the session closed by
// EndTracking and clears the session
func (e *Engine) SubmitReport(ctx context.Context, result string, obstacle *string, token string) error {
	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()

	e.mu.RLock()
	status := e.state.Status
	activation := e.activation
	closed := e.closedTrackingID
	e.mu.RUnlock()

	if closed == nil {
		return e.illegal(CommandReport, string(status))
	}
	result = strings.TrimSpace(result)
	if result == "" {
		return e.failed(CommandReport, apperrors.ErrEmptyInput)
	}
	if obstacle != nil {
		trimmed := strings.TrimSpace(*obstacle)
		obstacle = &trimmed
		if trimmed == "" {
			obstacle = nil
		}
	}

	if err := e.remote.SubmitReport(ctx, tokenOr(token, activation), *closed, result, obstacle); err != nil {
		return e.failed(CommandReport, remoteError("submit report", err))
	}

	e.mu.Lock()
	e.state = models.TrackingState{
		Status:  models.StatusStandby,
		Version: e.state.Version + 1,
	}
	e.apps = make(map[string]int64)
	e.closedTrackingID = nil
	e.mu.Unlock()

	metrics.CommandsTotal.WithLabelValues(CommandReport, metrics.ResultOK).Inc()
	e.logger.Info("Report submitted", zap.Int64("tracking_id", *closed))
	return nil
}

func (e *Engine) illegal(command, from string) error {
	metrics.CommandsTotal.WithLabelValues(command, metrics.ResultIllegal).Inc()
	return &apperrors.IllegalTransitionError{Command: command, From: from}
}

func (e *Engine) failed(command string, err error) error {
	result := metrics.ResultFailed
	switch {
	case errors.Is(err, apperrors.ErrEmptyInput):
		result = metrics.ResultInvalid
	case apperrors.IsRejected(err):
		result = metrics.ResultRejected
	case apperrors.IsTransient(err):
		result = metrics.ResultTransient
	}
	metrics.CommandsTotal.WithLabelValues(command, result).Inc()

	e.logger.Warn("Command failed",
		zap.String("command", command),
		zap.Error(err),
	)
	return err
}

// remoteError maps a remote API failure onto the error taxonomy
func remoteError(op string, err error) error {
	if client.IsDeclined(err) {
		return apperrors.NewRejected(err.Error())
	}
	return apperrors.NewTransient(op, err)
}

func tokenOr(token string, a *models.Activation) string {
	if token = strings.TrimSpace(token); token != "" {
		return token
	}
	if a != nil {
		return a.Token
	}
	return ""
}
