package tracker

import (
	"sync"
	"time"

	"Mansoor88-6/pondok-tracker/internal/platform"

	"go.uber.org/zap"
)

// ActivityState is whether the user is at the keyboard
type ActivityState string

const (
	StateActive ActivityState = "active"
	StateIdle   ActivityState = "idle"
)

// ActivityTracker decides whether the user is idle. It reads the OS input
// idle time and falls back to the time since the last recorded activity
// when the platform cannot report it.
type ActivityTracker struct {
	platform      platform.Platform
	idleThreshold time.Duration
	checkInterval time.Duration
	lastActivity  time.Time
	idleFor       time.Duration
	currentState  ActivityState
	onStateChange func(ActivityState)
	now           func() time.Time
	logger        *zap.Logger
	mu            sync.RWMutex
	stopChan      chan struct{}
	wg            sync.WaitGroup
}

// NewActivityTracker creates a new activity tracker
func NewActivityTracker(
	p platform.Platform,
	idleThreshold time.Duration,
	checkInterval time.Duration,
	logger *zap.Logger,
) *ActivityTracker {
	return &ActivityTracker{
		platform:      p,
		idleThreshold: idleThreshold,
		checkInterval: checkInterval,
		lastActivity:  time.Now(),
		currentState:  StateActive,
		now:           time.Now,
		logger:        logger,
		stopChan:      make(chan struct{}),
	}
}

// Start begins checking the idle state. onStateChange may be nil.
func (at *ActivityTracker) Start(onStateChange func(ActivityState)) {
	at.mu.Lock()
	at.onStateChange = onStateChange
	at.mu.Unlock()

	at.wg.Add(1)
	go at.checkLoop()

	at.logger.Info("Activity tracker started",
		zap.Duration("idle_threshold", at.idleThreshold),
		zap.Duration("check_interval", at.checkInterval),
	)
}

// Stop stops checking. It is safe to call more than once.
func (at *ActivityTracker) Stop() {
	at.mu.Lock()
	select {
	case <-at.stopChan:
		at.mu.Unlock()
		return
	default:
		close(at.stopChan)
	}
	at.mu.Unlock()

	at.wg.Wait()
	at.logger.Info("Activity tracker stopped")
}

// GetCurrentState returns the state from the last check
func (at *ActivityTracker) GetCurrentState() ActivityState {
	at.mu.RLock()
	defer at.mu.RUnlock()
	return at.currentState
}

// IsIdle reports whether the last check found the user idle
func (at *ActivityTracker) IsIdle() bool {
	return at.GetCurrentState() == StateIdle
}

// IdleFor returns the idle time measured by the last check
func (at *ActivityTracker) IdleFor() time.Duration {
	at.mu.RLock()
	defer at.mu.RUnlock()
	return at.idleFor
}

// RecordActivity marks the user as active now, e.g. on a window switch
func (at *ActivityTracker) RecordActivity() {
	at.mu.Lock()
	at.lastActivity = at.now()
	at.idleFor = 0
	at.mu.Unlock()

	at.setState(StateActive)
}

func (at *ActivityTracker) checkLoop() {
	defer at.wg.Done()

	ticker := time.NewTicker(at.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			at.checkState()
		case <-at.stopChan:
			return
		}
	}
}

func (at *ActivityTracker) checkState() {
	at.mu.RLock()
	sinceActivity := at.now().Sub(at.lastActivity)
	at.mu.RUnlock()

	idle, err := at.platform.IdleTime()
	if err != nil {
		at.logger.Debug("Platform idle time unavailable, using last recorded activity", zap.Error(err))
		idle = sinceActivity
	} else if sinceActivity < idle {
		idle = sinceActivity
	}

	at.mu.Lock()
	at.idleFor = idle
	at.mu.Unlock()

	if idle >= at.idleThreshold {
		at.setState(StateIdle)
	} else {
		at.setState(StateActive)
	}
}

func (at *ActivityTracker) setState(newState ActivityState) {
	at.mu.Lock()
	oldState := at.currentState
	at.currentState = newState
	onStateChange := at.onStateChange
	at.mu.Unlock()

	if oldState == newState {
		return
	}

	at.logger.Info("Activity state changed",
		zap.String("old_state", string(oldState)),
		zap.String("new_state", string(newState)),
	)

	if onStateChange != nil {
		onStateChange(newState)
	}
}
