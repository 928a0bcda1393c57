package tracker

import (
	"sync"
	"time"

	"Mansoor88-6/pondok-tracker/internal/platform"

	"go.uber.org/zap"
)

// WindowTracker polls the foreground window and reports changes
type WindowTracker struct {
	platform      platform.Platform
	pollInterval  time.Duration
	currentWindow *platform.WindowInfo
	onChange      func(*platform.WindowInfo)
	logger        *zap.Logger
	stopChan      chan struct{}
	wg            sync.WaitGroup
	mu            sync.RWMutex
}

// NewWindowTracker creates a new window tracker
func NewWindowTracker(p platform.Platform, pollInterval time.Duration, logger *zap.Logger) *WindowTracker {
	return &WindowTracker{
		platform:     p,
		pollInterval: pollInterval,
		logger:       logger,
		stopChan:     make(chan struct{}),
	}
}

// Start begins polling. onChange may be nil.
func (wt *WindowTracker) Start(onChange func(*platform.WindowInfo)) {
	wt.mu.Lock()
	wt.onChange = onChange
	wt.mu.Unlock()

	wt.wg.Add(1)
	go wt.pollLoop()

	wt.logger.Info("Window tracker started",
		zap.Duration("poll_interval", wt.pollInterval),
	)
}

// Stop stops polling. It is safe to call more than once.
func (wt *WindowTracker) Stop() {
	wt.mu.Lock()
	select {
	case <-wt.stopChan:
		wt.mu.Unlock()
		return
	default:
		close(wt.stopChan)
	}
	wt.mu.Unlock()

	wt.wg.Wait()
	wt.logger.Info("Window tracker stopped")
}

// GetCurrentWindow returns the last observed foreground window, or nil
// before the first successful poll
func (wt *WindowTracker) GetCurrentWindow() *platform.WindowInfo {
	wt.mu.RLock()
	defer wt.mu.RUnlock()
	return wt.currentWindow
}

func (wt *WindowTracker) pollLoop() {
	defer wt.wg.Done()

	ticker := time.NewTicker(wt.pollInterval)
	defer ticker.Stop()

	wt.checkWindow()

	for {
		select {
		case <-ticker.C:
			wt.checkWindow()
		case <-wt.stopChan:
			return
		}
	}
}

func (wt *WindowTracker) checkWindow() {
	window, err := wt.platform.GetActiveWindow()
	if err != nil {
		wt.logger.Debug("Failed to get active window", zap.Error(err))
		return
	}
	if window == nil {
		return
	}

	select {
	case <-wt.stopChan:
		return
	default:
	}

	wt.mu.Lock()
	if !windowChanged(wt.currentWindow, window) {
		wt.mu.Unlock()
		return
	}
	wt.currentWindow = window
	onChange := wt.onChange
	wt.mu.Unlock()

	wt.logger.Debug("Window changed",
		zap.String("application", window.Application),
		zap.String("title", window.Title),
	)

	if onChange != nil {
		onChange(window)
	}
}

func windowChanged(prev, cur *platform.WindowInfo) bool {
	if prev == nil {
		return true
	}
	return prev.ProcessID != cur.ProcessID ||
		prev.Title != cur.Title ||
		prev.Application != cur.Application
}
