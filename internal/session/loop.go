package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"Mansoor88-6/pondok-tracker/internal/metrics"

	"go.uber.org/zap"
)

// DefaultInterval is the reconciliation cadence
const DefaultInterval = time.Second

// Loop advances the machine's elapsed time every interval and reconciles it
// with the agent. A poll that has not finished by the next tick keeps
// running; whichever response is newest wins.
type Loop struct {
	machine  *Machine
	interval time.Duration
	logger   *zap.Logger

	onUpdate func(lastErr error)

	mu       sync.Mutex
	lastErr  error
	started  bool
	stopped  bool
	ctx      context.Context
	cancel   context.CancelFunc
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewLoop creates a reconciliation loop for machine. A non-positive interval
// uses DefaultInterval.
func NewLoop(machine *Machine, interval time.Duration, logger *zap.Logger) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Loop{
		machine:  machine,
		interval: interval,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		stopChan: make(chan struct{}),
	}
}

// Start begins ticking. onUpdate, if non-nil, is called after every local
// advance, every applied poll and every failed poll, with the error of the
// latest finished poll. Calling Start more than once, or after Stop, does
// nothing.
func (l *Loop) Start(onUpdate func(lastErr error)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started || l.stopped {
		return
	}
	l.started = true
	l.onUpdate = onUpdate

	l.wg.Add(1)
	go l.run()

	l.logger.Debug("Reconciliation loop started", zap.Duration("interval", l.interval))
}

// Stop halts the loop and waits for in-flight polls. Responses that arrive
// afterwards are discarded. Stop is idempotent and safe before Start.
func (l *Loop) Stop() {
	l.mu.Lock()
	select {
	case <-l.stopChan:
		l.mu.Unlock()
		return
	default:
		l.stopped = true
		close(l.stopChan)
	}
	l.mu.Unlock()

	l.cancel()
	l.wg.Wait()
	l.logger.Debug("Reconciliation loop stopped")
}

// Tick runs one tick synchronously: the optimistic advance, then the
// authoritative refresh. The returned error is the poll failure, if any;
// local state is left unchanged in that case. Tick does nothing once the
// loop is stopped.
func (l *Loop) Tick(ctx context.Context) error {
	if l.isStopped() {
		return nil
	}
	l.machine.Advance()
	return l.poll(ctx)
}

func (l *Loop) run() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.machine.Advance()
			l.notify()

			l.wg.Add(1)
			go func() {
				defer l.wg.Done()
				_ = l.poll(l.ctx)
			}()
		case <-l.stopChan:
			return
		}
	}
}

func (l *Loop) poll(ctx context.Context) error {
	seq := l.machine.BeginPoll()

	snap, err := l.machine.backend.GetTrackingState(ctx)
	if err != nil {
		return l.pollFailed(fmt.Errorf("failed to get tracking state: %w", err))
	}
	records, err := l.machine.backend.GetAppUsage(ctx)
	if err != nil {
		return l.pollFailed(fmt.Errorf("failed to get app usage: %w", err))
	}

	if l.isStopped() {
		return nil
	}
	l.setLastErr(nil)

	if !l.machine.Apply(seq, snap, records) {
		metrics.PollsTotal.WithLabelValues(metrics.ResultStale).Inc()
		l.logger.Debug("Discarded stale poll", zap.Uint64("seq", seq), zap.Uint64("version", snap.Version))
		return nil
	}

	metrics.PollsTotal.WithLabelValues(metrics.ResultApplied).Inc()
	l.notify()
	return nil
}

func (l *Loop) pollFailed(err error) error {
	if l.isStopped() {
		return nil
	}
	metrics.PollsTotal.WithLabelValues(metrics.ResultFailed).Inc()
	l.logger.Warn("Reconciliation poll failed", zap.Error(err))
	l.setLastErr(err)
	l.notify()
	return err
}

func (l *Loop) isStopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopped
}

func (l *Loop) setLastErr(err error) {
	l.mu.Lock()
	l.lastErr = err
	l.mu.Unlock()
}

func (l *Loop) notify() {
	l.mu.Lock()
	fn, err := l.onUpdate, l.lastErr
	l.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}
