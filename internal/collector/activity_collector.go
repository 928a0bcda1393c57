package collector

import (
	"sync"
	"time"

	"Mansoor88-6/pondok-tracker/internal/models"

	"go.uber.org/zap"
)

// ActivityCollector batches activities and hands full or aged batches to a callback
type ActivityCollector struct {
	activities    []models.SessionActivity
	batchSize     int
	flushInterval time.Duration
	onBatchReady  func([]models.SessionActivity)
	logger        *zap.Logger
	mu            sync.Mutex
	flushTicker   *time.Ticker
	stopChan      chan struct{}
	wg            sync.WaitGroup
}

// NewActivityCollector creates a new activity collector
func NewActivityCollector(
	batchSize int,
	flushInterval time.Duration,
	logger *zap.Logger,
) *ActivityCollector {
	return &ActivityCollector{
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        logger,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the collector with auto-flush
func (c *ActivityCollector) Start(onBatchReady func([]models.SessionActivity)) {
	c.mu.Lock()
	c.onBatchReady = onBatchReady
	c.mu.Unlock()

	c.flushTicker = time.NewTicker(c.flushInterval)

	c.wg.Add(1)
	go c.autoFlushLoop()

	c.logger.Info("Activity collector started",
		zap.Int("batch_size", c.batchSize),
		zap.Duration("flush_interval", c.flushInterval),
	)
}

// Stop stops the auto-flush loop and flushes what is left
func (c *ActivityCollector) Stop() {
	c.mu.Lock()
	select {
	case <-c.stopChan:
		c.mu.Unlock()
		return
	default:
		close(c.stopChan)
	}
	c.mu.Unlock()

	c.wg.Wait()
	if c.flushTicker != nil {
		c.flushTicker.Stop()
	}

	c.Flush()
	c.logger.Info("Activity collector stopped")
}

// Add appends an activity, flushing when the batch is full
func (c *ActivityCollector) Add(a models.SessionActivity) {
	c.mu.Lock()
	c.activities = append(c.activities, a)
	var batch []models.SessionActivity
	if len(c.activities) >= c.batchSize {
		batch = c.takeLocked()
	}
	cb := c.onBatchReady
	c.mu.Unlock()

	if batch != nil {
		c.logger.Debug("Batch size reached, flushing activities", zap.Int("count", len(batch)))
		if cb != nil {
			cb(batch)
		}
	}
}

// Flush hands all pending activities to the callback
func (c *ActivityCollector) Flush() {
	c.mu.Lock()
	if len(c.activities) == 0 {
		c.mu.Unlock()
		return
	}
	batch := c.takeLocked()
	cb := c.onBatchReady
	c.mu.Unlock()

	c.logger.Debug("Flushing activities", zap.Int("count", len(batch)))
	if cb != nil {
		cb(batch)
	}
}

// PendingCount returns the number of activities not yet flushed
func (c *ActivityCollector) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.activities)
}

func (c *ActivityCollector) takeLocked() []models.SessionActivity {
	batch := make([]models.SessionActivity, len(c.activities))
	copy(batch, c.activities)
	c.activities = c.activities[:0]
	return batch
}

func (c *ActivityCollector) autoFlushLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.flushTicker.C:
			c.Flush()
		case <-c.stopChan:
			return
		}
	}
}
