package agent

import (
	"Mansoor88-6/pondok-tracker/internal/metrics"
	"Mansoor88-6/pondok-tracker/internal/models"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// activityGroup is the part of a batch that belongs to one session
type activityGroup struct {
	trackingID int64
	items      []models.SessionActivity
	ids        []int64 // queue row ids, when the group came from the queue
}

func (g activityGroup) activities() []models.Activity {
	out := make([]models.Activity, len(g.items))
	for i, item := range g.items {
		out[i] = item.Activity
	}
	return out
}

// groupBySession splits activities per tracking id, keeping the order in
// which sessions first appear. ids, if given, runs parallel to items.
func groupBySession(items []models.SessionActivity, ids []int64) []activityGroup {
	var groups []activityGroup
	index := make(map[int64]int)

	for i, item := range items {
		gi, ok := index[item.TrackingID]
		if !ok {
			gi = len(groups)
			index[item.TrackingID] = gi
			groups = append(groups, activityGroup{trackingID: item.TrackingID})
		}
		groups[gi].items = append(groups[gi].items, item)
		if ids != nil {
			groups[gi].ids = append(groups[gi].ids, ids[i])
		}
	}
	return groups
}

// onBatchReady sends a collected batch, queueing whatever cannot be sent
func (e *Engine) onBatchReady(batch []models.SessionActivity) {
	if len(batch) == 0 {
		return
	}

	e.mu.RLock()
	stopped := e.stopped
	token := tokenOr("", e.activation)
	e.mu.RUnlock()

	for _, g := range groupBySession(batch, nil) {
		if !stopped && token != "" {
			if err := e.send(token, g); err == nil {
				continue
			}
		}
		if err := e.queue.Enqueue(g.items); err != nil {
			e.logger.Error("Failed to queue activities",
				zap.Error(err),
				zap.Int64("tracking_id", g.trackingID),
				zap.Int("activity_count", len(g.items)),
			)
			if stopped {
				e.mu.Lock()
				e.shutdownErr = multierror.Append(e.shutdownErr, err)
				e.mu.Unlock()
			}
		}
	}

	e.updatePendingGauge()
}

func (e *Engine) send(token string, g activityGroup) error {
	batchID := uuid.New().String()
	err := e.remote.SyncActivities(e.ctx, models.SyncRequest{
		Token:      token,
		TrackingID: g.trackingID,
		BatchID:    batchID,
		Activities: g.activities(),
	})
	if err != nil {
		metrics.SyncBatchesTotal.WithLabelValues(metrics.ResultFailed).Inc()
		e.logger.Warn("Failed to sync activities",
			zap.Error(err),
			zap.String("batch_id", batchID),
			zap.Int64("tracking_id", g.trackingID),
			zap.Int("activity_count", len(g.items)),
		)
		return err
	}
	metrics.SyncBatchesTotal.WithLabelValues(metrics.ResultOK).Inc()
	return nil
}

// processQueue retries activities that failed to sync earlier
func (e *Engine) processQueue() {
	e.mu.RLock()
	token := tokenOr("", e.activation)
	e.mu.RUnlock()

	if token != "" {
		items, ids, err := e.queue.Dequeue(queueBatchLimit)
		if err != nil {
			e.logger.Error("Failed to dequeue activities", zap.Error(err))
			return
		}

		for _, g := range groupBySession(items, ids) {
			if err := e.send(token, g); err != nil {
				if err := e.queue.IncrementRetry(g.ids); err != nil {
					e.logger.Error("Failed to increment retry count", zap.Error(err))
				}
				continue
			}
			if err := e.queue.Remove(g.ids); err != nil {
				e.logger.Error("Failed to remove sent activities from queue", zap.Error(err))
				continue
			}
			e.logger.Info("Sent queued activities",
				zap.Int64("tracking_id", g.trackingID),
				zap.Int("activity_count", len(g.items)),
			)
		}
	}

	if _, err := e.queue.Cleanup(queueMaxAge); err != nil {
		e.logger.Error("Failed to cleanup queued activities", zap.Error(err))
	}
	e.updatePendingGauge()
}

func (e *Engine) heartbeat() {
	e.mu.RLock()
	token := tokenOr("", e.activation)
	e.mu.RUnlock()

	if token == "" {
		return
	}
	if err := e.remote.Heartbeat(e.ctx, token); err != nil {
		e.logger.Warn("Heartbeat failed", zap.Error(err))
	}
}

func (e *Engine) updatePendingGauge() {
	if pending, err := e.queue.PendingCount(); err == nil {
		metrics.PendingActivities.Set(float64(pending))
	}
}
