package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"cinefuse/internal/logging"
	"cinefuse/internal/queue"
)

// HeartbeatMonitor manages item heartbeats and stale item reclamation.
type HeartbeatMonitor struct {
	store             *queue.Store
	logger            *slog.Logger
	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration
}

// NewHeartbeatMonitor creates a new monitor.
func NewHeartbeatMonitor(store *queue.Store, logger *slog.Logger, interval, timeout time.Duration) *HeartbeatMonitor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &HeartbeatMonitor{
		store:             store,
		logger:            logger,
		heartbeatInterval: interval,
		heartbeatTimeout:  timeout,
	}
}

// ReclaimStaleItems rolls items whose heartbeats expired back to the start of
// their current stage so a lane pass can retry them.
func (h *HeartbeatMonitor) ReclaimStaleItems(ctx context.Context, logger *slog.Logger, statuses []queue.Status) error {
	if h.heartbeatTimeout <= 0 {
		return nil
	}
	if len(statuses) == 0 {
		return nil
	}
	cutoff := time.Now().Add(-h.heartbeatTimeout)
	reclaimed, err := h.store.ReclaimStaleProcessing(ctx, cutoff, statuses...)
	if err != nil {
		return err
	}
	if reclaimed > 0 {
		logger.Info("reclaimed stale items", logging.Int64("count", reclaimed))
	}
	return nil
}

// StartLoop runs a heartbeat updater for a specific item until context
// cancellation. Each tick also observes the item's stored progress and logs
// it through a sampler, so long-running stages leave a trace without a log
// line per tick.
func (h *HeartbeatMonitor) StartLoop(ctx context.Context, wg *sync.WaitGroup, itemID int64) {
	defer wg.Done()
	if h.heartbeatInterval <= 0 {
		return
	}
	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	logger := logging.WithContext(ctx, h.logger.With(logging.String("component", "workflow-heartbeat")))
	sampler := logging.NewProgressSampler(0)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.store.UpdateHeartbeat(ctx, itemID); err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Info("daemon shutting down, heartbeat update cancelled")
				} else {
					logger.Warn("heartbeat update failed", logging.Error(err))
				}
				continue
			}
			h.logProgress(ctx, logger, sampler, itemID)
		}
	}
}

func (h *HeartbeatMonitor) logProgress(ctx context.Context, logger *slog.Logger, sampler *logging.ProgressSampler, itemID int64) {
	item, err := h.store.GetByID(ctx, itemID)
	if err != nil || item == nil {
		return
	}
	if !sampler.ShouldLog(item.ProgressPercent, item.ProgressStage) {
		return
	}
	logger.Info("stage progress",
		logging.String(logging.FieldEventType, "stage_progress"),
		logging.String("progress_stage", item.ProgressStage),
		logging.Float64("percent", item.ProgressPercent),
		logging.String("message", item.ProgressMessage),
	)
}
