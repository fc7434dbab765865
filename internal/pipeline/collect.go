package pipeline

import (
	"context"
	"fmt"

	"log/slog"

	"cinefuse/internal/aggregate"
	"cinefuse/internal/logging"
	"cinefuse/internal/queue"
	"cinefuse/internal/services"
	"cinefuse/internal/stage"
)

// Collector merges the ratings attached to every resolved provider record
// under the source precedence policy.
type Collector struct {
	store  *queue.Store
	orch   *aggregate.Orchestrator
	logger *slog.Logger
}

// NewCollector creates the collect stage handler.
func NewCollector(store *queue.Store, orch *aggregate.Orchestrator, logger *slog.Logger) *Collector {
	return &Collector{
		store:  store,
		orch:   orch,
		logger: logging.NewComponentLogger(logger, "collector"),
	}
}

// Prepare initializes progress messaging prior to Execute.
func (c *Collector) Prepare(ctx context.Context, item *queue.Item) error {
	item.InitProgress("Collecting ratings", "Gathering ratings from resolved providers")
	return nil
}

// Execute resumes the stored snapshot and merges the collected ratings.
func (c *Collector) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, c.logger)
	snap, err := stage.ParseSnapshot(item.SnapshotJSON)
	if err != nil {
		return err
	}
	if snap == nil || snap.Primary == nil {
		return services.Wrap(services.ErrValidation, "collect", "load snapshot",
			"Aggregation snapshot has no primary record; rerun the fetch stage", nil)
	}

	if err := c.orch.Collect(ctx, snap); err != nil {
		return err
	}

	providers := 1 + len(snap.Secondary)
	item.SetProgressComplete("Collected", fmt.Sprintf("%d ratings from %d providers", len(snap.Ratings), providers))
	if err := queue.PersistSnapshot(ctx, c.store, item, snap); err != nil {
		return services.Wrap(services.ErrTransient, "collect", "persist snapshot",
			"Failed to store the aggregation snapshot", err)
	}

	logger.Info("ratings collected",
		logging.Int("ratings", len(snap.Ratings)),
		logging.Int("providers", providers),
		logging.String("title", item.DisplayTitle()),
	)
	return nil
}

// HealthCheck reports collector readiness.
func (c *Collector) HealthCheck(ctx context.Context) stage.Health {
	const name = "collector"
	if c.orch == nil {
		return stage.Unhealthy(name, "orchestrator unavailable")
	}
	return stage.Healthy(name)
}
