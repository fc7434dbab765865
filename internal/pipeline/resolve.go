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

// Resolver locates the primary film inside every enabled secondary provider.
// A secondary miss or fault degrades the rating set; it never fails the item.
type Resolver struct {
	store  *queue.Store
	orch   *aggregate.Orchestrator
	logger *slog.Logger
}

// NewResolver creates the resolve stage handler.
func NewResolver(store *queue.Store, orch *aggregate.Orchestrator, logger *slog.Logger) *Resolver {
	return &Resolver{
		store:  store,
		orch:   orch,
		logger: logging.NewComponentLogger(logger, "resolver"),
	}
}

// Prepare initializes progress messaging prior to Execute.
func (r *Resolver) Prepare(ctx context.Context, item *queue.Item) error {
	item.InitProgress("Resolving identifiers", "Matching film in secondary providers")
	return nil
}

// Execute resumes the stored snapshot and runs secondary resolution.
func (r *Resolver) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, r.logger)
	snap, err := stage.ParseSnapshot(item.SnapshotJSON)
	if err != nil {
		return err
	}
	if snap == nil || snap.Primary == nil {
		return services.Wrap(services.ErrValidation, "resolve", "load snapshot",
			"Aggregation snapshot has no primary record; rerun the fetch stage", nil)
	}

	if err := r.orch.Resolve(ctx, snap); err != nil {
		return err
	}

	item.SetProgressComplete("Resolved", fmt.Sprintf("Matched in %d secondary providers", len(snap.Secondary)))
	if err := queue.PersistSnapshot(ctx, r.store, item, snap); err != nil {
		return services.Wrap(services.ErrTransient, "resolve", "persist snapshot",
			"Failed to store the aggregation snapshot", err)
	}

	logger.Info("secondary resolution finished",
		logging.Int("secondary_records", len(snap.Secondary)),
		logging.String("title", item.DisplayTitle()),
	)
	return nil
}

// HealthCheck reports resolver readiness.
func (r *Resolver) HealthCheck(ctx context.Context) stage.Health {
	const name = "resolver"
	if r.orch == nil {
		return stage.Unhealthy(name, "orchestrator unavailable")
	}
	return stage.Healthy(name)
}
