package pipeline

import (
	"context"
	"fmt"

	"log/slog"

	"cinefuse/internal/catalog"
	"cinefuse/internal/config"
	"cinefuse/internal/logging"
	"cinefuse/internal/metrics"
	"cinefuse/internal/notifications"
	"cinefuse/internal/queue"
	"cinefuse/internal/services"
	"cinefuse/internal/stage"
)

// Publisher writes the scored film into the catalog and announces completion.
type Publisher struct {
	store    *queue.Store
	catalog  *catalog.Store
	logger   *slog.Logger
	notifier notifications.Service
}

// NewPublisher creates the publish stage handler.
func NewPublisher(cfg *config.Config, store *queue.Store, catalogStore *catalog.Store, logger *slog.Logger) *Publisher {
	return NewPublisherWithNotifier(store, catalogStore, logger, notifications.NewService(cfg))
}

// NewPublisherWithNotifier allows injecting the notification service (used in tests).
func NewPublisherWithNotifier(store *queue.Store, catalogStore *catalog.Store, logger *slog.Logger, notifier notifications.Service) *Publisher {
	return &Publisher{
		store:    store,
		catalog:  catalogStore,
		logger:   logging.NewComponentLogger(logger, "publisher"),
		notifier: notifier,
	}
}

// Prepare initializes progress messaging prior to Execute.
func (p *Publisher) Prepare(ctx context.Context, item *queue.Item) error {
	item.InitProgress("Publishing", "Writing film to catalog")
	return nil
}

// Execute upserts the unified film into the catalog.
func (p *Publisher) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, p.logger)
	snap, err := stage.ParseSnapshot(item.SnapshotJSON)
	if err != nil {
		return err
	}
	if snap == nil || snap.Unified == nil {
		return services.Wrap(services.ErrValidation, "publish", "load snapshot",
			"Scored result missing from the snapshot; rerun the scoring stage", nil)
	}

	unified := snap.Unified
	if err := p.catalog.UpsertUnified(ctx, unified); err != nil {
		return services.Wrap(services.ErrTransient, "publish", "upsert film",
			"Failed to write the film into the catalog", err)
	}
	metrics.FilmsPublishedTotal.Inc()

	title := unified.Title
	if title == "" {
		title = item.DisplayTitle()
	}
	composite := ""
	if unified.Composite.Valid {
		composite = unified.Composite.Decimal.StringFixed(2)
	}
	if p.notifier != nil {
		if err := p.notifier.NotifyAggregationCompleted(ctx, title, composite, unified.RatingsCount()); err != nil {
			logger.Warn("completion notification failed", logging.Error(err))
		}
	}

	item.SetProgressComplete("Published", fmt.Sprintf("Published %s to the catalog", title))
	logger.Info("film published",
		logging.Int64("tmdb_id", unified.TMDBID),
		logging.String("title", title),
		logging.Int("ratings", unified.RatingsCount()),
		logging.String("composite", compositeLabel(unified)),
	)
	return nil
}

// HealthCheck verifies the catalog store is available.
func (p *Publisher) HealthCheck(ctx context.Context) stage.Health {
	const name = "publisher"
	if p.catalog == nil {
		return stage.Unhealthy(name, "catalog store unavailable")
	}
	return stage.Healthy(name)
}
