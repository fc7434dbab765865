package pipeline

import (
	"context"
	"fmt"

	"log/slog"

	json "github.com/goccy/go-json"

	"cinefuse/internal/aggregate"
	"cinefuse/internal/film"
	"cinefuse/internal/logging"
	"cinefuse/internal/queue"
	"cinefuse/internal/services"
	"cinefuse/internal/stage"
)

// Scorer normalizes the collected ratings, computes the composites, and
// stores the unified film on the queue item as the aggregation result.
type Scorer struct {
	store  *queue.Store
	orch   *aggregate.Orchestrator
	logger *slog.Logger
}

// NewScorer creates the score stage handler.
func NewScorer(store *queue.Store, orch *aggregate.Orchestrator, logger *slog.Logger) *Scorer {
	return &Scorer{
		store:  store,
		orch:   orch,
		logger: logging.NewComponentLogger(logger, "scorer"),
	}
}

// Prepare initializes progress messaging prior to Execute.
func (s *Scorer) Prepare(ctx context.Context, item *queue.Item) error {
	item.InitProgress("Scoring", "Normalizing ratings and computing composites")
	return nil
}

// Execute resumes the stored snapshot, scores it, and records the result.
func (s *Scorer) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, s.logger)
	snap, err := stage.ParseSnapshot(item.SnapshotJSON)
	if err != nil {
		return err
	}
	if snap == nil || snap.Primary == nil {
		return services.Wrap(services.ErrValidation, "score", "load snapshot",
			"Aggregation snapshot has no primary record; rerun the fetch stage", nil)
	}

	if err := s.orch.Score(ctx, snap); err != nil {
		return services.Wrap(services.ErrValidation, "score", "normalize ratings",
			"Snapshot lacks the data needed for scoring; rerun the fetch stage", err)
	}

	encoded, err := json.Marshal(snap.Unified)
	if err != nil {
		return services.Wrap(services.ErrTransient, "score", "encode result",
			"Failed to encode the unified film", err)
	}
	item.ResultJSON = string(encoded)

	item.SetProgressComplete("Scored",
		fmt.Sprintf("Composite %s from %d ratings", compositeLabel(snap.Unified), snap.Unified.RatingsCount()))
	if err := queue.PersistSnapshot(ctx, s.store, item, snap); err != nil {
		return services.Wrap(services.ErrTransient, "score", "persist snapshot",
			"Failed to store the aggregation snapshot", err)
	}

	logger.Info("film scored",
		logging.String("title", snap.Unified.Title),
		logging.Int("ratings", snap.Unified.RatingsCount()),
		logging.String("composite", compositeLabel(snap.Unified)),
	)
	return nil
}

// HealthCheck reports scorer readiness.
func (s *Scorer) HealthCheck(ctx context.Context) stage.Health {
	const name = "scorer"
	if s.orch == nil {
		return stage.Unhealthy(name, "orchestrator unavailable")
	}
	return stage.Healthy(name)
}

func compositeLabel(unified *film.Unified) string {
	if unified == nil || !unified.Composite.Valid {
		return "n/a"
	}
	return unified.Composite.Decimal.StringFixed(2)
}
