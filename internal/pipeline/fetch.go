package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"log/slog"

	"cinefuse/internal/aggregate"
	"cinefuse/internal/config"
	"cinefuse/internal/logging"
	"cinefuse/internal/queue"
	"cinefuse/internal/services"
	"cinefuse/internal/stage"
)

// Fetcher establishes the primary TMDB record for a queue item and seeds the
// aggregation snapshot. It is the only stage that can improve the item's own
// identity fields: a title-only item leaves fetch with concrete IDs.
type Fetcher struct {
	cfg    *config.Config
	store  *queue.Store
	orch   *aggregate.Orchestrator
	logger *slog.Logger
}

// NewFetcher creates the fetch stage handler.
func NewFetcher(cfg *config.Config, store *queue.Store, orch *aggregate.Orchestrator, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		cfg:    cfg,
		store:  store,
		orch:   orch,
		logger: logging.NewComponentLogger(logger, "fetcher"),
	}
}

// Prepare verifies the item carries enough identity to attempt a lookup and
// initializes progress messaging.
func (f *Fetcher) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, f.logger)
	ref, err := item.FilmRef()
	if err != nil {
		return services.Wrap(services.ErrValidation, "fetch", "derive reference",
			"Queue item needs a TMDB ID, IMDb ID, or title before aggregation can start", err)
	}
	item.InitProgress("Fetching metadata", "Looking up primary record")
	logger.Info("starting primary fetch",
		logging.String("ref", ref.String()),
		logging.Int64("tmdb_id", item.TMDBID),
	)
	return nil
}

// Execute performs the primary lookup and writes the opening snapshot. On
// success the item's identity fields are refreshed from the authoritative
// provider record.
func (f *Fetcher) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, f.logger)
	ref, err := item.FilmRef()
	if err != nil {
		return services.Wrap(services.ErrValidation, "fetch", "derive reference",
			"Queue item carries no usable film reference", err)
	}

	snap := aggregate.NewSnapshot(ref)
	if err := f.orch.FetchPrimary(ctx, snap); err != nil {
		if ctx.Err() != nil || retryable(err) {
			return err
		}
		return services.Wrap(services.ErrNotFound, "fetch", "locate primary record",
			"No primary match for the reference; correct the identifiers or title", err)
	}

	resolved := snap.Primary.Ref()
	if resolved.TMDBID > 0 {
		item.TMDBID = resolved.TMDBID
	}
	if resolved.IMDBID != "" {
		item.IMDBID = resolved.IMDBID
	}
	if title := snap.Primary.BestTitle(); title != "" {
		item.Title = title
	}
	if snap.Primary.Year > 0 {
		item.Year = snap.Primary.Year
	}

	item.SetProgressComplete("Fetched", fmt.Sprintf("Primary match: %s", item.DisplayTitle()))
	if err := queue.PersistSnapshot(ctx, f.store, item, snap); err != nil {
		return services.Wrap(services.ErrTransient, "fetch", "persist snapshot",
			"Failed to store the aggregation snapshot", err)
	}

	logger.Info("primary record fetched",
		logging.Int64("tmdb_id", item.TMDBID),
		logging.String("imdb_id", item.IMDBID),
		logging.String("title", item.Title),
		logging.Int("year", item.Year),
	)
	return nil
}

// HealthCheck verifies the primary provider is configured.
func (f *Fetcher) HealthCheck(ctx context.Context) stage.Health {
	const name = "fetcher"
	if f.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(f.cfg.TMDB.APIKey) == "" {
		return stage.Unhealthy(name, "tmdb api key missing")
	}
	if f.orch == nil {
		return stage.Unhealthy(name, "orchestrator unavailable")
	}
	return stage.Healthy(name)
}

// retryable reports whether an aggregation failure stems from a provider or
// transport fault that a requeue could clear. Everything else is treated as a
// definitive miss.
func retryable(err error) bool {
	return errors.Is(err, services.ErrServer) ||
		errors.Is(err, services.ErrTransport) ||
		errors.Is(err, services.ErrRateLimited) ||
		errors.Is(err, services.ErrTimeout)
}
