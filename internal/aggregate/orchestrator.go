package aggregate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"cinefuse/internal/config"
	"cinefuse/internal/film"
	"cinefuse/internal/identity"
	"cinefuse/internal/logging"
	"cinefuse/internal/metrics"
	"cinefuse/internal/providers"
	"cinefuse/internal/rating"
)

// Orchestrator drives aggregation requests through their phases. It holds no
// per-request state; every invocation works on its own Snapshot, so one
// orchestrator serves all concurrent aggregations.
type Orchestrator struct {
	set      *providers.Set
	resolver *identity.Resolver
	weights  map[string]float64
	logger   *slog.Logger
}

// New builds an orchestrator over the constructed provider set. A nil
// resolver gets a default one; the weight table comes from configuration.
func New(set *providers.Set, resolver *identity.Resolver, cfg *config.Config, logger *slog.Logger) *Orchestrator {
	var weights map[string]float64
	if cfg != nil {
		weights = cfg.Composite.Weights
	}
	if resolver == nil {
		resolver = identity.New(logger)
	}
	return &Orchestrator{
		set:      set,
		resolver: resolver,
		weights:  weights,
		logger:   logging.NewComponentLogger(logger, "aggregate"),
	}
}

// Aggregate runs every phase in order and returns the unified film. This is
// the one-shot contract; the pipeline calls the phase methods individually
// so it can persist the snapshot between them.
func (o *Orchestrator) Aggregate(ctx context.Context, ref film.Ref) (*film.Unified, error) {
	snap := NewSnapshot(ref)
	if err := o.FetchPrimary(ctx, snap); err != nil {
		return nil, err
	}
	if err := o.Resolve(ctx, snap); err != nil {
		return nil, err
	}
	if err := o.Collect(ctx, snap); err != nil {
		return nil, err
	}
	if err := o.Score(ctx, snap); err != nil {
		return nil, err
	}
	return snap.Unified, nil
}

// FetchPrimary establishes the primary record for the snapshot's reference.
// A miss or identity mismatch triggers title-search recovery: search by the
// best known title, then re-issue a direct lookup against the first
// candidate's ID. Failure here is fatal to the whole aggregation.
func (o *Orchestrator) FetchPrimary(ctx context.Context, snap *Snapshot) error {
	snap.State = StateFetchingPrimary
	if o.set == nil || o.set.TMDB == nil {
		return o.fail(snap, errors.New("primary provider not configured"))
	}
	if !snap.Ref.HasIdentity() {
		return o.fail(snap, errors.New("reference carries no identity"))
	}

	record, err := o.lookupPrimary(ctx, snap.Ref)
	if err != nil {
		return o.fail(snap, err)
	}
	if record == nil {
		record, err = o.recoverPrimary(ctx, snap.Ref)
		if err != nil {
			return o.fail(snap, err)
		}
	}
	if record == nil {
		return o.fail(snap, fmt.Errorf("primary record not found for %s", snap.Ref))
	}
	snap.Primary = record
	o.logger.Debug("primary record established",
		logging.String(logging.FieldProvider, record.Provider.String()),
		logging.String("native_id", record.NativeID),
		logging.String("title", record.BestTitle()),
		logging.Int("year", record.Year),
	)
	return nil
}

func (o *Orchestrator) lookupPrimary(ctx context.Context, ref film.Ref) (*film.ProviderRecord, error) {
	if ref.TMDBID > 0 {
		return o.set.TMDB.GetByNativeID(ctx, strconv.FormatInt(ref.TMDBID, 10))
	}
	if strings.TrimSpace(ref.IMDBID) != "" {
		return o.set.TMDB.FindByCrossRefID(ctx, ref.IMDBID)
	}
	return nil, nil
}

func (o *Orchestrator) recoverPrimary(ctx context.Context, ref film.Ref) (*film.ProviderRecord, error) {
	title := ref.BestTitle()
	if title == "" {
		return nil, nil
	}
	candidates, err := o.set.TMDB.SearchByTitle(ctx, title, ref.Year, 1)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	// Search results are thin; the direct lookup fills cross-references and
	// the native rating, and re-verifies the ID.
	record, err := o.set.TMDB.GetByNativeID(ctx, candidates[0].NativeID)
	if err != nil {
		return nil, err
	}
	if record != nil {
		attrs := logging.DecisionAttrs("primary_recovery", "recovered", "title search")
		attrs = append(attrs,
			logging.String("query", title),
			logging.String("native_id", record.NativeID),
		)
		o.logger.Debug("primary recovered via title search", logging.Args(attrs...)...)
	}
	return record, nil
}

// Resolve locates the primary film inside every enabled secondary provider.
// Individual failures degrade to fewer ratings and never abort the request.
func (o *Orchestrator) Resolve(ctx context.Context, snap *Snapshot) error {
	snap.State = StateResolvingSecondary
	if snap.Primary == nil {
		return o.fail(snap, errors.New("resolve requires a primary record"))
	}

	ref := snap.Primary.Ref()
	if ref.IMDBID == "" {
		ref.IMDBID = strings.TrimSpace(snap.Ref.IMDBID)
	}

	snap.Secondary = snap.Secondary[:0]
	for _, adapter := range o.secondaries() {
		record, err := o.resolver.Resolve(ctx, adapter, ref)
		if err != nil {
			logging.WarnWithContext(o.logger, "secondary resolution failed", "aggregate_resolve_failed",
				logging.String(logging.FieldProvider, adapter.Tag().String()),
				logging.String("ref", ref.String()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "verify provider connectivity and API key"),
				logging.String(logging.FieldImpact, "fewer sources will contribute ratings"),
			)
			continue
		}
		if record == nil {
			continue
		}
		snap.Secondary = append(snap.Secondary, *record)
	}
	return nil
}

func (o *Orchestrator) secondaries() []providers.Adapter {
	adapters := make([]providers.Adapter, 0, 2)
	if o.set.OMDB != nil {
		adapters = append(adapters, o.set.OMDB)
	}
	if o.set.Kinopoisk != nil {
		adapters = append(adapters, o.set.Kinopoisk)
	}
	return adapters
}

// Collect merges the ratings of every resolved record under the provider
// precedence policy. The adapters already attached each record's ratings, so
// this phase is pure bookkeeping.
func (o *Orchestrator) Collect(ctx context.Context, snap *Snapshot) error {
	snap.State = StateCollectingRatings
	if snap.Primary == nil {
		return o.fail(snap, errors.New("collect requires a primary record"))
	}
	records := make([]film.ProviderRecord, 0, 1+len(snap.Secondary))
	records = append(records, *snap.Primary)
	records = append(records, snap.Secondary...)
	snap.Ratings = rating.Merge(records)
	return nil
}

// Score normalizes the collected set, computes the composites, and assembles
// the unified film. A rating that cannot be normalized is skipped alone.
func (o *Orchestrator) Score(ctx context.Context, snap *Snapshot) error {
	snap.State = StateNormalizing
	if snap.Primary == nil {
		return o.fail(snap, errors.New("score requires a primary record"))
	}

	records := make([]film.ProviderRecord, 0, 1+len(snap.Secondary))
	records = append(records, *snap.Primary)
	records = append(records, snap.Secondary...)

	unified := &film.Unified{
		Records:      records,
		AggregatedAt: time.Now().UTC(),
	}
	fillIdentity(unified, records)

	for _, raw := range snap.Ratings {
		nr, err := rating.Normalize(raw)
		if err != nil {
			logging.WarnWithContext(o.logger, "rating skipped", "aggregate_rating_skipped",
				logging.String(logging.FieldSource, raw.Source.String()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "inspect the provider payload for a malformed scale"),
				logging.String(logging.FieldImpact, "one rating excluded from the composite"),
			)
			continue
		}
		unified.PutRating(nr)
		metrics.RatingsCollectedTotal.WithLabelValues(raw.Source.String()).Inc()
	}

	unified.Composite = rating.Composite(unified.Ratings)
	unified.Weighted = rating.WeightedComposite(unified.Ratings, o.weights)
	if unified.Composite.Valid {
		metrics.CompositeScore.Observe(unified.Composite.Decimal.InexactFloat64())
	}

	snap.Unified = unified
	snap.State = StateDone
	o.logger.Info("aggregation complete",
		logging.String("title", unified.Title),
		logging.Int("year", unified.Year),
		logging.Int("ratings", unified.RatingsCount()),
		logging.String("composite", compositeString(unified)),
	)
	return nil
}

func (o *Orchestrator) fail(snap *Snapshot, err error) error {
	phase := snap.State
	snap.State = StateFailed
	logging.ErrorWithContext(o.logger, "aggregation failed", "aggregate_failed",
		logging.String("ref", snap.Ref.String()),
		logging.String("phase", string(phase)),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "verify the reference identifiers and primary provider health"),
	)
	return &AggregationError{Ref: snap.Ref, State: phase, Err: err}
}

// fillIdentity populates the unified film's canonical fields, primary record
// first, secondaries as fallbacks in resolution order.
func fillIdentity(unified *film.Unified, records []film.ProviderRecord) {
	for i := range records {
		rec := &records[i]
		if unified.Title == "" {
			unified.Title = rec.Title
		}
		if unified.OriginalTitle == "" {
			unified.OriginalTitle = rec.OriginalTitle
		}
		if unified.Year == 0 {
			unified.Year = rec.Year
		}
		if unified.IMDBID == "" {
			unified.IMDBID = rec.CrossRefID
		}
		switch rec.Provider {
		case film.ProviderTMDB:
			if unified.TMDBID == 0 {
				if id, err := strconv.ParseInt(rec.NativeID, 10, 64); err == nil {
					unified.TMDBID = id
				}
			}
		case film.ProviderKinopoisk:
			if unified.KinopoiskID == "" {
				unified.KinopoiskID = rec.NativeID
			}
		}
	}
}

func compositeString(unified *film.Unified) string {
	if !unified.Composite.Valid {
		return "null"
	}
	return unified.Composite.Decimal.StringFixed(2)
}
