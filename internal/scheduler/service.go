package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"cinefuse/internal/catalog"
	"cinefuse/internal/config"
	"cinefuse/internal/film"
	"cinefuse/internal/logging"
	"cinefuse/internal/queue"
)

// Job names as registered with the cron runner and reported by Jobs.
const (
	JobRefreshStale   = "refresh-stale"
	JobTrendingImport = "trending-import"
	JobHealthLog      = "health-log"
)

// TrendingSource lists currently trending films from the primary provider.
// *tmdb.Client satisfies it.
type TrendingSource interface {
	Trending(ctx context.Context, page int) ([]film.ProviderRecord, error)
}

// Service owns the cron runner and the periodic maintenance jobs.
type Service struct {
	cfg      *config.Config
	store    *queue.Store
	catalog  *catalog.Store
	trending TrendingSource
	logger   *slog.Logger
	cron     *cron.Cron

	mu      sync.Mutex
	jobs    map[string]cron.EntryID
	running bool
	cancel  context.CancelFunc
}

// JobStatus describes one registered job for status output.
type JobStatus struct {
	Name    string    `json:"name"`
	Spec    string    `json:"spec"`
	NextRun time.Time `json:"next_run"`
}

func New(cfg *config.Config, store *queue.Store, catalogStore *catalog.Store, trending TrendingSource, logger *slog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		store:    store,
		catalog:  catalogStore,
		trending: trending,
		logger:   logging.NewComponentLogger(logger, "scheduler"),
		cron:     cron.New(),
		jobs:     make(map[string]cron.EntryID),
	}
}

// Start registers every job with a non-empty cron spec and starts the runner.
// Job contexts descend from ctx, so cancelling it interrupts in-flight runs.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("scheduler already running")
	}

	runCtx, cancel := context.WithCancel(ctx)

	jobs := []struct {
		name string
		spec string
		run  func(context.Context)
	}{
		{JobRefreshStale, s.cfg.Scheduler.RefreshSpec, s.refreshJob},
		{JobTrendingImport, s.cfg.Scheduler.TrendingSpec, s.trendingJob},
		{JobHealthLog, s.cfg.Scheduler.HealthLogSpec, s.healthLogJob},
	}
	for _, j := range jobs {
		spec := strings.TrimSpace(j.spec)
		if spec == "" {
			s.logger.Info("job disabled", logging.String("job", j.name))
			continue
		}
		schedule, err := cron.ParseStandard(spec)
		if err != nil {
			cancel()
			return fmt.Errorf("parse %s schedule %q: %w", j.name, spec, err)
		}
		run := j.run
		id := s.cron.Schedule(schedule, cron.FuncJob(func() { run(runCtx) }))
		s.jobs[j.name] = id
		s.logger.Info("job registered",
			logging.String("job", j.name),
			logging.String("spec", spec))
	}

	s.cancel = cancel
	s.running = true
	s.cron.Start()
	s.logger.Info("scheduler started", logging.Int("jobs", len(s.jobs)))
	return nil
}

// Stop cancels job contexts and waits for in-flight runs to return.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// Jobs reports the registered jobs sorted by name.
func (s *Service) Jobs() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]JobStatus, 0, len(s.jobs))
	for name, id := range s.jobs {
		statuses = append(statuses, JobStatus{
			Name:    name,
			Spec:    s.specFor(name),
			NextRun: s.cron.Entry(id).Next,
		})
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses
}

func (s *Service) specFor(name string) string {
	switch name {
	case JobRefreshStale:
		return strings.TrimSpace(s.cfg.Scheduler.RefreshSpec)
	case JobTrendingImport:
		return strings.TrimSpace(s.cfg.Scheduler.TrendingSpec)
	case JobHealthLog:
		return strings.TrimSpace(s.cfg.Scheduler.HealthLogSpec)
	}
	return ""
}

func (s *Service) refreshJob(ctx context.Context) {
	queued, err := s.RunRefresh(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("stale refresh failed", logging.Error(err))
		}
		return
	}
	if queued > 0 {
		s.logger.Info("stale films queued for refresh", logging.Int("queued", queued))
	}
}

func (s *Service) trendingJob(ctx context.Context) {
	queued, skipped, err := s.RunTrending(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("trending import failed", logging.Error(err))
		}
		return
	}
	s.logger.Info("trending import finished",
		logging.Int("queued", queued),
		logging.Int("skipped", skipped))
}

func (s *Service) healthLogJob(ctx context.Context) {
	if err := s.RunHealthLog(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("health summary failed", logging.Error(err))
	}
}

// RunRefresh queues films whose last aggregation is older than the configured
// maximum age, up to the configured batch size. Films already active in the
// queue are deduplicated by the store. It returns the number of stale films
// now ensured queued.
func (s *Service) RunRefresh(ctx context.Context) (int, error) {
	maxAge := time.Duration(s.cfg.Scheduler.RefreshMaxAgeHours) * time.Hour
	cutoff := time.Now().UTC().Add(-maxAge)

	refs, err := s.catalog.StaleFilms(ctx, cutoff, s.cfg.Scheduler.RefreshBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list stale films: %w", err)
	}

	queued := 0
	for _, ref := range refs {
		if _, err := s.store.NewFilm(ctx, ref.TMDBID, ref.IMDBID, ref.BestTitle(), ref.Year); err != nil {
			s.logger.Warn("stale film enqueue failed",
				logging.Int64("tmdb_id", ref.TMDBID),
				logging.Error(err))
			continue
		}
		queued++
	}
	return queued, nil
}

// RunTrending queues trending films that are not yet in the catalog. Records
// without a usable TMDB ID and films already cataloged are skipped. It returns
// how many films were queued and how many were skipped.
func (s *Service) RunTrending(ctx context.Context) (queued, skipped int, err error) {
	if s.trending == nil {
		return 0, 0, errors.New("trending source not configured")
	}
	pages := s.cfg.Scheduler.TrendingPages
	if pages < 1 {
		pages = 1
	}
	for page := 1; page <= pages; page++ {
		records, err := s.trending.Trending(ctx, page)
		if err != nil {
			return queued, skipped, fmt.Errorf("fetch trending page %d: %w", page, err)
		}
		for i := range records {
			ref := records[i].Ref()
			if ref.TMDBID <= 0 {
				skipped++
				continue
			}
			existing, err := s.catalog.FilmByTMDBID(ctx, ref.TMDBID)
			if err != nil {
				return queued, skipped, fmt.Errorf("check catalog for tmdb %d: %w", ref.TMDBID, err)
			}
			if existing != nil {
				skipped++
				continue
			}
			if _, err := s.store.NewFilm(ctx, ref.TMDBID, ref.IMDBID, ref.BestTitle(), ref.Year); err != nil {
				s.logger.Warn("trending enqueue failed",
					logging.Int64("tmdb_id", ref.TMDBID),
					logging.Error(err))
				skipped++
				continue
			}
			queued++
		}
	}
	return queued, skipped, nil
}

// RunHealthLog writes one summary line covering queue and catalog state.
func (s *Service) RunHealthLog(ctx context.Context) error {
	health, err := s.store.Health(ctx)
	if err != nil {
		return fmt.Errorf("queue health: %w", err)
	}
	stats, err := s.catalog.CatalogStats(ctx)
	if err != nil {
		return fmt.Errorf("catalog stats: %w", err)
	}
	s.logger.Info("periodic health summary",
		logging.Int("queue_total", health.Total),
		logging.Int("queue_pending", health.Pending),
		logging.Int("queue_processing", health.Processing),
		logging.Int("queue_failed", health.Failed),
		logging.Int("queue_review", health.Review),
		logging.Int("catalog_films", stats.Films),
		logging.Int("catalog_rated", stats.Rated),
		logging.Int("catalog_ratings", stats.Ratings))
	return nil
}
