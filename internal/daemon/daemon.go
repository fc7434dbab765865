package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"

	"cinefuse/internal/aggregate"
	"cinefuse/internal/catalog"
	"cinefuse/internal/config"
	"cinefuse/internal/film"
	"cinefuse/internal/logging"
	"cinefuse/internal/notifications"
	"cinefuse/internal/providers"
	"cinefuse/internal/queue"
	"cinefuse/internal/scheduler"
	"cinefuse/internal/workflow"
)

// Components bundles the constructed subsystems the daemon coordinates.
// Store and Workflow are mandatory; the rest degrade to guarded nil checks
// so tests can run a daemon with only the pieces they exercise.
type Components struct {
	Store        *queue.Store
	Catalog      *catalog.Store
	Workflow     *workflow.Manager
	Providers    *providers.Set
	Orchestrator *aggregate.Orchestrator
	Scheduler    *scheduler.Service
	Notifier     notifications.Service
	LogPath      string
	LogStream    *logging.StreamHub
	LogArchive   *logging.EventArchive
}

// Daemon coordinates the aggregation services and enforces single-instance
// execution via a file lock in the log directory.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	parts  Components
	api    *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	PID           int
	Workflow      workflow.StatusSummary
	QueueDBPath   string
	CatalogDBPath string
	LockFilePath  string
	Scheduler     []scheduler.JobStatus
	Catalog       catalog.Stats
}

// New constructs a daemon around already-initialized components.
func New(cfg *config.Config, logger *slog.Logger, parts Components) (*Daemon, error) {
	if cfg == nil || parts.Store == nil || parts.Workflow == nil {
		return nil, errors.New("daemon requires config, queue store, and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if parts.Notifier == nil {
		parts.Notifier = notifications.NewService(cfg)
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "cinefused.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		parts:    parts,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	apiSrv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = apiSrv
	return d, nil
}

// Start launches the workflow manager, scheduler, and API server after
// acquiring the daemon lock.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another cinefuse daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.parts.Workflow.Start(d.ctx); err != nil {
		d.unwindStart()
		return fmt.Errorf("start workflow: %w", err)
	}
	if d.parts.Scheduler != nil {
		if err := d.parts.Scheduler.Start(d.ctx); err != nil {
			d.parts.Workflow.Stop()
			d.unwindStart()
			return fmt.Errorf("start scheduler: %w", err)
		}
	}
	if err := d.api.start(d.ctx); err != nil {
		if d.parts.Scheduler != nil {
			d.parts.Scheduler.Stop()
		}
		d.parts.Workflow.Stop()
		d.unwindStart()
		return err
	}

	d.running.Store(true)
	d.logger.Info("cinefuse daemon started",
		logging.String(logging.FieldEventType, "daemon_start"),
		logging.String("lock", d.lockPath))
	if err := d.parts.Notifier.NotifyDaemonStarted(d.ctx); err != nil {
		d.logger.Warn("daemon start notification failed", logging.Error(err))
	}
	return nil
}

func (d *Daemon) unwindStart() {
	_ = d.lock.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
	d.ctx = nil
	d.cancel = nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if err := d.parts.Notifier.NotifyDaemonStopped(context.Background()); err != nil {
		d.logger.Warn("daemon stop notification failed", logging.Error(err))
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	if d.parts.Scheduler != nil {
		d.parts.Scheduler.Stop()
	}
	d.parts.Workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("cinefuse daemon stopped",
		logging.String(logging.FieldEventType, "daemon_stop"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	var errs []error
	if d.parts.Catalog != nil {
		errs = append(errs, d.parts.Catalog.Close())
	}
	if d.parts.Store != nil {
		errs = append(errs, d.parts.Store.Close())
	}
	return errors.Join(errs...)
}

// Running reports whether the daemon has been started.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// ListQueue returns queue items filtered by optional statuses.
func (d *Daemon) ListQueue(ctx context.Context, statuses []queue.Status) ([]*queue.Item, error) {
	if d.parts.Store == nil {
		return nil, errors.New("queue store unavailable")
	}
	if len(statuses) == 0 {
		return d.parts.Store.List(ctx)
	}
	return d.parts.Store.List(ctx, statuses...)
}

// GetQueueItem fetches a single queue item by id.
func (d *Daemon) GetQueueItem(ctx context.Context, id int64) (*queue.Item, error) {
	if d.parts.Store == nil {
		return nil, errors.New("queue store unavailable")
	}
	return d.parts.Store.GetByID(ctx, id)
}

// ClearQueue removes all queue items.
func (d *Daemon) ClearQueue(ctx context.Context) (int64, error) {
	if d.parts.Store == nil {
		return 0, errors.New("queue store unavailable")
	}
	return d.parts.Store.Clear(ctx)
}

// ClearCompleted removes only completed queue items.
func (d *Daemon) ClearCompleted(ctx context.Context) (int64, error) {
	if d.parts.Store == nil {
		return 0, errors.New("queue store unavailable")
	}
	return d.parts.Store.ClearCompleted(ctx)
}

// ClearFailed removes only failed queue items.
func (d *Daemon) ClearFailed(ctx context.Context) (int64, error) {
	if d.parts.Store == nil {
		return 0, errors.New("queue store unavailable")
	}
	return d.parts.Store.ClearFailed(ctx)
}

// ResetStuck transitions in-flight items back to their stage start status.
func (d *Daemon) ResetStuck(ctx context.Context) (int64, error) {
	if d.parts.Store == nil {
		return 0, errors.New("queue store unavailable")
	}
	return d.parts.Store.ResetStuckProcessing(ctx)
}

// RetryFailed resets failed items (optionally a subset) back to pending.
func (d *Daemon) RetryFailed(ctx context.Context, ids []int64) (int64, error) {
	if d.parts.Store == nil {
		return 0, errors.New("queue store unavailable")
	}
	return d.parts.Store.RetryFailed(ctx, ids...)
}

// RemoveItems deletes queue items by id and reports how many existed.
func (d *Daemon) RemoveItems(ctx context.Context, ids []int64) (int64, error) {
	if d.parts.Store == nil {
		return 0, errors.New("queue store unavailable")
	}
	var count int64
	for _, id := range ids {
		removed, err := d.parts.Store.Remove(ctx, id)
		if err != nil {
			return count, err
		}
		if removed {
			count++
		}
	}
	return count, nil
}

// QueueHealth returns aggregate queue diagnostics.
func (d *Daemon) QueueHealth(ctx context.Context) (queue.HealthSummary, error) {
	if d.parts.Store == nil {
		return queue.HealthSummary{}, errors.New("queue store unavailable")
	}
	return d.parts.Store.Health(ctx)
}

// Enqueue inserts a pending aggregation for the given film identity. The
// returned flag reports whether a new item was created; an active item for
// the same TMDB id is returned as-is instead of a duplicate.
func (d *Daemon) Enqueue(ctx context.Context, tmdbID int64, imdbID, title string, year int) (*queue.Item, bool, error) {
	if d.parts.Store == nil {
		return nil, false, errors.New("queue store unavailable")
	}
	if tmdbID > 0 {
		existing, err := d.parts.Store.FindActiveByTMDBID(ctx, tmdbID)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			return existing, false, nil
		}
	}
	item, err := d.parts.Store.NewFilm(ctx, tmdbID, imdbID, title, year)
	if err != nil {
		return nil, false, err
	}
	d.logger.Info("film queued",
		logging.String(logging.FieldEventType, "film_queued"),
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String("title", item.DisplayTitle()))
	if err := d.parts.Notifier.NotifyFilmQueued(ctx, item.DisplayTitle()); err != nil {
		d.logger.Warn("queue notification failed", logging.Error(err))
	}
	return item, true, nil
}

// SearchPrimary runs a title search against the primary catalog.
func (d *Daemon) SearchPrimary(ctx context.Context, title string, year, page int) ([]film.ProviderRecord, error) {
	if d.parts.Providers == nil || d.parts.Providers.TMDB == nil {
		return nil, errors.New("primary provider unavailable")
	}
	return d.parts.Providers.TMDB.SearchByTitle(ctx, title, year, page)
}

// AggregateOnce runs a synchronous aggregation outside the queue pipeline.
func (d *Daemon) AggregateOnce(ctx context.Context, ref film.Ref) (*film.Unified, error) {
	if d.parts.Orchestrator == nil {
		return nil, errors.New("aggregation engine unavailable")
	}
	return d.parts.Orchestrator.Aggregate(ctx, ref)
}

// ListFilms lists or searches the persisted catalog.
func (d *Daemon) ListFilms(ctx context.Context, query string, year, limit int) ([]*catalog.Film, error) {
	if d.parts.Catalog == nil {
		return nil, errors.New("catalog store unavailable")
	}
	if strings.TrimSpace(query) != "" {
		return d.parts.Catalog.Search(ctx, query, year, limit)
	}
	return d.parts.Catalog.List(ctx, limit)
}

// FilmByTMDBID fetches one cataloged film with its rating set.
func (d *Daemon) FilmByTMDBID(ctx context.Context, tmdbID int64) (*catalog.Film, error) {
	if d.parts.Catalog == nil {
		return nil, errors.New("catalog store unavailable")
	}
	return d.parts.Catalog.FilmByTMDBID(ctx, tmdbID)
}

// RefreshFilm re-queues a cataloged film for aggregation.
func (d *Daemon) RefreshFilm(ctx context.Context, tmdbID int64) (*queue.Item, error) {
	if d.parts.Catalog == nil {
		return nil, errors.New("catalog store unavailable")
	}
	f, err := d.parts.Catalog.FilmByTMDBID(ctx, tmdbID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, fmt.Errorf("film %d not in catalog", tmdbID)
	}
	item, _, err := d.Enqueue(ctx, f.TMDBID, f.IMDBID, f.Title, f.Year)
	return item, err
}

// CatalogStats summarizes the persisted catalog.
func (d *Daemon) CatalogStats(ctx context.Context) (catalog.Stats, error) {
	if d.parts.Catalog == nil {
		return catalog.Stats{}, errors.New("catalog store unavailable")
	}
	return d.parts.Catalog.CatalogStats(ctx)
}

// ProviderHealth probes every configured provider with live requests.
func (d *Daemon) ProviderHealth(ctx context.Context) []providers.Status {
	if d.parts.Providers == nil {
		return nil
	}
	return d.parts.Providers.Health(ctx)
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.parts.Notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.parts.LogPath
}

// LogStream returns the live log event hub, if one was wired.
func (d *Daemon) LogStream() *logging.StreamHub {
	return d.parts.LogStream
}

// LogArchive returns the persisted log event journal, if one was wired.
func (d *Daemon) LogArchive() *logging.EventArchive {
	return d.parts.LogArchive
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	st := Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		Workflow:      d.parts.Workflow.Status(ctx),
		QueueDBPath:   d.cfg.QueueDatabasePath(),
		CatalogDBPath: d.cfg.CatalogDatabasePath(),
		LockFilePath:  d.lockPath,
	}
	if d.parts.Scheduler != nil {
		st.Scheduler = d.parts.Scheduler.Jobs()
	}
	if d.parts.Catalog != nil {
		stats, err := d.parts.Catalog.CatalogStats(ctx)
		if err != nil {
			d.logger.Warn("failed to read catalog stats", logging.Error(err))
		} else {
			st.Catalog = stats
		}
	}
	return st
}
