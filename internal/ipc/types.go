package ipc

import "cinefuse/internal/api"

// StartRequest triggers daemon workflow startup.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops daemon workflow.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// QueueItem mirrors the HTTP API queue DTO for internal IPC callers.
type QueueItem = api.QueueItem

// StageHealth describes readiness of a workflow stage.
type StageHealth = api.StageHealth

// StatusResponse represents combined daemon/workflow status information.
type StatusResponse struct {
	Running       bool                 `json:"running"`
	QueueStats    map[string]int       `json:"queue_stats"`
	LastError     string               `json:"last_error"`
	LastItem      *QueueItem           `json:"last_item"`
	LockPath      string               `json:"lock_path"`
	QueueDBPath   string               `json:"queue_db_path"`
	CatalogDBPath string               `json:"catalog_db_path"`
	StageHealth   []StageHealth        `json:"stage_health"`
	Scheduler     []api.SchedulerJob   `json:"scheduler,omitempty"`
	Catalog       api.CatalogStats     `json:"catalog"`
	Providers     []api.ProviderStatus `json:"providers,omitempty"`
	PID           int                  `json:"pid"`
}

// QueueListRequest filters queue listing by status.
type QueueListRequest struct {
	Statuses []string `json:"statuses"`
}

// QueueListResponse contains queue entries.
type QueueListResponse struct {
	Items []QueueItem `json:"items"`
}

// QueueDescribeRequest fetches a single queue item by id.
type QueueDescribeRequest struct {
	ID int64 `json:"id"`
}

// QueueDescribeResponse contains a single queue entry.
type QueueDescribeResponse struct {
	Item  QueueItem `json:"item"`
	Found bool      `json:"found"`
}

// QueueClearRequest removes all items.
type QueueClearRequest struct{}

// QueueClearResponse reports number of removed entries.
type QueueClearResponse struct {
	Removed int64 `json:"removed"`
}

// QueueClearFailedRequest removes failed items.
type QueueClearFailedRequest struct{}

// QueueClearFailedResponse reports number of removed entries.
type QueueClearFailedResponse struct {
	Removed int64 `json:"removed"`
}

// QueueClearCompletedRequest removes completed items.
type QueueClearCompletedRequest struct{}

// QueueClearCompletedResponse reports number of removed entries.
type QueueClearCompletedResponse struct {
	Removed int64 `json:"removed"`
}

// QueueResetRequest resets in-flight items.
type QueueResetRequest struct{}

// QueueResetResponse reports number of items reset.
type QueueResetResponse struct {
	Updated int64 `json:"updated"`
}

// QueueRetryRequest retries failed items. Empty list means all failed items.
type QueueRetryRequest struct {
	IDs []int64 `json:"ids"`
}

// QueueRetryResponse reports number of retried items.
type QueueRetryResponse struct {
	Updated int64 `json:"updated"`
}

// QueueRemoveRequest removes specific items by ID.
type QueueRemoveRequest struct {
	IDs []int64 `json:"ids"`
}

// QueueRemoveResponse reports number of removed entries.
type QueueRemoveResponse struct {
	Removed int64 `json:"removed"`
}

// QueueHealthRequest fetches aggregate diagnostics.
type QueueHealthRequest struct{}

// QueueHealthResponse reports queue health information.
type QueueHealthResponse struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Failed     int `json:"failed"`
	Review     int `json:"review"`
	Completed  int `json:"completed"`
}

// EnqueueRequest queues a film for aggregation. A TMDB id is the preferred
// identity; an IMDb id or title+year also suffice.
type EnqueueRequest struct {
	TMDBID int64  `json:"tmdb_id"`
	IMDBID string `json:"imdb_id"`
	Title  string `json:"title"`
	Year   int    `json:"year"`
}

// EnqueueResponse reports the queued (or already active) item.
type EnqueueResponse struct {
	Item    QueueItem `json:"item"`
	Created bool      `json:"created"`
}

// SearchRequest searches the primary catalog by title.
type SearchRequest struct {
	Title string `json:"title"`
	Year  int    `json:"year"`
	Page  int    `json:"page"`
}

// SearchResult is one primary-catalog candidate.
type SearchResult struct {
	TMDBID        string `json:"tmdb_id"`
	Title         string `json:"title"`
	OriginalTitle string `json:"original_title,omitempty"`
	Year          int    `json:"year,omitempty"`
	IMDBID        string `json:"imdb_id,omitempty"`
}

// SearchResponse contains primary-catalog search candidates.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// AggregateRequest runs one synchronous aggregation without the queue.
type AggregateRequest struct {
	TMDBID int64  `json:"tmdb_id"`
	IMDBID string `json:"imdb_id"`
	Title  string `json:"title"`
	Year   int    `json:"year"`
}

// AggregateResponse carries the unified film as its canonical JSON payload.
type AggregateResponse struct {
	Result []byte `json:"result"`
}

// FilmsRequest lists or searches the persisted catalog.
type FilmsRequest struct {
	Query string `json:"query"`
	Year  int    `json:"year"`
	Limit int    `json:"limit"`
}

// FilmsResponse contains catalog rows.
type FilmsResponse struct {
	Films []api.Film `json:"films"`
}

// FilmShowRequest fetches one catalog film with its rating set.
type FilmShowRequest struct {
	TMDBID int64 `json:"tmdb_id"`
}

// FilmShowResponse contains the film when present.
type FilmShowResponse struct {
	Film  api.Film `json:"film"`
	Found bool     `json:"found"`
}

// FilmRefreshRequest re-queues a cataloged film for aggregation.
type FilmRefreshRequest struct {
	TMDBID int64 `json:"tmdb_id"`
}

// FilmRefreshResponse reports the queued refresh item.
type FilmRefreshResponse struct {
	ItemID int64  `json:"item_id"`
	Title  string `json:"title"`
}

// ProvidersRequest probes provider health.
type ProvidersRequest struct{}

// ProvidersResponse reports per-provider reachability.
type ProvidersResponse struct {
	Providers []api.ProviderStatus `json:"providers"`
}

// LogTailRequest fetches structured log events from the daemon's stream hub.
type LogTailRequest struct {
	Since      uint64 `json:"since"`
	Limit      int    `json:"limit"`
	Follow     bool   `json:"follow"`
	WaitMillis int    `json:"wait_millis"`
}

// LogTailResponse returns log events and the next cursor.
type LogTailResponse struct {
	Events []api.LogEvent `json:"events"`
	Next   uint64         `json:"next"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
