package api

import (
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// QueueItem describes a queue entry in a transport-friendly format.
type QueueItem struct {
	ID           int64           `json:"id"`
	TMDBID       int64           `json:"tmdbId,omitempty"`
	IMDBID       string          `json:"imdbId,omitempty"`
	Title        string          `json:"title"`
	Year         int             `json:"year,omitempty"`
	Status       string          `json:"status"`
	Progress     QueueProgress   `json:"progress"`
	ErrorMessage string          `json:"errorMessage"`
	CreatedAt    string          `json:"createdAt,omitempty"`
	UpdatedAt    string          `json:"updatedAt,omitempty"`
	NeedsReview  bool            `json:"needsReview"`
	ReviewReason string          `json:"reviewReason,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
}

// DisplayTitle returns a human-friendly label for the item.
func (q QueueItem) DisplayTitle() string {
	if title := strings.TrimSpace(q.Title); title != "" {
		return title
	}
	if q.TMDBID > 0 {
		return "tmdb:" + strconv.FormatInt(q.TMDBID, 10)
	}
	if q.IMDBID != "" {
		return q.IMDBID
	}
	return "(untitled)"
}

// QueueProgress captures stage progress information for a queue entry.
type QueueProgress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	QueueStats  map[string]int `json:"queueStats"`
	LastError   string         `json:"lastError,omitempty"`
	LastItem    *QueueItem     `json:"lastItem,omitempty"`
	StageHealth []StageHealth  `json:"stageHealth"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// ProviderStatus captures enablement and reachability of a metadata provider.
type ProviderStatus struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

// SchedulerJob reports one registered cron job with its next fire time.
type SchedulerJob struct {
	Name    string `json:"name"`
	Spec    string `json:"spec"`
	NextRun string `json:"nextRun,omitempty"`
}

// CatalogStats summarizes catalog contents.
type CatalogStats struct {
	Films              int    `json:"films"`
	Rated              int    `json:"rated"`
	Ratings            int    `json:"ratings"`
	OldestAggregatedAt string `json:"oldestAggregatedAt,omitempty"`
	NewestAggregatedAt string `json:"newestAggregatedAt,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running       bool             `json:"running"`
	PID           int              `json:"pid"`
	QueueDBPath   string           `json:"queueDbPath"`
	CatalogDBPath string           `json:"catalogDbPath"`
	LockFilePath  string           `json:"lockFilePath"`
	Workflow      WorkflowStatus   `json:"workflow"`
	Providers     []ProviderStatus `json:"providers"`
	Scheduler     []SchedulerJob   `json:"scheduler,omitempty"`
	Catalog       CatalogStats     `json:"catalog"`
}

// Film describes a cataloged film in a transport-friendly format.
type Film struct {
	TMDBID        int64        `json:"tmdbId"`
	IMDBID        string       `json:"imdbId,omitempty"`
	KinopoiskID   string       `json:"kinopoiskId,omitempty"`
	Title         string       `json:"title"`
	OriginalTitle string       `json:"originalTitle,omitempty"`
	Year          int          `json:"year,omitempty"`
	Composite     string       `json:"composite,omitempty"`
	Weighted      string       `json:"weighted,omitempty"`
	RatingsCount  int          `json:"ratingsCount"`
	AggregatedAt  string       `json:"aggregatedAt,omitempty"`
	UpdatedAt     string       `json:"updatedAt,omitempty"`
	Ratings       []FilmRating `json:"ratings,omitempty"`
}

// FilmRating is one normalized rating attached to a cataloged film.
type FilmRating struct {
	Source     string  `json:"source"`
	Value      float64 `json:"value"`
	Max        float64 `json:"max"`
	Normalized float64 `json:"normalized"`
	Votes      int64   `json:"votes,omitempty"`
}

// QueueStatsResponse provides a normalized queue stats payload.
type QueueStatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// QueueListResponse wraps a collection of queue items for API responses.
type QueueListResponse struct {
	Items []QueueItem `json:"items"`
}

// QueueItemResponse wraps a single queue item.
type QueueItemResponse struct {
	Item QueueItem `json:"item"`
}

// FilmListResponse wraps a collection of films for API responses.
type FilmListResponse struct {
	Films []Film `json:"films"`
}

// FilmResponse wraps a single film.
type FilmResponse struct {
	Film Film `json:"film"`
}

// ProviderListResponse wraps provider health rows.
type ProviderListResponse struct {
	Providers []ProviderStatus `json:"providers"`
}

// LogEvent is the transport form of one structured daemon log record.
type LogEvent struct {
	Sequence  uint64            `json:"seq"`
	Timestamp string            `json:"ts"`
	Level     string            `json:"level"`
	Message   string            `json:"msg"`
	Component string            `json:"component,omitempty"`
	Stage     string            `json:"stage,omitempty"`
	ItemID    int64             `json:"itemId,omitempty"`
	Provider  string            `json:"provider,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Details   []DetailField     `json:"details,omitempty"`
}

// DetailField carries one label/value pair attached to a log event.
type DetailField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// LogStreamResponse returns log events plus the cursor for the next fetch.
type LogStreamResponse struct {
	Events []LogEvent `json:"events"`
	Next   uint64     `json:"next"`
}
