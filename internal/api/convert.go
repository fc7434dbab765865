package api

import (
	"slices"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"cinefuse/internal/catalog"
	"cinefuse/internal/logging"
	"cinefuse/internal/providers"
	"cinefuse/internal/queue"
	"cinefuse/internal/scheduler"
	"cinefuse/internal/stage"
	"cinefuse/internal/workflow"
)

// FromQueueItem converts a queue record to its API representation.
func FromQueueItem(item *queue.Item) QueueItem {
	if item == nil {
		return QueueItem{}
	}

	dto := QueueItem{
		ID:     item.ID,
		TMDBID: item.TMDBID,
		IMDBID: item.IMDBID,
		Title:  item.Title,
		Year:   item.Year,
		Status: string(item.Status),
		Progress: QueueProgress{
			Stage:   item.ProgressStage,
			Percent: item.ProgressPercent,
			Message: item.ProgressMessage,
		},
		ErrorMessage: item.ErrorMessage,
		NeedsReview:  item.NeedsReview,
		ReviewReason: item.ReviewReason,
	}
	if dto.Progress.Stage == "" {
		dto.Progress.Stage = displayStage(item.Status)
	}
	if !item.CreatedAt.IsZero() {
		dto.CreatedAt = item.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !item.UpdatedAt.IsZero() {
		dto.UpdatedAt = item.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	if raw := item.ResultJSON; raw != "" {
		dto.Result = json.RawMessage(raw)
	}
	return dto
}

// displayStage derives a progress stage label from the item status for
// entries that have not reported progress yet.
func displayStage(status queue.Status) string {
	s := string(status)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// FromQueueItems converts a slice of queue records into API DTOs.
func FromQueueItems(items []*queue.Item) []QueueItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]QueueItem, 0, len(items))
	for _, item := range items {
		out = append(out, FromQueueItem(item))
	}
	return out
}

// FromStatusSummary converts a workflow status summary to API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	wf := WorkflowStatus{
		Running:     summary.Running,
		QueueStats:  MergeQueueStats(summary.QueueStats),
		StageHealth: StageHealthSlice(summary.StageHealth),
	}
	if summary.LastError != "" {
		wf.LastError = summary.LastError
	}
	if summary.LastItem != nil {
		last := FromQueueItem(summary.LastItem)
		wf.LastItem = &last
	}
	return wf
}

// MergeQueueStats produces a string-keyed representation of queue stats.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

// StageHealthSlice converts a stage health map into a deterministic slice.
func StageHealthSlice(health map[string]stage.Health) []StageHealth {
	if len(health) == 0 {
		return nil
	}
	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]StageHealth, 0, len(names))
	for _, name := range names {
		h := health[name]
		out = append(out, StageHealth{Name: name, Ready: h.Ready, Detail: h.Detail})
	}
	return out
}

// FromProviderStatuses converts provider health rows into API DTOs.
func FromProviderStatuses(statuses []providers.Status) []ProviderStatus {
	if len(statuses) == 0 {
		return nil
	}
	out := make([]ProviderStatus, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, ProviderStatus{
			Name:    string(st.Provider),
			Enabled: st.Enabled,
			Healthy: st.Healthy,
			Detail:  st.Detail,
		})
	}
	return out
}

// FromSchedulerJobs converts scheduler job statuses into API DTOs.
func FromSchedulerJobs(jobs []scheduler.JobStatus) []SchedulerJob {
	if len(jobs) == 0 {
		return nil
	}
	out := make([]SchedulerJob, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, SchedulerJob{
			Name:    job.Name,
			Spec:    job.Spec,
			NextRun: FormatTime(job.NextRun),
		})
	}
	return out
}

// FromFilm converts a catalog row to its API representation.
func FromFilm(f *catalog.Film) Film {
	if f == nil {
		return Film{}
	}
	dto := Film{
		TMDBID:        f.TMDBID,
		IMDBID:        f.IMDBID,
		KinopoiskID:   f.KinopoiskID,
		Title:         f.Title,
		OriginalTitle: f.OriginalTitle,
		Year:          f.Year,
		RatingsCount:  f.RatingsCount,
		AggregatedAt:  FormatTime(f.AggregatedAt),
		UpdatedAt:     FormatTime(f.UpdatedAt),
	}
	if f.Composite.Valid {
		dto.Composite = f.Composite.Decimal.StringFixed(2)
	}
	if f.Weighted.Valid {
		dto.Weighted = f.Weighted.Decimal.StringFixed(2)
	}
	if len(f.Ratings) > 0 {
		dto.Ratings = make([]FilmRating, 0, len(f.Ratings))
		for _, nr := range f.Ratings {
			dto.Ratings = append(dto.Ratings, FilmRating{
				Source:     string(nr.Source),
				Value:      nr.Value,
				Max:        nr.Max,
				Normalized: nr.Normalized,
				Votes:      nr.Votes,
			})
		}
	}
	return dto
}

// FromFilms converts a slice of catalog rows into API DTOs.
func FromFilms(films []*catalog.Film) []Film {
	if len(films) == 0 {
		return nil
	}
	out := make([]Film, 0, len(films))
	for _, f := range films {
		out = append(out, FromFilm(f))
	}
	return out
}

// FromCatalogStats converts catalog totals into the API payload.
func FromCatalogStats(stats catalog.Stats) CatalogStats {
	return CatalogStats{
		Films:              stats.Films,
		Rated:              stats.Rated,
		Ratings:            stats.Ratings,
		OldestAggregatedAt: FormatTime(stats.OldestAggregatedAt),
		NewestAggregatedAt: FormatTime(stats.NewestAggregatedAt),
	}
}

// FromLogEvents converts hub log events into their transport form.
func FromLogEvents(events []logging.LogEvent) []LogEvent {
	if len(events) == 0 {
		return nil
	}
	out := make([]LogEvent, 0, len(events))
	for _, evt := range events {
		var details []DetailField
		if len(evt.Details) > 0 {
			details = make([]DetailField, 0, len(evt.Details))
			for _, detail := range evt.Details {
				details = append(details, DetailField{Label: detail.Label, Value: detail.Value})
			}
		}
		out = append(out, LogEvent{
			Sequence:  evt.Sequence,
			Timestamp: FormatTime(evt.Timestamp),
			Level:     evt.Level,
			Message:   evt.Message,
			Component: evt.Component,
			Stage:     evt.Stage,
			ItemID:    evt.ItemID,
			Provider:  evt.Provider,
			Fields:    evt.Fields,
			Details:   details,
		})
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
