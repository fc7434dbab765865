// Package api defines wire-format types and converters for the IPC and HTTP
// API layer. It translates internal queue and catalog models into
// transport-friendly DTOs that the CLI and HTTP consumers can render without
// coupling to internal types.
//
// # Key Types
//
// QueueItem: transport representation of a queue entry with identifiers,
// progress, review state, and the unified result payload.
//
// WorkflowStatus: daemon running state, queue stats, stage health, and last item.
//
// DaemonStatus: aggregated runtime information including provider health,
// scheduler jobs, and catalog totals.
//
// Film/FilmRating: catalog rows with composite scores rendered as fixed-point
// strings.
//
// # Converters
//
// FromQueueItem: queue.Item -> QueueItem with formatted timestamps and result
// passthrough.
//
// FromStatusSummary: workflow.StatusSummary -> WorkflowStatus.
//
// FromFilm: catalog.Film -> Film with two-decimal composite rendering.
//
// StageHealthSlice: deterministic ordering of stage health map.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers. Internal
// enums (queue.Status, film.Provider, film.Source) are exposed as lowercase
// strings. Timestamps use RFC3339 with milliseconds. The unified result is
// passed through as json.RawMessage to avoid double-encoding. Composite and
// weighted scores are fixed to two decimal places so consumers never see
// floating-point artifacts.
package api
