// Package workflow advances queue items through the configured aggregation
// stages.
//
// The Manager polls the queue, reclaims stale work via heartbeats, and feeds
// items into registered stage handlers (fetch, resolve, collect, score,
// publish) while capturing progress and failure metadata. It also aggregates
// queue stats, calls stage health checks, and emits queue-level notifications
// when processing starts or completes.
//
// The workflow runs two independent lanes: network (primary fetch, identifier
// resolution, rating collection) and finalize (scoring, catalog publishing).
// Each lane polls for items matching its statuses and processes them
// independently, so slow provider calls for film B never delay scoring and
// publishing of film A.
//
// Add new lifecycle stages by extending StageSet, updating the queue status
// enums, and teaching the manager how to transition items; this package is the
// authoritative home for that coordination logic.
package workflow
