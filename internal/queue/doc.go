// Package queue persists aggregation items in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages database connections, schema migrations, stats queries,
// heartbeat tracking, stuck-item recovery, and status transitions that mirror
// the public workflow enum. Queue items capture the film reference, per-stage
// progress, the serialized aggregation snapshot, and review flags so stages
// can coordinate without additional state.
//
// The database is treated as transient storage for in-flight jobs rather than
// a long-term archive; finished aggregates live in the catalog. Schema changes
// are added as new files under migrations/ and applied on open.
package queue
