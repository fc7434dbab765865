// Package catalog persists unified films and their per-source ratings in a
// SQLite database separate from the work queue. The pipeline's publish stage
// upserts aggregation results here; the scheduler reads stale films back out
// for re-aggregation.
package catalog
