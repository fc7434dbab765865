// Package scheduler runs the daemon's periodic maintenance jobs on cron
// schedules: re-queueing films whose aggregation has gone stale, importing
// trending titles from the primary provider, and logging a queue and catalog
// health summary.
//
// Each job reads its cron spec from the scheduler configuration section. An
// empty spec disables that job. An invalid spec fails Start so a bad schedule
// surfaces at daemon boot instead of at first fire.
package scheduler
