// Package metrics defines the Prometheus collectors shared across cinefuse
// subsystems. Collectors are registered once via promauto at package load and
// exposed on the API server's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cinefuse"

var (
	// RequestsTotal counts gateway requests by provider and classified outcome.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "requests_total",
		Help:      "Total number of upstream requests by provider and outcome",
	}, []string{"provider", "outcome"})

	// RequestDuration measures upstream request latency per provider.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "request_duration_seconds",
		Help:      "Upstream request latency in seconds by provider",
		Buckets:   prometheus.DefBuckets,
	}, []string{"provider"})

	// RetriesTotal counts retry attempts per provider.
	RetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "retries_total",
		Help:      "Total number of retry attempts by provider",
	}, []string{"provider"})

	// CacheHitsTotal counts gateway cache hits per provider.
	CacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total number of gateway cache hits by provider",
	}, []string{"provider"})

	// CacheMissesTotal counts gateway cache misses per provider.
	CacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total number of gateway cache misses by provider",
	}, []string{"provider"})

	// BreakerOpenTotal counts requests rejected by an open circuit breaker.
	BreakerOpenTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "breaker_open_total",
		Help:      "Total number of requests rejected while the circuit breaker was open",
	}, []string{"provider"})

	// StageDuration measures pipeline stage execution time.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "stage_duration_seconds",
		Help:      "Pipeline stage execution time in seconds",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"stage"})

	// StageFailuresTotal counts stage executions that ended in failure or review.
	StageFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "stage_failures_total",
		Help:      "Total number of stage executions ending in failure or review",
	}, []string{"stage", "disposition"})

	// ItemsCompletedTotal counts queue items that reached the completed status.
	ItemsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "items_completed_total",
		Help:      "Total number of queue items aggregated to completion",
	})

	// RatingsCollectedTotal counts normalized ratings by source.
	RatingsCollectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rating",
		Name:      "collected_total",
		Help:      "Total number of normalized ratings collected by source",
	}, []string{"source"})

	// CompositeScore observes the distribution of computed composite scores.
	CompositeScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "rating",
		Name:      "composite_score",
		Help:      "Distribution of composite scores on the unified 0-10 scale",
		Buckets:   prometheus.LinearBuckets(0, 1, 11),
	})

	// QueueDepth reports the current number of queue items per status.
	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "queue",
		Name:      "depth",
		Help:      "Current number of queue items by status",
	}, []string{"status"})

	// FilmsPublishedTotal counts unified film records upserted into the catalog.
	FilmsPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "catalog",
		Name:      "films_published_total",
		Help:      "Total number of unified film records written to the catalog",
	})
)
