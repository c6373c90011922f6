package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the ranking engine
type Metrics struct {
	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
	CacheErrors *prometheus.CounterVec

	// Feed metrics
	FeedServed   *prometheus.CounterVec
	FeedDuration *prometheus.HistogramVec

	// Batch metrics
	JobRuns       *prometheus.CounterVec
	JobItems      *prometheus.CounterVec
	JobDuration   *prometheus.HistogramVec
	EventsEmitted *prometheus.CounterVec

	// Engagement metrics
	EngagementsRecorded *prometheus.CounterVec
}

var (
	metricsOnce   sync.Once
	sharedMetrics *Metrics
)

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		sharedMetrics = &Metrics{
			CacheHits: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "feedranker_cache_hits_total",
					Help: "Total number of cache hits",
				},
				[]string{"namespace"},
			),
			CacheMisses: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "feedranker_cache_misses_total",
					Help: "Total number of cache misses",
				},
				[]string{"namespace"},
			),
			CacheErrors: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "feedranker_cache_errors_total",
					Help: "Cache operations that failed and degraded to a miss",
				},
				[]string{"namespace", "op"},
			),

			FeedServed: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "feedranker_feed_served_total",
					Help: "Feed pages served by source",
				},
				[]string{"source"}, // cache, computed, anonymous
			),
			FeedDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "feedranker_feed_duration_seconds",
					Help:    "Feed assembly duration in seconds",
					Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to 2s
				},
				[]string{"source"},
			),

			JobRuns: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "feedranker_job_runs_total",
					Help: "Batch job executions",
				},
				[]string{"job", "result"},
			),
			JobItems: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "feedranker_job_items_total",
					Help: "Items handled by batch jobs",
				},
				[]string{"job", "outcome"}, // processed, updated, error
			),
			JobDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "feedranker_job_duration_seconds",
					Help:    "Batch job duration in seconds",
					Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to 7min
				},
				[]string{"job"},
			),
			EventsEmitted: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "feedranker_events_emitted_total",
					Help: "Fire-and-forget events by outcome",
				},
				[]string{"event", "result"},
			),

			EngagementsRecorded: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "feedranker_engagements_recorded_total",
					Help: "Engagement events recorded by type",
				},
				[]string{"type"},
			),
		}
	})

	return sharedMetrics
}

// RecordCache records the outcome of one cache read
func (m *Metrics) RecordCache(namespace string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.WithLabelValues(namespace).Inc()
		return
	}
	m.CacheMisses.WithLabelValues(namespace).Inc()
}

// RecordCacheError records a degraded cache operation
func (m *Metrics) RecordCacheError(namespace, op string) {
	if m == nil {
		return
	}
	m.CacheErrors.WithLabelValues(namespace, op).Inc()
}

// RecordFeed records a served feed page
func (m *Metrics) RecordFeed(source string, seconds float64) {
	if m == nil {
		return
	}
	m.FeedServed.WithLabelValues(source).Inc()
	m.FeedDuration.WithLabelValues(source).Observe(seconds)
}

// RecordJob records a finished batch run
func (m *Metrics) RecordJob(job string, processed, updated, errors int, seconds float64) {
	if m == nil {
		return
	}
	result := "ok"
	if errors > 0 {
		result = "partial"
	}
	m.JobRuns.WithLabelValues(job, result).Inc()
	m.JobItems.WithLabelValues(job, "processed").Add(float64(processed))
	m.JobItems.WithLabelValues(job, "updated").Add(float64(updated))
	m.JobItems.WithLabelValues(job, "error").Add(float64(errors))
	m.JobDuration.WithLabelValues(job).Observe(seconds)
}

// RecordJobFailure records a batch run that could not start
func (m *Metrics) RecordJobFailure(job string) {
	if m == nil {
		return
	}
	m.JobRuns.WithLabelValues(job, "failed").Inc()
}

// RecordEvent records a fire-and-forget emission
func (m *Metrics) RecordEvent(event string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.EventsEmitted.WithLabelValues(event, result).Inc()
}

// RecordEngagement counts a recorded engagement
func (m *Metrics) RecordEngagement(kind string) {
	if m == nil {
		return
	}
	m.EngagementsRecorded.WithLabelValues(kind).Inc()
}
