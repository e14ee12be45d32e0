package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	httpRequestsTotal      *prometheus.CounterVec
	httpLatencySeconds     *prometheus.HistogramVec
	submissionsCreated     *prometheus.CounterVec
	resultsProcessed       *prometheus.CounterVec
	gradingDurationSeconds *prometheus.HistogramVec
	scheduledTasksFired    *prometheus.CounterVec
	staleTimerFires        prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors for the grading pipeline.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_latency_seconds",
			Help:    "Latency distribution for HTTP requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		submissionsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "submissions_created_total",
			Help: "Total number of submissions recorded, by submission type.",
		}, []string{"type"})

		resultsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "results_processed_total",
			Help: "Total number of CI results processed, by outcome.",
		}, []string{"outcome"})

		gradingDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grading_duration_seconds",
			Help:    "Time spent turning a build notification into a graded result.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"assessment_type"})

		scheduledTasksFired = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduled_tasks_fired_total",
			Help: "Total number of due-date tasks fired, by task kind.",
		}, []string{"kind"})

		staleTimerFires = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduled_tasks_stale_total",
			Help: "Timers that fired for an outdated schedule generation and were dropped.",
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			submissionsCreated,
			resultsProcessed,
			gradingDurationSeconds,
			scheduledTasksFired,
			staleTimerFires,
		)
	})
}

// HTTPRequests exposes the counter for served HTTP requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for HTTP requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// SubmissionsCreated exposes the counter for recorded submissions.
func SubmissionsCreated() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsCreated
}

// ResultsProcessed exposes the counter for processed CI results.
func ResultsProcessed() *prometheus.CounterVec {
	RegisterMetrics()
	return resultsProcessed
}

// GradingDuration exposes the histogram for grading latency.
func GradingDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return gradingDurationSeconds
}

// ScheduledTasksFired exposes the counter for fired schedule tasks.
func ScheduledTasksFired() *prometheus.CounterVec {
	RegisterMetrics()
	return scheduledTasksFired
}

// StaleTimerFires exposes the counter for dropped stale timer fires.
func StaleTimerFires() prometheus.Counter {
	RegisterMetrics()
	return staleTimerFires
}
