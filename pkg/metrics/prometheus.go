// Package metrics provides Prometheus metrics for the patrolrank service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pass outcome label values.
const (
	OutcomeSuccess    = "success"
	OutcomeNoEntities = "no_entities"
	OutcomeNotFound   = "not_found"
	OutcomeError      = "error"
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Ranking - what the service exists for
	rankingPasses       *prometheus.CounterVec
	rankingPassDuration prometheus.Histogram
	officersRanked      prometheus.Gauge
	rankLogsWritten     prometheus.Counter
	rankLogsThrottled   prometheus.Counter
	scoresComputed      prometheus.Counter
	singleScores        *prometheus.CounterVec
	policyReloads       *prometheus.CounterVec

	// Store
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec
	officerCount prometheus.Gauge

	// Async recompute pipeline
	queueSize       prometheus.Gauge
	queueCapacity   prometheus.Gauge
	jobsEnqueued    prometheus.Counter
	jobsRejected    prometheus.Counter
	jobsDuplicate   prometheus.Counter
	workerJobTime   prometheus.Histogram
	workerJobErrors prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "patrolrank",
		subsystem:        "ranking",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	m.rankingPasses = m.counterVec("passes_total", "Population recompute passes by outcome", "outcome")
	m.rankingPassDuration = m.histogram("pass_duration_milliseconds", "Duration of a full recompute pass in milliseconds")
	m.officersRanked = m.gauge("officers_ranked", "Officers ranked by the most recent successful pass")
	m.rankLogsWritten = m.counter("rank_logs_written_total", "Rank history entries appended")
	m.rankLogsThrottled = m.counter("rank_logs_throttled_total", "Rank history entries skipped because a recent entry exists")
	m.scoresComputed = m.counter("scores_computed_total", "Composite scores computed")
	m.singleScores = m.counterVec("single_scores_total", "On-demand single officer scoring requests by outcome", "outcome")
	m.policyReloads = m.counterVec("policy_reloads_total", "Scoring policy reload attempts by outcome", "outcome")

	m.storeLatency = m.histogramVec("store_latency_milliseconds", "Store operation latency in milliseconds", "op")
	m.storeErrors = m.counterVec("store_errors_total", "Store operation failures", "op")
	m.officerCount = m.gauge("officers_total", "Officers known to the store")

	m.queueSize = m.gauge("queue_size", "Recompute jobs waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Recompute queue capacity")
	m.jobsEnqueued = m.counter("jobs_enqueued_total", "Recompute jobs accepted into the queue")
	m.jobsRejected = m.counter("jobs_rejected_total", "Recompute jobs rejected because the queue was full or closed")
	m.jobsDuplicate = m.counter("jobs_duplicate_total", "Recompute jobs acknowledged as duplicates by idempotency key")
	m.workerJobTime = m.histogram("worker_job_latency_milliseconds", "Time a worker spent on one recompute job")
	m.workerJobErrors = m.counter("worker_job_errors_total", "Recompute jobs that failed in the worker")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Allocated heap bytes")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Average GC pause in milliseconds")
}

// Ranking.

func RecordRankingPass(outcome string, durationMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.rankingPasses.WithLabelValues(outcome).Inc()
	globalManager.rankingPassDuration.Observe(durationMs)
}

func UpdateOfficersRanked(count int) {
	globalManager.officersRanked.Set(float64(count))
}

func RecordRankLogWritten() {
	globalManager.rankLogsWritten.Inc()
}

func RecordRankLogThrottled() {
	globalManager.rankLogsThrottled.Inc()
}

func RecordScoreComputed() {
	globalManager.scoresComputed.Inc()
}

func RecordSingleScore(outcome string) {
	globalManager.singleScores.WithLabelValues(outcome).Inc()
}

func RecordPolicyReload(outcome string) {
	globalManager.policyReloads.WithLabelValues(outcome).Inc()
}

// Store.

func RecordStoreLatency(op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

func RecordStoreError(op string) {
	globalManager.storeErrors.WithLabelValues(op).Inc()
}

func UpdateOfficerCount(count int) {
	globalManager.officerCount.Set(float64(count))
}

// Queue and worker.

func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

func RecordJobEnqueued() {
	globalManager.jobsEnqueued.Inc()
}

func RecordJobRejected() {
	globalManager.jobsRejected.Inc()
}

func RecordJobDuplicate() {
	globalManager.jobsDuplicate.Inc()
}

func RecordWorkerJobLatency(latencyMs float64) {
	globalManager.workerJobTime.Observe(latencyMs)
}

func RecordWorkerJobError() {
	globalManager.workerJobErrors.Inc()
}

// HTTP.

func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Errors.

func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System.

func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the registry backing /healthz.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
