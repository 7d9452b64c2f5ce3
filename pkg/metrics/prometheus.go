// Package metrics provides Prometheus metrics for the matchmaker service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Scoring
	scoringRequests  *prometheus.CounterVec
	scoringLatency   *prometheus.HistogramVec
	scoringFallbacks *prometheus.CounterVec

	// Recommendations
	recommendationsServed prometheus.Counter
	candidatesEvaluated   prometheus.Counter

	// Ingest
	interactionsIngested  *prometheus.CounterVec
	interactionsDuplicate prometheus.Counter
	socialCapitalUpdates  prometheus.Counter

	// Cache
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	// Repository
	leaderboardSize        prometheus.Gauge
	repositoryQueryLatency *prometheus.HistogramVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec

	// Workers
	workerActive            prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // process-wide metrics manager

// customRegistry keeps the default Go collectors out of the exposition.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "matchmaker",
		subsystem:        "engine",
		histogramBuckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.scoringRequests = auto.NewCounterVec(m.counterOpts("scoring_requests_total",
		"Pair scores computed, by strategy"), []string{"strategy"})
	m.scoringLatency = auto.NewHistogramVec(m.histogramOpts("scoring_latency_milliseconds",
		"Latency of a pair score including collaborator fetches, by strategy"), []string{"strategy"})
	m.scoringFallbacks = auto.NewCounterVec(m.counterOpts("scoring_fallbacks_total",
		"Sub-scores replaced by the neutral value after a collaborator failure"), []string{"component"})

	m.recommendationsServed = auto.NewCounter(m.counterOpts("recommendations_served_total",
		"Recommendation lists returned"))
	m.candidatesEvaluated = auto.NewCounter(m.counterOpts("candidates_evaluated_total",
		"Candidates scored while building recommendation lists"))

	m.interactionsIngested = auto.NewCounterVec(m.counterOpts("interactions_ingested_total",
		"Interaction events appended to the log, by kind"), []string{"kind"})
	m.interactionsDuplicate = auto.NewCounter(m.counterOpts("interactions_duplicate_total",
		"Interaction events rejected as duplicates"))
	m.socialCapitalUpdates = auto.NewCounter(m.counterOpts("social_capital_updates_total",
		"Social-capital recomputations written to the leaderboard"))

	m.cacheHits = auto.NewCounterVec(m.counterOpts("cache_hits_total", "Cache hits, by cache"), []string{"cache"})
	m.cacheMisses = auto.NewCounterVec(m.counterOpts("cache_misses_total", "Cache misses, by cache"), []string{"cache"})

	m.leaderboardSize = auto.NewGauge(m.gaugeOpts("leaderboard_size", "Users ranked on the social-capital leaderboard"))
	m.repositoryQueryLatency = auto.NewHistogramVec(m.histogramOpts("repository_query_latency_milliseconds",
		"Repository operation latency, by operation"), []string{"operation"})

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Interactions waiting in the ingest queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Ingest queue capacity"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio", "Ingest queue fill ratio (0-1)"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueued_total", "Items enqueued"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeued_total", "Items dequeued"))
	m.queueEnqueueErrors = auto.NewCounterVec(m.counterOpts("queue_enqueue_errors_total",
		"Rejected enqueues, by reason"), []string{"reason"})

	m.workerActive = auto.NewGauge(m.gaugeOpts("worker_active", "Running ingest workers"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogramOpts("worker_processing_latency_milliseconds",
		"Time to apply one interaction"))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Interactions a worker failed to apply"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total",
		"HTTP requests by endpoint and method"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds",
		"HTTP request duration"), []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total",
		"Errors by component and type"), []string{"component", "error_type"})
	m.errorsByEndpoint = auto.NewCounterVec(m.counterOpts("errors_by_endpoint_total",
		"HTTP errors by endpoint, method and type"), []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutines", "Running goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_milliseconds", "Average GC pause"))
}

// RecordScoring counts one pair score and its latency for strategy.
func RecordScoring(strategy string, latencyMs float64) {
	globalManager.scoringRequests.WithLabelValues(strategy).Inc()
	globalManager.scoringLatency.WithLabelValues(strategy).Observe(latencyMs)
}

// RecordScoringFallback counts a neutral substitution for component.
func RecordScoringFallback(component string) {
	globalManager.scoringFallbacks.WithLabelValues(component).Inc()
}

// RecordRecommendations counts one served list built from evaluated candidates.
func RecordRecommendations(evaluated int) {
	globalManager.recommendationsServed.Inc()
	globalManager.candidatesEvaluated.Add(float64(evaluated))
}

// RecordInteractionIngested counts an appended interaction of kind.
func RecordInteractionIngested(kind string) {
	globalManager.interactionsIngested.WithLabelValues(kind).Inc()
}

// RecordInteractionDuplicate counts a duplicate interaction.
func RecordInteractionDuplicate() {
	globalManager.interactionsDuplicate.Inc()
}

// RecordSocialCapitalUpdate counts a leaderboard write.
func RecordSocialCapitalUpdate() {
	globalManager.socialCapitalUpdates.Inc()
}

// RecordCacheHit counts a hit on cache.
func RecordCacheHit(cache string) {
	globalManager.cacheHits.WithLabelValues(cache).Inc()
}

// RecordCacheMiss counts a miss on cache.
func RecordCacheMiss(cache string) {
	globalManager.cacheMisses.WithLabelValues(cache).Inc()
}

// UpdateLeaderboardSize sets the number of ranked users.
func UpdateLeaderboardSize(n int) {
	globalManager.leaderboardSize.Set(float64(n))
}

// RecordRepositoryQueryLatency observes a repository operation.
func RecordRepositoryQueryLatency(operation string, latencyMs float64) {
	globalManager.repositoryQueryLatency.WithLabelValues(operation).Observe(latencyMs)
}

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue fill ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue counts a successful enqueue.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue counts a dequeue.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError counts a rejected enqueue.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActive.Set(float64(count))
}

// RecordWorkerProcessingLatency observes the time spent on one interaction.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts a failed interaction.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an HTTP error.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime observes the average GC pause in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the registry the global manager writes to.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
