// Package metrics provides Prometheus metrics for the CollegeFinder service.
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

	// Prediction
	predictions       *prometheus.CounterVec
	predictionErrors  *prometheus.CounterVec
	predictionLatency *prometheus.HistogramVec
	modelLoaded       prometheus.Gauge
	modelSupportVecs  prometheus.Gauge
	modelLoads        *prometheus.CounterVec

	// Recommendation
	recommendationsServed prometheus.Counter
	recommendationCands   prometheus.Histogram
	recommendationLatency prometheus.Histogram
	catalogColleges       prometheus.Gauge

	// Cache
	cacheRequests *prometheus.CounterVec
	breakerState  prometheus.Gauge

	// Batch pool
	batchWorkers       prometheus.Gauge
	batchJobsProcessed prometheus.Counter
	batchQueueSize     prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec
	errorRateByType     *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "collegefinder",
		subsystem:        "engine",
		histogramBuckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.predictions = auto.NewCounterVec(m.counterOpts("predictions_total", "Predictions served by operation"), []string{"operation"})
	m.predictionErrors = auto.NewCounterVec(m.counterOpts("prediction_errors_total", "Prediction failures by operation and kind"), []string{"operation", "kind"})
	m.predictionLatency = auto.NewHistogramVec(m.histogramOpts("prediction_latency_milliseconds", "Prediction latency in milliseconds", m.histogramBuckets), []string{"operation"})
	m.modelLoaded = auto.NewGauge(m.gaugeOpts("model_loaded", "1 when the SVM artifact is loaded"))
	m.modelSupportVecs = auto.NewGauge(m.gaugeOpts("model_support_vectors", "Support vectors in the loaded artifact"))
	m.modelLoads = auto.NewCounterVec(m.counterOpts("model_loads_total", "Artifact load attempts by result"), []string{"result"})

	m.recommendationsServed = auto.NewCounter(m.counterOpts("recommendations_served_total", "Recommendation requests answered"))
	m.recommendationCands = auto.NewHistogram(m.histogramOpts("recommendation_candidates", "Ranked pairs produced per request",
		[]float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000}))
	m.recommendationLatency = auto.NewHistogram(m.histogramOpts("recommendation_latency_milliseconds", "Recommendation latency in milliseconds", m.histogramBuckets))
	m.catalogColleges = auto.NewGauge(m.gaugeOpts("catalog_colleges", "Colleges in the catalog store"))

	m.cacheRequests = auto.NewCounterVec(m.counterOpts("cache_requests_total", "Recommendation cache lookups by result"), []string{"result"})
	m.breakerState = auto.NewGauge(m.gaugeOpts("cache_breaker_state", "Cache circuit breaker state (0 closed, 1 half-open, 2 open)"))

	m.batchWorkers = auto.NewGauge(m.gaugeOpts("batch_workers", "Workers in the batch prediction pool"))
	m.batchJobsProcessed = auto.NewCounter(m.counterOpts("batch_jobs_processed_total", "Batch prediction jobs processed"))
	m.batchQueueSize = auto.NewGauge(m.gaugeOpts("batch_queue_size", "Jobs waiting in the batch queue"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"})
	m.errorRateByEndpoint = auto.NewCounterVec(m.counterOpts("errors_by_endpoint_total", "HTTP errors by endpoint"), []string{"endpoint", "method", "error_type"})
	m.errorRateByType = auto.NewCounterVec(m.counterOpts("errors_by_type_total", "Errors by type and severity"), []string{"error_type", "severity"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_bytes", "Allocated heap bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutines", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_milliseconds", "Average GC pause in milliseconds", m.histogramBuckets))
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// RecordPrediction counts a successful prediction and its latency.
func RecordPrediction(operation string, latencyMs float64) {
	globalManager.predictions.WithLabelValues(operation).Inc()
	globalManager.predictionLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordPredictionError counts a failed prediction.
func RecordPredictionError(operation, kind string) {
	globalManager.predictionErrors.WithLabelValues(operation, kind).Inc()
}

// RecordModelLoad counts an artifact load attempt.
func RecordModelLoad(ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	globalManager.modelLoads.WithLabelValues(result).Inc()
}

// UpdateModelState publishes whether a model is loaded and its size.
func UpdateModelState(loaded bool, supportVectors int) {
	if loaded {
		globalManager.modelLoaded.Set(1)
	} else {
		globalManager.modelLoaded.Set(0)
	}
	globalManager.modelSupportVecs.Set(float64(supportVectors))
}

// RecordRecommendation records one answered recommendation request.
func RecordRecommendation(candidates int, latencyMs float64) {
	globalManager.recommendationsServed.Inc()
	globalManager.recommendationCands.Observe(float64(candidates))
	globalManager.recommendationLatency.Observe(latencyMs)
}

// UpdateCatalogColleges publishes the catalog size.
func UpdateCatalogColleges(n int) {
	globalManager.catalogColleges.Set(float64(n))
}

// RecordCacheHit, RecordCacheMiss and RecordCacheError count cache lookups.
func RecordCacheHit()   { globalManager.cacheRequests.WithLabelValues("hit").Inc() }
func RecordCacheMiss()  { globalManager.cacheRequests.WithLabelValues("miss").Inc() }
func RecordCacheError() { globalManager.cacheRequests.WithLabelValues("error").Inc() }

// UpdateBreakerState publishes the cache breaker state.
func UpdateBreakerState(state int) {
	globalManager.breakerState.Set(float64(state))
}

// UpdateBatchWorkers publishes the batch pool size.
func UpdateBatchWorkers(n int) {
	globalManager.batchWorkers.Set(float64(n))
}

// RecordBatchJob counts one processed batch job.
func RecordBatchJob() {
	globalManager.batchJobsProcessed.Inc()
}

// UpdateBatchQueueSize publishes the batch queue backlog.
func UpdateBatchQueueSize(n int) {
	globalManager.batchQueueSize.Set(float64(n))
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes an HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByEndpoint counts an HTTP error by endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorByType counts an error by type and severity.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// UpdateSystemMemoryUsage publishes allocated heap bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount publishes the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime observes the average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}
