package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the prediction service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Prediction Metrics
	predictions      *prometheus.CounterVec
	inferenceLatency *prometheus.HistogramVec
	inferenceErrors  *prometheus.CounterVec
	coercions        *prometheus.CounterVec

	// Model Lifecycle Metrics
	modelLoadAttempts *prometheus.CounterVec
	modelReloads      *prometheus.CounterVec
	modelsLoaded      prometheus.Gauge

	// Batch Metrics
	batchRows          *prometheus.CounterVec
	batchJobsSubmitted prometheus.Counter
	batchJobsDuplicate prometheus.Counter
	batchJobsStored    prometheus.Gauge

	// Queue Metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker Metrics
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "dropout",
		subsystem:        "predictor",
		histogramBuckets: prometheus.DefBuckets,
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

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.predictions = auto.NewCounterVec(
		m.counterOpts("predictions_total", "Total number of predictions by model variant and risk level"),
		[]string{"variant", "risk_level"},
	)
	m.inferenceLatency = auto.NewHistogramVec(
		m.histogramOpts("inference_latency_milliseconds", "Classifier inference latency in milliseconds", m.histogramBuckets),
		[]string{"variant"},
	)
	m.inferenceErrors = auto.NewCounterVec(
		m.counterOpts("inference_errors_total", "Total number of failed inferences"),
		[]string{"variant", "error_type"},
	)
	m.coercions = auto.NewCounterVec(
		m.counterOpts("coercion_fallbacks_total", "Inputs replaced by a default value during lenient coercion"),
		[]string{"field"},
	)

	m.modelLoadAttempts = auto.NewCounterVec(
		m.counterOpts("model_load_attempts_total", "Model load attempts by variant and outcome"),
		[]string{"variant", "outcome"},
	)
	m.modelReloads = auto.NewCounterVec(
		m.counterOpts("model_reloads_total", "Inference-time reloads of unavailable models"),
		[]string{"variant", "outcome"},
	)
	m.modelsLoaded = auto.NewGauge(m.gaugeOpts("models_loaded", "Number of classifier variants currently loaded"))

	m.batchRows = auto.NewCounterVec(
		m.counterOpts("batch_rows_total", "Batch rows processed by outcome"),
		[]string{"outcome"},
	)
	m.batchJobsSubmitted = auto.NewCounter(m.counterOpts("batch_jobs_submitted_total", "Total number of asynchronous batch jobs accepted"))
	m.batchJobsDuplicate = auto.NewCounter(m.counterOpts("batch_jobs_duplicate_total", "Batch submissions answered from an idempotency key"))
	m.batchJobsStored = auto.NewGauge(m.gaugeOpts("batch_jobs_stored", "Batch jobs currently held in the job store"))

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Current size of the batch row queue (backlog indicator)"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum queue capacity"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio", "Queue utilization ratio (current size / capacity)"))
	m.queueEnqueueRate = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Total number of rows enqueued"))
	m.queueDequeueRate = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Total number of rows dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Total number of enqueue errors"))

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Current number of batch workers"))
	m.workerProcessingLatency = auto.NewHistogram(
		m.histogramOpts("worker_processing_latency_milliseconds", "Worker processing latency in milliseconds", m.histogramBuckets),
	)
	m.workerErrorRate = auto.NewCounter(m.counterOpts("worker_errors_total", "Total number of worker errors"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
			[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}),
	)
}

// Prediction Metrics Functions.

// RecordPrediction counts a successful prediction.
func RecordPrediction(variant, riskLevel string) {
	globalManager.predictions.WithLabelValues(variant, riskLevel).Inc()
}

// RecordInferenceLatency records classifier latency in milliseconds.
func RecordInferenceLatency(variant string, latencyMs float64) {
	globalManager.inferenceLatency.WithLabelValues(variant).Observe(latencyMs)
}

// RecordInferenceError counts a failed inference.
func RecordInferenceError(variant, errorType string) {
	globalManager.inferenceErrors.WithLabelValues(variant, errorType).Inc()
}

// RecordCoercionFallback counts an input replaced by its default.
func RecordCoercionFallback(field string) {
	globalManager.coercions.WithLabelValues(field).Inc()
}

// Model Lifecycle Metrics Functions.

// RecordModelLoadAttempt counts one load attempt; outcome is "success" or "failure".
func RecordModelLoadAttempt(variant, outcome string) {
	globalManager.modelLoadAttempts.WithLabelValues(variant, outcome).Inc()
}

// RecordModelReload counts an inference-time reload.
func RecordModelReload(variant, outcome string) {
	globalManager.modelReloads.WithLabelValues(variant, outcome).Inc()
}

// UpdateModelsLoaded sets the number of loaded variants.
func UpdateModelsLoaded(count int) {
	globalManager.modelsLoaded.Set(float64(count))
}

// Batch Metrics Functions.

// RecordBatchRow counts a processed batch row; outcome is "success" or "failure".
func RecordBatchRow(outcome string) {
	globalManager.batchRows.WithLabelValues(outcome).Inc()
}

// RecordBatchJobSubmitted counts an accepted asynchronous job.
func RecordBatchJobSubmitted() {
	globalManager.batchJobsSubmitted.Inc()
}

// RecordBatchJobDuplicate counts a resubmission answered by idempotency key.
func RecordBatchJobDuplicate() {
	globalManager.batchJobsDuplicate.Inc()
}

// UpdateBatchJobsStored sets the number of jobs in the store.
func UpdateBatchJobsStored(count int) {
	globalManager.batchJobsStored.Set(float64(count))
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// Worker Metrics Functions.

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrorRate.Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
