package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Latency buckets in milliseconds; remote calls are bounded by a timeout of
// a few seconds.
var defaultBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Sync
	pushes           *prometheus.CounterVec
	pushLatency      *prometheus.HistogramVec
	bootstraps       *prometheus.CounterVec
	bootstrapLatency prometheus.Histogram
	syncState        prometheus.Gauge
	notices          *prometheus.CounterVec

	// Domain
	evaluationsSubmitted *prometheus.CounterVec
	evaluationsRejected  *prometheus.CounterVec
	collectionSize       *prometheus.GaugeVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec

	// Workers
	workerCount  prometheus.Gauge
	workerErrors *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
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
		namespace:        "avalia",
		subsystem:        "engine",
		histogramBuckets: defaultBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
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

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.pushes = m.counterVec("remote_pushes_total", "Remote pushes by kind and result", "kind", "result")
	m.pushLatency = m.histogramVec("remote_push_latency_milliseconds", "Remote push latency in milliseconds", "kind")
	m.bootstraps = m.counterVec("bootstrap_total", "Bootstrap attempts by result", "result")
	m.bootstrapLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "bootstrap_duration_milliseconds",
		Help:    "Time spent fetching and merging the remote snapshot",
		Buckets: m.histogramBuckets,
	})
	m.syncState = m.gauge("sync_state", "Reconciliation state: 0 uninitialized, 1 bootstrapping, 2 ready")
	m.notices = m.counterVec("notices_total", "User-facing sync notices by kind", "kind")

	m.evaluationsSubmitted = m.counterVec("evaluations_submitted_total", "Accepted submissions by outcome", "outcome")
	m.evaluationsRejected = m.counterVec("evaluations_rejected_total", "Rejected submissions by reason", "reason")
	m.collectionSize = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "collection_size",
		Help: "Number of items in each local collection",
	}, []string{"collection"})

	m.queueSize = m.gauge("push_queue_size", "Pending push jobs")
	m.queueCapacity = m.gauge("push_queue_capacity", "Push queue capacity")
	m.queueEnqueued = m.counter("push_queue_enqueue_total", "Push jobs enqueued")
	m.queueDequeued = m.counter("push_queue_dequeue_total", "Push jobs handed to workers")
	m.queueEnqueueErrors = m.counterVec("push_queue_enqueue_errors_total", "Push jobs rejected by the queue", "reason")

	m.workerCount = m.gauge("push_worker_count", "Running push workers")
	m.workerErrors = m.counterVec("push_worker_errors_total", "Push jobs that failed in a worker", "kind")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors by endpoint and type", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap memory in use")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Running goroutines")
}

// RecordPush counts a finished push. result is "success" or "failure".
func RecordPush(kind, result string) {
	globalManager.pushes.WithLabelValues(kind, result).Inc()
}

// RecordPushLatency records how long a push took.
func RecordPushLatency(kind string, latencyMs float64) {
	globalManager.pushLatency.WithLabelValues(kind).Observe(latencyMs)
}

// RecordBootstrap counts a bootstrap and its duration.
func RecordBootstrap(result string, latencyMs float64) {
	globalManager.bootstraps.WithLabelValues(result).Inc()
	globalManager.bootstrapLatency.Observe(latencyMs)
}

// UpdateSyncState sets the reconciliation state gauge.
func UpdateSyncState(state int) {
	globalManager.syncState.Set(float64(state))
}

// RecordNotice counts a user-facing notice.
func RecordNotice(kind string) {
	globalManager.notices.WithLabelValues(kind).Inc()
}

// RecordEvaluationSubmitted counts an accepted submission ("created" or "updated").
func RecordEvaluationSubmitted(outcome string) {
	globalManager.evaluationsSubmitted.WithLabelValues(outcome).Inc()
}

// RecordEvaluationRejected counts a rejected submission.
func RecordEvaluationRejected(reason string) {
	globalManager.evaluationsRejected.WithLabelValues(reason).Inc()
}

// UpdateCollectionSize sets the size of a local collection.
func UpdateCollectionSize(collection string, size int) {
	globalManager.collectionSize.WithLabelValues(collection).Set(float64(size))
}

// UpdateQueueSize sets the pending push job count.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the push queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue counts an accepted job.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue counts a job handed to a worker.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError counts a rejected job.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the running worker gauge.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerError counts a failed job.
func RecordWorkerError(kind string) {
	globalManager.workerErrors.WithLabelValues(kind).Inc()
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records an HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint counts an HTTP error response.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the registry the global manager writes to.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
