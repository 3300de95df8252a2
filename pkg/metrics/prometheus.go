// Package metrics provides Prometheus metrics for the hoopsim query service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Query kinds used as label values.
const (
	KindNeighbors  = "neighbors"
	KindSeparation = "separation"
)

// Manager manages all Prometheus metrics for the hoopsim service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	poolSizeBuckets  []float64
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Query metrics
	queriesTotal    *prometheus.CounterVec
	queryLatency    *prometheus.HistogramVec
	eligiblePool    prometheus.Histogram
	separationEmpty prometheus.Counter

	// Dataset snapshot metrics
	datasetRecords       prometheus.Gauge
	datasetMetrics       prometheus.Gauge
	datasetDuplicateKeys prometheus.Gauge
	snapshotSwaps        prometheus.Counter
	snapshotLastUnix     prometheus.Gauge
	snapshotLoadDuration prometheus.Histogram
	snapshotLoadErrors   prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // registry served at /healthz

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Init rebuilds the global manager from opts on a fresh registry, which
// GetRegistry returns from then on. It must run at startup, before any
// metric is recorded or the registry is served. A registry passed in opts
// is replaced.
func Init(opts ...Option) {
	registry := prometheus.NewRegistry()
	opts = append(opts, WithPrometheusRegistry(registry))
	globalManager = NewManager(opts...)
	customRegistry = registry
}

// NewManager creates a new metrics manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "hoopsim",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		poolSizeBuckets:  []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)

	m.queriesTotal = auto.NewCounterVec(
		m.counterOpts("queries_total", "Total number of engine queries by kind and outcome"),
		[]string{"kind", "outcome"},
	)
	m.queryLatency = auto.NewHistogramVec(
		m.histogramOpts("query_latency_milliseconds", "Engine query latency in milliseconds", m.histogramBuckets),
		[]string{"kind"},
	)
	m.eligiblePool = auto.NewHistogram(
		m.histogramOpts("eligible_pool_size", "Number of eligible comparison rows per similarity query", m.poolSizeBuckets),
	)
	m.separationEmpty = auto.NewCounter(
		m.counterOpts("separation_empty_total", "Separation queries that degraded to an empty ranking"),
	)

	m.datasetRecords = auto.NewGauge(m.gaugeOpts("dataset_records", "Number of player-season records in the active snapshot"))
	m.datasetMetrics = auto.NewGauge(m.gaugeOpts("dataset_metrics", "Number of numeric feature columns in the active snapshot"))
	m.datasetDuplicateKeys = auto.NewGauge(m.gaugeOpts("dataset_duplicate_keys", "Number of (player, season) keys occurring more than once"))
	m.snapshotSwaps = auto.NewCounter(m.counterOpts("snapshot_swaps_total", "Total number of dataset snapshots installed"))
	m.snapshotLastUnix = auto.NewGauge(m.gaugeOpts("snapshot_last_unix", "Unix timestamp of the last snapshot install"))
	m.snapshotLoadDuration = auto.NewHistogram(
		m.histogramOpts("snapshot_load_duration_milliseconds", "Dataset load duration in milliseconds", m.histogramBuckets),
	)
	m.snapshotLoadErrors = auto.NewCounter(m.counterOpts("snapshot_load_errors_total", "Total number of failed dataset loads"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)
	m.errorRateByType = auto.NewCounterVec(
		m.counterOpts("errors_by_type_total", "Errors by type and severity"),
		[]string{"error_type", "severity"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Errors by endpoint, method and type"),
		[]string{"endpoint", "method", "error_type"},
	)
	m.errorLatency = auto.NewHistogramVec(
		m.histogramOpts("error_latency_milliseconds", "Latency of operations that ended in an error", m.histogramBuckets),
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
			[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}),
	)
}

// Query metrics.

// RecordQuery counts a query of the given kind ending with outcome
// ("ok", "empty", or an error type).
func RecordQuery(kind, outcome string) {
	globalManager.queriesTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordQueryLatency records engine latency in milliseconds.
func RecordQueryLatency(kind string, latencyMs float64) {
	globalManager.queryLatency.WithLabelValues(kind).Observe(latencyMs)
}

// RecordEligiblePoolSize records the comparison pool size of a similarity query.
func RecordEligiblePoolSize(size int) {
	globalManager.eligiblePool.Observe(float64(size))
}

// RecordSeparationEmpty counts a separation query answered with an empty ranking.
func RecordSeparationEmpty() {
	globalManager.separationEmpty.Inc()
}

// Dataset snapshot metrics.

// UpdateDatasetShape sets record, metric and duplicate-key gauges for the active snapshot.
func UpdateDatasetShape(records, metricCount, duplicateKeys int) {
	globalManager.datasetRecords.Set(float64(records))
	globalManager.datasetMetrics.Set(float64(metricCount))
	globalManager.datasetDuplicateKeys.Set(float64(duplicateKeys))
}

// RecordSnapshotSwap counts an installed snapshot and stamps its time.
func RecordSnapshotSwap(unix int64) {
	globalManager.snapshotSwaps.Inc()
	globalManager.snapshotLastUnix.Set(float64(unix))
}

// RecordSnapshotLoadDuration records how long reading a dataset took.
func RecordSnapshotLoadDuration(latencyMs float64) {
	globalManager.snapshotLoadDuration.Observe(latencyMs)
}

// RecordSnapshotLoadError counts a failed dataset load.
func RecordSnapshotLoadError() {
	globalManager.snapshotLoadErrors.Inc()
}

// HTTP metrics.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error metrics.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System metrics.

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
