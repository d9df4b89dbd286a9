// Package metrics provides Prometheus metrics export for the answer
// pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusExporter exports answer pipeline metrics in Prometheus
// format.
type PrometheusExporter struct {
	registry *prometheus.Registry

	// Per-query metrics
	askRequests *prometheus.CounterVec
	askLatency  *prometheus.HistogramVec

	// Per-stage metrics
	stageHits    *prometheus.CounterVec
	stageLatency *prometheus.HistogramVec
	stageErrors  *prometheus.CounterVec

	// Cache metrics
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	// Active in-flight queries
	askActive prometheus.Gauge
}

// Config configures the Prometheus exporter.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds)
	LatencyBuckets []float64
}

// DefaultConfig returns default Prometheus configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	}
}

// NewPrometheusExporter creates a new Prometheus metrics exporter.
func NewPrometheusExporter(cfg Config) *PrometheusExporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &PrometheusExporter{registry: registry}

	e.askRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "urcbot",
			Subsystem: "router",
			Name:      "ask_requests_total",
			Help:      "Total number of answered queries",
		},
		[]string{"terminal_stage", "confidence"},
	)

	e.askLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "urcbot",
			Subsystem: "router",
			Name:      "ask_latency_seconds",
			Help:      "End-to-end answer latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"terminal_stage"},
	)

	e.stageHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "urcbot",
			Subsystem: "router",
			Name:      "stage_hits_total",
			Help:      "Stage outcomes by terminal/fallthrough",
		},
		[]string{"stage", "outcome"},
	)

	e.stageLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "urcbot",
			Subsystem: "router",
			Name:      "stage_latency_seconds",
			Help:      "Per-stage latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"stage"},
	)

	e.stageErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "urcbot",
			Subsystem: "router",
			Name:      "stage_errors_total",
			Help:      "External call failures swallowed per stage",
		},
		[]string{"stage", "error_type"},
	)

	e.cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "urcbot",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	e.cacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "urcbot",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	e.askActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "urcbot",
			Subsystem: "router",
			Name:      "ask_active",
			Help:      "Number of in-flight queries",
		},
	)

	registry.MustRegister(
		e.askRequests,
		e.askLatency,
		e.stageHits,
		e.stageLatency,
		e.stageErrors,
		e.cacheHits,
		e.cacheMisses,
		e.askActive,
	)

	return e
}

// RecordAsk records one completed query.
func (e *PrometheusExporter) RecordAsk(terminalStage, confidence string, latency time.Duration) {
	e.askRequests.WithLabelValues(terminalStage, confidence).Inc()
	e.askLatency.WithLabelValues(terminalStage).Observe(latency.Seconds())
}

// RecordStage records one stage evaluation.
func (e *PrometheusExporter) RecordStage(stage string, latency time.Duration, terminal bool) {
	outcome := "fallthrough"
	if terminal {
		outcome = "terminal"
	}
	e.stageHits.WithLabelValues(stage, outcome).Inc()
	e.stageLatency.WithLabelValues(stage).Observe(latency.Seconds())
}

// RecordStageError records a swallowed external failure.
func (e *PrometheusExporter) RecordStageError(stage, errorType string) {
	e.stageErrors.WithLabelValues(stage, errorType).Inc()
}

// RecordCacheHit records a cache hit.
func (e *PrometheusExporter) RecordCacheHit(cacheType string) {
	e.cacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss records a cache miss.
func (e *PrometheusExporter) RecordCacheMiss(cacheType string) {
	e.cacheMisses.WithLabelValues(cacheType).Inc()
}

// AskStarted marks a query entering the pipeline.
func (e *PrometheusExporter) AskStarted() { e.askActive.Inc() }

// AskFinished marks a query leaving the pipeline.
func (e *PrometheusExporter) AskFinished() { e.askActive.Dec() }

// Handler returns an HTTP handler for the metrics endpoint.
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// ServeHTTP implements http.Handler for the metrics endpoint.
func (e *PrometheusExporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.Handler().ServeHTTP(w, r)
}

// GetRegistry returns the Prometheus registry.
func (e *PrometheusExporter) GetRegistry() *prometheus.Registry {
	return e.registry
}
