// Package telemetry holds the Prometheus collectors of the engine.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is nil-safe: every method on a nil *Metrics is a no-op.
type Metrics struct {
	gatherer    prometheus.Gatherer
	generated   *prometheus.CounterVec
	failures    *prometheus.CounterVec
	duration    prometheus.Histogram
	confidence  prometheus.Histogram
	anomalies   prometheus.Gauge
	ingestRows  prometheus.Counter
	ingestError prometheus.Counter
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		gatherer: reg,
		generated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "strategy_generated_total",
			Help: "Strategies generated, by strategy type.",
		}, []string{"strategy_type"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "strategy_generation_failures_total",
			Help: "Strategy generations that returned an error, by source.",
		}, []string{"source"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "strategy_generation_duration_seconds",
			Help:    "Wall time of a single strategy generation.",
			Buckets: prometheus.DefBuckets,
		}),
		confidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "strategy_confidence_score",
			Help:    "Confidence score of generated strategies.",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
		anomalies: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "strategy_anomalies_last_run",
			Help: "Anomalies detected by the most recent analysis.",
		}),
		ingestRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingest_measurements_total",
			Help: "Measurement rows written by ingest.",
		}),
		ingestError: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingest_failures_total",
			Help: "Ingest runs that failed.",
		}),
	}
	reg.MustRegister(m.generated, m.failures, m.duration, m.confidence, m.anomalies, m.ingestRows, m.ingestError)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveGeneration(strategyType string, confidence int, anomalies int, took time.Duration) {
	if m == nil {
		return
	}
	m.generated.WithLabelValues(strategyType).Inc()
	m.confidence.Observe(float64(confidence))
	m.anomalies.Set(float64(anomalies))
	m.duration.Observe(took.Seconds())
}

func (m *Metrics) GenerationFailed(source string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(source).Inc()
}

func (m *Metrics) Ingested(n int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.ingestError.Inc()
		return
	}
	m.ingestRows.Add(float64(n))
}

// Gatherer exposes the registry, mainly for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.gatherer }
