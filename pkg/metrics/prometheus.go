package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Recorder implements domain.repository.Metrics using Prometheus.
// Each Recorder owns its registry so runs and tests never collide on the default one.
type Recorder struct {
	registry     *prometheus.Registry
	rowsFetched  *prometheus.CounterVec
	rowsWritten  *prometheus.CounterVec
	symbols      *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	lastRunTotal prometheus.Gauge
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		rowsFetched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finload_rows_fetched_total",
				Help: "Rows returned by the provider",
			},
			[]string{"symbol"},
		),
		rowsWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finload_rows_written_total",
				Help: "Rows newly inserted into the store",
			},
			[]string{"symbol"},
		),
		symbols: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finload_symbols_total",
				Help: "Symbols processed by final state",
			},
			[]string{"status"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finload_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finload_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		lastRunTotal: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "finload_last_run_timestamp_seconds",
				Help: "Unix time of the last completed run",
			},
		),
	}
}

func (r *Recorder) RecordRowsFetched(symbol string, n int) {
	r.rowsFetched.WithLabelValues(symbol).Add(float64(n))
}

func (r *Recorder) RecordRowsWritten(symbol string, n int) {
	r.rowsWritten.WithLabelValues(symbol).Add(float64(n))
}

// RecordSymbolResult counts a finished symbol by status (done|failed).
func (r *Recorder) RecordSymbolResult(status string) {
	r.symbols.WithLabelValues(status).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// MarkRunCompleted stamps the last-run gauge with the current time.
func (r *Recorder) MarkRunCompleted() {
	r.lastRunTotal.SetToCurrentTime()
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Push sends all metrics to a Pushgateway under job. Batch runs exit before a
// scrape could happen, so this is how they report.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
