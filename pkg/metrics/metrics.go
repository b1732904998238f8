// Package metrics records pipeline counters in a private prometheus registry
// and exposes the tracer used to span pipeline stages.
//
// The pipeline is a batch job, so metrics are exported to a node_exporter
// textfile instead of being scraped.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const namespace = "statement_insights"

// TracerName identifies spans emitted by this module.
const TracerName = "github.com/FACorreiaa/statement-insights"

// Recorder holds every collector the pipeline updates.
type Recorder struct {
	registry *prometheus.Registry

	unitsParsed      *prometheus.CounterVec
	transactions     *prometheus.CounterVec
	rowsDropped      *prometheus.CounterVec
	anomalies        prometheus.Gauge
	forecastFailures *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
	lastRun          prometheus.Gauge
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		unitsParsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_parsed_total",
			Help:      "Text units parsed, by the strategy that produced transactions (none on a parse miss).",
		}, []string{"strategy"}),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Transactions extracted, by source representation.",
		}, []string{"source"}),
		rowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Candidate records dropped during extraction, by reason.",
		}, []string{"reason"}),
		anomalies: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "anomalies",
			Help:      "Transactions flagged anomalous in the last run.",
		}),
		forecastFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_failures_total",
			Help:      "Forecast runs that failed, by error kind.",
		}, []string{"kind"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time per pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"stage"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed run.",
		}),
	}

	r.registry.MustRegister(
		r.unitsParsed,
		r.transactions,
		r.rowsDropped,
		r.anomalies,
		r.forecastFailures,
		r.stageDuration,
		r.lastRun,
	)
	return r
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) UnitParsed(strategy string) {
	if strategy == "" {
		strategy = "none"
	}
	r.unitsParsed.WithLabelValues(strategy).Inc()
}

func (r *Recorder) TransactionsExtracted(source string, n int) {
	r.transactions.WithLabelValues(source).Add(float64(n))
}

func (r *Recorder) RowsDropped(reason string, n int) {
	if n > 0 {
		r.rowsDropped.WithLabelValues(reason).Add(float64(n))
	}
}

func (r *Recorder) Anomalies(n int) {
	r.anomalies.Set(float64(n))
}

func (r *Recorder) ForecastFailed(kind string) {
	r.forecastFailures.WithLabelValues(kind).Inc()
}

// ObserveStage records how long a stage took since start.
func (r *Recorder) ObserveStage(stage string, start time.Time) {
	r.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// RunCompleted stamps the last successful run.
func (r *Recorder) RunCompleted(at time.Time) {
	r.lastRun.Set(float64(at.Unix()))
}

// WriteTextfile atomically writes the registry in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Tracer returns the module tracer from the global provider. Without an
// installed provider spans are no-ops.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}
