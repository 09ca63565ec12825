// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Funnel metrics
	SweepRunsTotal     *prometheus.CounterVec
	SweepDuration      *prometheus.HistogramVec
	ParamsEvaluated    prometheus.Counter
	ParamsConfirmed    prometheus.Counter
	SimulationsTotal   *prometheus.CounterVec
	SimulationDuration prometheus.Histogram

	// Gate metrics
	GateDecisions   *prometheus.CounterVec
	GateMemEstimate prometheus.Gauge
	GateFinalRate   prometheus.Gauge

	// Engine metrics
	FillsProduced  prometheus.Counter
	IntentsPerRun  prometheus.Histogram
	EngineFailures *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulSweep prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "quant_sweep_lab"
	}

	return &Metrics{
		// Funnel metrics
		SweepRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "funnel",
			Name:      "sweep_runs_total",
			Help:      "Total number of sweep runs by outcome",
		}, []string{"status"}),
		SweepDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "funnel",
			Name:      "sweep_duration_seconds",
			Help:      "Wall-clock duration of sweep runs by stage",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"stage"}),
		ParamsEvaluated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "funnel",
			Name:      "params_evaluated_total",
			Help:      "Total number of parameter sets scored by the proxy stage",
		}),
		ParamsConfirmed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "funnel",
			Name:      "params_confirmed_total",
			Help:      "Total number of parameter sets confirmed by full simulation",
		}),
		SimulationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "simulations_total",
			Help:      "Total number of engine invocations by implementation",
		}, []string{"engine"}),
		SimulationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "simulation_duration_seconds",
			Help:      "Single simulation latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Gate metrics
		GateDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "decisions_total",
			Help:      "Total number of admission gate decisions by action",
		}, []string{"action"}),
		GateMemEstimate: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "memory_estimate_bytes",
			Help:      "Memory estimate of the most recent gated workload",
		}),
		GateFinalRate: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "final_subsample_rate",
			Help:      "Subsample rate admitted by the most recent gate decision",
		}),

		// Engine metrics
		FillsProduced: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "fills_produced_total",
			Help:      "Total number of fills produced across all simulations",
		}),
		IntentsPerRun: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "intents_per_simulation",
			Help:      "Order intents handed to a single simulation",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		EngineFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "failures_total",
			Help:      "Total number of engine failures by reason",
		}, []string{"reason"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulSweep: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_sweep_timestamp",
			Help:      "Unix timestamp of last successful sweep run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSweepRun increments the sweep run counter and health timestamp.
func RecordSweepRun(status string, unixNow int64) {
	DefaultMetrics.SweepRunsTotal.WithLabelValues(status).Inc()
	if status == "ok" {
		DefaultMetrics.LastSuccessfulSweep.Set(float64(unixNow))
	}
}

// RecordStageDuration records the wall-clock duration of one funnel stage.
func RecordStageDuration(stage string, seconds float64) {
	DefaultMetrics.SweepDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordGateDecision records an admission gate decision.
func RecordGateDecision(action string, memEstBytes uint64, finalRate float64) {
	DefaultMetrics.GateDecisions.WithLabelValues(action).Inc()
	DefaultMetrics.GateMemEstimate.Set(float64(memEstBytes))
	DefaultMetrics.GateFinalRate.Set(finalRate)
}

// RecordSimulation records one engine invocation.
func RecordSimulation(engine string, intents, fills int, seconds float64) {
	DefaultMetrics.SimulationsTotal.WithLabelValues(engine).Inc()
	DefaultMetrics.SimulationDuration.Observe(seconds)
	DefaultMetrics.IntentsPerRun.Observe(float64(intents))
	DefaultMetrics.FillsProduced.Add(float64(fills))
}

// RecordDBQuery records a database query with its outcome.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
