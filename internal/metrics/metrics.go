// Package metrics holds the Prometheus collectors of the simulation services.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics groups the collectors registered for one process.
type Metrics struct {
	Registry *prometheus.Registry

	Runs          *prometheus.CounterVec
	DaysSimulated prometheus.Counter
	Cuts          prometheus.Counter
	RunDuration   prometheus.Histogram
	LastYield     *prometheus.GaugeVec
	SinkErrors    *prometheus.CounterVec
}

// New registers the collectors on a fresh registry, together with the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "legray",
			Name:      "runs_total",
			Help:      "Simulation runs by outcome (ok, invalid, error).",
		}, []string{"outcome"}),
		DaysSimulated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "legray",
			Name:      "days_simulated_total",
			Help:      "Days stepped through the water balance.",
		}),
		Cuts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "legray",
			Name:      "cuts_total",
			Help:      "Cutting dates evaluated.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "legray",
			Name:      "run_duration_seconds",
			Help:      "Wall time of one simulation run.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		LastYield: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "legray",
			Name:      "last_yield",
			Help:      "Most recent cut yield per field.",
		}, []string{"field_id"}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "legray",
			Name:      "sink_errors_total",
			Help:      "Failed result deliveries by sink (mqtt, influx, archive).",
		}, []string{"sink"}),
	}
	m.Registry.MustRegister(
		m.Runs, m.DaysSimulated, m.Cuts, m.RunDuration, m.LastYield, m.SinkErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRun records one finished run. Nil-safe so callers may run without metrics.
func (m *Metrics) ObserveRun(outcome string, days, cuts int, took time.Duration) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(outcome).Inc()
	m.DaysSimulated.Add(float64(days))
	m.Cuts.Add(float64(cuts))
	m.RunDuration.Observe(took.Seconds())
}

func (m *Metrics) SetLastYield(fieldID string, v float64) {
	if m == nil {
		return
	}
	m.LastYield.WithLabelValues(fieldID).Set(v)
}

func (m *Metrics) SinkError(sink string) {
	if m == nil {
		return
	}
	m.SinkErrors.WithLabelValues(sink).Inc()
}
