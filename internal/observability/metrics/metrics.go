// Package metrics exposes prometheus instruments for the simulation
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
)

// Metrics holds the pipeline instruments on a dedicated registry.
type Metrics struct {
	Registry *prometheus.Registry

	CompaniesPersisted     prometheus.Counter
	SubscriptionsPersisted prometheus.Counter
	EventsPersisted        *prometheus.CounterVec
	RunsPersisted          *prometheus.CounterVec

	AggregationRuns   prometheus.Counter
	MetricRowsWritten prometheus.Counter
}

// New builds the instruments and registers them alongside the standard Go
// collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		Registry: reg,
		CompaniesPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "saasbench_companies_persisted_total",
			Help: "Companies written to the store.",
		}),
		SubscriptionsPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "saasbench_subscriptions_persisted_total",
			Help: "Subscriptions written to the store.",
		}),
		EventsPersisted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "saasbench_events_persisted_total",
			Help: "Lifecycle events written to the store.",
		}, []string{"type"}),
		RunsPersisted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "saasbench_simulation_runs_total",
			Help: "Simulation runs by final status.",
		}, []string{"status"}),
		AggregationRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "saasbench_aggregation_runs_total",
			Help: "Metric refresh passes executed.",
		}),
		MetricRowsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "saasbench_metric_rows_written_total",
			Help: "Metric rows upserted by refresh passes.",
		}),
	}
	reg.MustRegister(
		m.CompaniesPersisted,
		m.SubscriptionsPersisted,
		m.EventsPersisted,
		m.RunsPersisted,
		m.AggregationRuns,
		m.MetricRowsWritten,
	)
	return m
}

// Module provides the instruments.
var Module = fx.Module("observability",
	fx.Provide(New),
)
