package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes pipeline counters for the /metrics endpoint.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec
	RowsRejected    prometheus.Counter
	OrdersUnmatched prometheus.Counter
	RunDuration     prometheus.Histogram
}

// NewMetrics registers the pipeline metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "retailkpi_pipeline_runs_total",
			Help: "Pipeline runs by engine and final status.",
		}, []string{"engine", "status"}),
		RowsRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "retailkpi_rows_rejected_total",
			Help: "Input rows rejected during validation.",
		}),
		OrdersUnmatched: factory.NewCounter(prometheus.CounterOpts{
			Name: "retailkpi_orders_unmatched_total",
			Help: "Clean orders excluded from enrichment for lack of a matching customer.",
		}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "retailkpi_pipeline_run_duration_seconds",
			Help:    "End-to-end pipeline run duration.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
