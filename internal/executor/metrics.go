package executor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// executionsTotal tracks executions by mode and terminal outcome.
	executionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flasharb_executions_total",
			Help: "Total number of arbitrage executions by outcome",
		},
		[]string{"mode", "outcome"},
	)

	// executionErrorsTotal tracks execution failures by taxonomy category.
	executionErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flasharb_execution_errors_total",
			Help: "Total number of execution failures classified by category",
		},
		[]string{"category"},
	)

	// profitRealizedUSD tracks cumulative realized profit. A gauge because a
	// completed execution can settle below zero.
	profitRealizedUSD = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flasharb_profit_realized_usd",
			Help: "Cumulative realized profit in USD (simulated for paper executions)",
		},
		[]string{"mode"},
	)

	// executionDurationSeconds tracks time from start to terminal transition.
	executionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "flasharb_execution_duration_seconds",
		Help:    "Duration of arbitrage executions",
		Buckets: prometheus.DefBuckets,
	})
)

func modeLabel(simulated bool) string {
	if simulated {
		return "simulation"
	}
	return "live"
}
