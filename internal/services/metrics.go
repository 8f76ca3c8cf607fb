// Package services – Prometheus instrumentation for the swap pipeline.
//
// Collectors are labeled by token pair (a small fixed set) and terminal
// outcome, keeping cardinality bounded. All collectors are safe for
// concurrent use.
package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// quotesTotal counts priced quotes by token pair.
	quotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_quotes_total",
			Help: "Total number of swap quotes priced.",
		},
		[]string{"from", "to"},
	)

	// pipelinesStarted counts confirmed swaps entering the pipeline.
	pipelinesStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_pipelines_started_total",
			Help: "Total number of swap pipelines started.",
		},
		[]string{"from", "to"},
	)

	// pipelinesFinished counts pipelines reaching a terminal status.
	pipelinesFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_pipelines_finished_total",
			Help: "Total number of swap pipelines reaching a terminal status.",
		},
		[]string{"outcome"},
	)

	// pipelinesActive gauges currently running pipelines.
	pipelinesActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "swap_pipelines_active",
			Help: "Current number of in-flight swap pipelines.",
		},
	)

	// depositPolls counts balance samples taken while waiting for deposits.
	depositPolls = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "swap_deposit_polls_total",
			Help: "Total number of custodial balance polls while awaiting deposits.",
		},
	)

	// pipelineDuration records confirm-to-terminal duration in seconds.
	// Buckets span a fast settlement through the full deposit window.
	pipelineDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "swap_pipeline_duration_seconds",
			Help:    "Duration of swap pipelines from confirmation to terminal status.",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 900},
		},
	)
)

func init() {
	prometheus.MustRegister(
		quotesTotal,
		pipelinesStarted,
		pipelinesFinished,
		pipelinesActive,
		depositPolls,
		pipelineDuration,
	)
}
