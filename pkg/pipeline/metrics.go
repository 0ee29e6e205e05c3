package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for pipeline operations.
var (
	updatesPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "itemfeed_updates_published_total",
		Help: "Total updates published by kind",
	}, []string{"kind"})

	triggersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "itemfeed_triggers_total",
		Help: "Total load-more triggers by stage (raw, debounced)",
	}, []string{"stage"})

	detailFailuresIsolatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "itemfeed_detail_failures_isolated_total",
		Help: "Detail failures dropped instead of failing the stream",
	})

	pipelinesActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "itemfeed_pipelines_active",
		Help: "Number of running pipelines",
	})

	pipelineRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "itemfeed_pipeline_runs_total",
		Help: "Total finished pipeline runs by terminal state",
	}, []string{"state"})
)
