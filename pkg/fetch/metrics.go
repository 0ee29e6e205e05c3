package fetch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PageFetches tracks page fetches by result (ok, error, cancelled)
	PageFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itemfeed_page_fetches_total",
			Help: "Total number of page fetches by result",
		},
		[]string{"result"},
	)

	// PageFetchDuration tracks page fetch latency
	PageFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "itemfeed_page_fetch_duration_seconds",
			Help:    "Page fetch duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	// DetailFetches tracks detail fetches by result (ok, not_found, error, cancelled)
	DetailFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itemfeed_detail_fetches_total",
			Help: "Total number of detail fetches by result",
		},
		[]string{"result"},
	)

	// DetailFetchDuration tracks detail fetch latency
	DetailFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "itemfeed_detail_fetch_duration_seconds",
			Help:    "Detail fetch duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	// DetailsInFlight tracks detail fetches currently running
	DetailsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "itemfeed_detail_fetches_in_flight",
			Help: "Number of detail fetches currently in flight",
		},
	)
)
