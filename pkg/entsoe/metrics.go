package entsoe

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for upstream operations.
var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spot_upstream_requests_total",
		Help: "Total ENTSO-E requests by status",
	}, []string{"status"})

	upstreamRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "spot_upstream_request_duration_seconds",
		Help:    "ENTSO-E request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})

	upstreamErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spot_upstream_errors_total",
		Help: "Total ENTSO-E errors by class",
	}, []string{"class"})

	upstreamRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spot_upstream_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"class"})

	upstreamNotAvailableTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spot_upstream_not_available_total",
		Help: "Total acquisitions answered with no published data",
	})
)
