package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the refresh loop.
var (
	iterationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spot_scheduler_iterations_total",
		Help: "Total refresh iterations by outcome",
	}, []string{"outcome"})

	consecutiveFailuresGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "spot_scheduler_consecutive_failures",
		Help: "Number of consecutive failed refresh iterations",
	})

	nextIntervalSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "spot_scheduler_next_interval_seconds",
		Help: "Delay until the next refresh iteration in seconds",
	})

	eventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spot_scheduler_events_published_total",
		Help: "Total change events published by type",
	}, []string{"type"})
)
