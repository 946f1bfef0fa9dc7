package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CachePoints tracks the number of points held per slot
	CachePoints = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "spot_cache_points",
			Help: "Number of price points held in the cache by slot",
		},
		[]string{"slot"}, // "today", "tomorrow"
	)

	// LastRefreshTimestamp tracks when the last refresh iteration finished
	LastRefreshTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "spot_cache_last_refresh_timestamp_seconds",
			Help: "Unix time of the last completed refresh iteration",
		},
	)

	// Rotations tracks day rollovers
	Rotations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spot_cache_rotations_total",
			Help: "Total number of next-day series promoted to the current day",
		},
	)
)
