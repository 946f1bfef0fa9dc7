package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	subscribersGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "spot_notify_subscribers",
		Help: "Number of registered event subscribers",
	})

	droppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spot_notify_dropped_total",
		Help: "Total subscribers dropped after a failed delivery",
	})

	relayPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spot_notify_relay_published_total",
		Help: "Total events relayed to Redis pub/sub",
	})
)
