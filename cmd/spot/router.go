package main

import (
	"encoding/json"
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog/log"

	"github.com/vuorinet/spot/pkg/cache"
	"github.com/vuorinet/spot/pkg/logging"
	"github.com/vuorinet/spot/pkg/metrics"
	"github.com/vuorinet/spot/pkg/prices"
	"github.com/vuorinet/spot/pkg/ratelimit"
	"github.com/vuorinet/spot/pkg/scheduler"
	"github.com/vuorinet/spot/pkg/stream"
)

// stateReporter is the part of the refresher the health endpoint reads.
type stateReporter interface {
	State() scheduler.State
	ConsecutiveFailures() int
}

type routerDeps struct {
	store     *cache.Store
	refresher stateReporter
	limiter   *ratelimit.Limiter
	notifier  stream.Subscriber
	streamCfg stream.Config
	version   string
	now       func() time.Time
}

func newRouter(deps routerDeps) http.Handler {
	if deps.now == nil {
		deps.now = time.Now
	}
	streamLogger := logging.NewLogger("stream")

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthHandler(deps))
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/events", stream.SSEHandler(deps.notifier, deps.streamCfg, streamLogger))
	mux.Handle("/ws", stream.WebSocketHandler(deps.notifier, deps.streamCfg, streamLogger))
	return mux
}

// rateLimitWindow is how long an upstream 429 keeps the health status degraded.
const rateLimitWindow = 5 * time.Minute

type slotHealth struct {
	Date        string `json:"date"`
	Points      int    `json:"points"`
	Complete    bool   `json:"complete"`
	Granularity string `json:"granularity,omitempty"`
}

type healthResponse struct {
	Status              string          `json:"status"`
	State               string          `json:"state"`
	Version             string          `json:"version"`
	Today               slotHealth      `json:"today"`
	Tomorrow            slotHealth      `json:"tomorrow"`
	LastRefresh         *time.Time      `json:"last_refresh,omitempty"`
	ConsecutiveFailures int             `json:"consecutive_failures"`
	RecentlyRateLimited bool            `json:"recently_rate_limited"`
	RateLimit           ratelimit.State `json:"rate_limit"`
}

// healthHandler reports 200 once the current day is cached and 503 before.
// A recent upstream 429 degrades the status without changing the code.
func healthHandler(deps routerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := deps.now()
		loc := deps.store.Location()
		today := prices.Today(now, loc)
		tomorrow := today.AddDays(1)
		snap := deps.store.Snapshot()

		resp := healthResponse{
			Status:              "ok",
			State:               deps.refresher.State().String(),
			Version:             deps.version,
			Today:               newSlotHealth(snap.Today, today, loc),
			Tomorrow:            newSlotHealth(snap.Tomorrow, tomorrow, loc),
			ConsecutiveFailures: deps.refresher.ConsecutiveFailures(),
			RateLimit:           deps.limiter.State(),
		}
		resp.RecentlyRateLimited = resp.RateLimit.RecentlyRateLimited(now, rateLimitWindow)
		if !snap.LastRefresh.IsZero() {
			last := snap.LastRefresh.UTC()
			resp.LastRefresh = &last
		}

		status := http.StatusOK
		switch {
		case resp.Today.Points == 0:
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
		case resp.RecentlyRateLimited:
			resp.Status = "degraded"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Warn().Err(err).Msg("Failed to write health response")
		}
	}
}

func newSlotHealth(s *prices.DaySeries, day civil.Date, loc *time.Location) slotHealth {
	h := slotHealth{
		Date:     day.String(),
		Points:   s.CountOn(day, loc),
		Complete: cache.IsComplete(s, day, loc),
	}
	if s != nil {
		h.Granularity = string(s.Granularity)
	}
	return h
}
