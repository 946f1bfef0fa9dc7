package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var (
	throttledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spot_ratelimit_throttled_total",
		Help: "Total number of outbound requests that waited for the local rate limiter",
	})

	rateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spot_upstream_rate_limited_total",
		Help: "Total number of 429 responses received from upstream",
	})
)

// Limiter is a token bucket shared by all outbound upstream requests.
// A nil *Limiter never blocks.
type Limiter struct {
	limiter *rate.Limiter
	logger  zerolog.Logger

	mu    sync.Mutex
	state State
}

// New creates a limiter allowing requestsPerMinute requests with the given burst.
// A non-positive requestsPerMinute disables pacing but still records 429s.
func New(requestsPerMinute, burst int, logger zerolog.Logger) *Limiter {
	l := &Limiter{
		logger: logger,
		state:  State{RequestsPerMinute: requestsPerMinute},
	}
	if requestsPerMinute > 0 {
		if burst <= 0 {
			burst = 1
		}
		l.limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), burst)
	}
	return l
}

// Wait blocks until a request may be sent or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.limiter == nil {
		return nil
	}

	if l.limiter.Tokens() < 1 {
		throttledTotal.Inc()
		l.mu.Lock()
		l.state.Throttled++
		l.mu.Unlock()
		l.logger.Debug().Msg("Outbound request throttled by local limiter")
	}

	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

// ObserveRateLimited records a 429 response from upstream.
func (l *Limiter) ObserveRateLimited() {
	if l == nil {
		return
	}
	rateLimitedTotal.Inc()

	l.mu.Lock()
	l.state.RateLimited++
	l.state.LastRateLimited = time.Now()
	count := l.state.RateLimited
	l.mu.Unlock()

	l.logger.Warn().
		Int64("rate_limited", count).
		Msg("Upstream responded 429 Too Many Requests")
}

// State returns a copy of the current limiter state.
func (l *Limiter) State() State {
	if l == nil {
		return State{}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}
