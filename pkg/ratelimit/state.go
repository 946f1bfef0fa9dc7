// Package ratelimit paces outbound requests to the upstream publication service
// and records how often the service answered with 429 Too Many Requests.
package ratelimit

import (
	"time"
)

// Default pacing for ENTSO-E, which allows 400 requests per minute per token.
const (
	DefaultRequestsPerMinute = 300
	DefaultBurst             = 5
)

// State is a point-in-time view of the limiter.
type State struct {
	// RequestsPerMinute is the configured pace. Zero or negative means unlimited.
	RequestsPerMinute int `json:"requests_per_minute"`

	// Throttled counts requests that had to wait for a token.
	Throttled int64 `json:"throttled"`

	// RateLimited counts 429 responses received from upstream.
	RateLimited int64 `json:"rate_limited"`

	// LastRateLimited is when the last 429 was seen (zero if never).
	LastRateLimited time.Time `json:"last_rate_limited,omitempty"`
}

// RecentlyRateLimited reports whether a 429 was seen within window before now.
func (s State) RecentlyRateLimited(now time.Time, window time.Duration) bool {
	if s.LastRateLimited.IsZero() {
		return false
	}
	return now.Sub(s.LastRateLimited) < window
}

// Unlimited reports whether pacing is disabled.
func (s State) Unlimited() bool {
	return s.RequestsPerMinute <= 0
}
