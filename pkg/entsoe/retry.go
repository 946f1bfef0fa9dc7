package entsoe

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// RetryPolicy holds the retry behaviour for one error class.
type RetryPolicy struct {
	// MaxAttempts is the maximum number of attempts including the initial request.
	MaxAttempts int

	// Delay is the fixed wait before each retry.
	Delay time.Duration
}

// RetryPolicyForErrorClass returns the retry policy for an error class.
// Only rate limiting is retried, once, after rateLimitDelay.
func RetryPolicyForErrorClass(errorClass ErrorClass, rateLimitDelay time.Duration) RetryPolicy {
	if !shouldRetry(errorClass) {
		return RetryPolicy{MaxAttempts: 1}
	}
	return RetryPolicy{MaxAttempts: 2, Delay: rateLimitDelay}
}

// attemptFunc performs one request. It returns the class of a failed attempt,
// or "" on success or on a failure that ends the request.
type attemptFunc func(ctx context.Context) (ErrorClass, error)

// retryByClass executes fn, consulting the policy of the failure class before
// each further attempt. The wait respects context cancellation.
func retryByClass(ctx context.Context, logger zerolog.Logger, rateLimitDelay time.Duration, fn attemptFunc) error {
	for attempt := 1; ; attempt++ {
		errorClass, err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info().
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		policy := RetryPolicyForErrorClass(errorClass, rateLimitDelay)
		if errorClass == "" || attempt >= policy.MaxAttempts {
			return err
		}

		upstreamRetriesTotal.WithLabelValues(string(errorClass)).Inc()
		logger.Debug().
			Str("error_class", string(errorClass)).
			Int("attempt", attempt).
			Dur("delay", policy.Delay).
			Msg("Retrying request after delay")

		timer := time.NewTimer(policy.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Warn().
				Str("error_class", string(errorClass)).
				Int("attempt", attempt).
				Msg("Context cancelled during retry delay")
			return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-timer.C:
		}
	}
}
