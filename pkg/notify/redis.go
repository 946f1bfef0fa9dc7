package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultRedisChannel is the pub/sub channel events are relayed to.
const DefaultRedisChannel = "spot:events"

// RedisRelay forwards notifier events to a Redis pub/sub channel.
type RedisRelay struct {
	redis    *redis.Client
	notifier *Notifier
	channel  string
	logger   zerolog.Logger
}

// NewRedisRelay creates a relay publishing to channel (DefaultRedisChannel if empty).
func NewRedisRelay(redisClient *redis.Client, notifier *Notifier, channel string, logger zerolog.Logger) *RedisRelay {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisRelay{
		redis:    redisClient,
		notifier: notifier,
		channel:  channel,
		logger:   logger,
	}
}

// Channel returns the pub/sub channel name.
func (r *RedisRelay) Channel() string {
	return r.channel
}

// Run relays events until ctx is cancelled. If the notifier drops the relay's
// subscription it subscribes again; events published in between are lost.
func (r *RedisRelay) Run(ctx context.Context) error {
	r.logger.Info().Str("channel", r.channel).Msg("Redis event relay started")

	for {
		sub := r.notifier.Subscribe()
		if err := r.forward(ctx, sub); err != nil {
			r.notifier.Unsubscribe(sub)
			r.logger.Info().Msg("Redis event relay stopped")
			return nil
		}
		r.logger.Warn().Msg("Redis event relay was dropped, resubscribing")
	}
}

// forward returns nil when sub was closed and ctx.Err() on cancellation.
func (r *RedisRelay) forward(ctx context.Context, sub *Subscription) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-sub.C():
			if !ok {
				return nil
			}
			if err := r.publish(ctx, ev); err != nil {
				r.logger.Warn().Err(err).Str("event", string(ev.Type)).Msg("Failed to relay event")
			}
		}
	}
}

func (r *RedisRelay) publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := r.redis.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	relayPublishedTotal.Inc()
	return nil
}

// DecodeEvent parses a relayed pub/sub payload.
func DecodeEvent(payload string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	return ev, nil
}
