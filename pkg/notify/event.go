// Package notify fans cache change events out to subscribers.
//
// Each subscriber owns a buffered channel. Publish never blocks: a subscriber
// whose buffer is full is unsubscribed and its channel closed, and delivery to
// the others continues. Events reach each subscriber in publish order.
//
//	n := notify.New(16, logger)
//	sub := n.Subscribe()
//	defer n.Unsubscribe(sub)
//
//	for ev := range sub.C() {
//		fmt.Println(ev.Type, ev.Reason)
//	}
//
// RedisRelay forwards every event to a Redis pub/sub channel so that other
// processes can follow the cache.
package notify

import (
	"time"

	"cloud.google.com/go/civil"
)

// Kind identifies what changed.
type Kind string

const (
	// KindTodayUpdated means the current-day series was stored or changed.
	KindTodayUpdated Kind = "today_updated"

	// KindTomorrowUpdated means the next-day series was stored or changed.
	KindTomorrowUpdated Kind = "tomorrow_updated"

	// KindCacheRotated means the next-day series was promoted at the day boundary.
	KindCacheRotated Kind = "cache_rotated"
)

// Reason qualifies an update of an already cached series.
type Reason string

const (
	// ReasonRepublished means upstream reported a different publication time.
	ReasonRepublished Reason = "republished"

	// ReasonIntervalCountChanged means the number of points differs.
	ReasonIntervalCountChanged Reason = "interval_count_changed"

	// ReasonPriceValuesChanged means at least one price differs.
	ReasonPriceValuesChanged Reason = "price_values_changed"
)

// Event is one cache change notification.
type Event struct {
	Type      Kind        `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Date      *civil.Date `json:"date,omitempty"`
	Reason    Reason      `json:"reason,omitempty"`
}

// NewEvent creates an event of kind for day stamped with now.
func NewEvent(kind Kind, day civil.Date, reason Reason, now time.Time) Event {
	return Event{
		Type:      kind,
		Timestamp: now.UTC(),
		Date:      &day,
		Reason:    reason,
	}
}
