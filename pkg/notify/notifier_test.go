package notify

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDay = civil.Date{Year: 2025, Month: 8, Day: 13}

func event(kind Kind) Event {
	return NewEvent(kind, testDay, "", time.Date(2025, 8, 13, 12, 0, 0, 0, time.UTC))
}

func TestSubscribe_UniqueIDs(t *testing.T) {
	n := New(4, zerolog.Nop())

	a := n.Subscribe()
	b := n.Subscribe()

	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, 2, n.Len())
}

func TestPublish_DeliversInOrder(t *testing.T) {
	n := New(4, zerolog.Nop())
	sub := n.Subscribe()

	assert.Equal(t, 1, n.Publish(event(KindTodayUpdated)))
	assert.Equal(t, 1, n.Publish(event(KindTomorrowUpdated)))
	assert.Equal(t, 1, n.Publish(event(KindCacheRotated)))

	for _, want := range []Kind{KindTodayUpdated, KindTomorrowUpdated, KindCacheRotated} {
		got := <-sub.C()
		assert.Equal(t, want, got.Type)
	}
}

func TestPublish_NoSubscribers(t *testing.T) {
	n := New(4, zerolog.Nop())
	assert.Equal(t, 0, n.Publish(event(KindTodayUpdated)))
}

func TestPublish_DropsFullSubscriber(t *testing.T) {
	n := New(1, zerolog.Nop())
	slow := n.Subscribe()
	fast := n.Subscribe()

	require.Equal(t, 2, n.Publish(event(KindTodayUpdated)))
	<-fast.C()

	// slow still holds the first event, its buffer is full.
	assert.Equal(t, 1, n.Publish(event(KindTomorrowUpdated)))
	assert.Equal(t, 1, n.Len())

	first, ok := <-slow.C()
	require.True(t, ok)
	assert.Equal(t, KindTodayUpdated, first.Type)
	_, ok = <-slow.C()
	assert.False(t, ok, "dropped subscriber channel should be closed")

	got := <-fast.C()
	assert.Equal(t, KindTomorrowUpdated, got.Type)
}

func TestUnsubscribe(t *testing.T) {
	n := New(4, zerolog.Nop())
	sub := n.Subscribe()

	n.Unsubscribe(sub)
	n.Unsubscribe(sub)
	n.Unsubscribe(nil)

	assert.Equal(t, 0, n.Len())
	_, ok := <-sub.C()
	assert.False(t, ok)
	assert.Equal(t, 0, n.Publish(event(KindTodayUpdated)))
}

func TestClose(t *testing.T) {
	n := New(4, zerolog.Nop())
	a := n.Subscribe()
	b := n.Subscribe()

	n.Close()

	assert.Equal(t, 0, n.Len())
	for _, sub := range []*Subscription{a, b} {
		_, ok := <-sub.C()
		assert.False(t, ok)
	}
}

func TestPublish_ConcurrentUnsubscribe(t *testing.T) {
	n := New(64, zerolog.Nop())

	subs := make([]*Subscription, 32)
	for i := range subs {
		subs[i] = n.Subscribe()
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			n.Publish(event(KindTodayUpdated))
		}
	}()
	go func() {
		defer wg.Done()
		for _, sub := range subs {
			n.Unsubscribe(sub)
		}
	}()
	wg.Wait()

	assert.Equal(t, 0, n.Len())
}

func TestEvent_JSON(t *testing.T) {
	ev := NewEvent(KindTomorrowUpdated, testDay, ReasonPriceValuesChanged,
		time.Date(2025, 8, 13, 14, 5, 0, 0, time.UTC))

	data, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"type":"tomorrow_updated","timestamp":"2025-08-13T14:05:00Z","date":"2025-08-13","reason":"price_values_changed"}`,
		string(data))

	decoded, err := DecodeEvent(string(data))
	require.NoError(t, err)
	assert.Equal(t, ev.Type, decoded.Type)
	assert.Equal(t, ev.Reason, decoded.Reason)
	require.NotNil(t, decoded.Date)
	assert.Equal(t, testDay, *decoded.Date)
}

func TestEvent_JSONOmitsEmpty(t *testing.T) {
	ev := Event{Type: KindTodayUpdated, Timestamp: time.Date(2025, 8, 13, 0, 0, 0, 0, time.UTC)}

	data, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"today_updated","timestamp":"2025-08-13T00:00:00Z"}`, string(data))
}

func TestDecodeEvent_Invalid(t *testing.T) {
	_, err := DecodeEvent("not json")
	assert.Error(t, err)
}
