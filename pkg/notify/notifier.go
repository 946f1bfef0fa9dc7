package notify

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 16

// Subscription is one registered consumer.
type Subscription struct {
	id uuid.UUID
	ch chan Event

	mu     sync.Mutex
	closed bool
}

// ID returns the unique handle of the subscription.
func (s *Subscription) ID() uuid.UUID {
	return s.id
}

// C returns the channel events are delivered on. It is closed on unsubscribe.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// deliver attempts a non-blocking send.
func (s *Subscription) deliver(ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- ev:
		return true
	default:
		return false
	}
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Notifier is the registry of subscriptions.
type Notifier struct {
	buffer int
	logger zerolog.Logger

	mu   sync.RWMutex
	subs map[uuid.UUID]*Subscription
}

// New creates a notifier whose subscriptions buffer up to buffer events.
func New(buffer int, logger zerolog.Logger) *Notifier {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Notifier{
		buffer: buffer,
		logger: logger,
		subs:   make(map[uuid.UUID]*Subscription),
	}
}

// Subscribe registers a new subscription.
func (n *Notifier) Subscribe() *Subscription {
	sub := &Subscription{
		id: uuid.New(),
		ch: make(chan Event, n.buffer),
	}

	n.mu.Lock()
	n.subs[sub.id] = sub
	count := len(n.subs)
	n.mu.Unlock()

	subscribersGauge.Set(float64(count))
	n.logger.Debug().
		Str("subscription", sub.id.String()).
		Int("subscribers", count).
		Msg("Subscriber registered")
	return sub
}

// Unsubscribe removes sub and closes its channel. Unknown or already removed
// subscriptions are ignored.
func (n *Notifier) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	n.mu.Lock()
	delete(n.subs, sub.id)
	count := len(n.subs)
	n.mu.Unlock()

	sub.close()
	subscribersGauge.Set(float64(count))
}

// Publish delivers ev to every subscriber and returns how many received it.
// Subscribers that cannot accept the event are unsubscribed.
func (n *Notifier) Publish(ev Event) int {
	n.mu.RLock()
	snapshot := make([]*Subscription, 0, len(n.subs))
	for _, sub := range n.subs {
		snapshot = append(snapshot, sub)
	}
	n.mu.RUnlock()

	delivered := 0
	for _, sub := range snapshot {
		if sub.deliver(ev) {
			delivered++
			continue
		}
		droppedTotal.Inc()
		n.logger.Warn().
			Str("subscription", sub.id.String()).
			Str("event", string(ev.Type)).
			Msg("Dropping subscriber after failed delivery")
		n.Unsubscribe(sub)
	}
	return delivered
}

// Len returns the number of registered subscriptions.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}

// Close unsubscribes everyone.
func (n *Notifier) Close() {
	n.mu.Lock()
	subs := n.subs
	n.subs = make(map[uuid.UUID]*Subscription)
	n.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
	subscribersGauge.Set(0)
}
