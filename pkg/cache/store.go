package cache

import (
	"sync"
	"time"

	"cloud.google.com/go/civil"

	"github.com/vuorinet/spot/pkg/prices"
)

// Slot identifies one of the two cached days.
type Slot int

const (
	// SlotToday holds the current market day.
	SlotToday Slot = iota

	// SlotTomorrow holds the next market day.
	SlotTomorrow
)

func (s Slot) String() string {
	switch s {
	case SlotToday:
		return "today"
	case SlotTomorrow:
		return "tomorrow"
	default:
		return "unknown"
	}
}

// Snapshot is a consistent view of both slots.
type Snapshot struct {
	Today       *prices.DaySeries
	Tomorrow    *prices.DaySeries
	LastRefresh time.Time
}

// Store is the in-memory two-slot cache.
type Store struct {
	loc *time.Location

	mu          sync.RWMutex
	slots       [2]*prices.DaySeries
	lastRefresh time.Time
}

// NewStore creates an empty store whose civil days are evaluated in loc.
func NewStore(loc *time.Location) *Store {
	if loc == nil {
		panic("location cannot be nil")
	}
	return &Store{loc: loc}
}

// Location returns the market location of the store.
func (s *Store) Location() *time.Location {
	return s.loc
}

// Get returns the series in slot, or nil.
func (s *Store) Get(slot Slot) *prices.DaySeries {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slots[slot]
}

// Replace stores series in slot. A nil series clears the slot.
func (s *Store) Replace(slot Slot, series *prices.DaySeries) {
	s.mu.Lock()
	s.slots[slot] = series
	s.mu.Unlock()

	CachePoints.WithLabelValues(slot.String()).Set(float64(series.Len()))
}

// Clear empties slot.
func (s *Store) Clear(slot Slot) {
	s.Replace(slot, nil)
}

// LastRefresh returns when the last refresh iteration finished.
// The boolean is false until the first iteration has completed.
func (s *Store) LastRefresh() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRefresh, !s.lastRefresh.IsZero()
}

// MarkRefreshed records the end of a refresh iteration.
func (s *Store) MarkRefreshed(t time.Time) {
	s.mu.Lock()
	s.lastRefresh = t
	s.mu.Unlock()

	LastRefreshTimestamp.Set(float64(t.Unix()))
}

// Snapshot returns both slots and the last refresh time under one lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Today:       s.slots[SlotToday],
		Tomorrow:    s.slots[SlotTomorrow],
		LastRefresh: s.lastRefresh,
	}
}

// Rollover promotes the next-day series when the current-day slot has no
// point on today and the next-day slot has at least one. It reports whether
// the rotation happened.
func (s *Store) Rollover(today civil.Date) bool {
	s.mu.Lock()
	current, next := s.slots[SlotToday], s.slots[SlotTomorrow]
	if HasDay(current, today, s.loc) || !HasDay(next, today, s.loc) {
		s.mu.Unlock()
		return false
	}
	s.slots[SlotToday] = next
	s.slots[SlotTomorrow] = nil
	s.mu.Unlock()

	CachePoints.WithLabelValues(SlotToday.String()).Set(float64(next.Len()))
	CachePoints.WithLabelValues(SlotTomorrow.String()).Set(0)
	Rotations.Inc()
	return true
}

// HasDay reports whether series has at least one point on day.
func HasDay(series *prices.DaySeries, day civil.Date, loc *time.Location) bool {
	return series.CountOn(day, loc) > 0
}

// IsComplete reports whether series covers every settlement interval of day.
func IsComplete(series *prices.DaySeries, day civil.Date, loc *time.Location) bool {
	if series == nil || !series.Granularity.Valid() {
		return false
	}
	return series.CountOn(day, loc) >= prices.ExpectedIntervals(series.Granularity, day, loc)
}
