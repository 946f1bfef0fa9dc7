// Package prices defines the day-ahead price series model shared by the
// upstream client, the cache store and the refresh scheduler.
package prices

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// Granularity is the settlement interval length of a series.
type Granularity string

const (
	// Hour is a 60 minute settlement interval.
	Hour Granularity = "hour"

	// QuarterHour is a 15 minute settlement interval.
	QuarterHour Granularity = "quarter_hour"
)

// Step returns the settlement interval length.
func (g Granularity) Step() time.Duration {
	switch g {
	case QuarterHour:
		return 15 * time.Minute
	default:
		return time.Hour
	}
}

// PerHour returns how many settlement intervals fit in one hour.
func (g Granularity) PerHour() int {
	return int(time.Hour / g.Step())
}

// Valid reports whether g is a known granularity.
func (g Granularity) Valid() bool {
	return g == Hour || g == QuarterHour
}

// ParseResolution maps an ISO 8601 resolution tag from the wire format to a Granularity.
func ParseResolution(resolution string) (Granularity, error) {
	switch resolution {
	case "PT60M":
		return Hour, nil
	case "PT15M":
		return QuarterHour, nil
	default:
		return "", fmt.Errorf("unsupported resolution: %q", resolution)
	}
}

// PricePoint is the price of one settlement interval. Start and End are UTC instants.
type PricePoint struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Price float64   `json:"price"`
}

// DaySeries is a gap-free price series for one market day.
// A DaySeries is never modified after construction; holders replace it wholesale.
type DaySeries struct {
	Market      string       `json:"market"`
	Granularity Granularity  `json:"granularity"`
	Points      []PricePoint `json:"points"`
	PublishedAt *time.Time   `json:"published_at,omitempty"`
}

// Len returns the number of points, treating a nil series as empty.
func (s *DaySeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Points)
}

// PointsOn returns the points whose start falls on the given civil day in loc.
func (s *DaySeries) PointsOn(day civil.Date, loc *time.Location) []PricePoint {
	if s == nil {
		return nil
	}
	var out []PricePoint
	for _, p := range s.Points {
		if civil.DateOf(p.Start.In(loc)) == day {
			out = append(out, p)
		}
	}
	return out
}

// CountOn returns the number of points whose start falls on day in loc.
func (s *DaySeries) CountOn(day civil.Date, loc *time.Location) int {
	if s == nil {
		return 0
	}
	n := 0
	for _, p := range s.Points {
		if civil.DateOf(p.Start.In(loc)) == day {
			n++
		}
	}
	return n
}

// Today returns the civil date of now in loc.
func Today(now time.Time, loc *time.Location) civil.Date {
	return civil.DateOf(now.In(loc))
}

// DayWindow returns [local midnight of day, local midnight of day+1) as UTC instants.
// The offsets come from loc, so DST transition days are 23 or 25 hours long.
func DayWindow(day civil.Date, loc *time.Location) (start, end time.Time) {
	start = day.In(loc).UTC()
	end = day.AddDays(1).In(loc).UTC()
	return start, end
}

// ExpectedIntervals returns the number of settlement intervals of granularity g
// in the local civil day. Regular days yield 24 and 96.
func ExpectedIntervals(g Granularity, day civil.Date, loc *time.Location) int {
	start, end := DayWindow(day, loc)
	return int(end.Sub(start) / g.Step())
}
