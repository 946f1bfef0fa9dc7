package scheduler

import (
	"time"

	"github.com/vuorinet/spot/pkg/notify"
	"github.com/vuorinet/spot/pkg/prices"
)

const (
	missingTodayInterval     = 60 * time.Second
	missingTomorrowInterval  = 300 * time.Second
	publicationInterval      = 180 * time.Second
	maintenanceInterval      = 900 * time.Second
	defaultInterval          = 600 * time.Second
	maxBackoffMultiplier     = 16
	maxPublicationMultiplier = 4
)

// BackoffMultiplier returns min(2^failures, 16).
func BackoffMultiplier(failures int) int {
	if failures <= 0 {
		return 1
	}
	if failures >= 4 {
		return maxBackoffMultiplier
	}
	return 1 << failures
}

// NextInterval returns the delay before the next iteration. now must be in the
// market location.
func NextInterval(now time.Time, hasToday, tomorrowComplete bool, failures int) time.Duration {
	m := time.Duration(BackoffMultiplier(failures))

	switch {
	case !hasToday:
		return missingTodayInterval * m
	case !tomorrowComplete && now.Hour() >= 14:
		return missingTomorrowInterval * m
	case !tomorrowComplete && inPublicationWindow(now):
		return publicationInterval * min(m, maxPublicationMultiplier)
	case tomorrowComplete:
		return maintenanceInterval
	default:
		return defaultInterval
	}
}

// inPublicationWindow reports whether now is within 13:50-15:30 local time.
func inPublicationWindow(now time.Time) bool {
	h, m := now.Hour(), now.Minute()
	return (h == 13 && m >= 50) || h == 14 || (h == 15 && m <= 30)
}

// ChangeReason compares a cached series with its replacement. The first
// matching reason wins: a different publication time, a different number of
// points, then any differing price. It reports false when nothing changed.
func ChangeReason(old, updated *prices.DaySeries) (notify.Reason, bool) {
	if old == nil || updated == nil {
		return "", false
	}
	if !samePublication(old.PublishedAt, updated.PublishedAt) {
		return notify.ReasonRepublished, true
	}
	if len(old.Points) != len(updated.Points) {
		return notify.ReasonIntervalCountChanged, true
	}
	for i := range old.Points {
		if old.Points[i].Price != updated.Points[i].Price {
			return notify.ReasonPriceValuesChanged, true
		}
	}
	return "", false
}

func samePublication(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
