// Package cache holds the two day-ahead price series served to readers.
//
// The Store has two slots:
//
//   - SlotToday holds the series covering the current market day
//   - SlotTomorrow holds the series covering the next market day, once published
//
// Each slot is replaced wholesale; readers never observe a half-written series.
// The refresh loop is the only writer. At the day boundary Rollover moves the
// next-day series into the current-day slot.
//
// # Basic Usage
//
//	store := cache.NewStore(loc)
//
//	store.Replace(cache.SlotToday, series)
//
//	if s := store.Get(cache.SlotToday); s != nil {
//		for _, p := range s.PointsOn(today, loc) {
//			fmt.Println(p.Start, p.Price)
//		}
//	}
//
//	if !cache.IsComplete(store.Get(cache.SlotTomorrow), tomorrow, loc) {
//		// keep polling upstream
//	}
//
// # Metrics
//
//   - spot_cache_points{slot}: points held per slot
//   - spot_cache_last_refresh_timestamp_seconds: end of the last refresh iteration
//   - spot_cache_rotations_total: day rollovers performed
package cache
