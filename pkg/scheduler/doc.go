// Package scheduler keeps the price cache fresh.
//
// A Refresher runs one refresh iteration at a time against the cache.Store:
//
//  1. rotate the next-day series into the current-day slot after midnight
//  2. acquire the current day when it is missing or incomplete
//  3. acquire the next day when it is missing or incomplete
//
// and publishes a notify.Event for every change. Between iterations it sleeps
// for NextInterval, which polls aggressively while data is missing, follows the
// 13:50-15:30 publication window for the next day and backs off exponentially
// after consecutive failures.
//
// Startup blocks in EnsurePopulated until the current day is cached, retrying
// with a doubling delay. A cron job fires shortly before local midnight and
// wakes the loop at the day boundary so the rotation happens without delay.
//
// # Basic Usage
//
//	r, err := scheduler.New(scheduler.DefaultConfig(loc), client, store, notifier)
//	if err != nil {
//		return err
//	}
//	if err := r.EnsurePopulated(ctx); err != nil {
//		return err
//	}
//	go r.Run(ctx)
package scheduler
