package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vuorinet/spot/pkg/cache"
	"github.com/vuorinet/spot/pkg/entsoe"
	"github.com/vuorinet/spot/pkg/notify"
	"github.com/vuorinet/spot/pkg/prices"
)

// Acquirer fetches the series for one civil day.
type Acquirer interface {
	Acquire(ctx context.Context, day civil.Date) (*prices.DaySeries, error)
}

// Publisher receives change events.
type Publisher interface {
	Publish(ev notify.Event) int
}

// State is the lifecycle state of a Refresher.
type State int32

const (
	// StateBootstrapping means the current day has not been cached yet.
	StateBootstrapping State = iota

	// StateSteady means the adaptive loop is in charge.
	StateSteady
)

func (s State) String() string {
	switch s {
	case StateBootstrapping:
		return "bootstrapping"
	case StateSteady:
		return "steady"
	default:
		return "unknown"
	}
}

// Config holds the refresher configuration.
type Config struct {
	// Location defines the market day (REQUIRED).
	Location *time.Location

	// BootstrapInitialDelay is the first wait between failed bootstrap attempts.
	BootstrapInitialDelay time.Duration

	// BootstrapMaxDelay caps the doubling bootstrap delay.
	BootstrapMaxDelay time.Duration

	// MidnightLead is how long before local midnight the cron job fires.
	// Must be between 1s and 59s.
	MidnightLead time.Duration

	// Now returns the current time (default time.Now).
	Now func() time.Time

	// Logger overrides the component logger.
	Logger *zerolog.Logger
}

// DefaultConfig returns the default configuration for loc.
func DefaultConfig(loc *time.Location) Config {
	return Config{
		Location:              loc,
		BootstrapInitialDelay: 10 * time.Second,
		BootstrapMaxDelay:     300 * time.Second,
		MidnightLead:          30 * time.Second,
		Now:                   time.Now,
	}
}

// Refresher owns the refresh loop. It is the only writer of its store.
type Refresher struct {
	cfg       Config
	acquirer  Acquirer
	store     *cache.Store
	publisher Publisher
	logger    zerolog.Logger

	state    atomic.Int32
	failures atomic.Int64
	wake     chan struct{}
}

// New creates a refresher writing to store and publishing to pub.
func New(cfg Config, acq Acquirer, store *cache.Store, pub Publisher) (*Refresher, error) {
	if cfg.Location == nil {
		return nil, fmt.Errorf("location is required")
	}
	if acq == nil {
		return nil, fmt.Errorf("acquirer is required")
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if pub == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if cfg.BootstrapInitialDelay <= 0 {
		return nil, fmt.Errorf("bootstrap initial delay must be positive (got %s)", cfg.BootstrapInitialDelay)
	}
	if cfg.BootstrapMaxDelay < cfg.BootstrapInitialDelay {
		return nil, fmt.Errorf("bootstrap max delay %s below initial delay %s", cfg.BootstrapMaxDelay, cfg.BootstrapInitialDelay)
	}
	if cfg.MidnightLead < time.Second || cfg.MidnightLead >= time.Minute {
		return nil, fmt.Errorf("midnight lead must be between 1s and 59s (got %s)", cfg.MidnightLead)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	logger := log.With().Str("component", "scheduler").Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Refresher{
		cfg:       cfg,
		acquirer:  acq,
		store:     store,
		publisher: pub,
		logger:    logger,
		wake:      make(chan struct{}, 1),
	}, nil
}

// State returns the lifecycle state.
func (r *Refresher) State() State {
	return State(r.state.Load())
}

// ConsecutiveFailures returns the current failure streak of the steady loop.
func (r *Refresher) ConsecutiveFailures() int {
	return int(r.failures.Load())
}

// Wake requests an immediate iteration of the steady loop.
func (r *Refresher) Wake() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// EnsurePopulated runs refresh iterations until the current-day slot holds a
// series, waiting BootstrapInitialDelay after the first failed attempt and
// doubling up to BootstrapMaxDelay. It returns the context error if ctx ends first.
func (r *Refresher) EnsurePopulated(ctx context.Context) error {
	if r.State() == StateSteady && r.store.Get(cache.SlotToday) != nil {
		return nil
	}

	delay := r.cfg.BootstrapInitialDelay
	for attempt := 1; ; attempt++ {
		err := r.Refresh(ctx)
		if r.store.Get(cache.SlotToday) != nil {
			r.state.Store(int32(StateSteady))
			r.logger.Info().
				Int("attempts", attempt).
				Msg("Cache populated, entering steady refresh")
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		r.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("Current day not cached yet, retrying")

		if err := sleep(ctx, delay); err != nil {
			return err
		}
		delay *= 2
		if delay > r.cfg.BootstrapMaxDelay {
			delay = r.cfg.BootstrapMaxDelay
		}
	}
}

// Run bootstraps if needed, starts the midnight timer and runs the steady loop
// until ctx is cancelled. Iteration failures never stop the loop.
func (r *Refresher) Run(ctx context.Context) error {
	if err := r.EnsurePopulated(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	stop, err := r.startMidnightTimer(ctx)
	if err != nil {
		return fmt.Errorf("start midnight timer: %w", err)
	}
	defer stop()

	for {
		interval := r.nextInterval()

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			r.logger.Info().Msg("Refresh loop stopped")
			return nil
		case <-timer.C:
		case <-r.wake:
			timer.Stop()
			r.logger.Debug().Msg("Refresh loop woken")
		}

		err := r.Refresh(ctx)
		if ctx.Err() != nil {
			r.logger.Info().Msg("Refresh loop stopped")
			return nil
		}
		r.recordIteration(err)
	}
}

// Refresh runs one iteration and returns the joined acquisition failures.
// Missing upstream data is not a failure.
func (r *Refresher) Refresh(ctx context.Context) error {
	loc := r.cfg.Location
	today := prices.Today(r.cfg.Now(), loc)
	tomorrow := today.AddDays(1)

	if r.store.Rollover(today) {
		r.logger.Info().Str("day", today.String()).Msg("Rotated next-day prices into current day")
		r.publish(notify.KindCacheRotated, today, "")
	}
	r.dropStale(cache.SlotToday, today)
	r.dropStale(cache.SlotTomorrow, tomorrow)

	var errs []error
	if err := r.refreshToday(ctx, today); err != nil {
		errs = append(errs, err)
	}
	if err := r.refreshTomorrow(ctx, tomorrow); err != nil {
		errs = append(errs, err)
	}

	r.store.MarkRefreshed(r.cfg.Now())
	return errors.Join(errs...)
}

// dropStale clears slot when it holds no point on day, so a slot never serves
// another day's prices while acquisition keeps failing.
func (r *Refresher) dropStale(slot cache.Slot, day civil.Date) {
	current := r.store.Get(slot)
	if current == nil || cache.HasDay(current, day, r.cfg.Location) {
		return
	}
	r.store.Clear(slot)
	r.logger.Info().
		Str("slot", slot.String()).
		Str("day", day.String()).
		Int("stale_points", current.Len()).
		Msg("Cleared slot holding another day's prices")
}

func (r *Refresher) refreshToday(ctx context.Context, today civil.Date) error {
	loc := r.cfg.Location
	current := r.store.Get(cache.SlotToday)
	if cache.IsComplete(current, today, loc) {
		r.logger.Debug().Str("slot", "today").Msg("Slot complete, skipping acquisition")
		return nil
	}

	series, err := r.acquirer.Acquire(ctx, today)
	switch entsoe.Classify(err) {
	case entsoe.OutcomeNotAvailable:
		r.logger.Info().Str("day", today.String()).Msg("Current day prices not available yet")
		r.store.Clear(cache.SlotToday)
		return nil
	case entsoe.OutcomeFailure:
		return fmt.Errorf("acquire current day %s: %w", today, err)
	}

	r.store.Replace(cache.SlotToday, series)

	if !cache.HasDay(current, today, loc) {
		r.logger.Info().
			Str("day", today.String()).
			Int("points", series.CountOn(today, loc)).
			Msg("Cached current day prices")
		r.publish(notify.KindTodayUpdated, today, "")
		return nil
	}
	if reason, changed := ChangeReason(current, series); changed {
		r.logger.Info().Str("day", today.String()).Str("reason", string(reason)).Msg("Current day prices changed")
		r.publish(notify.KindTodayUpdated, today, reason)
	}
	return nil
}

func (r *Refresher) refreshTomorrow(ctx context.Context, tomorrow civil.Date) error {
	loc := r.cfg.Location
	current := r.store.Get(cache.SlotTomorrow)
	if cache.IsComplete(current, tomorrow, loc) {
		r.logger.Debug().Str("slot", "tomorrow").Msg("Slot complete, skipping acquisition")
		return nil
	}

	series, err := r.acquirer.Acquire(ctx, tomorrow)
	switch entsoe.Classify(err) {
	case entsoe.OutcomeNotAvailable:
		r.logger.Info().
			Str("day", tomorrow.String()).
			Int("cached_points", current.CountOn(tomorrow, loc)).
			Msg("Next day prices not available yet")
		return nil
	case entsoe.OutcomeFailure:
		return fmt.Errorf("acquire next day %s: %w", tomorrow, err)
	}

	if current != nil && !cache.IsComplete(series, tomorrow, loc) &&
		series.CountOn(tomorrow, loc) < current.CountOn(tomorrow, loc) {
		r.logger.Debug().
			Int("cached_points", current.CountOn(tomorrow, loc)).
			Int("acquired_points", series.CountOn(tomorrow, loc)).
			Msg("Keeping cached next day prices with more points")
		return nil
	}

	r.store.Replace(cache.SlotTomorrow, series)

	if current == nil {
		r.logger.Info().
			Str("day", tomorrow.String()).
			Int("points", series.CountOn(tomorrow, loc)).
			Msg("Cached next day prices")
		r.publish(notify.KindTomorrowUpdated, tomorrow, "")
		return nil
	}
	if reason, changed := ChangeReason(current, series); changed {
		r.logger.Info().Str("day", tomorrow.String()).Str("reason", string(reason)).Msg("Next day prices changed")
		r.publish(notify.KindTomorrowUpdated, tomorrow, reason)
	}
	return nil
}

func (r *Refresher) publish(kind notify.Kind, day civil.Date, reason notify.Reason) {
	delivered := r.publisher.Publish(notify.NewEvent(kind, day, reason, r.cfg.Now()))
	eventsPublishedTotal.WithLabelValues(string(kind)).Inc()
	r.logger.Debug().
		Str("event", string(kind)).
		Int("delivered", delivered).
		Msg("Published cache event")
}

// recordIteration updates the failure streak after a steady iteration.
func (r *Refresher) recordIteration(err error) {
	if err != nil {
		failures := r.failures.Add(1)
		iterationsTotal.WithLabelValues("failure").Inc()
		consecutiveFailuresGauge.Set(float64(failures))
		r.logger.Warn().
			Err(err).
			Int64("failures", failures).
			Msg("Refresh iteration failed")
		return
	}

	if previous := r.failures.Swap(0); previous > 0 {
		r.logger.Info().Int64("failures", previous).Msg("Refresh recovered")
	}
	iterationsTotal.WithLabelValues("ok").Inc()
	consecutiveFailuresGauge.Set(0)
}

// nextInterval evaluates the polling policy against the current cache contents.
func (r *Refresher) nextInterval() time.Duration {
	loc := r.cfg.Location
	now := r.cfg.Now().In(loc)
	today := prices.Today(now, loc)
	snap := r.store.Snapshot()

	hasToday := cache.HasDay(snap.Today, today, loc)
	tomorrowComplete := cache.IsComplete(snap.Tomorrow, today.AddDays(1), loc)
	failures := r.ConsecutiveFailures()

	interval := NextInterval(now, hasToday, tomorrowComplete, failures)
	nextIntervalSeconds.Set(interval.Seconds())
	r.logger.Debug().
		Bool("has_today", hasToday).
		Bool("tomorrow_complete", tomorrowComplete).
		Int("failures", failures).
		Int("multiplier", BackoffMultiplier(failures)).
		Dur("next_interval", interval).
		Msg("Scheduled next refresh")
	return interval
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
