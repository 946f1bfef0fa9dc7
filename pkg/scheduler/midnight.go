package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/vuorinet/spot/pkg/prices"
)

// midnightSpec returns the cron spec firing lead seconds before local midnight.
func (r *Refresher) midnightSpec() string {
	lead := int(r.cfg.MidnightLead.Seconds())
	return fmt.Sprintf("%d 59 23 * * *", 60-lead)
}

// startMidnightTimer schedules the day boundary wake-up and returns its stop function.
func (r *Refresher) startMidnightTimer(ctx context.Context) (func(), error) {
	c := cron.New(cron.WithSeconds(), cron.WithLocation(r.cfg.Location))
	if _, err := c.AddFunc(r.midnightSpec(), func() { r.midnight(ctx) }); err != nil {
		return nil, fmt.Errorf("register midnight job: %w", err)
	}
	c.Start()
	r.logger.Debug().Str("spec", r.midnightSpec()).Msg("Midnight timer started")

	return func() {
		<-c.Stop().Done()
		r.logger.Debug().Msg("Midnight timer stopped")
	}, nil
}

// midnight waits for the next local midnight and wakes the loop.
func (r *Refresher) midnight(ctx context.Context) {
	loc := r.cfg.Location
	now := r.cfg.Now().In(loc)
	boundary := prices.Today(now, loc).AddDays(1).In(loc)

	if err := sleep(ctx, boundary.Sub(now)); err != nil {
		return
	}
	r.logger.Info().Str("day", prices.Today(r.cfg.Now(), loc).String()).Msg("Midnight reached, waking refresh loop")
	r.Wake()
}
