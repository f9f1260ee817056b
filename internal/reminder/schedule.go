package reminder

import (
	"context"
	"time"

	"github.com/dvloznov/finance-overview/internal/logger"
)

// NextRun returns the first time at hour:minute strictly after now, in now's
// location.
func NextRun(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Daily calls fn every day at hour:minute local time until ctx is done.
// Errors from fn are logged.
func Daily(ctx context.Context, name string, hour, minute int, fn func(ctx context.Context) error) {
	log := logger.FromContext(ctx).With().Str("schedule", name).Logger()
	for {
		next := NextRun(time.Now(), hour, minute)
		log.Debug().Time("next_run", next).Msg("Scheduled")

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if err := fn(ctx); err != nil {
			log.Error().Err(err).Msg("Scheduled run failed")
		}
	}
}
