package expiry

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler fires the notifier once a day at a fixed local hour.
type Scheduler struct {
	logger   *slog.Logger
	notifier *Notifier
	location *time.Location
	runHour  int
	now      func() time.Time
}

// NewScheduler builds the daily trigger. An unknown timezone falls back to
// UTC rather than refusing to start.
func NewScheduler(notifier *Notifier, timezone string, runHour int, logger *slog.Logger) *Scheduler {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		logger.Warn("Unknown notifier timezone, falling back to UTC",
			slog.String("timezone", timezone), slog.Any("error", err))
		loc = time.UTC
	}
	if runHour < 0 || runHour > 23 {
		runHour = 9
	}
	return &Scheduler{
		logger:   logger,
		notifier: notifier,
		location: loc,
		runHour:  runHour,
		now:      time.Now,
	}
}

// nextRun returns the next occurrence of the configured hour in the
// configured timezone, strictly after the given instant.
func (s *Scheduler) nextRun(after time.Time) time.Time {
	local := after.In(s.location)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.runHour, 0, 0, 0, s.location)
	if !next.After(after) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Start blocks until ctx is cancelled, running one sweep per daily trigger.
// Run it in its own goroutine from main.
func (s *Scheduler) Start(ctx context.Context) {
	for {
		next := s.nextRun(s.now())
		wait := next.Sub(s.now())
		s.logger.Info("Expiry notifier scheduled",
			slog.Time("next_run", next),
			slog.Duration("wait", wait))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("Expiry notifier stopped")
			return
		case <-timer.C:
			if _, err := s.notifier.RunOnce(ctx); err != nil {
				// Sweep failures are logged and retried at the next trigger.
				s.logger.Error("Expiry sweep failed", slog.Any("error", err))
			}
		}
	}
}
