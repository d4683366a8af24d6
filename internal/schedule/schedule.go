package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "sunbar/internal/log"
)

// Validate parses a standard 5-field cron expression.
func Validate(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return nil
}

// Run calls fn once right away, then on every tick of spec until ctx is
// canceled. Ticks are evaluated in loc. fn runs on the cron goroutine; a
// tick that fires while the previous call is still running is skipped.
func Run(ctx context.Context, spec string, loc *time.Location, logger *appLog.Logger, fn func(now time.Time)) error {
	if err := Validate(spec); err != nil {
		return err
	}
	if loc == nil {
		loc = time.Local
	}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(spec, func() {
		fn(time.Now().In(loc))
	}); err != nil {
		return err
	}

	fn(time.Now().In(loc))

	c.Start()
	logger.Info("refresh scheduler started", "refresh", spec, "timezone", loc.String())

	<-ctx.Done()

	// Wait for a running redraw to finish before returning.
	<-c.Stop().Done()
	logger.Info("refresh scheduler stopped")
	return nil
}
