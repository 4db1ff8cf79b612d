package schedule

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSpec fires on every minute.
const DefaultSpec = "* * * * *"

// Clock paces the control loop. Each Wait returns on a whole minute matched
// by the cron spec, whatever time the previous tick's work took.
//
// Waiting is two-phase: one coarse sleep to just before the boundary, then
// short sleeps until the wall clock has crossed it. The second phase absorbs
// timer drift so ticks always run at second zero.
type Clock struct {
	sched cron.Schedule
	loc   *time.Location
	fine  time.Duration

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// NewClock parses a standard 5-field cron spec; ticks are computed in loc.
func NewClock(spec string, loc *time.Location) (*Clock, error) {
	if strings.TrimSpace(spec) == "" {
		spec = DefaultSpec
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("loop.schedule %q: %w", spec, err)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Clock{
		sched: sched,
		loc:   loc,
		fine:  500 * time.Millisecond,
		now:   time.Now,
		after: time.After,
	}, nil
}

// Now returns the current time in the clock's zone.
func (c *Clock) Now() time.Time { return c.now().In(c.loc) }

// Next returns the first tick strictly after t.
func (c *Clock) Next(t time.Time) time.Time { return c.sched.Next(t.In(c.loc)) }

// Wait blocks until the next tick or until wake fires (wake may be nil).
// It returns the current time, and whether the wait ended early because of wake.
func (c *Clock) Wait(ctx context.Context, wake <-chan struct{}) (time.Time, bool, error) {
	next := c.Next(c.Now())

	if coarse := next.Sub(c.Now()) - time.Second; coarse > 0 {
		select {
		case <-ctx.Done():
			return time.Time{}, false, ctx.Err()
		case <-wake:
			return c.Now(), true, nil
		case <-c.after(coarse):
		}
	}
	for c.Now().Before(next) {
		select {
		case <-ctx.Done():
			return time.Time{}, false, ctx.Err()
		case <-wake:
			return c.Now(), true, nil
		case <-c.after(c.fine):
		}
	}
	return c.Now(), false, nil
}
