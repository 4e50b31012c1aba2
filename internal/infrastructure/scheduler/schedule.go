package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// DelaySchedule fires a fixed delay after the time it is asked about.
// Unlike cron.ConstantDelaySchedule it does not round to whole seconds, so
// asking with the end of a cycle always yields at least Delay of idle time.
type DelaySchedule struct {
	Delay time.Duration
}

func (s DelaySchedule) Next(t time.Time) time.Time {
	return t.Add(s.Delay)
}

// New returns the schedule the poller waits on. A non-empty expr is parsed
// as a standard five-field cron expression (descriptors such as "@hourly"
// and "@every 2m" included); otherwise interval is used as a plain delay.
func New(interval time.Duration, expr string) (cron.Schedule, error) {
	if expr != "" {
		sched, err := cron.ParseStandard(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
		}
		return sched, nil
	}

	if interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %v", interval)
	}

	return DelaySchedule{Delay: interval}, nil
}
