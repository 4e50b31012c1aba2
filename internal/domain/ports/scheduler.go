package ports

import "time"

// Schedule yields the next activation after t. cron.Schedule satisfies it.
type Schedule interface {
	Next(t time.Time) time.Time
}

type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}
