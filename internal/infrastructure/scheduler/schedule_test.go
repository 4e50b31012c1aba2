package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k-shtanenko/weather-app/weather-poller/internal/domain/ports"
)

var _ ports.Schedule = DelaySchedule{}

func TestNew(t *testing.T) {
	base := time.Date(2024, 3, 9, 14, 5, 7, 250*int(time.Millisecond), time.UTC)

	t.Run("interval schedule", func(t *testing.T) {
		sched, err := New(time.Minute, "")
		require.NoError(t, err)

		assert.Equal(t, base.Add(time.Minute), sched.Next(base))
	})

	t.Run("interval keeps sub-second precision", func(t *testing.T) {
		sched, err := New(60*time.Second, "")
		require.NoError(t, err)

		next := sched.Next(base)
		assert.Equal(t, 60*time.Second, next.Sub(base))
	})

	t.Run("zero interval", func(t *testing.T) {
		_, err := New(0, "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "interval must be positive")
	})

	t.Run("cron expression", func(t *testing.T) {
		sched, err := New(0, "*/5 * * * *")
		require.NoError(t, err)

		assert.Equal(t, time.Date(2024, 3, 9, 14, 10, 0, 0, time.UTC), sched.Next(base))
	})

	t.Run("cron descriptor", func(t *testing.T) {
		sched, err := New(time.Minute, "@hourly")
		require.NoError(t, err)

		assert.Equal(t, time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC), sched.Next(base))
	})

	t.Run("invalid cron expression", func(t *testing.T) {
		_, err := New(time.Minute, "every now and then")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid cron expression")
	})
}
