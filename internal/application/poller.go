package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/k-shtanenko/weather-app/weather-poller/internal/domain/entities"
	"github.com/k-shtanenko/weather-app/weather-poller/internal/domain/ports"
	"github.com/k-shtanenko/weather-app/weather-poller/internal/pkg/logger"
)

// Stats are the poller's running counters. Readings themselves are never
// kept between cycles.
type Stats struct {
	StartedAt               time.Time `json:"started_at"`
	Cycles                  uint64    `json:"cycles"`
	Fetched                 uint64    `json:"fetched"`
	Written                 uint64    `json:"written"`
	Failures                uint64    `json:"failures"`
	ConsecutiveFailedCycles int       `json:"consecutive_failed_cycles"`
	LastSuccessAt           time.Time `json:"last_success_at"`
	LastError               string    `json:"last_error,omitempty"`
	LastErrorAt             time.Time `json:"last_error_at"`
	NextPollAt              time.Time `json:"next_poll_at"`
}

type CycleResult struct {
	ID      string
	Written int
	Failed  int
}

type Poller struct {
	fetcher   ports.Fetcher
	writer    ports.ReadingWriter
	schedule  ports.Schedule
	cities    []string
	maxCycles int
	clock     ports.Clock
	logger    logger.Logger

	mu    sync.RWMutex
	stats Stats
}

type Option func(*Poller)

func WithClock(clock ports.Clock) Option {
	return func(p *Poller) { p.clock = clock }
}

func WithLogger(l logger.Logger) Option {
	return func(p *Poller) { p.logger = l.WithField("component", "weather_poller") }
}

// WithMaxCycles stops Run after n cycles. Zero means run until cancelled.
func WithMaxCycles(n int) Option {
	return func(p *Poller) { p.maxCycles = n }
}

func NewPoller(
	fetcher ports.Fetcher,
	writer ports.ReadingWriter,
	schedule ports.Schedule,
	cities []string,
	opts ...Option,
) *Poller {
	p := &Poller{
		fetcher:  fetcher,
		writer:   writer,
		schedule: schedule,
		cities:   cities,
		clock:    systemClock{},
		logger:   logger.New("info", "development").WithField("component", "weather_poller"),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Run polls every city once per cycle, in order, then waits for the next
// scheduled time measured from the end of the cycle. It returns nil when
// ctx is cancelled or the cycle limit is reached.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Infof("Starting weather poller for %d cities: %v", len(p.cities), p.cities)

	p.mu.Lock()
	p.stats.StartedAt = p.clock.Now()
	p.mu.Unlock()

	for cycle := 1; ; cycle++ {
		p.RunCycle(ctx)

		if ctx.Err() != nil {
			break
		}
		if p.maxCycles > 0 && cycle >= p.maxCycles {
			p.logger.Infof("Reached cycle limit of %d", p.maxCycles)
			break
		}

		next := p.schedule.Next(p.clock.Now())
		p.mu.Lock()
		p.stats.NextPollAt = next
		p.mu.Unlock()

		p.logger.Debugf("Next poll at %s", next.Format(entities.TimestampLayout))
		if err := sleepUntil(ctx, p.clock, next); err != nil {
			break
		}
	}

	p.logger.Info("Weather poller stopped")
	return nil
}

// RunCycle performs one fetch-and-append pass over all cities. Failures are
// logged and counted; they never abort the cycle or the loop.
func (p *Poller) RunCycle(ctx context.Context) CycleResult {
	result := CycleResult{ID: uuid.NewString()}
	log := p.logger.WithField("cycle_id", result.ID)

	ctx, span := otel.Tracer("weather-poller").Start(ctx, "poll-cycle")
	defer span.End()
	span.SetAttributes(
		attribute.String("cycle.id", result.ID),
		attribute.Int("cycle.cities", len(p.cities)),
	)

	startTime := p.clock.Now()
	log.Debug("Starting poll cycle")

	for _, city := range p.cities {
		if ctx.Err() != nil {
			break
		}

		if err := p.pollCity(ctx, log.WithField("city", city), city); err != nil {
			if ctx.Err() != nil {
				break
			}
			result.Failed++
			p.recordFailure(err)
			continue
		}
		result.Written++
	}

	p.mu.Lock()
	p.stats.Cycles++
	if result.Written == 0 && result.Failed > 0 {
		p.stats.ConsecutiveFailedCycles++
	} else if result.Written > 0 {
		p.stats.ConsecutiveFailedCycles = 0
	}
	p.mu.Unlock()

	span.SetAttributes(
		attribute.Int("cycle.written", result.Written),
		attribute.Int("cycle.failed", result.Failed),
	)
	if result.Failed > 0 {
		span.SetStatus(codes.Error, "one or more cities failed")
	}

	if logger.IsDebugEnabled(log) {
		log.Debugf("Poll cycle finished in %v: %d written, %d failed",
			p.clock.Now().Sub(startTime), result.Written, result.Failed)
	}
	return result
}

func (p *Poller) pollCity(ctx context.Context, log logger.Logger, city string) error {
	reading, err := p.fetcher.Fetch(ctx, city)
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return err
		}
		if code := entities.StatusCode(err); code != 0 {
			log.Errorf("Error: %d", code)
		} else {
			log.Errorf("Error: %v", err)
		}
		log.Error("Failed to fetch weather data.")
		return err
	}

	p.mu.Lock()
	p.stats.Fetched++
	p.mu.Unlock()

	log.Infof("Fetched data: %s", reading)

	// A reading that was fetched is written even if shutdown started meanwhile.
	if err := p.writer.Append(context.WithoutCancel(ctx), reading); err != nil {
		log.Errorf("Failed to append reading: %v", err)
		return err
	}

	p.mu.Lock()
	p.stats.Written++
	p.stats.LastSuccessAt = reading.Timestamp
	p.mu.Unlock()

	return nil
}

func (p *Poller) recordFailure(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.Failures++
	p.stats.LastError = err.Error()
	p.stats.LastErrorAt = p.clock.Now()
}

func (p *Poller) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stats
}

func (p *Poller) Cities() []string {
	return append([]string(nil), p.cities...)
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// sleepUntil blocks until the clock reaches until or ctx is done.
func sleepUntil(ctx context.Context, clock ports.Clock, until time.Time) error {
	d := until.Sub(clock.Now())
	if d <= 0 {
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-clock.After(d):
		return nil
	}
}
