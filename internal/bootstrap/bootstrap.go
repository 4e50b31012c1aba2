package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/k-shtanenko/weather-app/weather-poller/internal/application"
	"github.com/k-shtanenko/weather-app/weather-poller/internal/config"
	"github.com/k-shtanenko/weather-app/weather-poller/internal/infrastructure/api"
	httpfetcher "github.com/k-shtanenko/weather-app/weather-poller/internal/infrastructure/http"
	"github.com/k-shtanenko/weather-app/weather-poller/internal/infrastructure/scheduler"
	"github.com/k-shtanenko/weather-app/weather-poller/internal/infrastructure/storage"
	"github.com/k-shtanenko/weather-app/weather-poller/internal/infrastructure/tracing"
	"github.com/k-shtanenko/weather-app/weather-poller/internal/pkg/logger"
)

type Bootstrap struct {
	config *config.Config
	logger logger.Logger
}

func NewBootstrap(configPath string, once bool) (*Bootstrap, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if once {
		cfg.Scheduler.MaxCycles = 1
	}

	log := logger.New(cfg.App.LogLevel, cfg.App.Env).WithField("service", cfg.App.Name)

	return &Bootstrap{
		config: cfg,
		logger: log,
	}, nil
}

// Run polls until SIGINT/SIGTERM or until the configured cycle limit.
func (b *Bootstrap) Run() error {
	b.PrintConfigInfo()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return b.run(ctx)
}

func (b *Bootstrap) run(ctx context.Context) error {
	shutdownTracing, err := tracing.Init(ctx, b.config.Tracing.Endpoint, b.config.App.Name)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			b.logger.Warnf("Failed to flush traces: %v", err)
		}
	}()

	poller, err := b.initPoller()
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	if b.config.Status.Addr != "" {
		handler := api.NewStatusHandler(poller, b.config.Status.UnhealthyAfter, b.logger)
		limit := api.RateLimit{Limit: b.config.Status.RateLimit, Window: b.config.Status.RateWindow}
		server := api.NewStatusServer(b.config.Status.Addr, handler, b.config.App.Env, limit, b.logger)
		if err := server.Start(); err != nil {
			return fmt.Errorf("failed to start status server: %w", err)
		}
		defer func() {
			if err := server.Stop(context.Background()); err != nil {
				b.logger.Errorf("Failed to stop status server: %v", err)
			}
		}()
	}

	if err := poller.Run(ctx); err != nil {
		return fmt.Errorf("poller failed: %w", err)
	}

	b.logger.Info("Service stopped gracefully")
	return nil
}

func (b *Bootstrap) initPoller() (*application.Poller, error) {
	b.logger.Info("Initializing dependencies...")

	fetcher := httpfetcher.NewWeatherbitFetcher(
		b.config.Weatherbit.BaseURL,
		b.config.Weatherbit.APIKey,
		b.config.Weatherbit.Units,
		b.config.Weatherbit.RequestTimeout,
		httpfetcher.WithLogger(b.logger),
	)
	b.logger.Info("Weatherbit fetcher initialized")

	store := storage.NewStore(b.config.CSV.Path, b.logger)
	b.logger.Infof("CSV store initialized at %s", store.Path())

	schedule, err := scheduler.New(b.config.Scheduler.Interval, b.config.Scheduler.Cron)
	if err != nil {
		return nil, fmt.Errorf("failed to build schedule: %w", err)
	}

	return application.NewPoller(
		fetcher,
		store,
		schedule,
		b.config.Cities,
		application.WithLogger(b.logger),
		application.WithMaxCycles(b.config.Scheduler.MaxCycles),
	), nil
}

func (b *Bootstrap) PrintConfigInfo() {
	b.logger.Infof("Service Name: %s", b.config.App.Name)
	b.logger.Infof("Environment: %s", b.config.App.Env)
	b.logger.Infof("Weatherbit API Base URL: %s", b.config.Weatherbit.BaseURL)
	b.logger.Infof("Cities to poll: %v", b.config.Cities)
	b.logger.Infof("CSV file: %s", b.config.CSV.Path)
	if b.config.Scheduler.Cron != "" {
		b.logger.Infof("Poll schedule: %s", b.config.Scheduler.Cron)
	} else {
		b.logger.Infof("Poll interval: %v", b.config.Scheduler.Interval)
	}
}
