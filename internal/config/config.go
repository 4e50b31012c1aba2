package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Weatherbit WeatherbitConfig `mapstructure:"weatherbit"`
	Cities     []string         `mapstructure:"cities"`
	CSV        CSVConfig        `mapstructure:"csv"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Status     StatusConfig     `mapstructure:"status"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
}

type WeatherbitConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Units   string `mapstructure:"units"`
	// Zero means requests are only bounded by shutdown.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type CSVConfig struct {
	Path string `mapstructure:"path"`
}

type SchedulerConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	Cron      string        `mapstructure:"cron"`
	MaxCycles int           `mapstructure:"max_cycles"`
}

type StatusConfig struct {
	Addr           string `mapstructure:"addr"`
	UnhealthyAfter int    `mapstructure:"unhealthy_after"`
	// RateLimit is the request burst; one more is admitted per RateWindow.
	// Zero disables limiting.
	RateLimit  int           `mapstructure:"rate_limit"`
	RateWindow time.Duration `mapstructure:"rate_window"`
}

type TracingConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "weather-poller")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("weatherbit.base_url", "https://api.weatherbit.io/v2.0")
	v.SetDefault("weatherbit.units", "M")
	v.SetDefault("weatherbit.request_timeout", 0)

	v.SetDefault("cities", []string{"Manila"})
	v.SetDefault("csv.path", "weather_data.csv")

	v.SetDefault("scheduler.interval", 60*time.Second)
	v.SetDefault("scheduler.max_cycles", 0)

	v.SetDefault("status.unhealthy_after", 5)
	v.SetDefault("status.rate_limit", 10)
	v.SetDefault("status.rate_window", time.Second)
}

// Load reads configuration from path, or from config.yaml in the usual
// search locations when path is empty, then applies environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/weather-poller/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := applyEnv(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func applyEnv(v *viper.Viper) error {
	overrides := map[string]string{
		"WEATHERBIT_API_KEY":          "weatherbit.api_key",
		"WEATHERBIT_BASE_URL":         "weatherbit.base_url",
		"WEATHER_CSV_PATH":            "csv.path",
		"WEATHER_CRON":                "scheduler.cron",
		"STATUS_ADDR":                 "status.addr",
		"OTEL_EXPORTER_OTLP_ENDPOINT": "tracing.endpoint",
		"LOG_LEVEL":                   "app.log_level",
		"APP_ENV":                     "app.env",
	}
	for env, key := range overrides {
		if value := os.Getenv(env); value != "" {
			v.Set(key, value)
		}
	}

	if cities := os.Getenv("WEATHER_CITIES"); cities != "" {
		v.Set("cities", splitList(cities))
	}

	if interval := os.Getenv("POLL_INTERVAL"); interval != "" {
		d, err := parseDuration(interval)
		if err != nil {
			return fmt.Errorf("invalid POLL_INTERVAL %q: %w", interval, err)
		}
		v.Set("scheduler.interval", d)
	}

	return nil
}

// parseDuration accepts Go durations ("90s") and bare seconds ("60").
func parseDuration(s string) (time.Duration, error) {
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(s)
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func validateConfig(cfg *Config) error {
	if cfg.Weatherbit.APIKey == "" {
		return fmt.Errorf("weatherbit API key must not be empty")
	}

	if cfg.Weatherbit.BaseURL == "" {
		return fmt.Errorf("weatherbit base URL must not be empty")
	}

	// Rows carry no unit column, so every reading must be Celsius.
	if cfg.Weatherbit.Units != "M" {
		return fmt.Errorf("weatherbit units must be M (metric), got %q", cfg.Weatherbit.Units)
	}

	if len(cfg.Cities) == 0 {
		return fmt.Errorf("at least one city is required")
	}

	for i, city := range cfg.Cities {
		if strings.TrimSpace(city) == "" {
			return fmt.Errorf("city #%d is blank", i+1)
		}
	}

	if cfg.CSV.Path == "" {
		return fmt.Errorf("CSV path must not be empty")
	}

	if cfg.Scheduler.Cron == "" && cfg.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler interval must be positive")
	}

	if cfg.Scheduler.MaxCycles < 0 {
		return fmt.Errorf("scheduler max_cycles must not be negative")
	}

	if cfg.Weatherbit.RequestTimeout < 0 {
		return fmt.Errorf("request timeout must not be negative")
	}

	if cfg.Status.RateLimit < 0 {
		return fmt.Errorf("status rate_limit must not be negative")
	}

	if cfg.Status.RateLimit > 0 && cfg.Status.RateWindow <= 0 {
		return fmt.Errorf("status rate_window must be positive when rate_limit is set")
	}

	return nil
}
