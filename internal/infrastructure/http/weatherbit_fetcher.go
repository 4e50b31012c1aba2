package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/k-shtanenko/weather-app/weather-poller/internal/domain/entities"
	"github.com/k-shtanenko/weather-app/weather-poller/internal/domain/ports"
	"github.com/k-shtanenko/weather-app/weather-poller/internal/pkg/logger"
)

const (
	DefaultBaseURL = "https://api.weatherbit.io/v2.0"
	MetricUnits    = "M"

	maxErrorBody = 512
)

type WeatherbitFetcher struct {
	client  *http.Client
	baseURL string
	apiKey  string
	units   string
	now     func() time.Time
	logger  logger.Logger
}

type Option func(*WeatherbitFetcher)

func WithHTTPClient(client *http.Client) Option {
	return func(f *WeatherbitFetcher) { f.client = client }
}

func WithClock(now func() time.Time) Option {
	return func(f *WeatherbitFetcher) { f.now = now }
}

func WithLogger(l logger.Logger) Option {
	return func(f *WeatherbitFetcher) { f.logger = l.WithField("component", "weatherbit_fetcher") }
}

// NewWeatherbitFetcher builds a fetcher against the current-conditions
// endpoint. A zero timeout leaves requests unbounded; only ctx stops them.
func NewWeatherbitFetcher(baseURL, apiKey, units string, timeout time.Duration, opts ...Option) ports.Fetcher {
	if units == "" {
		units = MetricUnits
	}

	f := &WeatherbitFetcher{
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		units:   units,
		now:     time.Now,
		logger:  logger.New("info", "development").WithField("component", "weatherbit_fetcher"),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

type currentResponse struct {
	Data []struct {
		Temp    *float64 `json:"temp"`
		RH      *float64 `json:"rh"`
		Weather *struct {
			Description *string `json:"description"`
		} `json:"weather"`
	} `json:"data"`
	Count int `json:"count"`
}

func (f *WeatherbitFetcher) Fetch(ctx context.Context, city string) (*entities.Reading, error) {
	ctx, span := otel.Tracer("weather-poller").Start(ctx, "weatherbit: fetch current")
	defer span.End()
	span.SetAttributes(attribute.String("weather.city", city))

	f.logger.Debugf("Fetching weather for city: %s", city)

	reading, err := f.fetch(ctx, city)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, err
	}

	f.logger.Debugf("Successfully fetched weather for %s", city)
	return reading, nil
}

func (f *WeatherbitFetcher) fetch(ctx context.Context, city string) (*entities.Reading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.currentURL(city), nil)
	if err != nil {
		return nil, &entities.FetchError{Kind: entities.KindTransport, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &entities.FetchError{Kind: entities.KindTransport, Err: fmt.Errorf("failed to execute request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &entities.UpstreamError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var apiResp currentResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, &entities.FetchError{Kind: entities.KindParse, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	return f.convertToReading(city, &apiResp)
}

func (f *WeatherbitFetcher) currentURL(city string) string {
	q := url.Values{}
	q.Set("city", city)
	q.Set("key", f.apiKey)
	q.Set("units", f.units)
	return fmt.Sprintf("%s/current?%s", f.baseURL, q.Encode())
}

func (f *WeatherbitFetcher) convertToReading(city string, resp *currentResponse) (*entities.Reading, error) {
	if len(resp.Data) == 0 {
		return nil, &entities.FetchError{Kind: entities.KindParse, Err: entities.ErrEmptyPayload}
	}

	obs := resp.Data[0]
	switch {
	case obs.Temp == nil:
		return nil, missing("data[0].temp")
	case obs.RH == nil:
		return nil, missing("data[0].rh")
	case obs.Weather == nil || obs.Weather.Description == nil:
		return nil, missing("data[0].weather.description")
	}

	return entities.NewReading(city, *obs.Temp, *obs.RH, *obs.Weather.Description, f.now()), nil
}

func missing(field string) error {
	return &entities.FetchError{
		Kind: entities.KindParse,
		Err:  fmt.Errorf("%s: %w", field, entities.ErrMissingField),
	}
}
