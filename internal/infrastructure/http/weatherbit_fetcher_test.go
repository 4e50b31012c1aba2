package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k-shtanenko/weather-app/weather-poller/internal/domain/entities"
	"github.com/k-shtanenko/weather-app/weather-poller/internal/pkg/logger"
)

const manilaPayload = `{"data":[{"temp":28.5,"rh":77,"weather":{"description":"Scattered clouds"}}]}`

func newTestServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestFetcher(baseURL string, opts ...Option) *WeatherbitFetcher {
	opts = append([]Option{WithLogger(logger.Nop())}, opts...)
	return NewWeatherbitFetcher(baseURL, "test-key", MetricUnits, 5*time.Second, opts...).(*WeatherbitFetcher)
}

func TestWeatherbitFetcher_Fetch(t *testing.T) {
	t.Run("successful fetch", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/current", r.URL.Path)
			assert.Equal(t, "Manila", r.URL.Query().Get("city"))
			assert.Equal(t, "test-key", r.URL.Query().Get("key"))
			assert.Equal(t, "M", r.URL.Query().Get("units"))

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(manilaPayload))
		}))
		defer server.Close()

		fetcher := newTestFetcher(server.URL)

		reading, err := fetcher.Fetch(context.Background(), "Manila")

		require.NoError(t, err)
		assert.Equal(t, "Manila", reading.City)
		assert.Equal(t, 28.5, reading.Temperature)
		assert.Equal(t, 77.0, reading.Humidity)
		assert.Equal(t, "Scattered clouds", reading.Weather)
		assert.Regexp(t, regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`), reading.FormattedTimestamp())
	})

	t.Run("timestamp comes from the clock", func(t *testing.T) {
		server := newTestServer(t, http.StatusOK, manilaPayload)
		at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local)

		fetcher := newTestFetcher(server.URL, WithClock(func() time.Time { return at }))

		reading, err := fetcher.Fetch(context.Background(), "Manila")
		require.NoError(t, err)
		assert.Equal(t, "2025-01-02 03:04:05", reading.FormattedTimestamp())
	})

	t.Run("city names are query escaped", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Quezon City,PH", r.URL.Query().Get("city"))
			w.Write([]byte(manilaPayload))
		}))
		defer server.Close()

		reading, err := newTestFetcher(server.URL + "/").Fetch(context.Background(), "Quezon City,PH")
		require.NoError(t, err)
		assert.Equal(t, "Quezon City,PH", reading.City)
	})

	t.Run("server error", func(t *testing.T) {
		server := newTestServer(t, http.StatusInternalServerError, `{"error":"boom"}`)

		reading, err := newTestFetcher(server.URL).Fetch(context.Background(), "Manila")

		assert.Nil(t, reading)
		require.Error(t, err)

		var upstream *entities.UpstreamError
		require.True(t, errors.As(err, &upstream))
		assert.Equal(t, http.StatusInternalServerError, upstream.StatusCode)
		assert.Contains(t, err.Error(), "API returned status 500")
	})

	t.Run("invalid JSON response", func(t *testing.T) {
		server := newTestServer(t, http.StatusOK, "invalid json")

		reading, err := newTestFetcher(server.URL).Fetch(context.Background(), "Manila")

		assert.Nil(t, reading)
		var fetchErr *entities.FetchError
		require.True(t, errors.As(err, &fetchErr))
		assert.Equal(t, entities.KindParse, fetchErr.Kind)
		assert.Contains(t, err.Error(), "failed to decode response")
	})

	t.Run("empty data array", func(t *testing.T) {
		server := newTestServer(t, http.StatusOK, `{"data":[],"count":0}`)

		_, err := newTestFetcher(server.URL).Fetch(context.Background(), "Manila")

		assert.ErrorIs(t, err, entities.ErrEmptyPayload)
	})

	t.Run("missing fields", func(t *testing.T) {
		cases := map[string]string{
			"data[0].temp":                `{"data":[{"rh":77,"weather":{"description":"x"}}]}`,
			"data[0].rh":                  `{"data":[{"temp":1,"weather":{"description":"x"}}]}`,
			"data[0].weather.description": `{"data":[{"temp":1,"rh":2,"weather":{}}]}`,
		}

		for field, body := range cases {
			t.Run(field, func(t *testing.T) {
				server := newTestServer(t, http.StatusOK, body)

				_, err := newTestFetcher(server.URL).Fetch(context.Background(), "Manila")

				assert.ErrorIs(t, err, entities.ErrMissingField)
				assert.Contains(t, err.Error(), field)
			})
		}
	})

	t.Run("zero values are valid readings", func(t *testing.T) {
		server := newTestServer(t, http.StatusOK, `{"data":[{"temp":0,"rh":0,"weather":{"description":""}}]}`)

		reading, err := newTestFetcher(server.URL).Fetch(context.Background(), "Oymyakon")
		require.NoError(t, err)
		assert.Equal(t, 0.0, reading.Temperature)
	})

	t.Run("transport failure", func(t *testing.T) {
		server := newTestServer(t, http.StatusOK, manilaPayload)
		baseURL := server.URL
		server.Close()

		_, err := newTestFetcher(baseURL).Fetch(context.Background(), "Manila")

		var fetchErr *entities.FetchError
		require.True(t, errors.As(err, &fetchErr))
		assert.Equal(t, entities.KindTransport, fetchErr.Kind)
	})

	t.Run("cancelled context", func(t *testing.T) {
		server := newTestServer(t, http.StatusOK, manilaPayload)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newTestFetcher(server.URL).Fetch(ctx, "Manila")

		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestNewWeatherbitFetcher_Defaults(t *testing.T) {
	fetcher := NewWeatherbitFetcher(DefaultBaseURL, "k", "", 0).(*WeatherbitFetcher)

	assert.Equal(t, MetricUnits, fetcher.units)
	assert.Equal(t, time.Duration(0), fetcher.client.Timeout)
	assert.Equal(t, "https://api.weatherbit.io/v2.0/current?city=Manila&key=k&units=M", fetcher.currentURL("Manila"))
}
