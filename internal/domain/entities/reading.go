package entities

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the wall-clock format used for the timestamp column.
const TimestampLayout = "2006-01-02 15:04:05"

// CSVHeader lists the columns in the order Record emits them.
var CSVHeader = []string{"timestamp", "city", "temperature", "humidity", "weather"}

// Reading is one observation for one city. It only exists for a fetch that
// returned every field.
type Reading struct {
	Timestamp   time.Time `json:"timestamp"`
	City        string    `json:"city"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Weather     string    `json:"weather"`
}

func NewReading(city string, temperature, humidity float64, weather string, at time.Time) *Reading {
	return &Reading{
		Timestamp:   at,
		City:        city,
		Temperature: temperature,
		Humidity:    humidity,
		Weather:     weather,
	}
}

func (r *Reading) FormattedTimestamp() string {
	return r.Timestamp.Local().Format(TimestampLayout)
}

// Record renders the reading as one CSV row.
func (r *Reading) Record() []string {
	return []string{
		r.FormattedTimestamp(),
		r.City,
		formatNumber(r.Temperature),
		formatNumber(r.Humidity),
		r.Weather,
	}
}

func (r *Reading) String() string {
	return fmt.Sprintf("{timestamp: %s, city: %s, temperature: %s, humidity: %s, weather: %s}",
		r.FormattedTimestamp(), r.City, formatNumber(r.Temperature), formatNumber(r.Humidity), r.Weather)
}

// ParseRecord is the inverse of Record. The timestamp is read in local time.
func ParseRecord(record []string) (*Reading, error) {
	if len(record) != len(CSVHeader) {
		return nil, fmt.Errorf("expected %d columns, got %d", len(CSVHeader), len(record))
	}

	ts, err := time.ParseInLocation(TimestampLayout, strings.TrimSpace(record[0]), time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q: %w", record[0], err)
	}

	temperature, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid temperature %q: %w", record[2], err)
	}

	humidity, err := strconv.ParseFloat(strings.TrimSpace(record[3]), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid humidity %q: %w", record[3], err)
	}

	return NewReading(record[1], temperature, humidity, record[4], ts), nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
