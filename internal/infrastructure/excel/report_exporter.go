package excel

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/k-shtanenko/weather-app/weather-poller/internal/domain/entities"
	"github.com/k-shtanenko/weather-app/weather-poller/internal/pkg/logger"
)

const (
	DataSheet  = "Weather Data"
	StatsSheet = "Statistics"
)

var statsHeader = []interface{}{
	"City", "Readings", "Avg temperature (°C)", "Min temperature (°C)",
	"Max temperature (°C)", "Avg humidity (%)", "First reading", "Last reading",
}

type ReportExporter struct {
	logger logger.Logger
}

func NewReportExporter(log logger.Logger) *ReportExporter {
	return &ReportExporter{
		logger: log.WithField("component", "excel_exporter"),
	}
}

// CityStats summarises the readings of a single city.
type CityStats struct {
	City        string
	Count       int
	AvgTemp     float64
	MinTemp     float64
	MaxTemp     float64
	AvgHumidity float64
	First       time.Time
	Last        time.Time
}

func (e *ReportExporter) Export(ctx context.Context, readings []*entities.Reading, w io.Writer) error {
	e.logger.Infof("Generating report with %d readings", len(readings))

	f := excelize.NewFile()
	defer f.Close()

	f.SetDocProps(&excelize.DocProperties{
		Title:   "Weather Readings",
		Subject: "Weather poll history",
		Creator: "weather-poller",
		Created: time.Now().Format(time.RFC3339),
	})

	if err := e.createDataSheet(ctx, f, readings); err != nil {
		return fmt.Errorf("failed to create data sheet: %w", err)
	}

	if err := e.createStatisticsSheet(f, Summarize(readings)); err != nil {
		return fmt.Errorf("failed to create statistics sheet: %w", err)
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to remove default sheet: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Info("Report generated")
	return nil
}

func (e *ReportExporter) createDataSheet(ctx context.Context, f *excelize.File, readings []*entities.Reading) error {
	idx, err := f.NewSheet(DataSheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)

	header := make([]interface{}, len(entities.CSVHeader))
	for i, h := range entities.CSVHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(DataSheet, "A1", &header); err != nil {
		return err
	}

	for i, r := range readings {
		if err := ctx.Err(); err != nil {
			return err
		}

		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{r.FormattedTimestamp(), r.City, r.Temperature, r.Humidity, r.Weather}
		if err := f.SetSheetRow(DataSheet, cell, &row); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(DataSheet, "A", "A", 20); err != nil {
		return err
	}
	return f.SetColWidth(DataSheet, "E", "E", 24)
}

func (e *ReportExporter) createStatisticsSheet(f *excelize.File, stats []CityStats) error {
	if _, err := f.NewSheet(StatsSheet); err != nil {
		return err
	}

	if err := f.SetSheetRow(StatsSheet, "A1", &statsHeader); err != nil {
		return err
	}

	for i, s := range stats {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{
			s.City, s.Count, round2(s.AvgTemp), s.MinTemp, s.MaxTemp, round2(s.AvgHumidity),
			s.First.Format(entities.TimestampLayout), s.Last.Format(entities.TimestampLayout),
		}
		if err := f.SetSheetRow(StatsSheet, cell, &row); err != nil {
			return err
		}
	}

	return f.SetColWidth(StatsSheet, "A", "H", 20)
}

// Summarize groups readings by city, sorted by city name.
func Summarize(readings []*entities.Reading) []CityStats {
	byCity := make(map[string]*CityStats)
	var sumTemp, sumHum = make(map[string]float64), make(map[string]float64)

	for _, r := range readings {
		s, ok := byCity[r.City]
		if !ok {
			s = &CityStats{City: r.City, MinTemp: r.Temperature, MaxTemp: r.Temperature, First: r.Timestamp, Last: r.Timestamp}
			byCity[r.City] = s
		}

		s.Count++
		sumTemp[r.City] += r.Temperature
		sumHum[r.City] += r.Humidity

		if r.Temperature < s.MinTemp {
			s.MinTemp = r.Temperature
		}
		if r.Temperature > s.MaxTemp {
			s.MaxTemp = r.Temperature
		}
		if r.Timestamp.Before(s.First) {
			s.First = r.Timestamp
		}
		if r.Timestamp.After(s.Last) {
			s.Last = r.Timestamp
		}
	}

	out := make([]CityStats, 0, len(byCity))
	for city, s := range byCity {
		s.AvgTemp = sumTemp[city] / float64(s.Count)
		s.AvgHumidity = sumHum[city] / float64(s.Count)
		out = append(out, *s)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].City < out[j].City })
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
