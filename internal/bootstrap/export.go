package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/k-shtanenko/weather-app/weather-poller/internal/domain/ports"
	"github.com/k-shtanenko/weather-app/weather-poller/internal/infrastructure/excel"
	"github.com/k-shtanenko/weather-app/weather-poller/internal/infrastructure/storage"
	"github.com/k-shtanenko/weather-app/weather-poller/internal/pkg/logger"
)

// Export converts the CSV at csvPath into an XLSX workbook at outPath.
func Export(ctx context.Context, csvPath, outPath string, log logger.Logger) error {
	return export(ctx, storage.NewStore(csvPath, log), excel.NewReportExporter(log), outPath, log)
}

func export(ctx context.Context, source ports.ReadingSource, exporter ports.ReportExporter, outPath string, log logger.Logger) error {
	readings, err := source.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to read readings: %w", err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outPath, err)
	}

	if err := exporter.Export(ctx, readings, out); err != nil {
		out.Close()
		os.Remove(outPath)
		return fmt.Errorf("failed to export report: %w", err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", outPath, err)
	}

	log.Infof("Exported %d readings to %s", len(readings), outPath)
	return nil
}
