package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/pflag"

	"github.com/k-shtanenko/weather-app/weather-poller/internal/bootstrap"
	"github.com/k-shtanenko/weather-app/weather-poller/internal/pkg/logger"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "export" {
		if err := runExport(os.Args[2:]); err != nil {
			log.Fatalf("Export failed: %v", err)
		}
		return
	}

	flags := pflag.NewFlagSet("weather-poller", pflag.ExitOnError)
	configPath := flags.StringP("config", "c", "", "path to config file (default: search for config.yaml)")
	once := flags.Bool("once", false, "run a single poll cycle and exit")
	flags.Parse(os.Args[1:])

	app, err := bootstrap.NewBootstrap(*configPath, *once)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Fatalf("Application failed: %v", err)
	}
}

func runExport(args []string) error {
	flags := pflag.NewFlagSet("weather-poller export", pflag.ExitOnError)
	csvPath := flags.String("csv", "weather_data.csv", "CSV file written by the poller")
	outPath := flags.StringP("out", "o", "weather_report.xlsx", "XLSX file to create")
	logLevel := flags.String("log-level", "info", "log level")
	flags.Parse(args)

	if *outPath == "" {
		return fmt.Errorf("--out must not be empty")
	}

	return bootstrap.Export(context.Background(), *csvPath, *outPath, logger.New(*logLevel, "development"))
}
