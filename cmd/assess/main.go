// Command assess runs a single storage risk assessment and prints the report
// as JSON. Provider credentials and model settings come from the same
// environment variables as the service; flags describe the request.
//
// Usage:
//
//	go run ./cmd/assess -lat -1.2921 -lon 36.8219 \
//	  -storage bag -ventilation 0.4 -moisture 14
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/harvest-risk-service/internal/app"
	"github.com/couchcryptid/harvest-risk-service/internal/assessment"
	"github.com/couchcryptid/harvest-risk-service/internal/config"
	"github.com/couchcryptid/harvest-risk-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "assess:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("assess", flag.ContinueOnError)
	fs.SetOutput(stderr)
	lat := fs.Float64("lat", 0, "latitude in degrees (required)")
	lon := fs.Float64("lon", 0, "longitude in degrees (required)")
	storage := fs.String("storage", string(assessment.DefaultStorageType), "storage type: silo, warehouse, bag, or open")
	ventilation := fs.Float64("ventilation", assessment.DefaultVentilationScore, "ventilation score between 0 and 1")
	moisture := fs.Float64("moisture", assessment.DefaultMoistureContent, "grain moisture content in percent")
	hours := fs.Int("hours", 0, "forecast hours (default from FORECAST_HOURS)")
	date := fs.String("date", "", "satellite observation date, YYYY-MM-DD (default today)")
	timeout := fs.Duration("timeout", 30*time.Second, "overall deadline")
	verbose := fs.Bool("v", false, "log progress to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req, err := buildRequest(fs, *lat, *lon)
	if err != nil {
		return err
	}
	req.StorageType = *storage
	req.VentilationScore = ventilation
	req.MoistureContent = moisture
	req.ForecastHours = *hours
	req.Date = *date

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	engine, err := app.NewEngine(cfg, clockwork.NewRealClock(), observability.NewUnregisteredMetrics(), logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	report, err := engine.Assess(ctx, req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// buildRequest requires -lat and -lon to be set explicitly, since 0 is a
// valid coordinate.
func buildRequest(fs *flag.FlagSet, lat, lon float64) (assessment.Request, error) {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if !set["lat"] || !set["lon"] {
		return assessment.Request{}, fmt.Errorf("-lat and -lon are required")
	}
	return assessment.Request{Latitude: &lat, Longitude: &lon}, nil
}
