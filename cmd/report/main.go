// Command report runs the analytics pipeline once for a date range and
// prints the result as JSON. Useful for cron jobs and ad-hoc inspection
// without the API server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/kotshq/call-insights/internal/infrastructure/config"
	"github.com/kotshq/call-insights/internal/infrastructure/database"
	"github.com/kotshq/call-insights/internal/infrastructure/exotel"
	"github.com/kotshq/call-insights/internal/infrastructure/repository"
	"github.com/kotshq/call-insights/internal/infrastructure/telemetry"
	"github.com/kotshq/call-insights/internal/service/analytics"
	"github.com/kotshq/call-insights/internal/service/classification"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	startArg := flag.String("start", "", "start date (YYYY-MM-DD), defaults to yesterday")
	endArg := flag.String("end", "", "end date (YYYY-MM-DD), defaults to start")
	compare := flag.String("compare", "", "run a period comparison: week or month")
	flag.Parse()

	if err := run(*configPath, *startArg, *endArg, *compare); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, startArg, endArg, compare string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := telemetry.SetupLogger(cfg.LogLevel)

	start, end, err := resolveRange(startArg, endArg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	repo := repository.NewTenantRepository(pool.Pgx(), cfg.Database, logger)
	classifier := classification.NewService(repo, logger)

	fetcher, err := exotel.NewClient(cfg.Exotel, logger)
	if err != nil {
		return fmt.Errorf("building exotel client: %w", err)
	}

	pipeline := analytics.NewPipeline(fetcher, classifier, cfg.Exotel.Exophone, logger)

	var result any
	switch compare {
	case "":
		result, err = pipeline.Run(ctx, start, end)
	case string(analytics.CompareWeek):
		result, err = pipeline.RunComparison(ctx, start, end, analytics.CompareWeek)
	case string(analytics.CompareMonth):
		result, err = pipeline.RunComparison(ctx, start, end, analytics.CompareMonth)
	default:
		return fmt.Errorf("unknown comparison %q, want week or month", compare)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func resolveRange(startArg, endArg string) (time.Time, time.Time, error) {
	if startArg == "" {
		yesterday := time.Now().AddDate(0, 0, -1)
		day := time.Date(yesterday.Year(), yesterday.Month(), yesterday.Day(), 0, 0, 0, 0, time.UTC)
		return day, day, nil
	}

	start, err := time.Parse("2006-01-02", startArg)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q", startArg)
	}

	end := start
	if endArg != "" {
		end, err = time.Parse("2006-01-02", endArg)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q", endArg)
		}
	}

	return start, end, nil
}
