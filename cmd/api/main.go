package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/kotshq/call-insights/internal/api/rest"
	"github.com/kotshq/call-insights/internal/infrastructure/cache"
	"github.com/kotshq/call-insights/internal/infrastructure/config"
	"github.com/kotshq/call-insights/internal/infrastructure/database"
	"github.com/kotshq/call-insights/internal/infrastructure/exotel"
	"github.com/kotshq/call-insights/internal/infrastructure/repository"
	"github.com/kotshq/call-insights/internal/infrastructure/telemetry"
	"github.com/kotshq/call-insights/internal/service/analytics"
	"github.com/kotshq/call-insights/internal/service/classification"
	"github.com/kotshq/call-insights/internal/service/reporting"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := telemetry.SetupLogger(cfg.LogLevel)
	logger.Info("starting call-insights api", "environment", cfg.Environment, "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	store := tenantStore(cfg, pool, logger)
	classifier := classification.NewService(store, logger)

	fetcher, err := exotel.NewClient(cfg.Exotel, logger)
	if err != nil {
		return fmt.Errorf("building exotel client: %w", err)
	}

	pipeline := analytics.NewPipeline(fetcher, classifier, cfg.Exotel.Exophone, logger)

	loc, err := time.LoadLocation(cfg.Report.Timezone)
	if err != nil {
		logger.Warn("unknown report timezone, using UTC", "timezone", cfg.Report.Timezone)
		loc = time.UTC
	}

	reports := reporting.NewService(pipeline, reportSender(cfg.Report, logger), cfg.Report.Recipient, loc, logger)

	scheduler := reporting.NewScheduler(reports, loc, logger)
	if err := scheduler.Start(cfg.Report.Time); err != nil {
		return fmt.Errorf("starting report scheduler: %w", err)
	}
	defer scheduler.Stop()

	handler := rest.NewHandler(pipeline, reports, scheduler, classifier, pool, cfg, logger)
	server := rest.NewServer(cfg.Server, handler.Routes(), logger)

	return server.Run(ctx)
}

// tenantStore wraps the repository in the Redis read-through cache when one
// is configured.
func tenantStore(cfg *config.Config, pool *database.Pool, logger *slog.Logger) classification.TenantStore {
	repo := repository.NewTenantRepository(pool.Pgx(), cfg.Database, logger)
	if !cfg.Redis.Enabled {
		return repo
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	logger.Info("tenant cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.TTL)
	return cache.NewCachedTenantStore(repo, rdb, cfg.Redis.TTL, logger)
}

// reportSender picks the delivery path: the Infobip API when configured,
// otherwise SMTP, otherwise a sender that fails with a clear message.
func reportSender(cfg config.ReportConfig, logger *slog.Logger) reporting.Sender {
	if sender, err := reporting.NewInfobipSender(cfg.Infobip, logger); err == nil {
		logger.Info("report delivery via infobip")
		return sender
	}
	if sender, err := reporting.NewSMTPSender(cfg.SMTP, logger); err == nil {
		logger.Info("report delivery via smtp", "host", cfg.SMTP.Host)
		return sender
	}
	logger.Warn("no email sender configured, report delivery disabled")
	return disabledSender{}
}

type disabledSender struct{}

func (disabledSender) Send(context.Context, reporting.Message) error {
	return fmt.Errorf("email delivery is not configured")
}
