package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kotshq/call-insights/internal/infrastructure/config"
)

// Pool wraps a bounded pgx connection pool with an explicit lifecycle: opened
// once at process start, closed at shutdown. Min and max sizes are fixed at
// startup and pgxpool guarantees connections return to the pool on every exit
// path, including failures.
type Pool struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPool opens and pings the customer-store connection pool.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}

	pc.MinConns = int32(cfg.MinConns)
	pc.MaxConns = int32(cfg.MaxConns)
	if cfg.ConnMaxLifetime > 0 {
		pc.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	pc.ConnConfig.ConnectTimeout = 5 * time.Second
	pc.ConnConfig.RuntimeParams = map[string]string{
		"application_name":  "call_insights",
		"statement_timeout": "30s",
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Info("database connection pool initialized",
		"min_conns", cfg.MinConns,
		"max_conns", cfg.MaxConns)

	return &Pool{pool: pool, logger: logger}, nil
}

// Pgx exposes the underlying pool for repositories.
func (p *Pool) Pgx() *pgxpool.Pool {
	return p.pool
}

// Health pings the pool with a short deadline.
func (p *Pool) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.pool.Ping(ctx)
}

// Close releases every connection. Safe to call once at shutdown.
func (p *Pool) Close() {
	p.pool.Close()
	p.logger.Info("database connection pool closed")
}
