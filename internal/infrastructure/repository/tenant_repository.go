package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kotshq/call-insights/internal/infrastructure/config"
	"github.com/kotshq/call-insights/internal/service/classification"
)

// TenantRepository resolves normalized phone keys against the two customer
// tables: the live booking-orders table and the fixed historical snapshot.
// Both sides of every comparison are digit-stripped, mirroring the
// normalization the classifier applies to incoming numbers.
type TenantRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger

	liveTable       string
	livePhoneColumn string
	historicalTable string
}

// NewTenantRepository builds a repository over the shared pool. Table names
// come from configuration because the historical snapshot is renamed on each
// re-import.
func NewTenantRepository(pool *pgxpool.Pool, cfg config.DatabaseConfig, logger *slog.Logger) *TenantRepository {
	return &TenantRepository{
		pool:            pool,
		logger:          logger,
		liveTable:       cfg.LiveTable,
		livePhoneColumn: cfg.LivePhoneColumn,
		historicalTable: cfg.HistoricalTable,
	}
}

var _ classification.TenantStore = (*TenantRepository)(nil)

// LiveMatches returns the subset of keys present in the live table. One
// round trip regardless of batch size.
func (r *TenantRepository) LiveMatches(ctx context.Context, keys []string) (map[string]struct{}, error) {
	if len(keys) == 0 {
		return map[string]struct{}{}, nil
	}

	query := fmt.Sprintf(`
		SELECT DISTINCT REGEXP_REPLACE(%s, '[^0-9]', '', 'g') AS normalized_phone
		FROM %s
		WHERE REGEXP_REPLACE(%s, '[^0-9]', '', 'g') = ANY($1)
	`, r.livePhoneColumn, r.liveTable, r.livePhoneColumn)

	rows, err := r.pool.Query(ctx, query, keys)
	if err != nil {
		return nil, fmt.Errorf("querying live table: %w", err)
	}
	defer rows.Close()

	matches := make(map[string]struct{})
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scanning live match: %w", err)
		}
		matches[key] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading live matches: %w", err)
	}

	return matches, nil
}

// HistoricalMatches returns historical-table matches for the given keys,
// matching against both the primary phone and the alternate mobile column,
// with descriptive tenant fields when available.
func (r *TenantRepository) HistoricalMatches(ctx context.Context, keys []string) (map[string]classification.HistoricalTenant, error) {
	if len(keys) == 0 {
		return map[string]classification.HistoricalTenant{}, nil
	}

	query := fmt.Sprintf(`
		SELECT REGEXP_REPLACE(phone, '[^0-9]', '', 'g') AS normalized_phone,
		       COALESCE(tenant_name, ''),
		       COALESCE(tenant_property_name, ''),
		       COALESCE(tenant_booking_id, '')
		FROM %s
		WHERE REGEXP_REPLACE(phone, '[^0-9]', '', 'g') = ANY($1)
		   OR REGEXP_REPLACE(mobile, '[^0-9]', '', 'g') = ANY($1)
	`, r.historicalTable)

	rows, err := r.pool.Query(ctx, query, keys)
	if err != nil {
		return nil, fmt.Errorf("querying historical table: %w", err)
	}
	defer rows.Close()

	matches := make(map[string]classification.HistoricalTenant)
	for rows.Next() {
		var key string
		var tenant classification.HistoricalTenant
		if err := rows.Scan(&key, &tenant.Name, &tenant.Property, &tenant.BookingID); err != nil {
			return nil, fmt.Errorf("scanning historical match: %w", err)
		}
		if _, seen := matches[key]; !seen {
			matches[key] = tenant
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading historical matches: %w", err)
	}

	return matches, nil
}

// Stats reports row counts for both customer tables.
func (r *TenantRepository) Stats(ctx context.Context) (*classification.TenantStats, error) {
	var stats classification.TenantStats

	query := fmt.Sprintf(`
		SELECT (SELECT COUNT(*) FROM %s),
		       (SELECT COUNT(*) FROM %s)
	`, r.liveTable, r.historicalTable)

	if err := r.pool.QueryRow(ctx, query).Scan(&stats.LiveCount, &stats.HistoricalCount); err != nil {
		return nil, fmt.Errorf("counting tenant rows: %w", err)
	}
	stats.TotalCount = stats.LiveCount + stats.HistoricalCount

	return &stats, nil
}
