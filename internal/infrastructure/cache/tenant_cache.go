package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kotshq/call-insights/internal/metrics"
	"github.com/kotshq/call-insights/internal/service/classification"
)

const (
	livePrefix = "tenant:live:"
	histPrefix = "tenant:hist:"

	// negative marks a cached "not in this store" answer.
	negative = "-"
	positive = "1"
)

// CachedTenantStore is a read-through cache in front of the customer tables.
// Caching lives here, on the store side of the classifier boundary; the
// pipeline itself never persists classifications. Entries expire after TTL,
// so a freshly onboarded customer is misreported as enquiry for at most one
// TTL window.
type CachedTenantStore struct {
	inner  classification.TenantStore
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedTenantStore wraps a store with a redis cache.
func NewCachedTenantStore(inner classification.TenantStore, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedTenantStore {
	return &CachedTenantStore{inner: inner, rdb: rdb, ttl: ttl, logger: logger}
}

var _ classification.TenantStore = (*CachedTenantStore)(nil)

// LiveMatches answers from the cache where possible and resolves the
// remainder through the inner store in one round trip. A cache failure is
// never fatal: the whole batch falls through to the inner store.
func (c *CachedTenantStore) LiveMatches(ctx context.Context, keys []string) (map[string]struct{}, error) {
	matches := make(map[string]struct{})
	misses := keys

	cached, err := c.mget(ctx, livePrefix, keys)
	if err == nil {
		// Fresh slice: compacting into keys would mutate the caller's batch.
		misses = make([]string, 0, len(keys))
		for i, key := range keys {
			switch cached[i] {
			case positive:
				matches[key] = struct{}{}
				metrics.CacheHits.Inc()
			case negative:
				metrics.CacheHits.Inc()
			default:
				misses = append(misses, key)
			}
		}
	} else {
		c.logger.Warn("tenant cache read failed, querying store directly", "error", err)
	}

	if len(misses) == 0 {
		return matches, nil
	}

	fresh, err := c.inner.LiveMatches(ctx, misses)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]string, len(misses))
	for _, key := range misses {
		if _, ok := fresh[key]; ok {
			matches[key] = struct{}{}
			entries[livePrefix+key] = positive
		} else {
			entries[livePrefix+key] = negative
		}
	}
	c.put(ctx, entries)

	return matches, nil
}

// HistoricalMatches mirrors LiveMatches with JSON-encoded tenant rows.
func (c *CachedTenantStore) HistoricalMatches(ctx context.Context, keys []string) (map[string]classification.HistoricalTenant, error) {
	matches := make(map[string]classification.HistoricalTenant)
	misses := keys

	cached, err := c.mget(ctx, histPrefix, keys)
	if err == nil {
		misses = make([]string, 0, len(keys))
		for i, key := range keys {
			switch cached[i] {
			case negative:
				metrics.CacheHits.Inc()
			case "":
				misses = append(misses, key)
			default:
				var tenant classification.HistoricalTenant
				if json.Unmarshal([]byte(cached[i]), &tenant) == nil {
					matches[key] = tenant
					metrics.CacheHits.Inc()
				} else {
					misses = append(misses, key)
				}
			}
		}
	} else {
		c.logger.Warn("tenant cache read failed, querying store directly", "error", err)
	}

	if len(misses) == 0 {
		return matches, nil
	}

	fresh, err := c.inner.HistoricalMatches(ctx, misses)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]string, len(misses))
	for _, key := range misses {
		if tenant, ok := fresh[key]; ok {
			matches[key] = tenant
			if encoded, err := json.Marshal(tenant); err == nil {
				entries[histPrefix+key] = string(encoded)
			}
		} else {
			entries[histPrefix+key] = negative
		}
	}
	c.put(ctx, entries)

	return matches, nil
}

// Stats always hits the inner store; counts are cheap and change often.
func (c *CachedTenantStore) Stats(ctx context.Context) (*classification.TenantStats, error) {
	return c.inner.Stats(ctx)
}

// mget returns cached values aligned with keys; "" means a miss.
func (c *CachedTenantStore) mget(ctx context.Context, prefix string, keys []string) ([]string, error) {
	redisKeys := make([]string, len(keys))
	for i, key := range keys {
		redisKeys[i] = prefix + key
	}

	values, err := c.rdb.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]string, len(keys))
	for i, v := range values {
		if s, ok := v.(string); ok {
			out[i] = s
		}
	}
	return out, nil
}

func (c *CachedTenantStore) put(ctx context.Context, entries map[string]string) {
	if len(entries) == 0 {
		return
	}
	pipe := c.rdb.Pipeline()
	for key, value := range entries {
		pipe.Set(ctx, key, value, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("tenant cache write failed", "entries", len(entries), "error", err)
	}
}
