package classification

import (
	"context"
	"log/slog"

	"github.com/kotshq/call-insights/internal/domain/call"
	"github.com/kotshq/call-insights/internal/domain/values"
	"github.com/kotshq/call-insights/internal/metrics"
)

// Service classifies batches of raw phone strings as service or enquiry
// calls by resolving their normalized keys against the customer stores.
type Service struct {
	store  TenantStore
	logger *slog.Logger
}

// NewService creates a classifier over the given store.
func NewService(store TenantStore, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Classify resolves a batch of raw phone strings. The live store takes
// precedence over the historical store for the same key. A backing-store
// failure degrades the affected keys to unknown (treated as enquiry
// downstream) instead of aborting; classification never fails the pipeline.
func (s *Service) Classify(ctx context.Context, phones []string) *BatchResult {
	result := &BatchResult{ByRaw: make(map[string]Result, len(phones))}
	if len(phones) == 0 {
		return result
	}

	// Several raw strings may collapse to one key; all of them share the
	// key's classification.
	rawsByKey := make(map[string][]string)
	for _, raw := range phones {
		norm, ok := values.Normalize(raw)
		if !ok {
			continue
		}
		rawsByKey[norm.Key()] = append(rawsByKey[norm.Key()], raw)
	}
	if len(rawsByKey) == 0 {
		return result
	}

	keys := make([]string, 0, len(rawsByKey))
	for key := range rawsByKey {
		keys = append(keys, key)
	}

	metrics.ClassifyBatches.Inc()

	liveMatches, err := s.store.LiveMatches(ctx, keys)
	if err != nil {
		s.logger.Error("live store lookup failed, degrading batch", "keys", len(keys), "error", err)
		return s.degrade(result, rawsByKey)
	}

	remaining := make([]string, 0, len(keys))
	for _, key := range keys {
		if _, ok := liveMatches[key]; ok {
			s.assign(result, rawsByKey[key], Result{
				IsKnownCustomer: true,
				Category:        call.CategoryService,
				Provenance:      ProvenanceLive,
			})
			continue
		}
		remaining = append(remaining, key)
	}

	if len(remaining) == 0 {
		return result
	}

	historicalMatches, err := s.store.HistoricalMatches(ctx, remaining)
	if err != nil {
		s.logger.Error("historical store lookup failed, degrading remainder", "keys", len(remaining), "error", err)
		result.Degraded = true
		metrics.ClassifyDegraded.Inc()
		for _, key := range remaining {
			s.assign(result, rawsByKey[key], Result{
				Category:   call.CategoryEnquiry,
				Provenance: ProvenanceNone,
			})
		}
		return result
	}

	for _, key := range remaining {
		if tenant, ok := historicalMatches[key]; ok {
			s.assign(result, rawsByKey[key], Result{
				IsKnownCustomer: true,
				Category:        call.CategoryService,
				Provenance:      ProvenanceHistorical,
				Name:            tenant.Name,
				Property:        tenant.Property,
				BookingID:       tenant.BookingID,
			})
			continue
		}
		s.assign(result, rawsByKey[key], Result{
			Category:   call.CategoryEnquiry,
			Provenance: ProvenanceNone,
		})
	}

	return result
}

// Stats reports customer-store row counts.
func (s *Service) Stats(ctx context.Context) (*TenantStats, error) {
	return s.store.Stats(ctx)
}

func (s *Service) assign(result *BatchResult, raws []string, res Result) {
	for _, raw := range raws {
		result.ByRaw[raw] = res
	}
}

// degrade marks the whole batch as enquiry with no provenance after a live
// store failure. The pipeline must keep moving on partial information.
func (s *Service) degrade(result *BatchResult, rawsByKey map[string][]string) *BatchResult {
	result.Degraded = true
	metrics.ClassifyDegraded.Inc()
	for _, raws := range rawsByKey {
		s.assign(result, raws, Result{
			Category:   call.CategoryEnquiry,
			Provenance: ProvenanceNone,
		})
	}
	return result
}
