package classification

import (
	"context"

	"github.com/kotshq/call-insights/internal/domain/call"
)

// Provenance records which backing store classified a phone key.
type Provenance string

const (
	ProvenanceLive       Provenance = "liveStore"
	ProvenanceHistorical Provenance = "historicalStore"
	ProvenanceNone       Provenance = "none"
)

// Result is the classification of one phone key.
type Result struct {
	IsKnownCustomer bool          `json:"is_known_customer"`
	Category        call.Category `json:"category"`
	Provenance      Provenance    `json:"provenance"`

	// Descriptive fields, populated only on a historical-store match.
	Name      string `json:"name,omitempty"`
	Property  string `json:"property,omitempty"`
	BookingID string `json:"booking_id,omitempty"`
}

// BatchResult maps every input raw phone string to its classification.
// Degraded is set when a backing-store failure forced part of the batch to
// the unknown category; downstream aggregation treats those as enquiries.
type BatchResult struct {
	ByRaw    map[string]Result
	Degraded bool
}

// Lookup returns the classification for a raw phone string. Unseen phones
// default to enquiry so aggregation never stalls on a missing entry.
func (b *BatchResult) Lookup(raw string) Result {
	if b == nil {
		return Result{Category: call.CategoryEnquiry, Provenance: ProvenanceNone}
	}
	if res, ok := b.ByRaw[raw]; ok {
		return res
	}
	return Result{Category: call.CategoryEnquiry, Provenance: ProvenanceNone}
}

// HistoricalTenant carries the descriptive columns of a historical-store row.
type HistoricalTenant struct {
	Name      string
	Property  string
	BookingID string
}

// TenantStats reports row counts across the customer stores.
type TenantStats struct {
	LiveCount       int64 `json:"live_count"`
	HistoricalCount int64 `json:"historical_count"`
	TotalCount      int64 `json:"total_count"`
}

// TenantStore is the batch-resolution interface over the two customer
// tables. Implementations must resolve a whole key set in a single round
// trip per store; incoming batches can number in the thousands.
type TenantStore interface {
	// LiveMatches returns the subset of keys found in the live table.
	LiveMatches(ctx context.Context, keys []string) (map[string]struct{}, error)

	// HistoricalMatches returns historical rows keyed by normalized phone,
	// matched against both the primary and the alternate mobile column.
	HistoricalMatches(ctx context.Context, keys []string) (map[string]HistoricalTenant, error)

	// Stats reports row counts for both tables.
	Stats(ctx context.Context) (*TenantStats, error)
}
