package classification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotshq/call-insights/internal/domain/call"
)

type fakeStore struct {
	live       map[string]struct{}
	historical map[string]HistoricalTenant
	liveErr    error
	histErr    error

	liveCalls int
	histCalls int
	liveKeys  []string
	histKeys  []string
}

func (f *fakeStore) LiveMatches(_ context.Context, keys []string) (map[string]struct{}, error) {
	f.liveCalls++
	f.liveKeys = keys
	if f.liveErr != nil {
		return nil, f.liveErr
	}
	out := map[string]struct{}{}
	for _, k := range keys {
		if _, ok := f.live[k]; ok {
			out[k] = struct{}{}
		}
	}
	return out, nil
}

func (f *fakeStore) HistoricalMatches(_ context.Context, keys []string) (map[string]HistoricalTenant, error) {
	f.histCalls++
	f.histKeys = keys
	if f.histErr != nil {
		return nil, f.histErr
	}
	out := map[string]HistoricalTenant{}
	for _, k := range keys {
		if t, ok := f.historical[k]; ok {
			out[k] = t
		}
	}
	return out, nil
}

func (f *fakeStore) Stats(context.Context) (*TenantStats, error) {
	return &TenantStats{LiveCount: int64(len(f.live)), HistoricalCount: int64(len(f.historical))}, nil
}

func newTestService(store TenantStore) *Service {
	return NewService(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClassifyLiveStoreWins(t *testing.T) {
	// Present in both stores: the live match must win.
	store := &fakeStore{
		live:       map[string]struct{}{"919876543210": {}},
		historical: map[string]HistoricalTenant{"919876543210": {Name: "Karina"}},
	}
	svc := newTestService(store)

	batch := svc.Classify(context.Background(), []string{"+919876543210"})

	res := batch.Lookup("+919876543210")
	assert.True(t, res.IsKnownCustomer)
	assert.Equal(t, call.CategoryService, res.Category)
	assert.Equal(t, ProvenanceLive, res.Provenance)
	assert.Empty(t, res.Name, "descriptive fields only come from the historical store")
	assert.False(t, batch.Degraded)

	// Live matches must not be re-queried against the historical store.
	assert.Empty(t, store.histKeys)
}

func TestClassifyLiveOnly(t *testing.T) {
	store := &fakeStore{live: map[string]struct{}{"919876543210": {}}}
	svc := newTestService(store)

	batch := svc.Classify(context.Background(), []string{"9876543210"})

	res := batch.Lookup("9876543210")
	assert.Equal(t, call.CategoryService, res.Category)
	assert.Equal(t, ProvenanceLive, res.Provenance)
}

func TestClassifyHistoricalCarriesTenantFields(t *testing.T) {
	store := &fakeStore{
		historical: map[string]HistoricalTenant{
			"916282685100": {Name: "Karina", Property: "Maple Heights", BookingID: "BK-104"},
		},
	}
	svc := newTestService(store)

	batch := svc.Classify(context.Background(), []string{"916282685100"})

	res := batch.Lookup("916282685100")
	assert.True(t, res.IsKnownCustomer)
	assert.Equal(t, call.CategoryService, res.Category)
	assert.Equal(t, ProvenanceHistorical, res.Provenance)
	assert.Equal(t, "Karina", res.Name)
	assert.Equal(t, "Maple Heights", res.Property)
	assert.Equal(t, "BK-104", res.BookingID)
}

func TestClassifyUnmatchedIsEnquiry(t *testing.T) {
	svc := newTestService(&fakeStore{})

	batch := svc.Classify(context.Background(), []string{"919999999999"})

	res := batch.Lookup("919999999999")
	assert.False(t, res.IsKnownCustomer)
	assert.Equal(t, call.CategoryEnquiry, res.Category)
	assert.Equal(t, ProvenanceNone, res.Provenance)
}

func TestClassifyCollapsesEquivalentRawStrings(t *testing.T) {
	store := &fakeStore{live: map[string]struct{}{"919876543210": {}}}
	svc := newTestService(store)

	batch := svc.Classify(context.Background(), []string{"+919876543210", "09876543210", "9876543210"})

	// One key, one round trip, three raw strings all mapped.
	require.Len(t, store.liveKeys, 1)
	assert.Equal(t, 1, store.liveCalls)
	for _, raw := range []string{"+919876543210", "09876543210", "9876543210"} {
		assert.Equal(t, call.CategoryService, batch.Lookup(raw).Category, raw)
	}
}

func TestClassifyDropsDigitFreeInput(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store)

	batch := svc.Classify(context.Background(), []string{"anonymous", ""})

	assert.Empty(t, batch.ByRaw)
	assert.Equal(t, 0, store.liveCalls, "no store round trip for an empty key set")
}

func TestClassifyDegradesOnLiveStoreFailure(t *testing.T) {
	store := &fakeStore{liveErr: errors.New("connection refused")}
	svc := newTestService(store)

	batch := svc.Classify(context.Background(), []string{"9876543210"})

	assert.True(t, batch.Degraded)
	res := batch.Lookup("9876543210")
	assert.False(t, res.IsKnownCustomer)
	assert.Equal(t, call.CategoryEnquiry, res.Category, "degraded keys aggregate as enquiries")
	assert.Equal(t, ProvenanceNone, res.Provenance)
	assert.Equal(t, 0, store.histCalls, "historical store skipped after live failure")
}

func TestClassifyDegradesOnHistoricalStoreFailure(t *testing.T) {
	store := &fakeStore{
		live:    map[string]struct{}{"919876543210": {}},
		histErr: errors.New("timeout"),
	}
	svc := newTestService(store)

	batch := svc.Classify(context.Background(), []string{"9876543210", "9000000000"})

	assert.True(t, batch.Degraded)
	assert.Equal(t, call.CategoryService, batch.Lookup("9876543210").Category, "live matches survive a historical failure")
	assert.Equal(t, call.CategoryEnquiry, batch.Lookup("9000000000").Category)
}

func TestBatchResultLookupDefaults(t *testing.T) {
	var nilBatch *BatchResult
	assert.Equal(t, call.CategoryEnquiry, nilBatch.Lookup("123").Category)

	batch := &BatchResult{ByRaw: map[string]Result{}}
	assert.Equal(t, call.CategoryEnquiry, batch.Lookup("unseen").Category)
}
