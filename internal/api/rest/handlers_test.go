package rest

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotshq/call-insights/internal/infrastructure/config"
	"github.com/kotshq/call-insights/internal/service/analytics"
	"github.com/kotshq/call-insights/internal/service/classification"
	"github.com/kotshq/call-insights/internal/service/reporting"
)

type fakeRunner struct {
	outcome    *analytics.Outcome
	comparison *analytics.ComparisonOutcome
	err        error
}

func (f *fakeRunner) Run(_ context.Context, _, _ time.Time) (*analytics.Outcome, error) {
	return f.outcome, f.err
}

func (f *fakeRunner) RunComparison(_ context.Context, _, _ time.Time, _ analytics.ComparisonKind) (*analytics.ComparisonOutcome, error) {
	return f.comparison, f.err
}

type fakeReports struct {
	rangeCalls    int
	snapshotCalls int
	testCalls     int
	lastAtt       *reporting.Attachment
	lastSnapshot  *analytics.Snapshot
	err           error
}

func (f *fakeReports) SendRange(_ context.Context, _, _ time.Time, att *reporting.Attachment) error {
	f.rangeCalls++
	f.lastAtt = att
	return f.err
}

func (f *fakeReports) SendSnapshot(_ context.Context, snap *analytics.Snapshot, _, _ string, att *reporting.Attachment) error {
	f.snapshotCalls++
	f.lastSnapshot = snap
	f.lastAtt = att
	return f.err
}

func (f *fakeReports) SendTest(_ context.Context) error {
	f.testCalls++
	return f.err
}

type fakeScheduler struct {
	at  string
	err error
}

func (f *fakeScheduler) Reschedule(at string) error {
	if f.err != nil {
		return f.err
	}
	f.at = at
	return nil
}

func (f *fakeScheduler) ScheduledAt() string { return f.at }

type fakeStats struct {
	stats *classification.TenantStats
	err   error
}

func (f *fakeStats) Stats(_ context.Context) (*classification.TenantStats, error) {
	return f.stats, f.err
}

type fakeHealth struct{ err error }

func (f *fakeHealth) Health(_ context.Context) error { return f.err }

type handlerDeps struct {
	runner    *fakeRunner
	reports   *fakeReports
	scheduler *fakeScheduler
	stats     *fakeStats
	health    *fakeHealth
}

func newTestHandler(deps handlerDeps) http.Handler {
	if deps.runner == nil {
		deps.runner = &fakeRunner{}
	}
	if deps.reports == nil {
		deps.reports = &fakeReports{}
	}
	if deps.scheduler == nil {
		deps.scheduler = &fakeScheduler{}
	}
	if deps.stats == nil {
		deps.stats = &fakeStats{}
	}
	if deps.health == nil {
		deps.health = &fakeHealth{}
	}
	cfg := &config.Config{
		Environment: "test",
		Exotel: config.ExotelConfig{
			BaseURL:  "https://api.exotel.com/v1/Accounts",
			Exophone: "08047361499",
			PageSize: 100,
		},
		Report: config.ReportConfig{Recipient: "ops@example.com", Timezone: "Asia/Kolkata"},
	}
	h := NewHandler(deps.runner, deps.reports, deps.scheduler, deps.stats, deps.health, cfg,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	return h.Routes()
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func getPath(router http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAnalyticsEndpoint(t *testing.T) {
	runner := &fakeRunner{outcome: &analytics.Outcome{
		StartDate: "2025-03-10",
		EndDate:   "2025-03-10",
		Snapshot: &analytics.Snapshot{
			TotalCalls: 237,
			DailyCalls: map[string]int{"2025-03-10": 237},
		},
	}}
	router := newTestHandler(handlerDeps{runner: runner})

	rec := postJSON(t, router, "/api/analytics", map[string]string{
		"start_date": "2025-03-10",
		"end_date":   "2025-03-10",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success   bool                `json:"success"`
		Analytics analytics.Snapshot  `json:"analytics"`
		Charts    map[string]any      `json:"charts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 237, resp.Analytics.TotalCalls)
	assert.Contains(t, resp.Charts, "daily_volume")
}

func TestAnalyticsEndpointMissingDates(t *testing.T) {
	router := newTestHandler(handlerDeps{})

	rec := postJSON(t, router, "/api/analytics", map[string]string{"start_date": "2025-03-10"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyticsEndpointBadDateFormat(t *testing.T) {
	router := newTestHandler(handlerDeps{})

	rec := postJSON(t, router, "/api/analytics", map[string]string{
		"start_date": "10-03-2025",
		"end_date":   "2025-03-11",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyticsEndpointNoData(t *testing.T) {
	runner := &fakeRunner{outcome: &analytics.Outcome{NoData: true}}
	router := newTestHandler(handlerDeps{runner: runner})

	rec := postJSON(t, router, "/api/analytics", map[string]string{
		"start_date": "2025-03-10",
		"end_date":   "2025-03-10",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestComparisonEndpoint(t *testing.T) {
	runner := &fakeRunner{comparison: &analytics.ComparisonOutcome{
		Current: &analytics.Outcome{
			StartDate: "2025-03-10",
			EndDate:   "2025-03-16",
			Snapshot:  &analytics.Snapshot{TotalCalls: 150},
		},
		Previous: &analytics.Outcome{
			StartDate: "2025-03-03",
			EndDate:   "2025-03-09",
			Snapshot:  &analytics.Snapshot{TotalCalls: 100},
		},
		Comparison:     analytics.Comparison{TotalCallsChange: 50, TotalCallsPct: 50},
		ComparisonType: "Week-over-Week",
	}}
	router := newTestHandler(handlerDeps{runner: runner})

	rec := postJSON(t, router, "/api/analytics-comparison", map[string]string{
		"start_date":      "2025-03-10",
		"end_date":        "2025-03-16",
		"comparison_type": "week",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success        bool                 `json:"success"`
		Comparison     analytics.Comparison `json:"comparison"`
		ComparisonType string               `json:"comparison_type"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 50, resp.Comparison.TotalCallsChange)
	assert.Equal(t, "Week-over-Week", resp.ComparisonType)
}

func TestComparisonEndpointNoCurrentData(t *testing.T) {
	runner := &fakeRunner{comparison: &analytics.ComparisonOutcome{
		Current:  &analytics.Outcome{NoData: true},
		Previous: &analytics.Outcome{NoData: true},
	}}
	router := newTestHandler(handlerDeps{runner: runner})

	rec := postJSON(t, router, "/api/analytics-comparison", map[string]string{
		"start_date": "2025-03-10",
		"end_date":   "2025-03-16",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConfigEndpointRedactsSecrets(t *testing.T) {
	scheduler := &fakeScheduler{at: "09:30"}
	router := newTestHandler(handlerDeps{scheduler: scheduler})

	rec := getPath(router, "/api/config")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "08047361499", resp["exophone"])
	assert.Equal(t, "ops@example.com", resp["recipient_email"])
	assert.Equal(t, "09:30", resp["report_time"])
	assert.NotContains(t, resp, "api_key")
	assert.NotContains(t, resp, "api_token")
	assert.NotContains(t, resp, "password")
}

func TestUpdateConfigReschedules(t *testing.T) {
	scheduler := &fakeScheduler{}
	router := newTestHandler(handlerDeps{scheduler: scheduler})

	rec := postJSON(t, router, "/api/config", map[string]string{"report_time": "07:15"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "07:15", scheduler.at)
}

func TestUpdateConfigIgnoresEmptyBody(t *testing.T) {
	scheduler := &fakeScheduler{at: "09:30"}
	router := newTestHandler(handlerDeps{scheduler: scheduler})

	rec := postJSON(t, router, "/api/config", map[string]string{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "09:30", scheduler.at)
}

func TestScheduleEndpoint(t *testing.T) {
	scheduler := &fakeScheduler{}
	router := newTestHandler(handlerDeps{scheduler: scheduler})

	rec := postJSON(t, router, "/api/schedule", map[string]string{"time": "18:45"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "18:45", scheduler.at)
}

func TestScheduleEndpointRejectsBadTime(t *testing.T) {
	scheduler := &fakeScheduler{err: errors.New("bad time")}
	router := newTestHandler(handlerDeps{scheduler: scheduler})

	rec := postJSON(t, router, "/api/schedule", map[string]string{"time": "25:00"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScheduleEndpointRequiresTime(t *testing.T) {
	router := newTestHandler(handlerDeps{})

	rec := postJSON(t, router, "/api/schedule", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendReportFromPostedSnapshot(t *testing.T) {
	reports := &fakeReports{}
	router := newTestHandler(handlerDeps{reports: reports})

	png := base64.StdEncoding.EncodeToString([]byte("fake png"))
	rec := postJSON(t, router, "/api/send-report", map[string]any{
		"start_date": "2025-03-10",
		"end_date":   "2025-03-10",
		"analytics":  map[string]any{"total_calls": 9},
		"png_data":   "data:image/png;base64," + png,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 1, reports.snapshotCalls)
	assert.Zero(t, reports.rangeCalls)
	assert.Equal(t, 9, reports.lastSnapshot.TotalCalls)
	require.NotNil(t, reports.lastAtt)
	assert.Equal(t, []byte("fake png"), reports.lastAtt.Data)
	assert.Equal(t, "Call_Analytics_Report_2025-03-10_to_2025-03-10.png", reports.lastAtt.Filename)
}

func TestSendReportRunsPipelineWithoutSnapshot(t *testing.T) {
	reports := &fakeReports{}
	router := newTestHandler(handlerDeps{reports: reports})

	rec := postJSON(t, router, "/api/send-report", map[string]string{
		"start_date": "2025-03-10",
		"end_date":   "2025-03-16",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, reports.rangeCalls)
	assert.Zero(t, reports.snapshotCalls)
	assert.Nil(t, reports.lastAtt)
}

func TestSendReportBadPNG(t *testing.T) {
	router := newTestHandler(handlerDeps{})

	rec := postJSON(t, router, "/api/send-report", map[string]string{
		"start_date": "2025-03-10",
		"end_date":   "2025-03-10",
		"png_data":   "not base64!!!",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendReportDeliveryFailure(t *testing.T) {
	reports := &fakeReports{err: errors.New("smtp down")}
	router := newTestHandler(handlerDeps{reports: reports})

	rec := postJSON(t, router, "/api/send-report", map[string]string{
		"start_date": "2025-03-10",
		"end_date":   "2025-03-10",
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "smtp down", "response should carry the delivery failure cause")
}

func TestTestEmailEndpoint(t *testing.T) {
	reports := &fakeReports{}
	router := newTestHandler(handlerDeps{reports: reports})

	rec := postJSON(t, router, "/api/test-email", map[string]string{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, reports.testCalls)
}

func TestTenantStatsEndpoint(t *testing.T) {
	stats := &fakeStats{stats: &classification.TenantStats{
		LiveCount:       120,
		HistoricalCount: 4500,
		TotalCount:      4620,
	}}
	router := newTestHandler(handlerDeps{stats: stats})

	rec := getPath(router, "/api/tenant-stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp classification.TenantStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(4620), resp.TotalCount)
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestHandler(handlerDeps{})
	rec := getPath(router, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthEndpointDegraded(t *testing.T) {
	router := newTestHandler(handlerDeps{health: &fakeHealth{err: errors.New("pool closed")}})
	rec := getPath(router, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestHandler(handlerDeps{})
	rec := getPath(router, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
