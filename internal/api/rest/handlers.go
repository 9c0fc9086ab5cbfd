package rest

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "github.com/kotshq/call-insights/internal/domain/errors"
	"github.com/kotshq/call-insights/internal/infrastructure/config"
	"github.com/kotshq/call-insights/internal/service/analytics"
	"github.com/kotshq/call-insights/internal/service/classification"
	"github.com/kotshq/call-insights/internal/service/reporting"
)

// AnalyticsRunner executes the fetch/classify/aggregate pipeline.
type AnalyticsRunner interface {
	Run(ctx context.Context, start, end time.Time) (*analytics.Outcome, error)
	RunComparison(ctx context.Context, start, end time.Time, kind analytics.ComparisonKind) (*analytics.ComparisonOutcome, error)
}

// ReportService triggers report delivery.
type ReportService interface {
	SendRange(ctx context.Context, start, end time.Time, att *reporting.Attachment) error
	SendSnapshot(ctx context.Context, snap *analytics.Snapshot, start, end string, att *reporting.Attachment) error
	SendTest(ctx context.Context) error
}

// ReportScheduler controls the daily report schedule.
type ReportScheduler interface {
	Reschedule(at string) error
	ScheduledAt() string
}

// StatsProvider reports customer-store row counts.
type StatsProvider interface {
	Stats(ctx context.Context) (*classification.TenantStats, error)
}

// HealthChecker verifies a backing dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Handler carries the wired services behind the HTTP routes.
type Handler struct {
	runner    AnalyticsRunner
	reports   ReportService
	scheduler ReportScheduler
	stats     StatsProvider
	db        HealthChecker
	cfg       *config.Config
	logger    *slog.Logger
}

func NewHandler(
	runner AnalyticsRunner,
	reports ReportService,
	scheduler ReportScheduler,
	stats StatsProvider,
	db HealthChecker,
	cfg *config.Config,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		runner:    runner,
		reports:   reports,
		scheduler: scheduler,
		stats:     stats,
		db:        db,
		cfg:       cfg,
		logger:    logger,
	}
}

// Routes assembles the router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/analytics", h.handleAnalytics)
		r.Post("/analytics-comparison", h.handleComparison)
		r.Get("/config", h.handleGetConfig)
		r.Post("/config", h.handleUpdateConfig)
		r.Post("/schedule", h.handleSchedule)
		r.Post("/send-report", h.handleSendReport)
		r.Post("/test-email", h.handleTestEmail)
		r.Get("/tenant-stats", h.handleTenantStats)
	})

	return r
}

type dateRangeRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func (req dateRangeRequest) parse() (time.Time, time.Time, error) {
	if req.StartDate == "" || req.EndDate == "" {
		return time.Time{}, time.Time{}, apperrors.ErrMissingDateRange
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.ErrBadDate
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.ErrBadDate
	}
	return start, end, nil
}

func (h *Handler) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	var req dateRangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.NewValidationError("BAD_BODY", "invalid JSON body"))
		return
	}
	start, end, err := req.parse()
	if err != nil {
		h.writeError(w, err)
		return
	}

	outcome, err := h.runner.Run(r.Context(), start, end)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if outcome.NoData {
		h.writeError(w, apperrors.NewNoDataError("no data available for the selected date range").
			WithDetails(map[string]interface{}{"start_date": outcome.StartDate, "end_date": outcome.EndDate}))
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"analytics":     outcome.Snapshot,
		"charts":        analytics.BuildCharts(outcome.Snapshot),
		"partial_fetch": outcome.PartialFetch,
		"run_id":        outcome.RunID,
	})
}

type comparisonRequest struct {
	dateRangeRequest
	ComparisonType string `json:"comparison_type"`
}

func (h *Handler) handleComparison(w http.ResponseWriter, r *http.Request) {
	var req comparisonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.NewValidationError("BAD_BODY", "invalid JSON body"))
		return
	}
	start, end, err := req.parse()
	if err != nil {
		h.writeError(w, err)
		return
	}

	kind := analytics.CompareWeek
	if req.ComparisonType == string(analytics.CompareMonth) {
		kind = analytics.CompareMonth
	}

	outcome, err := h.runner.RunComparison(r.Context(), start, end, kind)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if outcome.Current.NoData {
		h.writeError(w, apperrors.NewNoDataError("no data available for current period"))
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"current_period":  outcome.Current,
		"previous_period": outcome.Previous,
		"comparison":      outcome.Comparison,
		"comparison_type": outcome.ComparisonType,
	})
}

// handleGetConfig exposes the non-secret configuration the dashboard needs.
// Keys, tokens and passwords never leave the process.
func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"environment":     h.cfg.Environment,
		"exotel_base_url": h.cfg.Exotel.BaseURL,
		"exophone":        h.cfg.Exotel.Exophone,
		"page_size":       h.cfg.Exotel.PageSize,
		"recipient_email": h.cfg.Report.Recipient,
		"report_time":     h.scheduler.ScheduledAt(),
		"report_timezone": h.cfg.Report.Timezone,
	})
}

// handleUpdateConfig applies the runtime-adjustable settings. Only the
// report time can change while the process runs; credentials and connection
// settings come from the environment and require a restart.
func (h *Handler) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReportTime string `json:"report_time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.NewValidationError("BAD_BODY", "invalid JSON body"))
		return
	}

	if req.ReportTime != "" {
		if err := h.scheduler.Reschedule(req.ReportTime); err != nil {
			h.writeError(w, apperrors.NewValidationError("BAD_TIME", err.Error()))
			return
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "configuration updated",
	})
}

func (h *Handler) handleSchedule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Time string `json:"time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.NewValidationError("BAD_BODY", "invalid JSON body"))
		return
	}
	if req.Time == "" {
		h.writeError(w, apperrors.NewValidationError("MISSING_TIME", "time required"))
		return
	}

	if err := h.scheduler.Reschedule(req.Time); err != nil {
		h.writeError(w, apperrors.NewValidationError("BAD_TIME", err.Error()))
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "report scheduled for " + req.Time + " daily",
	})
}

type sendReportRequest struct {
	dateRangeRequest
	Analytics *analytics.Snapshot `json:"analytics"`
	PNGData   string              `json:"png_data"`
}

// handleSendReport triggers delivery. When the dashboard posts back the
// snapshot it is displaying, that snapshot is rendered directly; otherwise
// the pipeline is re-run for the range.
func (h *Handler) handleSendReport(w http.ResponseWriter, r *http.Request) {
	var req sendReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.NewValidationError("BAD_BODY", "invalid JSON body"))
		return
	}

	att, err := decodeAttachment(req.PNGData, req.StartDate, req.EndDate)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if req.Analytics != nil {
		if req.StartDate == "" || req.EndDate == "" {
			h.writeError(w, apperrors.ErrMissingDateRange)
			return
		}
		err = h.reports.SendSnapshot(r.Context(), req.Analytics, req.StartDate, req.EndDate, att)
	} else {
		var start, end time.Time
		start, end, err = req.parse()
		if err != nil {
			h.writeError(w, err)
			return
		}
		err = h.reports.SendRange(r.Context(), start, end, att)
	}
	if err != nil {
		h.writeError(w, apperrors.NewExternalError("email", "failed to send report").WithCause(err))
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "report sent successfully",
	})
}

func (h *Handler) handleTestEmail(w http.ResponseWriter, r *http.Request) {
	if err := h.reports.SendTest(r.Context()); err != nil {
		h.writeError(w, apperrors.NewExternalError("email", "failed to send test email").WithCause(err))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "test email sent successfully",
	})
}

func (h *Handler) handleTenantStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context())
	if err != nil {
		h.writeError(w, apperrors.NewInternalError("failed to read tenant stats").WithCause(err))
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Health(r.Context()); err != nil {
		h.logger.Error("health check failed", "error", err)
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// decodeAttachment turns an optional base64 PNG payload, with or without its
// data-URI prefix, into an attachment.
func decodeAttachment(pngData, start, end string) (*reporting.Attachment, error) {
	if pngData == "" {
		return nil, nil
	}
	if i := strings.IndexByte(pngData, ','); i >= 0 {
		pngData = pngData[i+1:]
	}

	data, err := base64.StdEncoding.DecodeString(pngData)
	if err != nil {
		return nil, apperrors.NewValidationError("BAD_PNG", "png_data is not valid base64")
	}

	return &reporting.Attachment{
		Filename:    "Call_Analytics_Report_" + start + "_to_" + end + ".png",
		ContentType: "image/png",
		Data:        data,
	}, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("writing response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.GetStatusCode(err)
	if status >= 500 {
		h.logger.Error("request failed", "error", err)
	}
	h.writeJSON(w, status, map[string]any{"error": err.Error()})
}
