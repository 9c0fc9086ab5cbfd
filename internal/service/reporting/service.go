package reporting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kotshq/call-insights/internal/metrics"
	"github.com/kotshq/call-insights/internal/service/analytics"
)

// Pipeline produces the analytics outcome a report is rendered from.
type Pipeline interface {
	Run(ctx context.Context, start, end time.Time) (*analytics.Outcome, error)
}

// Service orchestrates report generation and delivery.
type Service struct {
	pipeline  Pipeline
	renderer  *Renderer
	sender    Sender
	logger    *slog.Logger
	recipient string
	loc       *time.Location
}

// NewService wires the reporting flow. The recipient is fixed per deployment.
func NewService(pipeline Pipeline, sender Sender, recipient string, loc *time.Location, logger *slog.Logger) *Service {
	return &Service{
		pipeline:  pipeline,
		renderer:  NewRenderer(loc),
		sender:    sender,
		logger:    logger,
		recipient: recipient,
		loc:       loc,
	}
}

// SendDaily generates and delivers yesterday's report. Called by the
// scheduler; a day with no data is logged and skipped, not an error.
func (s *Service) SendDaily(ctx context.Context) error {
	yesterday := time.Now().In(s.loc).AddDate(0, 0, -1)
	day := time.Date(yesterday.Year(), yesterday.Month(), yesterday.Day(), 0, 0, 0, 0, s.loc)

	s.logger.Info("generating scheduled daily report", "date", day.Format("2006-01-02"))

	outcome, err := s.pipeline.Run(ctx, day, day)
	if err != nil {
		metrics.ReportsSent.WithLabelValues("error").Inc()
		return fmt.Errorf("running daily pipeline: %w", err)
	}
	if outcome.NoData {
		s.logger.Warn("no analytics data for scheduled report", "date", outcome.StartDate)
		metrics.ReportsSent.WithLabelValues("skipped").Inc()
		return nil
	}

	content, err := s.renderer.RenderDaily(outcome.Snapshot, outcome.StartDate)
	if err != nil {
		metrics.ReportsSent.WithLabelValues("error").Inc()
		return err
	}

	return s.deliver(ctx, Message{To: s.recipient, Subject: content.Subject, HTML: content.HTML})
}

// SendRange generates and delivers a report for an arbitrary period, with an
// optional dashboard image attached.
func (s *Service) SendRange(ctx context.Context, start, end time.Time, att *Attachment) error {
	outcome, err := s.pipeline.Run(ctx, start, end)
	if err != nil {
		metrics.ReportsSent.WithLabelValues("error").Inc()
		return fmt.Errorf("running report pipeline: %w", err)
	}
	if outcome.NoData {
		metrics.ReportsSent.WithLabelValues("skipped").Inc()
		return fmt.Errorf("no analytics data between %s and %s", outcome.StartDate, outcome.EndDate)
	}

	content, err := s.renderer.RenderRange(outcome.Snapshot, outcome.StartDate, outcome.EndDate)
	if err != nil {
		metrics.ReportsSent.WithLabelValues("error").Inc()
		return err
	}

	return s.deliver(ctx, Message{
		To:         s.recipient,
		Subject:    content.Subject,
		HTML:       content.HTML,
		Attachment: att,
	})
}

// SendSnapshot delivers a report rendered from an already-computed snapshot,
// skipping the pipeline. Used when the dashboard posts back the analytics it
// is displaying.
func (s *Service) SendSnapshot(ctx context.Context, snap *analytics.Snapshot, start, end string, att *Attachment) error {
	content, err := s.renderer.RenderRange(snap, start, end)
	if err != nil {
		metrics.ReportsSent.WithLabelValues("error").Inc()
		return err
	}
	return s.deliver(ctx, Message{
		To:         s.recipient,
		Subject:    content.Subject,
		HTML:       content.HTML,
		Attachment: att,
	})
}

// SendTest delivers a report built from canned numbers to verify the email
// path end to end.
func (s *Service) SendTest(ctx context.Context) error {
	snap := &analytics.Snapshot{
		TotalCalls:    100,
		IncomingCalls: 60,
		OutgoingCalls: 40,
		AnsweredCalls: 85,
		MissedCalls:   15,
		AvgDuration:   120,
	}

	today := time.Now().In(s.loc).Format("2006-01-02")
	content, err := s.renderer.RenderRange(snap, today, today)
	if err != nil {
		return err
	}

	return s.deliver(ctx, Message{To: s.recipient, Subject: content.Subject, HTML: content.HTML})
}

func (s *Service) deliver(ctx context.Context, msg Message) error {
	if s.recipient == "" {
		metrics.ReportsSent.WithLabelValues("error").Inc()
		return fmt.Errorf("no report recipient configured")
	}

	if err := s.sender.Send(ctx, msg); err != nil {
		metrics.ReportsSent.WithLabelValues("error").Inc()
		return err
	}

	metrics.ReportsSent.WithLabelValues("success").Inc()
	return nil
}
