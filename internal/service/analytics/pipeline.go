package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kotshq/call-insights/internal/domain/call"
	domainerrors "github.com/kotshq/call-insights/internal/domain/errors"
	"github.com/kotshq/call-insights/internal/metrics"
	"github.com/kotshq/call-insights/internal/service/classification"
)

// Fetcher materializes the full record set for a date range.
type Fetcher interface {
	FetchCalls(ctx context.Context, start, end time.Time) (*call.FetchResult, error)
}

// Classifier resolves raw phone batches against the customer stores.
type Classifier interface {
	Classify(ctx context.Context, phones []string) *classification.BatchResult
}

// Pipeline runs the fetch -> classify -> aggregate flow for a date range.
// One range is fetched to completion before classification begins, and
// classification completes before aggregation; there is no mid-flight
// cancellation beyond the caller's context.
type Pipeline struct {
	fetcher    Fetcher
	classifier Classifier
	aggregator *Aggregator
	exophone   string
	logger     *slog.Logger
}

// NewPipeline wires the pipeline stages together. The exophone filter is
// fixed per deployment and applied on every run.
func NewPipeline(fetcher Fetcher, classifier Classifier, exophone string, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		fetcher:    fetcher,
		classifier: classifier,
		aggregator: NewAggregator(logger),
		exophone:   exophone,
		logger:     logger,
	}
}

// Outcome is the explicit result of one pipeline run, distinguishing "no
// data" from a degraded run from a clean one.
type Outcome struct {
	RunID     uuid.UUID `json:"run_id"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	Snapshot  *Snapshot `json:"analytics"`

	// NoData: nothing fetched, or nothing left after the exophone filter.
	NoData bool `json:"no_data,omitempty"`
	// PartialFetch: pagination aborted and the snapshot covers only the
	// records accumulated before the failure.
	PartialFetch bool `json:"partial_fetch,omitempty"`
}

// ComparisonOutcome pairs a current and previous period run.
type ComparisonOutcome struct {
	Current        *Outcome   `json:"current_period"`
	Previous       *Outcome   `json:"previous_period"`
	Comparison     Comparison `json:"comparison"`
	ComparisonType string     `json:"comparison_type"`
}

// Run executes the pipeline for one inclusive date range.
func (p *Pipeline) Run(ctx context.Context, start, end time.Time) (*Outcome, error) {
	if start.IsZero() || end.IsZero() {
		return nil, domainerrors.ErrMissingDateRange
	}
	if start.After(end) {
		return nil, domainerrors.NewValidationError("BAD_DATE_RANGE", "start date is after end date")
	}

	began := time.Now()
	defer func() {
		metrics.PipelineDuration.Observe(time.Since(began).Seconds())
	}()

	outcome := &Outcome{
		RunID:     uuid.New(),
		StartDate: start.Format("2006-01-02"),
		EndDate:   end.Format("2006-01-02"),
	}

	fetched, err := p.fetcher.FetchCalls(ctx, start, end)
	if err != nil {
		return nil, domainerrors.Wrap(err, "fetching call records")
	}
	outcome.PartialFetch = fetched.Partial

	if len(fetched.Records) == 0 {
		p.logger.Info("no records in range",
			"start", outcome.StartDate,
			"end", outcome.EndDate,
			"partial", fetched.Partial)
		outcome.NoData = true
		return outcome, nil
	}

	batch := p.classifier.Classify(ctx, inboundCallers(fetched.Records))

	snap := p.aggregator.Aggregate(fetched.Records, batch, p.exophone)
	if snap == nil {
		outcome.NoData = true
		return outcome, nil
	}

	outcome.Snapshot = snap
	p.logger.Info("pipeline run complete",
		"run_id", outcome.RunID,
		"total_calls", snap.TotalCalls,
		"service_calls", snap.ServiceCalls,
		"enquiry_calls", snap.EnquiryCalls,
		"degraded", snap.Degraded)

	return outcome, nil
}

// RunComparison runs the pipeline for the requested range and for the
// equivalent prior period, sequentially, and compares the two snapshots.
func (p *Pipeline) RunComparison(ctx context.Context, start, end time.Time, kind ComparisonKind) (*ComparisonOutcome, error) {
	current, err := p.Run(ctx, start, end)
	if err != nil {
		return nil, err
	}

	prevStart, prevEnd := PreviousPeriod(start, end, kind)
	previous, err := p.Run(ctx, prevStart, prevEnd)
	if err != nil {
		return nil, err
	}

	return &ComparisonOutcome{
		Current:        current,
		Previous:       previous,
		Comparison:     Compare(current.Snapshot, previous.Snapshot),
		ComparisonType: kind.Label(),
	}, nil
}

// inboundCallers collects the distinct From numbers of inbound records; only
// those are eligible for service/enquiry classification.
func inboundCallers(records []call.Record) []string {
	seen := make(map[string]struct{})
	var phones []string
	for _, rec := range records {
		if !rec.IsInbound() || rec.From == "" {
			continue
		}
		if _, ok := seen[rec.From]; ok {
			continue
		}
		seen[rec.From] = struct{}{}
		phones = append(phones, rec.From)
	}
	return phones
}
