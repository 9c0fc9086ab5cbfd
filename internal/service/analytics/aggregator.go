package analytics

import (
	"log/slog"
	"math"
	"strings"

	"github.com/kotshq/call-insights/internal/domain/call"
	"github.com/kotshq/call-insights/internal/domain/values"
	"github.com/kotshq/call-insights/internal/service/classification"
)

// Aggregator derives summary metrics from a classified record set.
type Aggregator struct {
	logger *slog.Logger
}

// NewAggregator creates an aggregator.
func NewAggregator(logger *slog.Logger) *Aggregator {
	return &Aggregator{logger: logger}
}

// Aggregate builds a snapshot from records and their classifications.
//
// When exophone is non-empty only records whose destination (To or
// PhoneNumber) contains its last 10 digits are retained; if that leaves
// nothing, the result is nil. A nil result means "no data", which is distinct
// from a snapshot whose counts are zero.
func (a *Aggregator) Aggregate(records []call.Record, batch *classification.BatchResult, exophone string) *Snapshot {
	if len(records) == 0 {
		return nil
	}

	if exophone != "" {
		filtered := a.filterByExophone(records, exophone)
		if len(filtered) == 0 {
			a.logger.Warn("no calls left after exophone filtering", "exophone", exophone)
			return nil
		}
		records = filtered
	}

	snap := &Snapshot{
		DailyCalls:         make(map[string]int),
		HourlyCalls:        make(map[int]int),
		StatusBreakdown:    make(map[string]int),
		DirectionBreakdown: make(map[string]int),
		CategoryBreakdown:  make(map[string]int),
	}
	if batch != nil {
		snap.Degraded = batch.Degraded
	}

	var totalDuration int
	for _, rec := range records {
		snap.TotalCalls++
		totalDuration += rec.Duration

		switch {
		case rec.IsInbound():
			snap.IncomingCalls++
		case rec.IsOutbound():
			snap.OutgoingCalls++
		}

		if rec.IsAnswered() {
			snap.AnsweredCalls++
		}
		if rec.IsMissed() {
			snap.MissedCalls++
		}

		if !rec.DateCreated.IsZero() {
			snap.DailyCalls[rec.DateCreated.Format("2006-01-02")]++
			snap.HourlyCalls[rec.DateCreated.Hour()]++
		}

		if rec.Status != "" {
			snap.StatusBreakdown[rec.Status]++
		}
		if rec.Direction != "" {
			snap.DirectionBreakdown[rec.Direction]++
		}

		category := a.categorize(rec, batch)
		snap.CategoryBreakdown[category.String()]++
		switch category {
		case call.CategoryService:
			snap.ServiceCalls++
		case call.CategoryEnquiry:
			snap.EnquiryCalls++
		}
	}

	if snap.TotalCalls > 0 {
		snap.AvgDuration = float64(totalDuration) / float64(snap.TotalCalls)
	}

	// Outgoing and unknown records are excluded from the denominator, so
	// the two percentages need not sum to 100.
	if snap.IncomingCalls > 0 {
		snap.ServicePercentage = round1(float64(snap.ServiceCalls) / float64(snap.IncomingCalls) * 100)
		snap.EnquiryPercentage = round1(float64(snap.EnquiryCalls) / float64(snap.IncomingCalls) * 100)
	}

	return snap
}

// categorize tags one record. Only inbound records are eligible for
// service/enquiry classification; outbound records are outgoing and records
// without a direction are unknown.
func (a *Aggregator) categorize(rec call.Record, batch *classification.BatchResult) call.Category {
	switch {
	case rec.Direction == "":
		return call.CategoryUnknown
	case rec.IsInbound():
		return batch.Lookup(rec.From).Category
	default:
		return call.CategoryOutgoing
	}
}

func (a *Aggregator) filterByExophone(records []call.Record, exophone string) []call.Record {
	filterDigits := values.LastTenDigits(exophone)
	if filterDigits == "" {
		return records
	}

	filtered := make([]call.Record, 0, len(records))
	for _, rec := range records {
		if strings.Contains(rec.PhoneNumber, filterDigits) || strings.Contains(rec.To, filterDigits) {
			filtered = append(filtered, rec)
		}
	}

	a.logger.Info("filtered calls by exophone",
		"exophone", exophone,
		"before", len(records),
		"after", len(filtered))

	return filtered
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
