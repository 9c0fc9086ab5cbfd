package analytics

import "time"

// ComparisonKind selects how far back the previous period sits.
type ComparisonKind string

const (
	CompareWeek  ComparisonKind = "week"
	CompareMonth ComparisonKind = "month"
)

// Label returns the human-readable label used in API responses.
func (k ComparisonKind) Label() string {
	if k == CompareMonth {
		return "Month-over-Month"
	}
	return "Week-over-Week"
}

// Offset returns the day shift applied to both period boundaries. The month
// comparison is a fixed 30-day offset, not calendar-month arithmetic;
// changing it would silently change reported percentages.
func (k ComparisonKind) Offset() int {
	if k == CompareMonth {
		return 30
	}
	return 7
}

// PreviousPeriod shifts both boundaries back by the kind's offset.
func PreviousPeriod(start, end time.Time, kind ComparisonKind) (time.Time, time.Time) {
	days := kind.Offset()
	return start.AddDate(0, 0, -days), end.AddDate(0, 0, -days)
}

// Compare computes absolute and percentage deltas between two snapshots for
// the headline metrics. A nil snapshot on either side yields the neutral
// zero-valued comparison; percentages are zero whenever the previous value
// is zero, never NaN or infinite.
func Compare(current, previous *Snapshot) Comparison {
	var cmp Comparison
	if current == nil || previous == nil {
		return cmp
	}

	cmp.TotalCallsChange = current.TotalCalls - previous.TotalCalls
	cmp.IncomingCallsChange = current.IncomingCalls - previous.IncomingCalls
	cmp.ServiceCallsChange = current.ServiceCalls - previous.ServiceCalls
	cmp.EnquiryCallsChange = current.EnquiryCalls - previous.EnquiryCalls

	cmp.TotalCallsPct = pctChange(cmp.TotalCallsChange, previous.TotalCalls)
	cmp.IncomingCallsPct = pctChange(cmp.IncomingCallsChange, previous.IncomingCalls)
	cmp.ServiceCallsPct = pctChange(cmp.ServiceCallsChange, previous.ServiceCalls)
	cmp.EnquiryCallsPct = pctChange(cmp.EnquiryCallsChange, previous.EnquiryCalls)

	return cmp
}

func pctChange(delta, previous int) float64 {
	if previous <= 0 {
		return 0
	}
	return round1(float64(delta) / float64(previous) * 100)
}
