package analytics

// Snapshot is the aggregated, immutable result of one aggregation run,
// derived entirely from a record set plus its classifications. JSON field
// names form the wire contract consumed by the dashboard and the report
// renderers.
type Snapshot struct {
	TotalCalls    int     `json:"total_calls"`
	IncomingCalls int     `json:"incoming_calls"`
	OutgoingCalls int     `json:"outgoing_calls"`
	AnsweredCalls int     `json:"answered_calls"`
	MissedCalls   int     `json:"missed_calls"`
	AvgDuration   float64 `json:"avg_duration"`

	// DailyCalls keys are stable YYYY-MM-DD strings; HourlyCalls keys are
	// hours of day 0-23.
	DailyCalls  map[string]int `json:"daily_calls"`
	HourlyCalls map[int]int    `json:"hourly_calls"`

	StatusBreakdown    map[string]int `json:"status_breakdown"`
	DirectionBreakdown map[string]int `json:"direction_breakdown"`
	CategoryBreakdown  map[string]int `json:"category_breakdown"`

	ServiceCalls      int     `json:"service_calls"`
	EnquiryCalls      int     `json:"enquiry_calls"`
	ServicePercentage float64 `json:"service_percentage"`
	EnquiryPercentage float64 `json:"enquiry_percentage"`

	// Degraded is set when a backing-store failure forced part of the
	// classification to fall back to enquiry.
	Degraded bool `json:"degraded,omitempty"`
}

// Comparison exposes per-metric absolute and percentage change between two
// snapshots. Percentages are defined as zero whenever the previous value is
// zero; a comparison never fails, it degrades to a neutral result.
type Comparison struct {
	TotalCallsChange    int `json:"total_calls_change"`
	IncomingCallsChange int `json:"incoming_calls_change"`
	ServiceCallsChange  int `json:"service_calls_change"`
	EnquiryCallsChange  int `json:"enquiry_calls_change"`

	TotalCallsPct    float64 `json:"total_calls_pct"`
	IncomingCallsPct float64 `json:"incoming_calls_pct"`
	ServiceCallsPct  float64 `json:"service_calls_pct"`
	EnquiryCallsPct  float64 `json:"enquiry_calls_pct"`
}
