package call

import (
	"strings"
	"time"
)

// Record is one telephony event fetched from the provider. Immutable once
// fetched; it lives for a single pipeline invocation.
type Record struct {
	Sid         string    `json:"Sid"`
	From        string    `json:"From"`
	To          string    `json:"To"`
	PhoneNumber string    `json:"PhoneNumber"`
	Direction   string    `json:"Direction"`
	Status      string    `json:"Status"`
	Duration    int       `json:"Duration"`
	DateCreated time.Time `json:"DateCreated"`
}

// Direction values as returned by the provider. Outbound traffic is reported
// as outbound-api or outbound-dial, so matching is prefix-based.
const (
	DirectionInbound        = "inbound"
	DirectionOutboundPrefix = "outbound"
)

// Status values as returned by the provider.
const (
	StatusCompleted = "completed"
	StatusNoAnswer  = "no-answer"
	StatusFailed    = "failed"
	StatusBusy      = "busy"
)

// IsInbound reports whether the record is an inbound call. Only inbound
// records are eligible for service/enquiry classification.
func (r Record) IsInbound() bool {
	return r.Direction == DirectionInbound
}

// IsOutbound reports whether the record is any outbound variant.
func (r Record) IsOutbound() bool {
	return strings.HasPrefix(r.Direction, DirectionOutboundPrefix)
}

// IsAnswered reports whether the call completed.
func (r Record) IsAnswered() bool {
	return r.Status == StatusCompleted
}

// IsMissed reports whether the call went unanswered, failed or hit busy.
func (r Record) IsMissed() bool {
	switch r.Status {
	case StatusNoAnswer, StatusFailed, StatusBusy:
		return true
	}
	return false
}

// FetchResult is the outcome of one paginated record fetch. Partial is set
// when pagination aborted mid-range and Records holds only what was
// accumulated before the failure.
type FetchResult struct {
	Records []Record
	Pages   int
	Partial bool
}

// Category classifies a record for aggregation purposes.
type Category string

const (
	CategoryService  Category = "service"  // inbound from a known customer
	CategoryEnquiry  Category = "enquiry"  // inbound from an unknown prospect
	CategoryOutgoing Category = "outgoing" // any outbound record
	CategoryUnknown  Category = "unknown"  // direction missing or lookup degraded
)

func (c Category) String() string {
	return string(c)
}
