package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildChartsNilSnapshot(t *testing.T) {
	assert.Empty(t, BuildCharts(nil))
}

func TestBuildChartsOmitsEmptySeries(t *testing.T) {
	charts := BuildCharts(&Snapshot{TotalCalls: 3, OutgoingCalls: 3})
	assert.Empty(t, charts)
}

func TestBuildCharts(t *testing.T) {
	snap := &Snapshot{
		DailyCalls:         map[string]int{"2025-03-11": 5, "2025-03-10": 12},
		HourlyCalls:        map[int]int{14: 10, 9: 7},
		StatusBreakdown:    map[string]int{"completed": 14, "no-answer": 3},
		DirectionBreakdown: map[string]int{"inbound": 12, "outbound-dial": 5},
		ServiceCalls:       8,
		EnquiryCalls:       4,
		ServicePercentage:  66.7,
		EnquiryPercentage:  33.3,
	}

	charts := BuildCharts(snap)
	require.Len(t, charts, 5)

	daily := charts["daily_volume"]
	assert.Equal(t, "line", daily.Kind)
	assert.Equal(t, []string{"2025-03-10", "2025-03-11"}, daily.Labels)
	assert.Equal(t, []int{12, 5}, daily.Values)

	hourly := charts["hourly"]
	assert.Equal(t, []string{"9", "14"}, hourly.Labels)
	assert.Equal(t, []int{7, 10}, hourly.Values)

	assert.Equal(t, "pie", charts["direction"].Kind)
	assert.Equal(t, "bar", charts["status"].Kind)

	se := charts["service_enquiry"]
	assert.Equal(t, []string{"Service Calls (66.7%)", "Enquiry Calls (33.3%)"}, se.Labels)
	assert.Equal(t, []int{8, 4}, se.Values)
}

func TestBuildChartsServiceOnly(t *testing.T) {
	snap := &Snapshot{ServiceCalls: 3, ServicePercentage: 100}

	charts := BuildCharts(snap)
	se, ok := charts["service_enquiry"]
	require.True(t, ok)
	assert.Equal(t, []string{"Service Calls (100.0%)"}, se.Labels)
	assert.Equal(t, []int{3}, se.Values)
}
