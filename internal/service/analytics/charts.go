package analytics

import (
	"fmt"
	"sort"
	"strconv"
)

// Chart is a renderer-agnostic data series for the dashboard. The frontend
// maps Kind onto its plotting library; labels and values are parallel slices.
type Chart struct {
	Kind   string   `json:"kind"` // line, pie or bar
	Title  string   `json:"title"`
	Labels []string `json:"labels"`
	Values []int    `json:"values"`
	XTitle string   `json:"x_title,omitempty"`
	YTitle string   `json:"y_title,omitempty"`
}

// BuildCharts derives the dashboard chart series from a snapshot. Empty
// series are omitted so the frontend can skip absent panels. Map-backed
// series are emitted in sorted key order to keep payloads stable.
func BuildCharts(snap *Snapshot) map[string]Chart {
	charts := make(map[string]Chart)
	if snap == nil {
		return charts
	}

	if len(snap.DailyCalls) > 0 {
		labels, values := sortedSeries(snap.DailyCalls)
		charts["daily_volume"] = Chart{
			Kind:   "line",
			Title:  "Daily Call Volume",
			Labels: labels,
			Values: values,
			XTitle: "Date",
			YTitle: "Number of Calls",
		}
	}

	if len(snap.DirectionBreakdown) > 0 {
		labels, values := sortedSeries(snap.DirectionBreakdown)
		charts["direction"] = Chart{
			Kind:   "pie",
			Title:  "Call Direction Distribution",
			Labels: labels,
			Values: values,
		}
	}

	if len(snap.StatusBreakdown) > 0 {
		labels, values := sortedSeries(snap.StatusBreakdown)
		charts["status"] = Chart{
			Kind:   "bar",
			Title:  "Call Status Distribution",
			Labels: labels,
			Values: values,
			XTitle: "Status",
			YTitle: "Count",
		}
	}

	if len(snap.HourlyCalls) > 0 {
		hours := make([]int, 0, len(snap.HourlyCalls))
		for h := range snap.HourlyCalls {
			hours = append(hours, h)
		}
		sort.Ints(hours)

		labels := make([]string, 0, len(hours))
		values := make([]int, 0, len(hours))
		for _, h := range hours {
			labels = append(labels, strconv.Itoa(h))
			values = append(values, snap.HourlyCalls[h])
		}
		charts["hourly"] = Chart{
			Kind:   "bar",
			Title:  "Hourly Call Distribution",
			Labels: labels,
			Values: values,
			XTitle: "Hour of Day",
			YTitle: "Number of Calls",
		}
	}

	if snap.ServiceCalls > 0 || snap.EnquiryCalls > 0 {
		var labels []string
		var values []int
		if snap.ServiceCalls > 0 {
			labels = append(labels, fmt.Sprintf("Service Calls (%.1f%%)", snap.ServicePercentage))
			values = append(values, snap.ServiceCalls)
		}
		if snap.EnquiryCalls > 0 {
			labels = append(labels, fmt.Sprintf("Enquiry Calls (%.1f%%)", snap.EnquiryPercentage))
			values = append(values, snap.EnquiryCalls)
		}
		charts["service_enquiry"] = Chart{
			Kind:   "pie",
			Title:  "Service vs Enquiry Calls",
			Labels: labels,
			Values: values,
		}
	}

	return charts
}

func sortedSeries(m map[string]int) ([]string, []int) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make([]int, 0, len(keys))
	for _, k := range keys {
		values = append(values, m[k])
	}
	return keys, values
}
