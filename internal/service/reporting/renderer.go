package reporting

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/kotshq/call-insights/internal/service/analytics"
)

// Renderer turns snapshots into HTML report emails. Templates are parsed
// once at construction; a parse failure is a programming error and panics.
type Renderer struct {
	daily *template.Template
	rng   *template.Template
	loc   *time.Location
}

// NewRenderer builds a renderer that stamps generation times in loc.
func NewRenderer(loc *time.Location) *Renderer {
	return &Renderer{
		daily: template.Must(template.New("daily").Parse(dailyTemplate)),
		rng:   template.Must(template.New("range").Parse(rangeTemplate)),
		loc:   loc,
	}
}

// Content is a rendered subject and body, ready for a Sender.
type Content struct {
	Subject string
	HTML    string
}

type reportData struct {
	StartDate   string
	EndDate     string
	GeneratedAt string

	TotalCalls    int
	IncomingCalls int
	OutgoingCalls int
	AnsweredCalls int
	MissedCalls   int
	AvgDuration   int

	ServiceCalls      int
	EnquiryCalls      int
	ServicePercentage float64
	EnquiryPercentage float64
	Degraded          bool
}

func (r *Renderer) data(snap *analytics.Snapshot, start, end string) reportData {
	d := reportData{
		StartDate:   start,
		EndDate:     end,
		GeneratedAt: time.Now().In(r.loc).Format("January 2, 2006 at 3:04 PM MST"),
	}
	if snap != nil {
		d.TotalCalls = snap.TotalCalls
		d.IncomingCalls = snap.IncomingCalls
		d.OutgoingCalls = snap.OutgoingCalls
		d.AnsweredCalls = snap.AnsweredCalls
		d.MissedCalls = snap.MissedCalls
		d.AvgDuration = int(snap.AvgDuration)
		d.ServiceCalls = snap.ServiceCalls
		d.EnquiryCalls = snap.EnquiryCalls
		d.ServicePercentage = snap.ServicePercentage
		d.EnquiryPercentage = snap.EnquiryPercentage
		d.Degraded = snap.Degraded
	}
	return d
}

// RenderDaily renders the scheduled single-day report.
func (r *Renderer) RenderDaily(snap *analytics.Snapshot, date string) (Content, error) {
	var sb strings.Builder
	if err := r.daily.Execute(&sb, r.data(snap, date, date)); err != nil {
		return Content{}, fmt.Errorf("rendering daily report: %w", err)
	}
	return Content{
		Subject: fmt.Sprintf("Daily Call Analytics Report - %s", date),
		HTML:    sb.String(),
	}, nil
}

// RenderRange renders the on-demand report for an arbitrary period.
func (r *Renderer) RenderRange(snap *analytics.Snapshot, start, end string) (Content, error) {
	var sb strings.Builder
	if err := r.rng.Execute(&sb, r.data(snap, start, end)); err != nil {
		return Content{}, fmt.Errorf("rendering range report: %w", err)
	}
	return Content{
		Subject: fmt.Sprintf("Call Analytics Report - %s to %s", start, end),
		HTML:    sb.String(),
	}, nil
}

const dailyTemplate = `<html>
<head>
<style>
  body { font-family: Arial, sans-serif; margin: 20px; background-color: #f5f5f5; }
  .container { max-width: 800px; margin: 0 auto; background: white; border-radius: 10px; overflow: hidden; }
  .header { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 30px; text-align: center; }
  .content { padding: 30px; }
  .metrics { display: grid; grid-template-columns: repeat(auto-fit, minmax(200px, 1fr)); gap: 20px; margin: 20px 0; }
  .metric-card { border: 1px solid #e0e0e0; border-radius: 8px; padding: 20px; text-align: center; background: #f5f7fa; }
  .metric-value { font-size: 42px; font-weight: bold; color: #667eea; }
  .metric-label { font-size: 14px; color: #666; text-transform: uppercase; }
  .service { background: #d4edda; } .service .metric-value { color: #4CAF50; }
  .enquiry { background: #fff3cd; } .enquiry .metric-value { color: #FF9800; }
  .warning { background: #f8d7da; border: 1px solid #dc3545; padding: 12px; border-radius: 5px; margin: 20px 0; }
  .footer { background: #f9f9f9; padding: 20px; text-align: center; color: #666; font-size: 14px; }
</style>
</head>
<body>
<div class="container">
  <div class="header">
    <h1>Daily Call Analytics Report</h1>
    <p>Report Date: {{.StartDate}}</p>
  </div>
  <div class="content">
    <h2>Key Metrics</h2>
    <div class="metrics">
      <div class="metric-card"><div class="metric-value">{{.TotalCalls}}</div><div class="metric-label">Total Calls</div></div>
      <div class="metric-card"><div class="metric-value">{{.IncomingCalls}}</div><div class="metric-label">Incoming Calls</div></div>
      <div class="metric-card"><div class="metric-value">{{.OutgoingCalls}}</div><div class="metric-label">Outgoing Calls</div></div>
      <div class="metric-card"><div class="metric-value">{{.AnsweredCalls}}</div><div class="metric-label">Answered Calls</div></div>
      <div class="metric-card"><div class="metric-value">{{.MissedCalls}}</div><div class="metric-label">Missed Calls</div></div>
      <div class="metric-card"><div class="metric-value">{{.AvgDuration}}s</div><div class="metric-label">Avg Duration</div></div>
    </div>
    <h2>Call Categorization</h2>
    <div class="metrics">
      <div class="metric-card service"><div class="metric-value">{{.ServiceCalls}}</div><div class="metric-label">Service Calls ({{.ServicePercentage}}%)</div><div>Existing tenants</div></div>
      <div class="metric-card enquiry"><div class="metric-value">{{.EnquiryCalls}}</div><div class="metric-label">Enquiry Calls ({{.EnquiryPercentage}}%)</div><div>New prospects</div></div>
    </div>
    {{if .Degraded}}<div class="warning">Customer lookup was partially unavailable; some calls may be miscategorized as enquiries.</div>{{end}}
  </div>
  <div class="footer">
    <p><strong>Automated Daily Report</strong></p>
    <p>Generated on {{.GeneratedAt}}</p>
  </div>
</div>
</body>
</html>`

const rangeTemplate = `<html>
<head>
<style>
  body { font-family: Arial, sans-serif; margin: 20px; }
  .header { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 20px; text-align: center; border-radius: 10px; }
  .metrics { display: flex; flex-wrap: wrap; margin: 20px 0; }
  .metric-card { border: 1px solid #ddd; border-radius: 8px; padding: 20px; margin: 10px; min-width: 200px; background: #f5f7fa; }
  .metric-value { font-size: 36px; font-weight: bold; color: #667eea; }
  .metric-label { font-size: 14px; color: #666; }
  .attachment-note { background-color: #fff3cd; border: 1px solid #ffc107; padding: 15px; border-radius: 5px; margin: 20px 0; text-align: center; }
  .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #ddd; color: #666; text-align: center; }
</style>
</head>
<body>
<div class="header">
  <h1>Call Analytics Report</h1>
  <p>Generated on {{.GeneratedAt}}</p>
  <p>Report Period: {{.StartDate}} to {{.EndDate}}</p>
</div>
<div class="metrics">
  <div class="metric-card"><div class="metric-value">{{.TotalCalls}}</div><div class="metric-label">Total Calls</div></div>
  <div class="metric-card"><div class="metric-value">{{.IncomingCalls}}</div><div class="metric-label">Incoming Calls</div></div>
  <div class="metric-card"><div class="metric-value">{{.OutgoingCalls}}</div><div class="metric-label">Outgoing Calls</div></div>
  <div class="metric-card"><div class="metric-value">{{.AnsweredCalls}}</div><div class="metric-label">Answered Calls</div></div>
  <div class="metric-card"><div class="metric-value">{{.MissedCalls}}</div><div class="metric-label">Missed Calls</div></div>
  <div class="metric-card"><div class="metric-value">{{.AvgDuration}}s</div><div class="metric-label">Avg Duration</div></div>
</div>
<div class="attachment-note"><strong>Complete Dashboard Report Attached</strong><br>See the attached image for the full visual dashboard.</div>
<div class="footer"><p>This is an automated report from the call analytics dashboard.</p></div>
</body>
</html>`
