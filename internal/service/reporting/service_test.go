package reporting

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotshq/call-insights/internal/service/analytics"
)

type stubPipeline struct {
	outcome *analytics.Outcome
	err     error
	starts  []time.Time
	ends    []time.Time
}

func (p *stubPipeline) Run(_ context.Context, start, end time.Time) (*analytics.Outcome, error) {
	p.starts = append(p.starts, start)
	p.ends = append(p.ends, end)
	if p.err != nil {
		return nil, p.err
	}
	return p.outcome, nil
}

type stubSender struct {
	sent []Message
	err  error
}

func (s *stubSender) Send(_ context.Context, msg Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func testService(pipeline Pipeline, sender Sender, recipient string) *Service {
	return NewService(pipeline, sender, recipient, time.UTC,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSendDaily(t *testing.T) {
	pipeline := &stubPipeline{outcome: &analytics.Outcome{
		StartDate: "2025-03-09",
		EndDate:   "2025-03-09",
		Snapshot:  &analytics.Snapshot{TotalCalls: 42, IncomingCalls: 30},
	}}
	sender := &stubSender{}

	err := testService(pipeline, sender, "ops@example.com").SendDaily(context.Background())
	require.NoError(t, err)

	require.Len(t, pipeline.starts, 1)
	assert.Equal(t, pipeline.starts[0], pipeline.ends[0])
	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	assert.Equal(t, yesterday, pipeline.starts[0].Format("2006-01-02"))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ops@example.com", sender.sent[0].To)
	assert.Equal(t, "Daily Call Analytics Report - 2025-03-09", sender.sent[0].Subject)
	assert.Contains(t, sender.sent[0].HTML, ">42<")
}

func TestSendDailySkipsWhenNoData(t *testing.T) {
	pipeline := &stubPipeline{outcome: &analytics.Outcome{
		StartDate: "2025-03-09",
		EndDate:   "2025-03-09",
		NoData:    true,
	}}
	sender := &stubSender{}

	err := testService(pipeline, sender, "ops@example.com").SendDaily(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sender.sent)
}

func TestSendDailyPipelineError(t *testing.T) {
	pipeline := &stubPipeline{err: errors.New("provider down")}
	sender := &stubSender{}

	err := testService(pipeline, sender, "ops@example.com").SendDaily(context.Background())
	require.Error(t, err)
	assert.Empty(t, sender.sent)
}

func TestSendRangeWithAttachment(t *testing.T) {
	pipeline := &stubPipeline{outcome: &analytics.Outcome{
		StartDate: "2025-03-10",
		EndDate:   "2025-03-16",
		Snapshot:  &analytics.Snapshot{TotalCalls: 7},
	}}
	sender := &stubSender{}
	att := &Attachment{Filename: "dash.png", ContentType: "image/png", Data: []byte{1}}

	err := testService(pipeline, sender, "ops@example.com").SendRange(
		context.Background(),
		time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC),
		att)
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Call Analytics Report - 2025-03-10 to 2025-03-16", sender.sent[0].Subject)
	assert.Same(t, att, sender.sent[0].Attachment)
}

func TestSendRangeNoDataIsError(t *testing.T) {
	pipeline := &stubPipeline{outcome: &analytics.Outcome{
		StartDate: "2025-03-10",
		EndDate:   "2025-03-10",
		NoData:    true,
	}}
	sender := &stubSender{}

	err := testService(pipeline, sender, "ops@example.com").SendRange(
		context.Background(),
		time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		nil)
	require.Error(t, err)
	assert.Empty(t, sender.sent)
}

func TestSendSnapshotSkipsPipeline(t *testing.T) {
	pipeline := &stubPipeline{}
	sender := &stubSender{}

	snap := &analytics.Snapshot{TotalCalls: 5}
	err := testService(pipeline, sender, "ops@example.com").SendSnapshot(
		context.Background(), snap, "2025-03-10", "2025-03-10", nil)
	require.NoError(t, err)

	assert.Empty(t, pipeline.starts)
	require.Len(t, sender.sent, 1)
}

func TestSendTest(t *testing.T) {
	sender := &stubSender{}

	err := testService(&stubPipeline{}, sender, "ops@example.com").SendTest(context.Background())
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].HTML, ">100<")
	assert.Contains(t, sender.sent[0].HTML, ">120s<")
}

func TestDeliverRequiresRecipient(t *testing.T) {
	sender := &stubSender{}
	err := testService(&stubPipeline{}, sender, "").SendTest(context.Background())
	require.Error(t, err)
	assert.Empty(t, sender.sent)
}

func TestSenderFailurePropagates(t *testing.T) {
	sender := &stubSender{err: errors.New("smtp refused")}
	err := testService(&stubPipeline{}, sender, "ops@example.com").SendTest(context.Background())
	require.Error(t, err)
}
