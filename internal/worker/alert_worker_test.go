package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashflow/internal/amqp"
	"cashflow/internal/core"
	"cashflow/internal/projection"
	"cashflow/internal/records/memory"
	"cashflow/internal/services"
)

type fakeProjector struct {
	results []projection.Result
	err     error
}

func (f *fakeProjector) Today() core.Date { return core.NewDate(2025, 11, 15) }

func (f *fakeProjector) Project(context.Context) ([]projection.Result, error) {
	return f.results, f.err
}

type recordingPublisher struct {
	msgs []*amqp.CheckpointAlertMessage
	err  error
}

func (p *recordingPublisher) PublishCheckpointAlert(_ context.Context, msg *amqp.CheckpointAlertMessage) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

type recordingExporter struct {
	today   core.Date
	results []projection.Result
	calls   int
}

func (e *recordingExporter) ExportProjection(_ context.Context, today core.Date, results []projection.Result) error {
	e.today, e.results = today, results
	e.calls++
	return nil
}

type failingExporter struct{}

func (failingExporter) ExportProjection(context.Context, core.Date, []projection.Result) error {
	return errors.New("quota exceeded")
}

func results() []projection.Result {
	return []projection.Result{
		{Date: core.NewDate(2025, 11, 20), FundingGap: core.Money{Cents: 17000}, Status: projection.StatusWarning},
		{Date: core.NewDate(2025, 12, 1), Status: projection.StatusGood},
		{Date: core.NewDate(2025, 12, 10), FundingGap: core.Money{Cents: 250000}, Status: projection.StatusCritical},
	}
}

func TestAlertWorkerThreshold(t *testing.T) {
	tests := []struct {
		name      string
		threshold projection.Status
		want      []string
	}{
		{"good alerts everything", projection.StatusGood, []string{"2025-11-20", "2025-12-01", "2025-12-10"}},
		{"warning skips good", projection.StatusWarning, []string{"2025-11-20", "2025-12-10"}},
		{"critical only", projection.StatusCritical, []string{"2025-12-10"}},
		{"empty threshold defaults to warning", "", []string{"2025-11-20", "2025-12-10"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &recordingPublisher{}
			w := NewAlertWorker(&fakeProjector{results: results()}, pub, nil, tt.threshold, nil)

			stats, err := w.Run(context.Background())
			require.NoError(t, err)

			var got []string
			for _, m := range pub.msgs {
				got = append(got, m.Checkpoint)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len(tt.want), stats.AlertsPublished)
			assert.Equal(t, 3, stats.Checkpoints)
			assert.False(t, stats.Exported)
		})
	}
}

func TestAlertWorkerExports(t *testing.T) {
	exporter := &recordingExporter{}
	w := NewAlertWorker(&fakeProjector{results: results()}, nil, exporter, projection.StatusWarning, nil)

	stats, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, stats.Exported)

	require.Equal(t, 1, exporter.calls)
	assert.True(t, exporter.today.Equal(core.NewDate(2025, 11, 15)))
	assert.Len(t, exporter.results, 3)
}

// gatedPublisher refuses to publish until the export has happened.
type gatedPublisher struct {
	exported <-chan struct{}
	sent     int
}

func (p *gatedPublisher) PublishCheckpointAlert(ctx context.Context, _ *amqp.CheckpointAlertMessage) error {
	select {
	case <-p.exported:
		p.sent++
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type signallingExporter struct {
	done chan struct{}
}

func (e *signallingExporter) ExportProjection(context.Context, core.Date, []projection.Result) error {
	close(e.done)
	return nil
}

func TestAlertWorkerPublishesWhileExporting(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exporter := &signallingExporter{done: make(chan struct{})}
	pub := &gatedPublisher{exported: exporter.done}
	w := NewAlertWorker(&fakeProjector{results: results()}, pub, exporter, projection.StatusWarning, nil)

	stats, err := w.Run(ctx)
	require.NoError(t, err)
	assert.True(t, stats.Exported)
	assert.Equal(t, 2, stats.AlertsPublished)
	assert.Zero(t, stats.AlertsFailed)
	assert.Equal(t, 2, pub.sent)
}

func TestAlertWorkerWithoutExporter(t *testing.T) {
	pub := &recordingPublisher{}
	w := NewAlertWorker(&fakeProjector{results: results()}, pub, nil, projection.StatusWarning, nil)

	stats, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, stats.Exported)
	assert.False(t, stats.ExportFailed)
	assert.Len(t, pub.msgs, 2)
	_, export := w.Failures()
	assert.Zero(t, export)
}

func TestAlertWorkerFailuresAreCounted(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("circuit breaker is open")}
	w := NewAlertWorker(&fakeProjector{results: results()}, pub, failingExporter{}, projection.StatusWarning, nil)

	stats, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.AlertsFailed)
	assert.Equal(t, 0, stats.AlertsPublished)
	assert.True(t, stats.ExportFailed)

	_, err = w.Run(context.Background())
	require.NoError(t, err)
	publish, export := w.Failures()
	assert.Equal(t, int64(4), publish)
	assert.Equal(t, int64(2), export)
	assert.Equal(t, int64(2), w.Runs())
}

func TestAlertWorkerProjectionError(t *testing.T) {
	boom := errors.New("bad settings")
	pub := &recordingPublisher{}
	w := NewAlertWorker(&fakeProjector{err: boom}, pub, &recordingExporter{}, projection.StatusWarning, nil)

	_, err := w.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, pub.msgs)
}

func TestAlertWorkerWithProjectionService(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	_, err := store.CreateObligation(ctx, core.Obligation{
		Name: "Rent", Category: "Housing", Amount: core.Money{Cents: 145000},
		Frequency: core.FrequencyMonthly, DueDay: 1,
	})
	require.NoError(t, err)

	svc := services.NewProjectionService(store, services.WithClock(func() time.Time {
		return time.Date(2025, time.November, 15, 8, 0, 0, 0, time.UTC)
	}))
	pub := &recordingPublisher{}
	w := NewAlertWorker(svc, pub, nil, projection.StatusCritical, nil)

	stats, err := w.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Checkpoints)
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "2025-12-01", pub.msgs[0].Checkpoint)
	assert.Equal(t, int64(145000), pub.msgs[0].FundingGapCents)
}
