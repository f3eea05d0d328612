package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"cashflow/internal/amqp"
	"cashflow/internal/core"
	"cashflow/internal/log"
	"cashflow/internal/projection"
	"cashflow/internal/sheets"
)

// Projector is the slice of services.ProjectionService the worker needs.
type Projector interface {
	Today() core.Date
	Project(ctx context.Context) ([]projection.Result, error)
}

// AlertPublisher publishes one checkpoint alert.
type AlertPublisher interface {
	PublishCheckpointAlert(ctx context.Context, msg *amqp.CheckpointAlertMessage) error
}

// RunStats summarizes one worker run.
type RunStats struct {
	Checkpoints     int
	AlertsPublished int
	AlertsFailed    int
	Exported        bool
	ExportFailed    bool
}

// AlertWorker projects the upcoming checkpoints, publishes an alert for every
// checkpoint at or above the threshold and exports the snapshot.
// Publisher and exporter are optional.
type AlertWorker struct {
	projector Projector
	publisher AlertPublisher
	exporter  sheets.ProjectionExporter
	threshold projection.Status
	logger    *log.Logger

	runs           int64
	publishFailure int64
	exportFailure  int64
}

func NewAlertWorker(projector Projector, publisher AlertPublisher, exporter sheets.ProjectionExporter, threshold projection.Status, logger *log.Logger) *AlertWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if threshold == "" {
		threshold = projection.StatusWarning
	}
	return &AlertWorker{
		projector: projector,
		publisher: publisher,
		exporter:  exporter,
		threshold: threshold,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// Run performs one projection cycle. Only a projection failure is returned;
// publish and export failures are logged and counted.
func (w *AlertWorker) Run(ctx context.Context) (RunStats, error) {
	atomic.AddInt64(&w.runs, 1)
	var stats RunStats

	results, err := w.projector.Project(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Projection run failed", log.FieldError, err, log.FieldOperation, log.OpProject)
		return stats, fmt.Errorf("project: %w", err)
	}
	stats.Checkpoints = len(results)

	// publishing and exporting are independent; neither aborts the other
	var g errgroup.Group
	g.Go(func() error {
		stats.AlertsPublished, stats.AlertsFailed = w.publishAlerts(ctx, results)
		return nil
	})
	g.Go(func() error {
		stats.Exported, stats.ExportFailed = w.export(ctx, results)
		return nil
	})
	_ = g.Wait()

	w.logger.InfoContext(ctx, "Projection run complete",
		"checkpoints", stats.Checkpoints,
		"alerts_published", stats.AlertsPublished,
		"alerts_failed", stats.AlertsFailed,
		"exported", stats.Exported,
		"threshold", string(w.threshold))
	return stats, nil
}

func (w *AlertWorker) publishAlerts(ctx context.Context, results []projection.Result) (published, failed int) {
	if w.publisher == nil {
		return 0, 0
	}
	for _, r := range results {
		if r.Status.Severity() < w.threshold.Severity() {
			continue
		}
		msg := amqp.NewCheckpointAlertMessage(r)
		if err := w.publisher.PublishCheckpointAlert(ctx, msg); err != nil {
			failed++
			atomic.AddInt64(&w.publishFailure, 1)
			w.logger.ErrorContext(ctx, "Failed to publish checkpoint alert",
				log.FieldError, err,
				log.FieldOperation, log.OpPublish,
				log.FieldCheckpoint, msg.Checkpoint,
				log.FieldMessageID, msg.ID)
			continue
		}
		published++
	}
	return published, failed
}

func (w *AlertWorker) export(ctx context.Context, results []projection.Result) (exported, failed bool) {
	if w.exporter == nil {
		return false, false
	}
	if err := w.exporter.ExportProjection(ctx, w.projector.Today(), results); err != nil {
		atomic.AddInt64(&w.exportFailure, 1)
		w.logger.ErrorContext(ctx, "Failed to export projection", log.FieldError, err, log.FieldOperation, log.OpExport)
		return false, true
	}
	return true, false
}

// Failures returns the cumulative publish and export failure counts.
func (w *AlertWorker) Failures() (publish, export int64) {
	return atomic.LoadInt64(&w.publishFailure), atomic.LoadInt64(&w.exportFailure)
}

// Runs returns how many cycles have started.
func (w *AlertWorker) Runs() int64 {
	return atomic.LoadInt64(&w.runs)
}
