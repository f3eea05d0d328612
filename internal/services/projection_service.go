package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cashflow/internal/core"
	"cashflow/internal/log"
	"cashflow/internal/projection"
	"cashflow/internal/records"
)

// ErrInvalidConfiguration marks projection failures caused by stored data the engine
// cannot use (bad checkpoint settings, a bill without a due rule, a broken income rule).
var ErrInvalidConfiguration = errors.New("invalid projection configuration")

// ProjectionService reads a store snapshot and runs the projection engine on it.
type ProjectionService struct {
	store  records.Reader
	now    func() time.Time
	opts   []projection.Option
	logger *log.Logger
}

type ServiceOption func(*ProjectionService)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *ProjectionService) { s.now = now }
}

// WithProjectionOptions forwards options to projection.Project.
func WithProjectionOptions(opts ...projection.Option) ServiceOption {
	return func(s *ProjectionService) { s.opts = append(s.opts, opts...) }
}

func WithLogger(logger *log.Logger) ServiceOption {
	return func(s *ProjectionService) { s.logger = logger }
}

func NewProjectionService(store records.Reader, opts ...ServiceOption) *ProjectionService {
	s := &ProjectionService{
		store:  store,
		now:    time.Now,
		logger: log.New(log.DefaultConfig()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(log.ComponentProjection)
	return s
}

// Today returns the service clock's calendar date.
func (s *ProjectionService) Today() core.Date {
	return core.DateOf(s.now())
}

// Checkpoints returns the upcoming checkpoint dates for the stored settings.
func (s *ProjectionService) Checkpoints(ctx context.Context) ([]core.Date, error) {
	return s.checkpointsAt(ctx, s.Today())
}

// Periods returns the checkpoint periods for the stored settings.
func (s *ProjectionService) Periods(ctx context.Context) ([]projection.Period, error) {
	checkpoints, err := s.Checkpoints(ctx)
	if err != nil {
		return nil, err
	}
	return projection.Periods(checkpoints), nil
}

// Project runs the projection for today.
func (s *ProjectionService) Project(ctx context.Context) ([]projection.Result, error) {
	return s.ProjectAt(ctx, s.Today())
}

// ProjectAt runs the projection as if today were the given date. Settings and
// records come from one store snapshot.
func (s *ProjectionService) ProjectAt(ctx context.Context, today core.Date) ([]projection.Result, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	checkpoints, err := checkpointsFor(snap.Settings, today)
	if err != nil {
		return nil, err
	}

	in := projection.Input{
		Today:          today,
		Checkpoints:    checkpoints,
		Obligations:    snap.Obligations,
		CreditAccounts: snap.CreditAccounts,
		IncomeRules:    snap.IncomeRules,
		PastDue:        snap.PastDue,
	}
	results, err := projection.Project(in, s.opts...)
	if err != nil {
		s.logger.ErrorContext(ctx, "Projection failed", log.FieldError, err, log.FieldOperation, log.OpProject)
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}

	for _, r := range results {
		fields := log.NewFields().WithCheckpoint(r.Date.String(), r.DaysAway, string(r.Status),
			r.TotalObligations.Cents, r.TotalIncome.Cents, r.FundingGap.Cents)
		s.logger.DebugContext(ctx, "Checkpoint projected", fields.ToSlice()...)
	}
	s.logger.InfoContext(ctx, "Projection complete",
		"today", today.String(),
		"checkpoints", len(results),
		"obligations", len(in.Obligations),
		"income_rules", len(in.IncomeRules),
		"past_due", len(in.PastDue))

	return results, nil
}

func (s *ProjectionService) checkpointsAt(ctx context.Context, today core.Date) ([]core.Date, error) {
	settings, err := s.store.GetCheckpointSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint settings: %w", err)
	}
	return checkpointsFor(settings, today)
}

func checkpointsFor(settings core.CheckpointSettings, today core.Date) ([]core.Date, error) {
	scheduler, err := projection.NewScheduler(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	checkpoints, err := scheduler.Generate(today)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	return checkpoints, nil
}
