package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashflow/internal/core"
	"cashflow/internal/projection"
	"cashflow/internal/records"
	"cashflow/internal/records/memory"
)

func fixedClock(year int, month time.Month, day int) func() time.Time {
	return func() time.Time { return time.Date(year, month, day, 14, 30, 0, 0, time.UTC) }
}

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	s := memory.New()

	_, err := s.CreateObligation(ctx, core.Obligation{Name: "Rent", Category: "Housing", Amount: core.Money{Cents: 145000}, Frequency: core.FrequencyMonthly, DueDay: 1})
	require.NoError(t, err)
	storage, err := s.CreateObligation(ctx, core.Obligation{Name: "Storage unit", Category: "Housing", Amount: core.Money{Cents: 8500}, Frequency: core.FrequencyMonthly, DueDay: 31})
	require.NoError(t, err)
	_, err = s.CreateCreditAccount(ctx, core.CreditAccount{Name: "Visa", Type: core.AccountCreditCard, MinimumPayment: core.Money{Cents: 3500}, PaymentDueDay: 15})
	require.NoError(t, err)
	_, err = s.CreateRecurringIncomeRule(ctx, core.RecurringIncomeRule{
		Source: "Payroll", Amount: core.Money{Cents: 188234}, Frequency: core.IncomeBiWeekly,
		StartDate: core.NewDate(2025, 11, 5), Active: true,
	})
	require.NoError(t, err)
	_, err = s.AddPastDueInstance(ctx, core.PastDueInstance{OwnerKind: core.OwnerBill, OwnerID: storage.ID, Period: "October 2025", Amount: core.Money{Cents: 8500}})
	require.NoError(t, err)
	return s
}

func TestProjectionServiceProject(t *testing.T) {
	svc := NewProjectionService(seededStore(t), WithClock(fixedClock(2025, time.November, 15)))

	assert.Equal(t, core.NewDate(2025, 11, 15), svc.Today())

	results, err := svc.Project(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, core.NewDate(2025, 11, 20), results[0].Date)
	assert.Equal(t, 5, results[0].DaysAway)
	assert.Equal(t, core.Money{Cents: 17000}, results[0].FundingGap)
	assert.Equal(t, projection.StatusWarning, results[0].Status)
	assert.Equal(t, projection.StatusGood, results[1].Status)
}

func TestProjectionServiceCheckpointsAndPeriods(t *testing.T) {
	svc := NewProjectionService(seededStore(t), WithClock(fixedClock(2025, time.November, 15)))
	ctx := context.Background()

	checkpoints, err := svc.Checkpoints(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.Date{core.NewDate(2025, 11, 20), core.NewDate(2025, 12, 1), core.NewDate(2025, 12, 10)}, checkpoints)

	periods, err := svc.Periods(ctx)
	require.NoError(t, err)
	require.Len(t, periods, 3)
	assert.Equal(t, core.NewDate(2025, 12, 19), periods[2].End)
}

func TestProjectionServicePastDueOption(t *testing.T) {
	svc := NewProjectionService(seededStore(t),
		WithClock(fixedClock(2025, time.November, 15)),
		WithProjectionOptions(projection.WithPastDueFirstPeriodOnly()))

	results, err := svc.Project(context.Background())
	require.NoError(t, err)
	for _, o := range results[1].Obligations {
		assert.NotEqual(t, projection.KindPastDue, o.Kind)
	}
}

func TestProjectionServiceProjectAt(t *testing.T) {
	svc := NewProjectionService(seededStore(t), WithClock(fixedClock(2025, time.November, 15)))

	results, err := svc.ProjectAt(context.Background(), core.NewDate(2026, 1, 2))
	require.NoError(t, err)
	assert.Equal(t, core.NewDate(2026, 1, 10), results[0].Date)
}

func TestProjectionServiceReadsOneSnapshot(t *testing.T) {
	svc := NewProjectionService(snapshotOnly{seededStore(t)}, WithClock(fixedClock(2025, time.November, 15)))

	results, err := svc.Project(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, core.Money{Cents: 17000}, results[0].FundingGap)
}

func TestProjectionServiceInvalidSettings(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	svc := NewProjectionService(&brokenSettings{Store: store}, WithClock(fixedClock(2025, time.November, 15)))

	_, err := svc.Project(ctx)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.ErrorIs(t, err, projection.ErrInvalidCustomDays)
}

func TestProjectionServiceStoreFailure(t *testing.T) {
	boom := errors.New("disk on fire")
	svc := NewProjectionService(&failingSnapshot{Store: seededStore(t), err: boom}, WithClock(fixedClock(2025, time.November, 15)))

	_, err := svc.Project(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrInvalidConfiguration)
}

// brokenSettings returns a custom-days configuration with an unparsable list.
type brokenSettings struct {
	*memory.Store
}

var brokenCustomDays = core.CheckpointSettings{Mode: core.ModeCustomDays, Count: 3, CustomDays: "1,ten"}

func (b *brokenSettings) GetCheckpointSettings(context.Context) (core.CheckpointSettings, error) {
	return brokenCustomDays, nil
}

func (b *brokenSettings) Snapshot(ctx context.Context) (records.Snapshot, error) {
	snap, err := b.Store.Snapshot(ctx)
	snap.Settings = brokenCustomDays
	return snap, err
}

type failingSnapshot struct {
	*memory.Store
	err error
}

func (f *failingSnapshot) Snapshot(context.Context) (records.Snapshot, error) {
	return records.Snapshot{}, f.err
}

// snapshotOnly fails every per-collection read so a projection must go through Snapshot.
type snapshotOnly struct {
	*memory.Store
}

var errPerCollectionRead = errors.New("projection read a collection outside the snapshot")

func (snapshotOnly) ListObligations(context.Context) ([]core.Obligation, error) {
	return nil, errPerCollectionRead
}

func (snapshotOnly) ListCreditAccounts(context.Context) ([]core.CreditAccount, error) {
	return nil, errPerCollectionRead
}

func (snapshotOnly) ListRecurringIncomeRules(context.Context) ([]core.RecurringIncomeRule, error) {
	return nil, errPerCollectionRead
}

func (snapshotOnly) ListPastDueInstances(context.Context) ([]core.PastDueInstance, error) {
	return nil, errPerCollectionRead
}

func (snapshotOnly) GetCheckpointSettings(context.Context) (core.CheckpointSettings, error) {
	return core.CheckpointSettings{}, errPerCollectionRead
}
