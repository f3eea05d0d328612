// Package records declares the record store collaborator the projection reads from
// and the API writes to. Implementations live in internal/storage (SQLite) and
// internal/records/memory.
package records

import (
	"context"
	"errors"
	"fmt"

	"cashflow/internal/core"
)

// ErrNotFound is returned by writers when the addressed record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrInvalid marks writer failures caused by a record that fails validation.
var ErrInvalid = errors.New("invalid record")

// Invalid wraps err so it matches both ErrInvalid and the original cause.
func Invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalid, err)
}

// Snapshot is one consistent read of the records a projection runs against.
type Snapshot struct {
	Settings       core.CheckpointSettings
	Obligations    []core.Obligation
	CreditAccounts []core.CreditAccount
	IncomeRules    []core.RecurringIncomeRule
	PastDue        []core.PastDueInstance
}

// Ports for the record store.
type (
	ObligationReader interface {
		ListObligations(ctx context.Context) ([]core.Obligation, error)
	}

	// CreditAccountReader returns accounts with their payment overrides attached.
	CreditAccountReader interface {
		ListCreditAccounts(ctx context.Context) ([]core.CreditAccount, error)
	}

	// IncomeRuleReader returns active recurring income rules only.
	IncomeRuleReader interface {
		ListRecurringIncomeRules(ctx context.Context) ([]core.RecurringIncomeRule, error)
	}

	PastDueReader interface {
		ListPastDueInstances(ctx context.Context) ([]core.PastDueInstance, error)
	}

	// SettingsReader returns the stored checkpoint settings, or the defaults when none
	// were saved yet.
	SettingsReader interface {
		GetCheckpointSettings(ctx context.Context) (core.CheckpointSettings, error)
	}

	// SnapshotReader reads settings and all four collections as of one point in time.
	SnapshotReader interface {
		Snapshot(ctx context.Context) (Snapshot, error)
	}

	// Reader is everything a projection needs.
	Reader interface {
		ObligationReader
		CreditAccountReader
		IncomeRuleReader
		PastDueReader
		SettingsReader
		SnapshotReader
	}

	ObligationWriter interface {
		CreateObligation(ctx context.Context, o core.Obligation) (core.Obligation, error)
		UpdateObligation(ctx context.Context, id int64, patch core.ObligationPatch) (core.Obligation, error)
		DeleteObligation(ctx context.Context, id int64) error
		// MarkPeriodPaid marks every open obligation resolving into [start, end] as paid
		// on paidOn and returns how many changed.
		MarkPeriodPaid(ctx context.Context, start, end, paidOn core.Date) (int, error)
	}

	CreditAccountWriter interface {
		CreateCreditAccount(ctx context.Context, a core.CreditAccount) (core.CreditAccount, error)
		UpdateCreditAccount(ctx context.Context, id int64, patch core.CreditAccountPatch) (core.CreditAccount, error)
		SetPaymentOverride(ctx context.Context, o core.PaymentOverride) error
	}

	IncomeRuleWriter interface {
		CreateRecurringIncomeRule(ctx context.Context, r core.RecurringIncomeRule) (core.RecurringIncomeRule, error)
		UpdateRecurringIncomeRule(ctx context.Context, id int64, patch core.RecurringIncomePatch) (core.RecurringIncomeRule, error)
		DeactivateRecurringIncomeRule(ctx context.Context, id int64) error
	}

	PastDueWriter interface {
		AddPastDueInstance(ctx context.Context, p core.PastDueInstance) (core.PastDueInstance, error)
		DeletePastDueInstance(ctx context.Context, id int64) error
	}

	SettingsWriter interface {
		UpdateCheckpointSettings(ctx context.Context, patch core.CheckpointSettingsPatch) (core.CheckpointSettings, error)
	}

	// Store is the full record store.
	Store interface {
		Reader
		ObligationWriter
		CreditAccountWriter
		IncomeRuleWriter
		PastDueWriter
		SettingsWriter
	}
)
