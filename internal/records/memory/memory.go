package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"cashflow/internal/core"
	"cashflow/internal/projection"
	"cashflow/internal/records"
)

// Store is an in-process record store. Reads return copies so callers can never
// mutate stored records.
type Store struct {
	mu       sync.Mutex
	nextID   int64
	bills    []core.Obligation
	accounts []core.CreditAccount
	income   []core.RecurringIncomeRule
	pastDue  []core.PastDueInstance
	settings core.CheckpointSettings
}

var _ records.Store = (*Store)(nil)

func New() *Store {
	return &Store{settings: core.DefaultCheckpointSettings()}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) ListObligations(_ context.Context) ([]core.Obligation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.obligationsLocked(), nil
}

func (s *Store) ListCreditAccounts(_ context.Context) ([]core.CreditAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accountsLocked(), nil
}

func (s *Store) ListRecurringIncomeRules(_ context.Context) ([]core.RecurringIncomeRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeIncomeLocked(), nil
}

func (s *Store) ListPastDueInstances(_ context.Context) ([]core.PastDueInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pastDueLocked(), nil
}

func (s *Store) GetCheckpointSettings(_ context.Context) (core.CheckpointSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings, nil
}

// Snapshot copies everything a projection reads under a single lock.
func (s *Store) Snapshot(_ context.Context) (records.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return records.Snapshot{
		Settings:       s.settings,
		Obligations:    s.obligationsLocked(),
		CreditAccounts: s.accountsLocked(),
		IncomeRules:    s.activeIncomeLocked(),
		PastDue:        s.pastDueLocked(),
	}, nil
}

func (s *Store) obligationsLocked() []core.Obligation {
	return append([]core.Obligation(nil), s.bills...)
}

func (s *Store) accountsLocked() []core.CreditAccount {
	out := make([]core.CreditAccount, len(s.accounts))
	for i, a := range s.accounts {
		a.Overrides = append([]core.PaymentOverride(nil), a.Overrides...)
		out[i] = a
	}
	return out
}

func (s *Store) activeIncomeLocked() []core.RecurringIncomeRule {
	var out []core.RecurringIncomeRule
	for _, r := range s.income {
		if r.Active {
			out = append(out, r)
		}
	}
	return out
}

func (s *Store) pastDueLocked() []core.PastDueInstance {
	out := make([]core.PastDueInstance, len(s.pastDue))
	for i, p := range s.pastDue {
		if name := s.ownerName(p.OwnerKind, p.OwnerID); name != "" {
			p.ItemName = name
		}
		out[i] = p
	}
	return out
}

func (s *Store) CreateObligation(_ context.Context, o core.Obligation) (core.Obligation, error) {
	if o.Status == "" {
		o.Status = core.StatusPending
	}
	if err := o.Validate(); err != nil {
		return core.Obligation{}, records.Invalid(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o.ID = s.id()
	s.bills = append(s.bills, o)
	return o, nil
}

func (s *Store) UpdateObligation(_ context.Context, id int64, patch core.ObligationPatch) (core.Obligation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.billIndex(id)
	if i < 0 {
		return core.Obligation{}, fmt.Errorf("obligation %d: %w", id, records.ErrNotFound)
	}
	updated := patch.Apply(s.bills[i])
	if err := updated.Validate(); err != nil {
		return core.Obligation{}, records.Invalid(err)
	}
	s.bills[i] = updated
	return updated, nil
}

func (s *Store) DeleteObligation(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.billIndex(id)
	if i < 0 {
		return fmt.Errorf("obligation %d: %w", id, records.ErrNotFound)
	}
	s.bills = append(s.bills[:i], s.bills[i+1:]...)
	return nil
}

func (s *Store) MarkPeriodPaid(_ context.Context, start, end, paidOn core.Date) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	due, err := projection.Resolve(start, end, s.bills, nil)
	if err != nil {
		return 0, records.Invalid(err)
	}
	count := 0
	for _, r := range due {
		if i := s.billIndex(r.SourceID); i >= 0 {
			s.bills[i].Status = core.StatusPaid
			s.bills[i].LastPaidDate = paidOn
			count++
		}
	}
	return count, nil
}

func (s *Store) CreateCreditAccount(_ context.Context, a core.CreditAccount) (core.CreditAccount, error) {
	if err := a.Validate(); err != nil {
		return core.CreditAccount{}, records.Invalid(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.id()
	for i := range a.Overrides {
		a.Overrides[i].CreditAccountID = a.ID
	}
	s.accounts = append(s.accounts, a)
	return a, nil
}

func (s *Store) UpdateCreditAccount(_ context.Context, id int64, patch core.CreditAccountPatch) (core.CreditAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.accountIndex(id)
	if i < 0 {
		return core.CreditAccount{}, fmt.Errorf("credit account %d: %w", id, records.ErrNotFound)
	}
	updated := patch.Apply(s.accounts[i])
	if err := updated.Validate(); err != nil {
		return core.CreditAccount{}, records.Invalid(err)
	}
	s.accounts[i] = updated
	return updated, nil
}

// SetPaymentOverride inserts or replaces the override for the account and month.
func (s *Store) SetPaymentOverride(_ context.Context, o core.PaymentOverride) error {
	if err := o.Validate(); err != nil {
		return records.Invalid(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.accountIndex(o.CreditAccountID)
	if i < 0 {
		return fmt.Errorf("credit account %d: %w", o.CreditAccountID, records.ErrNotFound)
	}
	acct := &s.accounts[i]
	for j, existing := range acct.Overrides {
		if existing.Year == o.Year && existing.Month == o.Month {
			acct.Overrides[j] = o
			return nil
		}
	}
	acct.Overrides = append(acct.Overrides, o)
	sort.Slice(acct.Overrides, func(a, b int) bool {
		x, y := acct.Overrides[a], acct.Overrides[b]
		if x.Year != y.Year {
			return x.Year < y.Year
		}
		return x.Month < y.Month
	})
	return nil
}

func (s *Store) CreateRecurringIncomeRule(_ context.Context, r core.RecurringIncomeRule) (core.RecurringIncomeRule, error) {
	if err := r.Validate(); err != nil {
		return core.RecurringIncomeRule{}, records.Invalid(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.id()
	s.income = append(s.income, r)
	return r, nil
}

func (s *Store) UpdateRecurringIncomeRule(_ context.Context, id int64, patch core.RecurringIncomePatch) (core.RecurringIncomeRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.incomeIndex(id)
	if i < 0 {
		return core.RecurringIncomeRule{}, fmt.Errorf("income rule %d: %w", id, records.ErrNotFound)
	}
	updated := patch.Apply(s.income[i])
	if err := updated.Validate(); err != nil {
		return core.RecurringIncomeRule{}, records.Invalid(err)
	}
	s.income[i] = updated
	return updated, nil
}

func (s *Store) DeactivateRecurringIncomeRule(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.incomeIndex(id)
	if i < 0 {
		return fmt.Errorf("income rule %d: %w", id, records.ErrNotFound)
	}
	s.income[i].Active = false
	return nil
}

func (s *Store) AddPastDueInstance(_ context.Context, p core.PastDueInstance) (core.PastDueInstance, error) {
	if err := p.Validate(); err != nil {
		return core.PastDueInstance{}, records.Invalid(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	name := s.ownerName(p.OwnerKind, p.OwnerID)
	if name == "" {
		return core.PastDueInstance{}, fmt.Errorf("%s %d: %w", p.OwnerKind, p.OwnerID, records.ErrNotFound)
	}
	p.ID = s.id()
	p.ItemName = name
	s.pastDue = append(s.pastDue, p)
	return p, nil
}

func (s *Store) DeletePastDueInstance(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.pastDue {
		if p.ID == id {
			s.pastDue = append(s.pastDue[:i], s.pastDue[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("past due instance %d: %w", id, records.ErrNotFound)
}

func (s *Store) UpdateCheckpointSettings(_ context.Context, patch core.CheckpointSettingsPatch) (core.CheckpointSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	updated := patch.Apply(s.settings)
	mode, err := core.ParseCheckpointMode(string(updated.Mode))
	if err != nil {
		return core.CheckpointSettings{}, records.Invalid(err)
	}
	updated.Mode = mode
	if _, err := projection.NewScheduler(updated); err != nil {
		return core.CheckpointSettings{}, records.Invalid(err)
	}
	s.settings = updated
	return updated, nil
}

func (s *Store) ownerName(kind core.OwnerKind, id int64) string {
	switch kind {
	case core.OwnerBill:
		if i := s.billIndex(id); i >= 0 {
			return s.bills[i].Name
		}
	case core.OwnerCredit:
		if i := s.accountIndex(id); i >= 0 {
			return s.accounts[i].Name
		}
	}
	return ""
}

func (s *Store) billIndex(id int64) int {
	for i, o := range s.bills {
		if o.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) accountIndex(id int64) int {
	for i, a := range s.accounts {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) incomeIndex(id int64) int {
	for i, r := range s.income {
		if r.ID == id {
			return i
		}
	}
	return -1
}
