package memory

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"cashflow/internal/core"
)

// Seed file layout. Amounts and dates are strings ("1450.00", "2025-11-05") so the
// file stays readable and goes through the same parsing as API input.
type (
	seedFile struct {
		Settings       *seedSettings       `toml:"settings"`
		Obligations    []seedObligation    `toml:"obligation"`
		CreditAccounts []seedCreditAccount `toml:"credit_account"`
		Income         []seedIncome        `toml:"income"`
		PastDue        []seedPastDue       `toml:"past_due"`
	}

	seedSettings struct {
		Mode       string `toml:"mode"`
		Count      int    `toml:"count"`
		CustomDays string `toml:"custom_days"`
		AnchorDate string `toml:"anchor_date"`
	}

	seedObligation struct {
		Name      string `toml:"name"`
		Category  string `toml:"category"`
		Amount    string `toml:"amount"`
		Frequency string `toml:"frequency"`
		DueDay    int    `toml:"due_day"`
		DueDate   string `toml:"due_date"`
		Autopay   bool   `toml:"autopay"`
		Status    string `toml:"status"`
		Notes     string `toml:"notes"`
	}

	seedCreditAccount struct {
		Name           string         `toml:"name"`
		Type           string         `toml:"type"`
		Balance        string         `toml:"balance"`
		CreditLimit    string         `toml:"credit_limit"`
		MinimumPayment string         `toml:"minimum_payment"`
		APR            float64        `toml:"apr"`
		CycleCloseDay  int            `toml:"cycle_close_day"`
		PaymentDueDay  int            `toml:"payment_due_day"`
		Overrides      []seedOverride `toml:"override"`
	}

	seedOverride struct {
		Year   int    `toml:"year"`
		Month  int    `toml:"month"`
		Amount string `toml:"amount"`
	}

	seedIncome struct {
		Source     string `toml:"source"`
		Amount     string `toml:"amount"`
		Frequency  string `toml:"frequency"`
		StartDate  string `toml:"start_date"`
		EndDate    string `toml:"end_date"`
		DayOfMonth int    `toml:"day_of_month"`
		Inactive   bool   `toml:"inactive"`
		Notes      string `toml:"notes"`
	}

	// seedPastDue references its owner by name; the owner must appear earlier in the file.
	seedPastDue struct {
		Bill   string `toml:"bill"`
		Credit string `toml:"credit"`
		Period string `toml:"period"`
		Amount string `toml:"amount"`
	}
)

// NewFromFile builds a store seeded from a TOML file. A missing file yields an
// empty store with default settings.
func NewFromFile(path string) (*Store, error) {
	s := New()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	var seed seedFile
	if err := toml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}
	if err := s.load(seed); err != nil {
		return nil, fmt.Errorf("loading seed file %s: %w", path, err)
	}
	return s, nil
}

func (s *Store) load(seed seedFile) error {
	if seed.Settings != nil {
		settings := core.CheckpointSettings{
			Mode:       core.CheckpointMode(seed.Settings.Mode),
			Count:      seed.Settings.Count,
			CustomDays: seed.Settings.CustomDays,
		}
		anchor, err := optionalDate(seed.Settings.AnchorDate)
		if err != nil {
			return fmt.Errorf("settings: %w", err)
		}
		settings.AnchorDate = anchor
		if settings.Mode == "" {
			settings.Mode = core.ModeFixedDays
		}
		mode, err := core.ParseCheckpointMode(string(settings.Mode))
		if err != nil {
			return fmt.Errorf("settings: %w", err)
		}
		settings.Mode = mode
		s.settings = settings
	}

	bills := map[string]int64{}
	for _, so := range seed.Obligations {
		amount, err := core.ParseAmount(so.Amount)
		if err != nil {
			return fmt.Errorf("obligation %q: %w", so.Name, err)
		}
		due, err := optionalDate(so.DueDate)
		if err != nil {
			return fmt.Errorf("obligation %q: %w", so.Name, err)
		}
		freq := core.Frequency(so.Frequency)
		if freq == "" {
			freq = core.FrequencyMonthly
		}
		o := core.Obligation{
			ID:        s.id(),
			Name:      so.Name,
			Category:  so.Category,
			Amount:    amount,
			Frequency: freq,
			DueDay:    so.DueDay,
			DueDate:   due,
			Autopay:   so.Autopay,
			Status:    core.ObligationStatus(so.Status),
			Notes:     so.Notes,
		}
		if o.Status == "" {
			o.Status = core.StatusPending
		}
		if err := o.Validate(); err != nil {
			return fmt.Errorf("obligation %q: %w", so.Name, err)
		}
		s.bills = append(s.bills, o)
		bills[o.Name] = o.ID
	}

	accounts := map[string]int64{}
	for _, sa := range seed.CreditAccounts {
		a := core.CreditAccount{
			ID:            s.id(),
			Name:          sa.Name,
			Type:          core.AccountType(sa.Type),
			APR:           sa.APR,
			CycleCloseDay: sa.CycleCloseDay,
			PaymentDueDay: sa.PaymentDueDay,
		}
		if a.Type == "" {
			a.Type = core.AccountCreditCard
		}
		var err error
		for _, f := range []struct {
			raw string
			dst *core.Money
		}{
			{sa.Balance, &a.Balance},
			{sa.CreditLimit, &a.CreditLimit},
			{sa.MinimumPayment, &a.MinimumPayment},
		} {
			if f.raw == "" {
				continue
			}
			if *f.dst, err = core.ParseAmount(f.raw); err != nil {
				return fmt.Errorf("credit account %q: %w", sa.Name, err)
			}
		}
		for _, so := range sa.Overrides {
			amount, err := core.ParseAmount(so.Amount)
			if err != nil {
				return fmt.Errorf("credit account %q override: %w", sa.Name, err)
			}
			o := core.PaymentOverride{CreditAccountID: a.ID, Year: so.Year, Month: so.Month, Amount: amount}
			if err := o.Validate(); err != nil {
				return fmt.Errorf("credit account %q override: %w", sa.Name, err)
			}
			a.Overrides = append(a.Overrides, o)
		}
		if err := a.Validate(); err != nil {
			return fmt.Errorf("credit account %q: %w", sa.Name, err)
		}
		s.accounts = append(s.accounts, a)
		accounts[a.Name] = a.ID
	}

	for _, si := range seed.Income {
		amount, err := core.ParseAmount(si.Amount)
		if err != nil {
			return fmt.Errorf("income %q: %w", si.Source, err)
		}
		start, err := core.ParseDate(si.StartDate)
		if err != nil {
			return fmt.Errorf("income %q: %w", si.Source, err)
		}
		end, err := optionalDate(si.EndDate)
		if err != nil {
			return fmt.Errorf("income %q: %w", si.Source, err)
		}
		r := core.RecurringIncomeRule{
			ID:         s.id(),
			Source:     si.Source,
			Amount:     amount,
			Frequency:  core.IncomeFrequency(si.Frequency),
			StartDate:  start,
			EndDate:    end,
			DayOfMonth: si.DayOfMonth,
			Active:     !si.Inactive,
			Notes:      si.Notes,
		}
		if err := r.Validate(); err != nil {
			return fmt.Errorf("income %q: %w", si.Source, err)
		}
		s.income = append(s.income, r)
	}

	for _, sp := range seed.PastDue {
		amount, err := core.ParseAmount(sp.Amount)
		if err != nil {
			return fmt.Errorf("past due %q: %w", sp.Period, err)
		}
		p := core.PastDueInstance{Period: sp.Period, Amount: amount}
		switch {
		case sp.Bill != "":
			p.OwnerKind, p.OwnerID, p.ItemName = core.OwnerBill, bills[sp.Bill], sp.Bill
		case sp.Credit != "":
			p.OwnerKind, p.OwnerID, p.ItemName = core.OwnerCredit, accounts[sp.Credit], sp.Credit
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("past due %q: %w", sp.Period, err)
		}
		p.ID = s.id()
		s.pastDue = append(s.pastDue, p)
	}
	return nil
}

func optionalDate(s string) (core.Date, error) {
	if s == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(s)
}
