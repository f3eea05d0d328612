package core

// Patches carry optional field updates. A nil field leaves the stored value untouched.
// They are applied by the record store; callers validate the patched entity afterwards.

type ObligationPatch struct {
	Name      *string           `json:"name,omitempty"`
	Category  *string           `json:"category,omitempty"`
	Amount    *Money            `json:"amount,omitempty"`
	Frequency *Frequency        `json:"frequency,omitempty"`
	DueDay    *int              `json:"due_day,omitempty"`
	DueDate   *Date             `json:"due_date,omitempty"`
	Autopay   *bool             `json:"autopay,omitempty"`
	Status    *ObligationStatus `json:"status,omitempty"`
	Notes     *string           `json:"notes,omitempty"`
}

func (p ObligationPatch) Apply(o Obligation) Obligation {
	if p.Name != nil {
		o.Name = *p.Name
	}
	if p.Category != nil {
		o.Category = *p.Category
	}
	if p.Amount != nil {
		o.Amount = *p.Amount
	}
	if p.Frequency != nil {
		o.Frequency = *p.Frequency
	}
	if p.DueDay != nil {
		o.DueDay = *p.DueDay
	}
	if p.DueDate != nil {
		o.DueDate = *p.DueDate
	}
	if p.Autopay != nil {
		o.Autopay = *p.Autopay
	}
	if p.Status != nil {
		o.Status = *p.Status
	}
	if p.Notes != nil {
		o.Notes = *p.Notes
	}
	return o
}

type CreditAccountPatch struct {
	Name           *string      `json:"name,omitempty"`
	Type           *AccountType `json:"account_type,omitempty"`
	Balance        *Money       `json:"current_balance,omitempty"`
	CreditLimit    *Money       `json:"credit_limit,omitempty"`
	MinimumPayment *Money       `json:"minimum_payment,omitempty"`
	APR            *float64     `json:"apr,omitempty"`
	CycleCloseDay  *int         `json:"cycle_close_day,omitempty"`
	PaymentDueDay  *int         `json:"payment_due_day,omitempty"`
}

func (p CreditAccountPatch) Apply(a CreditAccount) CreditAccount {
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Type != nil {
		a.Type = *p.Type
	}
	if p.Balance != nil {
		a.Balance = *p.Balance
	}
	if p.CreditLimit != nil {
		a.CreditLimit = *p.CreditLimit
	}
	if p.MinimumPayment != nil {
		a.MinimumPayment = *p.MinimumPayment
	}
	if p.APR != nil {
		a.APR = *p.APR
	}
	if p.CycleCloseDay != nil {
		a.CycleCloseDay = *p.CycleCloseDay
	}
	if p.PaymentDueDay != nil {
		a.PaymentDueDay = *p.PaymentDueDay
	}
	return a
}

type RecurringIncomePatch struct {
	Source     *string          `json:"source,omitempty"`
	Amount     *Money           `json:"amount,omitempty"`
	Frequency  *IncomeFrequency `json:"frequency,omitempty"`
	StartDate  *Date            `json:"start_date,omitempty"`
	EndDate    *Date            `json:"end_date,omitempty"`
	DayOfMonth *int             `json:"day_of_month,omitempty"`
	Active     *bool            `json:"active,omitempty"`
	Notes      *string          `json:"notes,omitempty"`
}

func (p RecurringIncomePatch) Apply(r RecurringIncomeRule) RecurringIncomeRule {
	if p.Source != nil {
		r.Source = *p.Source
	}
	if p.Amount != nil {
		r.Amount = *p.Amount
	}
	if p.Frequency != nil {
		r.Frequency = *p.Frequency
	}
	if p.StartDate != nil {
		r.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		r.EndDate = *p.EndDate
	}
	if p.DayOfMonth != nil {
		r.DayOfMonth = *p.DayOfMonth
	}
	if p.Active != nil {
		r.Active = *p.Active
	}
	if p.Notes != nil {
		r.Notes = *p.Notes
	}
	return r
}

type CheckpointSettingsPatch struct {
	Mode        *CheckpointMode `json:"mode,omitempty"`
	Count       *int            `json:"count,omitempty"`
	CustomDays  *string         `json:"custom_days,omitempty"`
	AnchorDate  *Date           `json:"anchor_date,omitempty"`
	AnchorBound *Date           `json:"anchor_bound,omitempty"`
}

func (p CheckpointSettingsPatch) Apply(s CheckpointSettings) CheckpointSettings {
	if p.Mode != nil {
		s.Mode = *p.Mode
	}
	if p.Count != nil {
		s.Count = *p.Count
	}
	if p.CustomDays != nil {
		s.CustomDays = *p.CustomDays
	}
	if p.AnchorDate != nil {
		s.AnchorDate = *p.AnchorDate
	}
	if p.AnchorBound != nil {
		s.AnchorBound = *p.AnchorBound
	}
	return s
}
