package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	FrequencyMonthly    Frequency = "monthly"
	FrequencyOneTime    Frequency = "one-time"
	FrequencyAnnual     Frequency = "annual"
	FrequencySemiAnnual Frequency = "semi-annual"
	FrequencyBiMonthly  Frequency = "bi-monthly"
	FrequencyTriennial  Frequency = "triennial"
)

const (
	StatusPending   ObligationStatus = "pending"
	StatusPaid      ObligationStatus = "paid"
	StatusOverdue   ObligationStatus = "overdue"
	StatusCancelled ObligationStatus = "cancelled"
)

const (
	IncomeWeekly   IncomeFrequency = "weekly"
	IncomeBiWeekly IncomeFrequency = "bi-weekly"
	IncomeMonthly  IncomeFrequency = "monthly"
)

const (
	AccountCreditCard AccountType = "credit_card"
	AccountLoan       AccountType = "loan"
)

const (
	OwnerBill   OwnerKind = "bill"
	OwnerCredit OwnerKind = "credit"
)

// DateLayout is the storage and wire format for dates.
const DateLayout = "2006-01-02"

type (
	Frequency        string
	ObligationStatus string
	IncomeFrequency  string
	AccountType      string
	OwnerKind        string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Obligation is a bill or recurring expense owned by the record store.
	// Monthly obligations use DueDay, every other frequency uses DueDate.
	Obligation struct {
		ID           int64            `json:"id"`
		Name         string           `json:"name"`
		Category     string           `json:"category"`
		Amount       Money            `json:"amount"`
		Frequency    Frequency        `json:"frequency"`
		DueDay       int              `json:"due_day,omitempty"`
		DueDate      Date             `json:"due_date"`
		Autopay      bool             `json:"autopay"`
		Status       ObligationStatus `json:"status"`
		Notes        string           `json:"notes,omitempty"`
		LastPaidDate Date             `json:"last_paid_date"`
	}

	CreditAccount struct {
		ID             int64             `json:"id"`
		Name           string            `json:"name"`
		Type           AccountType       `json:"account_type"`
		Balance        Money             `json:"current_balance"`
		CreditLimit    Money             `json:"credit_limit"`
		MinimumPayment Money             `json:"minimum_payment"`
		APR            float64           `json:"apr"`
		CycleCloseDay  int               `json:"cycle_close_day,omitempty"`
		PaymentDueDay  int               `json:"payment_due_day,omitempty"`
		Overrides      []PaymentOverride `json:"overrides,omitempty"`
	}

	// PaymentOverride replaces a credit account's minimum payment for one calendar month.
	PaymentOverride struct {
		CreditAccountID int64 `json:"credit_account_id"`
		Year            int   `json:"year"`
		Month           int   `json:"month"`
		Amount          Money `json:"amount"`
	}

	// PastDueInstance is a missed payment of a bill or credit account.
	PastDueInstance struct {
		ID          int64     `json:"id"`
		OwnerKind   OwnerKind `json:"item_type"`
		OwnerID     int64     `json:"owner_id"`
		ItemName    string    `json:"item_name"`
		Period      string    `json:"period"`
		Amount      Money     `json:"amount"`
		CreatedDate Date      `json:"created_date"`
	}

	RecurringIncomeRule struct {
		ID         int64           `json:"id"`
		Source     string          `json:"source"`
		Amount     Money           `json:"amount"`
		Frequency  IncomeFrequency `json:"frequency"`
		StartDate  Date            `json:"start_date"`
		EndDate    Date            `json:"end_date"`
		DayOfMonth int             `json:"day_of_month,omitempty"`
		Active     bool            `json:"active"`
		Notes      string          `json:"notes,omitempty"`
	}
)

var (
	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyCategory    = errors.New("empty category")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidStatus    = errors.New("invalid status")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a wall-clock time to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// IsEmpty returns true if the date is zero (for optional dates)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// AddDays returns the date n calendar days later (earlier when n is negative).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// DaysUntil returns the number of whole days from d to other.
func (d Date) DaysUntil(other Date) int {
	return int(other.Time.Sub(d.Time).Hours() / 24)
}

func (d Date) Before(other Date) bool { return d.Time.Before(other.Time) }
func (d Date) After(other Date) bool  { return d.Time.After(other.Time) }
func (d Date) Equal(other Date) bool  { return d.Time.Equal(other.Time) }

// Between reports whether d falls in [start, end], both inclusive.
func (d Date) Between(start, end Date) bool {
	return !d.Before(start) && !d.After(end)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaysInMonth returns the number of days of the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyMonthly, FrequencyOneTime, FrequencyAnnual, FrequencySemiAnnual, FrequencyBiMonthly, FrequencyTriennial:
		return true
	}
	return false
}

func (s ObligationStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

// IsOpen reports whether the obligation still needs funding.
func (s ObligationStatus) IsOpen() bool {
	return s == StatusPending || s == StatusOverdue
}

func (f IncomeFrequency) IsValid() bool {
	switch f {
	case IncomeWeekly, IncomeBiWeekly, IncomeMonthly:
		return true
	}
	return false
}

func (o Obligation) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return ErrEmptyName
	}
	if len(o.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if strings.TrimSpace(o.Category) == "" {
		return ErrEmptyCategory
	}
	if err := o.Amount.Validate(); err != nil {
		return err
	}
	if !o.Frequency.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidFrequency, o.Frequency)
	}
	if !o.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, o.Status)
	}
	if o.Frequency == FrequencyMonthly {
		if o.DueDay < 1 || o.DueDay > 31 {
			return fmt.Errorf("monthly obligation needs a due day between 1 and 31: %w", ErrInvalidDay)
		}
		return nil
	}
	if o.DueDate.IsZero() {
		return fmt.Errorf("%s obligation needs a due date", o.Frequency)
	}
	return nil
}

func (a CreditAccount) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	switch a.Type {
	case AccountCreditCard, AccountLoan:
	default:
		return fmt.Errorf("invalid account type %q", a.Type)
	}
	for _, m := range []Money{a.Balance, a.CreditLimit, a.MinimumPayment} {
		if err := m.Validate(); err != nil {
			return err
		}
	}
	if a.PaymentDueDay < 0 || a.PaymentDueDay > 31 {
		return fmt.Errorf("payment due day: %w", ErrInvalidDay)
	}
	if a.CycleCloseDay < 0 || a.CycleCloseDay > 31 {
		return fmt.Errorf("cycle close day: %w", ErrInvalidDay)
	}
	return nil
}

// MinimumFor returns the minimum payment due in the given month, honouring overrides.
func (a CreditAccount) MinimumFor(year int, month time.Month) Money {
	for _, o := range a.Overrides {
		if o.Year == year && o.Month == int(month) {
			return o.Amount
		}
	}
	return a.MinimumPayment
}

func (o PaymentOverride) Validate() error {
	if o.Month < 1 || o.Month > 12 {
		return ErrInvalidMonth
	}
	if o.Year < 1900 {
		return fmt.Errorf("invalid year %d", o.Year)
	}
	return o.Amount.Validate()
}

func (p PastDueInstance) Validate() error {
	switch p.OwnerKind {
	case OwnerBill, OwnerCredit:
	default:
		return fmt.Errorf("invalid past due owner kind %q", p.OwnerKind)
	}
	if p.OwnerID <= 0 {
		return errors.New("past due instance needs an owner")
	}
	if strings.TrimSpace(p.Period) == "" {
		return errors.New("empty period")
	}
	return p.Amount.Validate()
}

func (r RecurringIncomeRule) Validate() error {
	if strings.TrimSpace(r.Source) == "" {
		return errors.New("empty source")
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if err := r.StartDate.Validate(); err != nil {
		return errors.New("invalid start date: " + err.Error())
	}
	if !r.EndDate.IsZero() && r.EndDate.Before(r.StartDate) {
		return errors.New("end date must not be before start date")
	}
	if !r.Frequency.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidFrequency, r.Frequency)
	}
	if r.Frequency == IncomeMonthly && (r.DayOfMonth < 1 || r.DayOfMonth > 31) {
		return fmt.Errorf("monthly income needs a day of month between 1 and 31: %w", ErrInvalidDay)
	}
	return nil
}
