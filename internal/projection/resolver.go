package projection

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"cashflow/internal/core"
)

const (
	CategoryDebt    = "Debt"
	CategoryPastDue = "Past Due"
)

// Kind tells where a resolved obligation came from.
type Kind string

const (
	KindBill          Kind = "bill"
	KindCreditPayment Kind = "credit_payment"
	KindPastDue       Kind = "past_due"
)

var ErrMissingDueRule = errors.New("obligation has no usable due rule")

// ResolvedObligation is an obligation with a concrete due date inside a period.
type ResolvedObligation struct {
	Name     string                `json:"name"`
	Category string                `json:"category"`
	Amount   core.Money            `json:"amount"`
	DueDate  core.Date             `json:"due_date"`
	Kind     Kind                  `json:"kind"`
	Autopay  bool                  `json:"autopay"`
	Status   core.ObligationStatus `json:"status,omitempty"`
	SourceID int64                 `json:"source_id,omitempty"`
}

// cappedDueDate builds the due date in end's month, capping day at the month's last day.
func cappedDueDate(end core.Date, day int) core.Date {
	month := time.Month(end.Month())
	if last := core.DaysInMonth(end.Year(), month); day > last {
		day = last
	}
	return core.NewDate(end.Year(), int(month), day)
}

// Resolve returns the obligations and credit minimum payments due in [start, end],
// ascending by due date. Monthly due days beyond the end month's length are capped
// to its last day.
func Resolve(start, end core.Date, obligations []core.Obligation, accounts []core.CreditAccount) ([]ResolvedObligation, error) {
	var out []ResolvedObligation

	for _, o := range obligations {
		if !o.Status.IsOpen() {
			continue
		}
		var due core.Date
		switch {
		case o.Frequency == core.FrequencyMonthly && o.DueDay > 0:
			due = cappedDueDate(end, o.DueDay)
		case !o.DueDate.IsZero():
			due = o.DueDate
		default:
			return nil, fmt.Errorf("%w: %q (%s)", ErrMissingDueRule, o.Name, o.Frequency)
		}
		if !due.Between(start, end) {
			continue
		}
		out = append(out, ResolvedObligation{
			Name:     o.Name,
			Category: o.Category,
			Amount:   o.Amount,
			DueDate:  due,
			Kind:     KindBill,
			Autopay:  o.Autopay,
			Status:   o.Status,
			SourceID: o.ID,
		})
	}

	for _, a := range accounts {
		if a.PaymentDueDay <= 0 || a.MinimumPayment.Cents <= 0 {
			continue
		}
		due := cappedDueDate(end, a.PaymentDueDay)
		if !due.Between(start, end) {
			continue
		}
		minimum := a.MinimumFor(due.Year(), time.Month(due.Month()))
		if minimum.IsZero() {
			continue
		}
		out = append(out, ResolvedObligation{
			Name:     a.Name + " - Min Payment",
			Category: CategoryDebt,
			Amount:   minimum,
			DueDate:  due,
			Kind:     KindCreditPayment,
			SourceID: a.ID,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}
