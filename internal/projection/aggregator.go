package projection

import (
	"errors"
	"fmt"
	"sort"

	"cashflow/internal/core"
)

// Status classifies a period's funding gap.
type Status string

const (
	StatusGood     Status = "good"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

const (
	// CriticalGapCents is the smallest gap classified as critical ($1000.00).
	CriticalGapCents = 100000
	// finalPeriodDays is the length of the synthetic period after the last checkpoint.
	finalPeriodDays = 10
)

// Classify maps a funding gap to a status.
func Classify(gap core.Money) Status {
	switch {
	case gap.Cents <= 0:
		return StatusGood
	case gap.Cents < CriticalGapCents:
		return StatusWarning
	default:
		return StatusCritical
	}
}

// Severity orders statuses so callers can compare them against a threshold.
func (s Status) Severity() int {
	switch s {
	case StatusWarning:
		return 1
	case StatusCritical:
		return 2
	}
	return 0
}

// ParseStatus accepts good, warning or critical.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusGood, StatusWarning, StatusCritical:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Period is an inclusive date range owned by one checkpoint.
type Period struct {
	Start core.Date `json:"start"`
	End   core.Date `json:"end"`
}

// Periods partitions checkpoints into consecutive periods. Each period ends the day
// before the next checkpoint; the last one spans ten days.
func Periods(checkpoints []core.Date) []Period {
	out := make([]Period, len(checkpoints))
	for i, c := range checkpoints {
		end := c.AddDays(finalPeriodDays - 1)
		if i+1 < len(checkpoints) {
			end = checkpoints[i+1].AddDays(-1)
		}
		out[i] = Period{Start: c, End: end}
	}
	return out
}

// Input is the snapshot one projection runs against.
type Input struct {
	Today          core.Date
	Checkpoints    []core.Date
	Obligations    []core.Obligation
	CreditAccounts []core.CreditAccount
	IncomeRules    []core.RecurringIncomeRule
	PastDue        []core.PastDueInstance
}

// Result is the projection of one checkpoint period.
type Result struct {
	Date             core.Date            `json:"date"`
	Deadline         core.Date            `json:"deadline"`
	DaysAway         int                  `json:"days_away"`
	PeriodEnd        core.Date            `json:"period_end"`
	Obligations      []ResolvedObligation `json:"obligations"`
	TotalObligations core.Money           `json:"total_obligations"`
	Income           []Occurrence         `json:"income"`
	TotalIncome      core.Money           `json:"total_income"`
	FundingGap       core.Money           `json:"funding_gap"`
	Status           Status               `json:"status"`
}

type options struct {
	pastDueFirstPeriodOnly bool
}

// Option tunes Project.
type Option func(*options)

// WithPastDueFirstPeriodOnly lists past-due instances only in the first period
// instead of repeating them in every period.
func WithPastDueFirstPeriodOnly() Option {
	return func(o *options) { o.pastDueFirstPeriodOnly = true }
}

// Project computes one Result per checkpoint, in checkpoint order.
func Project(in Input, opts ...Option) ([]Result, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if len(in.Checkpoints) == 0 {
		return nil, errors.New("no checkpoints to project")
	}
	for i := 1; i < len(in.Checkpoints); i++ {
		if !in.Checkpoints[i-1].Before(in.Checkpoints[i]) {
			return nil, fmt.Errorf("checkpoints out of order at %s", in.Checkpoints[i])
		}
	}

	periods := Periods(in.Checkpoints)
	horizonStart, horizonEnd := periods[0].Start, periods[len(periods)-1].End

	income, err := ExpandAll(in.IncomeRules, horizonStart, horizonEnd)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(periods))
	for i, p := range periods {
		obligations, err := Resolve(p.Start, p.End, in.Obligations, in.CreditAccounts)
		if err != nil {
			return nil, fmt.Errorf("resolve period %s..%s: %w", p.Start, p.End, err)
		}
		if i == 0 || !o.pastDueFirstPeriodOnly {
			obligations = append(obligations, pastDueObligations(in.PastDue, p.Start)...)
		}

		var totalObligations core.Money
		for _, ob := range obligations {
			totalObligations = totalObligations.Add(ob.Amount)
		}

		var periodIncome []Occurrence
		var totalIncome core.Money
		for _, occ := range income {
			if occ.Date.Between(p.Start, p.End) {
				periodIncome = append(periodIncome, occ)
				totalIncome = totalIncome.Add(occ.Amount)
			}
		}
		sort.SliceStable(periodIncome, func(a, b int) bool { return periodIncome[a].Date.Before(periodIncome[b].Date) })

		gap := totalObligations.Sub(totalIncome)
		if gap.Cents < 0 {
			gap = core.Money{}
		}

		results = append(results, Result{
			Date:             p.Start,
			Deadline:         p.Start.AddDays(-1),
			DaysAway:         in.Today.DaysUntil(p.Start),
			PeriodEnd:        p.End,
			Obligations:      obligations,
			TotalObligations: totalObligations,
			Income:           periodIncome,
			TotalIncome:      totalIncome,
			FundingGap:       gap,
			Status:           Classify(gap),
		})
	}
	return results, nil
}

// pastDueObligations dates every past-due instance at the period start.
func pastDueObligations(instances []core.PastDueInstance, start core.Date) []ResolvedObligation {
	out := make([]ResolvedObligation, 0, len(instances))
	for _, pd := range instances {
		out = append(out, ResolvedObligation{
			Name:     fmt.Sprintf("%s - %s (PAST DUE)", pd.ItemName, pd.Period),
			Category: CategoryPastDue,
			Amount:   pd.Amount,
			DueDate:  start,
			Kind:     KindPastDue,
			Status:   core.StatusOverdue,
			SourceID: pd.ID,
		})
	}
	return out
}
