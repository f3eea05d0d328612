// This file implements the Strategy Pattern for recurring income expansion.
// Each income frequency has its own matcher that decides whether a rule pays out
// on a given day.

package projection

import (
	"fmt"

	"cashflow/internal/core"
)

// Occurrence is one expected payment produced by a recurring income rule.
type Occurrence struct {
	Date   core.Date  `json:"date"`
	Amount core.Money `json:"amount"`
	Source string     `json:"source"`
	RuleID int64      `json:"rule_id,omitempty"`
}

// OccurrenceMatcher is the strategy interface for recurring income.
type OccurrenceMatcher interface {
	// Matches returns true if the rule pays out on day. Callers guarantee day is
	// not before the rule's start date.
	Matches(rule core.RecurringIncomeRule, day core.Date) bool
}

// WeeklyMatcher pays on the start date's weekday.
type WeeklyMatcher struct{}

func (WeeklyMatcher) Matches(rule core.RecurringIncomeRule, day core.Date) bool {
	return day.Weekday() == rule.StartDate.Weekday()
}

// BiWeeklyMatcher pays every 14 days counted from the start date.
type BiWeeklyMatcher struct{}

func (BiWeeklyMatcher) Matches(rule core.RecurringIncomeRule, day core.Date) bool {
	return rule.StartDate.DaysUntil(day)%14 == 0
}

// MonthlyMatcher pays on the configured day of month. Months without that day
// produce no occurrence.
type MonthlyMatcher struct{}

func (MonthlyMatcher) Matches(rule core.RecurringIncomeRule, day core.Date) bool {
	return day.Day() == rule.DayOfMonth
}

var occurrenceMatchers = map[core.IncomeFrequency]OccurrenceMatcher{
	core.IncomeWeekly:   WeeklyMatcher{},
	core.IncomeBiWeekly: BiWeeklyMatcher{},
	core.IncomeMonthly:  MonthlyMatcher{},
}

// GetOccurrenceMatcher returns the matcher for an income frequency.
func GetOccurrenceMatcher(frequency core.IncomeFrequency) (OccurrenceMatcher, error) {
	m, ok := occurrenceMatchers[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown income frequency: %q", frequency)
	}
	return m, nil
}

// Expand lists the occurrences of rule inside [windowStart, windowEnd], both inclusive,
// clipped to the rule's own start and end dates.
func Expand(rule core.RecurringIncomeRule, windowStart, windowEnd core.Date) ([]Occurrence, error) {
	matcher, err := GetOccurrenceMatcher(rule.Frequency)
	if err != nil {
		return nil, fmt.Errorf("income rule %q: %w", rule.Source, err)
	}
	if rule.StartDate.IsZero() {
		return nil, fmt.Errorf("income rule %q: missing start date", rule.Source)
	}
	if rule.Frequency == core.IncomeMonthly && rule.DayOfMonth == 0 {
		return nil, fmt.Errorf("income rule %q: monthly income needs a day of month", rule.Source)
	}

	start := windowStart
	if start.Before(rule.StartDate) {
		start = rule.StartDate
	}
	end := windowEnd
	if !rule.EndDate.IsZero() && rule.EndDate.Before(end) {
		end = rule.EndDate
	}

	var out []Occurrence
	for day := start; !day.After(end); day = day.AddDays(1) {
		if matcher.Matches(rule, day) {
			out = append(out, Occurrence{
				Date:   day,
				Amount: rule.Amount,
				Source: rule.Source,
				RuleID: rule.ID,
			})
		}
	}
	return out, nil
}

// ExpandAll concatenates the expansion of every rule, in rule order.
func ExpandAll(rules []core.RecurringIncomeRule, windowStart, windowEnd core.Date) ([]Occurrence, error) {
	var out []Occurrence
	for _, rule := range rules {
		occ, err := Expand(rule, windowStart, windowEnd)
		if err != nil {
			return nil, err
		}
		out = append(out, occ...)
	}
	return out, nil
}
