// Package projection implements the checkpoint cash-flow projection engine.
//
// The engine is a pure function of its inputs and the date passed in as "today":
// the Scheduler produces checkpoint dates, Expand turns recurring income rules into
// dated occurrences, Resolve finds the obligations due in a period, and Project ties
// them together into one Result per checkpoint. Nothing here reads a store or keeps
// state between calls.
package projection

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"cashflow/internal/core"
)

// DefaultFixedDays are the checkpoint days used by the fixed-days mode.
var DefaultFixedDays = []int{1, 10, 20}

const (
	anchorStepDays = 14
	// anchorOvergenerate multiplies count in biweekly-anchor mode so a distant anchor
	// still yields enough future dates.
	anchorOvergenerate = 3
	// maxMonthsScanned bounds the month walk for day-of-month modes.
	maxMonthsScanned = 120
	// MaxCheckpointCount is the largest count a settings value may ask for.
	MaxCheckpointCount = 60
)

var (
	ErrInvalidCustomDays = errors.New("invalid custom checkpoint days")
	ErrInvalidCount      = errors.New("invalid checkpoint count")
	ErrMissingAnchor     = errors.New("biweekly-anchor mode needs an anchor date")
)

// Scheduler generates checkpoint dates for one settings value.
type Scheduler struct {
	mode   core.CheckpointMode
	count  int
	days   []int
	anchor core.Date
	bound  core.Date
}

// NewScheduler validates settings and prepares a scheduler. Malformed settings fail
// here rather than producing an empty or partial checkpoint list.
func NewScheduler(settings core.CheckpointSettings) (*Scheduler, error) {
	mode, err := core.ParseCheckpointMode(string(settings.Mode))
	if err != nil {
		return nil, err
	}
	count := settings.Count
	if count == 0 {
		count = core.DefaultCheckpointCount
	}
	if count < 0 || count > MaxCheckpointCount {
		return nil, fmt.Errorf("%w: %d (must be between 1 and %d)", ErrInvalidCount, settings.Count, MaxCheckpointCount)
	}

	s := &Scheduler{mode: mode, count: count}
	switch mode {
	case core.ModeFixedDays:
		s.days = append([]int(nil), DefaultFixedDays...)
	case core.ModeCustomDays:
		days, err := ParseCustomDays(settings.CustomDays)
		if err != nil {
			return nil, err
		}
		s.days = days
	case core.ModeBiweeklyAnchor:
		if settings.AnchorDate.IsZero() {
			return nil, ErrMissingAnchor
		}
		s.anchor = settings.AnchorDate
		s.bound = settings.AnchorBound
		if s.bound.IsZero() {
			s.bound = core.NewDate(s.anchor.Year(), 1, 1)
		}
	}
	return s, nil
}

// Count returns the number of checkpoints Generate returns.
func (s *Scheduler) Count() int {
	return s.count
}

// Generate returns exactly Count ascending checkpoint dates on or after today.
func (s *Scheduler) Generate(today core.Date) ([]core.Date, error) {
	var out []core.Date
	switch s.mode {
	case core.ModeBiweeklyAnchor:
		out = s.anchorDates(today)
	default:
		out = s.monthDayDates(today)
	}
	if len(out) < s.count {
		return nil, fmt.Errorf("generated %d of %d checkpoints in %s mode", len(out), s.count, s.mode)
	}
	return out[:s.count], nil
}

// monthDayDates walks calendar months from today's month, emitting each configured
// day that exists in the month. Days the month does not have are skipped, not capped.
func (s *Scheduler) monthDayDates(today core.Date) []core.Date {
	var out []core.Date
	year, month := today.Year(), time.Month(today.Month())
	for i := 0; i < maxMonthsScanned && len(out) < s.count; i++ {
		last := core.DaysInMonth(year, month)
		for _, day := range s.days {
			if day > last {
				continue
			}
			d := core.NewDate(year, int(month), day)
			if !d.Before(today) {
				out = append(out, d)
			}
		}
		month++
		if month > time.December {
			month = time.January
			year++
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// anchorDates walks back from the anchor in 14-day steps to the bound, then forward,
// keeping every date on or after today.
func (s *Scheduler) anchorDates(today core.Date) []core.Date {
	bound := s.bound
	if today.Before(bound) {
		bound = today
	}
	current := s.anchor
	for current.After(bound) {
		current = current.AddDays(-anchorStepDays)
	}
	want := s.count * anchorOvergenerate
	out := make([]core.Date, 0, want)
	for len(out) < want {
		if !current.Before(today) {
			out = append(out, current)
		}
		current = current.AddDays(anchorStepDays)
	}
	return out
}

// ParseCustomDays parses a stored day list, either a JSON array ("[5, 20]") or a
// comma separated list ("5,20"). Each day must be an integer between 1 and 31.
// Duplicates are dropped and the result is sorted.
func ParseCustomDays(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty list", ErrInvalidCustomDays)
	}

	var fields []string
	if strings.HasPrefix(raw, "[") {
		var values []json.Number
		dec := json.NewDecoder(strings.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&values); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidCustomDays, raw, err)
		}
		for _, v := range values {
			fields = append(fields, v.String())
		}
	} else {
		fields = strings.Split(raw, ",")
	}

	seen := make(map[int]struct{}, len(fields))
	days := make([]int, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		day, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a whole day", ErrInvalidCustomDays, f)
		}
		if day < 1 || day > 31 {
			return nil, fmt.Errorf("%w: day %d out of range 1-31", ErrInvalidCustomDays, day)
		}
		if _, dup := seen[day]; dup {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("%w: empty list", ErrInvalidCustomDays)
	}
	sort.Ints(days)
	return days, nil
}
