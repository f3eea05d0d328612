package projection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashflow/internal/core"
)

func dates(t *testing.T, values ...string) []core.Date {
	t.Helper()
	out := make([]core.Date, 0, len(values))
	for _, v := range values {
		d, err := core.ParseDate(v)
		require.NoError(t, err)
		out = append(out, d)
	}
	return out
}

func TestSchedulerGenerate(t *testing.T) {
	tests := []struct {
		name     string
		settings core.CheckpointSettings
		today    core.Date
		want     []string
	}{
		{
			name:     "fixed days mid month",
			settings: core.CheckpointSettings{Mode: core.ModeFixedDays, Count: 3},
			today:    core.NewDate(2025, 11, 15),
			want:     []string{"2025-11-20", "2025-12-01", "2025-12-10"},
		},
		{
			name:     "fixed days includes today",
			settings: core.CheckpointSettings{Mode: "1-10-20", Count: 2},
			today:    core.NewDate(2025, 11, 10),
			want:     []string{"2025-11-10", "2025-11-20"},
		},
		{
			name:     "fixed days across year end",
			settings: core.CheckpointSettings{Mode: core.ModeFixedDays, Count: 4},
			today:    core.NewDate(2025, 12, 21),
			want:     []string{"2026-01-01", "2026-01-10", "2026-01-20", "2026-02-01"},
		},
		{
			name:     "zero count uses default",
			settings: core.CheckpointSettings{Mode: core.ModeFixedDays},
			today:    core.NewDate(2025, 11, 15),
			want:     []string{"2025-11-20", "2025-12-01", "2025-12-10"},
		},
		{
			name:     "custom days json list",
			settings: core.CheckpointSettings{Mode: core.ModeCustomDays, Count: 3, CustomDays: "[20, 5]"},
			today:    core.NewDate(2025, 11, 15),
			want:     []string{"2025-11-20", "2025-12-05", "2025-12-20"},
		},
		{
			name:     "custom day 31 skipped in short months",
			settings: core.CheckpointSettings{Mode: "custom", Count: 2, CustomDays: "31"},
			today:    core.NewDate(2025, 11, 1),
			want:     []string{"2025-12-31", "2026-01-31"},
		},
		{
			name:     "custom day 30 skipped in february",
			settings: core.CheckpointSettings{Mode: core.ModeCustomDays, Count: 2, CustomDays: "15,30"},
			today:    core.NewDate(2026, 2, 16),
			want:     []string{"2026-03-15", "2026-03-30"},
		},
		{
			name: "biweekly anchor in the past",
			settings: core.CheckpointSettings{
				Mode:       core.ModeBiweeklyAnchor,
				Count:      3,
				AnchorDate: core.NewDate(2025, 11, 5),
			},
			today: core.NewDate(2025, 11, 15),
			want:  []string{"2025-11-19", "2025-12-03", "2025-12-17"},
		},
		{
			name: "biweekly anchor today",
			settings: core.CheckpointSettings{
				Mode:       "nys-payroll",
				Count:      2,
				AnchorDate: core.NewDate(2025, 11, 5),
			},
			today: core.NewDate(2025, 11, 19),
			want:  []string{"2025-11-19", "2025-12-03"},
		},
		{
			name: "biweekly anchor after today",
			settings: core.CheckpointSettings{
				Mode:       core.ModeBiweeklyAnchor,
				Count:      2,
				AnchorDate: core.NewDate(2026, 1, 14),
			},
			today: core.NewDate(2025, 12, 20),
			want:  []string{"2025-12-31", "2026-01-14"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewScheduler(tt.settings)
			require.NoError(t, err)

			got, err := s.Generate(tt.today)
			require.NoError(t, err)
			assert.Equal(t, dates(t, tt.want...), got)
			for i, d := range got {
				assert.False(t, d.Before(tt.today), "checkpoint %s before today", d)
				if i > 0 {
					assert.True(t, got[i-1].Before(d), "checkpoints not ascending")
				}
			}
		})
	}
}

func TestNewSchedulerRejectsMalformedSettings(t *testing.T) {
	tests := []struct {
		name     string
		settings core.CheckpointSettings
		wantErr  error
	}{
		{"unknown mode", core.CheckpointSettings{Mode: "weekly"}, nil},
		{"negative count", core.CheckpointSettings{Mode: core.ModeFixedDays, Count: -1}, ErrInvalidCount},
		{"count above limit", core.CheckpointSettings{Mode: core.ModeFixedDays, Count: MaxCheckpointCount + 1}, ErrInvalidCount},
		{"huge anchor count", core.CheckpointSettings{Mode: core.ModeBiweeklyAnchor, Count: math.MaxInt, AnchorDate: core.NewDate(2025, 11, 5)}, ErrInvalidCount},
		{"empty custom days", core.CheckpointSettings{Mode: core.ModeCustomDays}, ErrInvalidCustomDays},
		{"non numeric custom day", core.CheckpointSettings{Mode: core.ModeCustomDays, CustomDays: "5,x"}, ErrInvalidCustomDays},
		{"custom day out of range", core.CheckpointSettings{Mode: core.ModeCustomDays, CustomDays: "[0, 10]"}, ErrInvalidCustomDays},
		{"broken json", core.CheckpointSettings{Mode: core.ModeCustomDays, CustomDays: "[5, 10"}, ErrInvalidCustomDays},
		{"missing anchor", core.CheckpointSettings{Mode: core.ModeBiweeklyAnchor}, ErrMissingAnchor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewScheduler(tt.settings)
			require.Error(t, err)
			assert.Nil(t, s)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestParseCustomDays(t *testing.T) {
	tests := []struct {
		in   string
		want []int
	}{
		{"5,20", []int{5, 20}},
		{" 20 , 5 ", []int{5, 20}},
		{"[1, 15, 15, 31]", []int{1, 15, 31}},
		{"10", []int{10}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCustomDays(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "[]", "5,,20", "[5.5]", "32", "-1", `["a"]`} {
		_, err := ParseCustomDays(bad)
		assert.ErrorIs(t, err, ErrInvalidCustomDays, "input %q", bad)
	}
}

func TestSchedulerMaxCount(t *testing.T) {
	s, err := NewScheduler(core.CheckpointSettings{Mode: core.ModeBiweeklyAnchor, Count: MaxCheckpointCount, AnchorDate: core.NewDate(2025, 11, 5)})
	require.NoError(t, err)

	got, err := s.Generate(core.NewDate(2025, 11, 15))
	require.NoError(t, err)
	require.Len(t, got, MaxCheckpointCount)
	assert.Equal(t, core.NewDate(2025, 11, 19), got[0])
}
