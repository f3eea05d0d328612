package core

import (
	"fmt"
	"strings"
)

const (
	ModeFixedDays      CheckpointMode = "fixed-days"
	ModeBiweeklyAnchor CheckpointMode = "biweekly-anchor"
	ModeCustomDays     CheckpointMode = "custom-days"
)

// DefaultCheckpointCount is used when settings leave the count unset.
const DefaultCheckpointCount = 3

type CheckpointMode string

// CheckpointSettings selects how checkpoint dates are generated.
// CustomDays keeps the raw stored form; it is parsed when a scheduler is built.
type CheckpointSettings struct {
	Mode        CheckpointMode `json:"mode"`
	Count       int            `json:"count"`
	CustomDays  string         `json:"custom_days,omitempty"`
	AnchorDate  Date           `json:"anchor_date"`
	AnchorBound Date           `json:"anchor_bound"`
}

// modeAliases maps the names used by older settings records to the current modes.
var modeAliases = map[string]CheckpointMode{
	"1-10-20":     ModeFixedDays,
	"nys-payroll": ModeBiweeklyAnchor,
	"custom":      ModeCustomDays,
}

// ParseCheckpointMode normalizes a stored mode name.
func ParseCheckpointMode(s string) (CheckpointMode, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch CheckpointMode(s) {
	case ModeFixedDays, ModeBiweeklyAnchor, ModeCustomDays:
		return CheckpointMode(s), nil
	}
	if m, ok := modeAliases[s]; ok {
		return m, nil
	}
	return "", fmt.Errorf("unknown checkpoint mode %q", s)
}

// DefaultCheckpointSettings returns the 1/10/20 schedule with three checkpoints.
func DefaultCheckpointSettings() CheckpointSettings {
	return CheckpointSettings{Mode: ModeFixedDays, Count: DefaultCheckpointCount}
}
