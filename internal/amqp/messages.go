package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"cashflow/internal/projection"
)

// CheckpointAlertMessage announces a checkpoint whose funding gap reached the
// alert threshold. Amounts are integer cents.
type CheckpointAlertMessage struct {
	ID                    string    `json:"id"`
	Checkpoint            string    `json:"checkpoint"`
	Deadline              string    `json:"deadline"`
	DaysAway              int       `json:"days_away"`
	PeriodEnd             string    `json:"period_end"`
	TotalObligationsCents int64     `json:"total_obligations_cents"`
	TotalIncomeCents      int64     `json:"total_income_cents"`
	FundingGapCents       int64     `json:"funding_gap_cents"`
	Status                string    `json:"status"`
	Timestamp             time.Time `json:"timestamp"`
}

// NewCheckpointAlertMessage builds an alert for one projected checkpoint.
func NewCheckpointAlertMessage(r projection.Result) *CheckpointAlertMessage {
	return &CheckpointAlertMessage{
		ID:                    uuid.NewString(),
		Checkpoint:            r.Date.String(),
		Deadline:              r.Deadline.String(),
		DaysAway:              r.DaysAway,
		PeriodEnd:             r.PeriodEnd.String(),
		TotalObligationsCents: r.TotalObligations.Cents,
		TotalIncomeCents:      r.TotalIncome.Cents,
		FundingGapCents:       r.FundingGap.Cents,
		Status:                string(r.Status),
		Timestamp:             time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *CheckpointAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func CheckpointAlertMessageFromJSON(data []byte) (*CheckpointAlertMessage, error) {
	var msg CheckpointAlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
