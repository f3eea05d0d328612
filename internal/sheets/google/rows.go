package google

import (
	"cashflow/internal/core"
	"cashflow/internal/projection"
)

// Header is the column layout of the projection sheet.
var Header = []interface{}{"Checkpoint", "Days Away", "Period End", "Item", "Due Date", "Amount", "Income", "Funding Gap", "Status"}

// BuildRows lays out a projection as sheet rows: a title row, the header, then
// for each checkpoint a summary row followed by one row per obligation.
// Amounts are written as numbers in currency units.
func BuildRows(today core.Date, results []projection.Result) [][]interface{} {
	rows := [][]interface{}{
		{"Projection as of", today.String()},
		Header,
	}
	for _, r := range results {
		rows = append(rows, []interface{}{
			r.Date.String(),
			r.DaysAway,
			r.PeriodEnd.String(),
			"Total obligations",
			"",
			r.TotalObligations.Dollars(),
			r.TotalIncome.Dollars(),
			r.FundingGap.Dollars(),
			string(r.Status),
		})
		for _, o := range r.Obligations {
			rows = append(rows, []interface{}{
				"", "", "",
				o.Name,
				o.DueDate.String(),
				o.Amount.Dollars(),
				"", "", "",
			})
		}
	}
	return rows
}
