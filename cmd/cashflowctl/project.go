package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"cashflow/internal/core"
	"cashflow/internal/projection"
)

func projectCmd() *cobra.Command {
	var (
		asJSON bool
		today  string
	)
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Project obligations, income and the funding gap per checkpoint",
		Long: `Project resolves every bill, credit payment, past-due item and income
occurrence into its checkpoint period and reports the funding gap.

Use --today to project as of another date.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, cleanup, err := openProjections(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			day := svc.Today()
			if today != "" {
				if day, err = core.ParseDate(today); err != nil {
					return fmt.Errorf("invalid --today: %w", err)
				}
			}
			results, err := svc.ProjectAt(ctx, day)
			if err != nil {
				return fmt.Errorf("failed to project: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Today       core.Date           `json:"today"`
					Checkpoints []projection.Result `json:"checkpoints"`
				}{day, results})
			}
			return writeProjection(cmd.OutOrStdout(), day, results)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the projection as JSON")
	cmd.Flags().StringVar(&today, "today", "", "project as of this date (YYYY-MM-DD)")
	return cmd
}

func writeProjection(out io.Writer, today core.Date, results []projection.Result) error {
	fmt.Fprintf(out, "Projection as of %s\n\n", today)
	for _, r := range results {
		fmt.Fprintf(out, "Checkpoint %s (%d days away, through %s): %s\n",
			r.Date, r.DaysAway, r.PeriodEnd, r.Status)

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, o := range r.Obligations {
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", o.DueDate, o.Kind, o.Name, o.Amount)
		}
		fmt.Fprintf(w, "  \t\tObligations\t%s\n", r.TotalObligations)
		fmt.Fprintf(w, "  \t\tIncome\t%s\n", r.TotalIncome)
		fmt.Fprintf(w, "  \t\tFunding gap\t%s\n", r.FundingGap)
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}
	return nil
}
