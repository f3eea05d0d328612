package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"cashflow/internal/projection"
)

func checkpointsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkpoints",
		Short: "List the upcoming checkpoint dates and their periods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, cleanup, err := openProjections(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			periods, err := svc.Periods(ctx)
			if err != nil {
				return fmt.Errorf("failed to compute checkpoints: %w", err)
			}
			return writePeriods(cmd.OutOrStdout(), periods)
		},
	}
}

func writePeriods(out io.Writer, periods []projection.Period) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tCHECKPOINT\tPERIOD END")
	for i, p := range periods {
		fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, p.Start, p.End)
	}
	return w.Flush()
}
