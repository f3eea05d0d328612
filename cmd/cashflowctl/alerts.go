package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"cashflow/internal/amqp"
	"cashflow/internal/cli"
	"cashflow/internal/config"
	"cashflow/internal/core"
	"cashflow/internal/log"
)

func alertsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Follow checkpoint alerts published by the projection worker",
		Long: `Alerts consumes the checkpoint alert queue (AMQP_URL, AMQP_EXCHANGE,
AMQP_QUEUE) and prints every alert until interrupted. Printed alerts are
acknowledged and leave the queue.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cli.LoadEnvFile()
			logger := cli.SetupLogger(log.ComponentCLI)

			cfg := config.Load()
			if !cfg.AMQPEnabled() {
				return errors.New("AMQP_URL is not set")
			}
			client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
			if err != nil {
				return fmt.Errorf("failed to connect to AMQP: %w", err)
			}
			defer client.Close()

			out := cmd.OutOrStdout()
			err = client.ConsumeCheckpointAlerts(ctx, func(msg *amqp.CheckpointAlertMessage) error {
				if asJSON {
					return json.NewEncoder(out).Encode(msg)
				}
				return writeAlert(out, msg)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print each alert as a JSON line")
	return cmd
}

func writeAlert(out io.Writer, msg *amqp.CheckpointAlertMessage) error {
	_, err := fmt.Fprintf(out, "%s  checkpoint %s (%d days away, through %s)  gap %s  obligations %s  income %s\n",
		msg.Status, msg.Checkpoint, msg.DaysAway, msg.PeriodEnd,
		core.Money{Cents: msg.FundingGapCents},
		core.Money{Cents: msg.TotalObligationsCents},
		core.Money{Cents: msg.TotalIncomeCents})
	return err
}
