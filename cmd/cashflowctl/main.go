package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cashflow/internal/backend"
	"cashflow/internal/cli"
	"cashflow/internal/config"
	"cashflow/internal/log"
	"cashflow/internal/projection"
	"cashflow/internal/services"
)

var rootCmd = &cobra.Command{
	Use:   "cashflowctl",
	Short: "Inspect upcoming checkpoints and their funding gaps",
	Long: `cashflowctl reads the configured record store (DATA_BACKEND, SQLITE_DB_PATH,
SEED_FILE) and prints the checkpoint schedule or the full projection. It can
also follow the checkpoint alerts the projection worker publishes.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(checkpointsCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(alertsCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openProjections builds a projection service over the configured backend.
// The returned cleanup closes the backend.
func openProjections(ctx context.Context) (*services.ProjectionService, func(), error) {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentCLI)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize backend: %w", err)
	}

	var projOpts []projection.Option
	if cfg.PastDueFirstPeriodOnly {
		projOpts = append(projOpts, projection.WithPastDueFirstPeriodOnly())
	}
	svc := services.NewProjectionService(result.Store,
		services.WithLogger(logger),
		services.WithProjectionOptions(projOpts...))

	cleanup := func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("failed to close backend", log.FieldError, err)
		}
	}
	return svc, cleanup, nil
}
