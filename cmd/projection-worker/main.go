package main

import (
	"context"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"cashflow/internal/amqp"
	"cashflow/internal/backend"
	"cashflow/internal/cli"
	"cashflow/internal/log"
	"cashflow/internal/projection"
	"cashflow/internal/services"
	"cashflow/internal/sheets"
	gsheet "cashflow/internal/sheets/google"
	"cashflow/internal/worker"
)

const runTimeout = 2 * time.Minute

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)
	ctx := context.Background()

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendConfig)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	var projOpts []projection.Option
	if cfg.PastDueFirstPeriodOnly {
		projOpts = append(projOpts, projection.WithPastDueFirstPeriodOnly())
	}
	projections := services.NewProjectionService(result.Store,
		services.WithLogger(logger),
		services.WithProjectionOptions(projOpts...))

	// Alerts are optional; the export still runs without a broker.
	var publisher worker.AlertPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		amqpClient, err = amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without alerts", log.FieldError, err)
		} else {
			publisher = amqpClient
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - checkpoint alerts will not be published")
	}

	var exporter sheets.ProjectionExporter
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			SheetName:          cfg.GoogleProjectionSheet,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		}, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets exporter", log.FieldError, err)
			os.Exit(1)
		}
		exporter = client
	} else {
		logger.Info("Google Sheets disabled - projection export skipped")
	}

	threshold, _ := projection.ParseStatus(cfg.AlertMinStatus)
	alerts := worker.NewAlertWorker(projections, publisher, exporter, threshold, logger)

	// Run logs its own failures; the next scheduled run retries.
	run := func() {
		runCtx, cancel := context.WithTimeout(ctx, runTimeout)
		defer cancel()
		_, _ = alerts.Run(runCtx)
	}

	logger.Info("Running initial projection", "schedule", cfg.ProjectionSchedule)
	run()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.ProjectionSchedule, run); err != nil {
		logger.Error("Invalid projection schedule", log.FieldError, err, "schedule", cfg.ProjectionSchedule)
		os.Exit(1)
	}
	scheduler.Start()

	shutdownCtx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		select {
		case <-scheduler.Stop().Done():
		case <-ctx.Done():
			logger.Warn("Projection run still in progress at shutdown")
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("AMQP close error", log.FieldError, err)
			}
		}
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	cli.WaitForShutdown(shutdownCtx, done)
	publishFailures, exportFailures := alerts.Failures()
	logger.Info("Projection worker stopped",
		"runs", alerts.Runs(),
		"publish_failures", publishFailures,
		"export_failures", exportFailures)
}
