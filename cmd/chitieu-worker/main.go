package main

import (
	"context"
	"errors"
	"time"

	"chitieu/internal/aggregate"
	"chitieu/internal/amqp"
	"chitieu/internal/backend"
	"chitieu/internal/cli"
	applog "chitieu/internal/log"
	"chitieu/internal/services"
	"chitieu/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)
	loc, _ := cfg.Location()

	logger.Info("Starting chitieu-worker", cli.Describe(cfg)...)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	if backendCfg.Type == backend.MemoryBackend {
		logger.Warn("Memory backend is private to this process, the worker will only export its own queue")
	}

	factory := backend.NewFactory(logger)
	storeRes, err := factory.CreateStore(context.Background(), backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize store", err, "backend", cfg.DataBackend)
	}
	defer func() {
		if err := storeRes.Cleanup(); err != nil {
			logger.Error("Failed to close store", "error", err)
		}
	}()
	store := storeRes.Store

	wb, err := factory.CreateWorkbook(context.Background(), backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize workbook", err)
	}
	if !wb.Remote {
		logger.Warn("Google Sheets disabled, month exports are kept in memory only")
	}

	// no report cache: writes happen in the server process
	reports := services.NewReportService(store, aggregate.Pipeline{
		Location: loc,
		Options: aggregate.Options{
			TopN:       cfg.TopN,
			OtherLabel: cfg.OtherLabel,
		},
	}, nil)

	processor := services.NewExportProcessor(store, reports, wb.Workbook, services.ExportProcessorConfig{
		PollInterval: cfg.ExportInterval,
		BatchSize:    cfg.ExportBatchSize,
		MaxAttempts:  cfg.ExportMaxAttempts,
		CleanupAge:   cfg.ExportRetention,
		Logger:       logger.WithComponent(applog.ComponentExport),
	})
	exportWorker := worker.NewExportWorker(store, processor.Trigger, loc)

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			cli.Fatal(logger, "Failed to initialize AMQP client", err)
		}
	} else {
		logger.Info("AMQP disabled, relying on the export queue poll", "interval", cfg.ExportInterval)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		logger.Info("Shutting down worker...")
		if err := processor.Stop(ctx); err != nil {
			logger.Error("Failed to stop export processor", "error", err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("Failed to close AMQP client", "error", err)
			}
		}
	})

	if err := processor.Start(ctx); err != nil {
		cli.Fatal(logger, "Failed to start export processor", err)
	}
	if err := exportWorker.StartupExportCheck(ctx); err != nil {
		logger.Error("Failed startup export check", "error", err)
	}

	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeLedgerChanged(ctx, exportWorker.HandleLedgerChanged)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed, falling back to polling", "error", err)
			}
		}()
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
