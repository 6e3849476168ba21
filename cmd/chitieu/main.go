package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"chitieu/internal/aggregate"
	"chitieu/internal/amqp"
	"chitieu/internal/backend"
	"chitieu/internal/cache"
	"chitieu/internal/cli"
	"chitieu/internal/core"
	"chitieu/internal/feed"
	apphttp "chitieu/internal/http"
	applog "chitieu/internal/log"
	"chitieu/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)
	loc, _ := cfg.Location()

	logger.Info("Starting chitieu server", append(cli.Describe(cfg), "port", cfg.Port)...)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	storeRes, err := backend.NewFactory(logger).CreateStore(context.Background(), backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize store", err, "backend", cfg.DataBackend)
	}
	defer func() {
		if err := storeRes.Cleanup(); err != nil {
			logger.Error("Failed to close store", "error", err)
		}
	}()
	store := storeRes.Store

	reportCache := cache.NewLRUCache[core.MonthReport](cfg.ReportCacheSize, cfg.ReportCacheTTL)
	janitor := cache.NewJanitor()
	janitor.Register(reportCache)
	janitor.Start(context.Background(), time.Minute)

	reports := services.NewReportService(store, aggregate.Pipeline{
		Location: loc,
		Options: aggregate.Options{
			TopN:       cfg.TopN,
			OtherLabel: cfg.OtherLabel,
		},
	}, reportCache)
	hub := feed.NewHub(reports.Month)

	deps := services.Deps{
		Store:        store,
		Reports:      reports,
		Notifier:     hub,
		QueueExports: cfg.SheetsEnabled(),
		Location:     loc,
	}

	// AMQP is optional; writes still succeed without it
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, change messages disabled", "error", err)
		} else {
			deps.Publisher = amqpClient
			logger.Info("AMQP publisher connected", "exchange", cfg.AMQPExchange)
		}
	}

	srv, err := apphttp.NewServer(apphttp.Dependencies{
		Reports:      reports,
		Transactions: services.NewTransactionService(deps),
		Budgets:      services.NewBudgetService(deps),
		Categories:   services.NewCategoryService(deps),
		Hub:          hub,
		Store:        store,
	}, apphttp.Options{
		Addr:               ":" + cfg.Port,
		Logger:             logger,
		Location:           loc,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
	if err != nil {
		cli.Fatal(logger, "Failed to configure HTTP server", err)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		janitor.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("Failed to close AMQP client", "error", err)
			}
		}
	})

	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cli.Fatal(logger, "Server error", err, "port", cfg.Port)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
