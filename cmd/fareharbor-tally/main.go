package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fhtally/internal/amqp"
	"fhtally/internal/cache"
	"fhtally/internal/cli"
	"fhtally/internal/config"
	apphttp "fhtally/internal/http"
	"fhtally/internal/log"
	"fhtally/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	be := cli.InitBackend(startCtx, logger, cfg)
	cancelStart()

	deliveries := cli.InitDeliveryStore(logger, cfg)
	ledger := cli.NewLedger(logger, cfg, be.Backend, deliveries)

	if err := ledger.Index().Warm(context.Background()); err != nil {
		logger.Warn("Report sheet not readable yet, index will load on first delivery", log.FieldError, err)
	}

	caches := cache.NewManager()
	caches.Register("row_index", ledger.Index().Cache())

	opts := apphttp.Options{
		Logger:       logger,
		MaxBodyBytes: cfg.MaxBodyBytes,
		Ready:        ledger.Index().Warm,
		IndexStats:   ledger.Index().Stats,
	}

	var queue *amqp.Client
	if cfg.ProcessingMode == config.ModeQueue {
		var err error
		queue, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to connect to AMQP, processing deliveries inline", log.FieldError, err)
		} else {
			opts.Publisher = queue
			logger.Info("Queue mode enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, ledger, opts)
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if queue != nil {
			queue.Close()
		}
		if deliveries != nil {
			deliveries.Close()
		}
		if be.Cleanup != nil {
			if err := be.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", log.FieldError, err)
			}
		}
	})
	caches.Start(ctx, cfg.RowIndexTTL)

	if deliveries != nil {
		go worker.NewClaimSweeper(deliveries, cfg.ClaimSweepBatch).Run(ctx, cfg.ClaimSweepInterval, cfg.StaleClaimAfter)
	}

	logger.Info("Starting webhook receiver",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		log.FieldMode, cfg.ProcessingMode,
		"path", apphttp.WebhookPath,
		"dedupe", cfg.DedupeDeliveries)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
