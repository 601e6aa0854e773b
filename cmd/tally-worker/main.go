package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fhtally/internal/amqp"
	"fhtally/internal/cache"
	"fhtally/internal/cli"
	"fhtally/internal/log"
	"fhtally/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the tally worker")
		os.Exit(1)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	be := cli.InitBackend(startCtx, logger, cfg)
	cancelStart()

	deliveries := cli.InitDeliveryStore(logger, cfg)
	ledger := cli.NewLedger(logger, cfg, be.Backend, deliveries)

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to connect to AMQP", log.FieldError, err)
		os.Exit(1)
	}

	caches := cache.NewManager()
	caches.Register("row_index", ledger.Index().Cache())

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		caches.Stop()
		client.Close()
		if deliveries != nil {
			deliveries.Close()
		}
		if be.Cleanup != nil {
			be.Cleanup()
		}
	})
	caches.Start(ctx, cfg.RowIndexTTL)

	// a nil *DeliveryStore must not become a non-nil interface
	var claims worker.StaleClaims
	if deliveries != nil {
		claims = deliveries
	}
	w := worker.NewTallyWorker(ledger, claims, cfg.ClaimSweepBatch)

	logger.Info("Starting tally worker",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue,
		"backend", cfg.DataBackend,
		"dedupe", cfg.DedupeDeliveries)

	if err := w.Run(ctx, client, cfg.ClaimSweepInterval, cfg.StaleClaimAfter); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
