// Package cli holds the start-up steps shared by cmd/fareharbor-tally and
// cmd/tally-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fhtally/internal/backend"
	"fhtally/internal/config"
	"fhtally/internal/log"
	"fhtally/internal/services"
	"fhtally/internal/storage"

	"github.com/joho/godotenv"
)

// SetupLogger installs a text logger at the LOG_LEVEL level as the slog default.
func SetupLogger(component string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(os.Getenv("LOG_LEVEL"))
	cfg.Component = component
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads .env for local development; a missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig exits the process when the configuration is invalid.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitBackend connects to the configured spreadsheet backend or exits.
func InitBackend(ctx context.Context, logger *log.Logger, cfg *config.Config) *backend.BackendResult {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	return res
}

// InitDeliveryStore opens the de-duplication ledger, or returns nil when
// de-duplication is disabled.
func InitDeliveryStore(logger *log.Logger, cfg *config.Config) *storage.DeliveryStore {
	if !cfg.DedupeDeliveries {
		return nil
	}
	store, err := storage.NewDeliveryStore(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize delivery store", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	logger.Info("Delivery de-duplication enabled", "path", cfg.SQLiteDBPath)
	return store
}

// NewLedger wires the ledger service from configuration.
func NewLedger(logger *log.Logger, cfg *config.Config, b backend.Backend, deliveries *storage.DeliveryStore) *services.LedgerService {
	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Invalid report timezone", log.FieldError, err)
		os.Exit(1)
	}
	opts := services.LedgerOptions{
		TrackedItems: cfg.TrackedItems,
		Location:     loc,
		IndexTTL:     cfg.RowIndexTTL,
		Logger:       logger,
	}
	if deliveries != nil {
		opts.Deliveries = deliveries
	}
	return services.NewLedgerService(b, opts)
}

// GracefulShutdown returns a context cancelled on SIGINT/SIGTERM and a channel
// closed once cleanup has run or timeout has passed.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until shutdown has finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
