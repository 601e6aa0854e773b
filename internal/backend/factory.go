package backend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fhtally/internal/sheets/google"
	"fhtally/internal/sheets/memory"
)

type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend builds the backend once at startup; it is then shared by all deliveries.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	switch config.Type {
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := google.New(ctx, google.Options{
		CredentialsB64:  config.CredentialsB64,
		SpreadsheetID:   config.SpreadsheetID,
		SpreadsheetName: config.SpreadsheetName,
		ReportSheet:     config.ReportSheet,
		AuditSheet:      config.AuditSheet,
		CountColumn:     config.CountColumn,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	if err := cli.EnsureAuditSheet(ctx); err != nil {
		// the report can still be updated; audit appends will log their own failures
		f.logger.Warn("Could not prepare audit sheet", "sheet", config.AuditSheet, "error", err)
	}

	f.logger.Info("Initialized Google Sheets backend",
		"report_sheet", config.ReportSheet,
		"audit_sheet", config.AuditSheet)

	return &BackendResult{Backend: cli}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}
	year := config.Year
	if year == 0 {
		year = time.Now().Year()
	}
	store := memory.NewFromFiles(dataDir, year)

	f.logger.Info("Initialized memory backend", "data_directory", dataDir, "year", year)

	return &BackendResult{Backend: store}, nil
}
