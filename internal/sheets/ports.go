package sheets

import (
	"context"
	"fhtally/internal/core"
)

// Ports for outbound adapters.
type (
	// ReportReader reads the report grid, header row excluded.
	ReportReader interface {
		ReportRows(ctx context.Context) ([]core.ReportRow, error)
	}

	// CountWriter reads one report row and writes its count cell.
	CountWriter interface {
		ReadRow(ctx context.Context, row int) (core.ReportRow, error)
		WriteCount(ctx context.Context, row int, count int) error
	}

	// AuditWriter appends one record to the audit sheet.
	AuditWriter interface {
		AppendAudit(ctx context.Context, rec core.AuditRecord) error
	}

	// Ledger is everything the ledger updater needs from a spreadsheet backend.
	Ledger interface {
		ReportReader
		CountWriter
		AuditWriter
	}
)
