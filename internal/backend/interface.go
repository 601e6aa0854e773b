package backend

import (
	"context"

	"fhtally/internal/sheets"
)

// Backend is the spreadsheet the ledger counts into.
type Backend interface {
	sheets.Ledger
}

type CleanupFunc func() error

// BackendResult is a ready backend plus the function releasing it.
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type Config struct {
	Type BackendType

	// Google Sheets
	CredentialsB64  string
	SpreadsheetID   string
	SpreadsheetName string
	ReportSheet     string
	AuditSheet      string
	CountColumn     int

	// Memory
	DataDirectory string
	Year          int
}

type BackendType string

const (
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
