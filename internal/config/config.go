package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"fhtally/internal/core"
)

// Backends and processing modes.
const (
	BackendSheets = "sheets"
	BackendMemory = "memory"

	ModeSync  = "sync"
	ModeQueue = "queue"
)

type Config struct {
	// HTTP server
	Port         string
	LogLevel     string
	MaxBodyBytes int64

	// Backend selection
	DataBackend string
	DataDir     string

	// Google Sheets
	GoogleCredentialsB64  string
	GoogleSpreadsheetID   string
	GoogleSpreadsheetName string
	ReportSheetName       string
	AuditSheetName        string
	ReportCountColumn     int

	// Ledger
	TrackedItems   core.TrackedItems
	ReportTimezone string
	RowIndexTTL    time.Duration

	// Processing
	ProcessingMode string
	AMQPURL        string
	AMQPExchange   string
	AMQPQueue      string

	// Delivery de-duplication
	DedupeDeliveries bool
	SQLiteDBPath     string

	// Worker
	ClaimSweepInterval time.Duration
	StaleClaimAfter    time.Duration
	ClaimSweepBatch    int
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8000"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		MaxBodyBytes: int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),

		DataBackend: getEnv("DATA_BACKEND", BackendSheets),
		DataDir:     getEnv("DATA_DIR", "./data"),

		GoogleCredentialsB64:  getEnv("GOOGLE_CREDENTIALS_B64", ""),
		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSpreadsheetName: getEnv("GOOGLE_SPREADSHEET_NAME", "Monthly Rentals Equipment Report"),
		ReportSheetName:       getEnv("REPORT_SHEET_NAME", "2025 Report"),
		AuditSheetName:        getEnv("AUDIT_SHEET_NAME", "Webhook Log"),
		ReportCountColumn:     getEnvInt("REPORT_COUNT_COLUMN", 4),

		TrackedItems:   core.TrackedItems(getEnvList("TRACKED_ITEMS", core.DefaultTrackedItems())),
		ReportTimezone: getEnv("REPORT_TIMEZONE", ""),
		RowIndexTTL:    getEnvDuration("ROW_INDEX_TTL", 5*time.Minute),

		ProcessingMode: getEnv("PROCESSING_MODE", ModeSync),
		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "fareharbor"),
		AMQPQueue:      getEnv("AMQP_QUEUE", "booking_tally"),

		DedupeDeliveries: getEnvBool("DEDUPE_DELIVERIES", false),
		SQLiteDBPath:     getEnv("SQLITE_DB_PATH", "./data/fhtally.db"),

		ClaimSweepInterval: getEnvDuration("CLAIM_SWEEP_INTERVAL", time.Minute),
		StaleClaimAfter:    getEnvDuration("STALE_CLAIM_AFTER", 10*time.Minute),
		ClaimSweepBatch:    getEnvInt("CLAIM_SWEEP_BATCH", 50),
	}
}

// Location returns the report timezone, or nil to keep each timestamp's own offset.
func (c *Config) Location() (*time.Location, error) {
	if c.ReportTimezone == "" {
		return nil, nil
	}
	return time.LoadLocation(c.ReportTimezone)
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.MaxBodyBytes < 1024 {
		errs = append(errs, fmt.Sprintf("invalid max body size %d: must be at least 1024 bytes", c.MaxBodyBytes))
	}

	switch c.DataBackend {
	case BackendSheets:
		if c.GoogleCredentialsB64 == "" {
			errs = append(errs, "GOOGLE_CREDENTIALS_B64 is required when using sheets backend")
		}
		if c.GoogleSpreadsheetID == "" && c.GoogleSpreadsheetName == "" {
			errs = append(errs, "either GOOGLE_SPREADSHEET_ID or GOOGLE_SPREADSHEET_NAME is required when using sheets backend")
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of [%s %s]", c.DataBackend, BackendSheets, BackendMemory))
	}

	if strings.TrimSpace(c.ReportSheetName) == "" {
		errs = append(errs, "report sheet name cannot be empty")
	}
	if strings.TrimSpace(c.AuditSheetName) == "" {
		errs = append(errs, "audit sheet name cannot be empty")
	}
	if c.ReportCountColumn < 3 {
		errs = append(errs, fmt.Sprintf("invalid report count column %d: must be 3 or greater", c.ReportCountColumn))
	}
	if len(c.TrackedItems) == 0 {
		errs = append(errs, "at least one tracked item is required")
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Sprintf("invalid report timezone '%s': %v", c.ReportTimezone, err))
	}
	if c.RowIndexTTL < time.Second {
		errs = append(errs, fmt.Sprintf("invalid row index TTL %v: must be at least 1 second", c.RowIndexTTL))
	}

	switch c.ProcessingMode {
	case ModeSync:
	case ModeQueue:
		if c.AMQPURL == "" {
			errs = append(errs, "AMQP_URL is required when PROCESSING_MODE is queue")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid processing mode '%s': must be one of [%s %s]", c.ProcessingMode, ModeSync, ModeQueue))
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.DedupeDeliveries && c.SQLiteDBPath == "" {
		errs = append(errs, "SQLite database path cannot be empty when DEDUPE_DELIVERIES is enabled")
	}

	if c.ClaimSweepBatch < 1 || c.ClaimSweepBatch > 1000 {
		errs = append(errs, fmt.Sprintf("invalid claim sweep batch %d: must be between 1 and 1000", c.ClaimSweepBatch))
	}
	if c.StaleClaimAfter < time.Second {
		errs = append(errs, fmt.Sprintf("invalid stale claim age %v: must be at least 1 second", c.StaleClaimAfter))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma list, dropping blanks. Item names are kept verbatim
// apart from surrounding spaces since matching is exact.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
