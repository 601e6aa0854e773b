package backend

import (
	"errors"
	"fmt"
	"time"

	"fhtally/internal/config"
)

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}
	return Config{
		Type: backendType,

		CredentialsB64:  appConfig.GoogleCredentialsB64,
		SpreadsheetID:   appConfig.GoogleSpreadsheetID,
		SpreadsheetName: appConfig.GoogleSpreadsheetName,
		ReportSheet:     appConfig.ReportSheetName,
		AuditSheet:      appConfig.AuditSheetName,
		CountColumn:     appConfig.ReportCountColumn,

		DataDirectory: appConfig.DataDir,
		Year:          time.Now().Year(),
	}, nil
}

func (c Config) Validate() error {
	switch c.Type {
	case SheetsBackend:
		if c.CredentialsB64 == "" {
			return errors.New("service account credentials are required for sheets backend")
		}
		if c.SpreadsheetID == "" && c.SpreadsheetName == "" {
			return errors.New("a spreadsheet ID or name is required for sheets backend")
		}
	case MemoryBackend:
	default:
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	return nil
}

// GetBackendTypeStrings lists the accepted DATA_BACKEND values.
func GetBackendTypeStrings() []string {
	return []string{SheetsBackend.String(), MemoryBackend.String()}
}
