package backend

import (
	"fmt"

	"mfpreport/internal/config"
	"mfpreport/internal/records/google"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	cfg := Config{
		Store:        StoreType(appConfig.RecordBackend),
		CSVFile:      appConfig.CSVFile,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		Sheets: google.Options{
			SpreadsheetID:   appConfig.GoogleSpreadsheetID,
			SheetName:       appConfig.GoogleSheetName,
			CredentialsJSON: appConfig.GoogleServiceAccountJSON,
			CredentialsFile: appConfig.GoogleServiceAccountFile,
		},
		Source:      SourceType(appConfig.SourceBackend),
		SourceURL:   appConfig.SourceURL,
		SourceDir:   appConfig.SourceDir,
		SourceToken: appConfig.SourceToken,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Store.IsValid() {
		return fmt.Errorf("invalid record backend: %s", c.Store)
	}
	if !c.Source.IsValid() {
		return fmt.Errorf("invalid source backend: %s", c.Source)
	}

	switch c.Store {
	case CSVStore:
		if c.CSVFile == "" {
			return fmt.Errorf("CSV file path is required for csv backend")
		}
	case SQLiteStore:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case SheetsStore:
		if c.Sheets.SpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
	}

	if c.Source == MemorySource && c.SourceDir == "" {
		return fmt.Errorf("source directory is required for memory source")
	}
	return nil
}
