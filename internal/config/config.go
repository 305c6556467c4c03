package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Record store
	RecordBackend string
	CSVFile       string
	SQLiteDBPath  string

	// Google Sheets
	GoogleSpreadsheetID       string
	GoogleSheetName           string
	GoogleServiceAccountJSON  string
	GoogleServiceAccountFile  string

	// Event source
	SourceBackend string
	SourceURL     string
	SourceDir     string
	SourceToken   string

	// Reports
	SettingsFile string
	OutputDir    string
	ReportDays   int

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Worker
	SyncInterval time.Duration
	SyncStart    string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8081"),

		RecordBackend: getEnv("RECORD_BACKEND", "csv"),
		CSVFile:       getEnv("MFP_CSV_FILE", "myfitnesspal_data.csv"),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/mfpreport.db"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Log"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),

		SourceBackend: getEnv("SOURCE_BACKEND", "http"),
		SourceURL:     getEnv("SOURCE_URL", ""),
		SourceDir:     getEnv("SOURCE_DIR", "./testdata/diary"),
		SourceToken:   getEnv("SOURCE_TOKEN", ""),

		SettingsFile: getEnv("SETTINGS_FILE", ""),
		OutputDir:    getEnv("OUTPUT_DIR", "output"),
		ReportDays:   getEnvInt("REPORT_DAYS", 7),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "mfpreport"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "day_synced"),

		SyncInterval: getEnvDuration("SYNC_INTERVAL", time.Hour),
		SyncStart:    getEnv("SYNC_START", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"csv", "sqlite", "sheets", "memory"}
	if !contains(validBackends, c.RecordBackend) {
		errors = append(errors, fmt.Sprintf("invalid record backend '%s': must be one of %v", c.RecordBackend, validBackends))
	}

	switch c.RecordBackend {
	case "csv":
		if strings.TrimSpace(c.CSVFile) == "" {
			errors = append(errors, "CSV file path cannot be empty when using csv backend")
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case "sheets":
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when using sheets backend")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets backend")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	validSources := []string{"http", "memory"}
	if !contains(validSources, c.SourceBackend) {
		errors = append(errors, fmt.Sprintf("invalid source backend '%s': must be one of %v", c.SourceBackend, validSources))
	}
	if c.SourceBackend == "http" && c.SourceURL != "" {
		if u, err := url.Parse(c.SourceURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid source URL '%s': must be an http(s) URL", c.SourceURL))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.ReportDays < 1 {
		errors = append(errors, fmt.Sprintf("invalid report days %d: must be at least 1", c.ReportDays))
	}

	if c.SyncInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 minute", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if c.SyncStart != "" {
		if _, err := time.Parse("2006-01-02", c.SyncStart); err != nil {
			errors = append(errors, fmt.Sprintf("invalid sync start '%s': must be YYYY-MM-DD", c.SyncStart))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
