package backend

import (
	"context"

	"mfpreport/internal/records"
	"mfpreport/internal/records/google"
	"mfpreport/internal/source"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// StoreResult contains the record store and optional cleanup function.
// WatchPath is the file backing the store, empty when nothing on disk
// changes with it.
type StoreResult struct {
	Store     records.Store
	Cleanup   CleanupFunc
	WatchPath string
}

// Factory creates record stores and event sources from configuration.
type Factory interface {
	CreateStore(ctx context.Context, config Config) (*StoreResult, error)
	CreateSource(ctx context.Context, config Config) (source.DayFetcher, error)
}

// Config holds configuration for backend creation
type Config struct {
	Store StoreType

	// csv
	CSVFile string

	// sqlite
	SQLiteDBPath string

	// sheets
	Sheets google.Options

	Source      SourceType
	SourceURL   string
	SourceDir   string
	SourceToken string
}

// StoreType selects the record store.
type StoreType string

const (
	CSVStore    StoreType = "csv"
	SQLiteStore StoreType = "sqlite"
	SheetsStore StoreType = "sheets"
	MemoryStore StoreType = "memory"
)

func (t StoreType) String() string {
	return string(t)
}

// IsValid returns true if the store type is known
func (t StoreType) IsValid() bool {
	switch t {
	case CSVStore, SQLiteStore, SheetsStore, MemoryStore:
		return true
	default:
		return false
	}
}

// SourceType selects the event source.
type SourceType string

const (
	HTTPSource   SourceType = "http"
	MemorySource SourceType = "memory"
)

func (t SourceType) String() string {
	return string(t)
}

func (t SourceType) IsValid() bool {
	return t == HTTPSource || t == MemorySource
}
