package backend

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"mfpreport/internal/records/csvlog"
	"mfpreport/internal/records/google"
	"mfpreport/internal/records/memory"
	"mfpreport/internal/source"
	"mfpreport/internal/source/httpapi"
	srcmemory "mfpreport/internal/source/memory"
	"mfpreport/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateStore implements Factory.CreateStore
func (f *DefaultFactory) CreateStore(ctx context.Context, config Config) (*StoreResult, error) {
	switch config.Store {
	case CSVStore:
		f.logger.Info("Initialized CSV record store", "file", config.CSVFile)
		path, err := filepath.Abs(config.CSVFile)
		if err != nil {
			path = config.CSVFile
		}
		return &StoreResult{Store: csvlog.New(config.CSVFile, f.logger), WatchPath: path}, nil

	case SQLiteStore:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite record store", "db_path", config.SQLiteDBPath)
		return &StoreResult{Store: repo, Cleanup: repo.Close}, nil

	case SheetsStore:
		cli, err := google.Open(ctx, config.Sheets, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		f.logger.Info("Initialized Google Sheets record store", "sheet", config.Sheets.SheetName)
		return &StoreResult{Store: cli}, nil

	case MemoryStore:
		f.logger.Info("Initialized memory record store")
		return &StoreResult{Store: memory.New()}, nil

	default:
		return nil, fmt.Errorf("unsupported record backend: %s", config.Store)
	}
}

// CreateSource implements Factory.CreateSource
func (f *DefaultFactory) CreateSource(_ context.Context, config Config) (source.DayFetcher, error) {
	switch config.Source {
	case HTTPSource:
		cli, err := httpapi.New(config.SourceURL,
			httpapi.WithToken(config.SourceToken),
			httpapi.WithLogger(f.logger))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize event source: %w", err)
		}
		f.logger.Info("Initialized HTTP event source", "url", config.SourceURL)
		return cli, nil

	case MemorySource:
		src, err := srcmemory.NewFromDir(config.SourceDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load event source fixtures: %w", err)
		}
		f.logger.Info("Initialized fixture event source", "dir", config.SourceDir)
		return src, nil

	default:
		return nil, fmt.Errorf("unsupported source backend: %s", config.Source)
	}
}
