package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"mfpreport/internal/core"
	"mfpreport/internal/records"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *slog.Logger
}

var _ records.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string, logger *slog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := Migrate(dbPath, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", dbPath, err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// LastDate implements records.Tail
func (r *SQLiteRepository) LastDate(ctx context.Context) (core.Date, error) {
	raw, err := r.queries.GetLastEventDate(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Date{}, records.ErrEmptyLog
	}
	if err != nil {
		return core.Date{}, fmt.Errorf("get last event date: %w", err)
	}
	d, err := core.ParseDate(raw)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: %v", records.ErrMalformedTail, err)
	}
	return d, nil
}

// AppendDay implements records.Appender. All rows of the day share one
// transaction.
func (r *SQLiteRepository) AppendDay(ctx context.Context, date core.Date, rows []core.EventRecord) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	for _, rec := range rows {
		if rec.Date != date {
			return fmt.Errorf("row dated %s in batch for %s", rec.Date, date)
		}
		cols, err := records.EncodeRow(rec)
		if err != nil {
			return err
		}
		err = q.InsertEventRecord(ctx, InsertEventRecordParams{
			Date:        cols[0],
			Type:        cols[1],
			Description: cols[2],
			Calories:    int64(rec.Calories),
			Details:     cols[4],
		})
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s %s", records.ErrDuplicateTotal, date, rec.Type())
			}
			return fmt.Errorf("insert %s row for %s: %w", rec.Type(), date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit day %s: %w", date, err)
	}

	r.logger.DebugContext(ctx, "Day committed to SQLite", "date", date.String(), "rows", len(rows))
	return nil
}

// ReadAll implements records.Reader
func (r *SQLiteRepository) ReadAll(ctx context.Context) ([]core.EventRecord, error) {
	rows, err := r.queries.ListEventRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("list event records: %w", err)
	}

	out := make([]core.EventRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := records.DecodeRow([]string{
			row.Date,
			row.Type,
			row.Description,
			fmt.Sprint(row.Calories),
			row.Details,
		})
		if err != nil {
			r.logger.WarnContext(ctx, "Skipping malformed event record", "id", row.ID, "error", err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Count returns the number of stored rows.
func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	return r.queries.CountEventRecords(ctx)
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
