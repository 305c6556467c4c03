package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mfpreport/internal/core"
	mflog "mfpreport/internal/log"
	"mfpreport/internal/records"
	"mfpreport/internal/source"
)

// SyncResult reasons for a run that committed nothing.
const (
	// NothingToExtract: a fresh log and no start date.
	NothingToExtract = "nothing to extract"
	// UnreadableTail: the last row is unreadable or ends a day without totals,
	// and no start date was given.
	UnreadableTail = "unreadable tail"
	UpToDate       = "up to date"
)

// DayPublisher is notified after each committed day. Failures are logged
// and do not affect the sync.
type DayPublisher interface {
	PublishDaySynced(ctx context.Context, date core.Date, rows int) error
}

// SyncEngineConfig holds the settings the engine reads.
type SyncEngineConfig struct {
	// Alcohol names the total subtracted from calories to give food_only.
	// Empty disables the derivation.
	Alcohol string
}

// SyncResult describes one Synchronize call.
type SyncResult struct {
	From          core.Date
	Through       core.Date
	DaysCommitted int
	RowsWritten   int
	Skipped       bool
	Reason        string
	ConfigGaps    int
	Committed     []core.Date
}

// SyncEngine appends missing days from the event source to the record log.
type SyncEngine struct {
	store     records.Store
	source    source.DayFetcher
	publisher DayPublisher
	config    SyncEngineConfig
	now       func() time.Time
	logger    *slog.Logger
}

type SyncOption func(*SyncEngine)

// WithClock overrides time.Now for deciding "today".
func WithClock(now func() time.Time) SyncOption {
	return func(e *SyncEngine) { e.now = now }
}

func WithPublisher(p DayPublisher) SyncOption {
	return func(e *SyncEngine) { e.publisher = p }
}

func WithLogger(l *slog.Logger) SyncOption {
	return func(e *SyncEngine) {
		if l != nil {
			e.logger = l
		}
	}
}

func NewSyncEngine(store records.Store, src source.DayFetcher, config SyncEngineConfig, opts ...SyncOption) *SyncEngine {
	e := &SyncEngine{
		store:  store,
		source: src,
		config: config,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Synchronize fetches every day from the resume date through today and
// commits each one as a unit. start is only used when the log gives no
// resume date. A fetch or write failure stops the run; days committed
// before it stay committed and a later call resumes after them.
func (e *SyncEngine) Synchronize(ctx context.Context, start *core.Date) (SyncResult, error) {
	var res SyncResult

	from, reason, err := e.resumeDate(ctx, start)
	if err != nil {
		return res, err
	}
	if reason != "" {
		res.Skipped = true
		res.Reason = reason
		e.logger.InfoContext(ctx, "Nothing to extract: no resume date and no start date", "reason", reason)
		return res, nil
	}

	today := core.DateOf(e.now())
	days := core.DaysInRange(from, today)
	res.From = from
	res.Through = today
	if len(days) == 0 {
		res.Skipped = true
		res.Reason = UpToDate
		e.logger.DebugContext(ctx, "Record log is up to date", "from", from.String(), "today", today.String())
		return res, nil
	}

	warned := false
	for _, date := range days {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		e.logger.InfoContext(ctx, "Requesting day", "date", date.String())
		day, err := e.source.FetchDay(ctx, date)
		if err != nil {
			return res, fmt.Errorf("fetch %s: %w", date, err)
		}

		rows, gap := DeriveDay(date, day, e.config.Alcohol)
		if gap {
			res.ConfigGaps++
			if !warned {
				e.logger.WarnContext(ctx, "Alcohol category is not in the dataset; is it set correctly?",
					"category", e.config.Alcohol, "date", date.String())
				warned = true
			}
		}

		if err := e.store.AppendDay(ctx, date, rows); err != nil {
			return res, fmt.Errorf("commit %s: %w", date, err)
		}
		res.DaysCommitted++
		res.RowsWritten += len(rows)
		res.Committed = append(res.Committed, date)
		e.logger.DebugContext(ctx, "Day committed",
			mflog.NewFields().WithDay(date.String(), len(rows)).WithOperation(mflog.OpAppend).ToSlice()...)

		if e.publisher != nil {
			if err := e.publisher.PublishDaySynced(ctx, date, len(rows)); err != nil {
				e.logger.WarnContext(ctx, "Failed to publish day synced", "date", date.String(), "error", err)
			}
		}
	}

	e.logger.InfoContext(ctx, "Synchronization complete",
		"from", from.String(),
		"through", today.String(),
		"days", res.DaysCommitted,
		"rows", res.RowsWritten)
	return res, nil
}

// resumeDate reports where to start. A non-empty reason means there is
// nothing to do.
func (e *SyncEngine) resumeDate(ctx context.Context, start *core.Date) (core.Date, string, error) {
	reason := NothingToExtract
	last, err := e.store.LastDate(ctx)
	switch {
	case err == nil:
		return last.AddDays(1), "", nil
	case errors.Is(err, records.ErrMalformedTail):
		e.logger.WarnContext(ctx, "Last row of the record log is not a complete day", "error", err)
		reason = UnreadableTail
	case errors.Is(err, records.ErrEmptyLog):
	default:
		return core.Date{}, "", fmt.Errorf("read last date: %w", err)
	}

	if start == nil || start.IsZero() {
		return core.Date{}, reason, nil
	}
	return *start, "", nil
}
