// Package worker re-renders the weekly report after each synchronization.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mfpreport/internal/core"
	"mfpreport/internal/records"
	"mfpreport/internal/report"
	"mfpreport/internal/services"
)

// SyncWorker keeps the latest weekly page in the output directory current.
// It runs on the sync processor's goroutine, so it never reads the log
// while a sync is writing it.
type SyncWorker struct {
	reader records.Reader
	writer *report.Writer
	days   int
	now    func() time.Time
	logger *slog.Logger
}

func NewSyncWorker(reader records.Reader, writer *report.Writer, logger *slog.Logger) *SyncWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncWorker{
		reader: reader,
		writer: writer,
		days:   report.DaysPerWeek,
		now:    time.Now,
		logger: logger,
	}
}

// HandleSynced is the processor callback for a run that committed days.
func (w *SyncWorker) HandleSynced(ctx context.Context, res services.SyncResult) {
	w.logger.InfoContext(ctx, "Days synchronized",
		"from", res.From.String(),
		"through", res.Through.String(),
		"days", res.DaysCommitted,
		"rows", res.RowsWritten)

	if _, err := w.RenderLatest(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Failed to render latest report", "error", err)
	}
}

// RenderLatest writes the week ending at the last logged date.
func (w *SyncWorker) RenderLatest(ctx context.Context) (string, error) {
	snap, err := report.Load(ctx, w.reader, w.logger)
	if err != nil {
		return "", err
	}
	if snap.Last.IsZero() {
		w.logger.InfoContext(ctx, "Record log is empty, no report to render")
		return "", nil
	}
	end := snap.EndDate(core.DateOf(w.now()))
	path, err := w.writer.Days(snap, end, w.days)
	if err != nil {
		return "", fmt.Errorf("render latest report: %w", err)
	}
	return path, nil
}
