// Package report turns a read of the record log into HTML report files.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"mfpreport/internal/aggregate"
	"mfpreport/internal/core"
	"mfpreport/internal/layout"
	"mfpreport/internal/records"
	"mfpreport/internal/render"
)

const (
	DaysPerWeek  = 7
	pageFile     = "report.html"
	maxParallel  = 4
	weekFileStem = "report_"
)

// Snapshot is one read of the record log and its pivot. It is never
// modified after Load, so concurrent page builds can share it.
type Snapshot struct {
	Log  []core.EventRecord
	View *aggregate.View
	// Last is the latest date in the log, zero when the log is empty.
	Last core.Date
}

// Load reads the whole log once.
func Load(ctx context.Context, reader records.Reader, logger *slog.Logger) (*Snapshot, error) {
	log, err := reader.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read record log: %w", err)
	}
	snap := &Snapshot{Log: log, View: aggregate.Pivot(log, logger)}
	for _, r := range log {
		if snap.Last.IsZero() || r.Date.After(snap.Last) {
			snap.Last = r.Date
		}
	}
	return snap, nil
}

// EndDate is the last logged date, or fallback for an empty log.
func (s *Snapshot) EndDate(fallback core.Date) core.Date {
	if s.Last.IsZero() {
		return fallback
	}
	return s.Last
}

// Document lays out the inclusive window start..end.
func (s *Snapshot) Document(cfg layout.Config, start, end core.Date) *layout.Document {
	return layout.BuildReport(s.Log, s.View, cfg, start, end)
}

// Window returns the first date of a days-long window ending at end.
func Window(end core.Date, days int) core.Date {
	return end.AddDays(1 - days)
}

// Writer renders snapshot windows into an output directory.
type Writer struct {
	renderer *render.Renderer
	layout   layout.Config
	dir      string
	logger   *slog.Logger
}

func NewWriter(renderer *render.Renderer, cfg layout.Config, dir string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{renderer: renderer, layout: cfg, dir: dir, logger: logger}
}

// Days writes one page of days columns ending at end to report.html.
func (w *Writer) Days(snap *Snapshot, end core.Date, days int) (string, error) {
	path := filepath.Join(w.dir, pageFile)
	return path, w.write(path, snap, Window(end, days), end)
}

// Weeks writes one 7-day page per week going back from end, newest first.
// Pages are built concurrently from the shared snapshot.
func (w *Writer) Weeks(ctx context.Context, snap *Snapshot, end core.Date, weeks int) ([]string, error) {
	paths := make([]string, weeks)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for i := 0; i < weeks; i++ {
		weekEnd := end.AddDays(-DaysPerWeek * i)
		paths[i] = filepath.Join(w.dir, weekFileStem+weekEnd.String()+".html")
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return w.write(paths[i], snap, Window(weekEnd, DaysPerWeek), weekEnd)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func (w *Writer) write(path string, snap *Snapshot, start, end core.Date) error {
	doc := snap.Document(w.layout, start, end)
	if err := w.renderer.WriteFile(path, doc); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	w.logger.Info("Report written", "path", path, "from", start.String(), "to", end.String())
	return nil
}
