// Package csvlog stores the record log as a flat CSV file, one row per
// record, appended one whole day at a time.
package csvlog

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"mfpreport/internal/core"
	"mfpreport/internal/records"
)

const tailChunk = 4096

type Log struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

var _ records.Store = (*Log)(nil)

// New returns a log backed by path. The file is created on first append.
func New(path string, logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{path: path, logger: logger}
}

func (l *Log) Path() string { return l.path }

// LastDate reads only the final line of the file. A final row that is not
// a total marks a day cut short after its line items.
func (l *Log) LastDate(_ context.Context) (core.Date, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return core.Date{}, records.ErrEmptyLog
	}
	if err != nil {
		return core.Date{}, fmt.Errorf("open %s: %w", l.path, err)
	}
	defer f.Close()

	line, complete, err := lastLine(f)
	if err != nil {
		return core.Date{}, fmt.Errorf("read tail of %s: %w", l.path, err)
	}
	if line == "" {
		return core.Date{}, records.ErrEmptyLog
	}
	if !complete {
		return core.Date{}, fmt.Errorf("%w: unterminated final line", records.ErrMalformedTail)
	}

	cols, err := csv.NewReader(strings.NewReader(line)).Read()
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: %v", records.ErrMalformedTail, err)
	}
	if records.IsHeader(cols) {
		return core.Date{}, records.ErrEmptyLog
	}
	d, err := core.ParseDate(cols[0])
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: %v", records.ErrMalformedTail, err)
	}
	// every committed day ends with its totals
	if len(cols) < 2 || !strings.HasPrefix(strings.TrimSpace(cols[1]), core.TotalPrefix) {
		return core.Date{}, fmt.Errorf("%w: day %s has no totals", records.ErrMalformedTail, d)
	}
	return d, nil
}

// lastLine returns the final non-empty line and whether it was terminated
// by a newline.
func lastLine(f *os.File) (string, bool, error) {
	info, err := f.Stat()
	if err != nil {
		return "", false, err
	}
	size := info.Size()
	if size == 0 {
		return "", true, nil
	}

	var buf []byte
	for window := int64(tailChunk); ; window *= 2 {
		if window > size {
			window = size
		}
		buf = make([]byte, window)
		if _, err := f.ReadAt(buf, size-window); err != nil && !errors.Is(err, io.EOF) {
			return "", false, err
		}
		trimmed := bytes.TrimRight(buf, "\r\n")
		if i := bytes.LastIndexByte(trimmed, '\n'); i >= 0 || window == size {
			complete := len(trimmed) < len(buf)
			return string(trimmed[i+1:]), complete, nil
		}
	}
}

// AppendDay writes every row of date with a single write followed by a
// sync. A missing or empty file gets the header first.
func (l *Log) AppendDay(_ context.Context, date core.Date, rows []core.EventRecord) error {
	if len(rows) == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", l.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", l.path, err)
	}

	var buf bytes.Buffer
	if info.Size() > 0 {
		// a torn previous write leaves no newline; start a fresh line so the
		// new day stays parsable
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, info.Size()-1); err != nil {
			return fmt.Errorf("read %s: %w", l.path, err)
		}
		if last[0] != '\n' {
			l.logger.Warn("Record log did not end with a newline, starting a new line",
				"path", l.path, "date", date.String())
			buf.WriteByte('\n')
		}
	}

	w := csv.NewWriter(&buf)
	if info.Size() == 0 {
		if err := w.Write(records.Header); err != nil {
			return err
		}
	}
	for _, r := range rows {
		if !r.Date.Equal(date.Time) {
			return fmt.Errorf("row dated %s in batch for %s", r.Date, date)
		}
		cols, err := records.EncodeRow(r)
		if err != nil {
			return err
		}
		if err := w.Write(cols); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encode day %s: %w", date, err)
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("append day %s: %w", date, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", l.path, err)
	}
	return nil
}

// ReadAll returns every parsable row. Unparsable rows are skipped with a
// warning so a single torn line cannot hide the rest of the log.
func (l *Log) ReadAll(_ context.Context) ([]core.EventRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	defer f.Close()

	// rows never span lines, so each line is parsed on its own and a torn
	// quote cannot swallow the rows after it
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var out []core.EventRecord
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		reader := csv.NewReader(strings.NewReader(text))
		reader.FieldsPerRecord = -1
		cols, err := reader.Read()
		if err != nil {
			l.logger.Warn("Skipping unreadable record row", "path", l.path, "line", line, "error", err)
			continue
		}
		if line == 1 && records.IsHeader(cols) {
			continue
		}
		rec, err := records.DecodeRow(cols)
		if err != nil {
			l.logger.Warn("Skipping malformed record row", "path", l.path, "line", line, "error", err)
			continue
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", l.path, err)
	}
	return out, nil
}
