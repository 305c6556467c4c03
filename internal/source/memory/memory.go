// Package memory is a fixture event source backed by a map of days.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"mfpreport/internal/core"
	"mfpreport/internal/source"
)

type Source struct {
	mu    sync.Mutex
	days  map[core.Date]core.Day
	fail  map[core.Date]error
	calls []core.Date
}

var _ source.DayFetcher = (*Source)(nil)

func New(days ...core.Day) *Source {
	s := &Source{days: map[core.Date]core.Day{}, fail: map[core.Date]error{}}
	for _, d := range days {
		s.days[d.Date] = d
	}
	return s
}

// NewFromDir loads every YYYY-MM-DD.json file in dir.
func NewFromDir(dir string) (*Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read source dir: %w", err)
	}
	s := New()
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		date, err := core.ParseDate(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		var day core.Day
		if err := json.Unmarshal(raw, &day); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		day.Date = date
		s.days[date] = day
	}
	return s, nil
}

// Put adds or replaces a day.
func (s *Source) Put(day core.Day) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.days[day.Date] = day
}

// Fail makes FetchDay return err for date.
func (s *Source) Fail(date core.Date, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, date)
		return
	}
	s.fail[date] = err
}

// FetchDay returns the stored day, or an empty diary for unknown dates.
func (s *Source) FetchDay(ctx context.Context, date core.Date) (core.Day, error) {
	if err := ctx.Err(); err != nil {
		return core.Day{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, date)
	if err, ok := s.fail[date]; ok {
		return core.Day{}, err
	}
	if d, ok := s.days[date]; ok {
		return d, nil
	}
	return core.Day{Date: date}, nil
}

// Calls lists the dates requested so far, in order.
func (s *Source) Calls() []core.Date {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Date(nil), s.calls...)
}

// ErrUnavailable is a convenience error for Fail.
var ErrUnavailable = errors.New("source unavailable")
