package memory

import (
	"context"
	"fmt"
	"sync"

	"mfpreport/internal/core"
	"mfpreport/internal/records"
)

// Store keeps the record log in process. It enforces the same one-total-per
// (date, key) rule the SQLite store does.
type Store struct {
	mu    sync.Mutex
	items []core.EventRecord
	days  map[core.Date]struct{}
}

var _ records.Store = (*Store)(nil)

func New(seed ...core.EventRecord) *Store {
	s := &Store{days: map[core.Date]struct{}{}}
	for _, r := range seed {
		s.items = append(s.items, r)
		s.days[r.Date] = struct{}{}
	}
	return s
}

func (s *Store) LastDate(_ context.Context) (core.Date, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return core.Date{}, records.ErrEmptyLog
	}
	return s.items[len(s.items)-1].Date, nil
}

func (s *Store) AppendDay(_ context.Context, date core.Date, rows []core.EventRecord) error {
	if len(rows) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.days[date]; ok {
		for _, r := range rows {
			if r.IsTotal() && s.hasTotal(date, r.Category) {
				return fmt.Errorf("%w: %s %s", records.ErrDuplicateTotal, date, r.Category)
			}
		}
	}
	for _, r := range rows {
		if r.Date != date {
			return fmt.Errorf("row dated %s in batch for %s", r.Date, date)
		}
		if err := r.Validate(); err != nil {
			return err
		}
	}
	s.items = append(s.items, rows...)
	s.days[date] = struct{}{}
	return nil
}

func (s *Store) hasTotal(date core.Date, key string) bool {
	for _, r := range s.items {
		if r.Date == date && r.IsTotal() && r.Category == key {
			return true
		}
	}
	return false
}

// ReadAll returns a copy of every row.
func (s *Store) ReadAll(_ context.Context) ([]core.EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.EventRecord(nil), s.items...), nil
}

// Len returns the number of stored rows.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
