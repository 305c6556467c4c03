package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO-8601 calendar date format used by every persisted form.
const DateLayout = "2006-01-02"

// TotalPrefix marks a derived daily total in the persisted type column.
const TotalPrefix = "total-"

const (
	LineItem RecordKind = iota
	Total
)

type (
	RecordKind int

	// Date is a calendar day, always held as midnight UTC so values compare
	// and hash consistently.
	Date struct {
		time.Time
	}

	// EventRecord is one logged food/exercise line item or one derived daily
	// total. For totals Category holds the key without TotalPrefix.
	EventRecord struct {
		Date        Date
		Kind        RecordKind
		Category    string
		Description string
		Calories    int
		Details     Nutrients
	}
)

var (
	ErrInvalidDate = errors.New("invalid date")
	ErrEmptyType   = errors.New("empty record type")
	ErrZeroDate    = errors.New("date cannot be zero")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	return nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// AddDays returns the date n days later (or earlier for negative n).
func (d Date) AddDays(n int) Date {
	return DateOf(d.AddDate(0, 0, n))
}

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool {
	return d.Time.Before(o.Time)
}

// After reports whether d is strictly later than o.
func (d Date) After(o Date) bool {
	return d.Time.After(o.Time)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON writes d as a quoted YYYY-MM-DD string, or "" for the zero
// date. It overrides the RFC 3339 form promoted from time.Time.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts a quoted YYYY-MM-DD string. null and "" leave the
// zero date.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("%w: %s", ErrInvalidDate, s)
	}
	s = s[1 : len(s)-1]
	if s == "" {
		*d = Date{}
		return nil
	}
	return d.UnmarshalText([]byte(s))
}

// DaysInRange lists every date in [start, end]. The result is empty when
// start is after end.
func DaysInRange(start, end Date) []Date {
	if start.After(end) {
		return nil
	}
	var out []Date
	for d := start; !d.After(end); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}

// NewLineItem builds a food or exercise entry record.
func NewLineItem(date Date, category, description string, calories int, details Nutrients) EventRecord {
	return EventRecord{
		Date:        date,
		Kind:        LineItem,
		Category:    category,
		Description: description,
		Calories:    calories,
		Details:     details,
	}
}

// NewTotal builds a derived daily total for key.
func NewTotal(date Date, key string, value int) EventRecord {
	return EventRecord{
		Date:     date,
		Kind:     Total,
		Category: key,
		Calories: value,
	}
}

// ClassifyType splits a persisted type column into its kind and category.
// This is the only place the total prefix is interpreted.
func ClassifyType(typ string) (RecordKind, string, error) {
	typ = strings.TrimSpace(typ)
	if typ == "" {
		return LineItem, "", ErrEmptyType
	}
	if key, ok := strings.CutPrefix(typ, TotalPrefix); ok {
		if key == "" {
			return Total, "", ErrEmptyType
		}
		return Total, key, nil
	}
	return LineItem, typ, nil
}

// Type returns the persisted type column.
func (r EventRecord) Type() string {
	if r.Kind == Total {
		return TotalPrefix + r.Category
	}
	return r.Category
}

func (r EventRecord) IsTotal() bool {
	return r.Kind == Total
}

func (r EventRecord) Validate() error {
	if err := r.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.Category) == "" {
		return ErrEmptyType
	}
	return nil
}
