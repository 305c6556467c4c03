package http

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"mfpreport/internal/core"
)

const (
	DefaultDays = 7
	MaxDays     = 366
)

// ErrBadParam marks a query parameter the client got wrong.
var ErrBadParam = errors.New("invalid query parameter")

// ReportParams is the inclusive date window of one report page.
type ReportParams struct {
	Start core.Date
	End   core.Date
	Days  int
}

// Key identifies the page in the render cache.
func (p ReportParams) Key() string {
	return p.Start.String() + "/" + p.End.String()
}

// ParseReportParams reads end and days from the query. A missing end falls
// back to defaultEnd and a missing days to defaultDays.
func ParseReportParams(query url.Values, defaultEnd core.Date, defaultDays int) (ReportParams, error) {
	p := ReportParams{End: defaultEnd, Days: defaultDays}

	if v := strings.TrimSpace(query.Get("end")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return ReportParams{}, fmt.Errorf("%w: end must be YYYY-MM-DD", ErrBadParam)
		}
		p.End = d
	}
	if v := strings.TrimSpace(query.Get("days")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxDays {
			return ReportParams{}, fmt.Errorf("%w: days must be between 1 and %d", ErrBadParam, MaxDays)
		}
		p.Days = n
	}
	if p.Days < 1 {
		p.Days = DefaultDays
	}
	p.Start = p.End.AddDays(1 - p.Days)
	return p, nil
}

// RangeParams bounds a pivot export. Zero dates are open ends.
type RangeParams struct {
	From core.Date
	To   core.Date
}

// Contains reports whether d falls inside the range.
func (p RangeParams) Contains(d core.Date) bool {
	if !p.From.IsZero() && d.Before(p.From) {
		return false
	}
	if !p.To.IsZero() && d.After(p.To) {
		return false
	}
	return true
}

// ParseRangeParams reads optional from and to dates.
func ParseRangeParams(query url.Values) (RangeParams, error) {
	var p RangeParams
	for name, dst := range map[string]*core.Date{"from": &p.From, "to": &p.To} {
		v := strings.TrimSpace(query.Get(name))
		if v == "" {
			continue
		}
		d, err := core.ParseDate(v)
		if err != nil {
			return RangeParams{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", ErrBadParam, name)
		}
		*dst = d
	}
	if !p.From.IsZero() && !p.To.IsZero() && p.To.Before(p.From) {
		return RangeParams{}, fmt.Errorf("%w: to is before from", ErrBadParam)
	}
	return p, nil
}
