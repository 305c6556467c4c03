// Package aggregate reshapes the record log into one row per date and one
// column per total key.
package aggregate

import (
	"encoding/csv"
	"io"
	"log/slog"
	"sort"
	"strconv"

	"mfpreport/internal/core"
)

// View is the pivoted table. Unset cells stay unset; callers pick the fill.
type View struct {
	cells      map[core.Date]map[string]int
	columns    []string
	dates      []core.Date
	duplicates int
}

// Pivot builds the view from total rows only. A repeated (date, key) keeps
// the last value and logs a warning.
func Pivot(log []core.EventRecord, logger *slog.Logger) *View {
	if logger == nil {
		logger = slog.Default()
	}
	v := &View{cells: map[core.Date]map[string]int{}}
	seenCol := map[string]bool{}

	for _, r := range log {
		if !r.IsTotal() {
			continue
		}
		row, ok := v.cells[r.Date]
		if !ok {
			row = map[string]int{}
			v.cells[r.Date] = row
			v.dates = append(v.dates, r.Date)
		}
		if prev, dup := row[r.Category]; dup {
			v.duplicates++
			logger.Warn("Duplicate total for date, keeping the last value",
				"date", r.Date.String(), "category", r.Category,
				"previous", prev, "value", r.Calories)
		}
		row[r.Category] = r.Calories
		if !seenCol[r.Category] {
			seenCol[r.Category] = true
			v.columns = append(v.columns, r.Category)
		}
	}

	sort.Slice(v.dates, func(i, j int) bool { return v.dates[i].Before(v.dates[j]) })
	return v
}

// Dates returns every date with at least one total, ascending.
func (v *View) Dates() []core.Date {
	return append([]core.Date(nil), v.dates...)
}

// Columns returns every total key in first-seen order.
func (v *View) Columns() []string {
	return append([]string(nil), v.columns...)
}

// Value returns the cell and whether it is set.
func (v *View) Value(date core.Date, key string) (int, bool) {
	row, ok := v.cells[date]
	if !ok {
		return 0, false
	}
	val, ok := row[key]
	return val, ok
}

// ValueOrZero treats an unset cell as 0.
func (v *View) ValueOrZero(date core.Date, key string) int {
	val, _ := v.Value(date, key)
	return val
}

// Duplicates counts (date, key) cells written more than once.
func (v *View) Duplicates() int { return v.duplicates }

// Len returns the number of dates.
func (v *View) Len() int { return len(v.dates) }

// WriteCSV writes the view with a date column followed by every key.
// Unset cells are empty. from and to bound the dates when non-zero.
func (v *View) WriteCSV(w io.Writer, from, to core.Date) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"date"}, v.columns...)); err != nil {
		return err
	}
	for _, d := range v.dates {
		if !from.IsZero() && d.Before(from) {
			continue
		}
		if !to.IsZero() && d.After(to) {
			continue
		}
		rec := make([]string, 0, len(v.columns)+1)
		rec = append(rec, d.String())
		for _, c := range v.columns {
			if val, ok := v.Value(d, c); ok {
				rec = append(rec, strconv.Itoa(val))
			} else {
				rec = append(rec, "")
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
