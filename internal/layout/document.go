// Package layout turns the record log into the report grid consumed by the
// renderers. Everything date and meal related is decided here.
package layout

import (
	"strconv"

	"mfpreport/internal/core"
)

const HeaderDateFormat = "Monday 2 Jan"

// Document is the root of a report.
type Document struct {
	Stylesheet string      `json:"stylesheet,omitempty"`
	Dates      []core.Date `json:"dates"`
	Table      Table       `json:"table"`
}

// Table holds one header row and the body rows in display order.
type Table struct {
	Class  string `json:"class"`
	Header Row    `json:"header"`
	Body   []Row  `json:"body"`
}

type Row struct {
	Cells []Cell `json:"cells"`
}

// Cell is a single grid cell. Value is set on calorie cells that hold a
// number; Tip holds the annotation lines and is empty when tooltips are off.
type Cell struct {
	Header  bool     `json:"header,omitempty"`
	Text    string   `json:"text"`
	Class   string   `json:"class,omitempty"`
	ColSpan int      `json:"colspan,omitempty"`
	RowSpan int      `json:"rowspan,omitempty"`
	Value   *int     `json:"value,omitempty"`
	Tip     []string `json:"tip,omitempty"`
}

// Columns returns the grid width of the row, counting spans.
func (r Row) Columns() int {
	n := 0
	for _, c := range r.Cells {
		if c.ColSpan > 1 {
			n += c.ColSpan
		} else {
			n++
		}
	}
	return n
}

func numberCell(class string, v int) Cell {
	return Cell{Text: strconv.Itoa(v), Class: class, Value: &v}
}
