package layout

import (
	"mfpreport/internal/aggregate"
	"mfpreport/internal/core"
)

const (
	TableClass  = "tg"
	headerClass = "header"
	labelClass  = "meal"
)

type itemKey struct {
	date     core.Date
	category string
}

// logIndex is the part of the log the grid needs: line items grouped per
// day and category, meal categories in first-seen order, and the largest
// per-day item count of every category.
type logIndex struct {
	items   map[itemKey][]core.EventRecord
	meals   []string
	maxRows map[string]int
}

func indexLog(log []core.EventRecord) logIndex {
	idx := logIndex{
		items:   make(map[itemKey][]core.EventRecord),
		maxRows: make(map[string]int),
	}
	seen := make(map[string]bool)
	for _, r := range log {
		if r.IsTotal() {
			continue
		}
		k := itemKey{date: r.Date, category: r.Category}
		idx.items[k] = append(idx.items[k], r)
		if n := len(idx.items[k]); n > idx.maxRows[r.Category] {
			idx.maxRows[r.Category] = n
		}
		if !seen[r.Category] {
			seen[r.Category] = true
			idx.meals = append(idx.meals, r.Category)
		}
	}
	return idx
}

// BuildReport lays out the report for [start, end]. Row counts per meal are
// taken from the whole log so every window of the same log lines up. A nil
// view is built from log.
func BuildReport(log []core.EventRecord, view *aggregate.View, cfg Config, start, end core.Date) *Document {
	if view == nil {
		view = aggregate.Pivot(log, nil)
	}
	dates := core.DaysInRange(start, end)
	doc := &Document{
		Stylesheet: cfg.Stylesheet,
		Dates:      dates,
		Table: Table{
			Class:  TableClass,
			Header: headerRow(dates),
		},
	}
	if len(dates) == 0 {
		return doc
	}

	idx := indexLog(log)
	b := builder{cfg: cfg, dates: dates, view: view, idx: idx}
	for _, meal := range b.mealOrder() {
		b.mealGroup(meal)
	}
	b.totalsBlock()
	doc.Table.Body = b.rows
	return doc
}

func headerRow(dates []core.Date) Row {
	row := Row{Cells: []Cell{{Header: true}}}
	for _, d := range dates {
		row.Cells = append(row.Cells, Cell{
			Header:  true,
			Text:    d.Format(HeaderDateFormat),
			Class:   headerClass,
			ColSpan: 2,
		})
	}
	return row
}

type builder struct {
	cfg   Config
	dates []core.Date
	view  *aggregate.View
	idx   logIndex
	rows  []Row
}

// mealOrder is configured meals first, then meals only seen in the log.
// Hidden meals are dropped.
func (b *builder) mealOrder() []Display {
	var out []Display
	configured := make(map[string]bool)
	for _, m := range b.cfg.Meals {
		configured[m.Key] = true
		if m.Show {
			out = append(out, m)
		}
	}
	for _, key := range b.idx.meals {
		if !configured[key] {
			out = append(out, Display{Key: key, Show: true, Name: key})
		}
	}
	return out
}

func cellClass(class, key, suffix string) string {
	if class != "" {
		return class + " " + key + " " + suffix
	}
	return key + " " + suffix
}

func (b *builder) mealGroup(meal Display) {
	rows := b.idx.maxRows[meal.Key]
	if rows < 1 {
		rows = 1
	}

	for i := 0; i < rows; i++ {
		var row Row
		if i == 0 {
			row.Cells = append(row.Cells, Cell{Text: meal.Name, Class: labelClass, RowSpan: rows})
		}
		for _, d := range b.dates {
			row.Cells = append(row.Cells, b.entryCells(meal, d, i)...)
		}
		b.rows = append(b.rows, row)
	}

	settle := Row{Cells: []Cell{{Class: labelClass}}}
	for _, d := range b.dates {
		settle.Cells = append(settle.Cells,
			Cell{Class: cellClass(meal.Class, meal.Key, "total description")},
			numberCell(cellClass(meal.Class, meal.Key, "total calorie"), b.view.ValueOrZero(d, meal.Key)),
		)
	}
	b.rows = append(b.rows, settle)
}

func (b *builder) entryCells(meal Display, d core.Date, i int) []Cell {
	desc := Cell{Class: cellClass(meal.Class, meal.Key, "entry description")}
	cal := Cell{Class: cellClass(meal.Class, meal.Key, "entry calorie")}

	items := b.idx.items[itemKey{date: d, category: meal.Key}]
	if i >= len(items) {
		return []Cell{desc, cal}
	}
	item := items[i]
	desc.Text = b.cfg.normalize(item.Description)
	cal = numberCell(cal.Class, item.Calories)
	if b.cfg.Tooltip {
		if item.Description != "" {
			desc.Tip = []string{item.Description}
		}
		if len(item.Details) > 0 {
			cal.Tip = item.Details.Lines()
		}
	}
	return []Cell{desc, cal}
}

func (b *builder) totalOrder() []Display {
	if !b.cfg.TotalsConfigured {
		var out []Display
		for _, key := range b.view.Columns() {
			out = append(out, Display{Key: key, Show: true, Name: core.TotalPrefix + key, Class: defaultTotalClass})
		}
		return out
	}
	var out []Display
	for _, t := range b.cfg.Totals {
		if t.Show {
			out = append(out, t)
		}
	}
	return out
}

func (b *builder) totalsBlock() {
	totals := b.totalOrder()
	for i, t := range totals {
		var row Row
		if i == 0 {
			row.Cells = append(row.Cells, Cell{Class: labelClass, RowSpan: len(totals)})
		}
		typ := core.TotalPrefix + t.Key
		for _, d := range b.dates {
			row.Cells = append(row.Cells,
				Cell{Text: t.Name, Class: cellClass(t.Class, typ, "result description")},
				numberCell(cellClass(t.Class, typ, "result calorie"), b.view.ValueOrZero(d, t.Key)),
			)
		}
		b.rows = append(b.rows, row)
	}
}
