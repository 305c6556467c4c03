package aggregate

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"

	"mfpreport/internal/core"
)

func TestPivot(t *testing.T) {
	d1 := core.NewDate(2024, 1, 1)
	d2 := core.NewDate(2024, 1, 2)
	log := []core.EventRecord{
		core.NewLineItem(d2, "lunch", "apple", 80, nil),
		core.NewTotal(d2, "lunch", 80),
		core.NewTotal(d2, "calories", 80),
		core.NewTotal(d1, "calories", 500),
		core.NewTotal(d1, "party", 100),
	}
	v := Pivot(log, slog.New(slog.NewTextHandler(io.Discard, nil)))

	dates := v.Dates()
	if len(dates) != 2 || dates[0] != d1 || dates[1] != d2 {
		t.Fatalf("dates = %v", dates)
	}
	cols := v.Columns()
	if strings.Join(cols, ",") != "lunch,calories,party" {
		t.Fatalf("columns = %v", cols)
	}
	if _, ok := v.Value(d1, "lunch"); ok {
		t.Fatal("absent combination must stay unset")
	}
	if v.ValueOrZero(d1, "lunch") != 0 || v.ValueOrZero(d1, "calories") != 500 {
		t.Fatal("unexpected values")
	}
	if v.Duplicates() != 0 {
		t.Fatalf("duplicates = %d", v.Duplicates())
	}
}

func TestPivotDuplicateLastWins(t *testing.T) {
	var buf bytes.Buffer
	d := core.NewDate(2024, 1, 1)
	v := Pivot([]core.EventRecord{
		core.NewTotal(d, "calories", 100),
		core.NewTotal(d, "calories", 250),
	}, slog.New(slog.NewTextHandler(&buf, nil)))

	if got, _ := v.Value(d, "calories"); got != 250 {
		t.Fatalf("value = %d, want last write 250", got)
	}
	if v.Duplicates() != 1 {
		t.Fatalf("duplicates = %d", v.Duplicates())
	}
	if !strings.Contains(buf.String(), "level=WARN") {
		t.Fatal("duplicate must be warned")
	}
}

func TestWriteCSV(t *testing.T) {
	d1 := core.NewDate(2024, 1, 1)
	d2 := core.NewDate(2024, 1, 2)
	v := Pivot([]core.EventRecord{
		core.NewTotal(d1, "calories", 500),
		core.NewTotal(d2, "bmr", 7),
	}, nil)

	var buf bytes.Buffer
	if err := v.WriteCSV(&buf, core.Date{}, core.Date{}); err != nil {
		t.Fatal(err)
	}
	want := "date,calories,bmr\n2024-01-01,500,\n2024-01-02,,7\n"
	if buf.String() != want {
		t.Fatalf("csv =\n%s\nwant\n%s", buf.String(), want)
	}

	buf.Reset()
	if err := v.WriteCSV(&buf, d2, core.Date{}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "2024-01-01") {
		t.Fatalf("from bound ignored:\n%s", buf.String())
	}
}

func TestPivotEmpty(t *testing.T) {
	v := Pivot(nil, nil)
	if v.Len() != 0 || len(v.Columns()) != 0 {
		t.Fatal("empty log must give an empty view")
	}
}
