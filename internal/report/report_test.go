package report

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mfpreport/internal/core"
	"mfpreport/internal/layout"
	"mfpreport/internal/records/memory"
	"mfpreport/internal/render"
)

type failingReader struct{}

func (failingReader) ReadAll(context.Context) ([]core.EventRecord, error) {
	return nil, errors.New("boom")
}

func seeded(t *testing.T) *Snapshot {
	t.Helper()
	var rows []core.EventRecord
	for d := core.NewDate(2024, 1, 1); !d.After(core.NewDate(2024, 1, 20)); d = d.AddDays(1) {
		rows = append(rows,
			core.NewLineItem(d, "lunch", "rice", 200, nil),
			core.NewTotal(d, "lunch", 200))
	}
	snap, err := Load(context.Background(), memory.New(rows...), nil)
	if err != nil {
		t.Fatal(err)
	}
	return snap
}

func newWriter(t *testing.T) (*Writer, string) {
	t.Helper()
	r, err := render.New()
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	return NewWriter(r, layout.Config{Stylesheet: render.DefaultStylesheet}, dir, nil), dir
}

func TestLoad(t *testing.T) {
	snap := seeded(t)
	if snap.Last != core.NewDate(2024, 1, 20) {
		t.Errorf("last = %s", snap.Last)
	}
	if snap.View.Len() != 20 {
		t.Errorf("pivot dates = %d", snap.View.Len())
	}

	if _, err := Load(context.Background(), failingReader{}, nil); err == nil {
		t.Error("expected read error")
	}
}

func TestEndDate(t *testing.T) {
	fallback := core.NewDate(2030, 1, 1)
	empty, err := Load(context.Background(), memory.New(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := empty.EndDate(fallback); got != fallback {
		t.Errorf("empty log end = %s", got)
	}
	if got := seeded(t).EndDate(fallback); got != core.NewDate(2024, 1, 20) {
		t.Errorf("end = %s", got)
	}
}

func TestWindow(t *testing.T) {
	end := core.NewDate(2024, 3, 1)
	if got := Window(end, 7); got != core.NewDate(2024, 2, 24) {
		t.Errorf("start = %s", got)
	}
	if got := Window(end, 1); got != end {
		t.Errorf("single day start = %s", got)
	}
}

func TestWriterDays(t *testing.T) {
	w, dir := newWriter(t)
	path, err := w.Days(seeded(t), core.NewDate(2024, 1, 20), 3)
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, "report.html") {
		t.Errorf("path = %s", path)
	}
	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(body), `class="header"`); n != 3 {
		t.Errorf("date headers = %d, want 3", n)
	}
	if _, err := os.Stat(filepath.Join(dir, render.DefaultStylesheet)); err != nil {
		t.Errorf("stylesheet missing: %v", err)
	}
}

func TestWriterWeeks(t *testing.T) {
	w, dir := newWriter(t)
	paths, err := w.Weeks(context.Background(), seeded(t), core.NewDate(2024, 1, 20), 3)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"report_2024-01-20.html", "report_2024-01-13.html", "report_2024-01-06.html"}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v", paths)
	}
	for i, p := range paths {
		if p != filepath.Join(dir, want[i]) {
			t.Errorf("path %d = %s, want %s", i, p, want[i])
		}
		body, err := os.ReadFile(p)
		if err != nil {
			t.Fatal(err)
		}
		if n := strings.Count(string(body), `class="header"`); n != DaysPerWeek {
			t.Errorf("%s: date headers = %d", want[i], n)
		}
	}
}

func TestWriterWeeksCancelled(t *testing.T) {
	w, _ := newWriter(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := w.Weeks(ctx, seeded(t), core.NewDate(2024, 1, 20), 2); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
