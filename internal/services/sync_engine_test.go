package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"mfpreport/internal/core"
	"mfpreport/internal/records/csvlog"
	"mfpreport/internal/records/memory"
	srcmem "mfpreport/internal/source/memory"
)

func fixedClock(y, m, d int) func() time.Time {
	return func() time.Time { return time.Date(y, time.Month(m), d, 15, 0, 0, 0, time.UTC) }
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func datePtr(d core.Date) *core.Date { return &d }

type recordingPublisher struct {
	mu    sync.Mutex
	dates []core.Date
	err   error
}

func (p *recordingPublisher) PublishDaySynced(_ context.Context, date core.Date, _ int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dates = append(p.dates, date)
	return p.err
}

func TestSynchronizeFreshLogWithoutStartIsNoop(t *testing.T) {
	store := memory.New()
	src := srcmem.New()
	e := NewSyncEngine(store, src, SyncEngineConfig{}, WithClock(fixedClock(2024, 1, 3)), WithLogger(quiet()))

	res, err := e.Synchronize(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Skipped || res.Reason != NothingToExtract {
		t.Fatalf("result = %+v", res)
	}
	if len(src.Calls()) != 0 || store.Len() != 0 {
		t.Fatal("no-op run touched the source or the store")
	}
}

func TestSynchronizeRangeIsInclusiveOfToday(t *testing.T) {
	store := memory.New()
	src := srcmem.New()
	e := NewSyncEngine(store, src, SyncEngineConfig{}, WithClock(fixedClock(2024, 1, 3)), WithLogger(quiet()))

	res, err := e.Synchronize(context.Background(), datePtr(core.NewDate(2024, 1, 1)))
	if err != nil {
		t.Fatal(err)
	}
	if res.DaysCommitted != 3 {
		t.Fatalf("committed %d days, want 3", res.DaysCommitted)
	}
	calls := src.Calls()
	if calls[0] != core.NewDate(2024, 1, 1) || calls[2] != core.NewDate(2024, 1, 3) {
		t.Fatalf("calls = %v", calls)
	}
}

func TestSynchronizeResumesAfterLastDate(t *testing.T) {
	d := core.NewDate(2024, 1, 1)
	store := memory.New(core.NewTotal(d, "calories", 10))
	src := srcmem.New()
	e := NewSyncEngine(store, src, SyncEngineConfig{}, WithClock(fixedClock(2024, 1, 2)), WithLogger(quiet()))

	// start is ignored when the log has a resume point
	if _, err := e.Synchronize(context.Background(), datePtr(core.NewDate(2023, 1, 1))); err != nil {
		t.Fatal(err)
	}
	calls := src.Calls()
	if len(calls) != 1 || calls[0] != core.NewDate(2024, 1, 2) {
		t.Fatalf("calls = %v", calls)
	}
}

func TestSynchronizeIdempotentOnCSV(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "mfp.csv")
	store := csvlog.New(path, quiet())
	d := core.NewDate(2024, 1, 1)
	src := srcmem.New(sampleDiary(d))
	e := NewSyncEngine(store, src, SyncEngineConfig{Alcohol: "party"}, WithClock(fixedClock(2024, 1, 2)), WithLogger(quiet()))

	if _, err := e.Synchronize(ctx, &d); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	res, err := e.Synchronize(ctx, &d)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Skipped || res.DaysCommitted != 0 {
		t.Fatalf("second run = %+v", res)
	}
	second, _ := os.ReadFile(path)
	if !bytes.Equal(first, second) {
		t.Fatal("second sync changed the log")
	}
	if n := strings.Count(string(second), ",total-calories,"); n != 2 {
		t.Fatalf("total-calories rows = %d, want one per day", n)
	}
}

func TestSynchronizeFetchFailureKeepsCommittedDays(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	src := srcmem.New()
	failDay := core.NewDate(2024, 1, 3)
	src.Fail(failDay, srcmem.ErrUnavailable)

	e := NewSyncEngine(store, src, SyncEngineConfig{}, WithClock(fixedClock(2024, 1, 4)), WithLogger(quiet()))
	start := core.NewDate(2024, 1, 1)
	res, err := e.Synchronize(ctx, &start)
	if !errors.Is(err, srcmem.ErrUnavailable) {
		t.Fatalf("err = %v, want source failure", err)
	}
	if res.DaysCommitted != 2 {
		t.Fatalf("committed %d days before the failure, want 2", res.DaysCommitted)
	}
	last, _ := store.LastDate(ctx)
	if last != core.NewDate(2024, 1, 2) {
		t.Fatalf("last committed = %v", last)
	}
	rowsBefore := store.Len()

	src.Fail(failDay, nil)
	res, err = e.Synchronize(ctx, &start)
	if err != nil {
		t.Fatal(err)
	}
	if res.From != failDay || res.DaysCommitted != 2 {
		t.Fatalf("retry = %+v", res)
	}

	all, _ := store.ReadAll(ctx)
	seen := map[core.Date]int{}
	for _, r := range all {
		if r.IsTotal() && r.Category == "calories" {
			seen[r.Date]++
		}
	}
	for _, d := range core.DaysInRange(start, core.NewDate(2024, 1, 4)) {
		if seen[d] != 1 {
			t.Fatalf("day %s has %d calorie totals", d, seen[d])
		}
	}
	if store.Len() <= rowsBefore {
		t.Fatal("retry added no rows")
	}
}

func TestSynchronizeWarnsOncePerRun(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	store := memory.New()
	src := srcmem.New()
	d1 := core.NewDate(2024, 1, 1)
	src.Put(core.Day{Date: d1, Totals: core.Nutrients{{Name: "calories", Value: 1000}, {Name: "party", Value: 200}}})

	e := NewSyncEngine(store, src, SyncEngineConfig{Alcohol: "party"}, WithClock(fixedClock(2024, 1, 4)), WithLogger(logger))
	res, err := e.Synchronize(context.Background(), &d1)
	if err != nil {
		t.Fatal(err)
	}
	if res.ConfigGaps != 3 {
		t.Fatalf("config gaps = %d, want 3", res.ConfigGaps)
	}
	if n := strings.Count(buf.String(), "Alcohol category is not in the dataset"); n != 1 {
		t.Fatalf("warning emitted %d times, want once", n)
	}

	all, _ := store.ReadAll(context.Background())
	foodOnly := 0
	for _, r := range all {
		if r.IsTotal() && r.Category == "food_only" {
			foodOnly++
			if r.Date != d1 || r.Calories != 800 {
				t.Fatalf("unexpected food_only %+v", r)
			}
		}
	}
	if foodOnly != 1 {
		t.Fatalf("food_only rows = %d, want 1", foodOnly)
	}
}

func TestSynchronizeMalformedTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mfp.csv")
	content := "date,type,description,calories,details\n2024-01-01,lunch,\"tor"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	store := csvlog.New(path, quiet())
	src := srcmem.New()
	e := NewSyncEngine(store, src, SyncEngineConfig{}, WithClock(fixedClock(2024, 1, 2)), WithLogger(quiet()))

	res, err := e.Synchronize(context.Background(), nil)
	if err != nil || !res.Skipped || res.Reason != UnreadableTail {
		t.Fatalf("without start: res=%+v err=%v", res, err)
	}

	start := core.NewDate(2024, 1, 2)
	res, err = e.Synchronize(context.Background(), &start)
	if err != nil || res.DaysCommitted != 1 {
		t.Fatalf("with start: res=%+v err=%v", res, err)
	}
}

func TestSynchronizePublishesCommittedDays(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	start := core.NewDate(2024, 1, 1)
	e := NewSyncEngine(memory.New(), srcmem.New(), SyncEngineConfig{},
		WithClock(fixedClock(2024, 1, 2)), WithLogger(quiet()), WithPublisher(pub))

	res, err := e.Synchronize(context.Background(), &start)
	if err != nil {
		t.Fatalf("publish failure must not fail the sync: %v", err)
	}
	if len(pub.dates) != 2 || res.DaysCommitted != 2 {
		t.Fatalf("published %v, committed %d", pub.dates, res.DaysCommitted)
	}
}

func TestSynchronizeStartInFuture(t *testing.T) {
	start := core.NewDate(2024, 2, 1)
	e := NewSyncEngine(memory.New(), srcmem.New(), SyncEngineConfig{}, WithClock(fixedClock(2024, 1, 2)), WithLogger(quiet()))
	res, err := e.Synchronize(context.Background(), &start)
	if err != nil || !res.Skipped || res.DaysCommitted != 0 {
		t.Fatalf("res=%+v err=%v", res, err)
	}
}
