package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mfpreport/internal/core"
)

type fakeSynchronizer struct {
	mu    sync.Mutex
	calls int
	res   SyncResult
	err   error
}

func (f *fakeSynchronizer) Synchronize(context.Context, *core.Date) (SyncResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.res, f.err
}

func (f *fakeSynchronizer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestDefaultSyncProcessorConfig(t *testing.T) {
	config := DefaultSyncProcessorConfig()
	if config.PollInterval != time.Hour {
		t.Errorf("expected PollInterval 1h, got %v", config.PollInterval)
	}
	p := NewSyncProcessor(&fakeSynchronizer{}, SyncProcessorConfig{}, nil, quiet())
	if p.config.PollInterval != time.Hour {
		t.Errorf("zero interval not defaulted: %v", p.config.PollInterval)
	}
}

func TestSyncProcessor_IsRunning(t *testing.T) {
	processor := NewSyncProcessor(&fakeSynchronizer{}, DefaultSyncProcessorConfig(), nil, quiet())
	if processor.IsRunning() {
		t.Error("processor should not be running initially")
	}
}

func TestSyncProcessor_StartTwice(t *testing.T) {
	processor := NewSyncProcessor(&fakeSynchronizer{}, DefaultSyncProcessorConfig(), nil, quiet())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := processor.Start(ctx); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if err := processor.Start(ctx); err == nil {
		t.Error("expected error when starting already running processor")
	}
	if err := processor.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if processor.IsRunning() {
		t.Error("processor should not be running after Stop")
	}
}

func TestSyncProcessor_StopNotRunning(t *testing.T) {
	processor := NewSyncProcessor(&fakeSynchronizer{}, DefaultSyncProcessorConfig(), nil, quiet())
	if err := processor.Stop(context.Background()); err != nil {
		t.Errorf("stopping an idle processor should be a no-op, got %v", err)
	}
}

func TestSyncProcessor_RunsImmediatelyAndOnTick(t *testing.T) {
	fake := &fakeSynchronizer{res: SyncResult{DaysCommitted: 1}}
	var mu sync.Mutex
	hooks := 0
	processor := NewSyncProcessor(fake, SyncProcessorConfig{PollInterval: 20 * time.Millisecond},
		func(context.Context, SyncResult) {
			mu.Lock()
			hooks++
			mu.Unlock()
		}, quiet())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := processor.Start(ctx); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for fake.Calls() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if err := processor.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	if fake.Calls() < 3 {
		t.Fatalf("synchronize called %d times", fake.Calls())
	}
	mu.Lock()
	defer mu.Unlock()
	if hooks != fake.Calls() {
		t.Fatalf("hook ran %d times for %d committing cycles", hooks, fake.Calls())
	}
}

func TestSyncProcessor_RunOnceRecordsError(t *testing.T) {
	fake := &fakeSynchronizer{err: errors.New("upstream down")}
	called := false
	processor := NewSyncProcessor(fake, DefaultSyncProcessorConfig(),
		func(context.Context, SyncResult) { called = true }, quiet())

	processor.RunOnce(context.Background())
	if _, err := processor.LastRun(); err == nil {
		t.Fatal("LastRun should report the failure")
	}
	if called {
		t.Fatal("hook must not run when nothing was committed")
	}
}
