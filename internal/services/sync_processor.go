package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mfpreport/internal/core"
)

// Synchronizer is the part of SyncEngine the processor drives.
type Synchronizer interface {
	Synchronize(ctx context.Context, start *core.Date) (SyncResult, error)
}

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// PollInterval is how often to synchronize (default: 1h)
	PollInterval time.Duration

	// Start is used only while the record log is still empty
	Start *core.Date
}

// DefaultSyncProcessorConfig returns sensible defaults
func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval: time.Hour,
	}
}

// SyncProcessor runs the sync engine periodically. After every run that
// committed at least one day, OnSynced is called on the same goroutine,
// so nothing reads the log while a sync is writing it.
type SyncProcessor struct {
	engine   Synchronizer
	config   SyncProcessorConfig
	onSynced func(ctx context.Context, res SyncResult)
	logger   *slog.Logger

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	lastRun SyncResult
	lastErr error
}

// NewSyncProcessor creates a new sync processor
func NewSyncProcessor(engine Synchronizer, config SyncProcessorConfig, onSynced func(context.Context, SyncResult), logger *slog.Logger) *SyncProcessor {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultSyncProcessorConfig().PollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncProcessor{
		engine:   engine,
		config:   config,
		onSynced: onSynced,
		logger:   logger,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	p.logger.InfoContext(ctx, "Sync processor started", "poll_interval", p.config.PollInterval)
	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		p.logger.InfoContext(ctx, "Sync processor stopped gracefully")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the processor is currently running
func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// LastRun returns the outcome of the most recent cycle.
func (p *SyncProcessor) LastRun() (SyncResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastRun, p.lastErr
}

// runLoop is the main processing loop
func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	// Process immediately on startup
	p.RunOnce(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sync cycle.
func (p *SyncProcessor) RunOnce(ctx context.Context) {
	res, err := p.engine.Synchronize(ctx, p.config.Start)

	p.mu.Lock()
	p.lastRun, p.lastErr = res, err
	p.mu.Unlock()

	if err != nil {
		// the next tick resumes after the last committed day
		p.logger.ErrorContext(ctx, "Synchronization failed",
			"committed", res.DaysCommitted, "error", err)
	}
	if res.DaysCommitted > 0 && p.onSynced != nil {
		p.onSynced(ctx, res)
	}
}
