package cache

import (
	"log/slog"
	"sync"
	"time"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Purge() int
	Size() int
}

// Cleaner interface for caches that support expiry cleanup
type Cleaner interface {
	CleanExpired() int
}

// Purger interface for caches that can be emptied at once
type Purger interface {
	Purge() int
}

// Manager handles cache lifecycle: periodic expiry cleanup and purging
// every registered cache when the underlying data changes.
type Manager struct {
	mu          sync.Mutex
	cleaners    []Cleaner
	purgers     []Purger
	logger      *slog.Logger
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	started     bool
}

// NewManager creates a new cache manager
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		logger:      logger,
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the manager. It must implement Cleaner,
// Purger or both.
func (m *Manager) Register(cache any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := cache.(Cleaner); ok {
		m.cleaners = append(m.cleaners, c)
	}
	if p, ok := cache.(Purger); ok {
		m.purgers = append(m.purgers, p)
	}
}

// PurgeAll empties every registered cache.
func (m *Manager) PurgeAll(reason string) int {
	m.mu.Lock()
	purgers := append([]Purger(nil), m.purgers...)
	m.mu.Unlock()

	total := 0
	for _, p := range purgers {
		total += p.Purge()
	}
	m.logger.Debug("Caches purged", "reason", reason, "entries", total)
	return total
}

// StartCleanup begins periodic cleanup of all registered caches
func (m *Manager) StartCleanup(interval time.Duration) {
	m.mu.Lock()
	m.started = true
	m.mu.Unlock()
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			cleaners := append([]Cleaner(nil), m.cleaners...)
			m.mu.Unlock()
			total := 0
			for _, c := range cleaners {
				total += c.CleanExpired()
			}
			if total > 0 {
				m.logger.Debug("Expired cache entries removed", "entries", total)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop gracefully stops the cleanup routine
func (m *Manager) Stop() {
	m.mu.Lock()
	started := m.started
	m.started = false
	m.mu.Unlock()
	if started {
		close(m.stopCleanup)
		<-m.cleanupDone
	}
}
