// Package http serves rendered nutrition reports and the pivot export
// over HTTP. Pages are read-only views of the record log.
package http

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"mfpreport/internal/cache"
	"mfpreport/internal/layout"
	mflog "mfpreport/internal/log"
	"mfpreport/internal/middleware/security"
	"mfpreport/internal/middleware/trace"
	"mfpreport/internal/records"
	"mfpreport/internal/render"
	"mfpreport/internal/report"
	appweb "mfpreport/web"
)

const (
	defaultCacheSize  = 64
	defaultCacheTTL   = 30 * time.Minute
	staticMaxAge      = 3600
	snapshotKey       = "log"
	readyCheckTimeout = 5 * time.Second
)

// ServerConfig configures NewServer. Zero values get defaults.
type ServerConfig struct {
	Addr      string
	Days      int
	Layout    layout.Config
	CacheSize int
	CacheTTL  time.Duration
	Logger    *mflog.Logger
	// Now is used for the default report end when the log is empty.
	Now func() time.Time
}

type Server struct {
	http.Server
	cfg      ServerConfig
	reader   records.Reader
	renderer *render.Renderer
	logger   *mflog.Logger
	tracer   *trace.Middleware

	caches    *cache.Manager
	pages     *cache.LRUCache[[]byte]
	snapshots *cache.LRUCache[*report.Snapshot]

	// guards the reload of a purged snapshot
	loadMu sync.Mutex

	started      time.Time
	invalidated  atomic.Int64
	shutdownOnce sync.Once
}

// NewServer wires routes and caches and returns a server ready to run.
func NewServer(cfg ServerConfig, reader records.Reader, renderer *render.Renderer) (*Server, error) {
	if reader == nil {
		return nil, fmt.Errorf("record reader is required")
	}
	if renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}
	if cfg.Days < 1 {
		cfg.Days = DefaultDays
	}
	if cfg.CacheSize < 1 {
		cfg.CacheSize = defaultCacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = mflog.New(mflog.DefaultConfig())
	}
	if cfg.Layout.Stylesheet == "" || cfg.Layout.Stylesheet == render.DefaultStylesheet {
		cfg.Layout.Stylesheet = "/static/" + render.DefaultStylesheet
	}
	logger := cfg.Logger.WithComponent(mflog.ComponentHTTP)

	resolver, err := NewClientIPResolver(DefaultTrustedProxies)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:       cfg,
		reader:    reader,
		renderer:  renderer,
		logger:    logger,
		tracer:    trace.NewMiddleware(logger, resolver.ClientIP),
		caches:    cache.NewManager(logger.Slog()),
		pages:     cache.NewLRUCache[[]byte](cfg.CacheSize, cfg.CacheTTL),
		snapshots: cache.NewLRUCache[*report.Snapshot](1, cfg.CacheTTL),
		started:   time.Now(),
	}
	s.caches.Register(s.pages)
	s.caches.Register(s.snapshots)
	s.caches.StartCleanup(cfg.CacheTTL)

	mux := http.NewServeMux()

	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount embedded static files: %w", err)
	}
	static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	mux.Handle("GET /static/", security.StaticAssetMiddleware(staticMaxAge)(static))

	mux.Handle("GET /{$}", security.NoStore(http.HandlerFunc(s.handleIndex)))
	mux.Handle("GET /report", security.NoStore(http.HandlerFunc(s.handleReport)))
	mux.Handle("GET /pivot.json", security.NoStore(http.HandlerFunc(s.handlePivot)))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.tracer.Middleware(headers.Middleware(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Invalidate drops every cached page and the log snapshot. It is called
// when the record log changes.
func (s *Server) Invalidate(reason string) int {
	s.invalidated.Add(1)
	n := s.caches.PurgeAll(reason)
	s.logger.Info("Report cache invalidated", "reason", reason, "entries", n)
	return n
}

// loadSnapshot returns the cached log or reads and pivots it again.
func (s *Server) loadSnapshot(ctx context.Context) (*report.Snapshot, error) {
	if snap, ok := s.snapshots.Get(snapshotKey); ok {
		return snap, nil
	}
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if snap, ok := s.snapshots.Get(snapshotKey); ok {
		return snap, nil
	}

	// an invalidation during the read must not leave a stale snapshot behind
	generation := s.invalidated.Load()
	snap, err := report.Load(ctx, s.reader, s.logger.Slog())
	if err != nil {
		return nil, err
	}
	if generation == s.invalidated.Load() {
		s.snapshots.Set(snapshotKey, snap)
	}
	return snap, nil
}

// renderPage builds and renders the report for p, using the page cache.
// generation is the invalidation count seen before snap was loaded.
func (s *Server) renderPage(snap *report.Snapshot, p ReportParams, generation int64) ([]byte, error) {
	if page, ok := s.pages.Get(p.Key()); ok {
		return page, nil
	}
	doc := snap.Document(s.cfg.Layout, p.Start, p.End)
	var buf bytes.Buffer
	if err := s.renderer.HTML(&buf, doc, false); err != nil {
		return nil, err
	}
	page := buf.Bytes()
	if generation == s.invalidated.Load() {
		s.pages.Set(p.Key(), page)
	}
	return page, nil
}

// Shutdown stops the cache cleanup and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
