// Package trace tags each request with an id and logs its completion.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	mflog "mfpreport/internal/log"
)

type ContextKey string

const RequestIDKey ContextKey = "request_id"

const requestIDHeader = "X-Request-ID"

// Middleware handles request tracing and logging
type Middleware struct {
	logger    *mflog.Logger
	extractIP func(*http.Request) string
	requests  atomic.Int64
	lastNanos atomic.Int64
}

// Metrics is a snapshot of the request counters.
type Metrics struct {
	TotalRequests int64
	LastDuration  time.Duration
}

// NewMiddleware creates a trace middleware. extractIP may be nil.
func NewMiddleware(logger *mflog.Logger, extractIP func(*http.Request) string) *Middleware {
	if logger == nil {
		logger = mflog.New(mflog.DefaultConfig())
	}
	return &Middleware{
		logger:    logger.WithComponent(mflog.ComponentTrace),
		extractIP: extractIP,
	}
}

// Middleware returns HTTP middleware for request tracing. The request
// context carries the request id and a logger bound to it.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	structured := mflog.NewStructuredLogger(m.logger)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" || len(requestID) > 64 {
			requestID = GenerateRequestID()
		}
		w.Header().Set(requestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		ctx = context.WithValue(ctx, mflog.LoggerContextKey, m.logger.With("request_id", requestID))
		r = r.WithContext(ctx)

		m.requests.Add(1)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		elapsed := time.Since(start)
		m.lastNanos.Store(int64(elapsed))
		structured.LogHTTPEnd(ctx, r, rw.statusCode, elapsed.Milliseconds(), clientIP)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(b)
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// GetMetrics returns current metrics
func (m *Middleware) GetMetrics() Metrics {
	return Metrics{
		TotalRequests: m.requests.Load(),
		LastDuration:  time.Duration(m.lastNanos.Load()),
	}
}
