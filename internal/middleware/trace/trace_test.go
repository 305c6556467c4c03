package trace

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	mflog "mfpreport/internal/log"
)

func TestMiddlewareTagsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := mflog.New(mflog.Config{Level: slog.LevelDebug, Format: "json", Output: &buf})

	var seenID string
	var seenLogger *mflog.Logger
	handler := NewMiddleware(logger, func(*http.Request) string { return "10.0.0.1" }).
		Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seenID = GetRequestID(r.Context())
			seenLogger = mflog.FromContext(r.Context())
			w.WriteHeader(http.StatusNotFound)
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report?days=3", nil))

	if !strings.HasPrefix(seenID, "req_") {
		t.Errorf("request id = %q", seenID)
	}
	if rec.Header().Get("X-Request-ID") != seenID {
		t.Errorf("response header = %q, want %q", rec.Header().Get("X-Request-ID"), seenID)
	}
	if seenLogger == nil || seenLogger.Component() != mflog.ComponentTrace {
		t.Errorf("context logger = %+v", seenLogger)
	}
	out := buf.String()
	for _, want := range []string{`"status_code":404`, `"client_ip":"10.0.0.1"`, `"level":"WARN"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %s: %s", want, out)
		}
	}
}

func TestMiddlewareKeepsIncomingRequestID(t *testing.T) {
	var seen string
	handler := NewMiddleware(nil, nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "upstream-1")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "upstream-1" {
		t.Errorf("request id = %q", seen)
	}
}

func TestMetricsCount(t *testing.T) {
	m := NewMiddleware(nil, nil)
	h := m.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	for i := 0; i < 3; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}
	if got := m.GetMetrics().TotalRequests; got != 3 {
		t.Errorf("total requests = %d", got)
	}
}

func TestGetRequestIDMissing(t *testing.T) {
	if id := GetRequestID(context.Background()); id != "" {
		t.Errorf("id = %q", id)
	}
}
