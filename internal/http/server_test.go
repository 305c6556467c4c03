package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"mfpreport/internal/core"
	mflog "mfpreport/internal/log"
	"mfpreport/internal/records/memory"
	"mfpreport/internal/render"
)

var (
	jan1 = core.NewDate(2024, 1, 1)
	jan2 = core.NewDate(2024, 1, 2)
)

type countingReader struct {
	store *memory.Store
	reads atomic.Int32
	err   error
}

func (c *countingReader) ReadAll(ctx context.Context) ([]core.EventRecord, error) {
	c.reads.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.store.ReadAll(ctx)
}

func seedStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New()
	err := store.AppendDay(context.Background(), jan1, []core.EventRecord{
		core.NewLineItem(jan1, "lunch", "Apple", 80, core.Nutrients{{Name: "calories", Value: 80}}),
		core.NewTotal(jan1, "lunch", 80),
		core.NewTotal(jan1, "calories", 80),
	})
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func newTestServer(t *testing.T, reader *countingReader) *Server {
	t.Helper()
	renderer, err := render.New()
	if err != nil {
		t.Fatal(err)
	}
	logger := mflog.New(mflog.Config{Level: slog.LevelError, Output: io.Discard})
	srv, err := NewServer(ServerConfig{
		Addr:   ":0",
		Logger: logger,
		Now:    func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) },
	}, reader, renderer)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv
}

func get(srv *Server, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestIndexShowsWeekEndingAtLastLoggedDay(t *testing.T) {
	srv := newTestServer(t, &countingReader{store: seedStore(t)})

	rr := get(srv, "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`<th class="header" colspan="2">Tuesday 26 Dec</th>`,
		`<th class="header" colspan="2">Monday 1 Jan</th>`,
		`href="/static/report.css"`,
		`<td class="lunch total calorie">80</td>`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if got := rr.Header().Get("Content-Security-Policy"); !strings.Contains(got, "script-src 'none'") {
		t.Errorf("CSP = %q", got)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing request id")
	}
}

func TestIndexOnEmptyLogEndsToday(t *testing.T) {
	srv := newTestServer(t, &countingReader{store: memory.New()})
	rr := get(srv, "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Saturday 1 Jun") {
		t.Error("empty log should end the window today")
	}
}

func TestReportQuery(t *testing.T) {
	srv := newTestServer(t, &countingReader{store: seedStore(t)})

	tests := []struct {
		path string
		code int
		want string
	}{
		{path: "/report?end=2024-01-02&days=2", code: http.StatusOK, want: "Tuesday 2 Jan"},
		{path: "/report?days=1", code: http.StatusOK, want: "Monday 1 Jan"},
		{path: "/report?days=0", code: http.StatusBadRequest, want: "days must be"},
		{path: "/report?end=yesterday", code: http.StatusBadRequest, want: "end must be"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := get(srv, tt.path)
			if rr.Code != tt.code {
				t.Fatalf("status = %d, want %d", rr.Code, tt.code)
			}
			if !strings.Contains(rr.Body.String(), tt.want) {
				t.Errorf("body missing %q", tt.want)
			}
		})
	}
}

func TestPagesAreCachedUntilInvalidated(t *testing.T) {
	store := seedStore(t)
	reader := &countingReader{store: store}
	srv := newTestServer(t, reader)

	first := get(srv, "/report?end=2024-01-02&days=2").Body.String()
	second := get(srv, "/report?end=2024-01-02&days=2").Body.String()
	if first != second {
		t.Error("cached page differs")
	}
	if n := reader.reads.Load(); n != 1 {
		t.Fatalf("reads = %d, want 1", n)
	}

	err := store.AppendDay(context.Background(), jan2, []core.EventRecord{core.NewTotal(jan2, "lunch", 555)})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(get(srv, "/report?end=2024-01-02&days=2").Body.String(), ">555<") {
		t.Fatal("page refreshed before invalidation")
	}

	if n := srv.Invalidate("test"); n == 0 {
		t.Error("invalidate purged nothing")
	}
	if !strings.Contains(get(srv, "/report?end=2024-01-02&days=2").Body.String(), ">555<") {
		t.Error("page not refreshed after invalidation")
	}
	if n := reader.reads.Load(); n != 2 {
		t.Errorf("reads = %d, want 2", n)
	}
}

func TestPivotJSON(t *testing.T) {
	store := seedStore(t)
	store.AppendDay(context.Background(), jan2, []core.EventRecord{core.NewTotal(jan2, "bmr", 1500)})
	srv := newTestServer(t, &countingReader{store: store})

	rr := get(srv, "/pivot.json?from=2024-01-02")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"date":"2024-01-02"`) {
		t.Errorf("pivot dates should be calendar dates: %s", rr.Body.String())
	}
	var resp PivotResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if strings.Join(resp.Columns, ",") != "lunch,calories,bmr" {
		t.Errorf("columns = %v", resp.Columns)
	}
	if len(resp.Rows) != 1 || resp.Rows[0].Date != jan2 || resp.Rows[0].Values["bmr"] != 1500 {
		t.Errorf("rows = %+v", resp.Rows)
	}
	if _, ok := resp.Rows[0].Values["lunch"]; ok {
		t.Error("unset cell should be omitted")
	}

	if rr := get(srv, "/pivot.json?from=2024-01-03&to=2024-01-01"); rr.Code != http.StatusBadRequest {
		t.Errorf("inverted range status = %d", rr.Code)
	}
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, &countingReader{store: seedStore(t)})
	for _, path := range []string{"/healthz", "/readyz"} {
		if rr := get(srv, path); rr.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rr.Code)
		}
	}

	broken := newTestServer(t, &countingReader{err: errors.New("disk gone")})
	if rr := get(broken, "/readyz"); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz status = %d", rr.Code)
	}
	if rr := get(broken, "/"); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("index status = %d", rr.Code)
	}
}

func TestStaticStylesheet(t *testing.T) {
	srv := newTestServer(t, &countingReader{store: memory.New()})
	rr := get(srv, "/static/report.css")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := rr.Header().Get("Cache-Control"); got != "public, max-age=3600" {
		t.Errorf("Cache-Control = %q", got)
	}
	if !strings.Contains(rr.Body.String(), "span.tip") {
		t.Error("stylesheet body missing")
	}
}

func TestUnknownPath(t *testing.T) {
	srv := newTestServer(t, &countingReader{store: memory.New()})
	if rr := get(srv, "/admin"); rr.Code != http.StatusNotFound {
		t.Errorf("status = %d", rr.Code)
	}
}

func TestNewServerRequiresDependencies(t *testing.T) {
	renderer, _ := render.New()
	if _, err := NewServer(ServerConfig{}, nil, renderer); err == nil {
		t.Error("expected error without reader")
	}
	if _, err := NewServer(ServerConfig{}, &countingReader{store: memory.New()}, nil); err == nil {
		t.Error("expected error without renderer")
	}
}
