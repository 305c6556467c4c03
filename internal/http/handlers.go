package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"mfpreport/internal/core"
	mflog "mfpreport/internal/log"
)

// PivotRow is one date of the pivot export.
type PivotRow struct {
	Date   core.Date      `json:"date"`
	Values map[string]int `json:"values"`
}

// PivotResponse is the body of /pivot.json.
type PivotResponse struct {
	Columns    []string   `json:"columns"`
	Rows       []PivotRow `json:"rows"`
	Duplicates int        `json:"duplicates"`
}

// handleIndex shows the default window ending at the last logged date.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.serveReport(w, r, nil)
}

// handleReport accepts end and days in the query string.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	s.serveReport(w, r, r.URL.Query())
}

func (s *Server) serveReport(w http.ResponseWriter, r *http.Request, query url.Values) {
	ctx := r.Context()
	generation := s.invalidated.Load()
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		s.fail(ctx, w, "Failed to load record log", err, http.StatusServiceUnavailable)
		return
	}

	end := snap.EndDate(core.DateOf(s.cfg.Now()))
	p, err := ParseReportParams(query, end, s.cfg.Days)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	page, err := s.renderPage(snap, p, generation)
	if err != nil {
		s.fail(ctx, w, "Failed to render report", err, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

func (s *Server) handlePivot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rng, err := ParseRangeParams(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		s.fail(ctx, w, "Failed to load record log", err, http.StatusServiceUnavailable)
		return
	}

	resp := PivotResponse{
		Columns:    snap.View.Columns(),
		Rows:       []PivotRow{},
		Duplicates: snap.View.Duplicates(),
	}
	for _, d := range snap.View.Dates() {
		if !rng.Contains(d) {
			continue
		}
		row := PivotRow{Date: d, Values: map[string]int{}}
		for _, c := range resp.Columns {
			if v, ok := snap.View.Value(d, c); ok {
				row.Values[c] = v
			}
		}
		resp.Rows = append(resp.Rows, row)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports whether the record log can be read.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
	defer cancel()

	checks := map[string]string{}
	status, code := "ready", http.StatusOK
	if snap, err := s.loadSnapshot(ctx); err != nil {
		checks["records"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["records"] = "ok"
		checks["rows"] = strconv.Itoa(len(snap.Log))
	}
	hits, misses := s.pages.Stats()
	writeJSON(w, code, map[string]any{
		"status":     status,
		"timestamp":  time.Now().Format(time.RFC3339),
		"checks":     checks,
		"page_cache": map[string]int64{
			"hits":   hits,
			"misses": misses,
		},
	})
}

func (s *Server) fail(ctx context.Context, w http.ResponseWriter, msg string, err error, code int) {
	if errors.Is(err, context.Canceled) {
		return
	}
	mflog.NewStructuredLogger(s.logger).LogError(ctx, msg, err, mflog.ComponentHTTP, mflog.OpRender, nil)
	http.Error(w, http.StatusText(code), code)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
