// Package httpapi fetches diary days from an HTTP JSON endpoint.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"mfpreport/internal/core"
	"mfpreport/internal/source"
)

const maxBodyBytes = 4 << 20

// ErrDateMismatch is returned when the upstream answers for another day.
var ErrDateMismatch = errors.New("upstream answered for another date")

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

var _ source.DayFetcher = (*Client)(nil)

type Option func(*Client)

// WithHTTPClient replaces the pooled default client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithToken sends "Authorization: Bearer <token>" on every request.
func WithToken(token string) Option {
	return func(cl *Client) { cl.token = strings.TrimSpace(token) }
}

func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("missing source base URL")
	}
	c := &Client{baseURL: baseURL, http: newPooledClient(), logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func newPooledClient() *http.Client {
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			DialContext:           dialer.DialContext,
			MaxIdleConns:          10,
			MaxIdleConnsPerHost:   2,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 20 * time.Second,
			ForceAttemptHTTP2:     true,
		},
	}
}

// FetchDay issues GET {base}/diary/{date}.
func (c *Client) FetchDay(ctx context.Context, date core.Date) (core.Day, error) {
	url := fmt.Sprintf("%s/diary/%s", c.baseURL, date.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return core.Day{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return core.Day{}, fmt.Errorf("fetch %s: %w", date, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return core.Day{}, fmt.Errorf("fetch %s: upstream returned %d: %s",
			date, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var day core.Day
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&day); err != nil {
		return core.Day{}, fmt.Errorf("decode %s: %w", date, err)
	}
	if day.Date.IsZero() {
		day.Date = date
	}
	if day.Date != date {
		return core.Day{}, fmt.Errorf("fetch %s: %w: %s", date, ErrDateMismatch, day.Date)
	}

	c.logger.DebugContext(ctx, "Fetched diary day",
		"date", date.String(),
		"meals", len(day.Meals),
		"duration", time.Since(start))
	return day, nil
}
