// Package google stores the record log in a Google Sheet with the same five
// columns as the CSV log.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"mfpreport/internal/core"
	"mfpreport/internal/records"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *slog.Logger
}

// Ensure interface conformance
var _ records.Store = (*Client)(nil)

// Options locates the sheet and its service-account credentials.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// OptionsFromEnv reads GOOGLE_SPREADSHEET_ID, GOOGLE_SHEET_NAME and the
// credentials from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE
// or GOOGLE_APPLICATION_CREDENTIALS.
func OptionsFromEnv() Options {
	opts := Options{
		SpreadsheetID:   strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID")),
		SheetName:       strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME")),
		CredentialsJSON: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")),
		CredentialsFile: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")),
	}
	if opts.CredentialsJSON == "" && opts.CredentialsFile == "" {
		opts.CredentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	return opts
}

// NewFromEnv creates a Sheets client using environment variables.
func NewFromEnv(ctx context.Context, logger *slog.Logger) (*Client, error) {
	return Open(ctx, OptionsFromEnv(), logger)
}

// Open creates a Sheets client authenticated with a service account.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (*Client, error) {
	if opts.SpreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if opts.SheetName == "" {
		opts.SheetName = "Log"
	}
	svc, err := newSheetsService(ctx, opts, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, opts.SpreadsheetID, opts.SheetName, logger), nil
}

// New wraps an existing Sheets service.
func New(svc *gsheet.Service, spreadsheetID, sheetName string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName, logger: logger}
}

// newSheetsService initializes a Sheets Service using Service Account
// credentials over a pooled HTTP client.
func newSheetsService(ctx context.Context, opts Options, logger *slog.Logger) (*gsheet.Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var credentialsJSON []byte
	var err error

	switch {
	case opts.CredentialsJSON != "":
		logger.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(opts.CredentialsJSON)
	case opts.CredentialsFile != "":
		logger.InfoContext(ctx, "Reading credentials from file", "path", opts.CredentialsFile)
		credentialsJSON, err = os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	// The token source and the API calls share the pooled transport.
	base := context.WithValue(context.Background(), oauth2.HTTPClient, newHTTPClientWithPooling())
	creds, err := google.CredentialsFromJSON(base, credentialsJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}

	service, err := gsheet.NewService(ctx, goption.WithHTTPClient(oauth2.NewClient(base, creds.TokenSource)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// newHTTPClientWithPooling creates an HTTP client with connection pooling
// and bounded timeouts for the Sheets API.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   5,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

func (c *Client) rng(cols string) string {
	return fmt.Sprintf("%s!%s", c.sheetName, cols)
}

// LastDate reads column A and parses its final non-empty cell.
func (c *Client) LastDate(ctx context.Context) (core.Date, error) {
	if c.svc == nil {
		return core.Date{}, errors.New("sheets service not initialized")
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.rng("A:A")).Context(ctx).Do()
	if err != nil {
		return core.Date{}, fmt.Errorf("read %s: %w", c.rng("A:A"), err)
	}

	for i := len(resp.Values) - 1; i >= 0; i-- {
		row := resp.Values[i]
		if len(row) == 0 {
			continue
		}
		v := strings.TrimSpace(fmt.Sprint(row[0]))
		if v == "" {
			continue
		}
		if records.IsHeader([]string{v}) {
			return core.Date{}, records.ErrEmptyLog
		}
		d, err := core.ParseDate(v)
		if err != nil {
			return core.Date{}, fmt.Errorf("%w: %v", records.ErrMalformedTail, err)
		}
		return d, nil
	}
	return core.Date{}, records.ErrEmptyLog
}

// AppendDay sends the whole day in one values.append call. The header row
// is included when the sheet is empty.
func (c *Client) AppendDay(ctx context.Context, date core.Date, rows []core.EventRecord) error {
	if len(rows) == 0 {
		return nil
	}
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	var values [][]any
	if _, err := c.LastDate(ctx); errors.Is(err, records.ErrEmptyLog) {
		values = append(values, toAny(records.Header))
	}
	for _, r := range rows {
		if r.Date != date {
			return fmt.Errorf("row dated %s in batch for %s", r.Date, date)
		}
		cols, err := records.EncodeRow(r)
		if err != nil {
			return err
		}
		values = append(values, toAny(cols))
	}

	vr := &gsheet.ValueRange{Values: values}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.rng("A:E"), vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append day %s to %s: %w", date, c.sheetName, err)
	}
	c.logger.DebugContext(ctx, "Appended day to sheet", "date", date.String(), "rows", len(rows))
	return nil
}

// ReadAll reads columns A:E. Malformed rows are skipped with a warning.
func (c *Client) ReadAll(ctx context.Context) ([]core.EventRecord, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.rng("A:E")).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.rng("A:E"), err)
	}

	var out []core.EventRecord
	for i, row := range resp.Values {
		cols := toStrings(row)
		if len(cols) == 0 || (i == 0 && records.IsHeader(cols)) {
			continue
		}
		rec, err := records.DecodeRow(cols)
		if err != nil {
			c.logger.WarnContext(ctx, "Skipping malformed sheet row", "row", i+1, "error", err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
