package backend

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mfpreport/internal/config"
	"mfpreport/internal/core"
	"mfpreport/internal/records/csvlog"
	"mfpreport/internal/records/memory"
	"mfpreport/internal/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFromAppConfig(t *testing.T) {
	app := &config.Config{
		RecordBackend:            "sheets",
		GoogleSpreadsheetID:      "abc",
		GoogleSheetName:          "Log",
		GoogleServiceAccountJSON: "{}",
		SourceBackend:            "http",
		SourceURL:                "http://diary.local",
		SourceToken:              "secret",
	}
	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store != SheetsStore || cfg.Sheets.SpreadsheetID != "abc" || cfg.Sheets.CredentialsJSON != "{}" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Source != HTTPSource || cfg.SourceToken != "secret" {
		t.Errorf("cfg = %+v", cfg)
	}

	if _, err := FromAppConfig(nil); err == nil {
		t.Error("nil app config should fail")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"unknown store", Config{Store: "xls", Source: HTTPSource}, "invalid record backend"},
		{"unknown source", Config{Store: MemoryStore, Source: "ftp"}, "invalid source backend"},
		{"csv without file", Config{Store: CSVStore, Source: HTTPSource}, "CSV file path is required"},
		{"sqlite without path", Config{Store: SQLiteStore, Source: HTTPSource}, "SQLite database path is required"},
		{"sheets without id", Config{Store: SheetsStore, Source: HTTPSource}, "Spreadsheet ID is required"},
		{"memory source without dir", Config{Store: MemoryStore, Source: MemorySource}, "source directory is required"},
		{"valid", Config{Store: MemoryStore, Source: HTTPSource}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestCreateStore(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(quietLogger())
	dir := t.TempDir()

	t.Run("csv", func(t *testing.T) {
		res, err := f.CreateStore(ctx, Config{Store: CSVStore, CSVFile: filepath.Join(dir, "log.csv")})
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := res.Store.(*csvlog.Log); !ok {
			t.Fatalf("store = %T", res.Store)
		}
		if !filepath.IsAbs(res.WatchPath) {
			t.Errorf("watch path = %q", res.WatchPath)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		res, err := f.CreateStore(ctx, Config{Store: SQLiteStore, SQLiteDBPath: filepath.Join(dir, "db", "log.db")})
		if err != nil {
			t.Fatal(err)
		}
		defer res.Cleanup()
		if _, ok := res.Store.(*storage.SQLiteRepository); !ok {
			t.Fatalf("store = %T", res.Store)
		}
	})

	t.Run("memory", func(t *testing.T) {
		res, err := f.CreateStore(ctx, Config{Store: MemoryStore})
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := res.Store.(*memory.Store); !ok {
			t.Fatalf("store = %T", res.Store)
		}
	})

	t.Run("unsupported", func(t *testing.T) {
		if _, err := f.CreateStore(ctx, Config{Store: "xls"}); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestCreateSource(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(quietLogger())

	dir := t.TempDir()
	day := `{"meals":[{"name":"Lunch","entries":[{"name":"apple","nutrition_information":{"calories":80}}]}],"totals":{"calories":80},"goals":{"calories":2000}}`
	if err := os.WriteFile(filepath.Join(dir, "2024-01-01.json"), []byte(day), 0644); err != nil {
		t.Fatal(err)
	}

	src, err := f.CreateSource(ctx, Config{Source: MemorySource, SourceDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	got, err := src.FetchDay(ctx, core.NewDate(2024, 1, 1))
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Meals) != 1 || got.Meals[0].Entries[0].Name != "apple" {
		t.Errorf("day = %+v", got)
	}

	if _, err := f.CreateSource(ctx, Config{Source: HTTPSource}); err == nil {
		t.Error("http source without URL should fail")
	}
	if _, err := f.CreateSource(ctx, Config{Source: MemorySource, SourceDir: filepath.Join(dir, "missing")}); err == nil {
		t.Error("missing fixture dir should fail")
	}
}
