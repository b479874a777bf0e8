package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/p-n-ai/pai-academy/internal/platform/config"
)

func testConfig(t *testing.T, driver string) *config.Config {
	t.Helper()
	return &config.Config{
		Server:      config.ServerConfig{Port: 8080, GameSeconds: 60},
		Store:       config.StoreConfig{Driver: driver, Path: t.TempDir()},
		Jobs:        config.JobsConfig{Enabled: true, RolloverSpec: "0 0 * * *", SweepSpec: "@every 5m"},
		Log:         config.LogConfig{Level: "info", Format: "json"},
		ProfileID:   "local",
		CatalogPath: filepath.Join("..", "..", "content"),
		Timezone:    "UTC",
		Languages:   []string{"en"},
	}
}

func TestHealthEndpoints(t *testing.T) {
	a, err := newApp(t.Context(), testConfig(t, config.StoreMemory))
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.close()
	handler := a.server.Handler()

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "healthz returns 200",
			path:       "/healthz",
			wantStatus: http.StatusOK,
			wantBody:   "{\"status\":\"ok\"}\n",
		},
		{
			name:       "readyz returns 200",
			path:       "/readyz",
			wantStatus: http.StatusOK,
			wantBody:   "{\"status\":\"ready\"}\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestNewApp_Stores(t *testing.T) {
	for _, driver := range []string{config.StoreMemory, config.StoreFile, config.StoreSQLite} {
		t.Run(driver, func(t *testing.T) {
			a, err := newApp(t.Context(), testConfig(t, driver))
			if err != nil {
				t.Fatalf("newApp() error = %v", err)
			}
			defer a.close()

			if a.scheduler == nil || a.scheduler.Entries() != 2 {
				t.Error("scheduler not started with both jobs")
			}
			if got := a.svc.Catalog().TotalLessons(); got == 0 {
				t.Error("catalog loaded no lessons")
			}
			if a.svc.Snapshot().ProfileID != "local" {
				t.Errorf("ProfileID = %q", a.svc.Snapshot().ProfileID)
			}
		})
	}
}

func TestNewApp_FileStorePersists(t *testing.T) {
	cfg := testConfig(t, config.StoreFile)
	cfg.Jobs.Enabled = false

	first, err := newApp(t.Context(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := first.svc.Rename(t.Context(), "Ada"); err != nil {
		t.Fatal(err)
	}
	first.close()

	second, err := newApp(t.Context(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer second.close()
	if got := second.svc.Snapshot().Name; got != "Ada" {
		t.Errorf("Name after restart = %q, want Ada", got)
	}
}

func TestNewApp_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"missing catalog", func(c *config.Config) { c.CatalogPath = filepath.Join(t.TempDir(), "nope") }},
		{"unknown store", func(c *config.Config) { c.Store.Driver = "mongo" }},
		{"bad cron", func(c *config.Config) { c.Jobs.RolloverSpec = "every day" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, config.StoreMemory)
			tt.mutate(cfg)
			if _, err := newApp(t.Context(), cfg); err == nil {
				t.Error("newApp() should fail")
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output %q is not one JSON line: %v", buf.String(), err)
	}
	if entry["msg"] != "shown" || entry["key"] != "value" {
		t.Errorf("entry = %v", entry)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"loud", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
