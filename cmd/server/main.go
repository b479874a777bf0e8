package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-academy/internal/academy"
	"github.com/p-n-ai/pai-academy/internal/api"
	"github.com/p-n-ai/pai-academy/internal/catalog"
	"github.com/p-n-ai/pai-academy/internal/jobs"
	"github.com/p-n-ai/pai-academy/internal/platform/cache"
	"github.com/p-n-ai/pai-academy/internal/platform/config"
	"github.com/p-n-ai/pai-academy/internal/platform/database"
	"github.com/p-n-ai/pai-academy/internal/progress"
	"github.com/p-n-ai/pai-academy/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Log, os.Stdout))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	app, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.close()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      app.server.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr, "store", cfg.Store.Driver, "profile_id", cfg.ProfileID)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	return nil
}

// app is the wired process: storage, service, HTTP surface and schedule.
type app struct {
	svc       *academy.Service
	server    *api.Server
	scheduler *jobs.Scheduler
	closers   []func()
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	langs, err := cfg.LanguageTags()
	if err != nil {
		return nil, err
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	backend, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, backend.close)

	hub := api.NewHub()
	svc, err := academy.New(ctx, academy.Config{
		Store:     backend.store,
		Catalog:   cat,
		Clock:     progress.SystemClock{Location: loc},
		Events:    backend.events,
		Publisher: hub,
		ProfileID: cfg.ProfileID,
	})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("loading progress: %w", err)
	}
	a.svc = svc

	if _, err := svc.CheckIn(ctx); err != nil {
		slog.Warn("startup check-in failed", "error", err)
	}

	sessions := session.NewRegistryWithIdleTTL(
		time.Duration(cfg.Server.SessionIdleMinutes)*time.Minute,
		progress.SystemClock{Location: loc},
	)
	a.server = api.NewServer(api.Config{
		Service:     svc,
		Health:      backend.store,
		Sessions:    sessions,
		Hub:         hub,
		Languages:   langs,
		GameSeconds: cfg.Server.GameSeconds,
	})
	a.closers = append(a.closers, a.server.Close)

	if cfg.Jobs.Enabled {
		sched, err := jobs.NewScheduler(jobs.Config{
			RolloverSpec: cfg.Jobs.RolloverSpec,
			SweepSpec:    cfg.Jobs.SweepSpec,
			Location:     loc,
		}, svc, sessions)
		if err != nil {
			a.close()
			return nil, err
		}
		sched.Start()
		a.scheduler = sched
		a.closers = append(a.closers, sched.Stop)
	}

	return a, nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// storeBackend is the selected persistence plus what it needs closed.
type storeBackend struct {
	store  progress.Store
	events academy.EventLogger
	close  func()
}

func openStore(ctx context.Context, cfg *config.Config) (*storeBackend, error) {
	switch cfg.Store.Driver {
	case config.StoreMemory:
		store := progress.NewMemoryStore()
		return &storeBackend{store: store, events: academy.NopEventLogger{}, close: func() { store.Close() }}, nil

	case config.StoreFile:
		store, err := progress.NewFileStore(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("opening file store: %w", err)
		}
		return &storeBackend{store: store, events: academy.NopEventLogger{}, close: func() { store.Close() }}, nil

	case config.StoreSQLite:
		path := cfg.Store.Path
		if filepath.Ext(path) == "" {
			if err := os.MkdirAll(path, 0o755); err != nil {
				return nil, fmt.Errorf("creating store dir: %w", err)
			}
			path = filepath.Join(path, "academy.db")
		}
		store, err := progress.NewSQLiteStore(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return &storeBackend{store: store, events: academy.NopEventLogger{}, close: func() { store.Close() }}, nil

	case config.StorePostgres:
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return nil, err
		}
		store, err := progress.NewPostgresStore(ctx, db.Pool)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		events := academy.NewPostgresEventLogger(db.Pool)
		if err := events.EnsureTable(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating events table: %w", err)
		}
		return &storeBackend{store: store, events: events, close: db.Close}, nil

	case config.StoreRedis:
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return nil, err
		}
		store, err := progress.NewRedisStore(c.Client)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("opening redis store: %w", err)
		}
		return &storeBackend{store: store, events: academy.NopEventLogger{}, close: func() { c.Close() }}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

// newLogger builds the process logger from the log settings.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
