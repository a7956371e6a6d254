// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/shunya/internal/api"
	"github.com/starford/shunya/internal/archive"
	"github.com/starford/shunya/internal/collection"
	"github.com/starford/shunya/internal/dictation"
	"github.com/starford/shunya/internal/editor"
	"github.com/starford/shunya/internal/journal"
	"github.com/starford/shunya/internal/models"
	"github.com/starford/shunya/internal/sse"
	"github.com/starford/shunya/internal/store"
)

// Version is reported by the MCP server and the CLI.
var Version = "dev"

// components are shared by every command.
type components struct {
	logger  *slog.Logger
	db      *store.DB
	entries *collection.Manager
	svc     *journal.Service
}

func (c *components) Close() {
	if err := c.db.Close(); err != nil {
		c.logger.Error("close store failed", slog.String("error", err.Error()))
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{logOut: os.Stdout, out: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// bootstrap sets up logging, opens the store and loads the entries.
func (a *application) bootstrap(ctx context.Context) (*components, error) {
	cfg := a.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(a.logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	if dir := filepath.Dir(cfg.SQLite.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	entries := collection.New(db, logger)
	if err := entries.Load(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load entries: %w", err)
	}

	svc := journal.NewService(entries, db,
		journal.WithImageLimits(cfg.Images.MaxBytes, cfg.Images.ThumbnailSize))

	return &components{logger: logger, db: db, entries: entries, svc: svc}, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	c, err := app.bootstrap(ctx)
	if err != nil {
		return err
	}
	defer c.Close()
	logger := c.logger

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()),
		slog.Int("entries", c.entries.Len()))

	// SSE broker.
	broker := sse.NewBroker(250 * time.Millisecond)
	defer broker.Close()

	c.entries.OnChange(func(kind collection.EventKind, e models.Entry) {
		broker.PublishEntryEvent(string(kind), journal.Summarize(e))
	})

	capability := dictation.New(cfg.Dictation.Command, cfg.Dictation.Args...)
	if cfg.Dictation.Command != "" && !capability.Available() {
		logger.Warn("dictation command not found", slog.String("command", cfg.Dictation.Command))
	}

	ed := editor.New(c.entries,
		editor.WithProcessingDelay(cfg.Editor.ProcessingDelay),
		editor.WithDictation(capability),
		editor.WithLogger(logger))
	defer ed.Close()
	ed.OnChange(func(d editor.Draft) { broker.PublishDraft(d) })

	apiRouter := api.NewRouter(c.svc, ed, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		w.Header().Set("Content-Type", "application/json")
		if err := c.svc.Ready(pingCtx); err != nil {
			logger.Warn("readiness check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Import entry files dropped into the archive.
	if cfg.Archive.Watch {
		arc, err := archive.Open(cfg.Archive.Path)
		if err != nil {
			return fmt.Errorf("init archive: %w", err)
		}
		g.Go(func() error {
			return arc.Watch(gCtx, logger, func(ctx context.Context, e models.Entry) error {
				_, err := c.entries.Save(ctx, e)
				return err
			})
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Close SSE streams first so Shutdown does not wait on them.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the errgroup context so the archive watcher stops
// together with the HTTP server.
var errShutdown = errors.New("shutdown")
