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

	"github.com/starford/skald/internal/api"
	"github.com/starford/skald/internal/document"
	"github.com/starford/skald/internal/index"
	"github.com/starford/skald/internal/journal"
	"github.com/starford/skald/internal/sse"
	"github.com/starford/skald/internal/storage"
)

// NewLogger builds the structured JSON logger used by every mode.
func NewLogger(cfg *Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// NewJournal wires the storage provider, the configured index backend, and
// the journal service from cfg. The returned close function releases the
// backend (a no-op for the JSON index).
func NewJournal(cfg *Config, logger *slog.Logger) (*journal.Service, func() error, error) {
	if err := os.MkdirAll(cfg.Journal.Path, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create journal dir: %w", err)
	}
	for _, kind := range document.Kinds() {
		if err := os.MkdirAll(filepath.Join(cfg.Journal.Path, kind.Dir()), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create %s dir: %w", kind.Dir(), err)
		}
	}

	store, err := storage.NewFS(cfg.Journal.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}

	var backend index.Backend
	switch cfg.Index.Backend {
	case BackendSQLite:
		backend, err = index.OpenSQLite(cfg.Index.ArtifactPath(cfg.Journal.Path), store, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("init index: %w", err)
		}
	default:
		backend = index.NewJSONIndex(cfg.Index.ArtifactPath(cfg.Journal.Path), store, logger)
	}

	auto := index.NewAutoIndexer(backend, store, cfg.Index.AutoRebuild, cfg.Index.WarnAfter, logger)
	return journal.NewService(store, auto, logger), backend.Close, nil
}

// Run starts serve mode with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config
	logger := NewLogger(cfg)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("journal_path", cfg.Journal.Path),
		slog.String("index_backend", cfg.Index.Backend),
		slog.String("log_level", cfg.App.LogLevel.String()))

	svc, closeIndex, err := NewJournal(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeIndex() }()

	// Initial rebuild. Per-document failures are already isolated inside the
	// scan, so an error here means the tree itself is unreadable.
	if stats, err := svc.Rebuild(ctx); err != nil {
		logger.Warn("initial rebuild failed", slog.String("error", err.Error()))
	} else {
		logger.Info("initial rebuild complete",
			slog.Int("scanned", stats.Scanned),
			slog.Int("errors", len(stats.Errors)))
	}

	// SSE broker.
	broker := sse.NewBroker()
	defer broker.Close()

	// Build API router.
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, http.HandlerFunc(broker.ServeHTTP))

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
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the journal tree; a change triggers an eager rebuild plus an SSE
	// broadcast so connected clients see fresh results immediately.
	g.Go(func() error {
		return index.Watch(gCtx, cfg.Journal.Path, 0, logger, func() {
			stats, err := svc.Rebuild(gCtx)
			if err != nil {
				logger.Error("watch rebuild failed", slog.String("error", err.Error()))
				return
			}
			broker.PublishRebuilt(stats.Scanned, len(stats.Errors))
		})
	})

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

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
