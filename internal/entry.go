// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/saga/internal/api"
	"github.com/starford/saga/internal/bundle"
	"github.com/starford/saga/internal/canon"
	"github.com/starford/saga/internal/canon/llmcheck"
	"github.com/starford/saga/internal/mcpserver"
	"github.com/starford/saga/internal/narrative"
	"github.com/starford/saga/internal/sse"
	"github.com/starford/saga/internal/storage"
	"github.com/starford/saga/internal/store"
)

var errConfigRequired = errors.New("config is required")

// engine holds the components shared by every entry point.
type engine struct {
	db       *store.DB
	svc      *narrative.Service
	importer *bundle.Importer
}

func (e *engine) Close() error {
	return e.db.Close()
}

func newLogger(app *application) *slog.Logger {
	return slog.New(slog.NewJSONHandler(app.logOut, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
}

func newClassifier(cfg CanonConfig) canon.Classifier {
	if cfg.Classifier == ClassifierOpenAI {
		return llmcheck.New(llmcheck.Config{
			APIKey:  cfg.OpenAI.APIKey,
			Model:   cfg.OpenAI.Model,
			BaseURL: cfg.OpenAI.BaseURL,
		})
	}
	return canon.NewHeuristic(cfg.MatchThreshold)
}

// openEngine opens the store and builds the narrative service. The bundle
// importer is nil when no bundle path is configured.
func openEngine(cfg *Config, logger *slog.Logger, onEvent func(narrative.Event)) (*engine, error) {
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	evaluator := canon.NewEvaluator(newClassifier(cfg.Canon), cfg.Canon.EvaluationTimeout, logger)
	opts := []narrative.Option{narrative.WithLogger(logger)}
	if onEvent != nil {
		opts = append(opts, narrative.WithEventHandler(onEvent))
	}
	e := &engine{db: db, svc: narrative.NewService(db, evaluator, opts...)}

	if cfg.Bundles.Path != "" {
		if err := os.MkdirAll(cfg.Bundles.Path, 0o755); err != nil {
			db.Close()
			return nil, fmt.Errorf("create bundles dir: %w", err)
		}
		files, err := storage.NewFS(cfg.Bundles.Path)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("init bundle storage: %w", err)
		}
		e.importer = bundle.NewImporter(e.svc, db, files, logger)
	}
	return e, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := newLogger(app)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("bundles_path", cfg.Bundles.Path),
		slog.String("classifier", cfg.Canon.Classifier),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(cfg.Events.ContextThrottle)
	defer broker.Close()

	eng, err := openEngine(cfg, logger, func(e narrative.Event) {
		broker.PublishEntityEvent(e.Kind, e.Action, e.SeriesID, e.EntityID)
	})
	if err != nil {
		return err
	}
	defer eng.Close()

	// Run initial sync.
	if eng.importer != nil {
		if _, err := eng.importer.Sync(ctx); err != nil {
			logger.Warn("initial sync failed", slog.String("error", err.Error()))
		}
	}

	apiRouter := api.NewRouter(eng.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := eng.svc.ListSeries(req.Context(), ""); err != nil {
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

	// Start bundle watcher.
	if eng.importer != nil && cfg.Bundles.Watch {
		g.Go(func() error {
			err := bundle.Watch(gCtx, eng.importer, cfg.Bundles.Path, logger, func(res bundle.Result) {
				logger.Debug("watcher: bundle synced",
					slog.String("path", res.Path),
					slog.String("series_id", res.SeriesID))
			})
			if err != nil {
				logger.Error("watcher: failed", slog.String("error", err.Error()))
			}
			return nil
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

// errShutdown cancels the errgroup so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdin/stdout. Logs always go to stderr
// because stdout carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append(opts, WithLogOutput(os.Stderr)))
	if err != nil {
		return err
	}
	logger := newLogger(app)
	slog.SetDefault(logger)

	eng, err := openEngine(app.config, logger, nil)
	if err != nil {
		return err
	}
	defer eng.Close()

	if eng.importer != nil {
		if _, err := eng.importer.Sync(ctx); err != nil {
			logger.Warn("initial sync failed", slog.String("error", err.Error()))
		}
	}

	logger.Info("mcp: serving on stdio")
	return mcpserver.New(eng.svc).ServeStdio()
}

// Import imports one bundle file, given relative to the bundle root, or
// syncs the whole root when path is empty. Results are printed as JSON.
func Import(ctx context.Context, path string, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	eng, err := openEngine(app.config, newLogger(app), nil)
	if err != nil {
		return err
	}
	defer eng.Close()
	if eng.importer == nil {
		return errors.New("bundles.path is not configured")
	}

	if path == "" {
		results, err := eng.importer.Sync(ctx)
		if err != nil {
			return err
		}
		return printJSON(app, results)
	}
	res, err := eng.importer.ImportFile(ctx, path)
	if err != nil {
		return err
	}
	return printJSON(app, res)
}

// Export writes a series to path, relative to the bundle root.
func Export(ctx context.Context, seriesID, path string, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	eng, err := openEngine(app.config, newLogger(app), nil)
	if err != nil {
		return err
	}
	defer eng.Close()
	if eng.importer == nil {
		return errors.New("bundles.path is not configured")
	}
	return eng.importer.Export(ctx, seriesID, path)
}

// Compile prints the generation context of a series for a target book.
func Compile(ctx context.Context, seriesID string, book int, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	eng, err := openEngine(app.config, newLogger(app), nil)
	if err != nil {
		return err
	}
	defer eng.Close()

	gc, err := eng.svc.CompileGenerationContext(ctx, seriesID, book)
	if err != nil {
		return err
	}
	return printJSON(app, gc)
}

func printJSON(app *application, v any) error {
	enc := json.NewEncoder(app.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
