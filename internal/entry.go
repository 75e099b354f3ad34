// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/starford/linktitle/internal/api"
	"github.com/starford/linktitle/internal/blockstore"
	"github.com/starford/linktitle/internal/feed"
	"github.com/starford/linktitle/internal/linkfmt"
	"github.com/starford/linktitle/internal/mcpserver"
	"github.com/starford/linktitle/internal/metrics"
	"github.com/starford/linktitle/internal/noteservice"
	"github.com/starford/linktitle/internal/plugin"
	"github.com/starford/linktitle/internal/storage"
	"github.com/starford/linktitle/internal/title"
	"github.com/starford/linktitle/internal/vault"
)

var errConfigRequired = errors.New("config is required")

// NewLogger builds the JSON logger used everywhere in the application.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewTitleResolver builds the title provider chain from the titles section.
func NewTitleResolver(cfg TitlesConfig, client *http.Client, rec metrics.Recorder, logger *slog.Logger) *title.Resolver {
	return title.NewResolver(
		title.DefaultProviders(cfg.ProviderConfig(), client),
		title.WithLogger(logger),
		title.WithRecorder(rec),
		title.WithTimeout(cfg.Timeout),
	)
}

// components is everything that serve and mcp share.
type components struct {
	files    *storage.FS
	store    *blockstore.Store
	broker   *feed.Broker
	promReg  *prom.Registry
	resolver *title.Resolver
	engine   *linkfmt.Engine
	registry *plugin.Registry
	plugin   *plugin.Plugin
	svc      *noteservice.Service
}

func (c *components) close() {
	c.broker.Close()
	_ = c.store.Close()
}

func build(ctx context.Context, app *application, logger *slog.Logger) (*components, error) {
	cfg := app.config

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	files, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	broker := feed.NewBroker()
	store, err := blockstore.Open(cfg.SQLite.Path, blockstore.WithPublisher(broker))
	if err != nil {
		broker.Close()
		return nil, fmt.Errorf("init block store: %w", err)
	}
	c := &components{files: files, store: store, broker: broker}

	if err := seedFormat(ctx, store, cfg.Format.Default, logger); err != nil {
		c.close()
		return nil, err
	}

	c.promReg = prom.NewRegistry()
	c.promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewPrometheusRecorder(c.promReg)
	metrics.RegisterFeedDropped(c.promReg, broker.Dropped)

	c.resolver = NewTitleResolver(cfg.Titles, app.httpClient, recorder, logger)
	c.engine = linkfmt.NewEngine(store, c.resolver, linkfmt.WithLogger(logger), linkfmt.WithRecorder(recorder))
	c.registry = plugin.NewRegistry()
	c.plugin = plugin.New(c.engine, store, c.registry, plugin.WithLogger(logger))
	c.svc = noteservice.NewService(store, c.engine, c.resolver, c.registry)

	// Import page files before anything listens on the feed.
	if err := vault.Sync(ctx, store, files, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}
	return c, nil
}

// seedFormat writes the configured default syntax into a store that has no
// preference yet.
func seedFormat(ctx context.Context, store *blockstore.Store, name string, logger *slog.Logger) error {
	if name == "" {
		return nil
	}
	current, err := store.PreferredFormat(ctx)
	if err != nil {
		return fmt.Errorf("read preferred format: %w", err)
	}
	if current != "" {
		return nil
	}
	spec, _ := linkfmt.LookupFormat(name)
	if err := store.SetPreferredFormat(ctx, spec.Name); err != nil {
		return fmt.Errorf("seed preferred format: %w", err)
	}
	logger.Info("Preferred format seeded", slog.String("format", spec.Name))
	return nil
}

// startBackground runs the feed consumers shared by serve and mcp.
func startBackground(ctx context.Context, g *errgroup.Group, cfg *Config, c *components, logger *slog.Logger) {
	g.Go(func() error {
		return c.plugin.Start(ctx, c.broker)
	})
	if cfg.Vault.Mirror {
		g.Go(func() error {
			return vault.Mirror(ctx, c.store, c.files, c.broker, logger)
		})
	}
	if cfg.Vault.Watch {
		g.Go(func() error {
			if err := vault.Watch(ctx, c.store, c.files, logger); err != nil {
				logger.Error("watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := NewLogger(app.logOutput, cfg.App.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	c, err := build(ctx, app, logger)
	if err != nil {
		return err
	}
	defer c.close()

	logger.Info("Title providers", slog.Any("providers", c.resolver.Providers()))

	apiRouter := api.NewRouter(c.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, c.broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := c.store.Ping(r.Context()); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "unavailable")
			return
		}
		writeStatus(w, http.StatusOK, "ok")
	})
	r.Handle("/metrics", metrics.HTTPHandler(c.promReg))

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	startBackground(gCtx, g, cfg, c, logger)

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

// errShutdown cancels the group once the server has been shut down, so the
// feed consumers stop too.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr unless
// another output is set.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	if app.logOutput == nil {
		app.logOutput = os.Stderr
	}
	logger := NewLogger(app.logOutput, app.config.App.LogLevel)
	slog.SetDefault(logger)

	c, err := build(ctx, app, logger)
	if err != nil {
		return err
	}
	defer c.close()

	g, gCtx := errgroup.WithContext(ctx)
	startBackground(gCtx, g, app.config, c, logger)
	g.Go(func() error {
		if err := mcpserver.New(c.svc, app.version).ServeStdio(); err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}
	return nil
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, `{"status":%q}`, status)
}
