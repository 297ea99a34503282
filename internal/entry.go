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
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/noteport/internal/api"
	"github.com/starford/noteport/internal/artifact"
	"github.com/starford/noteport/internal/catalog"
	"github.com/starford/noteport/internal/convert"
	"github.com/starford/noteport/internal/exporter"
	"github.com/starford/noteport/internal/graph"
	"github.com/starford/noteport/internal/mcpserver"
	"github.com/starford/noteport/internal/merge"
	"github.com/starford/noteport/internal/models"
	"github.com/starford/noteport/internal/pageservice"
	"github.com/starford/noteport/internal/reconcile"
	"github.com/starford/noteport/internal/slug"
	"github.com/starford/noteport/internal/sse"
	"github.com/starford/noteport/internal/storage"
)

// Version is reported by the MCP server and the CLI.
var Version = "dev"

// Source is the remote notebook service: everything the exporter and the
// asset downloader read. *graph.Client implements it.
type Source interface {
	exporter.Source
	convert.Fetcher
	ListNotebooks(ctx context.Context) ([]models.NotebookDescriptor, error)
}

// ExportResult reports one export. Exactly one of Live and Reconciled is set.
type ExportResult struct {
	Root       string
	Live       *exporter.Result
	Reconciled *reconcile.Report
}

func newApplication(logOut io.Writer, opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.logger == nil {
		app.logger = slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
			Level: app.config.App.LogLevel,
		}))
	}
	slog.SetDefault(app.logger)
	return app, nil
}

// graphSource returns the injected source or a Graph client from config.
func (a *application) graphSource() (Source, error) {
	if a.source != nil {
		return a.source, nil
	}
	cfg := a.config.Graph
	if cfg.Token == "" {
		return nil, fmt.Errorf("graph token is required (graph.token or GRAPH_TOKEN)")
	}
	return graph.NewClient(graph.Options{
		BaseURL:       cfg.BaseURL,
		TokenProvider: graph.StaticToken(cfg.Token),
		HTTPClient:    &http.Client{Timeout: cfg.Timeout},
		UserAgent:     "noteport/" + Version,
	}), nil
}

// openCatalog opens the SQLite catalog, or returns catalog.Null when the
// catalog is disabled.
func (a *application) openCatalog() (catalog.Catalog, error) {
	if !a.config.Catalog.Enabled {
		a.logger.Info("catalog: disabled, every page will be rendered")
		return catalog.Null{}, nil
	}
	store, err := catalog.Open(a.config.CatalogPath())
	if err != nil {
		return nil, fmt.Errorf("init catalog: %w", err)
	}
	return store, nil
}

// openStore opens the SQLite catalog for read-only consumers, which need a
// real database.
func (a *application) openStore() (*catalog.Store, error) {
	if !a.config.Catalog.Enabled {
		return nil, fmt.Errorf("catalog is disabled; enable catalog.enabled to browse exports")
	}
	store, err := catalog.Open(a.config.CatalogPath())
	if err != nil {
		return nil, fmt.Errorf("init catalog: %w", err)
	}
	return store, nil
}

// notebookRoot returns <export.output>/<slug(name)>.
func (a *application) notebookRoot(name string) string {
	return filepath.Join(a.config.Export.Output, slug.Make(name))
}

// parseSince parses sync.since. Failures are logged and ignored.
func (a *application) parseSince() *time.Time {
	raw := a.config.Sync.Since
	if raw == "" {
		return nil
	}
	t, ok := exporter.ParseTimestamp(raw)
	if !ok {
		a.logger.Warn("export: invalid since, ignoring", slog.String("since", raw))
		return nil
	}
	return &t
}

// ListNotebooks returns the notebooks visible to the configured account.
func ListNotebooks(ctx context.Context, opts ...Option) ([]models.NotebookDescriptor, error) {
	app, err := newApplication(os.Stderr, opts)
	if err != nil {
		return nil, err
	}
	src, err := app.graphSource()
	if err != nil {
		return nil, err
	}
	return src.ListNotebooks(ctx)
}

// Export runs one export. In index-only mode the catalog is rebuilt from the
// artifacts already on disk and the source is never contacted.
func Export(ctx context.Context, opts ...Option) (*ExportResult, error) {
	app, err := newApplication(os.Stdout, opts)
	if err != nil {
		return nil, err
	}
	cfg := app.config
	logger := app.logger

	logger.Info("Configuration loaded",
		slog.String("output", cfg.Export.Output),
		slog.Bool("catalog", cfg.Catalog.Enabled),
		slog.String("catalog_path", cfg.CatalogPath()),
		slog.Bool("index_only", cfg.Sync.IndexOnly),
		slog.String("log_level", cfg.App.LogLevel.String()))

	cat, err := app.openCatalog()
	if err != nil {
		return nil, err
	}
	defer cat.Close()

	if cfg.Sync.IndexOnly {
		return app.reconcile(ctx, cat)
	}
	return app.export(ctx, cat)
}

func (a *application) reconcile(ctx context.Context, cat catalog.Catalog) (*ExportResult, error) {
	root := a.notebookRoot(a.config.Export.Notebook)
	store, err := storage.NewFS(root)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	rep, err := reconcile.New(store, cat, a.logger).Run(ctx, reconcile.Options{
		NotebookID:   a.config.Export.NotebookID,
		NotebookName: a.config.Export.Notebook,
	})
	if err != nil {
		return nil, err
	}
	return &ExportResult{Root: store.Root(), Reconciled: &rep}, nil
}

func (a *application) export(ctx context.Context, cat catalog.Catalog) (*ExportResult, error) {
	cfg := a.config
	src, err := a.graphSource()
	if err != nil {
		return nil, err
	}

	nbs, err := src.ListNotebooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list notebooks: %w", err)
	}
	nb, err := exporter.ResolveNotebook(nbs, cfg.Export.NotebookID, cfg.Export.Notebook, a.logger)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewFS(a.notebookRoot(nb.Name))
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	a.logger.Info("export: notebook",
		slog.String("id", nb.ID), slog.String("name", nb.Name), slog.String("root", store.Root()))

	docConv := a.docConv
	if docConv == nil {
		docConv = merge.Pandoc{Bin: cfg.Export.Pandoc}
	}

	ex := exporter.New(exporter.Deps{
		Source:    src,
		Converter: convert.New(src, store, a.logger),
		Writer:    artifact.NewWriter(store, a.logger),
		Compiler:  merge.NewCompiler(store, docConv, a.logger),
		Catalog:   cat,
		Logger:    a.logger,
	})
	res, err := ex.Run(ctx, exporter.Options{
		Notebook: nb,
		Since:    a.parseSince(),
		Merge:    cfg.Export.Merge,
		Formats:  cfg.Export.Formats,
	})
	if err != nil {
		return nil, err
	}
	return &ExportResult{Root: store.Root(), Live: &res}, nil
}

// NewHTTPHandler builds the full HTTP handler: request middleware, health
// endpoints and the browse API under /api.
func NewHTTPHandler(svc *pageservice.Service, auth AuthConfig, events http.Handler) http.Handler {
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

	r.Mount("/api", api.NewRouter(svc, auth.AuthEnabled(), auth.Token, events))
	return r
}

// Serve runs the browse API until ctx is cancelled or a shutdown signal
// arrives. With sync.watch set, the named notebook root is reconciled on
// every change and each pass is announced on /api/events.
func Serve(ctx context.Context, opts ...Option) error {
	app, err := newApplication(os.Stdout, opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("output", cfg.Export.Output),
		slog.String("catalog_path", cfg.CatalogPath()),
		slog.String("watch", cfg.Sync.Watch),
		slog.String("log_level", cfg.App.LogLevel.String()))

	cat, err := app.openStore()
	if err != nil {
		return err
	}
	defer cat.Close()

	out, err := storage.NewFS(cfg.Export.Output)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: NewHTTPHandler(pageservice.NewService(out, cat), cfg.Auth, broker),
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Sync.Watch != "" {
		root, err := storage.NewFS(cfg.Sync.Watch)
		if err != nil {
			return fmt.Errorf("init watch root: %w", err)
		}
		rec := reconcile.New(root, cat, logger)
		g.Go(func() error {
			return reconcile.Watch(gCtx, rec, reconcile.Options{
				NotebookID:   cfg.Export.NotebookID,
				NotebookName: cfg.Export.Notebook,
			}, func(rep reconcile.Report, err error) {
				if err != nil {
					broker.Publish(sse.Event{Type: "reconcile.failed", Data: map[string]string{"error": err.Error()}})
					return
				}
				broker.PublishChange("reconcile.completed", rep)
			})
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

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
		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// ServeMCP serves the MCP tools on stdin/stdout. Logs go to stderr.
func ServeMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(os.Stderr, opts)
	if err != nil {
		return err
	}
	cat, err := app.openStore()
	if err != nil {
		return err
	}
	defer cat.Close()

	out, err := storage.NewFS(app.config.Export.Output)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	app.logger.Info("mcp: serving on stdio", slog.String("catalog_path", app.config.CatalogPath()))
	return mcpserver.New(pageservice.NewService(out, cat), Version).ServeStdio()
}
