// Package app composes the combine server: database, event bus, HTTP
// listener, and the schema and importer modules.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/combine-hq/combine-server/app/modules/importer"
	"github.com/combine-hq/combine-server/app/modules/schema"
	"github.com/combine-hq/combine-server/config"
	"github.com/combine-hq/combine-server/internal/attr"
	"github.com/combine-hq/combine-server/internal/eventbus"
	"github.com/combine-hq/combine-server/internal/observability"
)

// App holds the composed application.
type App struct {
	Config         *config.Config
	Observability  *observability.Observability
	SchemaModule   *schema.Module
	ImporterModule *importer.Module

	db         *bun.DB
	eventBus   eventbus.EventBus
	httpServer *http.Server
	cancelFunc context.CancelFunc
}

// Initialize sets up the application dependencies.
func (app *App) Initialize(ctx context.Context, cfg *config.Config, obs *observability.Observability) error {
	app.Config = cfg
	app.Observability = obs
	logger := obs.Logger

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.DSN)))
	db := bun.NewDB(sqldb, pgdialect.New())
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	app.db = db

	if cfg.NATS.URL != "" {
		bus, err := eventbus.NewJetStreamEventBus(cfg.NATS.URL, watermill.NewSlogLogger(logger))
		if err != nil {
			return fmt.Errorf("failed to create JetStream event bus: %w", err)
		}
		app.eventBus = bus
	} else {
		logger.WarnContext(ctx, "NATS URL not set; using in-process event bus")
		app.eventBus = eventbus.NewInProcessEventBus(watermill.NewSlogLogger(logger))
	}

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.HandlerFor(obs.Metrics.Registry, promhttp.HandlerOpts{}))

	app.SchemaModule = schema.NewModule(ctx, obs, db)

	importerModule, err := importer.NewModule(ctx, cfg, obs, db, app.eventBus, app.SchemaModule.Service, router)
	if err != nil {
		return fmt.Errorf("failed to initialize importer module: %w", err)
	}
	app.ImporterModule = importerModule

	app.httpServer = &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return nil
}

// Run starts the modules and the HTTP listener and blocks until the context
// is canceled.
func (app *App) Run(ctx context.Context) error {
	logger := app.Observability.Logger

	ctx, cancel := context.WithCancel(ctx)
	app.cancelFunc = cancel
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go app.ImporterModule.Run(ctx, &wg)

	errCh := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "HTTP server listening", attr.String("address", app.httpServer.Addr))
		if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		cancel()
		wg.Wait()
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", attr.Error(err))
	}

	wg.Wait()
	return nil
}

// Close releases all application resources.
func (app *App) Close() error {
	logger := app.Observability.Logger

	if app.cancelFunc != nil {
		app.cancelFunc()
	}

	if app.ImporterModule != nil {
		if err := app.ImporterModule.Close(); err != nil {
			logger.Error("Error closing importer module", attr.Error(err))
		}
	}

	if app.eventBus != nil {
		if err := app.eventBus.Close(); err != nil {
			logger.Error("Error closing event bus", attr.Error(err))
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			logger.Error("Error closing database", attr.Error(err))
		}
	}

	logger.Info("Application shut down")
	return nil
}
