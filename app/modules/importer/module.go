// Package importer wires the import pipeline: repositories, source adapters,
// the application service, the HTTP surface, and the draft sweep queue.
package importer

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"

	importerservice "github.com/combine-hq/combine-server/app/modules/importer/application"
	importeradapters "github.com/combine-hq/combine-server/app/modules/importer/infrastructure/adapters"
	importerhandlers "github.com/combine-hq/combine-server/app/modules/importer/infrastructure/handlers"
	importerjwt "github.com/combine-hq/combine-server/app/modules/importer/infrastructure/jwt"
	importerqueue "github.com/combine-hq/combine-server/app/modules/importer/infrastructure/queue"
	importerdb "github.com/combine-hq/combine-server/app/modules/importer/infrastructure/repositories"
	schemaservice "github.com/combine-hq/combine-server/app/modules/schema/application"
	"github.com/combine-hq/combine-server/config"
	"github.com/combine-hq/combine-server/internal/attr"
	"github.com/combine-hq/combine-server/internal/eventbus"
	"github.com/combine-hq/combine-server/internal/observability"
)

// Module represents the importer module.
type Module struct {
	Service    importerservice.Service
	Handlers   *importerhandlers.ImportHandlers
	queue      *importerqueue.Service
	cancelFunc context.CancelFunc
	obs        *observability.Observability
}

// NewModule creates a new importer module and mounts its HTTP routes.
func NewModule(
	ctx context.Context,
	cfg *config.Config,
	obs *observability.Observability,
	db *bun.DB,
	bus eventbus.EventBus,
	schemas schemaservice.Provider,
	httpRouter chi.Router,
) (*Module, error) {
	logger := obs.Logger

	logger.InfoContext(ctx, "Initializing importer module")

	repo := &importerdb.ImporterDBImpl{DB: db}
	drafts := &importerdb.DraftDBImpl{DB: db}

	opts := importerservice.Options{
		Sheets:     importeradapters.NewSheetFetcher(ctx, nil),
		UndoWindow: cfg.Importer.UndoWindow,
	}
	if cfg.Importer.OCRServiceURL != "" {
		opts.Photos = importeradapters.NewOCRExtractor(cfg.Importer.OCRServiceURL, cfg.Importer.OCRAPIKey)
	}

	service := importerservice.NewImportService(repo, drafts, schemas, bus, obs, opts)

	handlers := importerhandlers.NewImportHandlers(service, logger, obs.Tracer)
	if httpRouter != nil {
		provider := importerjwt.NewProvider(cfg.JWT.Secret)
		importerhandlers.RegisterRoutes(httpRouter, handlers, provider, cfg.HTTP.AllowedOrigins)
	}

	queue, err := importerqueue.NewService(ctx, cfg.Postgres.DSN, drafts, cfg.Importer.DraftRetention, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create importer queue service: %w", err)
	}

	return &Module{
		Service:  service,
		Handlers: handlers,
		queue:    queue,
		obs:      obs,
	}, nil
}

// Run starts the draft sweep queue and blocks until the context is canceled.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	logger := m.obs.Logger
	logger.InfoContext(ctx, "Starting importer module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	if err := m.queue.Start(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to start importer queue", attr.Error(err))
		return
	}

	<-ctx.Done()
	logger.InfoContext(ctx, "Importer module goroutine stopped")
}

// Close stops the importer module.
func (m *Module) Close() error {
	logger := m.obs.Logger
	logger.Info("Stopping importer module")

	if m.cancelFunc != nil {
		m.cancelFunc()
	}

	if m.queue != nil {
		if err := m.queue.Stop(context.Background()); err != nil {
			logger.Error("Error stopping importer queue", attr.Error(err))
			return fmt.Errorf("error stopping importer queue: %w", err)
		}
	}

	logger.Info("Importer module stopped")
	return nil
}
