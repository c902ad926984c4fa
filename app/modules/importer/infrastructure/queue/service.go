// Package importerqueue runs background maintenance for the importer on a
// River queue: abandoned draft snapshots are swept on a periodic job instead
// of growing forever.
package importerqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	importerdb "github.com/combine-hq/combine-server/app/modules/importer/infrastructure/repositories"
	"github.com/combine-hq/combine-server/internal/attr"
)

// DefaultDraftRetention is how long an untouched draft survives.
const DefaultDraftRetention = 14 * 24 * time.Hour

// DraftSweepJob deletes autosaved drafts older than the retention window.
type DraftSweepJob struct {
	Retention time.Duration `json:"retention"`
}

func (DraftSweepJob) Kind() string { return "import_draft_sweep" }

// DraftSweepWorker executes the sweep against the draft store.
type DraftSweepWorker struct {
	river.WorkerDefaults[DraftSweepJob]

	drafts importerdb.DraftDB
	logger *slog.Logger
}

func NewDraftSweepWorker(drafts importerdb.DraftDB, logger *slog.Logger) *DraftSweepWorker {
	return &DraftSweepWorker{drafts: drafts, logger: logger}
}

func (w *DraftSweepWorker) Work(ctx context.Context, job *river.Job[DraftSweepJob]) error {
	retention := job.Args.Retention
	if retention <= 0 {
		retention = DefaultDraftRetention
	}
	cutoff := time.Now().UTC().Add(-retention)

	purged, err := w.drafts.PurgeExpired(ctx, cutoff)
	if err != nil {
		w.logger.ErrorContext(ctx, "Draft sweep failed", attr.Error(err))
		return err
	}

	if purged > 0 {
		w.logger.InfoContext(ctx, "Swept expired import drafts",
			attr.Int("purged", purged),
			attr.Any("cutoff", cutoff),
		)
	}
	return nil
}

// Service owns the River client and its pgx pool.
type Service struct {
	client *river.Client[pgx.Tx]
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService builds the queue service. River needs its own pgx pool; the bun
// connection cannot be shared.
func NewService(ctx context.Context, dsn string, drafts importerdb.DraftDB, retention time.Duration, logger *slog.Logger) (*Service, error) {
	if retention <= 0 {
		retention = DefaultDraftRetention
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN for River: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewDraftSweepWorker(drafts, logger))

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 5},
		},
		Workers: workers,
		PeriodicJobs: []*river.PeriodicJob{
			river.NewPeriodicJob(
				river.PeriodicInterval(time.Hour),
				func() (river.JobArgs, *river.InsertOpts) {
					return DraftSweepJob{Retention: retention}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
		},
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	return &Service{client: client, pool: pool, logger: logger}, nil
}

// Start begins working jobs.
func (s *Service) Start(ctx context.Context) error {
	if err := s.client.Start(ctx); err != nil {
		return fmt.Errorf("failed to start River client: %w", err)
	}
	s.logger.InfoContext(ctx, "Importer queue service started")
	return nil
}

// Stop drains and shuts down the client and its pool.
func (s *Service) Stop(ctx context.Context) error {
	if err := s.client.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop River client: %w", err)
	}
	s.pool.Close()
	s.logger.InfoContext(ctx, "Importer queue service stopped")
	return nil
}
