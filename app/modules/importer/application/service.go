// Package importerservice implements the roster and score import pipeline:
// source parsing, column mapping, review reconciliation, guarded submission,
// and the post-submit undo window.
package importerservice

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/combine-hq/combine-server/app/modules/importer/application/parsers"
	"github.com/combine-hq/combine-server/app/modules/importer/domain"
	importerdb "github.com/combine-hq/combine-server/app/modules/importer/infrastructure/repositories"
	schemaservice "github.com/combine-hq/combine-server/app/modules/schema/application"
	"github.com/combine-hq/combine-server/internal/attr"
	"github.com/combine-hq/combine-server/internal/eventbus"
	"github.com/combine-hq/combine-server/internal/observability"
	"github.com/combine-hq/combine-server/internal/results"
	"github.com/combine-hq/combine-server/internal/utils"
)

// DefaultUndoWindow is how long a completed import stays revertible.
const DefaultUndoWindow = 30 * time.Second

// ImportService implements the Service interface.
type ImportService struct {
	ImporterDB importerdb.ImporterDB
	DraftDB    importerdb.DraftDB
	Schemas    schemaservice.Provider
	EventBus   eventbus.EventBus

	logger  *slog.Logger
	metrics *observability.ImporterMetrics
	tracer  trace.Tracer
	helpers utils.Helpers

	parserFactory *parsers.Factory
	aliases       Aliases
	photos        PhotoExtractor
	sheets        SheetFetcher
	clock         Clock
	undoWindow    time.Duration

	mu       sync.Mutex
	sessions map[uuid.UUID]*domain.ImportSession
	// payloads holds raw source bytes per session so sheet selection can
	// re-parse without a re-upload. Never serialized into drafts.
	payloads map[uuid.UUID][]byte

	serviceWrapper func(ctx context.Context, operationName string, sessionID uuid.UUID, op func(ctx context.Context) (results.OperationResult, error)) (results.OperationResult, error)
}

var _ Service = (*ImportService)(nil)

// Options carries the optional collaborators and tuning knobs.
type Options struct {
	Photos     PhotoExtractor
	Sheets     SheetFetcher
	Clock      Clock
	UndoWindow time.Duration
}

// NewImportService creates a new ImportService.
func NewImportService(
	db importerdb.ImporterDB,
	drafts importerdb.DraftDB,
	schemas schemaservice.Provider,
	bus eventbus.EventBus,
	obs *observability.Observability,
	opts Options,
) *ImportService {
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.UndoWindow <= 0 {
		opts.UndoWindow = DefaultUndoWindow
	}

	s := &ImportService{
		ImporterDB:    db,
		DraftDB:       drafts,
		Schemas:       schemas,
		EventBus:      bus,
		logger:        obs.Logger,
		metrics:       obs.Metrics,
		tracer:        obs.Tracer,
		helpers:       utils.NewHelpers(),
		parserFactory: parsers.NewFactory(),
		aliases:       DefaultAliases(),
		photos:        opts.Photos,
		sheets:        opts.Sheets,
		clock:         opts.Clock,
		undoWindow:    opts.UndoWindow,
		sessions:      map[uuid.UUID]*domain.ImportSession{},
		payloads:      map[uuid.UUID][]byte{},
	}
	s.serviceWrapper = s.withTelemetry
	return s
}

// withTelemetry wraps a service operation with tracing, metrics, and panic
// recovery.
func (s *ImportService) withTelemetry(ctx context.Context, operationName string, sessionID uuid.UUID, op func(ctx context.Context) (results.OperationResult, error)) (result results.OperationResult, err error) {
	ctx, span := s.tracer.Start(ctx, operationName, trace.WithAttributes(
		attribute.String("operation", operationName),
		attribute.String("session_id", sessionID.String()),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration(operationName, time.Since(start))
	}()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				attr.String("operation", operationName),
				attr.UUIDValue("session_id", sessionID),
				attr.Error(err),
			)
			span.RecordError(err)
			result = results.OperationResult{}
		}
	}()

	result, err = op(ctx)
	if err != nil {
		wrapped := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed",
			attr.String("operation", operationName),
			attr.UUIDValue("session_id", sessionID),
			attr.Error(wrapped),
		)
		span.RecordError(wrapped)
		return result, wrapped
	}
	return result, nil
}

// GetSession returns the live session. The lock round-trip orders the read
// after any operation that finished before this call.
func (s *ImportService) GetSession(ctx context.Context, sessionID uuid.UUID) (*domain.ImportSession, error) {
	session, err := s.lockSession(sessionID)
	if err != nil {
		return nil, err
	}
	session.Unlock()
	return session, nil
}

// lockSession looks the session up and acquires its operation lock. Every
// operation that reads or mutates session state holds the lock for its full
// duration; s.mu only guards the map itself.
func (s *ImportService) lockSession(sessionID uuid.UUID) (*domain.ImportSession, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	session.Lock()
	return session, nil
}

func (s *ImportService) session(sessionID uuid.UUID) (*domain.ImportSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("import session %s: %w", sessionID, domain.ErrSessionNotFound)
	}
	return session, nil
}

func (s *ImportService) storeSession(session *domain.ImportSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
}

// CloseSession transitions the session to closed and releases its in-memory
// state. Any autosaved draft for the event is left alone.
func (s *ImportService) CloseSession(ctx context.Context, sessionID uuid.UUID) error {
	session, err := s.lockSession(sessionID)
	if err != nil {
		return err
	}
	defer session.Unlock()
	if err := session.Transition(domain.StepClosed); err != nil {
		return err
	}
	s.dropSession(sessionID)

	s.logger.InfoContext(ctx, "Session closed",
		attr.UUIDValue("session_id", sessionID),
		attr.String("event_id", session.EventID),
	)
	return nil
}

func (s *ImportService) dropSession(sessionID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	delete(s.payloads, sessionID)
}

func (s *ImportService) storePayload(sessionID uuid.UUID, payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads[sessionID] = payload
}

func (s *ImportService) payload(sessionID uuid.UUID) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payloads[sessionID]
}

// failure builds the standard failure envelope.
func (s *ImportService) failure(session *domain.ImportSession, code, msg string) results.OperationResult {
	payload := &domain.ImportFailedPayload{
		Error:     msg,
		ErrorCode: code,
		Timestamp: s.clock.Now(),
	}
	if session != nil {
		payload.EventID = session.EventID
		payload.SessionID = session.ID
	}
	return results.FailureResult(payload)
}
