package importerservice

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/combine-hq/combine-server/app/modules/importer/domain"
	"github.com/combine-hq/combine-server/internal/results"
)

// SourceInput is the raw material for one parse attempt. Exactly one of
// Payload or SheetURL is set depending on the method.
type SourceInput struct {
	Method   domain.ImportMethod
	Filename string
	// Payload holds file bytes, pasted text, or photo bytes. It is kept in
	// memory for the life of the session and never written into drafts.
	Payload  []byte
	SheetURL string
}

// Clock abstracts time so the undo window is testable.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// PhotoExtractor turns a roster photo into structured rows. The production
// implementation calls an external OCR service.
type PhotoExtractor interface {
	ExtractRows(ctx context.Context, image []byte) (*domain.ParseResult, error)
}

// SheetFetcher downloads a shared online sheet as CSV bytes.
type SheetFetcher interface {
	FetchCSV(ctx context.Context, sheetURL string) ([]byte, error)
}

// Service is the importer's application contract.
type Service interface {
	// StartSession opens a fresh session at the input step.
	StartSession(ctx context.Context, eventID, actorID string, mode domain.ImportMode) (results.OperationResult, error)
	// ResumeSession restores an autosaved draft for the event, if one exists.
	ResumeSession(ctx context.Context, eventID, actorID string) (results.OperationResult, error)
	// DiscardDraft deletes the event's autosaved draft.
	DiscardDraft(ctx context.Context, eventID string) (results.OperationResult, error)

	// ProvideSource parses the raw source and advances the session to review,
	// or to sheet selection when the workbook has multiple sheets.
	ProvideSource(ctx context.Context, sessionID uuid.UUID, input SourceInput) (results.OperationResult, error)
	// SelectSheet re-parses a multi-sheet workbook with the chosen sheet.
	SelectSheet(ctx context.Context, sessionID uuid.UUID, sheetName string) (results.OperationResult, error)

	// GetSession returns the live session.
	GetSession(ctx context.Context, sessionID uuid.UUID) (*domain.ImportSession, error)

	// Review mutations. All fail outside the review step.
	SetColumnMapping(ctx context.Context, sessionID uuid.UUID, column, targetKey string) error
	EditRow(ctx context.Context, sessionID uuid.UUID, rowID int, column, value string) error
	SetRowStrategy(ctx context.Context, sessionID uuid.UUID, rowID int, strategy domain.MergeStrategy) error
	SetConflictDefault(ctx context.Context, sessionID uuid.UUID, strategy domain.MergeStrategy) error
	AcknowledgeGuard(ctx context.Context, sessionID uuid.UUID, code domain.GuardCode) error
	// BackToInput abandons the parsed rows and returns to source intake.
	BackToInput(ctx context.Context, sessionID uuid.UUID) error
	// CloseSession tears the live session down. The event's autosaved draft
	// survives so the operator can resume later.
	CloseSession(ctx context.Context, sessionID uuid.UUID) error

	// Preflight runs the guard checks without submitting.
	Preflight(ctx context.Context, sessionID uuid.UUID) ([]domain.GuardIssue, error)
	// Submit runs the guard, materializes rows, and writes the batch.
	Submit(ctx context.Context, sessionID uuid.UUID) (results.OperationResult, error)
	// Revert undoes the session's last submission while the window is open.
	Revert(ctx context.Context, sessionID uuid.UUID) (results.OperationResult, error)

	// GetHistory returns the event's import audit trail, newest first.
	GetHistory(ctx context.Context, eventID string, limit int) (results.OperationResult, error)
}
