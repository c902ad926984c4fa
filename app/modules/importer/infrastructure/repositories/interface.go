package importerdb

import (
	"context"
	"time"

	"github.com/combine-hq/combine-server/app/modules/importer/domain"
	schemadomain "github.com/combine-hq/combine-server/app/modules/schema/domain"
)

// SubmitRequest carries one reconciled batch into the database layer. Rows
// arrive with edits already overlaid and keys renamed to target keys; the
// repository only splits fields from scores and applies merge strategies.
type SubmitRequest struct {
	EventID      string
	ActorID      string
	Method       domain.ImportMethod
	Mode         domain.ImportMode
	SourceName   string
	Rows         []domain.ReconciledRow
	SkippedCount int
	Schema       *schemadomain.TargetSchema
}

// ImporterDB is the persistence contract for the import pipeline.
type ImporterDB interface {
	// SubmitRows writes the batch in a single transaction and records an undo
	// log plus an audit entry. The returned SubmitResult carries the undo
	// token.
	SubmitRows(ctx context.Context, req *SubmitRequest) (*domain.SubmitResult, error)

	// RevertImport compensates a prior submission identified by its undo
	// token: created players are deleted, updated players restored from the
	// undo log snapshot. Returns the number of rows reverted. A second call
	// with the same token is a no-op returning zero.
	RevertImport(ctx context.Context, eventID, undoToken, actorID string) (int, error)

	// GetHistory returns the event's audit entries, newest first.
	GetHistory(ctx context.Context, eventID string, limit int) ([]domain.ImportHistoryEntry, error)

	// ExistingPlayerKeys returns the normalized "first|last" name keys of all
	// players already on the event roster, for duplicate candidate flagging.
	ExistingPlayerKeys(ctx context.Context, eventID string) (map[string]bool, error)
}

// DraftDB persists autosaved session snapshots keyed by event.
type DraftDB interface {
	SaveDraft(ctx context.Context, eventID string, payload []byte, savedAt time.Time) error
	// LoadDraft returns nil payload when no draft exists.
	LoadDraft(ctx context.Context, eventID string) ([]byte, time.Time, error)
	DeleteDraft(ctx context.Context, eventID string) error
	// PurgeExpired removes drafts older than the cutoff and reports how many
	// were deleted.
	PurgeExpired(ctx context.Context, cutoff time.Time) (int, error)
}
