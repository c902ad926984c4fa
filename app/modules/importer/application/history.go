package importerservice

import (
	"context"

	"github.com/google/uuid"

	"github.com/combine-hq/combine-server/app/modules/importer/domain"
	"github.com/combine-hq/combine-server/internal/results"
)

const defaultHistoryLimit = 50

// HistoryPayload is the audit-trail read result.
type HistoryPayload struct {
	EventID string                      `json:"event_id"`
	Entries []domain.ImportHistoryEntry `json:"entries"`
}

// GetHistory returns the event's import audit trail, newest first.
func (s *ImportService) GetHistory(ctx context.Context, eventID string, limit int) (results.OperationResult, error) {
	return s.serviceWrapper(ctx, "GetHistory", uuid.Nil, func(ctx context.Context) (results.OperationResult, error) {
		if limit <= 0 {
			limit = defaultHistoryLimit
		}
		entries, err := s.ImporterDB.GetHistory(ctx, eventID, limit)
		if err != nil {
			return s.failure(nil, "HISTORY_LOAD_FAILED", err.Error()), nil
		}
		return results.SuccessResult(&HistoryPayload{EventID: eventID, Entries: entries}), nil
	})
}
