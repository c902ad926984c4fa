package importerdb

import (
	"context"
	"fmt"

	"github.com/combine-hq/combine-server/app/modules/importer/domain"
)

// GetHistory returns the event's audit entries, newest first.
func (db *ImporterDBImpl) GetHistory(ctx context.Context, eventID string, limit int) ([]domain.ImportHistoryEntry, error) {
	var records []ImportAudit
	if err := db.DB.NewSelect().
		Model(&records).
		Where("event_id = ?", eventID).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to load import history: %w", err)
	}

	entries := make([]domain.ImportHistoryEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, domain.ImportHistoryEntry{
			Timestamp:    r.CreatedAt,
			Type:         domain.HistoryType(r.Type),
			RowsAffected: r.RowsAffected,
			SkippedCount: r.SkippedCount,
			Method:       domain.ImportMethod(r.Method),
			SourceName:   r.SourceName,
			ActorID:      r.ActorID,
		})
	}
	return entries, nil
}
