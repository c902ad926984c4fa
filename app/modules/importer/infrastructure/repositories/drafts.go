package importerdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// DraftDBImpl is the bun-backed implementation of DraftDB.
type DraftDBImpl struct {
	DB *bun.DB
}

var _ DraftDB = (*DraftDBImpl)(nil)

// SaveDraft upserts the event's autosaved snapshot. Last writer wins.
func (db *DraftDBImpl) SaveDraft(ctx context.Context, eventID string, payload []byte, savedAt time.Time) error {
	draft := &ImportDraft{EventID: eventID, Payload: payload, SavedAt: savedAt}
	_, err := db.DB.NewInsert().
		Model(draft).
		On("CONFLICT (event_id) DO UPDATE").
		Set("payload = EXCLUDED.payload, saved_at = EXCLUDED.saved_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save draft for event %s: %w", eventID, err)
	}
	return nil
}

// LoadDraft returns nil payload when no draft exists.
func (db *DraftDBImpl) LoadDraft(ctx context.Context, eventID string) ([]byte, time.Time, error) {
	draft := new(ImportDraft)
	err := db.DB.NewSelect().
		Model(draft).
		Where("event_id = ?", eventID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to load draft for event %s: %w", eventID, err)
	}
	return draft.Payload, draft.SavedAt, nil
}

// DeleteDraft removes the event's draft, if any.
func (db *DraftDBImpl) DeleteDraft(ctx context.Context, eventID string) error {
	_, err := db.DB.NewDelete().
		Model((*ImportDraft)(nil)).
		Where("event_id = ?", eventID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete draft for event %s: %w", eventID, err)
	}
	return nil
}

// PurgeExpired removes drafts saved before the cutoff.
func (db *DraftDBImpl) PurgeExpired(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := db.DB.NewDelete().
		Model((*ImportDraft)(nil)).
		Where("saved_at < ?", cutoff).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired drafts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged drafts: %w", err)
	}
	return int(n), nil
}
