package importerdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/combine-hq/combine-server/app/modules/importer/domain"
)

// RevertImport compensates a prior submission: created players and scores are
// deleted, updated rows restored from the undo snapshot. The token is
// single-use; reverting an already-reverted or unknown token is a no-op
// returning zero, so retried requests cannot double-revert.
func (db *ImporterDBImpl) RevertImport(ctx context.Context, eventID, undoToken, actorID string) (int, error) {
	tx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	record := new(UndoRecord)
	err = tx.NewSelect().
		Model(record).
		Where("token = ? AND event_id = ? AND reverted = false", undoToken, eventID).
		For("UPDATE").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load undo log: %w", err)
	}

	snap := record.Snapshot
	reverted := 0

	if len(snap.CreatedScoreIDs) > 0 {
		if _, err := tx.NewDelete().
			Model((*DrillScore)(nil)).
			Where("id IN (?)", bun.In(snap.CreatedScoreIDs)).
			Exec(ctx); err != nil {
			return 0, fmt.Errorf("failed to delete created scores: %w", err)
		}
	}

	if len(snap.CreatedPlayerIDs) > 0 {
		// Scores attached to created players go with them, including any that
		// predate the snapshot bookkeeping.
		if _, err := tx.NewDelete().
			Model((*DrillScore)(nil)).
			Where("player_id IN (?)", bun.In(snap.CreatedPlayerIDs)).
			Exec(ctx); err != nil {
			return 0, fmt.Errorf("failed to delete scores of created players: %w", err)
		}
		if _, err := tx.NewDelete().
			Model((*Player)(nil)).
			Where("id IN (?)", bun.In(snap.CreatedPlayerIDs)).
			Exec(ctx); err != nil {
			return 0, fmt.Errorf("failed to delete created players: %w", err)
		}
		reverted += len(snap.CreatedPlayerIDs)
	}

	for i := range snap.UpdatedPlayers {
		prior := snap.UpdatedPlayers[i]
		if _, err := tx.NewUpdate().Model(&prior).WherePK().Exec(ctx); err != nil {
			return 0, fmt.Errorf("failed to restore player %d: %w", prior.ID, err)
		}
		reverted++
	}

	for i := range snap.UpdatedScores {
		prior := snap.UpdatedScores[i]
		if _, err := tx.NewUpdate().Model(&prior).WherePK().Exec(ctx); err != nil {
			return 0, fmt.Errorf("failed to restore score %d: %w", prior.ID, err)
		}
	}

	if _, err := tx.NewUpdate().
		Model((*UndoRecord)(nil)).
		Set("reverted = true").
		Where("id = ?", record.ID).
		Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to mark undo log reverted: %w", err)
	}

	audit := &ImportAudit{
		EventID:      eventID,
		Type:         string(domain.HistoryRevert),
		RowsAffected: reverted,
		ActorID:      actorID,
		UndoToken:    undoToken,
	}
	if _, err := tx.NewInsert().Model(audit).Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to record revert audit entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit revert: %w", err)
	}
	return reverted, nil
}
