// Package importerdb persists imported rosters, drill scores, undo logs, and
// the import audit trail.
package importerdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/combine-hq/combine-server/app/modules/importer/domain"
	schemadomain "github.com/combine-hq/combine-server/app/modules/schema/domain"
)

// ImporterDBImpl is the bun-backed implementation of ImporterDB.
type ImporterDBImpl struct {
	DB *bun.DB
}

var _ ImporterDB = (*ImporterDBImpl)(nil)

// SubmitRows writes one reconciled batch in a single transaction. Rows that
// fail validation are reported in the result's error list; the rest of the
// batch still commits, so the operator never re-imports rows that already
// landed.
func (db *ImporterDBImpl) SubmitRows(ctx context.Context, req *SubmitRequest) (*domain.SubmitResult, error) {
	if req == nil || req.Schema == nil {
		return nil, fmt.Errorf("submit request is missing its schema")
	}

	tx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existing []Player
	if err := tx.NewSelect().
		Model(&existing).
		Where("event_id = ?", req.EventID).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}
	byKey := make(map[string]*Player, len(existing))
	for i := range existing {
		byKey[existing[i].NameKey] = &existing[i]
	}

	now := time.Now().UTC()
	result := &domain.SubmitResult{}
	snapshot := UndoSnapshot{}
	playerSnapshotted := map[int64]bool{}

	for _, row := range req.Rows {
		fields, scores, rowErrs := splitRow(row, req.Schema)
		if len(rowErrs) > 0 {
			result.Errors = append(result.Errors, rowErrs...)
			continue
		}

		key := NameKeyFor(fields["first_name"], fields["last_name"])
		if key == "|" {
			result.Errors = append(result.Errors, domain.RowError{Row: row.Row, Message: "player name is missing"})
			continue
		}

		player := byKey[key]
		switch {
		case player == nil:
			if !req.Mode.IncludesRoster() {
				result.Errors = append(result.Errors, domain.RowError{Row: row.Row, Message: "no matching player on the roster"})
				continue
			}
			player = newPlayer(req.EventID, key, fields, now)
			if _, err := tx.NewInsert().Model(player).Exec(ctx); err != nil {
				return nil, fmt.Errorf("failed to insert player for row %d: %w", row.Row, err)
			}
			snapshot.CreatedPlayerIDs = append(snapshot.CreatedPlayerIDs, player.ID)
			byKey[key] = player
			result.CreatedPlayers++

		default:
			if req.Mode.IncludesRoster() {
				if !playerSnapshotted[player.ID] {
					snapshot.UpdatedPlayers = append(snapshot.UpdatedPlayers, *player)
					playerSnapshotted[player.ID] = true
				}
				applyFields(player, fields, row.MergeStrategy)
				player.UpdatedAt = now
				if _, err := tx.NewUpdate().Model(player).WherePK().Exec(ctx); err != nil {
					return nil, fmt.Errorf("failed to update player for row %d: %w", row.Row, err)
				}
			}
			result.UpdatedPlayers++
		}

		if req.Mode.IncludesScores() {
			written, err := writeScores(ctx, tx, req.EventID, player.ID, scores, row.MergeStrategy, &snapshot, now)
			if err != nil {
				return nil, fmt.Errorf("failed to write scores for row %d: %w", row.Row, err)
			}
			result.ScoresWrittenTotal += written
		}
	}

	result.Added = result.CreatedPlayers + result.UpdatedPlayers

	token := uuid.NewString()
	undo := &UndoRecord{Token: token, EventID: req.EventID, Snapshot: snapshot}
	if _, err := tx.NewInsert().Model(undo).Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to record undo log: %w", err)
	}

	audit := &ImportAudit{
		EventID:      req.EventID,
		Type:         string(domain.HistoryImport),
		RowsAffected: result.Added,
		SkippedCount: req.SkippedCount,
		Method:       string(req.Method),
		SourceName:   req.SourceName,
		ActorID:      req.ActorID,
		UndoToken:    token,
	}
	if _, err := tx.NewInsert().Model(audit).Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to record audit entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}

	result.UndoLog = token
	return result, nil
}

// ExistingPlayerKeys returns the normalized name keys already on the roster.
func (db *ImporterDBImpl) ExistingPlayerKeys(ctx context.Context, eventID string) (map[string]bool, error) {
	var keys []string
	if err := db.DB.NewSelect().
		Model((*Player)(nil)).
		Column("name_key").
		Where("event_id = ?", eventID).
		Scan(ctx, &keys); err != nil {
		return nil, fmt.Errorf("failed to load roster keys: %w", err)
	}

	out := make(map[string]bool, len(keys))
	for _, k := range keys {
		out[k] = true
	}
	return out, nil
}

// writeScores upserts the row's drill values. Under merge an existing score
// is kept; under overwrite it is snapshotted and replaced.
func writeScores(ctx context.Context, tx bun.Tx, eventID string, playerID int64, scores map[string]float64, strategy domain.MergeStrategy, snapshot *UndoSnapshot, now time.Time) (int, error) {
	written := 0
	for drillKey, value := range scores {
		var current DrillScore
		err := tx.NewSelect().
			Model(&current).
			Where("player_id = ? AND drill_key = ?", playerID, drillKey).
			Scan(ctx)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			score := &DrillScore{
				EventID:   eventID,
				PlayerID:  playerID,
				DrillKey:  drillKey,
				Value:     value,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if _, err := tx.NewInsert().Model(score).Exec(ctx); err != nil {
				return written, err
			}
			snapshot.CreatedScoreIDs = append(snapshot.CreatedScoreIDs, score.ID)
			written++

		case err != nil:
			return written, err

		default:
			if strategy == domain.StrategyMerge {
				continue
			}
			snapshot.UpdatedScores = append(snapshot.UpdatedScores, current)
			current.Value = value
			current.UpdatedAt = now
			if _, err := tx.NewUpdate().Model(&current).WherePK().Exec(ctx); err != nil {
				return written, err
			}
			written++
		}
	}
	return written, nil
}

// splitRow separates a reconciled row into player fields and parsed drill
// scores, validating drill values against the schema bounds.
func splitRow(row domain.ReconciledRow, schema *schemadomain.TargetSchema) (map[string]string, map[string]float64, []domain.RowError) {
	fields := map[string]string{}
	scores := map[string]float64{}
	var errs []domain.RowError

	for key, value := range row.Data {
		value = strings.TrimSpace(value)
		if drill, ok := schema.DrillByKey(key); ok {
			if value == "" {
				continue
			}
			n, err := strconv.ParseFloat(value, 64)
			if err != nil {
				errs = append(errs, domain.RowError{Row: row.Row, Message: fmt.Sprintf("%s: %q is not a number", drill.Label, value)})
				continue
			}
			if n < drill.Min || n > drill.Max {
				errs = append(errs, domain.RowError{Row: row.Row, Message: fmt.Sprintf("%s: %v is outside the range %v-%v", drill.Label, n, drill.Min, drill.Max)})
				continue
			}
			scores[key] = n
			continue
		}
		if schema.IsStandardField(key) {
			fields[key] = value
		}
	}

	return fields, scores, errs
}

func newPlayer(eventID, key string, fields map[string]string, now time.Time) *Player {
	return &Player{
		EventID:      eventID,
		NameKey:      key,
		FirstName:    fields["first_name"],
		LastName:     fields["last_name"],
		JerseyNumber: fields["jersey_number"],
		Position:     fields["position"],
		GradYear:     fields["grad_year"],
		Email:        fields["email"],
		Phone:        fields["phone"],
		Birthdate:    fields["birthdate"],
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// applyFields writes the row's fields onto an existing player. Overwrite
// replaces every mapped non-name field; merge only fills blanks. Names are
// left alone either way since they matched by key.
func applyFields(player *Player, fields map[string]string, strategy domain.MergeStrategy) {
	set := func(dst *string, key string) {
		value, ok := fields[key]
		if !ok {
			return
		}
		if strategy == domain.StrategyMerge && *dst != "" {
			return
		}
		*dst = value
	}
	set(&player.JerseyNumber, "jersey_number")
	set(&player.Position, "position")
	set(&player.GradYear, "grad_year")
	set(&player.Email, "email")
	set(&player.Phone, "phone")
	set(&player.Birthdate, "birthdate")
}
