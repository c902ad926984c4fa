package importerservice

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/combine-hq/combine-server/app/modules/importer/domain"
)

// SetColumnMapping maps a source column to a target key or the ignore
// sentinel. Assigning a target already claimed by another column steals the
// mapping; the previous column becomes unmapped.
func (s *ImportService) SetColumnMapping(ctx context.Context, sessionID uuid.UUID, column, targetKey string) error {
	session, err := s.lockSession(sessionID)
	if err != nil {
		return err
	}
	defer session.Unlock()
	if session.ParseResult == nil {
		return fmt.Errorf("no parsed source to map")
	}

	if !validSourceColumn(session, column) {
		return fmt.Errorf("unknown source column %q", column)
	}

	if targetKey != domain.IgnoreColumn {
		schema, err := s.Schemas.GetEventSchema(ctx, session.EventID)
		if err != nil {
			return fmt.Errorf("failed to load schema: %w", err)
		}
		if !schema.IsTargetKey(targetKey) {
			return fmt.Errorf("unknown target key %q", targetKey)
		}
		for col, key := range session.KeyMapping {
			if key == targetKey && col != column {
				delete(session.KeyMapping, col)
			}
		}
	}

	if err := session.SetColumnTarget(column, targetKey); err != nil {
		return err
	}

	if err := s.revalidate(ctx, session); err != nil {
		return err
	}
	s.autosave(ctx, session)
	return nil
}

// EditRow stores a cell override and re-validates so fixed cells clear their
// row errors immediately.
func (s *ImportService) EditRow(ctx context.Context, sessionID uuid.UUID, rowID int, column, value string) error {
	session, err := s.lockSession(sessionID)
	if err != nil {
		return err
	}
	defer session.Unlock()
	if !validSourceColumn(session, column) {
		return fmt.Errorf("unknown source column %q", column)
	}
	if err := session.EditRow(rowID, column, value); err != nil {
		return err
	}

	if err := s.revalidate(ctx, session); err != nil {
		return err
	}
	s.autosave(ctx, session)
	return nil
}

// SetRowStrategy overrides the merge strategy for one duplicate row.
func (s *ImportService) SetRowStrategy(ctx context.Context, sessionID uuid.UUID, rowID int, strategy domain.MergeStrategy) error {
	session, err := s.lockSession(sessionID)
	if err != nil {
		return err
	}
	defer session.Unlock()
	if err := validStrategy(strategy); err != nil {
		return err
	}
	if err := session.SetRowStrategy(rowID, strategy); err != nil {
		return err
	}
	s.autosave(ctx, session)
	return nil
}

// SetConflictDefault changes the session-wide default strategy for duplicate
// rows without an explicit override.
func (s *ImportService) SetConflictDefault(ctx context.Context, sessionID uuid.UUID, strategy domain.MergeStrategy) error {
	session, err := s.lockSession(sessionID)
	if err != nil {
		return err
	}
	defer session.Unlock()
	if err := validStrategy(strategy); err != nil {
		return err
	}
	if err := session.SetConflictDefault(strategy); err != nil {
		return err
	}
	s.autosave(ctx, session)
	return nil
}

// AcknowledgeGuard records operator confirmation of a soft guard finding.
func (s *ImportService) AcknowledgeGuard(ctx context.Context, sessionID uuid.UUID, code domain.GuardCode) error {
	session, err := s.lockSession(sessionID)
	if err != nil {
		return err
	}
	defer session.Unlock()
	if session.Step != domain.StepReview {
		return fmt.Errorf("cannot acknowledge guard findings in step %s", session.Step)
	}
	session.Acknowledge(code)
	s.autosave(ctx, session)
	return nil
}

// revalidate re-runs row validation after a mapping or cell change.
func (s *ImportService) revalidate(ctx context.Context, session *domain.ImportSession) error {
	schema, err := s.Schemas.GetEventSchema(ctx, session.EventID)
	if err != nil {
		return fmt.Errorf("failed to load schema: %w", err)
	}
	s.validateRows(session, schema)
	return nil
}

func validSourceColumn(session *domain.ImportSession, column string) bool {
	if session.ParseResult == nil {
		return false
	}
	for _, col := range session.ParseResult.SourceColumns {
		if col == column {
			return true
		}
	}
	return false
}

func validStrategy(strategy domain.MergeStrategy) error {
	switch strategy {
	case domain.StrategyOverwrite, domain.StrategyMerge, domain.StrategySkip:
		return nil
	default:
		return fmt.Errorf("unknown merge strategy %q", strategy)
	}
}
