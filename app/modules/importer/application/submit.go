package importerservice

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/combine-hq/combine-server/app/modules/importer/application/parsers"
	"github.com/combine-hq/combine-server/app/modules/importer/domain"
	importerdb "github.com/combine-hq/combine-server/app/modules/importer/infrastructure/repositories"
	schemadomain "github.com/combine-hq/combine-server/app/modules/schema/domain"
	"github.com/combine-hq/combine-server/internal/attr"
	"github.com/combine-hq/combine-server/internal/results"
)

// GuardFailedPayload is returned when the pre-submission guard stops a
// submit. Issues carry the actionable detail (which columns, which fields).
type GuardFailedPayload struct {
	EventID   string              `json:"event_id"`
	SessionID uuid.UUID           `json:"session_id"`
	Issues    []domain.GuardIssue `json:"issues"`
	Timestamp time.Time           `json:"timestamp"`
}

// Submit runs the guard, materializes the reconciled rows, and writes the
// batch. Guard findings and backend failures return the session to review
// with edits intact; only a clean write reaches success.
func (s *ImportService) Submit(ctx context.Context, sessionID uuid.UUID) (results.OperationResult, error) {
	return s.serviceWrapper(ctx, "Submit", sessionID, func(ctx context.Context) (results.OperationResult, error) {
		session, err := s.lockSession(sessionID)
		if err != nil {
			return s.failure(nil, "SESSION_NOT_FOUND", err.Error()), nil
		}
		defer session.Unlock()
		// The step machine rejects a second submit while one is in flight;
		// the lock makes the check-then-set atomic against a concurrent call.
		if err := session.Transition(domain.StepSubmitting); err != nil {
			return s.failure(session, "INVALID_STEP", err.Error()), nil
		}

		backToReview := func() error {
			return session.Transition(domain.StepReview)
		}

		schema, err := s.Schemas.GetEventSchema(ctx, session.EventID)
		if err != nil {
			if terr := backToReview(); terr != nil {
				return results.OperationResult{}, terr
			}
			return s.failure(session, "SCHEMA_LOAD_FAILED", err.Error()), nil
		}

		issues := RunGuard(session, schema)
		if Blocked(issues, session.Acks) {
			if terr := backToReview(); terr != nil {
				return results.OperationResult{}, terr
			}
			return results.FailureResult(&GuardFailedPayload{
				EventID:   session.EventID,
				SessionID: session.ID,
				Issues:    issues,
				Timestamp: s.clock.Now(),
			}), nil
		}

		rows, skipped := materializeRows(session, schema)
		if len(rows) == 0 {
			if terr := backToReview(); terr != nil {
				return results.OperationResult{}, terr
			}
			return s.failure(session, "NO_ROWS", "every row resolved to skip, nothing to submit"), nil
		}

		result, err := s.ImporterDB.SubmitRows(ctx, &importerdb.SubmitRequest{
			EventID:      session.EventID,
			ActorID:      session.ActorID,
			Method:       session.Method,
			Mode:         session.Mode,
			SourceName:   session.Source.Name(),
			Rows:         rows,
			SkippedCount: skipped,
			Schema:       schema,
		})
		if err != nil {
			if terr := backToReview(); terr != nil {
				return results.OperationResult{}, terr
			}
			s.logger.ErrorContext(ctx, "Submission failed, session returned to review",
				attr.UUIDValue("session_id", session.ID),
				attr.Error(err),
			)
			return s.failure(session, "SUBMIT_ERROR", err.Error()), nil
		}

		session.UndoToken = result.UndoLog
		if result.UndoLog != "" {
			session.UndoExpiry = s.clock.Now().Add(s.undoWindow)
		}
		if err := session.Transition(domain.StepSuccess); err != nil {
			return results.OperationResult{}, err
		}

		s.metrics.RecordImportCompleted(string(session.Mode))
		s.metrics.RecordRowsWritten("created", result.CreatedPlayers)
		s.metrics.RecordRowsWritten("updated", result.UpdatedPlayers)
		s.metrics.RecordRowsSkipped(skipped)

		if s.DraftDB != nil {
			if err := s.DraftDB.DeleteDraft(ctx, session.EventID); err != nil {
				s.logger.WarnContext(ctx, "Failed to delete draft after submit",
					attr.String("event_id", session.EventID),
					attr.Error(err),
				)
			}
		}

		s.publishEvent(ctx, domain.ImportCompletedTopic, &domain.ImportCompletedPayload{
			EventID:            session.EventID,
			SessionID:          session.ID,
			Mode:               session.Mode,
			Method:             session.Method,
			SourceName:         session.Source.Name(),
			CreatedPlayers:     result.CreatedPlayers,
			UpdatedPlayers:     result.UpdatedPlayers,
			ScoresWrittenTotal: result.ScoresWrittenTotal,
			SkippedCount:       skipped,
			ActorID:            session.ActorID,
			Timestamp:          s.clock.Now(),
		})

		s.logger.InfoContext(ctx, "Import submitted",
			attr.UUIDValue("session_id", session.ID),
			attr.String("event_id", session.EventID),
			attr.Int("created", result.CreatedPlayers),
			attr.Int("updated", result.UpdatedPlayers),
			attr.Int("scores_written", result.ScoresWrittenTotal),
			attr.Int("skipped", skipped),
			attr.Int("row_errors", len(result.Errors)),
		)

		return results.SuccessResult(result), nil
	})
}

// Revert undoes the session's last submission while the undo window is open.
// A second revert, or one after expiry, fails without touching the database.
func (s *ImportService) Revert(ctx context.Context, sessionID uuid.UUID) (results.OperationResult, error) {
	return s.serviceWrapper(ctx, "Revert", sessionID, func(ctx context.Context) (results.OperationResult, error) {
		session, err := s.lockSession(sessionID)
		if err != nil {
			return s.failure(nil, "SESSION_NOT_FOUND", err.Error()), nil
		}
		defer session.Unlock()
		if !session.UndoActive(s.clock.Now()) {
			return s.failure(session, "UNDO_EXPIRED", "the undo window has closed"), nil
		}

		token := session.UndoToken
		reverted, err := s.ImporterDB.RevertImport(ctx, session.EventID, token, session.ActorID)
		if err != nil {
			return s.failure(session, "REVERT_ERROR", err.Error()), nil
		}

		session.UndoToken = ""
		session.UndoExpiry = time.Time{}
		if err := session.Transition(domain.StepInput); err != nil {
			return results.OperationResult{}, err
		}
		s.resetParseState(session)

		s.metrics.RecordImportReverted()

		payload := &domain.ImportRevertedPayload{
			EventID:      session.EventID,
			SessionID:    session.ID,
			UndoToken:    token,
			RowsReverted: reverted,
			ActorID:      session.ActorID,
			Timestamp:    s.clock.Now(),
		}
		s.publishEvent(ctx, domain.ImportRevertedTopic, payload)

		s.logger.InfoContext(ctx, "Import reverted",
			attr.UUIDValue("session_id", session.ID),
			attr.String("event_id", session.EventID),
			attr.Int("rows_reverted", reverted),
		)

		return results.SuccessResult(payload), nil
	})
}

// materializeRows builds the submit payload: edits overlaid, keys renamed per
// the mapping, ignored and unknown keys dropped, birthdates normalized to ISO
// form. Rows resolving to skip are excluded entirely but counted.
func materializeRows(session *domain.ImportSession, schema *schemadomain.TargetSchema) ([]domain.ReconciledRow, int) {
	if session.ParseResult == nil {
		return nil, 0
	}

	var rows []domain.ReconciledRow
	skipped := 0
	for _, row := range session.ParseResult.ValidRows {
		strategy := session.ResolvedStrategy(row)
		if strategy == domain.StrategySkip {
			skipped++
			continue
		}

		data := map[string]string{}
		for col, key := range session.KeyMapping {
			if key == domain.IgnoreColumn || !schema.IsTargetKey(key) {
				continue
			}
			value := session.RowValue(row, col)
			if key == "birthdate" {
				value = parsers.NormalizeDate(value)
			}
			data[key] = value
		}

		rows = append(rows, domain.ReconciledRow{
			Row:           row.RowID,
			Data:          data,
			MergeStrategy: strategy,
		})
	}
	return rows, skipped
}

// resetParseState clears everything derived from the current source.
func (s *ImportService) resetParseState(session *domain.ImportSession) {
	session.ParseResult = nil
	session.KeyMapping = map[string]string{}
	session.AutoConfidence = map[string]domain.Confidence{}
	session.EditedRows = map[int]map[string]string{}
	session.RowStrategies = map[int]domain.MergeStrategy{}
	session.Acks = map[domain.GuardCode]bool{}
	s.dropPayload(session.ID)
}

// publishEvent notifies downstream consumers. Best effort: a publish failure
// is logged, never surfaced to the operator.
func (s *ImportService) publishEvent(ctx context.Context, topic string, payload any) {
	if s.EventBus == nil {
		return
	}
	msg, err := s.helpers.CreateNewMessage(payload, topic)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to build event message",
			attr.String("topic", topic),
			attr.Error(err),
		)
		return
	}

	if err := s.EventBus.Publish(topic, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event",
			attr.String("topic", topic),
			attr.Error(err),
		)
		return
	}

	s.logger.DebugContext(ctx, "Event published",
		attr.String("topic", topic),
		attr.String("message_id", msg.UUID),
	)
}
