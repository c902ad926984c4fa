package importerservice

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/combine-hq/combine-server/app/modules/importer/domain"
	"github.com/combine-hq/combine-server/internal/attr"
	"github.com/combine-hq/combine-server/internal/results"
)

// SessionDraft is the autosaved snapshot stored per event. Raw source
// payloads are never included; a resumed draft that needs re-parsing drops
// back to input.
type SessionDraft struct {
	SavedAt time.Time             `json:"saved_at"`
	Session *domain.ImportSession `json:"session"`
}

// DraftDiscardedPayload confirms an explicit discard.
type DraftDiscardedPayload struct {
	EventID string `json:"event_id"`
}

// autosave persists the session snapshot under its event id. Last writer
// wins; a save failure is logged but never fails the operation that
// triggered it.
func (s *ImportService) autosave(ctx context.Context, session *domain.ImportSession) {
	if s.DraftDB == nil {
		return
	}

	now := s.clock.Now()
	data, err := json.Marshal(SessionDraft{SavedAt: now, Session: session})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to serialize session draft",
			attr.UUIDValue("session_id", session.ID),
			attr.Error(err),
		)
		return
	}

	if err := s.DraftDB.SaveDraft(ctx, session.EventID, data, now); err != nil {
		s.logger.WarnContext(ctx, "Failed to autosave session draft",
			attr.UUIDValue("session_id", session.ID),
			attr.String("event_id", session.EventID),
			attr.Error(err),
		)
	}
}

// ResumeSession restores the event's autosaved draft into a live session.
// The resuming operator takes over as actor.
func (s *ImportService) ResumeSession(ctx context.Context, eventID, actorID string) (results.OperationResult, error) {
	return s.serviceWrapper(ctx, "ResumeSession", uuid.Nil, func(ctx context.Context) (results.OperationResult, error) {
		if s.DraftDB == nil {
			return s.failure(nil, "NO_DRAFT", "draft storage is not configured"), nil
		}

		payload, savedAt, err := s.DraftDB.LoadDraft(ctx, eventID)
		if err != nil {
			return s.failure(nil, "DRAFT_LOAD_FAILED", err.Error()), nil
		}
		if payload == nil {
			return s.failure(nil, "NO_DRAFT", "no saved draft for this event"), nil
		}

		var draft SessionDraft
		if err := json.Unmarshal(payload, &draft); err != nil || draft.Session == nil {
			// A corrupt draft is unrecoverable; delete it so the operator is
			// not re-prompted forever.
			if derr := s.DraftDB.DeleteDraft(ctx, eventID); derr != nil {
				s.logger.WarnContext(ctx, "Failed to delete corrupt draft",
					attr.String("event_id", eventID),
					attr.Error(derr),
				)
			}
			return s.failure(nil, "DRAFT_CORRUPT", "saved draft could not be read and was discarded"), nil
		}

		session := draft.Session
		session.ActorID = actorID

		// Drafts are only written at input and review. Anything else means
		// the snapshot caught a transient step whose in-memory payload is
		// gone; drop back to input.
		if session.Step != domain.StepInput && session.Step != domain.StepReview {
			session.Step = domain.StepInput
			s.resetParseState(session)
		}

		s.storeSession(session)

		s.logger.InfoContext(ctx, "Session resumed from draft",
			attr.UUIDValue("session_id", session.ID),
			attr.String("event_id", eventID),
			attr.String("step", string(session.Step)),
			attr.Any("saved_at", savedAt),
		)
		return results.SuccessResult(session), nil
	})
}

// DiscardDraft deletes the event's autosaved draft.
func (s *ImportService) DiscardDraft(ctx context.Context, eventID string) (results.OperationResult, error) {
	return s.serviceWrapper(ctx, "DiscardDraft", uuid.Nil, func(ctx context.Context) (results.OperationResult, error) {
		if s.DraftDB == nil {
			return results.SuccessResult(&DraftDiscardedPayload{EventID: eventID}), nil
		}
		if err := s.DraftDB.DeleteDraft(ctx, eventID); err != nil {
			return s.failure(nil, "DRAFT_DELETE_FAILED", err.Error()), nil
		}
		return results.SuccessResult(&DraftDiscardedPayload{EventID: eventID}), nil
	})
}
