package domain

import (
	"time"

	"github.com/google/uuid"
)

// Topics for downstream notification. Dependent views (player counts,
// standings) subscribe to invalidate their cached reads per event.
const (
	ImportCompletedTopic = "combine.import.completed"
	ImportRevertedTopic  = "combine.import.reverted"
)

// ImportCompletedPayload is published after a successful submission.
type ImportCompletedPayload struct {
	EventID            string       `json:"event_id"`
	SessionID          uuid.UUID    `json:"session_id"`
	Mode               ImportMode   `json:"mode"`
	Method             ImportMethod `json:"method"`
	SourceName         string       `json:"filename_or_source"`
	CreatedPlayers     int          `json:"created_players"`
	UpdatedPlayers     int          `json:"updated_players"`
	ScoresWrittenTotal int          `json:"scores_written_total"`
	SkippedCount       int          `json:"skipped_count"`
	ActorID            string       `json:"actor_id"`
	Timestamp          time.Time    `json:"timestamp"`
}

// ImportFailedPayload is the failure envelope for importer operations.
type ImportFailedPayload struct {
	EventID   string    `json:"event_id"`
	SessionID uuid.UUID `json:"session_id,omitempty"`
	Error     string    `json:"error"`
	ErrorCode string    `json:"error_code"`
	Timestamp time.Time `json:"timestamp"`
}

// ImportRevertedPayload is published when an import is undone inside the
// revert window. It is a distinct signal from completion so consumers can
// tell "import happened" apart from "import happened then was undone".
type ImportRevertedPayload struct {
	EventID      string    `json:"event_id"`
	SessionID    uuid.UUID `json:"session_id"`
	UndoToken    string    `json:"undo_log"`
	RowsReverted int       `json:"rows_reverted"`
	ActorID      string    `json:"actor_id"`
	Timestamp    time.Time `json:"timestamp"`
}
