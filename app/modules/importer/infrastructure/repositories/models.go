package importerdb

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// Player is one athlete on an event roster.
type Player struct {
	bun.BaseModel `bun:"table:players,alias:p"`

	ID      int64  `bun:"id,pk,autoincrement"`
	EventID string `bun:"event_id,notnull"`
	// NameKey is the normalized "first|last" duplicate-detection key, unique
	// per event.
	NameKey      string    `bun:"name_key,notnull"`
	FirstName    string    `bun:"first_name,notnull"`
	LastName     string    `bun:"last_name,notnull"`
	JerseyNumber string    `bun:"jersey_number,nullzero"`
	Position     string    `bun:"position,nullzero"`
	GradYear     string    `bun:"grad_year,nullzero"`
	Email        string    `bun:"email,nullzero"`
	Phone        string    `bun:"phone,nullzero"`
	Birthdate    string    `bun:"birthdate,nullzero"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// NameKeyFor normalizes a first/last pair into the roster lookup key.
func NameKeyFor(first, last string) string {
	return strings.ToLower(strings.TrimSpace(first)) + "|" + strings.ToLower(strings.TrimSpace(last))
}

// DrillScore is one measured drill result, unique per player and drill.
type DrillScore struct {
	bun.BaseModel `bun:"table:drill_scores,alias:ds"`

	ID        int64     `bun:"id,pk,autoincrement"`
	EventID   string    `bun:"event_id,notnull"`
	PlayerID  int64     `bun:"player_id,notnull"`
	DrillKey  string    `bun:"drill_key,notnull"`
	Value     float64   `bun:"value,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// ImportAudit is one row in the event's import history.
type ImportAudit struct {
	bun.BaseModel `bun:"table:import_history,alias:ih"`

	ID           int64     `bun:"id,pk,autoincrement"`
	EventID      string    `bun:"event_id,notnull"`
	Type         string    `bun:"type,notnull"`
	RowsAffected int       `bun:"rows_affected,notnull"`
	SkippedCount int       `bun:"skipped_count,notnull,default:0"`
	Method       string    `bun:"method,nullzero"`
	SourceName   string    `bun:"source_name,nullzero"`
	ActorID      string    `bun:"actor_id,nullzero"`
	UndoToken    string    `bun:"undo_token,nullzero"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// UndoSnapshot captures everything needed to compensate one submission:
// created rows are deleted, updated rows restored from their prior images.
type UndoSnapshot struct {
	CreatedPlayerIDs []int64      `json:"created_player_ids"`
	CreatedScoreIDs  []int64      `json:"created_score_ids"`
	UpdatedPlayers   []Player     `json:"updated_players"`
	UpdatedScores    []DrillScore `json:"updated_scores"`
}

// UndoRecord persists the compensating-action token and its snapshot.
type UndoRecord struct {
	bun.BaseModel `bun:"table:import_undo_logs,alias:ul"`

	ID        int64        `bun:"id,pk,autoincrement"`
	Token     string       `bun:"token,notnull,unique"`
	EventID   string       `bun:"event_id,notnull"`
	Snapshot  UndoSnapshot `bun:"snapshot,type:jsonb"`
	Reverted  bool         `bun:"reverted,notnull,default:false"`
	CreatedAt time.Time    `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// ImportDraft is an autosaved session snapshot, one per event.
type ImportDraft struct {
	bun.BaseModel `bun:"table:import_drafts,alias:idr"`

	EventID string    `bun:"event_id,pk"`
	Payload []byte    `bun:"payload,type:jsonb,notnull"`
	SavedAt time.Time `bun:"saved_at,notnull"`
}
