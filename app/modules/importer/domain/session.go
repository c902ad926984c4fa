package domain

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ImportSession is the single mutable context threaded through the import
// pipeline. The step machine rejects re-entrant transitions such as a second
// submit while one is in flight; callers must hold the session lock across
// the whole check-then-mutate span for that rejection to be reliable.
type ImportSession struct {
	// mu serializes operations on the session. It is zero-valued after a
	// draft round-trip, which is a valid unlocked mutex.
	mu sync.Mutex

	ID      uuid.UUID    `json:"id"`
	EventID string       `json:"event_id"`
	ActorID string       `json:"actor_id"`
	Step    ImportStep   `json:"step"`
	Method  ImportMethod `json:"method"`
	Mode    ImportMode   `json:"mode"`

	Source      SourceDescriptor `json:"source"`
	ParseResult *ParseResult     `json:"parse_result,omitempty"`

	// KeyMapping maps source column -> target key or IgnoreColumn. Columns
	// absent from the map are unmapped, which is not the same as ignored.
	KeyMapping map[string]string `json:"key_mapping"`
	// AutoConfidence records the mapper's confidence per target key for UI
	// hinting; operator overrides do not update it.
	AutoConfidence map[string]Confidence `json:"auto_mapped_confidence"`

	// EditedRows overlays operator cell edits: row ID -> source column ->
	// value. The underlying ParsedRow is never touched.
	EditedRows map[int]map[string]string `json:"edited_rows"`
	// RowStrategies holds explicit per-row merge strategy overrides.
	RowStrategies map[int]MergeStrategy `json:"row_strategies"`
	// ConflictDefault applies to duplicate rows without an explicit override.
	ConflictDefault MergeStrategy `json:"conflict_default"`

	// Acks records which soft guard findings the operator confirmed.
	Acks map[GuardCode]bool `json:"acks"`

	UndoToken  string    `json:"undo_token,omitempty"`
	UndoExpiry time.Time `json:"undo_expiry,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewImportSession creates a session at the input step.
func NewImportSession(eventID, actorID string, mode ImportMode) *ImportSession {
	now := time.Now().UTC()
	return &ImportSession{
		ID:              uuid.New(),
		EventID:         eventID,
		ActorID:         actorID,
		Step:            StepInput,
		Mode:            mode,
		KeyMapping:      map[string]string{},
		AutoConfidence:  map[string]Confidence{},
		EditedRows:      map[int]map[string]string{},
		RowStrategies:   map[int]MergeStrategy{},
		ConflictDefault: StrategyOverwrite,
		Acks:            map[GuardCode]bool{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Lock acquires the session's operation lock.
func (s *ImportSession) Lock() { s.mu.Lock() }

// Unlock releases the session's operation lock.
func (s *ImportSession) Unlock() { s.mu.Unlock() }

// stepTransitions is the allowed-edge table. input is initial; success and
// closed are terminal apart from the explicit post-revert return to input.
var stepTransitions = map[ImportStep][]ImportStep{
	StepInput:          {StepParsing, StepReview, StepHistory, StepClosed},
	StepParsing:        {StepSheetSelection, StepReview, StepInput},
	StepSheetSelection: {StepParsing, StepInput, StepClosed},
	StepReview:         {StepSubmitting, StepInput, StepClosed},
	StepSubmitting:     {StepSuccess, StepReview},
	StepSuccess:        {StepInput, StepClosed},
	StepHistory:        {StepInput, StepClosed},
}

// ErrSessionNotFound is returned when no live session exists for the id.
var ErrSessionNotFound = errors.New("import session not found")

// ErrInvalidTransition is returned when a step change is not permitted.
type ErrInvalidTransition struct {
	From ImportStep
	To   ImportStep
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid import step transition %s -> %s", e.From, e.To)
}

// Transition moves the session to the requested step or fails without side
// effects.
func (s *ImportSession) Transition(to ImportStep) error {
	for _, allowed := range stepTransitions[s.Step] {
		if allowed == to {
			s.Step = to
			s.touch()
			return nil
		}
	}
	return ErrInvalidTransition{From: s.Step, To: to}
}

func (s *ImportSession) touch() {
	s.UpdatedAt = time.Now().UTC()
}

// EditRow stores a cell override for a row. The parsed row itself is left
// untouched.
func (s *ImportSession) EditRow(rowID int, column, value string) error {
	if s.Step != StepReview {
		return fmt.Errorf("cannot edit rows in step %s", s.Step)
	}
	if s.EditedRows == nil {
		s.EditedRows = map[int]map[string]string{}
	}
	if s.EditedRows[rowID] == nil {
		s.EditedRows[rowID] = map[string]string{}
	}
	s.EditedRows[rowID][column] = value
	s.touch()
	return nil
}

// RowValue returns the effective cell value for a column: the operator edit
// when present, else the original parsed value.
func (s *ImportSession) RowValue(row ParsedRow, column string) string {
	if edits, ok := s.EditedRows[row.RowID]; ok {
		if v, ok := edits[column]; ok {
			return v
		}
	}
	return row.SourceData[column]
}

// SetColumnTarget maps a source column to a target key.
func (s *ImportSession) SetColumnTarget(column, targetKey string) error {
	if s.Step != StepReview {
		return fmt.Errorf("cannot change mapping in step %s", s.Step)
	}
	s.KeyMapping[column] = targetKey
	s.touch()
	return nil
}

// IgnoreSourceColumn marks a column as intentionally dropped.
func (s *ImportSession) IgnoreSourceColumn(column string) error {
	return s.SetColumnTarget(column, IgnoreColumn)
}

// SetRowStrategy overrides the merge strategy for one duplicate row.
func (s *ImportSession) SetRowStrategy(rowID int, strategy MergeStrategy) error {
	if s.Step != StepReview {
		return fmt.Errorf("cannot change row strategy in step %s", s.Step)
	}
	s.RowStrategies[rowID] = strategy
	s.touch()
	return nil
}

// SetConflictDefault changes the session-wide default. Rows with an explicit
// override keep it.
func (s *ImportSession) SetConflictDefault(strategy MergeStrategy) error {
	if s.Step != StepReview {
		return fmt.Errorf("cannot change conflict default in step %s", s.Step)
	}
	s.ConflictDefault = strategy
	s.touch()
	return nil
}

// Acknowledge records operator confirmation of a soft guard finding.
func (s *ImportSession) Acknowledge(code GuardCode) {
	if s.Acks == nil {
		s.Acks = map[GuardCode]bool{}
	}
	s.Acks[code] = true
	s.touch()
}

// ResolvedStrategy applies the resolution order: explicit per-row override,
// then the session default, then implicit overwrite. Rows not flagged as
// duplicates always insert as overwrite.
func (s *ImportSession) ResolvedStrategy(row ParsedRow) MergeStrategy {
	if !row.IsDuplicateCandidate {
		return StrategyOverwrite
	}
	if strategy, ok := s.RowStrategies[row.RowID]; ok {
		return strategy
	}
	if s.ConflictDefault != "" {
		return s.ConflictDefault
	}
	return StrategyOverwrite
}

// UnmappedColumns returns source columns with no mapping entry at all.
func (s *ImportSession) UnmappedColumns() []string {
	if s.ParseResult == nil {
		return nil
	}
	var out []string
	for _, col := range s.ParseResult.SourceColumns {
		if _, ok := s.KeyMapping[col]; !ok {
			out = append(out, col)
		}
	}
	return out
}

// IgnoredColumns returns source columns explicitly mapped to IgnoreColumn.
func (s *ImportSession) IgnoredColumns() []string {
	if s.ParseResult == nil {
		return nil
	}
	var out []string
	for _, col := range s.ParseResult.SourceColumns {
		if s.KeyMapping[col] == IgnoreColumn {
			out = append(out, col)
		}
	}
	return out
}

// MappedTargets returns the set of target keys currently mapped from some
// source column, excluding the ignore sentinel.
func (s *ImportSession) MappedTargets() map[string]string {
	targets := make(map[string]string, len(s.KeyMapping))
	for col, key := range s.KeyMapping {
		if key == IgnoreColumn || key == "" {
			continue
		}
		targets[key] = col
	}
	return targets
}

// UndoActive reports whether the compensating revert is still available.
func (s *ImportSession) UndoActive(now time.Time) bool {
	return s.UndoToken != "" && now.Before(s.UndoExpiry)
}
