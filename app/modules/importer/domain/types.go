// Package domain holds the importer's typed model: parsed rows, column
// mappings, merge strategies, and the review session threaded through the
// import pipeline.
package domain

import "time"

// ImportStep is the session state machine position.
type ImportStep string

const (
	StepInput          ImportStep = "input"
	StepParsing        ImportStep = "parsing"
	StepSheetSelection ImportStep = "sheet_selection"
	StepReview         ImportStep = "review"
	StepSubmitting     ImportStep = "submitting"
	StepSuccess        ImportStep = "success"
	StepHistory        ImportStep = "history"
	StepClosed         ImportStep = "closed"
)

// ImportMethod describes how the source material arrived.
type ImportMethod string

const (
	MethodFile     ImportMethod = "file"
	MethodPaste    ImportMethod = "paste"
	MethodPhoto    ImportMethod = "photo"
	MethodSheetURL ImportMethod = "sheet_url"
)

// ImportMode declares the operator's intent for this import.
type ImportMode string

const (
	ModeRosterOnly      ImportMode = "roster_only"
	ModeScoresOnly      ImportMode = "scores_only"
	ModeRosterAndScores ImportMode = "roster_and_scores"
)

// IncludesScores reports whether drill columns are in scope for this mode.
func (m ImportMode) IncludesScores() bool {
	return m == ModeScoresOnly || m == ModeRosterAndScores
}

// IncludesRoster reports whether player fields are in scope for this mode.
func (m ImportMode) IncludesRoster() bool {
	return m == ModeRosterOnly || m == ModeRosterAndScores
}

// MergeStrategy is the per-row policy for reconciling against an existing
// player record.
type MergeStrategy string

const (
	StrategyOverwrite MergeStrategy = "overwrite"
	StrategyMerge     MergeStrategy = "merge"
	StrategySkip      MergeStrategy = "skip"
)

// IgnoreColumn is the mapping sentinel for a column the operator explicitly
// chose to drop. It is distinct from an unmapped column: unmapped columns
// still trip the data-loss guard.
const IgnoreColumn = "__ignore__"

// Confidence rates an automatic column-to-field mapping.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ParsedRow is one source row as produced by the parser adapter. It is never
// mutated after parse; operator edits overlay it by RowID so the original vs.
// edited diff stays auditable.
type ParsedRow struct {
	RowID                int               `json:"row"`
	SourceData           map[string]string `json:"data"`
	IsDuplicateCandidate bool              `json:"is_duplicate_candidate"`
	IsError              bool              `json:"is_error,omitempty"`
	ErrorMessages        []string          `json:"error_messages,omitempty"`
}

// RowError is a parse- or submit-time failure tied to one row.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ParseResult is the structured output of the parser adapter: either a list
// of candidate sheets awaiting selection, or the split row set.
type ParseResult struct {
	SourceColumns []string    `json:"source_columns"`
	ValidRows     []ParsedRow `json:"valid_rows"`
	Errors        []RowError  `json:"errors"`
	Summary       string      `json:"summary,omitempty"`
	DetectedSport string      `json:"detected_sport,omitempty"`
	// Sheets is non-empty when the source had multiple sheets and the
	// operator must pick one before rows exist.
	Sheets []string `json:"sheets,omitempty"`
}

// NeedsSheetSelection reports whether the source requires picking a sheet.
func (r *ParseResult) NeedsSheetSelection() bool {
	return r != nil && len(r.Sheets) > 0
}

// SourceDescriptor identifies where the rows came from, minus any binary
// payload (payloads are never persisted into drafts).
type SourceDescriptor struct {
	Method    ImportMethod `json:"method"`
	Filename  string       `json:"filename,omitempty"`
	SheetURL  string       `json:"sheet_url,omitempty"`
	SheetName string       `json:"sheet_name,omitempty"`
}

// Name returns the operator-facing source label for audit entries.
func (s SourceDescriptor) Name() string {
	switch {
	case s.Filename != "":
		return s.Filename
	case s.SheetURL != "":
		return s.SheetURL
	default:
		return string(s.Method)
	}
}

// ReconciledRow is one materialized row bound for the submit endpoint: edits
// overlaid, keys renamed to target keys, ignored and unknown keys dropped.
type ReconciledRow struct {
	Row           int               `json:"row"`
	Data          map[string]string `json:"data"`
	MergeStrategy MergeStrategy     `json:"merge_strategy"`
}

// SubmitResult is the backend's answer to one submission.
type SubmitResult struct {
	Added              int        `json:"added"`
	CreatedPlayers     int        `json:"created_players"`
	UpdatedPlayers     int        `json:"updated_players"`
	ScoresWrittenTotal int        `json:"scores_written_total"`
	Errors             []RowError `json:"errors,omitempty"`
	// UndoLog is the compensating-action token; empty when the backend
	// could not produce one.
	UndoLog string `json:"undo_log,omitempty"`
}

// HistoryType discriminates audit entries.
type HistoryType string

const (
	HistoryImport HistoryType = "import"
	HistoryRevert HistoryType = "revert"
)

// ImportHistoryEntry is one read-only audit record.
type ImportHistoryEntry struct {
	Timestamp    time.Time    `json:"timestamp"`
	Type         HistoryType  `json:"type"`
	RowsAffected int          `json:"rows_affected"`
	SkippedCount int          `json:"skipped_count"`
	Method       ImportMethod `json:"method"`
	SourceName   string       `json:"filename_or_source"`
	ActorID      string       `json:"actor_id"`
}

// GuardSeverity orders preflight findings from "definitely wrong" to
// "possibly intentional".
type GuardSeverity string

const (
	// SeverityBlock stops submission outright; there is no acknowledgement
	// that clears it.
	SeverityBlock GuardSeverity = "block"
	// SeverityConfirm requires an explicit operator acknowledgement.
	SeverityConfirm GuardSeverity = "confirm"
	// SeverityWarn is informational; submission proceeds regardless.
	SeverityWarn GuardSeverity = "warn"
)

// GuardCode identifies a preflight check.
type GuardCode string

const (
	GuardMissingRequiredFields GuardCode = "missing_required_fields"
	GuardUnmappedColumnsData   GuardCode = "unmapped_columns_with_data"
	GuardIgnoredColumnsData    GuardCode = "ignored_columns_with_data"
	GuardNoDrillColumns        GuardCode = "no_drill_columns"
)

// GuardIssue is one preflight finding surfaced to the operator.
type GuardIssue struct {
	Code     GuardCode     `json:"code"`
	Severity GuardSeverity `json:"severity"`
	Message  string        `json:"message"`
	Columns  []string      `json:"columns,omitempty"`
	Fields   []string      `json:"fields,omitempty"`
}
