package importerservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/combine-hq/combine-server/app/modules/importer/domain"
	schemadomain "github.com/combine-hq/combine-server/app/modules/schema/domain"
)

// guardSampleSize is how many rows the data-loss checks sample per column.
const guardSampleSize = 10

// RunGuard evaluates the pre-submission checks in order, from "definitely
// wrong" to "possibly intentional":
//
//  1. required-field coverage (block, roster modes only)
//  2. unmapped columns carrying data (confirm)
//  3. explicitly ignored columns carrying data (confirm, softer)
//  4. zero mapped drill columns under scores_only (block)
//  5. zero mapped drill columns under roster_and_scores (warn)
//
// It is a pure function of the session and schema; acknowledgement state is
// applied separately by Blocked.
func RunGuard(session *domain.ImportSession, schema *schemadomain.TargetSchema) []domain.GuardIssue {
	var issues []domain.GuardIssue
	targets := session.MappedTargets()

	if session.Mode.IncludesRoster() {
		var missing []string
		for _, key := range schema.RequiredFields() {
			if _, ok := targets[key]; !ok {
				missing = append(missing, key)
			}
		}
		if len(missing) > 0 {
			issues = append(issues, domain.GuardIssue{
				Code:     domain.GuardMissingRequiredFields,
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("required fields have no mapped column: %s", strings.Join(missing, ", ")),
				Fields:   missing,
			})
		}
	}

	if cols := columnsWithData(session, session.UnmappedColumns()); len(cols) > 0 {
		issues = append(issues, domain.GuardIssue{
			Code:     domain.GuardUnmappedColumnsData,
			Severity: domain.SeverityConfirm,
			Message:  fmt.Sprintf("unmapped columns contain data that will not be imported: %s", strings.Join(cols, ", ")),
			Columns:  cols,
		})
	}

	if cols := columnsWithData(session, session.IgnoredColumns()); len(cols) > 0 {
		issues = append(issues, domain.GuardIssue{
			Code:     domain.GuardIgnoredColumnsData,
			Severity: domain.SeverityConfirm,
			Message:  fmt.Sprintf("ignored columns still contain data: %s", strings.Join(cols, ", ")),
			Columns:  cols,
		})
	}

	if session.Mode.IncludesScores() {
		hasDrill := false
		for key := range targets {
			if _, ok := schema.DrillByKey(key); ok {
				hasDrill = true
				break
			}
		}
		if !hasDrill {
			severity := domain.SeverityWarn
			message := "no columns are mapped to drills; only roster fields will be imported"
			if session.Mode == domain.ModeScoresOnly {
				severity = domain.SeverityBlock
				message = "a scores-only import needs at least one column mapped to a drill"
			}
			issues = append(issues, domain.GuardIssue{
				Code:     domain.GuardNoDrillColumns,
				Severity: severity,
				Message:  message,
			})
		}
	}

	return issues
}

// Blocked reports whether the findings stop submission: any block finding, or
// any confirm finding the operator has not acknowledged. Warn findings never
// block.
func Blocked(issues []domain.GuardIssue, acks map[domain.GuardCode]bool) bool {
	for _, issue := range issues {
		switch issue.Severity {
		case domain.SeverityBlock:
			return true
		case domain.SeverityConfirm:
			if !acks[issue.Code] {
				return true
			}
		}
	}
	return false
}

// Preflight runs the guard checks without submitting.
func (s *ImportService) Preflight(ctx context.Context, sessionID uuid.UUID) ([]domain.GuardIssue, error) {
	session, err := s.lockSession(sessionID)
	if err != nil {
		return nil, err
	}
	defer session.Unlock()
	if session.Step != domain.StepReview {
		return nil, fmt.Errorf("cannot run preflight in step %s", session.Step)
	}

	schema, err := s.Schemas.GetEventSchema(ctx, session.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	return RunGuard(session, schema), nil
}

// columnsWithData filters cols down to those with at least one non-empty
// sampled value. Cell edits count; a column the operator blanked out by hand
// no longer carries data.
func columnsWithData(session *domain.ImportSession, cols []string) []string {
	if session.ParseResult == nil || len(cols) == 0 {
		return nil
	}
	rows := session.ParseResult.ValidRows
	if len(rows) > guardSampleSize {
		rows = rows[:guardSampleSize]
	}

	var out []string
	for _, col := range cols {
		for _, row := range rows {
			if strings.TrimSpace(session.RowValue(row, col)) != "" {
				out = append(out, col)
				break
			}
		}
	}
	return out
}
