package importerservice

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/combine-hq/combine-server/app/modules/importer/application/parsers"
	"github.com/combine-hq/combine-server/app/modules/importer/domain"
	schemadomain "github.com/combine-hq/combine-server/app/modules/schema/domain"
	"github.com/combine-hq/combine-server/internal/attr"
	"github.com/combine-hq/combine-server/internal/results"
)

// StartSession opens a fresh session at the input step.
func (s *ImportService) StartSession(ctx context.Context, eventID, actorID string, mode domain.ImportMode) (results.OperationResult, error) {
	return s.serviceWrapper(ctx, "StartSession", uuid.Nil, func(ctx context.Context) (results.OperationResult, error) {
		if eventID == "" {
			return s.failure(nil, "EVENT_REQUIRED", "event id is required"), nil
		}
		switch mode {
		case domain.ModeRosterOnly, domain.ModeScoresOnly, domain.ModeRosterAndScores:
		default:
			return s.failure(nil, "INVALID_MODE", fmt.Sprintf("unknown import mode %q", mode)), nil
		}

		session := domain.NewImportSession(eventID, actorID, mode)
		s.storeSession(session)

		s.logger.InfoContext(ctx, "Import session started",
			attr.UUIDValue("session_id", session.ID),
			attr.String("event_id", eventID),
			attr.String("mode", string(mode)),
		)
		return results.SuccessResult(session), nil
	})
}

// ProvideSource parses the raw source and advances the session to review, or
// to sheet selection when the workbook has multiple sheets.
func (s *ImportService) ProvideSource(ctx context.Context, sessionID uuid.UUID, input SourceInput) (results.OperationResult, error) {
	return s.serviceWrapper(ctx, "ProvideSource", sessionID, func(ctx context.Context) (results.OperationResult, error) {
		session, err := s.lockSession(sessionID)
		if err != nil {
			return s.failure(nil, "SESSION_NOT_FOUND", err.Error()), nil
		}
		defer session.Unlock()
		if err := session.Transition(domain.StepParsing); err != nil {
			return s.failure(session, "INVALID_STEP", err.Error()), nil
		}

		session.Method = input.Method
		session.Source = domain.SourceDescriptor{
			Method:   input.Method,
			Filename: input.Filename,
			SheetURL: input.SheetURL,
		}
		s.metrics.RecordImportStarted(string(input.Method))

		parsed, parseErr := s.parseSource(ctx, input)
		if parseErr != nil {
			s.metrics.RecordParseFailure(string(input.Method))
			// Parse failure returns to input with the source preserved in the
			// descriptor so the operator can retry or switch methods.
			if terr := session.Transition(domain.StepInput); terr != nil {
				return results.OperationResult{}, terr
			}
			s.logger.WarnContext(ctx, "Source parse failed",
				attr.UUIDValue("session_id", session.ID),
				attr.String("method", string(input.Method)),
				attr.Error(parseErr),
			)
			return s.failure(session, "PARSE_ERROR", parseErr.Error()), nil
		}

		if parsed.NeedsSheetSelection() {
			s.storePayload(session.ID, input.Payload)
			session.ParseResult = parsed
			if terr := session.Transition(domain.StepSheetSelection); terr != nil {
				return results.OperationResult{}, terr
			}
			return results.SuccessResult(session), nil
		}

		return s.enterReview(ctx, session, parsed)
	})
}

// SelectSheet re-parses a multi-sheet workbook with the chosen sheet.
func (s *ImportService) SelectSheet(ctx context.Context, sessionID uuid.UUID, sheetName string) (results.OperationResult, error) {
	return s.serviceWrapper(ctx, "SelectSheet", sessionID, func(ctx context.Context) (results.OperationResult, error) {
		session, err := s.lockSession(sessionID)
		if err != nil {
			return s.failure(nil, "SESSION_NOT_FOUND", err.Error()), nil
		}
		defer session.Unlock()
		if err := session.Transition(domain.StepParsing); err != nil {
			return s.failure(session, "INVALID_STEP", err.Error()), nil
		}

		payload := s.payload(session.ID)
		if len(payload) == 0 {
			if terr := session.Transition(domain.StepInput); terr != nil {
				return results.OperationResult{}, terr
			}
			return s.failure(session, "SOURCE_GONE", "source payload is no longer available, re-upload the file"), nil
		}

		parsed, parseErr := parsers.NewXLSXParser(sheetName).Parse(payload)
		if parseErr != nil {
			s.metrics.RecordParseFailure(string(session.Method))
			if terr := session.Transition(domain.StepInput); terr != nil {
				return results.OperationResult{}, terr
			}
			return s.failure(session, "PARSE_ERROR", parseErr.Error()), nil
		}

		session.Source.SheetName = sheetName
		return s.enterReview(ctx, session, parsed)
	})
}

// BackToInput abandons parsed rows and mapping state and returns to source
// intake. The session itself survives.
func (s *ImportService) BackToInput(ctx context.Context, sessionID uuid.UUID) error {
	session, err := s.lockSession(sessionID)
	if err != nil {
		return err
	}
	defer session.Unlock()
	if err := session.Transition(domain.StepInput); err != nil {
		return err
	}

	session.ParseResult = nil
	session.KeyMapping = map[string]string{}
	session.AutoConfidence = map[string]domain.Confidence{}
	session.EditedRows = map[int]map[string]string{}
	session.RowStrategies = map[int]domain.MergeStrategy{}
	session.Acks = map[domain.GuardCode]bool{}
	s.dropPayload(session.ID)

	s.autosave(ctx, session)
	return nil
}

func (s *ImportService) dropPayload(sessionID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.payloads, sessionID)
}

// parseSource routes the input to the right parser adapter.
func (s *ImportService) parseSource(ctx context.Context, input SourceInput) (*domain.ParseResult, error) {
	switch input.Method {
	case domain.MethodFile:
		parser, err := s.parserFactory.GetParser(input.Filename, "")
		if err != nil {
			return nil, err
		}
		return parser.Parse(input.Payload)

	case domain.MethodPaste:
		return parsers.NewPasteParser().Parse(input.Payload)

	case domain.MethodPhoto:
		if s.photos == nil {
			return nil, fmt.Errorf("photo extraction is not configured")
		}
		return s.photos.ExtractRows(ctx, input.Payload)

	case domain.MethodSheetURL:
		if s.sheets == nil {
			return nil, fmt.Errorf("sheet fetching is not configured")
		}
		data, err := s.sheets.FetchCSV(ctx, input.SheetURL)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch sheet: %w", err)
		}
		return parsers.NewCSVParser().Parse(data)

	default:
		return nil, fmt.Errorf("unsupported import method %q", input.Method)
	}
}

// enterReview seeds the mapping, flags duplicates, validates rows, and moves
// the session to the review step.
func (s *ImportService) enterReview(ctx context.Context, session *domain.ImportSession, parsed *domain.ParseResult) (results.OperationResult, error) {
	schema, err := s.Schemas.GetEventSchema(ctx, session.EventID)
	if err != nil {
		if terr := session.Transition(domain.StepInput); terr != nil {
			return results.OperationResult{}, terr
		}
		return s.failure(session, "SCHEMA_LOAD_FAILED", err.Error()), nil
	}

	mapping := ComputeMapping(parsed.SourceColumns, schema, session.Mode, s.aliases)
	session.ParseResult = parsed
	session.KeyMapping = mapping.Mapping
	session.AutoConfidence = mapping.Confidence
	parsed.DetectedSport = detectSport(schema, session.MappedTargets())

	s.flagDuplicates(ctx, session)
	s.validateRows(session, schema)

	if err := session.Transition(domain.StepReview); err != nil {
		return results.OperationResult{}, err
	}

	s.logger.InfoContext(ctx, "Source parsed, entering review",
		attr.UUIDValue("session_id", session.ID),
		attr.Int("valid_rows", len(parsed.ValidRows)),
		attr.Int("parse_errors", len(parsed.Errors)),
		attr.Int("mapped_columns", len(mapping.Mapping)),
	)

	s.autosave(ctx, session)
	return results.SuccessResult(session), nil
}

// flagDuplicates marks rows whose mapped first+last name matches an existing
// roster entry. A lookup failure downgrades to "no flags" rather than failing
// the parse; the submit path re-checks nothing, so flags only drive the
// conflict UI.
func (s *ImportService) flagDuplicates(ctx context.Context, session *domain.ImportSession) {
	targets := session.MappedTargets()
	firstCol, firstOK := targets["first_name"]
	lastCol, lastOK := targets["last_name"]
	if !firstOK || !lastOK || session.ParseResult == nil {
		return
	}

	existing, err := s.ImporterDB.ExistingPlayerKeys(ctx, session.EventID)
	if err != nil {
		s.logger.WarnContext(ctx, "Duplicate lookup failed, skipping duplicate flags",
			attr.UUIDValue("session_id", session.ID),
			attr.Error(err),
		)
		return
	}

	for i := range session.ParseResult.ValidRows {
		row := &session.ParseResult.ValidRows[i]
		key := PlayerKey(row.SourceData[firstCol], row.SourceData[lastCol])
		if key != "|" && existing[key] {
			row.IsDuplicateCandidate = true
		}
	}
}

// PlayerKey builds the normalized duplicate-detection key for a player name.
func PlayerKey(first, last string) string {
	return strings.ToLower(strings.TrimSpace(first)) + "|" + strings.ToLower(strings.TrimSpace(last))
}

// validateRows re-checks every row against the schema: required name cells
// must be non-blank and mapped drill values must be numeric and inside the
// drill's plausible range. Findings are attached to the row, not removed from
// it, so the operator can fix cells in place during review.
func (s *ImportService) validateRows(session *domain.ImportSession, schema *schemadomain.TargetSchema) {
	if session.ParseResult == nil {
		return
	}
	targets := session.MappedTargets()

	for i := range session.ParseResult.ValidRows {
		row := &session.ParseResult.ValidRows[i]
		row.IsError = false
		row.ErrorMessages = nil

		for _, required := range schema.RequiredFields() {
			col, ok := targets[required]
			if !ok {
				continue
			}
			if strings.TrimSpace(session.RowValue(*row, col)) == "" {
				row.IsError = true
				row.ErrorMessages = append(row.ErrorMessages, fmt.Sprintf("%s is empty", required))
			}
		}

		for targetKey, col := range targets {
			drill, ok := schema.DrillByKey(targetKey)
			if !ok {
				continue
			}
			value := strings.TrimSpace(session.RowValue(*row, col))
			if value == "" {
				continue
			}
			n, err := strconv.ParseFloat(value, 64)
			if err != nil {
				row.IsError = true
				row.ErrorMessages = append(row.ErrorMessages, fmt.Sprintf("%s: %q is not a number", drill.Label, value))
				continue
			}
			if n < drill.Min || n > drill.Max {
				row.IsError = true
				row.ErrorMessages = append(row.ErrorMessages, fmt.Sprintf("%s: %v is outside the plausible range %v-%v %s", drill.Label, n, drill.Min, drill.Max, drill.Unit))
			}
		}
	}
}

// detectSport infers the sport from which preset covers the most mapped
// drills. Ties and zero coverage stay blank.
func detectSport(schema *schemadomain.TargetSchema, targets map[string]string) string {
	var mappedDrills []string
	for key := range targets {
		if _, ok := schema.DrillByKey(key); ok {
			mappedDrills = append(mappedDrills, key)
		}
	}
	if len(mappedDrills) == 0 {
		return ""
	}

	best, bestCount, tied := "", 0, false
	for _, preset := range schema.Presets {
		inPreset := map[string]bool{}
		for _, d := range preset.Drills {
			inPreset[d] = true
		}
		count := 0
		for _, key := range mappedDrills {
			if inPreset[key] {
				count++
			}
		}
		switch {
		case count > bestCount:
			best, bestCount, tied = preset.Sport, count, false
		case count == bestCount && count > 0 && preset.Sport != best:
			tied = true
		}
	}
	if tied || bestCount == 0 {
		return ""
	}
	return best
}
