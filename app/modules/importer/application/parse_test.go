package importerservice

import (
	"context"
	"errors"
	"testing"

	"github.com/combine-hq/combine-server/app/modules/importer/domain"
)

func TestStartSession_RejectsUnknownMode(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	res, err := env.service.StartSession(ctx, "event-1", "admin-1", domain.ImportMode("everything"))
	if err != nil {
		t.Fatal(err)
	}
	fail, ok := res.Failure.(*domain.ImportFailedPayload)
	if !ok || fail.ErrorCode != "INVALID_MODE" {
		t.Fatalf("expected INVALID_MODE failure, got %+v", res)
	}
}

func TestCloseSession_ReleasesSession(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	res, err := env.service.StartSession(ctx, "event-1", "admin-1", domain.ModeRosterOnly)
	if err != nil {
		t.Fatal(err)
	}
	session := res.Success.(*domain.ImportSession)

	if err := env.service.CloseSession(ctx, session.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := env.service.GetSession(ctx, session.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after close, got %v", err)
	}
	if err := env.service.CloseSession(ctx, session.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("second close should report a missing session, got %v", err)
	}
}

func TestProvideSource_ParseFailureReturnsToInput(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	res, err := env.service.StartSession(ctx, "event-1", "admin-1", domain.ModeRosterOnly)
	if err != nil {
		t.Fatal(err)
	}
	session := res.Success.(*domain.ImportSession)

	res, err = env.service.ProvideSource(ctx, session.ID, SourceInput{
		Method:  domain.MethodPaste,
		Payload: []byte("   "),
	})
	if err != nil {
		t.Fatal(err)
	}
	fail, ok := res.Failure.(*domain.ImportFailedPayload)
	if !ok || fail.ErrorCode != "PARSE_ERROR" {
		t.Fatalf("expected PARSE_ERROR failure, got %+v", res)
	}
	if session.Step != domain.StepInput {
		t.Errorf("parse failure should return to input, got %s", session.Step)
	}

	// Re-entry with good input succeeds.
	res, err = env.service.ProvideSource(ctx, session.ID, SourceInput{
		Method:  domain.MethodPaste,
		Payload: []byte("First,Last\nAva,Stone\n"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Failure != nil {
		t.Fatalf("expected retry success, got %+v", res.Failure)
	}
	if session.Step != domain.StepReview {
		t.Errorf("expected review step, got %s", session.Step)
	}
}

func TestProvideSource_SchemaLoadFailureDisablesImport(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.schemas.Err = errors.New("schema endpoint down")

	res, err := env.service.StartSession(ctx, "event-1", "admin-1", domain.ModeRosterOnly)
	if err != nil {
		t.Fatal(err)
	}
	session := res.Success.(*domain.ImportSession)

	res, err = env.service.ProvideSource(ctx, session.ID, SourceInput{
		Method:  domain.MethodPaste,
		Payload: []byte("First,Last\nAva,Stone\n"),
	})
	if err != nil {
		t.Fatal(err)
	}
	fail, ok := res.Failure.(*domain.ImportFailedPayload)
	if !ok || fail.ErrorCode != "SCHEMA_LOAD_FAILED" {
		t.Fatalf("expected SCHEMA_LOAD_FAILED failure, got %+v", res)
	}
	if session.Step != domain.StepInput {
		t.Errorf("schema failure should return to input, got %s", session.Step)
	}
}

func TestProvideSource_DuplicateLookupFailureIsTolerated(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.repo.ExistingPlayerKeysFunc = func(ctx context.Context, eventID string) (map[string]bool, error) {
		return nil, errors.New("db down")
	}

	session, err := env.startReviewSession(ctx, rosterCSV, domain.ModeRosterAndScores)
	if err != nil {
		t.Fatal(err)
	}
	if session.Step != domain.StepReview {
		t.Fatalf("expected review despite lookup failure, got %s", session.Step)
	}
	for _, row := range session.ParseResult.ValidRows {
		if row.IsDuplicateCandidate {
			t.Error("no duplicate flags expected when the lookup fails")
		}
	}
}

func TestProvideSource_ValidatesDrillValues(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	csv := "First,Last,40yd\nAva,Stone,4.5\nBen,Hill,fast\nCal,Ross,99\n"
	session, err := env.startReviewSession(ctx, csv, domain.ModeRosterAndScores)
	if err != nil {
		t.Fatal(err)
	}

	rows := session.ParseResult.ValidRows
	if rows[0].IsError {
		t.Errorf("row 1 should be clean, got %v", rows[0].ErrorMessages)
	}
	if !rows[1].IsError {
		t.Error("row 2 has a non-numeric drill value and should be flagged")
	}
	if !rows[2].IsError {
		t.Error("row 3 is outside the plausible range and should be flagged")
	}

	// Fixing the cell in place clears the flag.
	if err := env.service.EditRow(ctx, session.ID, 2, "40yd", "4.8"); err != nil {
		t.Fatal(err)
	}
	if session.ParseResult.ValidRows[1].IsError {
		t.Errorf("fixed row should be clean, got %v", session.ParseResult.ValidRows[1].ErrorMessages)
	}
}

func TestProvideSource_DetectsSportFromPreset(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	session, err := env.startReviewSession(ctx, rosterCSV, domain.ModeRosterAndScores)
	if err != nil {
		t.Fatal(err)
	}
	if session.ParseResult.DetectedSport != "football" {
		t.Errorf("expected detected sport football, got %q", session.ParseResult.DetectedSport)
	}
}

func TestBackToInput_ClearsParseState(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	session, err := env.startReviewSession(ctx, rosterCSV, domain.ModeRosterAndScores)
	if err != nil {
		t.Fatal(err)
	}
	if err := env.service.EditRow(ctx, session.ID, 1, "First", "Avah"); err != nil {
		t.Fatal(err)
	}

	if err := env.service.BackToInput(ctx, session.ID); err != nil {
		t.Fatal(err)
	}
	if session.Step != domain.StepInput {
		t.Errorf("expected input step, got %s", session.Step)
	}
	if session.ParseResult != nil || len(session.KeyMapping) != 0 || len(session.EditedRows) != 0 {
		t.Error("parse-derived state should be cleared")
	}
}

func TestReviewMutations_RejectedOutsideReview(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	res, err := env.service.StartSession(ctx, "event-1", "admin-1", domain.ModeRosterOnly)
	if err != nil {
		t.Fatal(err)
	}
	session := res.Success.(*domain.ImportSession)

	if err := env.service.EditRow(ctx, session.ID, 1, "First", "x"); err == nil {
		t.Error("EditRow must fail before review")
	}
	if err := env.service.SetConflictDefault(ctx, session.ID, domain.StrategyMerge); err == nil {
		t.Error("SetConflictDefault must fail before review")
	}
	if _, err := env.service.Preflight(ctx, session.ID); err == nil {
		t.Error("Preflight must fail before review")
	}
}
