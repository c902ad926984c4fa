package importerservice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/combine-hq/combine-server/app/modules/importer/domain"
	importerdb "github.com/combine-hq/combine-server/app/modules/importer/infrastructure/repositories"
	"github.com/combine-hq/combine-server/internal/results"
)

const rosterCSV = "First,Last,40yd\nAva,Stone,4.5\nBen,Hill,4.6\nCal,Ross,4.7\n"

func TestSubmit_RowStrategyOverrideBeatsDefault(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// Ava and Ben already exist on the roster; Cal is new.
	env.repo.ExistingPlayerKeysFunc = func(ctx context.Context, eventID string) (map[string]bool, error) {
		return map[string]bool{"ava|stone": true, "ben|hill": true}, nil
	}
	var captured *importerdb.SubmitRequest
	env.repo.SubmitRowsFunc = func(ctx context.Context, req *importerdb.SubmitRequest) (*domain.SubmitResult, error) {
		captured = req
		return &domain.SubmitResult{Added: len(req.Rows), UndoLog: "undo-1"}, nil
	}

	session, err := env.startReviewSession(ctx, rosterCSV, domain.ModeRosterAndScores)
	if err != nil {
		t.Fatal(err)
	}
	if !session.ParseResult.ValidRows[0].IsDuplicateCandidate || !session.ParseResult.ValidRows[1].IsDuplicateCandidate {
		t.Fatal("expected rows 1 and 2 to be duplicate candidates")
	}
	if session.ParseResult.ValidRows[2].IsDuplicateCandidate {
		t.Fatal("row 3 must not be a duplicate candidate")
	}

	// Session default skips duplicates, but row 1 is explicitly overwritten.
	if err := env.service.SetConflictDefault(ctx, session.ID, domain.StrategySkip); err != nil {
		t.Fatal(err)
	}
	if err := env.service.SetRowStrategy(ctx, session.ID, 1, domain.StrategyOverwrite); err != nil {
		t.Fatal(err)
	}

	res, err := env.service.Submit(ctx, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Failure != nil {
		t.Fatalf("expected success, got %+v", res.Failure)
	}

	if captured == nil {
		t.Fatal("repo never saw the submission")
	}
	if len(captured.Rows) != 2 {
		t.Fatalf("expected 2 rows in payload, got %d", len(captured.Rows))
	}
	if captured.Rows[0].Row != 1 || captured.Rows[0].MergeStrategy != domain.StrategyOverwrite {
		t.Errorf("row 1 should be included as overwrite, got %+v", captured.Rows[0])
	}
	if captured.Rows[1].Row != 3 {
		t.Errorf("row 3 should be included, got %+v", captured.Rows[1])
	}
	if captured.SkippedCount != 1 {
		t.Errorf("expected skipped_count 1, got %d", captured.SkippedCount)
	}
}

func TestSubmit_MaterializesEditsAndMapping(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	var captured *importerdb.SubmitRequest
	env.repo.SubmitRowsFunc = func(ctx context.Context, req *importerdb.SubmitRequest) (*domain.SubmitResult, error) {
		captured = req
		return &domain.SubmitResult{Added: len(req.Rows)}, nil
	}

	csv := "First,Last,DOB,Notes\nAva,Stone,9/3/2008,lefty\n"
	session, err := env.startReviewSession(ctx, csv, domain.ModeRosterOnly)
	if err != nil {
		t.Fatal(err)
	}

	if err := env.service.SetColumnMapping(ctx, session.ID, "Notes", domain.IgnoreColumn); err != nil {
		t.Fatal(err)
	}
	if err := env.service.AcknowledgeGuard(ctx, session.ID, domain.GuardIgnoredColumnsData); err != nil {
		t.Fatal(err)
	}
	if err := env.service.EditRow(ctx, session.ID, 1, "First", "Ava-Marie"); err != nil {
		t.Fatal(err)
	}

	// The original parsed row is never mutated by edits.
	if session.ParseResult.ValidRows[0].SourceData["First"] != "Ava" {
		t.Fatalf("edit mutated the parsed row: %q", session.ParseResult.ValidRows[0].SourceData["First"])
	}

	res, err := env.service.Submit(ctx, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Failure != nil {
		t.Fatalf("expected success, got %+v", res.Failure)
	}

	want := map[string]string{
		"first_name": "Ava-Marie",
		"last_name":  "Stone",
		"birthdate":  "2008-09-03",
	}
	if diff := cmp.Diff(want, captured.Rows[0].Data); diff != "" {
		t.Errorf("materialized row mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmit_BackendFailureReturnsToReview(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.repo.SubmitRowsFunc = func(ctx context.Context, req *importerdb.SubmitRequest) (*domain.SubmitResult, error) {
		return nil, errors.New("connection reset")
	}

	session, err := env.startReviewSession(ctx, rosterCSV, domain.ModeRosterAndScores)
	if err != nil {
		t.Fatal(err)
	}
	if err := env.service.EditRow(ctx, session.ID, 1, "First", "Avah"); err != nil {
		t.Fatal(err)
	}

	res, err := env.service.Submit(ctx, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	fail, ok := res.Failure.(*domain.ImportFailedPayload)
	if !ok {
		t.Fatalf("expected failure payload, got %+v", res)
	}
	if fail.ErrorCode != "SUBMIT_ERROR" {
		t.Errorf("expected SUBMIT_ERROR, got %s", fail.ErrorCode)
	}
	if session.Step != domain.StepReview {
		t.Errorf("session should be back in review, got %s", session.Step)
	}
	// Operator edits survive the failure.
	if session.EditedRows[1]["First"] != "Avah" {
		t.Error("edits must survive a failed submission")
	}
}

func TestSubmit_SecondSubmitRejected(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	session, err := env.startReviewSession(ctx, rosterCSV, domain.ModeRosterAndScores)
	if err != nil {
		t.Fatal(err)
	}

	if res, err := env.service.Submit(ctx, session.ID); err != nil || res.Failure != nil {
		t.Fatalf("first submit failed: %v %+v", err, res.Failure)
	}

	res, err := env.service.Submit(ctx, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	fail, ok := res.Failure.(*domain.ImportFailedPayload)
	if !ok || fail.ErrorCode != "INVALID_STEP" {
		t.Fatalf("expected INVALID_STEP failure, got %+v", res)
	}
}

func TestSubmit_ConcurrentSubmitsOnlyOneWins(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	session, err := env.startReviewSession(ctx, rosterCSV, domain.ModeRosterAndScores)
	if err != nil {
		t.Fatal(err)
	}

	// Two operators hit submit at the same moment. The per-session lock
	// serializes them, so the loser sees the step machine reject it.
	outcomes := make([]results.OperationResult, 2)
	var wg sync.WaitGroup
	for i := range outcomes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := env.service.Submit(ctx, session.ID)
			if err != nil {
				t.Error(err)
				return
			}
			outcomes[i] = res
		}()
	}
	wg.Wait()

	successes, rejected := 0, 0
	for _, res := range outcomes {
		if res.Success != nil {
			successes++
			continue
		}
		fail, ok := res.Failure.(*domain.ImportFailedPayload)
		if !ok || fail.ErrorCode != "INVALID_STEP" {
			t.Fatalf("expected INVALID_STEP failure, got %+v", res)
		}
		rejected++
	}
	if successes != 1 || rejected != 1 {
		t.Fatalf("expected exactly one submit to win, got %d successes and %d rejections", successes, rejected)
	}

	writes := 0
	for _, call := range env.repo.Trace() {
		if call == "SubmitRows" {
			writes++
		}
	}
	if writes != 1 {
		t.Errorf("backend saw %d writes, want 1", writes)
	}
}

func TestRevert_WithinWindow(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	revertCalls := 0
	env.repo.RevertImportFunc = func(ctx context.Context, eventID, undoToken, actorID string) (int, error) {
		revertCalls++
		if undoToken != "undo-token-1" {
			t.Errorf("unexpected undo token %q", undoToken)
		}
		return 3, nil
	}

	session, err := env.startReviewSession(ctx, rosterCSV, domain.ModeRosterAndScores)
	if err != nil {
		t.Fatal(err)
	}
	if res, err := env.service.Submit(ctx, session.ID); err != nil || res.Failure != nil {
		t.Fatalf("submit failed: %v %+v", err, res.Failure)
	}

	env.clock.Advance(10 * time.Second)

	res, err := env.service.Revert(ctx, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Failure != nil {
		t.Fatalf("expected revert success, got %+v", res.Failure)
	}
	payload := res.Success.(*domain.ImportRevertedPayload)
	if payload.RowsReverted != 3 {
		t.Errorf("expected 3 rows reverted, got %d", payload.RowsReverted)
	}
	if revertCalls != 1 {
		t.Errorf("expected exactly one backend revert, got %d", revertCalls)
	}
	if session.Step != domain.StepInput {
		t.Errorf("revert should return the session to input, got %s", session.Step)
	}

	// Both downstream signals fired, in order.
	topics := env.bus.Topics()
	if len(topics) != 2 || topics[0] != domain.ImportCompletedTopic || topics[1] != domain.ImportRevertedTopic {
		t.Errorf("unexpected published topics: %v", topics)
	}

	// The token is single-use.
	res, err = env.service.Revert(ctx, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	fail, ok := res.Failure.(*domain.ImportFailedPayload)
	if !ok || fail.ErrorCode != "UNDO_EXPIRED" {
		t.Fatalf("expected UNDO_EXPIRED on second revert, got %+v", res)
	}
	if revertCalls != 1 {
		t.Errorf("second revert must not reach the backend, got %d calls", revertCalls)
	}
}

func TestRevert_AfterWindowExpires(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.repo.RevertImportFunc = func(ctx context.Context, eventID, undoToken, actorID string) (int, error) {
		t.Fatal("revert must not reach the backend after expiry")
		return 0, nil
	}

	session, err := env.startReviewSession(ctx, rosterCSV, domain.ModeRosterAndScores)
	if err != nil {
		t.Fatal(err)
	}
	if res, err := env.service.Submit(ctx, session.ID); err != nil || res.Failure != nil {
		t.Fatalf("submit failed: %v %+v", err, res.Failure)
	}

	env.clock.Advance(DefaultUndoWindow + time.Second)

	res, err := env.service.Revert(ctx, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	fail, ok := res.Failure.(*domain.ImportFailedPayload)
	if !ok || fail.ErrorCode != "UNDO_EXPIRED" {
		t.Fatalf("expected UNDO_EXPIRED, got %+v", res)
	}
}

func TestSubmit_AllRowsSkippedRefused(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.repo.ExistingPlayerKeysFunc = func(ctx context.Context, eventID string) (map[string]bool, error) {
		return map[string]bool{"ava|stone": true, "ben|hill": true, "cal|ross": true}, nil
	}

	session, err := env.startReviewSession(ctx, rosterCSV, domain.ModeRosterAndScores)
	if err != nil {
		t.Fatal(err)
	}
	if err := env.service.SetConflictDefault(ctx, session.ID, domain.StrategySkip); err != nil {
		t.Fatal(err)
	}

	res, err := env.service.Submit(ctx, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	fail, ok := res.Failure.(*domain.ImportFailedPayload)
	if !ok || fail.ErrorCode != "NO_ROWS" {
		t.Fatalf("expected NO_ROWS failure, got %+v", res)
	}
	if session.Step != domain.StepReview {
		t.Errorf("session should remain in review, got %s", session.Step)
	}
}

func TestSubmit_DeletesDraft(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	session, err := env.startReviewSession(ctx, rosterCSV, domain.ModeRosterAndScores)
	if err != nil {
		t.Fatal(err)
	}
	if !env.drafts.Has("event-1") {
		t.Fatal("entering review should autosave a draft")
	}

	if res, err := env.service.Submit(ctx, session.ID); err != nil || res.Failure != nil {
		t.Fatalf("submit failed: %v %+v", err, res.Failure)
	}
	if env.drafts.Has("event-1") {
		t.Error("draft must be deleted on success")
	}
}
