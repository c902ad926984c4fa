package importerintegration

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"github.com/combine-hq/combine-server/app/modules/importer/domain"
	importerdb "github.com/combine-hq/combine-server/app/modules/importer/infrastructure/repositories"
	importermigrations "github.com/combine-hq/combine-server/app/modules/importer/infrastructure/repositories/migrations"
	schemadomain "github.com/combine-hq/combine-server/app/modules/schema/domain"
	"github.com/combine-hq/combine-server/integration_tests/containers"
	"github.com/combine-hq/combine-server/integration_tests/testutils"
)

func setupImporterDB(t *testing.T) *importerdb.ImporterDBImpl {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test requires Docker")
	}

	ctx := context.Background()
	pgContainer, dsn, err := containers.SetupPostgresContainer(ctx)
	if err != nil {
		t.Skipf("could not start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() { _ = db.Close() })

	migrator := migrate.NewMigrator(db, importermigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return &importerdb.ImporterDBImpl{DB: db}
}

func testDrillSchema() *schemadomain.TargetSchema {
	return &schemadomain.TargetSchema{
		StandardFields: schemadomain.DefaultStandardFields(),
		Drills: []schemadomain.DrillDefinition{
			{Key: "40m_dash", Label: "40 Yard Dash", Unit: "seconds", LowerIsBetter: true, Min: 3, Max: 20},
			{Key: "vertical_jump", Label: "Vertical Jump", Unit: "inches", Min: 0, Max: 60},
		},
	}
}

func submitRequest(rows []domain.ReconciledRow) *importerdb.SubmitRequest {
	return &importerdb.SubmitRequest{
		EventID:    "event-1",
		ActorID:    "admin-1",
		Method:     domain.MethodFile,
		Mode:       domain.ModeRosterAndScores,
		SourceName: "roster.csv",
		Rows:       rows,
		Schema:     testDrillSchema(),
	}
}

func TestSubmitRows_CreatesRosterAndScores(t *testing.T) {
	repo := setupImporterDB(t)
	ctx := context.Background()

	gen := testutils.NewTestDataGenerator(42)
	roster := gen.GenerateRoster(5)

	rows := make([]domain.ReconciledRow, len(roster))
	for i, r := range roster {
		rows[i] = domain.ReconciledRow{
			Row: i,
			Data: map[string]string{
				"first_name":    r.FirstName,
				"last_name":     r.LastName,
				"jersey_number": r.Jersey,
				"position":      r.Position,
				"grad_year":     r.GradYear,
				"40m_dash":      fmt.Sprintf("%.2f", r.DashTime),
				"vertical_jump": fmt.Sprintf("%.1f", r.Vertical),
			},
		}
	}

	req := submitRequest(rows)
	req.SkippedCount = 2
	result, err := repo.SubmitRows(ctx, req)
	if err != nil {
		t.Fatalf("SubmitRows: %v", err)
	}
	if result.CreatedPlayers != 5 || result.UpdatedPlayers != 0 {
		t.Errorf("created/updated = %d/%d, want 5/0", result.CreatedPlayers, result.UpdatedPlayers)
	}
	if result.ScoresWrittenTotal != 10 {
		t.Errorf("scores written = %d, want 10", result.ScoresWrittenTotal)
	}
	if result.UndoLog == "" {
		t.Error("expected an undo token")
	}

	keys, err := repo.ExistingPlayerKeys(ctx, "event-1")
	if err != nil {
		t.Fatalf("ExistingPlayerKeys: %v", err)
	}
	if len(keys) != 5 {
		t.Errorf("player keys = %d, want 5", len(keys))
	}

	entries, err := repo.GetHistory(ctx, "event-1", 10)
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(entries) != 1 || entries[0].Type != domain.HistoryImport {
		t.Errorf("history = %+v, want one import entry", entries)
	}
	if entries[0].SkippedCount != 2 {
		t.Errorf("history skipped count = %d, want 2", entries[0].SkippedCount)
	}
}

func TestPurgeExpired_DeletesOldDraftsAndReportsCount(t *testing.T) {
	repo := setupImporterDB(t)
	ctx := context.Background()
	drafts := &importerdb.DraftDBImpl{DB: repo.DB}

	now := time.Now().UTC()
	stale := now.Add(-48 * time.Hour)
	if err := drafts.SaveDraft(ctx, "event-old-1", []byte(`{"a":1}`), stale); err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}
	if err := drafts.SaveDraft(ctx, "event-old-2", []byte(`{"b":2}`), stale); err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}
	if err := drafts.SaveDraft(ctx, "event-live", []byte(`{"c":3}`), now); err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}

	purged, err := drafts.PurgeExpired(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if purged != 2 {
		t.Errorf("purged = %d, want 2", purged)
	}

	payload, _, err := drafts.LoadDraft(ctx, "event-live")
	if err != nil {
		t.Fatalf("LoadDraft: %v", err)
	}
	if payload == nil {
		t.Error("fresh draft must survive the purge")
	}
	if gone, _, err := drafts.LoadDraft(ctx, "event-old-1"); err != nil || gone != nil {
		t.Errorf("stale draft should be gone, got payload=%v err=%v", gone, err)
	}
}

func TestSubmitRows_MergeKeepsExistingValues(t *testing.T) {
	repo := setupImporterDB(t)
	ctx := context.Background()

	first := []domain.ReconciledRow{{
		Row: 0,
		Data: map[string]string{
			"first_name": "Ava",
			"last_name":  "Stone",
			"position":   "QB",
			"40m_dash":   "4.50",
		},
	}}
	if _, err := repo.SubmitRows(ctx, submitRequest(first)); err != nil {
		t.Fatalf("first SubmitRows: %v", err)
	}

	second := []domain.ReconciledRow{{
		Row: 0,
		Data: map[string]string{
			"first_name": "Ava",
			"last_name":  "Stone",
			"position":   "WR",
			"grad_year":  "2027",
			"40m_dash":   "4.40",
		},
		MergeStrategy: domain.StrategyMerge,
	}}
	result, err := repo.SubmitRows(ctx, submitRequest(second))
	if err != nil {
		t.Fatalf("second SubmitRows: %v", err)
	}
	if result.CreatedPlayers != 0 || result.UpdatedPlayers != 1 {
		t.Errorf("created/updated = %d/%d, want 0/1", result.CreatedPlayers, result.UpdatedPlayers)
	}

	var position, gradYear string
	err = repo.DB.NewSelect().
		Model((*importerdb.Player)(nil)).
		Column("position", "grad_year").
		Where("event_id = ?", "event-1").
		Where("name_key = ?", importerdb.NameKeyFor("Ava", "Stone")).
		Scan(ctx, &position, &gradYear)
	if err != nil {
		t.Fatalf("select player: %v", err)
	}
	if position != "QB" {
		t.Errorf("merge overwrote filled position: got %q, want QB", position)
	}
	if gradYear != "2027" {
		t.Errorf("merge did not fill blank grad year: got %q", gradYear)
	}

	var dash float64
	err = repo.DB.NewSelect().
		Model((*importerdb.DrillScore)(nil)).
		Column("value").
		Where("event_id = ?", "event-1").
		Where("drill_key = ?", "40m_dash").
		Scan(ctx, &dash)
	if err != nil {
		t.Fatalf("select score: %v", err)
	}
	if dash != 4.50 {
		t.Errorf("merge overwrote existing score: got %v, want 4.50", dash)
	}
}

func TestRevertImport_RestoresPriorState(t *testing.T) {
	repo := setupImporterDB(t)
	ctx := context.Background()

	base := []domain.ReconciledRow{{
		Row:  0,
		Data: map[string]string{"first_name": "Ava", "last_name": "Stone", "position": "QB"},
	}}
	if _, err := repo.SubmitRows(ctx, submitRequest(base)); err != nil {
		t.Fatalf("baseline SubmitRows: %v", err)
	}

	batch := []domain.ReconciledRow{
		{Row: 0, Data: map[string]string{"first_name": "Ava", "last_name": "Stone", "position": "WR"}},
		{Row: 1, Data: map[string]string{"first_name": "Ben", "last_name": "Hill", "40m_dash": "4.60"}},
	}
	result, err := repo.SubmitRows(ctx, submitRequest(batch))
	if err != nil {
		t.Fatalf("SubmitRows: %v", err)
	}

	reverted, err := repo.RevertImport(ctx, "event-1", result.UndoLog, "admin-1")
	if err != nil {
		t.Fatalf("RevertImport: %v", err)
	}
	if reverted == 0 {
		t.Fatal("expected rows to be reverted")
	}

	keys, err := repo.ExistingPlayerKeys(ctx, "event-1")
	if err != nil {
		t.Fatalf("ExistingPlayerKeys: %v", err)
	}
	if len(keys) != 1 || !keys["ava|stone"] {
		t.Errorf("roster after revert = %v, want only ava|stone", keys)
	}

	var position string
	err = repo.DB.NewSelect().
		Model((*importerdb.Player)(nil)).
		Column("position").
		Where("event_id = ?", "event-1").
		Where("name_key = ?", "ava|stone").
		Scan(ctx, &position)
	if err != nil {
		t.Fatalf("select player: %v", err)
	}
	if position != "QB" {
		t.Errorf("position after revert = %q, want QB", position)
	}

	// A second revert with the same token is a no-op.
	again, err := repo.RevertImport(ctx, "event-1", result.UndoLog, "admin-1")
	if err != nil {
		t.Fatalf("second RevertImport: %v", err)
	}
	if again != 0 {
		t.Errorf("second revert affected %d rows, want 0", again)
	}

	entries, err := repo.GetHistory(ctx, "event-1", 10)
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(entries) != 3 || entries[0].Type != domain.HistoryRevert {
		t.Errorf("history after revert = %+v", entries)
	}
}
