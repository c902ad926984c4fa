package importermigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	importerdb "github.com/combine-hq/combine-server/app/modules/importer/infrastructure/repositories"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating importer tables...")

		models := []any{
			(*importerdb.Player)(nil),
			(*importerdb.DrillScore)(nil),
			(*importerdb.ImportAudit)(nil),
			(*importerdb.UndoRecord)(nil),
			(*importerdb.ImportDraft)(nil),
		}
		for _, model := range models {
			if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
				return err
			}
		}

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE UNIQUE INDEX IF NOT EXISTS idx_players_event_name_key ON players(event_id, name_key);
			`); err != nil {
				return fmt.Errorf("failed to add roster key index: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `
				CREATE UNIQUE INDEX IF NOT EXISTS idx_drill_scores_player_drill ON drill_scores(player_id, drill_key);
			`); err != nil {
				return fmt.Errorf("failed to add score index: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `
				CREATE INDEX IF NOT EXISTS idx_import_history_event ON import_history(event_id, created_at DESC);
			`); err != nil {
				return fmt.Errorf("failed to add history index: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping importer tables...")

		models := []any{
			(*importerdb.ImportDraft)(nil),
			(*importerdb.UndoRecord)(nil),
			(*importerdb.ImportAudit)(nil),
			(*importerdb.DrillScore)(nil),
			(*importerdb.Player)(nil),
		}
		for _, model := range models {
			if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}
