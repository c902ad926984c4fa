package schemamigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	schemadb "github.com/combine-hq/combine-server/app/modules/schema/infrastructure/repositories"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating schema tables...")

		if _, err := db.NewCreateTable().Model((*schemadb.Drill)(nil)).IfNotExists().Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateTable().Model((*schemadb.DrillPresetRecord)(nil)).IfNotExists().Exec(ctx); err != nil {
			return err
		}

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE UNIQUE INDEX IF NOT EXISTS idx_drills_event_key ON drills(event_id, key);
			`); err != nil {
				return fmt.Errorf("failed to add drill key index: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping schema tables...")

		if _, err := db.NewDropTable().Model((*schemadb.DrillPresetRecord)(nil)).IfExists().Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewDropTable().Model((*schemadb.Drill)(nil)).IfExists().Exec(ctx); err != nil {
			return err
		}
		return nil
	})
}
