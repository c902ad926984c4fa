// Package schema wires the target-schema module: drill definitions and
// presets served to the importer.
package schema

import (
	"context"

	"github.com/uptrace/bun"

	schemaservice "github.com/combine-hq/combine-server/app/modules/schema/application"
	schemadb "github.com/combine-hq/combine-server/app/modules/schema/infrastructure/repositories"
	"github.com/combine-hq/combine-server/internal/observability"
)

// Module represents the schema module.
type Module struct {
	Service *schemaservice.SchemaService
}

// NewModule creates a new schema module.
func NewModule(ctx context.Context, obs *observability.Observability, db *bun.DB) *Module {
	obs.Logger.InfoContext(ctx, "Initializing schema module")

	repo := &schemadb.SchemaDBImpl{DB: db}
	return &Module{
		Service: schemaservice.NewSchemaService(repo, obs.Logger),
	}
}
