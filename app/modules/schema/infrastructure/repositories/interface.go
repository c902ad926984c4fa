package schemadb

import (
	"context"

	schemadomain "github.com/combine-hq/combine-server/app/modules/schema/domain"
)

// SchemaDB is the persistence contract for drill schema reads.
type SchemaDB interface {
	GetDrills(ctx context.Context, eventID string) ([]schemadomain.DrillDefinition, error)
	GetPresets(ctx context.Context) ([]schemadomain.DrillPreset, error)
}
