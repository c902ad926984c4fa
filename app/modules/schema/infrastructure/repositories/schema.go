package schemadb

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	schemadomain "github.com/combine-hq/combine-server/app/modules/schema/domain"
)

// SchemaDBImpl is the bun-backed implementation of SchemaDB.
type SchemaDBImpl struct {
	DB *bun.DB
}

var _ SchemaDB = (*SchemaDBImpl)(nil)

// GetDrills returns the active drill definitions for an event, ordered by key
// so schema snapshots are stable.
func (db *SchemaDBImpl) GetDrills(ctx context.Context, eventID string) ([]schemadomain.DrillDefinition, error) {
	var drills []Drill
	err := db.DB.NewSelect().
		Model(&drills).
		Where("event_id = ?", eventID).
		Order("key ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch drills: %w", err)
	}

	defs := make([]schemadomain.DrillDefinition, 0, len(drills))
	for _, d := range drills {
		defs = append(defs, schemadomain.DrillDefinition{
			Key:           d.Key,
			Label:         d.Label,
			Unit:          d.Unit,
			LowerIsBetter: d.LowerIsBetter,
			Min:           d.Min,
			Max:           d.Max,
		})
	}
	return defs, nil
}

// GetPresets returns all drill presets.
func (db *SchemaDBImpl) GetPresets(ctx context.Context) ([]schemadomain.DrillPreset, error) {
	var records []DrillPresetRecord
	err := db.DB.NewSelect().
		Model(&records).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch drill presets: %w", err)
	}

	presets := make([]schemadomain.DrillPreset, 0, len(records))
	for _, r := range records {
		presets = append(presets, schemadomain.DrillPreset{
			Name:   r.Name,
			Sport:  r.Sport,
			Drills: r.Drills,
		})
	}
	return presets, nil
}
