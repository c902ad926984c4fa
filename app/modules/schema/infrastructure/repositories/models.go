package schemadb

import (
	"time"

	"github.com/uptrace/bun"
)

// Drill is the bun model for an event's active drill definitions.
type Drill struct {
	bun.BaseModel `bun:"table:drills"`

	ID            int64     `bun:"id,pk,autoincrement"`
	EventID       string    `bun:"event_id,notnull"`
	Key           string    `bun:"key,notnull"`
	Label         string    `bun:"label,notnull"`
	Unit          string    `bun:"unit"`
	LowerIsBetter bool      `bun:"lower_is_better"`
	Min           float64   `bun:"min"`
	Max           float64   `bun:"max"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:now()"`
}

// DrillPresetRecord is the bun model for reusable drill bundles.
type DrillPresetRecord struct {
	bun.BaseModel `bun:"table:drill_presets"`

	ID     int64    `bun:"id,pk,autoincrement"`
	Name   string   `bun:"name,notnull"`
	Sport  string   `bun:"sport"`
	Drills []string `bun:"drills,array"`
}
