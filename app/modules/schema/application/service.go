// Package schemaservice serves the canonical target schema for imports.
package schemaservice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/combine-hq/combine-server/internal/attr"

	schemadomain "github.com/combine-hq/combine-server/app/modules/schema/domain"
	schemadb "github.com/combine-hq/combine-server/app/modules/schema/infrastructure/repositories"
)

// Provider is the contract the importer consumes.
type Provider interface {
	GetEventSchema(ctx context.Context, eventID string) (*schemadomain.TargetSchema, error)
}

// SchemaService reads drill definitions per event. There is no caching layer:
// every import session re-reads so custom drills created mid-session are never
// stale.
type SchemaService struct {
	SchemaDB schemadb.SchemaDB
	logger   *slog.Logger
}

var _ Provider = (*SchemaService)(nil)

func NewSchemaService(db schemadb.SchemaDB, logger *slog.Logger) *SchemaService {
	return &SchemaService{
		SchemaDB: db,
		logger:   logger,
	}
}

// GetEventSchema returns the standard fields plus the event's active drills.
func (s *SchemaService) GetEventSchema(ctx context.Context, eventID string) (*schemadomain.TargetSchema, error) {
	drills, err := s.SchemaDB.GetDrills(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load drill schema for event %s: %w", eventID, err)
	}

	presets, err := s.SchemaDB.GetPresets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load drill presets: %w", err)
	}

	s.logger.DebugContext(ctx, "Loaded event schema",
		attr.String("event_id", eventID),
		attr.Int("drill_count", len(drills)),
	)

	return &schemadomain.TargetSchema{
		StandardFields: schemadomain.DefaultStandardFields(),
		Drills:         drills,
		Presets:        presets,
	}, nil
}
