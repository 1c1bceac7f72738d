package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/studyloop/internal/domain"
)

// UnitStore defines the interface for learning unit persistence. Unit IDs
// are unique within a resource, so every lookup is keyed by both.
type UnitStore interface {
	// CreateMultiple saves units in one operation. Every unit is validated
	// first; nothing is written when any unit is invalid.
	CreateMultiple(ctx context.Context, units []domain.LearningUnit) error

	// GetByID retrieves one unit.
	// Returns ErrUnitNotFound if the unit does not exist.
	GetByID(ctx context.Context, resourceID uuid.UUID, unitID string) (*domain.LearningUnit, error)

	// ListByResource returns the units of a resource in synthesis order.
	ListByResource(ctx context.Context, resourceID uuid.UUID) ([]domain.LearningUnit, error)

	// UpdateStatus sets the status of one unit.
	// Returns ErrUnitNotFound if the unit does not exist.
	UpdateStatus(ctx context.Context, resourceID uuid.UUID, unitID string, status domain.UnitStatus) error

	// WithTx returns a new UnitStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) UnitStore
}
