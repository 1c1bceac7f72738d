package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/studyloop/internal/domain"
)

// IngestionStore defines the interface for ingestion run persistence.
type IngestionStore interface {
	// Create saves a new ingestion.
	Create(ctx context.Context, ingestion *domain.Ingestion) error

	// GetByID retrieves an ingestion by its unique ID.
	// Returns ErrIngestionNotFound if the ingestion does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Ingestion, error)

	// Update saves the status, counters and last error of an ingestion.
	// Returns ErrIngestionNotFound if the ingestion does not exist.
	Update(ctx context.Context, ingestion *domain.Ingestion) error

	// WithTx returns a new IngestionStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) IngestionStore
}
