package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/studyloop/internal/domain"
	"github.com/phrazzld/studyloop/internal/ingest"
)

// ResourceStore defines the interface for resource persistence.
type ResourceStore interface {
	// Create saves a new resource to the store.
	// Returns validation errors from the domain Resource if data is invalid.
	Create(ctx context.Context, resource *domain.Resource) error

	// GetByID retrieves a resource by its unique ID.
	// Returns ErrResourceNotFound if the resource does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Resource, error)

	// List returns resources newest first.
	List(ctx context.Context, limit, offset int) ([]*domain.Resource, error)

	// SavePages stores the extracted pages of a resource, replacing any
	// pages stored before.
	SavePages(ctx context.Context, resourceID uuid.UUID, pages []ingest.Page) error

	// GetPages returns the stored pages of a resource in page order.
	// Returns an empty slice when the resource was stored without pages.
	GetPages(ctx context.Context, resourceID uuid.UUID) ([]ingest.Page, error)

	// WithTx returns a new ResourceStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ResourceStore
}
