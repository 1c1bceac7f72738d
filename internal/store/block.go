package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/studyloop/internal/domain"
)

// BlockStore defines the interface for content block persistence.
type BlockStore interface {
	// CreateMultiple saves blocks in one operation. Every block is validated
	// first; nothing is written when any block is invalid.
	CreateMultiple(ctx context.Context, blocks []domain.ContentBlock) error

	// ListByResource returns the blocks of a resource in extraction order.
	ListByResource(ctx context.Context, resourceID uuid.UUID) ([]domain.ContentBlock, error)

	// WithTx returns a new BlockStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) BlockStore
}
