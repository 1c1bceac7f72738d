package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/studyloop/internal/domain"
	"github.com/phrazzld/studyloop/internal/store"
)

// PostgresIngestionStore implements store.IngestionStore.
type PostgresIngestionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresIngestionStore creates an ingestion store over db.
func NewPostgresIngestionStore(db store.DBTX, logger *slog.Logger) *PostgresIngestionStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresIngestionStore{
		db:     db,
		logger: logger.With("component", "ingestion_store"),
	}
}

var _ store.IngestionStore = (*PostgresIngestionStore)(nil)

// WithTx implements store.IngestionStore.WithTx.
func (s *PostgresIngestionStore) WithTx(tx *sql.Tx) store.IngestionStore {
	return &PostgresIngestionStore{db: tx, logger: s.logger}
}

// Create implements store.IngestionStore.Create.
func (s *PostgresIngestionStore) Create(ctx context.Context, in *domain.Ingestion) error {
	log := loggerFor(ctx, s.logger)

	if err := in.Validate(); err != nil {
		log.Warn("ingestion validation failed during create", "error", err, "ingestion_id", in.ID)
		return err
	}

	query := `
		INSERT INTO ingestions (id, resource_id, status, pages_total, pages_succeeded, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		in.ID, in.ResourceID, in.Status, in.PagesTotal, in.PagesSucceeded, in.LastError, in.CreatedAt, in.UpdatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("ingestion references missing resource",
				"ingestion_id", in.ID,
				"resource_id", in.ResourceID)
			return store.ErrResourceNotFound
		}
		log.Error("failed to create ingestion", "error", err, "ingestion_id", in.ID)
		return MapError(err)
	}

	log.Info("ingestion created", "ingestion_id", in.ID, "resource_id", in.ResourceID)
	return nil
}

// GetByID implements store.IngestionStore.GetByID.
func (s *PostgresIngestionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Ingestion, error) {
	log := loggerFor(ctx, s.logger)

	query := `
		SELECT id, resource_id, status, pages_total, pages_succeeded, last_error, created_at, updated_at
		FROM ingestions
		WHERE id = $1
	`
	var (
		in     domain.Ingestion
		status string
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&in.ID, &in.ResourceID, &status, &in.PagesTotal, &in.PagesSucceeded, &in.LastError, &in.CreatedAt, &in.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("ingestion not found", "ingestion_id", id)
			return nil, store.ErrIngestionNotFound
		}
		log.Error("failed to get ingestion", "error", err, "ingestion_id", id)
		return nil, MapError(err)
	}
	in.Status = domain.IngestionStatus(status)
	return &in, nil
}

// Update implements store.IngestionStore.Update.
func (s *PostgresIngestionStore) Update(ctx context.Context, in *domain.Ingestion) error {
	log := loggerFor(ctx, s.logger)

	if err := in.Validate(); err != nil {
		log.Warn("ingestion validation failed during update", "error", err, "ingestion_id", in.ID)
		return err
	}

	query := `
		UPDATE ingestions
		SET status = $1, pages_total = $2, pages_succeeded = $3, last_error = $4, updated_at = $5
		WHERE id = $6
	`
	result, err := s.db.ExecContext(ctx, query,
		in.Status, in.PagesTotal, in.PagesSucceeded, in.LastError, in.UpdatedAt, in.ID,
	)
	if err != nil {
		log.Error("failed to update ingestion", "error", err, "ingestion_id", in.ID)
		return MapError(err)
	}
	if err := CheckRowsAffected(result, "ingestion"); err != nil {
		if store.IsNotFoundError(err) {
			return store.ErrIngestionNotFound
		}
		return err
	}

	log.Info("ingestion updated",
		"ingestion_id", in.ID,
		"status", in.Status,
		"pages_succeeded", in.PagesSucceeded,
		"pages_total", in.PagesTotal)
	return nil
}
