package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/studyloop/internal/domain"
	"github.com/phrazzld/studyloop/internal/store"
)

// PostgresUnitStore implements store.UnitStore.
type PostgresUnitStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresUnitStore creates a learning unit store over db.
func NewPostgresUnitStore(db store.DBTX, logger *slog.Logger) *PostgresUnitStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresUnitStore{
		db:     db,
		logger: logger.With("component", "unit_store"),
	}
}

var _ store.UnitStore = (*PostgresUnitStore)(nil)

// WithTx implements store.UnitStore.WithTx.
func (s *PostgresUnitStore) WithTx(tx *sql.Tx) store.UnitStore {
	return &PostgresUnitStore{db: tx, logger: s.logger}
}

// CreateMultiple implements store.UnitStore.CreateMultiple.
func (s *PostgresUnitStore) CreateMultiple(ctx context.Context, units []domain.LearningUnit) error {
	log := loggerFor(ctx, s.logger)

	for i := range units {
		if err := units[i].Validate(); err != nil {
			log.Warn("unit validation failed during create",
				"error", err,
				"unit_id", units[i].ID,
				"index", i)
			return fmt.Errorf("%w: unit %q: %w", store.ErrInvalidEntity, units[i].ID, err)
		}
	}

	query := `
		INSERT INTO learning_units (
			resource_id, id, ordinal, title, status, kind, goal,
			source_block_ids, payload, page_number, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	now := time.Now().UTC()
	for i, u := range units {
		sources, err := jsonList(u.SourceBlockIDs)
		if err != nil {
			return err
		}
		var payload []byte
		if len(u.Payload) > 0 {
			payload = u.Payload
		}
		_, err = s.db.ExecContext(ctx, query,
			u.ResourceID, u.ID, i, u.Title, u.Status, u.Kind, u.Goal,
			sources, payload, u.PageNumber, now,
		)
		if err != nil {
			log.Error("failed to create learning unit",
				"error", err,
				"unit_id", u.ID,
				"resource_id", u.ResourceID)
			return MapError(err)
		}
	}

	log.Debug("learning units created", "count", len(units))
	return nil
}

// GetByID implements store.UnitStore.GetByID.
func (s *PostgresUnitStore) GetByID(ctx context.Context, resourceID uuid.UUID, unitID string) (*domain.LearningUnit, error) {
	log := loggerFor(ctx, s.logger)

	query := `
		SELECT resource_id, id, title, status, kind, goal, source_block_ids, payload, page_number
		FROM learning_units
		WHERE resource_id = $1 AND id = $2
	`
	u, err := scanUnit(s.db.QueryRowContext(ctx, query, resourceID, unitID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("learning unit not found", "resource_id", resourceID, "unit_id", unitID)
			return nil, store.ErrUnitNotFound
		}
		log.Error("failed to get learning unit", "error", err, "unit_id", unitID)
		return nil, MapError(err)
	}
	return u, nil
}

// ListByResource implements store.UnitStore.ListByResource.
func (s *PostgresUnitStore) ListByResource(ctx context.Context, resourceID uuid.UUID) ([]domain.LearningUnit, error) {
	log := loggerFor(ctx, s.logger)

	query := `
		SELECT resource_id, id, title, status, kind, goal, source_block_ids, payload, page_number
		FROM learning_units
		WHERE resource_id = $1
		ORDER BY ordinal ASC
	`
	rows, err := s.db.QueryContext(ctx, query, resourceID)
	if err != nil {
		log.Error("failed to query learning units", "error", err, "resource_id", resourceID)
		return nil, MapError(err)
	}
	defer closeRows(rows, log)

	units := []domain.LearningUnit{}
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			log.Error("failed to scan learning unit row", "error", err)
			return nil, err
		}
		units = append(units, *u)
	}
	if err := rows.Err(); err != nil {
		log.Error("error after scanning learning unit rows", "error", err)
		return nil, err
	}
	return units, nil
}

// UpdateStatus implements store.UnitStore.UpdateStatus.
func (s *PostgresUnitStore) UpdateStatus(
	ctx context.Context,
	resourceID uuid.UUID,
	unitID string,
	status domain.UnitStatus,
) error {
	log := loggerFor(ctx, s.logger)

	if !domain.IsValidUnitStatus(status) {
		return domain.ErrInvalidUnitStatus
	}

	query := `
		UPDATE learning_units
		SET status = $1, updated_at = $2
		WHERE resource_id = $3 AND id = $4
	`
	result, err := s.db.ExecContext(ctx, query, status, time.Now().UTC(), resourceID, unitID)
	if err != nil {
		log.Error("failed to update learning unit status",
			"error", err,
			"unit_id", unitID,
			"status", status)
		return MapError(err)
	}
	if err := CheckRowsAffected(result, "learning unit"); err != nil {
		if store.IsNotFoundError(err) {
			return store.ErrUnitNotFound
		}
		return err
	}

	log.Info("learning unit status updated",
		"resource_id", resourceID,
		"unit_id", unitID,
		"status", status)
	return nil
}

func scanUnit(row rowScanner) (*domain.LearningUnit, error) {
	var (
		u       domain.LearningUnit
		status  string
		kind    string
		goal    string
		sources []byte
		payload []byte
		page    sql.NullInt32
	)
	if err := row.Scan(&u.ResourceID, &u.ID, &u.Title, &status, &kind, &goal, &sources, &payload, &page); err != nil {
		return nil, err
	}
	u.Status = domain.UnitStatus(status)
	u.Kind = domain.ExerciseKind(kind)
	u.Goal = domain.LearningGoal(goal)
	u.PageNumber = nullInt(page)
	if len(payload) > 0 {
		u.Payload = payload
	}
	ids, err := parseList(sources)
	if err != nil {
		return nil, err
	}
	u.SourceBlockIDs = ids
	return &u, nil
}
