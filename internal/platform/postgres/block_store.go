package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/studyloop/internal/domain"
	"github.com/phrazzld/studyloop/internal/store"
)

// PostgresBlockStore implements store.BlockStore.
type PostgresBlockStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresBlockStore creates a content block store over db.
func NewPostgresBlockStore(db store.DBTX, logger *slog.Logger) *PostgresBlockStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresBlockStore{
		db:     db,
		logger: logger.With("component", "block_store"),
	}
}

var _ store.BlockStore = (*PostgresBlockStore)(nil)

// WithTx implements store.BlockStore.WithTx.
func (s *PostgresBlockStore) WithTx(tx *sql.Tx) store.BlockStore {
	return &PostgresBlockStore{db: tx, logger: s.logger}
}

// CreateMultiple implements store.BlockStore.CreateMultiple. Blocks are
// stored with their slice position as ordinal.
func (s *PostgresBlockStore) CreateMultiple(ctx context.Context, blocks []domain.ContentBlock) error {
	log := loggerFor(ctx, s.logger)

	for i := range blocks {
		if err := blocks[i].Validate(); err != nil {
			log.Warn("block validation failed during create",
				"error", err,
				"block_id", blocks[i].ID,
				"index", i)
			return fmt.Errorf("%w: block %q: %w", store.ErrInvalidEntity, blocks[i].ID, err)
		}
	}

	query := `
		INSERT INTO content_blocks (
			resource_id, id, ordinal, category, title, summary, topic, difficulty,
			page_start, page_end, time_start_sec, time_end_sec, tags, screenshots
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	for i, b := range blocks {
		tags, err := jsonList(b.Tags)
		if err != nil {
			return err
		}
		shots, err := jsonList(b.Screenshots)
		if err != nil {
			return err
		}
		_, err = s.db.ExecContext(ctx, query,
			b.ResourceID, b.ID, i, b.Category, b.Title, b.Summary, b.Topic, b.Difficulty,
			b.PageStart, b.PageEnd, b.TimeStartSec, b.TimeEndSec, tags, shots,
		)
		if err != nil {
			log.Error("failed to create content block",
				"error", err,
				"block_id", b.ID,
				"resource_id", b.ResourceID)
			return MapError(err)
		}
	}

	log.Debug("content blocks created", "count", len(blocks))
	return nil
}

// ListByResource implements store.BlockStore.ListByResource.
func (s *PostgresBlockStore) ListByResource(ctx context.Context, resourceID uuid.UUID) ([]domain.ContentBlock, error) {
	log := loggerFor(ctx, s.logger)

	query := `
		SELECT resource_id, id, category, title, summary, topic, difficulty,
			page_start, page_end, time_start_sec, time_end_sec, tags, screenshots
		FROM content_blocks
		WHERE resource_id = $1
		ORDER BY ordinal ASC
	`
	rows, err := s.db.QueryContext(ctx, query, resourceID)
	if err != nil {
		log.Error("failed to query content blocks", "error", err, "resource_id", resourceID)
		return nil, MapError(err)
	}
	defer closeRows(rows, log)

	blocks := []domain.ContentBlock{}
	for rows.Next() {
		var (
			b           domain.ContentBlock
			category    string
			summary     sql.NullString
			topic       sql.NullString
			difficulty  sql.NullInt32
			pageStart   sql.NullInt32
			pageEnd     sql.NullInt32
			timeStart   sql.NullFloat64
			timeEnd     sql.NullFloat64
			tags, shots []byte
		)
		err := rows.Scan(&b.ResourceID, &b.ID, &category, &b.Title, &summary, &topic, &difficulty,
			&pageStart, &pageEnd, &timeStart, &timeEnd, &tags, &shots)
		if err != nil {
			log.Error("failed to scan content block row", "error", err)
			return nil, err
		}
		b.Category = domain.BlockCategory(category)
		b.Summary = nullString(summary)
		b.Topic = nullString(topic)
		b.Difficulty = nullInt(difficulty)
		b.PageStart = nullInt(pageStart)
		b.PageEnd = nullInt(pageEnd)
		b.TimeStartSec = nullFloat(timeStart)
		b.TimeEndSec = nullFloat(timeEnd)
		if b.Tags, err = parseList(tags); err != nil {
			return nil, err
		}
		if b.Screenshots, err = parseList(shots); err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		log.Error("error after scanning content block rows", "error", err)
		return nil, err
	}
	return blocks, nil
}

// jsonList encodes a string list for a JSONB column; nil becomes [].
func jsonList(values []string) ([]byte, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("failed to encode list: %w", err)
	}
	return data, nil
}

// parseList decodes a JSONB string list; an empty list becomes nil.
func parseList(data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to decode list: %w", err)
	}
	if len(values) == 0 {
		return nil, nil
	}
	return values, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullInt(v sql.NullInt32) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int32)
	return &n
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}
