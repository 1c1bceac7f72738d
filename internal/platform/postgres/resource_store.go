package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/studyloop/internal/domain"
	"github.com/phrazzld/studyloop/internal/ingest"
	"github.com/phrazzld/studyloop/internal/store"
)

// PostgresResourceStore implements store.ResourceStore.
type PostgresResourceStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresResourceStore creates a resource store over db. If logger is
// nil, slog.Default is used.
func NewPostgresResourceStore(db store.DBTX, logger *slog.Logger) *PostgresResourceStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresResourceStore{
		db:     db,
		logger: logger.With("component", "resource_store"),
	}
}

var _ store.ResourceStore = (*PostgresResourceStore)(nil)

// WithTx implements store.ResourceStore.WithTx.
func (s *PostgresResourceStore) WithTx(tx *sql.Tx) store.ResourceStore {
	return &PostgresResourceStore{db: tx, logger: s.logger}
}

// Create implements store.ResourceStore.Create.
func (s *PostgresResourceStore) Create(ctx context.Context, resource *domain.Resource) error {
	log := loggerFor(ctx, s.logger)

	if err := resource.Validate(); err != nil {
		log.Warn("resource validation failed during create",
			"error", err,
			"resource_id", resource.ID)
		return err
	}

	query := `
		INSERT INTO resources (id, title, source, file_name, mime_type, category, notes, source_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		resource.ID,
		resource.Title,
		resource.Source,
		resource.FileName,
		resource.MimeType,
		resource.Category,
		resource.Notes,
		resource.SourceURL,
		resource.CreatedAt,
	)
	if err != nil {
		log.Error("failed to create resource", "error", err, "resource_id", resource.ID)
		return MapError(err)
	}

	log.Info("resource created",
		"resource_id", resource.ID,
		"category", resource.Category)
	return nil
}

// GetByID implements store.ResourceStore.GetByID.
func (s *PostgresResourceStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Resource, error) {
	log := loggerFor(ctx, s.logger)

	query := `
		SELECT id, title, source, file_name, mime_type, category, notes, source_url, created_at
		FROM resources
		WHERE id = $1
	`
	resource, err := scanResource(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("resource not found", "resource_id", id)
			return nil, store.ErrResourceNotFound
		}
		log.Error("failed to get resource", "error", err, "resource_id", id)
		return nil, MapError(err)
	}
	return resource, nil
}

// List implements store.ResourceStore.List.
func (s *PostgresResourceStore) List(ctx context.Context, limit, offset int) ([]*domain.Resource, error) {
	log := loggerFor(ctx, s.logger)

	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, title, source, file_name, mime_type, category, notes, source_url, created_at
		FROM resources
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		log.Error("failed to list resources", "error", err)
		return nil, MapError(err)
	}
	defer closeRows(rows, log)

	resources := []*domain.Resource{}
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			log.Error("failed to scan resource row", "error", err)
			return nil, err
		}
		resources = append(resources, r)
	}
	if err := rows.Err(); err != nil {
		log.Error("error after scanning resource rows", "error", err)
		return nil, err
	}
	return resources, nil
}

// SavePages implements store.ResourceStore.SavePages.
func (s *PostgresResourceStore) SavePages(ctx context.Context, resourceID uuid.UUID, pages []ingest.Page) error {
	log := loggerFor(ctx, s.logger)

	if _, err := s.db.ExecContext(ctx, `DELETE FROM resource_pages WHERE resource_id = $1`, resourceID); err != nil {
		log.Error("failed to clear resource pages", "error", err, "resource_id", resourceID)
		return MapError(err)
	}

	query := `
		INSERT INTO resource_pages (resource_id, page_number, text, image, image_mime_type)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, p := range pages {
		var image []byte
		var mime string
		if p.Image != nil {
			image = p.Image.Data
			mime = p.Image.MIMEType
		}
		if _, err := s.db.ExecContext(ctx, query, resourceID, p.Number, p.Text, image, mime); err != nil {
			log.Error("failed to save resource page",
				"error", err,
				"resource_id", resourceID,
				"page", p.Number)
			return MapError(err)
		}
	}

	log.Debug("resource pages saved", "resource_id", resourceID, "count", len(pages))
	return nil
}

// GetPages implements store.ResourceStore.GetPages.
func (s *PostgresResourceStore) GetPages(ctx context.Context, resourceID uuid.UUID) ([]ingest.Page, error) {
	log := loggerFor(ctx, s.logger)

	query := `
		SELECT page_number, text, image, image_mime_type
		FROM resource_pages
		WHERE resource_id = $1
		ORDER BY page_number ASC
	`
	rows, err := s.db.QueryContext(ctx, query, resourceID)
	if err != nil {
		log.Error("failed to query resource pages", "error", err, "resource_id", resourceID)
		return nil, MapError(err)
	}
	defer closeRows(rows, log)

	pages := []ingest.Page{}
	for rows.Next() {
		var (
			p     ingest.Page
			image []byte
			mime  string
		)
		if err := rows.Scan(&p.Number, &p.Text, &image, &mime); err != nil {
			return nil, fmt.Errorf("failed to scan resource page: %w", err)
		}
		if len(image) > 0 {
			p.Image = &ingest.PageImage{Data: image, MIMEType: mime}
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating resource pages: %w", err)
	}
	return pages, nil
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(row rowScanner) (*domain.Resource, error) {
	var (
		r        domain.Resource
		source   string
		category string
	)
	err := row.Scan(
		&r.ID,
		&r.Title,
		&source,
		&r.FileName,
		&r.MimeType,
		&category,
		&r.Notes,
		&r.SourceURL,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Source = domain.ResourceSource(source)
	r.Category = domain.MaterialCategory(category)
	return &r, nil
}
