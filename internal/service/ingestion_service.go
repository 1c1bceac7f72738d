package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/studyloop/internal/domain"
	"github.com/phrazzld/studyloop/internal/events"
	"github.com/phrazzld/studyloop/internal/ingest"
	"github.com/phrazzld/studyloop/internal/task"
)

// SubmitResourceRequest describes an uploaded resource. Title defaults to
// the file name without extension and Category is inferred from the file
// name when empty.
type SubmitResourceRequest struct {
	FileName  string
	MimeType  string
	Title     string
	Notes     string
	SourceURL string
	Source    domain.ResourceSource
	Category  domain.MaterialCategory
	Pages     []ingest.Page
}

// IngestionService stores uploaded resources and the blocks and units
// ingestion derives from them. It implements task.IngestionService.
type IngestionService struct {
	stores  Stores
	uow     UnitOfWork
	emitter events.EventEmitter
	logger  *slog.Logger
}

var _ task.IngestionService = (*IngestionService)(nil)

// NewIngestionService creates an IngestionService.
func NewIngestionService(
	stores Stores,
	uow UnitOfWork,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (*IngestionService, error) {
	if stores.Resources == nil || stores.Blocks == nil || stores.Units == nil || stores.Ingestions == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "stores cannot be nil"}
	}
	if uow == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "unit of work cannot be nil"}
	}
	if emitter == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "event emitter cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &IngestionService{
		stores:  stores,
		uow:     uow,
		emitter: emitter,
		logger:  logger.With("component", "ingestion_service"),
	}, nil
}

// SubmitResource stores the resource, its pages and a pending ingestion in
// one transaction, then requests background ingestion.
func (s *IngestionService) SubmitResource(
	ctx context.Context,
	req SubmitResourceRequest,
) (*domain.Resource, *domain.Ingestion, error) {
	title := req.Title
	if title == "" {
		title = ingest.TitleFromFileName(req.FileName)
	}
	category := req.Category
	if category == "" {
		category = ingest.InferMaterialCategory(req.FileName)
	}
	source := req.Source
	if source == "" {
		source = domain.SourceUpload
	}

	resource, err := domain.NewResource(title, source, category, req.FileName, req.MimeType, req.Notes)
	if err != nil {
		s.logger.WarnContext(ctx, "rejected resource", "error", err, "file_name", req.FileName)
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidResource, err)
	}
	resource.SourceURL = req.SourceURL

	pages, err := numberPages(req.Pages)
	if err != nil {
		s.logger.WarnContext(ctx, "rejected resource pages", "error", err, "file_name", req.FileName)
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidResource, err)
	}

	pagesTotal := len(pages)
	if pagesTotal == 0 {
		pagesTotal = 1
	}
	ingestion, err := domain.NewIngestion(resource.ID, pagesTotal)
	if err != nil {
		return nil, nil, NewServiceError("submit_resource", "failed to create ingestion", err)
	}

	err = s.uow.Do(ctx, func(ctx context.Context, tx Stores) error {
		if err := tx.Resources.Create(ctx, resource); err != nil {
			return NewServiceError("submit_resource", "failed to save resource", err)
		}
		if err := tx.Resources.SavePages(ctx, resource.ID, pages); err != nil {
			return NewServiceError("submit_resource", "failed to save pages", err)
		}
		if err := tx.Ingestions.Create(ctx, ingestion); err != nil {
			return NewServiceError("submit_resource", "failed to save ingestion", err)
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to store submitted resource",
			"error", err,
			"resource_id", resource.ID)
		return nil, nil, err
	}

	event, err := events.NewEvent(events.TypeIngestionRequested, events.IngestionRequested{
		IngestionID: ingestion.ID,
		ResourceID:  resource.ID,
	})
	if err != nil {
		return nil, nil, NewServiceError("submit_resource", "failed to create event", err)
	}
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to request ingestion",
			"error", err,
			"ingestion_id", ingestion.ID,
			"event_id", event.ID)
		return nil, nil, NewServiceError("submit_resource", "failed to request ingestion", err)
	}

	s.logger.InfoContext(ctx, "resource submitted for ingestion",
		"resource_id", resource.ID,
		"ingestion_id", ingestion.ID,
		"category", resource.Category,
		"pages", len(pages))
	return resource, ingestion, nil
}

// numberPages returns a copy of pages where unnumbered pages take their
// 1-based position. Numbers must end up unique.
func numberPages(pages []ingest.Page) ([]ingest.Page, error) {
	out := make([]ingest.Page, len(pages))
	seen := make(map[int]bool, len(pages))
	for i, page := range pages {
		if page.Number == 0 {
			page.Number = i + 1
		}
		if page.Number < 0 {
			return nil, fmt.Errorf("page %d has negative number %d", i+1, page.Number)
		}
		if seen[page.Number] {
			return nil, fmt.Errorf("page number %d appears twice", page.Number)
		}
		seen[page.Number] = true
		out[i] = page
	}
	return out, nil
}

// GetResource returns a resource.
func (s *IngestionService) GetResource(ctx context.Context, id uuid.UUID) (*domain.Resource, error) {
	r, err := s.stores.Resources.GetByID(ctx, id)
	if err != nil {
		return nil, NewServiceError("get_resource", "failed to retrieve resource", err)
	}
	return r, nil
}

// ListResources returns resources newest first.
func (s *IngestionService) ListResources(ctx context.Context, limit, offset int) ([]*domain.Resource, error) {
	rs, err := s.stores.Resources.List(ctx, limit, offset)
	if err != nil {
		return nil, NewServiceError("list_resources", "failed to list resources", err)
	}
	return rs, nil
}

// ListBlocks returns the content blocks of a resource.
func (s *IngestionService) ListBlocks(ctx context.Context, resourceID uuid.UUID) ([]domain.ContentBlock, error) {
	if _, err := s.GetResource(ctx, resourceID); err != nil {
		return nil, err
	}
	blocks, err := s.stores.Blocks.ListByResource(ctx, resourceID)
	if err != nil {
		return nil, NewServiceError("list_blocks", "failed to list blocks", err)
	}
	return blocks, nil
}

// ListUnits returns the learning units of a resource.
func (s *IngestionService) ListUnits(ctx context.Context, resourceID uuid.UUID) ([]domain.LearningUnit, error) {
	if _, err := s.GetResource(ctx, resourceID); err != nil {
		return nil, err
	}
	units, err := s.stores.Units.ListByResource(ctx, resourceID)
	if err != nil {
		return nil, NewServiceError("list_units", "failed to list units", err)
	}
	return units, nil
}

// GetIngestion returns an ingestion.
func (s *IngestionService) GetIngestion(ctx context.Context, id uuid.UUID) (*domain.Ingestion, error) {
	in, err := s.stores.Ingestions.GetByID(ctx, id)
	if err != nil {
		return nil, NewServiceError("get_ingestion", "failed to retrieve ingestion", err)
	}
	return in, nil
}

// BeginIngestion implements task.IngestionService. A finished ingestion is
// never run again.
func (s *IngestionService) BeginIngestion(
	ctx context.Context,
	ingestionID uuid.UUID,
) (*domain.Resource, []ingest.Page, error) {
	var (
		resource *domain.Resource
		pages    []ingest.Page
	)

	err := s.uow.Do(ctx, func(ctx context.Context, tx Stores) error {
		in, err := tx.Ingestions.GetByID(ctx, ingestionID)
		if err != nil {
			return NewServiceError("begin_ingestion", "failed to retrieve ingestion", err)
		}
		if isTerminal(in.Status) {
			return ErrIngestionFinished
		}

		resource, err = tx.Resources.GetByID(ctx, in.ResourceID)
		if err != nil {
			return NewServiceError("begin_ingestion", "failed to retrieve resource", err)
		}
		pages, err = tx.Resources.GetPages(ctx, in.ResourceID)
		if err != nil {
			return NewServiceError("begin_ingestion", "failed to retrieve pages", err)
		}

		if err := in.UpdateStatus(domain.IngestionStatusProcessing); err != nil {
			return NewServiceError("begin_ingestion", "failed to update status", err)
		}
		if err := tx.Ingestions.Update(ctx, in); err != nil {
			return NewServiceError("begin_ingestion", "failed to save ingestion", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "ingestion started",
		"ingestion_id", ingestionID,
		"resource_id", resource.ID,
		"pages", len(pages))
	return resource, pages, nil
}

// CompleteIngestion implements task.IngestionService. Blocks, units and the
// final status are written in one transaction.
func (s *IngestionService) CompleteIngestion(
	ctx context.Context,
	ingestionID uuid.UUID,
	result *ingest.BatchResult,
) error {
	if result == nil {
		return &ServiceError{Operation: "complete_ingestion", Message: "result cannot be nil"}
	}

	var final *domain.Ingestion
	err := s.uow.Do(ctx, func(ctx context.Context, tx Stores) error {
		in, err := tx.Ingestions.GetByID(ctx, ingestionID)
		if err != nil {
			return NewServiceError("complete_ingestion", "failed to retrieve ingestion", err)
		}
		if isTerminal(in.Status) {
			return ErrIngestionFinished
		}

		if err := tx.Blocks.CreateMultiple(ctx, result.Blocks); err != nil {
			return NewServiceError("complete_ingestion", "failed to save blocks", err)
		}
		if err := tx.Units.CreateMultiple(ctx, result.Units); err != nil {
			return NewServiceError("complete_ingestion", "failed to save units", err)
		}

		in.PagesTotal = result.PagesTotal
		in.Finish(result.PagesSucceeded, result.Err())
		if err := tx.Ingestions.Update(ctx, in); err != nil {
			return NewServiceError("complete_ingestion", "failed to save ingestion", err)
		}
		final = in
		return nil
	})
	if err != nil {
		return err
	}

	for _, f := range result.Failures {
		s.logger.WarnContext(ctx, "page produced no content",
			"ingestion_id", ingestionID,
			"page", f.Page,
			"error", f.Err)
	}
	s.logger.InfoContext(ctx, "ingestion finished",
		"ingestion_id", ingestionID,
		"status", final.Status,
		"blocks", len(result.Blocks),
		"units", len(result.Units))
	return nil
}

// FailIngestion implements task.IngestionService.
func (s *IngestionService) FailIngestion(ctx context.Context, ingestionID uuid.UUID, cause error) error {
	if cause == nil {
		cause = errors.New("unknown failure")
	}

	return s.uow.Do(ctx, func(ctx context.Context, tx Stores) error {
		in, err := tx.Ingestions.GetByID(ctx, ingestionID)
		if err != nil {
			return NewServiceError("fail_ingestion", "failed to retrieve ingestion", err)
		}
		if isTerminal(in.Status) {
			return nil
		}

		in.Finish(0, cause)
		if err := tx.Ingestions.Update(ctx, in); err != nil {
			return NewServiceError("fail_ingestion", "failed to save ingestion", err)
		}

		s.logger.WarnContext(ctx, "ingestion failed",
			"ingestion_id", ingestionID,
			"error", cause)
		return nil
	})
}

func isTerminal(status domain.IngestionStatus) bool {
	switch status {
	case domain.IngestionStatusCompleted, domain.IngestionStatusCompletedWithErrors, domain.IngestionStatusFailed:
		return true
	default:
		return false
	}
}
