package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/studyloop/internal/api/shared"
	"github.com/phrazzld/studyloop/internal/domain"
	"github.com/phrazzld/studyloop/internal/platform/logger"
	"github.com/phrazzld/studyloop/internal/service"
)

// ResourceService is the part of service.IngestionService the resource
// endpoints use.
type ResourceService interface {
	SubmitResource(ctx context.Context, req service.SubmitResourceRequest) (*domain.Resource, *domain.Ingestion, error)
	GetResource(ctx context.Context, id uuid.UUID) (*domain.Resource, error)
	ListResources(ctx context.Context, limit, offset int) ([]*domain.Resource, error)
	ListBlocks(ctx context.Context, resourceID uuid.UUID) ([]domain.ContentBlock, error)
	ListUnits(ctx context.Context, resourceID uuid.UUID) ([]domain.LearningUnit, error)
	GetIngestion(ctx context.Context, id uuid.UUID) (*domain.Ingestion, error)
}

var _ ResourceService = (*service.IngestionService)(nil)

// ResourceHandler serves resources, their derived blocks and units, and
// ingestion progress.
type ResourceHandler struct {
	resources ResourceService
}

// NewResourceHandler creates a ResourceHandler.
func NewResourceHandler(resources ResourceService) *ResourceHandler {
	return &ResourceHandler{resources: resources}
}

// SubmitResource handles POST /api/resources. Ingestion happens in the
// background, so the response is 202 with the pending ingestion.
func (h *ResourceHandler) SubmitResource(w http.ResponseWriter, r *http.Request) {
	var req SubmitResourceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resource, ingestion, err := h.resources.SubmitResource(r.Context(), req.toService())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	logger.FromContextOrDefault(r.Context()).Info("resource accepted",
		"resource_id", resource.ID,
		"ingestion_id", ingestion.ID,
		"pages", len(req.Pages))
	shared.RespondWithJSON(w, r, http.StatusAccepted, SubmitResourceResponse{
		Resource:  resource,
		Ingestion: ingestion,
	})
}

// ListResources handles GET /api/resources.
func (h *ResourceHandler) ListResources(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid pagination", err)
		return
	}

	resources, err := h.resources.ListResources(r.Context(), limit, offset)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if resources == nil {
		resources = []*domain.Resource{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ListResponse[*domain.Resource]{
		Items:  resources,
		Limit:  limit,
		Offset: offset,
	})
}

// GetResource handles GET /api/resources/{id}.
func (h *ResourceHandler) GetResource(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	resource, err := h.resources.GetResource(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resource)
}

// ListBlocks handles GET /api/resources/{id}/blocks.
func (h *ResourceHandler) ListBlocks(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	blocks, err := h.resources.ListBlocks(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if blocks == nil {
		blocks = []domain.ContentBlock{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, blocks)
}

// ListUnits handles GET /api/resources/{id}/units.
func (h *ResourceHandler) ListUnits(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	units, err := h.resources.ListUnits(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if units == nil {
		units = []domain.LearningUnit{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, units)
}

// GetIngestion handles GET /api/ingestions/{id}.
func (h *ResourceHandler) GetIngestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	ingestion, err := h.resources.GetIngestion(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ingestion)
}
