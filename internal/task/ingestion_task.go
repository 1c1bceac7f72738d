package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/studyloop/internal/domain"
	"github.com/phrazzld/studyloop/internal/ingest"
)

// Common errors
var (
	ErrNilIngestionService = errors.New("ingestion service cannot be nil")
	ErrNilPipeline         = errors.New("pipeline cannot be nil")
	ErrNilLogger           = errors.New("logger cannot be nil")
	ErrEmptyIngestionID    = errors.New("ingestion ID cannot be empty")
)

// IngestionService is the persistence side of an ingestion run.
type IngestionService interface {
	// BeginIngestion marks the ingestion processing and returns its
	// resource together with the pages to process.
	BeginIngestion(ctx context.Context, ingestionID uuid.UUID) (*domain.Resource, []ingest.Page, error)

	// CompleteIngestion stores the blocks and units of result and records
	// the final ingestion status.
	CompleteIngestion(ctx context.Context, ingestionID uuid.UUID, result *ingest.BatchResult) error

	// FailIngestion records that the ingestion produced nothing.
	FailIngestion(ctx context.Context, ingestionID uuid.UUID, cause error) error
}

// Pipeline turns the pages of a resource into blocks and units.
type Pipeline interface {
	Run(ctx context.Context, resource *domain.Resource, pages []ingest.Page) (*ingest.BatchResult, error)
}

// ingestionPayload represents the serialized data stored in the task
type ingestionPayload struct {
	IngestionID uuid.UUID `json:"ingestion_id"`
}

// IngestionTask implements the Task interface for running the ingestion
// pipeline over one uploaded resource.
type IngestionTask struct {
	id          uuid.UUID
	ingestionID uuid.UUID
	service     IngestionService
	pipeline    Pipeline
	logger      *slog.Logger
	status      TaskStatus
}

// NewIngestionTask creates a new ingestion task
func NewIngestionTask(
	ingestionID uuid.UUID,
	service IngestionService,
	pipeline Pipeline,
	logger *slog.Logger,
) (*IngestionTask, error) {
	return newIngestionTask(uuid.New(), ingestionID, service, pipeline, logger)
}

func newIngestionTask(
	id uuid.UUID,
	ingestionID uuid.UUID,
	service IngestionService,
	pipeline Pipeline,
	logger *slog.Logger,
) (*IngestionTask, error) {
	if service == nil {
		return nil, ErrNilIngestionService
	}
	if pipeline == nil {
		return nil, ErrNilPipeline
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if ingestionID == uuid.Nil {
		return nil, ErrEmptyIngestionID
	}

	return &IngestionTask{
		id:          id,
		ingestionID: ingestionID,
		service:     service,
		pipeline:    pipeline,
		logger:      logger.With("task_type", TaskTypeIngestion, "ingestion_id", ingestionID),
		status:      TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *IngestionTask) ID() uuid.UUID {
	return t.id
}

// IngestionID returns the ingestion this task runs.
func (t *IngestionTask) IngestionID() uuid.UUID {
	return t.ingestionID
}

// Type returns the task type identifier
func (t *IngestionTask) Type() string {
	return TaskTypeIngestion
}

// Payload returns the task data as a byte slice
func (t *IngestionTask) Payload() []byte {
	data, err := json.Marshal(ingestionPayload{IngestionID: t.ingestionID})
	if err != nil {
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}
	return data
}

// Status returns the current task status
func (t *IngestionTask) Status() TaskStatus {
	return t.status
}

// Execute loads the resource, runs the pipeline over its pages and stores
// the result. Pages that fail are recorded on the ingestion; the task only
// fails when nothing could be ingested or persisting failed.
func (t *IngestionTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	t.logger.InfoContext(ctx, "starting ingestion task")

	if err := ctx.Err(); err != nil {
		t.status = TaskStatusFailed
		return fmt.Errorf("task cancelled by context: %w", err)
	}

	resource, pages, err := t.service.BeginIngestion(ctx, t.ingestionID)
	if err != nil {
		t.status = TaskStatusFailed
		t.logger.ErrorContext(ctx, "failed to begin ingestion", "error", err)
		return fmt.Errorf("failed to begin ingestion: %w", err)
	}

	t.logger.InfoContext(ctx, "running ingestion pipeline",
		"resource_id", resource.ID,
		"pages", len(pages))

	result, err := t.pipeline.Run(ctx, resource, pages)
	if err != nil {
		if failErr := t.service.FailIngestion(ctx, t.ingestionID, err); failErr != nil {
			t.logger.ErrorContext(ctx, "failed to record ingestion failure", "error", failErr)
		}
		t.status = TaskStatusFailed
		t.logger.ErrorContext(ctx, "ingestion pipeline failed", "error", err)
		return fmt.Errorf("ingestion pipeline failed: %w", err)
	}

	if err := t.service.CompleteIngestion(ctx, t.ingestionID, result); err != nil {
		if failErr := t.service.FailIngestion(ctx, t.ingestionID, err); failErr != nil {
			t.logger.ErrorContext(ctx, "failed to record ingestion failure", "error", failErr)
		}
		t.status = TaskStatusFailed
		t.logger.ErrorContext(ctx, "failed to store ingestion result", "error", err)
		return fmt.Errorf("failed to store ingestion result: %w", err)
	}

	t.status = TaskStatusCompleted
	t.logger.InfoContext(ctx, "ingestion task completed",
		"pages_total", result.PagesTotal,
		"pages_succeeded", result.PagesSucceeded,
		"blocks", len(result.Blocks),
		"units", len(result.Units))
	return nil
}

// IngestionTaskFactory creates IngestionTask instances
type IngestionTaskFactory struct {
	service  IngestionService
	pipeline Pipeline
	logger   *slog.Logger
}

// NewIngestionTaskFactory creates a new factory for IngestionTasks
func NewIngestionTaskFactory(service IngestionService, pipeline Pipeline, logger *slog.Logger) *IngestionTaskFactory {
	return &IngestionTaskFactory{
		service:  service,
		pipeline: pipeline,
		logger:   logger.With("component", "ingestion_task_factory"),
	}
}

// CreateTask creates a new IngestionTask for the specified ingestion
func (f *IngestionTaskFactory) CreateTask(ingestionID uuid.UUID) (Task, error) {
	return NewIngestionTask(ingestionID, f.service, f.pipeline, f.logger)
}

// Restore rebuilds a persisted ingestion task, keeping its id.
func (f *IngestionTaskFactory) Restore(rec Record) (Task, error) {
	var payload ingestionPayload
	if err := json.Unmarshal(rec.Payload, &payload); err != nil {
		return nil, fmt.Errorf("invalid ingestion task payload: %w", err)
	}
	return newIngestionTask(rec.ID, payload.IngestionID, f.service, f.pipeline, f.logger)
}
