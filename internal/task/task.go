package task

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle state of a persisted task.
type TaskStatus string

// Task statuses. Pending and processing tasks are requeued on startup.
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task type constants
const (
	// TaskTypeIngestion extracts blocks and units from an uploaded resource
	TaskTypeIngestion = "ingestion"
)

// Task is one unit of background work. Payload is what gets persisted;
// a Restorer registered for Type rebuilds the task from it.
type Task interface {
	ID() uuid.UUID
	Type() string
	Payload() []byte
	Status() TaskStatus
	Execute(ctx context.Context) error
}

// Record is a task as persisted by a TaskStore.
type Record struct {
	ID           uuid.UUID
	Type         string
	Payload      []byte
	Status       TaskStatus
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Restorer rebuilds an executable Task from its persisted record.
type Restorer func(rec Record) (Task, error)

// TaskQueueReader is the consuming side of a queue, used by workers.
type TaskQueueReader interface {
	// Tasks yields queued tasks until the queue is closed.
	Tasks() <-chan Task
}

// TaskStore persists tasks so unfinished work survives a restart.
type TaskStore interface {
	SaveTask(ctx context.Context, task Task) error
	UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error
	GetPendingTasks(ctx context.Context) ([]Record, error)
	// GetProcessingTasks returns processing tasks, limited to those last
	// updated more than olderThan ago when olderThan is non-zero.
	GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Record, error)
}
