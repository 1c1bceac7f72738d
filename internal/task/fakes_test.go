package task

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// stubTask is a Task whose Execute runs fn.
type stubTask struct {
	id      uuid.UUID
	payload []byte
	fn      func(ctx context.Context) error
}

func newStubTask(fn func(ctx context.Context) error) *stubTask {
	return &stubTask{id: uuid.New(), payload: []byte(`{}`), fn: fn}
}

func (t *stubTask) ID() uuid.UUID      { return t.id }
func (t *stubTask) Type() string       { return "stub" }
func (t *stubTask) Payload() []byte    { return t.payload }
func (t *stubTask) Status() TaskStatus { return TaskStatusPending }

func (t *stubTask) Execute(ctx context.Context) error {
	if t.fn == nil {
		return nil
	}
	return t.fn(ctx)
}

// memTaskStore keeps task records in memory.
type memTaskStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]Record
	history map[uuid.UUID][]TaskStatus
	saveErr error
	listErr error
}

func newMemTaskStore() *memTaskStore {
	return &memTaskStore{
		records: make(map[uuid.UUID]Record),
		history: make(map[uuid.UUID][]TaskStatus),
	}
}

func (s *memTaskStore) SaveTask(_ context.Context, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	now := time.Now()
	s.records[task.ID()] = Record{
		ID:        task.ID(),
		Type:      task.Type(),
		Payload:   task.Payload(),
		Status:    task.Status(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.history[task.ID()] = append(s.history[task.ID()], task.Status())
	return nil
}

func (s *memTaskStore) UpdateTaskStatus(_ context.Context, id uuid.UUID, status TaskStatus, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil
	}
	rec.Status = status
	rec.ErrorMessage = msg
	rec.UpdatedAt = time.Now()
	s.records[id] = rec
	s.history[id] = append(s.history[id], status)
	return nil
}

func (s *memTaskStore) put(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
}

func (s *memTaskStore) list(status TaskStatus) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []Record
	for _, rec := range s.records {
		if rec.Status == status {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *memTaskStore) GetPendingTasks(context.Context) ([]Record, error) {
	return s.list(TaskStatusPending)
}

func (s *memTaskStore) GetProcessingTasks(context.Context, time.Duration) ([]Record, error) {
	return s.list(TaskStatusProcessing)
}

func (s *memTaskStore) status(id uuid.UUID) TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[id].Status
}

func (s *memTaskStore) statuses(id uuid.UUID) []TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TaskStatus(nil), s.history[id]...)
}

var errBoom = errors.New("boom")
