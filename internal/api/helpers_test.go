package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/studyloop/internal/api/shared"
	"github.com/phrazzld/studyloop/internal/domain"
	"github.com/phrazzld/studyloop/internal/service"
	"github.com/phrazzld/studyloop/internal/store"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestRouter mounts the handlers the way cmd/server does, without auth.
func newTestRouter(resources ResourceService, sessions StudySessions) http.Handler {
	rh := NewResourceHandler(resources)
	sh := NewSessionHandler(sessions)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/resources", rh.SubmitResource)
		r.Get("/resources", rh.ListResources)
		r.Get("/resources/{id}", rh.GetResource)
		r.Get("/resources/{id}/blocks", rh.ListBlocks)
		r.Get("/resources/{id}/units", rh.ListUnits)
		r.Get("/ingestions/{id}", rh.GetIngestion)

		r.Post("/sessions", sh.OpenSession)
		r.Get("/sessions/{id}", sh.GetSession)
		r.Delete("/sessions/{id}", sh.CloseSession)
		r.Post("/sessions/{id}/select", sh.Select)
		r.Post("/sessions/{id}/text", sh.SetText)
		r.Post("/sessions/{id}/assign", sh.Assign)
		r.Post("/sessions/{id}/unassign", sh.Unassign)
		r.Post("/sessions/{id}/submit", sh.Submit)
		r.Post("/sessions/{id}/advance", sh.Advance)
		r.Post("/sessions/{id}/retreat", sh.Retreat)
	})
	return r
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req = req.WithContext(shared.SetTraceID(req.Context()))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// MockResourceService implements ResourceService for testing.
type MockResourceService struct {
	SubmitResourceFn func(ctx context.Context, req service.SubmitResourceRequest) (*domain.Resource, *domain.Ingestion, error)
	GetResourceFn    func(ctx context.Context, id uuid.UUID) (*domain.Resource, error)
	ListResourcesFn  func(ctx context.Context, limit, offset int) ([]*domain.Resource, error)
	ListBlocksFn     func(ctx context.Context, resourceID uuid.UUID) ([]domain.ContentBlock, error)
	ListUnitsFn      func(ctx context.Context, resourceID uuid.UUID) ([]domain.LearningUnit, error)
	GetIngestionFn   func(ctx context.Context, id uuid.UUID) (*domain.Ingestion, error)
}

func (m *MockResourceService) SubmitResource(
	ctx context.Context,
	req service.SubmitResourceRequest,
) (*domain.Resource, *domain.Ingestion, error) {
	return m.SubmitResourceFn(ctx, req)
}

func (m *MockResourceService) GetResource(ctx context.Context, id uuid.UUID) (*domain.Resource, error) {
	return m.GetResourceFn(ctx, id)
}

func (m *MockResourceService) ListResources(ctx context.Context, limit, offset int) ([]*domain.Resource, error) {
	return m.ListResourcesFn(ctx, limit, offset)
}

func (m *MockResourceService) ListBlocks(ctx context.Context, id uuid.UUID) ([]domain.ContentBlock, error) {
	return m.ListBlocksFn(ctx, id)
}

func (m *MockResourceService) ListUnits(ctx context.Context, id uuid.UUID) ([]domain.LearningUnit, error) {
	return m.ListUnitsFn(ctx, id)
}

func (m *MockResourceService) GetIngestion(ctx context.Context, id uuid.UUID) (*domain.Ingestion, error) {
	return m.GetIngestionFn(ctx, id)
}

// memoryUnits is a store.UnitStore over a map, used to run the real
// StudyService behind the handlers.
type memoryUnits struct {
	mu    sync.Mutex
	units map[string]domain.LearningUnit
}

func newMemoryUnits(units ...domain.LearningUnit) *memoryUnits {
	m := &memoryUnits{units: make(map[string]domain.LearningUnit)}
	for _, u := range units {
		m.units[u.ResourceID.String()+"/"+u.ID] = u
	}
	return m
}

func (m *memoryUnits) CreateMultiple(_ context.Context, units []domain.LearningUnit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range units {
		m.units[u.ResourceID.String()+"/"+u.ID] = u
	}
	return nil
}

func (m *memoryUnits) GetByID(_ context.Context, resourceID uuid.UUID, unitID string) (*domain.LearningUnit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.units[resourceID.String()+"/"+unitID]
	if !ok {
		return nil, store.ErrUnitNotFound
	}
	return &u, nil
}

func (m *memoryUnits) ListByResource(_ context.Context, resourceID uuid.UUID) ([]domain.LearningUnit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.LearningUnit
	for _, u := range m.units {
		if u.ResourceID == resourceID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memoryUnits) UpdateStatus(_ context.Context, resourceID uuid.UUID, unitID string, status domain.UnitStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := resourceID.String() + "/" + unitID
	u, ok := m.units[key]
	if !ok {
		return store.ErrUnitNotFound
	}
	updated, err := u.WithStatus(status)
	if err != nil {
		return err
	}
	m.units[key] = updated
	return nil
}

func (m *memoryUnits) WithTx(*sql.Tx) store.UnitStore { return m }

func (m *memoryUnits) status(resourceID uuid.UUID, unitID string) domain.UnitStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.units[resourceID.String()+"/"+unitID].Status
}
