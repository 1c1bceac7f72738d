package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/studyloop/internal/domain"
	"github.com/phrazzld/studyloop/internal/events"
	"github.com/phrazzld/studyloop/internal/ingest"
	"github.com/phrazzld/studyloop/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memoryDB backs every fake store. The fake unit of work snapshots it and
// restores the snapshot when the work fails.
type memoryDB struct {
	mu         sync.Mutex
	resources  map[uuid.UUID]domain.Resource
	pages      map[uuid.UUID][]ingest.Page
	blocks     map[uuid.UUID][]domain.ContentBlock
	units      map[uuid.UUID][]domain.LearningUnit
	ingestions map[uuid.UUID]domain.Ingestion

	failUnits error
}

func newMemoryDB() *memoryDB {
	return &memoryDB{
		resources:  map[uuid.UUID]domain.Resource{},
		pages:      map[uuid.UUID][]ingest.Page{},
		blocks:     map[uuid.UUID][]domain.ContentBlock{},
		units:      map[uuid.UUID][]domain.LearningUnit{},
		ingestions: map[uuid.UUID]domain.Ingestion{},
	}
}

func (db *memoryDB) stores() Stores {
	return Stores{
		Resources:  resourceFake{db},
		Blocks:     blockFake{db},
		Units:      unitFake{db},
		Ingestions: ingestionFake{db},
	}
}

func (db *memoryDB) snapshot() *memoryDB {
	db.mu.Lock()
	defer db.mu.Unlock()
	cp := newMemoryDB()
	for k, v := range db.resources {
		cp.resources[k] = v
	}
	for k, v := range db.pages {
		cp.pages[k] = append([]ingest.Page(nil), v...)
	}
	for k, v := range db.blocks {
		cp.blocks[k] = append([]domain.ContentBlock(nil), v...)
	}
	for k, v := range db.units {
		cp.units[k] = append([]domain.LearningUnit(nil), v...)
	}
	for k, v := range db.ingestions {
		cp.ingestions[k] = v
	}
	return cp
}

func (db *memoryDB) restore(from *memoryDB) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.resources = from.resources
	db.pages = from.pages
	db.blocks = from.blocks
	db.units = from.units
	db.ingestions = from.ingestions
}

type fakeUnitOfWork struct {
	db *memoryDB
}

func (u fakeUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, tx Stores) error) error {
	before := u.db.snapshot()
	if err := fn(ctx, u.db.stores()); err != nil {
		u.db.restore(before)
		return err
	}
	return nil
}

type resourceFake struct{ db *memoryDB }

func (f resourceFake) Create(_ context.Context, r *domain.Resource) error {
	if err := r.Validate(); err != nil {
		return err
	}
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.resources[r.ID]; ok {
		return store.ErrDuplicate
	}
	f.db.resources[r.ID] = *r
	return nil
}

func (f resourceFake) GetByID(_ context.Context, id uuid.UUID) (*domain.Resource, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	r, ok := f.db.resources[id]
	if !ok {
		return nil, store.ErrResourceNotFound
	}
	return &r, nil
}

func (f resourceFake) List(_ context.Context, limit, offset int) ([]*domain.Resource, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := []*domain.Resource{}
	for _, r := range f.db.resources {
		r := r
		out = append(out, &r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return []*domain.Resource{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f resourceFake) SavePages(_ context.Context, id uuid.UUID, pages []ingest.Page) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.pages[id] = append([]ingest.Page(nil), pages...)
	return nil
}

func (f resourceFake) GetPages(_ context.Context, id uuid.UUID) ([]ingest.Page, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return append([]ingest.Page{}, f.db.pages[id]...), nil
}

func (f resourceFake) WithTx(*sql.Tx) store.ResourceStore { return f }

type blockFake struct{ db *memoryDB }

func (f blockFake) CreateMultiple(_ context.Context, blocks []domain.ContentBlock) error {
	for i := range blocks {
		if err := blocks[i].Validate(); err != nil {
			return errors.Join(store.ErrInvalidEntity, err)
		}
	}
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, b := range blocks {
		f.db.blocks[b.ResourceID] = append(f.db.blocks[b.ResourceID], b)
	}
	return nil
}

func (f blockFake) ListByResource(_ context.Context, id uuid.UUID) ([]domain.ContentBlock, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return append([]domain.ContentBlock{}, f.db.blocks[id]...), nil
}

func (f blockFake) WithTx(*sql.Tx) store.BlockStore { return f }

type unitFake struct{ db *memoryDB }

func (f unitFake) CreateMultiple(_ context.Context, units []domain.LearningUnit) error {
	if f.db.failUnits != nil {
		return f.db.failUnits
	}
	for i := range units {
		if err := units[i].Validate(); err != nil {
			return errors.Join(store.ErrInvalidEntity, err)
		}
	}
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, u := range units {
		f.db.units[u.ResourceID] = append(f.db.units[u.ResourceID], u)
	}
	return nil
}

func (f unitFake) GetByID(_ context.Context, resourceID uuid.UUID, unitID string) (*domain.LearningUnit, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, u := range f.db.units[resourceID] {
		if u.ID == unitID {
			return &u, nil
		}
	}
	return nil, store.ErrUnitNotFound
}

func (f unitFake) ListByResource(_ context.Context, id uuid.UUID) ([]domain.LearningUnit, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return append([]domain.LearningUnit{}, f.db.units[id]...), nil
}

func (f unitFake) UpdateStatus(_ context.Context, resourceID uuid.UUID, unitID string, status domain.UnitStatus) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	units := f.db.units[resourceID]
	for i := range units {
		if units[i].ID == unitID {
			units[i].Status = status
			return nil
		}
	}
	return store.ErrUnitNotFound
}

func (f unitFake) WithTx(*sql.Tx) store.UnitStore { return f }

type ingestionFake struct{ db *memoryDB }

func (f ingestionFake) Create(_ context.Context, in *domain.Ingestion) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.resources[in.ResourceID]; !ok {
		return store.ErrResourceNotFound
	}
	f.db.ingestions[in.ID] = *in
	return nil
}

func (f ingestionFake) GetByID(_ context.Context, id uuid.UUID) (*domain.Ingestion, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	in, ok := f.db.ingestions[id]
	if !ok {
		return nil, store.ErrIngestionNotFound
	}
	return &in, nil
}

func (f ingestionFake) Update(_ context.Context, in *domain.Ingestion) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.ingestions[in.ID]; !ok {
		return store.ErrIngestionNotFound
	}
	f.db.ingestions[in.ID] = *in
	return nil
}

func (f ingestionFake) WithTx(*sql.Tx) store.IngestionStore { return f }

// recordingEmitter keeps every emitted event.
type recordingEmitter struct {
	mu     sync.Mutex
	events []*events.Event
	err    error
}

func (e *recordingEmitter) EmitEvent(_ context.Context, event *events.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return e.err
}
