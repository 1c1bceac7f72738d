//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/studyloop/internal/domain"
	"github.com/phrazzld/studyloop/internal/ingest"
	"github.com/phrazzld/studyloop/internal/platform/postgres"
	"github.com/phrazzld/studyloop/internal/store"
	"github.com/phrazzld/studyloop/internal/task"
	"github.com/phrazzld/studyloop/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func createResource(t *testing.T, tx *sql.Tx) *domain.Resource {
	t.Helper()

	r, err := domain.NewResource("第一课", domain.SourceUpload, domain.MaterialPDF, "第一课.pdf", "application/pdf", "")
	require.NoError(t, err)
	require.NoError(t, postgres.NewPostgresResourceStore(tx, discardLogger()).Create(context.Background(), r))
	return r
}

func TestResourceStoreIntegration(t *testing.T) {
	db := testdb.GetTestDBWithT(t)
	ctx := context.Background()

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		s := postgres.NewPostgresResourceStore(tx, discardLogger())
		r := createResource(t, tx)

		got, err := s.GetByID(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, r.Title, got.Title)
		assert.Equal(t, r.Category, got.Category)
		assert.WithinDuration(t, r.CreatedAt, got.CreatedAt, time.Millisecond)

		_, err = s.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, store.ErrResourceNotFound)

		pages := []ingest.Page{
			{Number: 2, Text: "第二页"},
			{Number: 1, Text: "第一页", Image: &ingest.PageImage{Data: []byte{0x89, 'P'}, MIMEType: "image/png"}},
		}
		require.NoError(t, s.SavePages(ctx, r.ID, pages))
		require.NoError(t, s.SavePages(ctx, r.ID, pages), "saving again replaces")

		stored, err := s.GetPages(ctx, r.ID)
		require.NoError(t, err)
		require.Len(t, stored, 2)
		assert.Equal(t, 1, stored[0].Number)
		require.NotNil(t, stored[0].Image)
		assert.Equal(t, "image/png", stored[0].Image.MIMEType)
		assert.Nil(t, stored[1].Image)

		list, err := s.List(ctx, 100, 0)
		require.NoError(t, err)
		assert.NotEmpty(t, list)
	})
}

func TestBlockAndUnitStoreIntegration(t *testing.T) {
	db := testdb.GetTestDBWithT(t)
	ctx := context.Background()

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		r := createResource(t, tx)
		blocks := postgres.NewPostgresBlockStore(tx, discardLogger())
		units := postgres.NewPostgresUnitStore(tx, discardLogger())

		summary := "多音字"
		difficulty := 2
		require.NoError(t, blocks.CreateMultiple(ctx, []domain.ContentBlock{
			{ID: "b2", ResourceID: r.ID, Category: domain.BlockVocabulary, Title: "生字", Tags: []string{"识字"}},
			{ID: "b1", ResourceID: r.ID, Category: domain.BlockConcept, Title: "拼音", Summary: &summary, Difficulty: &difficulty},
		}))

		gotBlocks, err := blocks.ListByResource(ctx, r.ID)
		require.NoError(t, err)
		require.Len(t, gotBlocks, 2)
		assert.Equal(t, "b2", gotBlocks[0].ID, "extraction order is kept")
		assert.Equal(t, []string{"识字"}, gotBlocks[0].Tags)
		assert.Equal(t, &summary, gotBlocks[1].Summary)
		assert.Equal(t, &difficulty, gotBlocks[1].Difficulty)
		assert.Nil(t, gotBlocks[1].Topic)

		err = blocks.CreateMultiple(ctx, []domain.ContentBlock{{ID: "bad", ResourceID: r.ID, Category: "nope", Title: "x"}})
		assert.ErrorIs(t, err, store.ErrInvalidEntity)

		page := 1
		unit := domain.LearningUnit{
			ID:             "u1",
			ResourceID:     r.ID,
			Title:          "拼音",
			Status:         domain.UnitStatusTodo,
			Kind:           domain.KindChoice,
			Goal:           domain.GoalMemory,
			SourceBlockIDs: []string{"b1"},
			Payload:        json.RawMessage(`[{"question":"q","options":["a","b"],"correct":0}]`),
			PageNumber:     &page,
		}
		require.NoError(t, units.CreateMultiple(ctx, []domain.LearningUnit{unit}))

		got, err := units.GetByID(ctx, r.ID, "u1")
		require.NoError(t, err)
		assert.Equal(t, unit.SourceBlockIDs, got.SourceBlockIDs)
		assert.JSONEq(t, string(unit.Payload), string(got.Payload))
		assert.Equal(t, &page, got.PageNumber)

		require.NoError(t, units.UpdateStatus(ctx, r.ID, "u1", domain.UnitStatusDone))
		got, err = units.GetByID(ctx, r.ID, "u1")
		require.NoError(t, err)
		assert.Equal(t, domain.UnitStatusDone, got.Status)

		assert.ErrorIs(t, units.UpdateStatus(ctx, r.ID, "missing", domain.UnitStatusDone), store.ErrUnitNotFound)
		assert.ErrorIs(t, units.UpdateStatus(ctx, r.ID, "u1", "mastered"), domain.ErrInvalidUnitStatus)

		_, err = units.GetByID(ctx, r.ID, "missing")
		assert.ErrorIs(t, err, store.ErrUnitNotFound)

		list, err := units.ListByResource(ctx, r.ID)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}

func TestIngestionStoreIntegration(t *testing.T) {
	db := testdb.GetTestDBWithT(t)
	ctx := context.Background()

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		r := createResource(t, tx)
		s := postgres.NewPostgresIngestionStore(tx, discardLogger())

		in, err := domain.NewIngestion(r.ID, 3)
		require.NoError(t, err)
		require.NoError(t, s.Create(ctx, in))

		in.Finish(2, nil)
		require.NoError(t, s.Update(ctx, in))

		got, err := s.GetByID(ctx, in.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.IngestionStatusCompletedWithErrors, got.Status)
		assert.Equal(t, 2, got.PagesSucceeded)

		orphan, err := domain.NewIngestion(uuid.New(), 1)
		require.NoError(t, err)
		assert.ErrorIs(t, s.Create(ctx, orphan), store.ErrResourceNotFound)
	})
}

type savedTask struct {
	id uuid.UUID
}

func (t savedTask) ID() uuid.UUID                 { return t.id }
func (t savedTask) Type() string                  { return task.TaskTypeIngestion }
func (t savedTask) Payload() []byte               { return []byte(`{"ingestion_id":"x"}`) }
func (t savedTask) Status() task.TaskStatus       { return task.TaskStatusPending }
func (t savedTask) Execute(context.Context) error { return nil }

func TestTaskStoreIntegration(t *testing.T) {
	db := testdb.GetTestDBWithT(t)
	ctx := context.Background()

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		s := postgres.NewPostgresTaskStore(tx, discardLogger())

		pendingTask := savedTask{id: uuid.New()}
		processingTask := savedTask{id: uuid.New()}
		require.NoError(t, s.SaveTask(ctx, pendingTask))
		require.NoError(t, s.SaveTask(ctx, processingTask))
		require.NoError(t, s.UpdateTaskStatus(ctx, processingTask.ID(), task.TaskStatusProcessing, ""))

		pending, err := s.GetPendingTasks(ctx)
		require.NoError(t, err)
		assert.True(t, containsRecord(pending, pendingTask.ID()))
		assert.False(t, containsRecord(pending, processingTask.ID()))

		processing, err := s.GetProcessingTasks(ctx, 0)
		require.NoError(t, err)
		assert.True(t, containsRecord(processing, processingTask.ID()))

		stuck, err := s.GetProcessingTasks(ctx, time.Hour)
		require.NoError(t, err)
		assert.False(t, containsRecord(stuck, processingTask.ID()), "recently updated tasks are not stuck")

		require.NoError(t, s.UpdateTaskStatus(ctx, uuid.New(), task.TaskStatusFailed, "gone"), "missing task is a no-op")
	})
}

func containsRecord(records []task.Record, id uuid.UUID) bool {
	for _, r := range records {
		if r.ID == id {
			return true
		}
	}
	return false
}
