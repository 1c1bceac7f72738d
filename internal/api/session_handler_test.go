package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/studyloop/internal/api/shared"
	"github.com/phrazzld/studyloop/internal/domain"
	"github.com/phrazzld/studyloop/internal/events"
	"github.com/phrazzld/studyloop/internal/service"
	"github.com/phrazzld/studyloop/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func studyFixture(t *testing.T) (http.Handler, *memoryUnits) {
	t.Helper()

	units := newMemoryUnits(
		domain.LearningUnit{
			ID: "c1", ResourceID: fixedResourceID, Title: "选择", Status: domain.UnitStatusTodo,
			Kind: domain.KindChoice, Payload: []byte(`[{"question":"几?","options":["一","二","三"],"correct":1}]`),
		},
		domain.LearningUnit{
			ID: "m1", ResourceID: fixedResourceID, Title: "连线", Status: domain.UnitStatusTodo,
			Kind: domain.KindMatching, Payload: []byte(`[{"left":"A","right":"X"},{"left":"B","right":"Y"}]`),
		},
	)

	emitter := events.NewInMemoryEventEmitter(testLogger())
	emitter.RegisterHandler(events.TypeUnitStatusChanged, service.NewUnitStatusProjector(units, testLogger()))

	study, err := service.NewStudyService(units, emitter, testLogger())
	require.NoError(t, err)
	return newTestRouter(nil, study), units
}

func openSession(t *testing.T, router http.Handler, unitID string) SessionResponse {
	t.Helper()
	w := doRequest(t, router, http.MethodPost, "/api/sessions", OpenSessionRequest{ResourceID: fixedResourceID, UnitID: unitID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeBody[SessionResponse](t, w)
}

func sessionPath(id uuid.UUID, action string) string {
	if action == "" {
		return "/api/sessions/" + id.String()
	}
	return fmt.Sprintf("/api/sessions/%s/%s", id, action)
}

func TestSessionHandler_ChoiceFlow(t *testing.T) {
	t.Parallel()

	router, units := studyFixture(t)
	opened := openSession(t, router, "c1")

	assert.Equal(t, session.StateActive, opened.View.State)
	assert.Equal(t, domain.KindChoice, opened.View.Kind)
	assert.Equal(t, []string{"一", "二", "三"}, opened.View.Options)
	assert.True(t, opened.Transition.Accepted)

	w := doRequest(t, router, http.MethodPost, sessionPath(opened.ID, "advance"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	rejected := decodeBody[SessionResponse](t, w)
	assert.False(t, rejected.Transition.Accepted)
	assert.Equal(t, session.ErrSubmissionRejected.Error(), rejected.Transition.Reason)
	assert.Equal(t, 0, rejected.View.Index)

	w = doRequest(t, router, http.MethodPost, sessionPath(opened.ID, "select"), map[string]int{"option": 1})
	require.Equal(t, http.StatusOK, w.Code)
	selected := decodeBody[SessionResponse](t, w)
	require.True(t, selected.Transition.Accepted)
	require.NotNil(t, selected.View.Result)
	assert.True(t, selected.View.Result.Correct)

	w = doRequest(t, router, http.MethodPost, sessionPath(opened.ID, "advance"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	done := decodeBody[SessionResponse](t, w)
	assert.True(t, done.Transition.Completed)
	assert.Equal(t, &StatusChangeResponse{From: domain.UnitStatusTodo, To: domain.UnitStatusDone}, done.Transition.StatusChanged)
	assert.Equal(t, session.StateCompleted, done.View.State)
	assert.Equal(t, domain.UnitStatusDone, units.status(fixedResourceID, "c1"))

	w = doRequest(t, router, http.MethodGet, sessionPath(opened.ID, ""), nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "completion discards the session")
	assert.Equal(t, "Study session not found", decodeBody[shared.ErrorResponse](t, w).Error)

	w = doRequest(t, router, http.MethodDelete, sessionPath(opened.ID, ""), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionHandler_MatchingFlow(t *testing.T) {
	t.Parallel()

	router, _ := studyFixture(t)
	opened := openSession(t, router, "m1")
	assert.Equal(t, []string{"A", "B"}, opened.View.Lefts)
	assert.ElementsMatch(t, []string{"X", "Y"}, opened.View.Pool)

	w := doRequest(t, router, http.MethodPost, sessionPath(opened.ID, "assign"), AssignRequest{Left: "A", Right: "Y"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]string{"A": "Y"}, decodeBody[SessionResponse](t, w).View.Assignments)

	w = doRequest(t, router, http.MethodPost, sessionPath(opened.ID, "assign"), AssignRequest{Left: "A"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeBody[SessionResponse](t, w).View.Assignments, "an empty right clears the slot")

	w = doRequest(t, router, http.MethodPost, sessionPath(opened.ID, "assign"), AssignRequest{Left: "Q", Right: "X"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, session.ErrUnknownLeft.Error(), decodeBody[SessionResponse](t, w).Transition.Reason)

	w = doRequest(t, router, http.MethodPost, sessionPath(opened.ID, "submit"), SubmitAnswerRequest{
		Assignments: map[string]string{"A": "X", "B": "Y"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	submitted := decodeBody[SessionResponse](t, w)
	require.True(t, submitted.Transition.Accepted, submitted.Transition.Reason)
	assert.True(t, submitted.View.Result.Correct)
	assert.Equal(t, 2, submitted.View.Result.CorrectPairs)

	w = doRequest(t, router, http.MethodPost, sessionPath(opened.ID, "retreat"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, session.ErrNoPreviousItem.Error(), decodeBody[SessionResponse](t, w).Transition.Reason)

	w = doRequest(t, router, http.MethodDelete, sessionPath(opened.ID, ""), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(t, router, http.MethodGet, sessionPath(opened.ID, ""), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionHandler_SubmitWithoutBodyUsesDraft(t *testing.T) {
	t.Parallel()

	router, _ := studyFixture(t)
	opened := openSession(t, router, "m1")

	w := doRequest(t, router, http.MethodPost, sessionPath(opened.ID, "submit"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, session.ErrAnswerIncomplete.Error(), decodeBody[SessionResponse](t, w).Transition.Reason)

	doRequest(t, router, http.MethodPost, sessionPath(opened.ID, "assign"), AssignRequest{Left: "A", Right: "X"})
	doRequest(t, router, http.MethodPost, sessionPath(opened.ID, "assign"), AssignRequest{Left: "B", Right: "Y"})

	w = doRequest(t, router, http.MethodPost, sessionPath(opened.ID, "submit"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeBody[SessionResponse](t, w).View.Result.Correct)
}

func TestSessionHandler_RequestErrors(t *testing.T) {
	t.Parallel()

	router, _ := studyFixture(t)
	opened := openSession(t, router, "c1")

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantMsg    string
	}{
		{
			name: "unknown unit", method: http.MethodPost, path: "/api/sessions",
			body:       OpenSessionRequest{ResourceID: fixedResourceID, UnitID: "nope"},
			wantStatus: http.StatusNotFound, wantMsg: "Learning unit not found",
		},
		{
			name: "missing unit id", method: http.MethodPost, path: "/api/sessions",
			body:       map[string]string{"resource_id": fixedResourceID.String()},
			wantStatus: http.StatusBadRequest, wantMsg: "Invalid unitid: required field",
		},
		{
			name: "select without option", method: http.MethodPost, path: sessionPath(opened.ID, "select"),
			body:       map[string]any{},
			wantStatus: http.StatusBadRequest, wantMsg: "Invalid option: required field",
		},
		{
			name: "negative option", method: http.MethodPost, path: sessionPath(opened.ID, "select"),
			body:       map[string]int{"option": -1},
			wantStatus: http.StatusBadRequest, wantMsg: "Invalid option: too small",
		},
		{
			name: "unknown session", method: http.MethodPost, path: sessionPath(uuid.New(), "advance"),
			wantStatus: http.StatusNotFound, wantMsg: "Study session not found",
		},
		{
			name: "malformed session id", method: http.MethodPost, path: "/api/sessions/abc/advance",
			wantStatus: http.StatusBadRequest, wantMsg: "Invalid id",
		},
		{
			name: "close unknown session", method: http.MethodDelete, path: sessionPath(uuid.New(), ""),
			wantStatus: http.StatusNotFound, wantMsg: "Study session not found",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			w := doRequest(t, router, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Equal(t, tc.wantMsg, decodeBody[shared.ErrorResponse](t, w).Error)
		})
	}
}

// failingSessions reports a completion that could not be recorded.
type failingSessions struct {
	StudySessions
}

func (failingSessions) Advance(_ context.Context, id uuid.UUID) (*service.SessionResult, error) {
	res := &service.SessionResult{Session: service.SessionInfo{ID: id}}
	return res, &service.ServiceError{
		Operation: "advance",
		Message:   "failed to record unit completion",
		Err:       fmt.Errorf("%w: %w", service.ErrCompletionNotRecorded, errors.New("projector down")),
	}
}

func TestSessionHandler_CompletionNotRecorded(t *testing.T) {
	t.Parallel()

	router := newTestRouter(nil, failingSessions{})
	w := doRequest(t, router, http.MethodPost, sessionPath(uuid.New(), "advance"), nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to record unit completion", decodeBody[shared.ErrorResponse](t, w).Error)
	assert.NotContains(t, w.Body.String(), "projector")
}
