package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/studyloop/internal/api/shared"
	"github.com/phrazzld/studyloop/internal/platform/logger"
	"github.com/phrazzld/studyloop/internal/service"
	"github.com/phrazzld/studyloop/internal/session"
)

// StudySessions is the part of service.StudyService the session endpoints
// use.
type StudySessions interface {
	OpenSession(ctx context.Context, resourceID uuid.UUID, unitID string) (*service.SessionResult, error)
	GetSession(ctx context.Context, id uuid.UUID) (*service.SessionResult, error)
	Select(ctx context.Context, id uuid.UUID, option int) (*service.SessionResult, error)
	SetText(ctx context.Context, id uuid.UUID, text string) (*service.SessionResult, error)
	Assign(ctx context.Context, id uuid.UUID, left, right string) (*service.SessionResult, error)
	Unassign(ctx context.Context, id uuid.UUID, left string) (*service.SessionResult, error)
	Submit(ctx context.Context, id uuid.UUID, answer session.Answer) (*service.SessionResult, error)
	Advance(ctx context.Context, id uuid.UUID) (*service.SessionResult, error)
	Retreat(ctx context.Context, id uuid.UUID) (*service.SessionResult, error)
	CloseSession(ctx context.Context, id uuid.UUID) error
}

var _ StudySessions = (*service.StudyService)(nil)

// SessionHandler serves interactive study sessions. Every action responds
// 200 with the session view; a rejected action has transition.accepted
// false and a reason, and leaves the session unchanged.
type SessionHandler struct {
	sessions StudySessions
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(sessions StudySessions) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// OpenSession handles POST /api/sessions.
func (h *SessionHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req OpenSessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.sessions.OpenSession(r.Context(), req.ResourceID, req.UnitID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	subject, _ := shared.GetSubject(r.Context())
	logger.FromContextOrDefault(r.Context()).Info("study session opened",
		"session_id", res.Session.ID,
		"unit_id", req.UnitID,
		"subject", subject)
	shared.RespondWithJSON(w, r, http.StatusCreated, sessionToResponse(res))
}

// GetSession handles GET /api/sessions/{id}.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, nil, func(ctx context.Context, id uuid.UUID) (*service.SessionResult, error) {
		return h.sessions.GetSession(ctx, id)
	})
}

// Select handles POST /api/sessions/{id}/select.
func (h *SessionHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	h.act(w, r, &req, func(ctx context.Context, id uuid.UUID) (*service.SessionResult, error) {
		return h.sessions.Select(ctx, id, *req.Option)
	})
}

// SetText handles POST /api/sessions/{id}/text.
func (h *SessionHandler) SetText(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	h.act(w, r, &req, func(ctx context.Context, id uuid.UUID) (*service.SessionResult, error) {
		return h.sessions.SetText(ctx, id, req.Text)
	})
}

// Assign handles POST /api/sessions/{id}/assign. An empty right value
// clears the left slot.
func (h *SessionHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	h.act(w, r, &req, func(ctx context.Context, id uuid.UUID) (*service.SessionResult, error) {
		if req.Right == "" {
			return h.sessions.Unassign(ctx, id, req.Left)
		}
		return h.sessions.Assign(ctx, id, req.Left, req.Right)
	})
}

// Unassign handles POST /api/sessions/{id}/unassign.
func (h *SessionHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	h.act(w, r, &req, func(ctx context.Context, id uuid.UUID) (*service.SessionResult, error) {
		return h.sessions.Unassign(ctx, id, req.Left)
	})
}

// Submit handles POST /api/sessions/{id}/submit. The body is optional.
func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req SubmitAnswerRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	h.respond(w, r, func(ctx context.Context) (*service.SessionResult, error) {
		return h.sessions.Submit(ctx, id, req.toAnswer())
	})
}

// Advance handles POST /api/sessions/{id}/advance.
func (h *SessionHandler) Advance(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, nil, func(ctx context.Context, id uuid.UUID) (*service.SessionResult, error) {
		return h.sessions.Advance(ctx, id)
	})
}

// Retreat handles POST /api/sessions/{id}/retreat.
func (h *SessionHandler) Retreat(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, nil, func(ctx context.Context, id uuid.UUID) (*service.SessionResult, error) {
		return h.sessions.Retreat(ctx, id)
	})
}

// CloseSession handles DELETE /api/sessions/{id}.
func (h *SessionHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.sessions.CloseSession(r.Context(), id); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// act parses the session id and, when req is non-nil, the request body,
// then runs call and writes its result.
func (h *SessionHandler) act(
	w http.ResponseWriter,
	r *http.Request,
	req any,
	call func(ctx context.Context, id uuid.UUID) (*service.SessionResult, error),
) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if req != nil && !decodeAndValidate(w, r, req) {
		return
	}
	h.respond(w, r, func(ctx context.Context) (*service.SessionResult, error) {
		return call(ctx, id)
	})
}

func (h *SessionHandler) respond(
	w http.ResponseWriter,
	r *http.Request,
	call func(ctx context.Context) (*service.SessionResult, error),
) {
	res, err := call(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if !res.Transition.Accepted && res.Transition.Reason != nil {
		log := logger.FromContextOrDefault(r.Context())
		if errors.Is(res.Transition.Reason, session.ErrNotActive) {
			log.Info("action on inactive session", "session_id", res.Session.ID)
		} else {
			log.Debug("session action rejected",
				"session_id", res.Session.ID,
				"reason", res.Transition.Reason)
		}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, sessionToResponse(res))
}
