package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/studyloop/internal/events"
	"github.com/phrazzld/studyloop/internal/session"
	"github.com/phrazzld/studyloop/internal/store"
)

// SessionInfo identifies a live study session.
type SessionInfo struct {
	ID         uuid.UUID `json:"id"`
	ResourceID uuid.UUID `json:"resource_id"`
	UnitID     string    `json:"unit_id"`
	OpenedAt   time.Time `json:"opened_at"`
}

// SessionResult is what every session action returns.
type SessionResult struct {
	Session    SessionInfo
	View       session.View
	Transition session.Transition
}

type liveSession struct {
	info   SessionInfo
	player *session.Player
}

// StudyService keeps live exercise sessions in memory. Each session plays
// one learning unit; completing it publishes a unit.status_changed event
// through the emitter.
type StudyService struct {
	units   store.UnitStore
	emitter events.EventEmitter
	logger  *slog.Logger
	now     func() time.Time
	seed    func() int64

	mu       sync.Mutex
	sessions map[uuid.UUID]*liveSession
}

// NewStudyService creates a StudyService.
func NewStudyService(units store.UnitStore, emitter events.EventEmitter, logger *slog.Logger) (*StudyService, error) {
	if units == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "unit store cannot be nil"}
	}
	if emitter == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "event emitter cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &StudyService{
		units:    units,
		emitter:  emitter,
		logger:   logger.With("component", "study_service"),
		now:      time.Now,
		seed:     func() int64 { return rand.Int63() },
		sessions: make(map[uuid.UUID]*liveSession),
	}, nil
}

// OpenSession loads a unit and starts a fresh session over it. Opening a
// unit that is already done starts over without changing its status.
func (s *StudyService) OpenSession(ctx context.Context, resourceID uuid.UUID, unitID string) (*SessionResult, error) {
	unit, err := s.units.GetByID(ctx, resourceID, unitID)
	if err != nil {
		return nil, NewServiceError("open_session", "failed to load unit", err)
	}

	player, err := session.NewPlayer(s.emitter, s.logger)
	if err != nil {
		return nil, NewServiceError("open_session", "failed to create player", err)
	}

	live := &liveSession{
		info: SessionInfo{
			ID:         uuid.New(),
			ResourceID: resourceID,
			UnitID:     unitID,
			OpenedAt:   s.now().UTC(),
		},
		player: player,
	}
	view := player.Open(*unit, s.seed())

	s.mu.Lock()
	s.sessions[live.info.ID] = live
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "study session opened",
		"session_id", live.info.ID,
		"resource_id", resourceID,
		"unit_id", unitID,
		"items", view.ItemCount)
	return &SessionResult{Session: live.info, View: view, Transition: session.Transition{Accepted: true}}, nil
}

// GetSession returns the current view of a session.
func (s *StudyService) GetSession(_ context.Context, id uuid.UUID) (*SessionResult, error) {
	live, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return &SessionResult{Session: live.info, View: live.player.View(), Transition: session.Transition{Accepted: true}}, nil
}

// Select picks a choice option.
func (s *StudyService) Select(ctx context.Context, id uuid.UUID, option int) (*SessionResult, error) {
	return s.act(ctx, id, "select", func(p *session.Player) (session.View, session.Transition, error) {
		return p.Select(ctx, option)
	})
}

// SetText stores a text answer draft.
func (s *StudyService) SetText(ctx context.Context, id uuid.UUID, text string) (*SessionResult, error) {
	return s.act(ctx, id, "set_text", func(p *session.Player) (session.View, session.Transition, error) {
		return p.SetText(ctx, text)
	})
}

// Assign places a right value on a matching left.
func (s *StudyService) Assign(ctx context.Context, id uuid.UUID, left, right string) (*SessionResult, error) {
	return s.act(ctx, id, "assign", func(p *session.Player) (session.View, session.Transition, error) {
		return p.Assign(ctx, left, right)
	})
}

// Unassign clears a matching left.
func (s *StudyService) Unassign(ctx context.Context, id uuid.UUID, left string) (*SessionResult, error) {
	return s.act(ctx, id, "unassign", func(p *session.Player) (session.View, session.Transition, error) {
		return p.Unassign(ctx, left)
	})
}

// Submit grades the current item.
func (s *StudyService) Submit(ctx context.Context, id uuid.UUID, answer session.Answer) (*SessionResult, error) {
	return s.act(ctx, id, "submit", func(p *session.Player) (session.View, session.Transition, error) {
		return p.Submit(ctx, answer)
	})
}

// Advance moves to the next item, completing the unit after the last.
func (s *StudyService) Advance(ctx context.Context, id uuid.UUID) (*SessionResult, error) {
	return s.act(ctx, id, "advance", func(p *session.Player) (session.View, session.Transition, error) {
		return p.Advance(ctx)
	})
}

// Retreat moves back one item.
func (s *StudyService) Retreat(ctx context.Context, id uuid.UUID) (*SessionResult, error) {
	return s.act(ctx, id, "retreat", func(p *session.Player) (session.View, session.Transition, error) {
		return p.Retreat(ctx)
	})
}

// CloseSession discards a session.
func (s *StudyService) CloseSession(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	live, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	if _, _, err := live.player.Close(ctx); err != nil {
		return NewServiceError("close_session", "failed to close session", err)
	}

	s.logger.InfoContext(ctx, "study session closed", "session_id", id)
	return nil
}

func (s *StudyService) evict(ctx context.Context, id uuid.UUID) {
	s.mu.Lock()
	delete(s.sessions, id)
	remaining := len(s.sessions)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "study session completed",
		"session_id", id,
		"live_sessions", remaining)
}

// SessionCount returns how many sessions are live.
func (s *StudyService) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *StudyService) lookup(id uuid.UUID) (*liveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	live, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return live, nil
}

// act applies an action to a live session. A session that completes is
// removed once the result is built. When recording the unit's completion
// fails, the result is returned together with the error.
func (s *StudyService) act(
	ctx context.Context,
	id uuid.UUID,
	name string,
	action func(*session.Player) (session.View, session.Transition, error),
) (*SessionResult, error) {
	live, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	view, tr, err := action(live.player)
	result := &SessionResult{Session: live.info, View: view, Transition: tr}
	if tr.Completed {
		s.evict(ctx, id)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to record unit completion",
			"error", err,
			"session_id", id,
			"action", name)
		return result, NewServiceError(name, "failed to record unit completion",
			fmt.Errorf("%w: %w", ErrCompletionNotRecorded, err))
	}
	return result, nil
}
