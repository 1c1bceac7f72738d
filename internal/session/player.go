package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/phrazzld/studyloop/internal/domain"
	"github.com/phrazzld/studyloop/internal/events"
)

// Player holds one Session and applies actions to it under a lock. When an
// action completes the unit for the first time, Player publishes a
// unit.status_changed event.
type Player struct {
	mu      sync.Mutex
	session Session
	emitter events.EventEmitter
	logger  *slog.Logger
}

// NewPlayer creates an idle Player. emitter may be nil, in which case
// status changes are not published.
func NewPlayer(emitter events.EventEmitter, logger *slog.Logger) (*Player, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Player{
		emitter: emitter,
		logger:  logger.With("component", "session_player"),
	}, nil
}

// Open starts a fresh session for unit, replacing any current one.
func (p *Player) Open(unit domain.LearningUnit, seed int64) View {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.session = Start(unit, seed)
	p.logger.Debug("unit opened",
		"unit_id", unit.ID,
		"status", unit.Status,
		"items", p.session.ItemCount())
	return p.session.View()
}

// View returns the projection of the current session.
func (p *Player) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session.View()
}

// Session returns the current session value.
func (p *Player) Session() Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

// Select applies Session.Select.
func (p *Player) Select(ctx context.Context, option int) (View, Transition, error) {
	return p.apply(ctx, "select", func(s Session) (Session, Transition) { return s.Select(option) })
}

// SetText applies Session.SetText.
func (p *Player) SetText(ctx context.Context, text string) (View, Transition, error) {
	return p.apply(ctx, "set_text", func(s Session) (Session, Transition) { return s.SetText(text) })
}

// Assign applies Session.Assign.
func (p *Player) Assign(ctx context.Context, left, right string) (View, Transition, error) {
	return p.apply(ctx, "assign", func(s Session) (Session, Transition) { return s.Assign(left, right) })
}

// Unassign applies Session.Unassign.
func (p *Player) Unassign(ctx context.Context, left string) (View, Transition, error) {
	return p.apply(ctx, "unassign", func(s Session) (Session, Transition) { return s.Unassign(left) })
}

// Submit applies Session.Submit.
func (p *Player) Submit(ctx context.Context, answer Answer) (View, Transition, error) {
	return p.apply(ctx, "submit", func(s Session) (Session, Transition) { return s.Submit(answer) })
}

// Advance applies Session.Advance.
func (p *Player) Advance(ctx context.Context) (View, Transition, error) {
	return p.apply(ctx, "advance", Session.Advance)
}

// Retreat applies Session.Retreat.
func (p *Player) Retreat(ctx context.Context) (View, Transition, error) {
	return p.apply(ctx, "retreat", Session.Retreat)
}

// Close discards the current session.
func (p *Player) Close(ctx context.Context) (View, Transition, error) {
	return p.apply(ctx, "close", Session.Close)
}

// apply runs action against the current session. The returned error is
// only set when publishing a status change failed; the new session is kept
// either way. Rejections are reported in the Transition.
func (p *Player) apply(ctx context.Context, name string, action func(Session) (Session, Transition)) (View, Transition, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	next, t := action(p.session)
	if !t.Accepted {
		p.logger.DebugContext(ctx, "action rejected",
			"action", name,
			"unit_id", p.session.unit.ID,
			"index", p.session.index,
			"reason", t.Reason)
		return p.session.View(), t, nil
	}
	p.session = next

	if t.StatusChange == nil {
		return next.View(), t, nil
	}

	change := t.StatusChange
	p.logger.InfoContext(ctx, "unit completed",
		"unit_id", change.Unit.ID,
		"from", change.From,
		"to", change.To,
		"attempted", change.Summary.Attempted,
		"correct", change.Summary.Correct)

	if err := p.publish(ctx, change); err != nil {
		p.logger.ErrorContext(ctx, "failed to publish status change",
			"error", err,
			"unit_id", change.Unit.ID)
		return next.View(), t, err
	}
	return next.View(), t, nil
}

func (p *Player) publish(ctx context.Context, change *StatusChange) error {
	if p.emitter == nil {
		return nil
	}
	event, err := events.NewEvent(events.TypeUnitStatusChanged, events.UnitStatusChanged{
		UnitID:     change.Unit.ID,
		ResourceID: change.Unit.ResourceID,
		From:       string(change.From),
		To:         string(change.To),
		Items:      change.Summary.Items,
		Attempted:  change.Summary.Attempted,
		Correct:    change.Summary.Correct,
	})
	if err != nil {
		return fmt.Errorf("failed to create status change event: %w", err)
	}
	return p.emitter.EmitEvent(ctx, event)
}
