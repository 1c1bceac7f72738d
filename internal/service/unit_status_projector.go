package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/studyloop/internal/domain"
	"github.com/phrazzld/studyloop/internal/events"
	"github.com/phrazzld/studyloop/internal/store"
)

// UnitStatusProjector persists the status carried by unit.status_changed
// events.
type UnitStatusProjector struct {
	units  store.UnitStore
	logger *slog.Logger
}

var _ events.EventHandler = (*UnitStatusProjector)(nil)

// NewUnitStatusProjector creates a projector writing to units.
func NewUnitStatusProjector(units store.UnitStore, logger *slog.Logger) *UnitStatusProjector {
	if logger == nil {
		logger = slog.Default()
	}
	return &UnitStatusProjector{
		units:  units,
		logger: logger.With("component", "unit_status_projector"),
	}
}

// HandleEvent implements events.EventHandler.
func (p *UnitStatusProjector) HandleEvent(ctx context.Context, event *events.Event) error {
	if event.Type != events.TypeUnitStatusChanged {
		return nil
	}

	var change events.UnitStatusChanged
	if err := event.UnmarshalPayload(&change); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	status := domain.UnitStatus(change.To)
	if err := p.units.UpdateStatus(ctx, change.ResourceID, change.UnitID, status); err != nil {
		p.logger.ErrorContext(ctx, "failed to persist unit status",
			"error", err,
			"unit_id", change.UnitID,
			"status", status)
		return NewServiceError("project_unit_status", "failed to persist unit status", err)
	}

	p.logger.InfoContext(ctx, "unit status recorded",
		"resource_id", change.ResourceID,
		"unit_id", change.UnitID,
		"from", change.From,
		"to", change.To,
		"attempted", change.Attempted,
		"correct", change.Correct)
	return nil
}
