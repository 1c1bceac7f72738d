package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the application.
const (
	// TypeUnitStatusChanged is emitted when a learning unit moves from todo to done.
	TypeUnitStatusChanged = "unit.status_changed"

	// TypeIngestionRequested is emitted when a resource is queued for ingestion.
	TypeIngestionRequested = "ingestion.requested"
)

// Event is a typed envelope carrying a JSON payload.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type names the event, see the Type constants
	Type string `json:"type"`

	// Payload contains the event-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *Event) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates a new Event with the specified type and payload.
func NewEvent(eventType string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// UnitStatusChanged is the payload of TypeUnitStatusChanged.
type UnitStatusChanged struct {
	UnitID     string    `json:"unit_id"`
	ResourceID uuid.UUID `json:"resource_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Items      int       `json:"items"`
	Attempted  int       `json:"attempted"`
	Correct    int       `json:"correct"`
}

// IngestionRequested is the payload of TypeIngestionRequested.
type IngestionRequested struct {
	IngestionID uuid.UUID `json:"ingestion_id"`
	ResourceID  uuid.UUID `json:"resource_id"`
}

// EventHandler defines an interface for components that can handle events.
// Handlers are responsible for processing events and taking appropriate actions.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *Event) error
}

// EventHandlerFunc adapts a function to the EventHandler interface.
type EventHandlerFunc func(ctx context.Context, event *Event) error

// HandleEvent calls f(ctx, event).
func (f EventHandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *Event) error
}
