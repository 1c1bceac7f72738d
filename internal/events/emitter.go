package events

import (
	"context"
	"log/slog"
	"sync"
)

// InMemoryEventEmitter dispatches events synchronously, in registration
// order, to the handlers subscribed to their type.
type InMemoryEventEmitter struct {
	mu       sync.RWMutex
	handlers map[string][]EventHandler
	logger   *slog.Logger
}

// NewInMemoryEventEmitter returns an emitter with no subscriptions.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	return &InMemoryEventEmitter{
		handlers: make(map[string][]EventHandler),
		logger:   logger.With("component", "event_emitter"),
	}
}

// RegisterHandler subscribes handler to eventType.
func (e *InMemoryEventEmitter) RegisterHandler(eventType string, handler EventHandler) {
	e.mu.Lock()
	e.handlers[eventType] = append(e.handlers[eventType], handler)
	count := len(e.handlers[eventType])
	e.mu.Unlock()

	e.logger.Debug("handler subscribed", "event_type", eventType, "handlers", count)
}

// subscribers returns a snapshot so handlers run without holding the lock.
func (e *InMemoryEventEmitter) subscribers(eventType string) []EventHandler {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]EventHandler(nil), e.handlers[eventType]...)
}

// EmitEvent delivers event to every subscriber. A failing handler does not
// stop delivery to the rest; the first failure is returned.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *Event) error {
	handlers := e.subscribers(event.Type)
	log := e.logger.With("event_id", event.ID, "event_type", event.Type)

	if len(handlers) == 0 {
		log.WarnContext(ctx, "event has no subscribers")
		return nil
	}
	log.DebugContext(ctx, "dispatching event", "handlers", len(handlers))

	var firstErr error
	for i, h := range handlers {
		err := h.HandleEvent(ctx, event)
		if err == nil {
			continue
		}
		log.ErrorContext(ctx, "event handler failed", "error", err, "handler_index", i)
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
