// Package events provides types and interfaces for an event-driven architecture.
//
// Services emit events without knowing which handlers will process them. The
// study session emits unit.status_changed when a unit is completed for the
// first time; the ingestion service emits ingestion.requested to hand a
// resource to the background task runner.
//
// The primary components are:
// - Event: an envelope with a type and a JSON payload
// - EventHandler: Interface for components that can handle events
// - EventEmitter: Interface for components that can emit events
package events
