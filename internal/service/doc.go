// Package service contains the application use cases. IngestionService
// accepts uploaded resources and persists what the background ingestion
// produces; StudyService runs live exercise sessions over stored units and
// projects their completion back into storage.
//
// Services depend on the repository interfaces in internal/store, never on
// a specific database, and report failures as sentinel errors or
// *ServiceError values that the API layer maps to status codes.
package service
