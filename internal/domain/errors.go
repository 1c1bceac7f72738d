package domain

import "errors"

// Errors shared across entities. Entity-specific validation errors live
// next to their types.
var (
	ErrValidation             = errors.New("validation failed")
	ErrInvalidID              = errors.New("invalid ID")
	ErrInvalidPayload         = errors.New("invalid unit payload")
	ErrInvalidUnitStatus      = errors.New("invalid unit status")
	ErrInvalidIngestionStatus = errors.New("invalid ingestion status")
	ErrUnauthorized           = errors.New("unauthorized operation")
)
