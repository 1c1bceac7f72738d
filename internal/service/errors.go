package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/studyloop/internal/store"
)

// Sentinel errors returned by the services. The API layer maps them to
// status codes with errors.Is.
var (
	// ErrResourceNotFound indicates the resource does not exist.
	ErrResourceNotFound = errors.New("resource not found")

	// ErrUnitNotFound indicates the learning unit does not exist.
	ErrUnitNotFound = errors.New("learning unit not found")

	// ErrIngestionNotFound indicates the ingestion does not exist.
	ErrIngestionNotFound = errors.New("ingestion not found")

	// ErrSessionNotFound indicates the study session does not exist or was closed.
	ErrSessionNotFound = errors.New("study session not found")

	// ErrIngestionFinished indicates an ingestion already reached a terminal status.
	ErrIngestionFinished = errors.New("ingestion already finished")

	// ErrCompletionNotRecorded indicates a session completed its unit but
	// publishing the status change failed.
	ErrCompletionNotRecorded = errors.New("unit completion not recorded")

	// ErrInvalidResource indicates the submitted resource failed validation.
	ErrInvalidResource = errors.New("invalid resource")
)

// ServiceError wraps an unexpected failure with the operation it happened in.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "submit_resource")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError wraps err in a ServiceError. Known not-found conditions
// are returned as the matching service sentinel instead, and a nil err
// yields nil.
func NewServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrResourceNotFound), errors.Is(err, store.ErrResourceNotFound):
		return ErrResourceNotFound
	case errors.Is(err, ErrUnitNotFound), errors.Is(err, store.ErrUnitNotFound):
		return ErrUnitNotFound
	case errors.Is(err, ErrIngestionNotFound), errors.Is(err, store.ErrIngestionNotFound):
		return ErrIngestionNotFound
	case errors.Is(err, ErrSessionNotFound):
		return ErrSessionNotFound
	case errors.Is(err, ErrIngestionFinished):
		return ErrIngestionFinished
	}

	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
