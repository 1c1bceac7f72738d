package store

import (
	"errors"
	"fmt"
)

// Sentinels returned by store implementations. Entity-specific not-found
// errors wrap ErrNotFound, so callers can match either.
var (
	ErrNotFound          = errors.New("entity not found")
	ErrDuplicate         = errors.New("entity already exists")
	ErrInvalidEntity     = errors.New("invalid entity")
	ErrTransactionFailed = errors.New("transaction failed")

	ErrResourceNotFound  = fmt.Errorf("%w: resource", ErrNotFound)
	ErrUnitNotFound      = fmt.Errorf("%w: learning unit", ErrNotFound)
	ErrIngestionNotFound = fmt.Errorf("%w: ingestion", ErrNotFound)
)

// IsNotFoundError reports whether err is, or wraps, ErrNotFound.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
