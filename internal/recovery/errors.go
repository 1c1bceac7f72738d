package recovery

import "errors"

// ErrExtractionFailure is returned when no parseable JSON value exists
// anywhere in the input.
var ErrExtractionFailure = errors.New("no recoverable JSON in model output")
