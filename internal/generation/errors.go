package generation

import "errors"

// Generator implementations wrap one of these.
var (
	// ErrTransientFailure covers rate limits, timeouts and exhausted
	// retries.
	ErrTransientFailure = errors.New("transient error during generation")

	ErrInvalidResponse = errors.New("invalid response from language model")
	ErrContentBlocked  = errors.New("content blocked by language model safety filters")
	ErrInvalidConfig   = errors.New("invalid generator configuration")
	ErrEmptyPrompt     = errors.New("prompt cannot be empty")
)
