package ingest

import "errors"

var (
	// ErrNoPagesIngested is returned when every page of a batch failed.
	ErrNoPagesIngested = errors.New("no pages could be ingested")

	// ErrNoBlocks is recorded for a page whose response held no content blocks.
	ErrNoBlocks = errors.New("model returned no content blocks")

	// ErrNilResource is returned when a pipeline run is started without a resource.
	ErrNilResource = errors.New("resource cannot be nil")
)
