package generation

import (
	"context"
)

// Image is one picture attached to a generation request. URL is either a
// remotely fetchable locator or a data: URL carrying the bytes inline.
type Image struct {
	URL      string
	MIMEType string
}

// Request is one prompt sent to the language model.
type Request struct {
	// System is an optional system instruction.
	System string
	// Prompt is the user turn.
	Prompt string
	// Images are sent before the prompt text in the same turn.
	Images []Image
}

// Generator defines the interface for producing raw model text.
// This interface serves as a boundary between the application core and
// external AI/LLM services, following the hexagonal architecture pattern.
// Implementations return the response text with any transport envelope
// removed; parsing that text is the caller's job.
type Generator interface {
	// Generate sends req to the model and returns the response text, or an
	// error wrapping one of the sentinels in errors.go.
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts an ordinary function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

// Generate calls f(ctx, req).
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
