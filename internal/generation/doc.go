// Package generation defines the boundary between the ingestion pipeline and
// external LLM services. A Generator turns a prompt, optionally with page
// images, into raw response text; the Gemini adapter lives in
// internal/platform/gemini.
package generation
