// Package gemini implements generation.Generator on top of the Gemini API.
//
// A call sends the system instruction, the page images and the prompt as a
// single user turn and returns the raw response text. Turning that text into
// JSON is the recovery package's job.
//
// Rate limits, timeouts and 5xx responses are retried with exponential
// backoff and jitter. Empty responses and safety blocks fail immediately
// with generation.ErrInvalidResponse or generation.ErrContentBlocked.
package gemini
