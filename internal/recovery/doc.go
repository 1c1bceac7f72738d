// Package recovery extracts JSON values from noisy generative-model output.
//
// Model responses wrap JSON in prose and markdown fences and are sometimes
// cut off mid-object. Extract first tries to parse the outermost bracketed
// span as one value; when that fails it falls back to scanning for
// brace-balanced top-level objects and keeps every one that parses.
package recovery
