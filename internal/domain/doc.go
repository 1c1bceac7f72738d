// Package domain holds the study material model: resources and their
// ingestions, the content blocks extracted from them, and the learning units
// with the typed exercise items decoded from unit payloads.
package domain
