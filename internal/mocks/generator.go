package mocks

import (
	"context"
	"strings"
	"sync"

	"github.com/phrazzld/studyloop/internal/generation"
)

// MockGenerator implements generation.Generator for testing. Responses are
// returned in call order; once they run out Response and Err are used.
type MockGenerator struct {
	GenerateFn func(ctx context.Context, req generation.Request) (string, error)

	Responses []string
	Response  string
	Err       error

	mu       sync.Mutex
	requests []generation.Request
}

var _ generation.Generator = (*MockGenerator)(nil)

// Generate implements generation.Generator.
func (m *MockGenerator) Generate(ctx context.Context, req generation.Request) (string, error) {
	m.mu.Lock()
	call := len(m.requests)
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.GenerateFn != nil {
		return m.GenerateFn(ctx, req)
	}
	if call < len(m.Responses) {
		return m.Responses[call], nil
	}
	return m.Response, m.Err
}

// Requests returns a copy of every request received so far.
func (m *MockGenerator) Requests() []generation.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]generation.Request(nil), m.requests...)
}

// CallCount returns how many times Generate was called.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// NewMockGeneratorWithError returns a MockGenerator that always fails with err.
func NewMockGeneratorWithError(err error) *MockGenerator {
	return &MockGenerator{Err: err}
}

// MockGeneratorWithTransientFailure returns a MockGenerator that always
// fails with a retryable error.
func MockGeneratorWithTransientFailure() *MockGenerator {
	return NewMockGeneratorWithError(generation.ErrTransientFailure)
}

// NewRoutingGenerator returns a MockGenerator that answers by prompt
// content: a prompt containing a key of routes gets that key's reply. Keys
// must not overlap. Prompts matching nothing get Response and Err.
func NewRoutingGenerator(routes map[string]string) *MockGenerator {
	m := &MockGenerator{}
	m.GenerateFn = func(_ context.Context, req generation.Request) (string, error) {
		for marker, reply := range routes {
			if strings.Contains(req.Prompt, marker) {
				return reply, nil
			}
		}
		return m.Response, m.Err
	}
	return m
}
