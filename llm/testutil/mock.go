// Package testutil holds fakes for code that talks to the LLM client.
package testutil

import (
	"context"
	"slices"
	"sync"

	"github.com/draftforge/draftforge/llm"
)

// MockLLMClient is a canned llm.Completer for stage tests. It hands out
// Responses in order, then empty responses once the list runs out, and
// records every request it sees:
//
//	mock := &testutil.MockLLMClient{
//		Responses: []*llm.Response{
//			{Content: `{"title": "How to Descale a Kettle"}`, Model: "test-model"},
//		},
//	}
//
// Err, when set, is returned from every call instead.
type MockLLMClient struct {
	Responses []*llm.Response
	Err       error

	mu       sync.Mutex
	requests []llm.Request
	calls    int
}

// Complete records req and returns the next canned response, or Err.
func (m *MockLLMClient) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	m.calls++

	if m.Err != nil {
		return nil, m.Err
	}
	if i := m.calls - 1; i < len(m.Responses) {
		return m.Responses[i], nil
	}
	return &llm.Response{Model: "test-model"}, nil
}

// GetCallCount reports how many times Complete ran.
func (m *MockLLMClient) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// GetRequests returns a copy of every request seen so far.
func (m *MockLLMClient) GetRequests() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.requests)
}
