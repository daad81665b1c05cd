package llm

import (
	"context"
	"encoding/json"
	"sync"
)

// MockResponse is a canned response for the MockProvider.
type MockResponse struct {
	Content json.RawMessage
	Usage   Usage
	Err     error
}

// MockProvider is a deterministic Provider used by tests and by the "mock"
// provider setting. It returns canned responses in FIFO order, validates
// them against the request schema like a real provider, and records every
// request.
type MockProvider struct {
	mu        sync.Mutex
	responses []MockResponse
	Calls     []Request
}

// NewMockProvider creates a MockProvider with the given canned responses.
func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{responses: responses}
}

// Generate returns the next canned response or ErrProviderUnavailable if
// the queue is empty.
func (m *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)

	if len(m.responses) == 0 {
		return nil, &ErrProviderUnavailable{Err: nil}
	}

	resp := m.responses[0]
	m.responses = m.responses[1:]

	if resp.Err != nil {
		return nil, resp.Err
	}

	content, err := validateResponse(req.Schema, resp.Content)
	if err != nil {
		return nil, err
	}

	return &Response{
		Content:    content,
		Usage:      resp.Usage,
		Model:      "mock",
		StopReason: "end",
	}, nil
}

// ModelID returns "mock".
func (m *MockProvider) ModelID() string {
	return "mock"
}

// AddText queues a successful response with the given body.
func (m *MockProvider) AddText(body string) {
	m.AddResponse(MockResponse{Content: json.RawMessage(body)})
}

// AddError queues a failure.
func (m *MockProvider) AddError(err error) {
	m.AddResponse(MockResponse{Err: err})
}

// LastCall returns the most recent request. It panics when nothing was sent.
func (m *MockProvider) LastCall() Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[len(m.Calls)-1]
}

// AddResponse appends a canned response to the queue.
func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
}

// CallCount returns the number of Generate calls made.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
