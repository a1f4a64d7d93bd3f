package pipeline

import (
	"context"
	"fmt"
	"sync"
)

// MockAnswer is a scripted answer pipeline for demos and tests. With no
// script it answers every question with a canned reply and a demo
// context for the requested customer.
type MockAnswer struct {
	mu sync.Mutex

	// Chunks are streamed in order as content deltas.
	Chunks []string
	// Context, when set, is streamed before the first chunk.
	Context *Context
	// Err is returned from Stream without starting a stream.
	Err error
	// StreamErr is delivered as the last delta.
	StreamErr error

	requests []*ChatRequest
}

// NewMockAnswer creates an unscripted mock answer pipeline.
func NewMockAnswer() *MockAnswer {
	return &MockAnswer{}
}

var _ AnswerPipeline = (*MockAnswer)(nil)

// Stream implements AnswerPipeline.
func (m *MockAnswer) Stream(ctx context.Context, req *ChatRequest) (<-chan Delta, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	chunks, payload, callErr, streamErr := m.Chunks, m.Context, m.Err, m.StreamErr
	m.mu.Unlock()

	if callErr != nil {
		return nil, callErr
	}
	if chunks == nil {
		chunks = splitIntoChunks(mockReply(req), 12)
		if payload == nil {
			payload = demoContext(req.Context)
		}
	}

	out := make(chan Delta)
	go func() {
		defer close(out)
		if payload != nil && !emit(ctx, out, Delta{Context: payload}) {
			return
		}
		for _, chunk := range chunks {
			if !emit(ctx, out, Delta{Content: chunk}) {
				return
			}
		}
		if streamErr != nil {
			emit(ctx, out, Delta{Err: streamErr})
		}
	}()
	return out, nil
}

// Requests returns the requests received so far.
func (m *MockAnswer) Requests() []*ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*ChatRequest, len(m.requests))
	copy(result, m.requests)
	return result
}

func mockReply(req *ChatRequest) string {
	var question string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == RoleUser {
			question = req.Messages[i].Content
			break
		}
	}
	if question == "" {
		return "[MOCK] This is a mock answer."
	}
	return fmt.Sprintf("[MOCK] You asked: %q. This is a mock answer.", truncate(question, 100))
}

func demoContext(requestContext map[string]any) *Context {
	customerID := fmt.Sprint(requestContext["customerId"])
	return &Context{
		CustomerData: map[string]any{
			"id":        customerID,
			"firstName": "Demo",
			"lastName":  "Customer",
			"email":     "demo.customer@example.com",
			"_rid":      "mock-rid",
			"orders": []any{
				map[string]any{"id": 1, "productId": 7, "quantity": 1, "total": 89.99},
			},
		},
		Citations: []map[string]any{
			{"id": "7", "title": "Trail Walker Hiking Boots", "content": "Waterproof leather boots with a 2-year warranty."},
		},
	}
}

// splitIntoChunks splits s into chunks of at most chunkSize runes.
func splitIntoChunks(s string, chunkSize int) []string {
	runes := []rune(s)
	if len(runes) == 0 {
		return []string{""}
	}
	var chunks []string
	for i := 0; i < len(runes); i += chunkSize {
		end := min(i+chunkSize, len(runes))
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

// MockEvaluator returns a fixed report and records its requests.
type MockEvaluator struct {
	mu sync.Mutex

	Report *Report
	Err    error

	requests []*EvalRequest
}

// NewMockEvaluator creates a mock evaluator with a demo report.
func NewMockEvaluator() *MockEvaluator {
	report, _ := NewReport([]byte(`{"gpt_groundedness": 5, "gpt_relevance": 5, "gpt_coherence": 5, "gpt_fluency": 5}`))
	return &MockEvaluator{Report: report}
}

var _ Evaluator = (*MockEvaluator)(nil)

// Evaluate implements Evaluator.
func (m *MockEvaluator) Evaluate(_ context.Context, req *EvalRequest) (*Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Report, nil
}

// Requests returns the requests received so far.
func (m *MockEvaluator) Requests() []*EvalRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*EvalRequest, len(m.requests))
	copy(result, m.requests)
	return result
}
