// Package pipeline defines the two external flows the harness talks to:
// the answer-generation pipeline (streamed deltas) and the evaluation
// pipeline (a scoring report). Backends live next to the interfaces: a
// prompt-flow HTTP endpoint, an external command, OpenAI, Gemini and a
// scripted mock.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
)

// Message roles understood by the answer pipeline.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role/content pair of the conversation as the answer
// pipeline sees it.
type Message struct {
	Role    string `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// Context is the structured payload an answer pipeline attaches to a turn.
type Context struct {
	CustomerData map[string]any   `json:"customer_data,omitempty"`
	Citations    []map[string]any `json:"citations,omitempty"`
}

// IsEmpty reports whether the payload carries neither customer data nor
// citations.
func (c *Context) IsEmpty() bool {
	return c == nil || (c.CustomerData == nil && c.Citations == nil)
}

// Orders returns the order records embedded in the customer data.
// Entries that are not JSON objects are skipped.
func (c *Context) Orders() []map[string]any {
	if c == nil || c.CustomerData == nil {
		return nil
	}
	raw, ok := c.CustomerData["orders"].([]any)
	if !ok {
		return nil
	}
	orders := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if order, ok := item.(map[string]any); ok {
			orders = append(orders, order)
		}
	}
	return orders
}

// EvalPayload serializes the context the way the evaluation flow expects
// it: {"customerData": ..., "citations": ...}.
func (c *Context) EvalPayload() (string, error) {
	payload := struct {
		CustomerData map[string]any   `json:"customerData"`
		Citations    []map[string]any `json:"citations"`
	}{}
	if c != nil {
		payload.CustomerData = c.CustomerData
		payload.Citations = c.Citations
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal eval context: %w", err)
	}
	return string(data), nil
}

// Delta is one incremental unit of a streamed answer. A delta may carry a
// content fragment, a context payload, or both. A delta with Err set is the
// last one on its channel and marks the stream as failed.
type Delta struct {
	Content string
	Context *Context
	Err     error
}

// ChatRequest is one call to the answer pipeline.
type ChatRequest struct {
	// Flow is the flow folder configured for the session. Backends that
	// run a local flow use it; remote ones ignore it.
	Flow     string
	Messages []Message
	Context  map[string]any
}

// EvalRequest is one call to the evaluation pipeline.
type EvalRequest struct {
	Flow        string
	ChatHistory []FlowTurn
	Question    string
	Answer      string
	// Context is the JSON string produced by Context.EvalPayload.
	Context string
}

// AnswerPipeline produces a finite, non-restartable stream of deltas for a
// conversation. The returned channel is closed when the stream ends.
// Implementations must stop sending once ctx is done.
type AnswerPipeline interface {
	Stream(ctx context.Context, req *ChatRequest) (<-chan Delta, error)
}

// Evaluator scores one question/answer pair.
type Evaluator interface {
	Evaluate(ctx context.Context, req *EvalRequest) (*Report, error)
}

// emit sends d unless ctx is done first.
func emit(ctx context.Context, out chan<- Delta, d Delta) bool {
	select {
	case out <- d:
		return true
	case <-ctx.Done():
		return false
	}
}
