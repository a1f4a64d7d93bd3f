package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HTTPAnswer streams answers from a deployed flow endpoint. The endpoint
// receives {"messages", "context", "stream": true} and replies with SSE
// chat.completion.chunk events (or JSON lines of the same shape).
type HTTPAnswer struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPAnswer creates an answer pipeline bound to endpoint. A zero
// timeout means no client-side timeout.
func NewHTTPAnswer(endpoint, apiKey string, timeout time.Duration, logger *zap.Logger) *HTTPAnswer {
	return &HTTPAnswer{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

var _ AnswerPipeline = (*HTTPAnswer)(nil)

type httpChatRequest struct {
	Messages []Message      `json:"messages"`
	Context  map[string]any `json:"context"`
	Stream   bool           `json:"stream"`
}

// Stream implements AnswerPipeline.
func (a *HTTPAnswer) Stream(ctx context.Context, req *ChatRequest) (<-chan Delta, error) {
	body, err := json.Marshal(httpChatRequest{
		Messages: req.Messages,
		Context:  req.Context,
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := postJSON(ctx, a.httpClient, a.endpoint, a.apiKey, body, "text/event-stream")
	if err != nil {
		return nil, err
	}

	out := make(chan Delta)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		if err := readChunks(ctx, resp.Body, out, a.logger); err != nil {
			emit(ctx, out, Delta{Err: err})
		}
	}()
	return out, nil
}

// HTTPEvaluator posts evaluation inputs to a deployed evaluation flow and
// returns its JSON response as the report.
type HTTPEvaluator struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPEvaluator creates an evaluator bound to endpoint.
func NewHTTPEvaluator(endpoint, apiKey string, timeout time.Duration) *HTTPEvaluator {
	return &HTTPEvaluator{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

var _ Evaluator = (*HTTPEvaluator)(nil)

// evalInputs is the flow input document shared by the HTTP and command
// evaluators.
type evalInputs struct {
	ChatHistory []FlowTurn `json:"chat_history"`
	Question    string     `json:"question"`
	Answer      string     `json:"answer"`
	Context     string     `json:"context"`
}

func newEvalInputs(req *EvalRequest) evalInputs {
	history := req.ChatHistory
	if history == nil {
		history = []FlowTurn{}
	}
	return evalInputs{
		ChatHistory: history,
		Question:    req.Question,
		Answer:      req.Answer,
		Context:     req.Context,
	}
}

// Evaluate implements Evaluator.
func (e *HTTPEvaluator) Evaluate(ctx context.Context, req *EvalRequest) (*Report, error) {
	body, err := json.Marshal(newEvalInputs(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := postJSON(ctx, e.httpClient, e.endpoint, e.apiKey, body, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return NewReport(data)
}

func postJSON(ctx context.Context, client *http.Client, endpoint, apiKey string, body []byte, accept string) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", accept)
	if apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("flow endpoint error [%d]: %s", resp.StatusCode, truncate(string(respBody), 500))
	}
	return resp, nil
}
