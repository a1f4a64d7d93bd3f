package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const answerSystemPrompt = `You are a customer-support assistant for an outdoor retail store.
Answer the customer's question using the context below. If the context does not
contain the answer, say so.

Context:
%s`

// OpenAIAnswer streams answers straight from an OpenAI-compatible chat
// completion API. It produces content-only deltas; the session context is
// passed to the model as a system message.
type OpenAIAnswer struct {
	client *openai.Client
	model  string
}

// NewOpenAIAnswer creates an answer pipeline for model. baseURL may be empty
// to use the public OpenAI endpoint.
func NewOpenAIAnswer(apiKey, baseURL, model string) *OpenAIAnswer {
	return &OpenAIAnswer{client: newOpenAIClient(apiKey, baseURL), model: model}
}

func newOpenAIClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

var _ AnswerPipeline = (*OpenAIAnswer)(nil)

// Stream implements AnswerPipeline.
func (a *OpenAIAnswer) Stream(ctx context.Context, req *ChatRequest) (<-chan Delta, error) {
	contextJSON, err := json.MarshalIndent(req.Context, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal context: %w", err)
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: fmt.Sprintf(answerSystemPrompt, contextJSON),
	})
	for _, msg := range req.Messages {
		role := openai.ChatMessageRoleAssistant
		if msg.Role == RoleUser {
			role = openai.ChatMessageRoleUser
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}

	stream, err := a.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    a.model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: failed to start stream: %w", err)
	}

	out := make(chan Delta)
	go func() {
		defer close(out)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				emit(ctx, out, Delta{Err: fmt.Errorf("openai: stream failed: %w", err)})
				return
			}
			for _, choice := range resp.Choices {
				if choice.Delta.Content == "" {
					continue
				}
				if !emit(ctx, out, Delta{Content: choice.Delta.Content}) {
					return
				}
			}
		}
	}()
	return out, nil
}

const judgePrompt = `You evaluate answers of a retail customer-support assistant.
Score the answer from 1 (worst) to 5 (best) on each metric:
- groundedness: the answer is supported by the context
- relevance: the answer addresses the question
- coherence: the answer reads naturally and is well organized
- fluency: the answer is grammatically correct

Reply with a JSON object with the keys gpt_groundedness, gpt_relevance,
gpt_coherence, gpt_fluency (integers) and explanation (string).

Chat history:
%s

Question:
%s

Answer:
%s

Context:
%s`

// OpenAIJudge scores answers with an LLM-as-judge prompt and returns the
// model's JSON object as the report.
type OpenAIJudge struct {
	client *openai.Client
	model  string
}

// NewOpenAIJudge creates an evaluator for model.
func NewOpenAIJudge(apiKey, baseURL, model string) *OpenAIJudge {
	return &OpenAIJudge{client: newOpenAIClient(apiKey, baseURL), model: model}
}

var _ Evaluator = (*OpenAIJudge)(nil)

// Evaluate implements Evaluator.
func (j *OpenAIJudge) Evaluate(ctx context.Context, req *EvalRequest) (*Report, error) {
	var history strings.Builder
	for _, msg := range FromFlowHistory(req.ChatHistory) {
		fmt.Fprintf(&history, "%s: %s\n", msg.Role, msg.Content)
	}
	if history.Len() == 0 {
		history.WriteString("(none)\n")
	}

	resp, err := j.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: j.model,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: fmt.Sprintf(judgePrompt, history.String(), req.Question, req.Answer, req.Context),
		}},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai: judge request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: judge returned no choices")
	}
	return NewReport([]byte(resp.Choices[0].Message.Content))
}
