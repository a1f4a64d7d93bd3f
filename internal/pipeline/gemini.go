package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"
)

// GeminiAnswer streams answers from the Gemini API. Like OpenAIAnswer it
// yields content-only deltas and passes the context as a system
// instruction.
type GeminiAnswer struct {
	client *genai.Client
	model  string
}

// NewGeminiAnswer creates an answer pipeline for model.
func NewGeminiAnswer(ctx context.Context, apiKey, model string) (*GeminiAnswer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}
	return &GeminiAnswer{client: client, model: model}, nil
}

var _ AnswerPipeline = (*GeminiAnswer)(nil)

// Stream implements AnswerPipeline.
func (g *GeminiAnswer) Stream(ctx context.Context, req *ChatRequest) (<-chan Delta, error) {
	contextJSON, err := json.MarshalIndent(req.Context, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal context: %w", err)
	}

	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, msg := range req.Messages {
		role := genai.RoleModel
		if msg.Role == RoleUser {
			role = genai.RoleUser
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: fmt.Sprintf(answerSystemPrompt, contextJSON)}},
		},
	}

	out := make(chan Delta)
	go func() {
		defer close(out)

		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, config) {
			if err != nil {
				emit(ctx, out, Delta{Err: fmt.Errorf("gemini: stream failed: %w", err)})
				return
			}
			if resp == nil {
				continue
			}
			for _, candidate := range resp.Candidates {
				if candidate == nil || candidate.Content == nil {
					continue
				}
				for _, part := range candidate.Content.Parts {
					if part == nil || part.Text == "" {
						continue
					}
					if !emit(ctx, out, Delta{Content: part.Text}) {
						return
					}
				}
			}
		}
	}()
	return out, nil
}
