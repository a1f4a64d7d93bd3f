package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

const chunkObject = "chat.completion.chunk"

// ErrFlowFailed is reported when a flow sends an error event in its stream.
var ErrFlowFailed = errors.New("flow reported an error")

// flowLine is the superset of the shapes a flow may print per line: an
// OpenAI style streaming chunk, or a whole non-streamed answer.
type flowLine struct {
	Object  string       `json:"object"`
	Choices []flowChoice `json:"choices"`

	Answer  *string         `json:"answer"`
	Context json.RawMessage `json:"context"`

	Error json.RawMessage `json:"error"`
}

type flowChoice struct {
	Delta struct {
		Content *string         `json:"content"`
		Context json.RawMessage `json:"context"`
	} `json:"delta"`
}

// decodeLine turns one JSON line into a delta. ok is false for lines that
// carry nothing the harness consumes.
func decodeLine(data []byte) (d Delta, ok bool, err error) {
	var line flowLine
	if err := json.Unmarshal(data, &line); err != nil {
		return Delta{}, false, fmt.Errorf("failed to decode chunk: %w", err)
	}
	if msg, failed := errorMessage(line.Error); failed {
		return Delta{}, false, fmt.Errorf("%w: %s", ErrFlowFailed, msg)
	}

	switch {
	case line.Object == chunkObject:
		if len(line.Choices) == 0 {
			return Delta{}, false, nil
		}
		delta := line.Choices[0].Delta
		if delta.Content != nil {
			d.Content = *delta.Content
			ok = true
		}
		payload, err := decodeContext(delta.Context)
		if err != nil {
			return Delta{}, false, err
		}
		if payload != nil {
			d.Context = payload
			ok = true
		}
		return d, ok, nil

	case line.Answer != nil:
		d.Content = *line.Answer
		payload, err := decodeContext(line.Context)
		if err != nil {
			return Delta{}, false, err
		}
		d.Context = payload
		return d, true, nil
	}

	return Delta{}, false, nil
}

// errorMessage extracts the message of an in-band error event. The event
// may be an object with a message, a plain string or anything else.
func errorMessage(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		return obj.Message, true
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil && text != "" {
		return text, true
	}
	return truncate(string(raw), 200), true
}

func decodeContext(raw json.RawMessage) (*Context, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var payload Context
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode context: %w", err)
	}
	return &payload, nil
}

// readChunks reads SSE "data:" lines or bare JSON lines from r and sends
// the decoded deltas on out until EOF or "[DONE]". An error event ends the
// stream with ErrFlowFailed; other malformed lines are logged and skipped.
func readChunks(ctx context.Context, r io.Reader, out chan<- Delta, logger *zap.Logger) error {
	reader := bufio.NewReader(r)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read stream: %w", err)
		}
		eof := err != nil

		line = strings.TrimSpace(line)
		switch {
		case line == "", strings.HasPrefix(line, ":"), strings.HasPrefix(line, "event:"), strings.HasPrefix(line, "id:"):
			// SSE framing
		default:
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return nil
			}
			d, ok, decodeErr := decodeLine([]byte(data))
			switch {
			case errors.Is(decodeErr, ErrFlowFailed):
				return decodeErr
			case decodeErr != nil:
				logger.Warn("Skipping malformed chunk", zap.String("line", truncate(data, 200)), zap.Error(decodeErr))
			case ok && !emit(ctx, out, d):
				return ctx.Err()
			}
		}

		if eof {
			return nil
		}
	}
}
