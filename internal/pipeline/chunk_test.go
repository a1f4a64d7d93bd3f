package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDecodeLine(t *testing.T) {
	tests := []struct {
		name        string
		line        string
		wantOK      bool
		wantContent string
		wantContext bool
		wantErr     bool
	}{
		{
			name:        "content chunk",
			line:        `{"object":"chat.completion.chunk","choices":[{"delta":{"content":"Hel"}}]}`,
			wantOK:      true,
			wantContent: "Hel",
		},
		{
			name:        "context chunk",
			line:        `{"object":"chat.completion.chunk","choices":[{"delta":{"context":{"customer_data":{"id":"8"}}}}]}`,
			wantOK:      true,
			wantContext: true,
		},
		{
			name:   "role only chunk",
			line:   `{"object":"chat.completion.chunk","choices":[{"delta":{"role":"assistant"}}]}`,
			wantOK: false,
		},
		{
			name:   "no choices",
			line:   `{"object":"chat.completion.chunk","choices":[]}`,
			wantOK: false,
		},
		{
			name:        "whole answer",
			line:        `{"answer":"done","context":{"citations":[{"content":"c"}]}}`,
			wantOK:      true,
			wantContent: "done",
			wantContext: true,
		},
		{
			name:   "unrelated object",
			line:   `{"status":"ok"}`,
			wantOK: false,
		},
		{
			name:    "not json",
			line:    `hello`,
			wantErr: true,
		},
		{
			name:    "error event",
			line:    `{"error":{"message":"flow crashed","code":500}}`,
			wantErr: true,
		},
		{
			name:    "bad context",
			line:    `{"object":"chat.completion.chunk","choices":[{"delta":{"context":"text"}}]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok, err := decodeLine([]byte(tt.line))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantContent, d.Content)
			assert.Equal(t, tt.wantContext, d.Context != nil)
		})
	}
}

func TestReadChunksSSE(t *testing.T) {
	stream := strings.Join([]string{
		": keep-alive",
		"event: message",
		`data: {"object":"chat.completion.chunk","choices":[{"delta":{"context":{"customer_data":{"id":"8"}}}}]}`,
		"",
		`data: {"object":"chat.completion.chunk","choices":[{"delta":{"content":"Hello"}}]}`,
		"",
		"data: not json",
		"",
		`data: {"object":"chat.completion.chunk","choices":[{"delta":{"content":", world"}}]}`,
		"",
		"data: [DONE]",
		"",
		`data: {"object":"chat.completion.chunk","choices":[{"delta":{"content":"ignored"}}]}`,
		"",
	}, "\n")

	out := make(chan Delta, 16)
	err := readChunks(context.Background(), strings.NewReader(stream), out, zap.NewNop())
	require.NoError(t, err)
	close(out)

	content, contexts, streamErr := collect(t, out)
	require.NoError(t, streamErr)
	assert.Equal(t, "Hello, world", content)
	require.Len(t, contexts, 1)
	assert.Equal(t, "8", contexts[0].CustomerData["id"])
}

func TestReadChunksJSONLinesWithoutTrailingNewline(t *testing.T) {
	stream := `{"object":"chat.completion.chunk","choices":[{"delta":{"content":"a"}}]}` + "\r\n" +
		`{"object":"chat.completion.chunk","choices":[{"delta":{"content":"b"}}]}`

	out := make(chan Delta, 4)
	require.NoError(t, readChunks(context.Background(), strings.NewReader(stream), out, zap.NewNop()))
	close(out)

	content, _, _ := collect(t, out)
	assert.Equal(t, "ab", content)
}

func TestReadChunksCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := make(chan Delta)
	err := readChunks(ctx, strings.NewReader(`{"answer":"x"}`+"\n"), out, zap.NewNop())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadChunksErrorEventFailsStream(t *testing.T) {
	tests := []struct {
		name    string
		event   string
		wantMsg string
	}{
		{name: "object", event: `{"error":{"message":"flow crashed"}}`, wantMsg: "flow crashed"},
		{name: "string", event: `{"error":"out of quota"}`, wantMsg: "out of quota"},
		{name: "other", event: `{"error":{"code":7}}`, wantMsg: `{"code":7}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stream := strings.Join([]string{
				`data: {"object":"chat.completion.chunk","choices":[{"delta":{"content":"Hel"}}]}`,
				"",
				"data: " + tt.event,
				"",
				`data: {"object":"chat.completion.chunk","choices":[{"delta":{"content":"lo"}}]}`,
				"",
			}, "\n")

			out := make(chan Delta, 4)
			err := readChunks(context.Background(), strings.NewReader(stream), out, zap.NewNop())
			require.ErrorIs(t, err, ErrFlowFailed)
			assert.Contains(t, err.Error(), tt.wantMsg)
			close(out)

			content, _, _ := collect(t, out)
			assert.Equal(t, "Hel", content, "nothing after the error event is read")
		})
	}
}

func TestReadChunksWarnsOnMalformedLines(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	stream := "data: not json at all\n\n" +
		`data: {"object":"chat.completion.chunk","choices":[{"delta":{"content":"ok"}}]}` + "\n\n"

	out := make(chan Delta, 4)
	require.NoError(t, readChunks(context.Background(), strings.NewReader(stream), out, zap.New(core)))
	close(out)

	content, _, _ := collect(t, out)
	assert.Equal(t, "ok", content)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Skipping malformed chunk", logs.All()[0].Message)
}
