package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Report is the scoring report returned by an evaluation flow. It is kept
// as the raw JSON the flow produced so it can be rendered verbatim.
type Report struct {
	raw json.RawMessage
}

// NewReport wraps a JSON document returned by an evaluator.
func NewReport(data []byte) (*Report, error) {
	data = bytes.TrimSpace(data)
	if !json.Valid(data) {
		return nil, fmt.Errorf("evaluation report is not valid JSON: %q", truncate(string(data), 200))
	}
	return &Report{raw: append(json.RawMessage(nil), data...)}, nil
}

// JSON returns the report as produced by the evaluator.
func (r *Report) JSON() []byte {
	if r == nil {
		return nil
	}
	return r.raw
}

// Scores decodes the report into a generic map. Reports that are not JSON
// objects yield an error.
func (r *Report) Scores() (map[string]any, error) {
	var scores map[string]any
	if err := json.Unmarshal(r.JSON(), &scores); err != nil {
		return nil, fmt.Errorf("evaluation report is not an object: %w", err)
	}
	return scores, nil
}

// YAML renders the report as block YAML, keeping the evaluator's key order.
func (r *Report) YAML() (string, error) {
	return JSONToYAML(r.JSON())
}

// ToYAML renders v as block YAML using its JSON field names.
func ToYAML(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal value: %w", err)
	}
	return JSONToYAML(data)
}

// JSONToYAML converts a JSON document into block-style YAML. JSON is a
// YAML flow document, so the node tree keeps key order; only the styles
// are reset.
func JSONToYAML(data []byte) (string, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return "", fmt.Errorf("failed to parse JSON as YAML: %w", err)
	}
	resetStyle(&node)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return "", fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to encode YAML: %w", err)
	}
	return buf.String(), nil
}

func resetStyle(node *yaml.Node) {
	node.Style = 0
	for _, child := range node.Content {
		resetStyle(child)
	}
}

// truncate shortens s to at most maxLen runes.
func truncate(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
