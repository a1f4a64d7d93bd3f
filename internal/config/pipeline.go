package config

import (
	"fmt"
	"slices"
	"time"
)

// Pipeline backend kinds.
const (
	KindHTTP    = "http"    // deployed flow endpoint
	KindCommand = "command" // local flow behind an external program
	KindOpenAI  = "openai"  // OpenAI-compatible chat completions
	KindGemini  = "gemini"  // Gemini API
	KindMock    = "mock"    // scripted demo pipeline
)

// AnswerKinds lists the backends usable as an answer pipeline.
var AnswerKinds = []string{KindHTTP, KindCommand, KindOpenAI, KindGemini, KindMock}

// EvalKinds lists the backends usable as an evaluator.
var EvalKinds = []string{KindHTTP, KindCommand, KindOpenAI, KindMock}

// PipelineConfig selects and configures one pipeline backend.
type PipelineConfig struct {
	Kind string `yaml:"kind"`

	// http
	URL string `yaml:"url,omitempty"`

	// http, openai, gemini
	APIKey string `yaml:"api_key,omitempty"`

	// openai, gemini
	Model   string `yaml:"model,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`

	// command; "{flow}" in Args is replaced by the session's flow folder
	Command string   `yaml:"command,omitempty"`
	Args    []string `yaml:"args,omitempty"`
	Dir     string   `yaml:"dir,omitempty"`
	Env     []string `yaml:"env,omitempty"`

	// Timeout bounds one call; empty means no timeout.
	Timeout string `yaml:"timeout,omitempty"`
}

// GetTimeout returns the call timeout, or zero when none is configured or
// the value does not parse.
func (p PipelineConfig) GetTimeout() time.Duration {
	if p.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(p.Timeout)
	if err != nil {
		return 0
	}
	return d
}

func (p PipelineConfig) validate(name string, kinds []string) error {
	if !slices.Contains(kinds, p.Kind) {
		return fmt.Errorf("invalid %s.kind: %q (valid: %v)", name, p.Kind, kinds)
	}
	if p.Timeout != "" {
		if _, err := time.ParseDuration(p.Timeout); err != nil {
			return fmt.Errorf("invalid %s.timeout: %w", name, err)
		}
	}

	switch p.Kind {
	case KindHTTP:
		if p.URL == "" {
			return fmt.Errorf("%s.url is required for kind %s", name, p.Kind)
		}
	case KindCommand:
		if p.Command == "" {
			return fmt.Errorf("%s.command is required for kind %s", name, p.Kind)
		}
	case KindOpenAI, KindGemini:
		if p.APIKey == "" {
			return fmt.Errorf("%s.api_key is required for kind %s (or set the provider's API key variable)", name, p.Kind)
		}
		if p.Model == "" {
			return fmt.Errorf("%s.model is required for kind %s", name, p.Kind)
		}
	}
	return nil
}
