// Package config loads the harness configuration from a YAML file with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is where the CLI looks for its configuration when no
// --config flag is given.
const DefaultConfigPath = ".bench/config.yaml"

// Config holds all copilotbench configuration.
type Config struct {
	// Session seeds the per-conversation settings that /config edits.
	Session SessionConfig `yaml:"session"`

	// Answer and Eval select the pipeline backends.
	Answer PipelineConfig `yaml:"answer"`
	Eval   PipelineConfig `yaml:"eval"`

	UI      UIConfig      `yaml:"ui"`
	Logging LoggingConfig `yaml:"logging"`
}

// SessionConfig holds the initial values of a session's settings.
type SessionConfig struct {
	PromptflowFolder string `yaml:"promptflow_folder"`
	EvalFlowFolder   string `yaml:"eval_flow_folder"`
	TestSet          string `yaml:"test_set"`
	CustomerID       string `yaml:"customer_id"`
}

// UIConfig configures the terminal UI.
type UIConfig struct {
	Theme    string `yaml:"theme"` // auto, light, dark
	WordWrap int    `yaml:"word_wrap"`
	// DebugViews shows the request dump and the "download as testcase"
	// view around every chat turn.
	DebugViews bool `yaml:"debug_views"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Session: SessionConfig{
			PromptflowFolder: "./rag_flow",
			EvalFlowFolder:   "./eval_flow",
			TestSet:          "data/testdata.jsonl",
			CustomerID:       "8",
		},
		Answer: PipelineConfig{Kind: KindMock},
		Eval:   PipelineConfig{Kind: KindMock},
		UI: UIConfig{
			Theme:      "auto",
			WordWrap:   100,
			DebugViews: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			File:   ".bench/logs/bench.log",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("BENCH_CUSTOMER_ID"); v != "" {
		c.Session.CustomerID = v
	}
	if v := os.Getenv("BENCH_TEST_SET"); v != "" {
		c.Session.TestSet = v
	}

	if url := os.Getenv("BENCH_ANSWER_URL"); url != "" {
		c.Answer.Kind = KindHTTP
		c.Answer.URL = url
	}
	if url := os.Getenv("BENCH_EVAL_URL"); url != "" {
		c.Eval.Kind = KindHTTP
		c.Eval.URL = url
	}

	for _, p := range []*PipelineConfig{&c.Answer, &c.Eval} {
		if p.APIKey != "" {
			continue
		}
		switch p.Kind {
		case KindOpenAI:
			p.APIKey = os.Getenv("OPENAI_API_KEY")
		case KindGemini:
			p.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Session.TestSet == "" {
		return fmt.Errorf("session.test_set must not be empty")
	}
	if err := c.Answer.validate("answer", AnswerKinds); err != nil {
		return err
	}
	if err := c.Eval.validate("eval", EvalKinds); err != nil {
		return err
	}
	if !slices.Contains([]string{"", "auto", "light", "dark"}, c.UI.Theme) {
		return fmt.Errorf("invalid ui.theme: %s (valid: auto, light, dark)", c.UI.Theme)
	}
	return nil
}
