package session

import (
	"errors"
	"fmt"

	"copilotbench/internal/config"
)

// Setting names accepted by /config.
const (
	KeyPromptflowFolder = "promptflow_folder"
	KeyEvalFlowFolder   = "eval_flow_folder"
	KeyTestSet          = "test_set"
	KeyCustomerID       = "customer_id"
)

// settingKeys fixes the order settings are listed in.
var settingKeys = []string{KeyPromptflowFolder, KeyEvalFlowFolder, KeyTestSet, KeyCustomerID}

// ErrUnknownSetting is returned when setting a name that is not a setting.
var ErrUnknownSetting = errors.New("unknown config property")

// Setting is one name/value pair.
type Setting struct {
	Key   string
	Value string
}

// Settings is the per-session configuration map. Values are raw text;
// nothing is coerced or validated.
type Settings struct {
	values map[string]string
}

// NewSettings seeds settings from the configured session defaults.
func NewSettings(cfg config.SessionConfig) Settings {
	return Settings{values: map[string]string{
		KeyPromptflowFolder: cfg.PromptflowFolder,
		KeyEvalFlowFolder:   cfg.EvalFlowFolder,
		KeyTestSet:          cfg.TestSet,
		KeyCustomerID:       cfg.CustomerID,
	}}
}

// Get returns the value of a setting.
func (s Settings) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Set replaces the value of an existing setting.
func (s *Settings) Set(key, value string) error {
	if _, ok := s.values[key]; !ok {
		return fmt.Errorf("%w `%s`", ErrUnknownSetting, key)
	}
	s.values[key] = value
	return nil
}

// Entries lists all settings in display order.
func (s Settings) Entries() []Setting {
	entries := make([]Setting, 0, len(settingKeys))
	for _, key := range settingKeys {
		entries = append(entries, Setting{Key: key, Value: s.values[key]})
	}
	return entries
}

func (s Settings) PromptflowFolder() string { return s.values[KeyPromptflowFolder] }
func (s Settings) EvalFlowFolder() string   { return s.values[KeyEvalFlowFolder] }
func (s Settings) TestSet() string          { return s.values[KeyTestSet] }
func (s Settings) CustomerID() string       { return s.values[KeyCustomerID] }
