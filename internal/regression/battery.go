// Package regression replays a whole test corpus headlessly. A battery
// selects the test cases to run; each one is replayed on a fresh session
// and its answer scored by the evaluation pipeline.
package regression

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"copilotbench/internal/command"
	"copilotbench/internal/config"
	"copilotbench/internal/harness"
	"copilotbench/internal/session"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Battery selects and bounds a corpus run.
type Battery struct {
	Version int `yaml:"version"`
	// Tests lists test numbers to run in order. Empty means every test
	// case in the corpus.
	Tests      []int `yaml:"tests,omitempty"`
	TimeoutSec int   `yaml:"timeout_sec,omitempty"`
	// FailFast stops at the first failing test case.
	FailFast bool `yaml:"fail_fast,omitempty"`
}

// Result captures the outcome of one replayed test case.
type Result struct {
	Number     int            `yaml:"number"`
	Question   string         `yaml:"question,omitempty"`
	Success    bool           `yaml:"success"`
	Answer     string         `yaml:"answer,omitempty"`
	Scores     map[string]any `yaml:"scores,omitempty"`
	Error      string         `yaml:"error,omitempty"`
	DurationMs int64          `yaml:"duration_ms"`
}

// DefaultBatteryPath is where the CLI looks for a battery file.
const DefaultBatteryPath = ".bench/battery.yaml"

// LoadBattery reads a YAML battery file. A missing file is an empty
// battery that runs the whole corpus.
func LoadBattery(path string) (*Battery, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Battery{Version: 1}, nil
		}
		return nil, err
	}
	var b Battery
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse battery YAML: %w", err)
	}
	return &b, nil
}

// Runner replays test cases through a harness.
type Runner struct {
	harness *harness.Harness
	session config.SessionConfig
	logger  *zap.Logger
}

// NewRunner creates a runner whose sessions start from cfg.
func NewRunner(h *harness.Harness, cfg config.SessionConfig, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{harness: h, session: cfg, logger: logger}
}

// Run executes the battery in order. It fails only when the corpus cannot
// be read; test case failures are reported in the results.
func (r *Runner) Run(ctx context.Context, b *Battery) ([]Result, error) {
	entries, err := r.harness.Store(r.session.TestSet).Load()
	if err != nil {
		return nil, err
	}

	numbers := b.Tests
	if len(numbers) == 0 {
		numbers = make([]int, len(entries))
		for i := range entries {
			numbers[i] = i + 1
		}
	}

	results := make([]Result, 0, len(numbers))
	for _, n := range numbers {
		if ctx.Err() != nil {
			break
		}
		start := time.Now()
		res := r.runOne(ctx, n, b.TimeoutSec)
		res.DurationMs = time.Since(start).Milliseconds()
		results = append(results, res)

		r.logger.Info("Test case replayed",
			zap.Int("number", n),
			zap.Bool("success", res.Success),
			zap.Int64("duration_ms", res.DurationMs))

		if b.FailFast && !res.Success {
			break
		}
	}
	return results, nil
}

func (r *Runner) runOne(ctx context.Context, number, timeoutSec int) Result {
	res := Result{Number: number}
	if timeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeoutSec)*time.Second)
		defer cancel()
	}

	h := r.harness
	s := session.New(r.session)
	rec, err := h.SelectTest(s, command.TestArg{Number: number, Raw: strconv.Itoa(number)})
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Question = rec.Question

	h.BeginReplay(s, rec)
	var answer string
	err = h.RunTurn(ctx, s, rec.Question, harness.ReplayContext(rec), func(v harness.View) {
		if v.Author == harness.AuthorAssistant {
			answer = v.Content
		}
	})
	res.Answer = answer
	if err != nil {
		res.Error = err.Error()
		return res
	}

	req, err := h.PrepareEval(s)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	report, err := h.Score(ctx, req)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	scores, err := report.Scores()
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Scores = scores
	res.Success = true
	return res
}

// Summary counts passed and failed results.
func Summary(results []Result) (passed, failed int) {
	for _, res := range results {
		if res.Success {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed
}

// WriteResults saves results as YAML, creating the directory if needed.
func WriteResults(path string, results []Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}
	data, err := yaml.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
