package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// flowPlaceholder is replaced by the session's flow folder in command args.
const flowPlaceholder = "{flow}"

// Command describes an external program that runs a flow locally, such as
// a small bridge script around the prompt-flow runtime. The request is
// written to its stdin as JSON.
type Command struct {
	Name string
	Args []string
	Dir  string
	// Env is appended to the current process environment.
	Env []string
}

func (c Command) build(ctx context.Context, flow string, stdin []byte) *exec.Cmd {
	args := make([]string, len(c.Args))
	for i, arg := range c.Args {
		args[i] = strings.ReplaceAll(arg, flowPlaceholder, flow)
	}
	cmd := exec.CommandContext(ctx, c.Name, args...)
	if c.Dir != "" {
		cmd.Dir = c.Dir
	}
	cmd.Env = append(os.Environ(), c.Env...)
	if flow != "" {
		cmd.Env = append(cmd.Env, "BENCH_FLOW="+flow)
	}
	cmd.Stdin = bytes.NewReader(stdin)
	return cmd
}

// CommandAnswer runs Command per turn and streams the JSON lines it prints
// on stdout. Each line is a chat.completion.chunk object (or a whole
// {"answer", "context"} object).
type CommandAnswer struct {
	command Command
	logger  *zap.Logger
}

// NewCommandAnswer creates an answer pipeline backed by an external program.
func NewCommandAnswer(command Command, logger *zap.Logger) *CommandAnswer {
	return &CommandAnswer{command: command, logger: logger}
}

var _ AnswerPipeline = (*CommandAnswer)(nil)

// Stream implements AnswerPipeline.
func (c *CommandAnswer) Stream(ctx context.Context, req *ChatRequest) (<-chan Delta, error) {
	input, err := json.Marshal(httpChatRequest{
		Messages: req.Messages,
		Context:  req.Context,
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	cmd := c.command.build(ctx, req.Flow, input)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", c.command.Name, err)
	}
	c.logger.Debug("Started answer flow command",
		zap.String("command", c.command.Name),
		zap.Int("pid", cmd.Process.Pid))

	out := make(chan Delta)
	go func() {
		defer close(out)

		var errOut bytes.Buffer
		var g errgroup.Group
		g.Go(func() error {
			err := readChunks(ctx, stdout, out, c.logger)
			// drain so the child never blocks on a full pipe after [DONE]
			_, _ = io.Copy(io.Discard, stdout)
			return err
		})
		g.Go(func() error {
			_, err := io.Copy(&errOut, stderr)
			return err
		})
		readErr := g.Wait()
		waitErr := cmd.Wait()

		switch {
		case ctx.Err() != nil:
			emit(ctx, out, Delta{Err: ctx.Err()})
		case waitErr != nil:
			emit(ctx, out, Delta{Err: commandError(c.command.Name, waitErr, errOut.String())})
		case readErr != nil:
			emit(ctx, out, Delta{Err: readErr})
		}
	}()
	return out, nil
}

// CommandEvaluator runs Command once per evaluation and parses the JSON
// object it prints on stdout as the report. When stdout holds log lines
// before the report, the last line is used.
type CommandEvaluator struct {
	command Command
}

// NewCommandEvaluator creates an evaluator backed by an external program.
func NewCommandEvaluator(command Command) *CommandEvaluator {
	return &CommandEvaluator{command: command}
}

var _ Evaluator = (*CommandEvaluator)(nil)

// Evaluate implements Evaluator.
func (c *CommandEvaluator) Evaluate(ctx context.Context, req *EvalRequest) (*Report, error) {
	input, err := json.Marshal(newEvalInputs(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	cmd := c.command.build(ctx, req.Flow, input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, commandError(c.command.Name, err, stderr.String())
	}

	output := bytes.TrimSpace(stdout.Bytes())
	if report, err := NewReport(output); err == nil {
		return report, nil
	}
	lines := bytes.Split(output, []byte("\n"))
	return NewReport(lines[len(lines)-1])
}

func commandError(name string, err error, stderr string) error {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return fmt.Errorf("%s failed: %w", name, err)
	}
	return fmt.Errorf("%s failed: %w: %s", name, err, truncate(stderr, 500))
}
