package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"copilotbench/cmd/bench/chat"
	"copilotbench/cmd/bench/ui"
	"copilotbench/internal/command"
	"copilotbench/internal/config"
	"copilotbench/internal/harness"
	"copilotbench/internal/logging"
	"copilotbench/internal/pipeline"
	"copilotbench/internal/regression"
	"copilotbench/internal/session"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app is everything a subcommand needs: configuration, loggers, the
// harness and one fresh session.
type app struct {
	cfg     *config.Config
	loggers *logging.Loggers
	harness *harness.Harness
	session *session.Session
}

func newApp(ctx context.Context, toFile bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	loggers, err := logging.New(cfg.Logging, logging.Options{ToFile: toFile, Verbose: verbose})
	if err != nil {
		return nil, err
	}
	boot := loggers.Get(logging.CategoryBoot)

	pipelineLogger := loggers.Get(logging.CategoryPipeline)
	answer, err := pipeline.NewAnswerPipeline(ctx, cfg.Answer, pipelineLogger)
	if err != nil {
		return nil, err
	}
	eval, err := pipeline.NewEvaluator(cfg.Eval)
	if err != nil {
		return nil, err
	}
	boot.Info("Pipelines ready",
		zap.String("config", configPath),
		zap.String("answer", cfg.Answer.Kind),
		zap.String("eval", cfg.Eval.Kind))

	h := harness.New(harness.Options{
		Answer:        answer,
		Eval:          eval,
		AnswerTimeout: cfg.Answer.GetTimeout(),
		EvalTimeout:   cfg.Eval.GetTimeout(),
		DebugViews:    cfg.UI.DebugViews,
		Logger:        loggers.Get(logging.CategorySession),
	})
	return &app{
		cfg:     cfg,
		loggers: loggers,
		harness: h,
		session: session.New(cfg.Session),
	}, nil
}

func (a *app) close() {
	_ = a.loggers.Sync()
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// runChat starts the interactive chat interface
func runChat(cmd *cobra.Command, args []string) error {
	a, err := newApp(context.Background(), true)
	if err != nil {
		return err
	}
	defer a.close()

	corpusLogger := a.loggers.Get(logging.CategoryCorpus)
	watcher, err := a.harness.Store(a.session.Settings.TestSet()).Watch(corpusLogger)
	if err != nil {
		// The footer count then refreshes on commands only.
		corpusLogger.Warn("Corpus watcher unavailable", zap.Error(err))
		watcher = nil
	}

	model := chat.New(chat.Options{
		Harness:  a.harness,
		Session:  a.session,
		Styles:   ui.NewStyles(ui.ThemeFor(a.cfg.UI.Theme)),
		WordWrap: a.cfg.UI.WordWrap,
		Watcher:  watcher,
		Backend:  a.cfg.Answer.Kind,
		Logger:   a.loggers.Get(logging.CategoryUI),
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.close()

	question := strings.Join(args, " ")
	return a.harness.RunTurn(ctx, a.session, question, nil, printer(cmd.OutOrStdout()))
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp(context.Background(), false)
	if err != nil {
		return err
	}
	defer a.close()

	v, err := a.harness.ListTests(a.session)
	if err != nil {
		return err
	}
	printView(cmd.OutOrStdout(), v)
	return nil
}

func runReplay(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.close()

	input := "/test"
	if len(args) == 1 {
		input += " " + args[0]
	}
	c := command.Parse(input)
	return a.harness.Replay(ctx, a.session, c.Test, printer(cmd.OutOrStdout()))
}

func runBattery(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.close()

	battery, err := regression.LoadBattery(batteryPath)
	if err != nil {
		return err
	}
	runner := regression.NewRunner(a.harness, a.cfg.Session, a.loggers.Get(logging.CategorySession))
	results, err := runner.Run(ctx, battery)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, res := range results {
		status := "PASS"
		if !res.Success {
			status = "FAIL"
		}
		fmt.Fprintf(out, "#%d %s %dms %s\n", res.Number, status, res.DurationMs, res.Question)
		if res.Error != "" {
			fmt.Fprintf(out, "    %s\n", strings.ReplaceAll(res.Error, "\n", "\n    "))
		}
	}
	passed, failed := regression.Summary(results)
	fmt.Fprintf(out, "%d passed, %d failed\n", passed, failed)

	if resultsPath != "" {
		if err := regression.WriteResults(resultsPath, results); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d test cases failed", failed, len(results))
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("%s already exists", configPath)
	}
	if err := config.DefaultConfig().Save(configPath); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)
	return nil
}

func printer(w io.Writer) func(harness.View) {
	return func(v harness.View) { printView(w, v) }
}

// printView writes v as plain markdown. Details are indented under their
// parent.
func printView(w io.Writer, v harness.View) {
	indent := ""
	if v.IsDetail() {
		indent = "    "
	} else {
		fmt.Fprintf(w, "[%s]\n", v.Author)
	}
	for _, line := range strings.Split(strings.TrimRight(v.Content, "\n"), "\n") {
		fmt.Fprintln(w, indent+line)
	}
	fmt.Fprintln(w)
}
