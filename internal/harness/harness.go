// Package harness implements the bench commands on top of a session: chat
// turns against the answer pipeline, evaluation of the latest turn, replay
// of corpus test cases and test capture. Handlers return views for the
// caller to render; they never write to a terminal themselves.
package harness

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"copilotbench/internal/command"
	"copilotbench/internal/corpus"
	"copilotbench/internal/pipeline"
	"copilotbench/internal/session"

	"go.uber.org/zap"
)

// Errors reported to the operator as replies.
var (
	ErrUnknownSetting       = session.ErrUnknownSetting
	ErrInvalidTestNumber    = command.ErrInvalidTestNumber
	ErrTestOutOfRange       = errors.New("test case not found")
	ErrNoMessagesToEvaluate = errors.New("no messages to evaluate")
	ErrNoContext            = errors.New("no context to evaluate")
	ErrNoPendingTest        = errors.New("no messages to add")
)

// Options configures a Harness.
type Options struct {
	Answer pipeline.AnswerPipeline
	Eval   pipeline.Evaluator

	// Zero means no timeout.
	AnswerTimeout time.Duration
	EvalTimeout   time.Duration

	// DebugViews adds the request dump and the test case view to every
	// turn.
	DebugViews bool

	Logger *zap.Logger
}

// Harness runs bench commands. One Harness may serve many sessions; the
// sessions themselves are not shared.
type Harness struct {
	answer        pipeline.AnswerPipeline
	eval          pipeline.Evaluator
	answerTimeout time.Duration
	evalTimeout   time.Duration
	debugViews    bool
	logger        *zap.Logger

	mu     sync.Mutex
	stores map[string]*corpus.Store
}

// New creates a Harness.
func New(opts Options) *Harness {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Harness{
		answer:        opts.Answer,
		eval:          opts.Eval,
		answerTimeout: opts.AnswerTimeout,
		evalTimeout:   opts.EvalTimeout,
		debugViews:    opts.DebugViews,
		logger:        logger,
		stores:        make(map[string]*corpus.Store),
	}
}

// Store returns the corpus store for path. Stores are shared per path so
// that appends through any session are serialized.
func (h *Harness) Store(path string) *corpus.Store {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.stores[path]; ok {
		return s
	}
	s := corpus.NewStore(path)
	h.stores[path] = s
	return s
}

func (h *Harness) storeFor(s *session.Session) *corpus.Store {
	return h.Store(s.Settings.TestSet())
}

// Help renders the command listing. The /test range reflects the corpus
// as it is now.
func (h *Harness) Help(s *session.Session) View {
	count, err := h.storeFor(s).Count()
	if err != nil {
		h.logger.Warn("Failed to count test cases", zap.Error(err))
	}
	return replyView(command.Help(s.Settings.TestSet(), count))
}

// Clear resets the conversation.
func (h *Harness) Clear(s *session.Session) View {
	s.Reset()
	h.logger.Debug("Session cleared", zap.String("session", s.ID.String()))
	return replyView("#### Chat history cleared")
}

// Configure lists the settings or assigns one.
func (h *Harness) Configure(s *session.Session, args command.ConfigArgs) (View, error) {
	if !args.IsSet() {
		return settingsView(s.Settings), nil
	}
	if err := s.Settings.Set(args.Name, args.Value); err != nil {
		return View{}, err
	}
	h.logger.Info("Setting changed",
		zap.String("session", s.ID.String()),
		zap.String("name", args.Name),
		zap.String("value", args.Value))
	return replyView(fmt.Sprintf("#### Set `%s` to `%s`", args.Name, args.Value)), nil
}

// AddTest appends the pending test case to the corpus.
func (h *Harness) AddTest(s *session.Session) (View, error) {
	if s.Pending == nil {
		return View{}, ErrNoPendingTest
	}
	store := h.storeFor(s)
	number, err := store.Append(s.Pending)
	if err != nil {
		return View{}, err
	}
	out, err := pipeline.ToYAML(s.Pending)
	if err != nil {
		return View{}, err
	}
	h.logger.Info("Test case added",
		zap.String("corpus", store.Path()),
		zap.Int("number", number))
	return replyView(fmt.Sprintf("Added the following test case:\n\n%s\nIts number is %d",
		fenced("yaml", out), number)), nil
}

// ListTests renders every corpus line with its number.
func (h *Harness) ListTests(s *session.Session) (View, error) {
	store := h.storeFor(s)
	entries, err := store.Load()
	if err != nil {
		return View{}, err
	}
	return testListView(store.Path(), entries)
}
