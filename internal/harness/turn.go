package harness

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"copilotbench/internal/corpus"
	"copilotbench/internal/pipeline"
	"copilotbench/internal/session"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Turn is one chat turn in flight. It accumulates the streamed answer and
// the turn's context. A Turn belongs to the event loop that began it.
type Turn struct {
	// QuestionID is the ID of the question's view; the turn's detail
	// views hang off it.
	QuestionID uuid.UUID
	Question   string
	Request    *pipeline.ChatRequest

	record  *corpus.Record
	answer  strings.Builder
	context *pipeline.Context
	logger  *zap.Logger

	// Stream runs on a worker while the event loop may cancel.
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// Answer returns the answer streamed so far.
func (t *Turn) Answer() string {
	return t.answer.String()
}

// Context returns the turn's context, or nil if none has arrived.
func (t *Turn) Context() *pipeline.Context {
	return t.context
}

// Interrupted returns why the stream was stopped before it ended on its
// own: cancellation or the answer timeout. A stream that ended while
// interrupted must not complete the turn.
func (t *Turn) Interrupted() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ctx == nil {
		return nil
	}
	return t.ctx.Err()
}

// Cancel stops the answer stream. It is safe to call more than once.
func (t *Turn) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
		return
	}
	// Cancelled before the stream started: start it already done.
	t.ctx, t.cancel = context.WithCancel(context.Background())
	t.cancel()
}

// Apply consumes one delta. Content is appended to the answer. The first
// non-empty context becomes the turn's context and its views are
// returned; later contexts are ignored.
func (t *Turn) Apply(d pipeline.Delta) ([]View, error) {
	t.answer.WriteString(d.Content)
	if d.Context.IsEmpty() {
		return nil, nil
	}
	if t.context != nil {
		t.logger.Debug("Ignoring additional context delta", zap.String("question", t.Question))
		return nil, nil
	}
	t.context = d.Context
	return contextViews(t.QuestionID, d.Context)
}

// begin derives the stream context. A turn cancelled before its stream
// started keeps its already-done context.
func (t *Turn) begin(parent context.Context, timeout time.Duration) context.Context {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ctx != nil {
		return t.ctx
	}
	if timeout > 0 {
		t.ctx, t.cancel = context.WithTimeout(parent, timeout)
	} else {
		t.ctx, t.cancel = context.WithCancel(parent)
	}
	return t.ctx
}

// BeginTurn records the question in the session and prepares the request
// for the answer pipeline. contextOverride replaces the default context
// {"customerId": <customer_id setting>}. The returned views show the
// question and, with debug views enabled, the request.
func (h *Harness) BeginTurn(s *session.Session, question string, contextOverride map[string]any) (*Turn, []View, error) {
	before := session.ToPipeline(s.Messages)
	s.AppendUser(question)

	reqContext := contextOverride
	if reqContext == nil {
		reqContext = map[string]any{"customerId": s.Settings.CustomerID()}
	}

	messages := make([]pipeline.Message, len(s.History))
	copy(messages, s.History)

	questionView := newView(AuthorUser, question)
	t := &Turn{
		QuestionID: questionView.ID,
		Question:   question,
		Request: &pipeline.ChatRequest{
			Flow:     s.Settings.PromptflowFolder(),
			Messages: messages,
			Context:  reqContext,
		},
		record: &corpus.Record{
			CustomerID:  corpus.CustomerID(s.Settings.CustomerID()),
			ChatHistory: pipeline.ToFlowHistory(before),
			Question:    question,
		},
		logger: h.logger,
	}

	views := []View{questionView}
	if h.debugViews {
		v, err := requestView(t.QuestionID, t.Request)
		if err != nil {
			return t, views, err
		}
		views = append(views, v)
	}
	return t, views, nil
}

// Stream starts the answer pipeline for t. The stream stops when ctx is
// done, when the answer timeout expires, or when t.Cancel is called.
func (h *Harness) Stream(ctx context.Context, t *Turn) (<-chan pipeline.Delta, error) {
	streamCtx := t.begin(ctx, h.answerTimeout)
	h.logger.Debug("Starting answer stream",
		zap.Int("messages", len(t.Request.Messages)),
		zap.Any("context", t.Request.Context))

	deltas, err := h.answer.Stream(streamCtx, t.Request)
	if err != nil {
		t.Cancel()
		return nil, err
	}
	return deltas, nil
}

// FinishTurn completes t after its stream is exhausted: the answer joins
// both message sequences and the turn's test case becomes pending.
func (h *Harness) FinishTurn(s *session.Session, t *Turn) ([]View, error) {
	t.Cancel()
	s.CompleteTurn(t.Answer(), t.context, t.record)
	h.logger.Info("Chat turn completed",
		zap.String("session", s.ID.String()),
		zap.Int("answer_len", t.answer.Len()),
		zap.Bool("context", t.context != nil))

	var views []View
	if h.debugViews {
		v, err := testCaseView(t.QuestionID, s.Pending)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	views = append(views, newView(AuthorAssistant, t.Answer()))
	return views, nil
}

// FailTurn abandons t. The question stays in the session; nothing else
// from the turn is kept and no test case becomes pending.
func (h *Harness) FailTurn(s *session.Session, t *Turn, err error) View {
	t.Cancel()
	h.logger.Warn("Chat turn failed",
		zap.String("session", s.ID.String()),
		zap.Int("partial_answer_len", t.answer.Len()),
		zap.Error(err))
	if errors.Is(err, context.Canceled) {
		return replyView("#### Stopped\nThe answer was cancelled before it completed.")
	}
	v := replyView("#### Chat failed\n" + fenced("", err.Error()))
	v.Error = true
	return v
}

// RunTurn runs a whole chat turn synchronously, passing views to emit as
// they are produced. Content is emitted once, as the final answer view.
// A failed turn is reported through emit and returned.
func (h *Harness) RunTurn(ctx context.Context, s *session.Session, question string, contextOverride map[string]any, emit func(View)) error {
	t, views, err := h.BeginTurn(s, question, contextOverride)
	emitAll(emit, views)
	if err != nil {
		emit(h.FailTurn(s, t, err))
		return err
	}

	deltas, err := h.Stream(ctx, t)
	if err != nil {
		emit(h.FailTurn(s, t, err))
		return err
	}
	for d := range deltas {
		if d.Err != nil {
			err = d.Err
			continue
		}
		views, applyErr := t.Apply(d)
		emitAll(emit, views)
		if applyErr != nil && err == nil {
			err = applyErr
		}
	}
	if err == nil {
		err = t.Interrupted()
	}
	if err != nil {
		emit(h.FailTurn(s, t, err))
		return err
	}

	views, err = h.FinishTurn(s, t)
	emitAll(emit, views)
	return err
}

func emitAll(emit func(View), views []View) {
	for _, v := range views {
		emit(v)
	}
}
