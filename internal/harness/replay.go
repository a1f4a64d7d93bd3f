package harness

import (
	"context"
	"fmt"

	"copilotbench/internal/command"
	"copilotbench/internal/corpus"
	"copilotbench/internal/session"

	"go.uber.org/zap"
)

// SelectTest resolves a /test argument against the session's corpus. The
// session is not touched.
func (h *Harness) SelectTest(s *session.Session, arg command.TestArg) (*corpus.Record, error) {
	if arg.Err != nil {
		return nil, fmt.Errorf("%w\nPlease provide an integer number.", arg.Err)
	}

	entries, err := h.storeFor(s).Load()
	if err != nil {
		return nil, err
	}
	number := arg.Number
	if arg.Last() {
		number = len(entries)
	}
	if number < 1 || number > len(entries) {
		return nil, fmt.Errorf("%w: `%d`\nValid test case numbers are 1-%d",
			ErrTestOutOfRange, number, len(entries))
	}

	entry := entries[number-1]
	if entry.Err != nil {
		return nil, entry.Err
	}
	return entry.Record, nil
}

// BeginReplay resets the session and restores rec's history into it. The
// replayed messages are attributed alternately to the user and the
// assistant, starting with the user. The caller continues with a chat
// turn for ReplayContext(rec) and then an evaluation.
func (h *Harness) BeginReplay(s *session.Session, rec *corpus.Record) []View {
	s.Reset()

	var views []View
	author := AuthorUser
	for _, msg := range rec.Messages() {
		s.Restore(msg)
		views = append(views, newView(author, msg.Content))
		if author == AuthorUser {
			author = AuthorAssistant
		} else {
			author = AuthorUser
		}
	}
	h.logger.Info("Replaying test case",
		zap.String("session", s.ID.String()),
		zap.Int("history", len(s.History)))
	return views
}

// ReplayContext is the answer context for replaying rec: its customer,
// regardless of the customer_id setting.
func ReplayContext(rec *corpus.Record) map[string]any {
	return map[string]any{"customerId": string(rec.CustomerID)}
}

// Replay runs /test synchronously: select the record, restore its history,
// ask its question and evaluate the answer. Failures are emitted as views
// and returned. The evaluation runs even when
// the turn fails; it then reports why there is nothing to evaluate.
func (h *Harness) Replay(ctx context.Context, s *session.Session, arg command.TestArg, emit func(View)) error {
	rec, err := h.SelectTest(s, arg)
	if err != nil {
		emit(ErrorView(err))
		return err
	}
	emitAll(emit, h.BeginReplay(s, rec))

	turnErr := h.RunTurn(ctx, s, rec.Question, ReplayContext(rec), emit)

	v, err := h.RunEval(ctx, s)
	if err != nil {
		emit(ErrorView(err))
		if turnErr != nil {
			return turnErr
		}
		return err
	}
	emit(v)
	return turnErr
}
