package harness

import (
	"context"

	"copilotbench/internal/command"
	"copilotbench/internal/session"
)

// Handle runs one command to completion, passing its views to emit.
// Operator errors are emitted as error views and also returned; the
// session stays usable either way.
func (h *Harness) Handle(ctx context.Context, s *session.Session, cmd command.Command, emit func(View)) error {
	var (
		v   View
		err error
	)
	switch cmd.Kind {
	case command.KindChat:
		return h.RunTurn(ctx, s, cmd.Input, nil, emit)
	case command.KindTest:
		return h.Replay(ctx, s, cmd.Test, emit)
	case command.KindConfig:
		v, err = h.Configure(s, cmd.Config)
	case command.KindEval:
		v, err = h.RunEval(ctx, s)
	case command.KindAddTest:
		v, err = h.AddTest(s)
	case command.KindListTests:
		v, err = h.ListTests(s)
	case command.KindHelp:
		v = h.Help(s)
	case command.KindClear:
		v = h.Clear(s)
	}
	if err != nil {
		emit(ErrorView(err))
		return err
	}
	emit(v)
	return nil
}
