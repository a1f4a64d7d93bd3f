package chat

import (
	"context"

	"copilotbench/internal/command"
	"copilotbench/internal/harness"
	"copilotbench/internal/pipeline"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// dispatch starts cmd. Chat turns, replays and evaluations continue on
// workers; everything else completes here.
func (m Model) dispatch(cmd command.Command) (Model, tea.Cmd) {
	switch cmd.Kind {
	case command.KindChat:
		return m.startTurn(cmd.Input, nil)

	case command.KindTest:
		rec, err := m.harness.SelectTest(m.session, cmd.Test)
		if err != nil {
			m.appendViews(harness.ErrorView(err))
			return m, nil
		}
		m.appendViews(m.harness.BeginReplay(m.session, rec)...)
		m.replaying = true
		return m.startTurn(rec.Question, harness.ReplayContext(rec))

	case command.KindEval:
		return m.startEval()
	}

	if err := m.harness.Handle(m.shutdownCtx, m.session, cmd, m.appendView); err != nil {
		m.logger.Debug("Command failed", zap.Stringer("kind", cmd.Kind), zap.Error(err))
	}
	m.refreshCorpusCount()
	return m, nil
}

func (m Model) startTurn(question string, contextOverride map[string]any) (Model, tea.Cmd) {
	t, views, err := m.harness.BeginTurn(m.session, question, contextOverride)
	m.appendViews(views...)
	if err != nil {
		m.appendViews(m.harness.FailTurn(m.session, t, err))
		return m.afterTurn()
	}
	m.turn = t
	m.turnErr = nil
	return m, startStream(m.shutdownCtx, m.harness, t)
}

func startStream(ctx context.Context, h *harness.Harness, t *harness.Turn) tea.Cmd {
	return func() tea.Msg {
		deltas, err := h.Stream(ctx, t)
		return streamStartedMsg{turn: t, deltas: deltas, err: err}
	}
}

// waitForDelta reads one delta; the next read is scheduled by Update.
func waitForDelta(t *harness.Turn, deltas <-chan pipeline.Delta) tea.Cmd {
	return func() tea.Msg {
		d, ok := <-deltas
		return deltaMsg{turn: t, deltas: deltas, delta: d, ok: ok}
	}
}

func (m Model) handleStreamStarted(msg streamStartedMsg) (tea.Model, tea.Cmd) {
	if msg.turn != m.turn {
		return m, nil
	}
	if msg.err != nil {
		m.turnErr = msg.err
		return m.completeTurn()
	}
	return m, waitForDelta(msg.turn, msg.deltas)
}

func (m Model) handleDelta(msg deltaMsg) (tea.Model, tea.Cmd) {
	if msg.turn != m.turn {
		return m, nil
	}
	if !msg.ok {
		return m.completeTurn()
	}

	if msg.delta.Err != nil {
		// Keep draining; the stream closes after its error.
		if m.turnErr == nil {
			m.turnErr = msg.delta.Err
		}
		return m, waitForDelta(msg.turn, msg.deltas)
	}

	views, err := m.turn.Apply(msg.delta)
	m.appendViews(views...)
	if err != nil && m.turnErr == nil {
		m.turnErr = err
	}
	m.syncViewport()
	return m, waitForDelta(msg.turn, msg.deltas)
}

// completeTurn runs once the turn's stream has closed.
func (m Model) completeTurn() (tea.Model, tea.Cmd) {
	t := m.turn
	err := m.turnErr
	if err == nil {
		err = t.Interrupted()
	}

	if err != nil {
		m.appendViews(m.harness.FailTurn(m.session, t, err))
	} else {
		views, err := m.harness.FinishTurn(m.session, t)
		m.appendViews(views...)
		if err != nil {
			m.appendViews(harness.ErrorView(err))
		}
	}
	m.turn = nil
	m.turnErr = nil

	next, cmd := m.afterTurn()
	next.syncViewport()
	return next, cmd
}

// afterTurn evaluates a replayed turn, even a failed one.
func (m Model) afterTurn() (Model, tea.Cmd) {
	if !m.replaying {
		return m, nil
	}
	m.replaying = false
	return m.startEval()
}

func (m Model) startEval() (Model, tea.Cmd) {
	req, err := m.harness.PrepareEval(m.session)
	if err != nil {
		m.appendViews(harness.ErrorView(err))
		return m, nil
	}

	ctx, cancel := context.WithCancel(m.shutdownCtx)
	m.evaluating = true
	m.evalCancel = cancel
	h := m.harness
	return m, func() tea.Msg {
		v, err := h.Evaluate(ctx, req)
		return evalDoneMsg{view: v, err: err}
	}
}

func (m Model) handleEvalDone(msg evalDoneMsg) (tea.Model, tea.Cmd) {
	m.evaluating = false
	if m.evalCancel != nil {
		m.evalCancel()
		m.evalCancel = nil
	}
	if msg.err != nil {
		m.appendViews(harness.ErrorView(msg.err))
	} else {
		m.appendViews(msg.view)
	}
	m.syncViewport()
	return m, nil
}

func (m *Model) appendView(v harness.View) {
	m.transcript = append(m.transcript, v)
}

func (m *Model) appendViews(views ...harness.View) {
	m.transcript = append(m.transcript, views...)
}
