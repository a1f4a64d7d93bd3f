package harness

import (
	"context"

	"copilotbench/internal/pipeline"
	"copilotbench/internal/session"

	"go.uber.org/zap"
)

// PrepareEval builds the evaluation request for the session's latest
// completed turn: the history before it, its question and answer, and the
// answer's context.
func (h *Harness) PrepareEval(s *session.Session) (*pipeline.EvalRequest, error) {
	before, question, answer, ok := s.LastTurn()
	if !ok {
		return nil, ErrNoMessagesToEvaluate
	}
	if answer.Context.IsEmpty() {
		return nil, ErrNoContext
	}
	payload, err := answer.Context.EvalPayload()
	if err != nil {
		return nil, err
	}
	return &pipeline.EvalRequest{
		Flow:        s.Settings.EvalFlowFolder(),
		ChatHistory: pipeline.ToFlowHistory(session.ToPipeline(before)),
		Question:    question.Content,
		Answer:      answer.Content,
		Context:     payload,
	}, nil
}

// Evaluate runs the evaluation pipeline and renders its report.
func (h *Harness) Evaluate(ctx context.Context, req *pipeline.EvalRequest) (View, error) {
	report, err := h.Score(ctx, req)
	if err != nil {
		return View{}, err
	}
	return reportView(report)
}

// Score runs the evaluation pipeline under the eval timeout.
func (h *Harness) Score(ctx context.Context, req *pipeline.EvalRequest) (*pipeline.Report, error) {
	if h.evalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.evalTimeout)
		defer cancel()
	}

	report, err := h.eval.Evaluate(ctx, req)
	if err != nil {
		h.logger.Warn("Evaluation failed", zap.Error(err))
		return nil, err
	}
	h.logger.Info("Evaluation completed", zap.String("question", req.Question))
	return report, nil
}

// RunEval evaluates the latest turn synchronously.
func (h *Harness) RunEval(ctx context.Context, s *session.Session) (View, error) {
	req, err := h.PrepareEval(s)
	if err != nil {
		return View{}, err
	}
	return h.Evaluate(ctx, req)
}
