package pipeline

import (
	"context"
	"fmt"

	"copilotbench/internal/config"

	"go.uber.org/zap"
)

// NewAnswerPipeline creates the answer pipeline selected by cfg.
func NewAnswerPipeline(ctx context.Context, cfg config.PipelineConfig, logger *zap.Logger) (AnswerPipeline, error) {
	switch cfg.Kind {
	case config.KindHTTP:
		return NewHTTPAnswer(cfg.URL, cfg.APIKey, cfg.GetTimeout(), logger), nil
	case config.KindCommand:
		return NewCommandAnswer(commandFromConfig(cfg), logger), nil
	case config.KindOpenAI:
		return NewOpenAIAnswer(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	case config.KindGemini:
		return NewGeminiAnswer(ctx, cfg.APIKey, cfg.Model)
	case config.KindMock:
		return NewMockAnswer(), nil
	default:
		return nil, fmt.Errorf("unsupported answer pipeline kind: %q", cfg.Kind)
	}
}

// NewEvaluator creates the evaluator selected by cfg.
func NewEvaluator(cfg config.PipelineConfig) (Evaluator, error) {
	switch cfg.Kind {
	case config.KindHTTP:
		return NewHTTPEvaluator(cfg.URL, cfg.APIKey, cfg.GetTimeout()), nil
	case config.KindCommand:
		return NewCommandEvaluator(commandFromConfig(cfg)), nil
	case config.KindOpenAI:
		return NewOpenAIJudge(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	case config.KindMock:
		return NewMockEvaluator(), nil
	default:
		return nil, fmt.Errorf("unsupported evaluator kind: %q", cfg.Kind)
	}
}

func commandFromConfig(cfg config.PipelineConfig) Command {
	return Command{
		Name: cfg.Command,
		Args: cfg.Args,
		Dir:  cfg.Dir,
		Env:  cfg.Env,
	}
}
