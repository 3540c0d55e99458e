package quicktools

import (
	"context"
	"time"

	"github.com/ntroshkin/gembot/internal/config"
	"github.com/ntroshkin/gembot/internal/domain"
	"github.com/ntroshkin/gembot/internal/observability"
)

// Runner executes quick tools against the generative backend.
type Runner struct {
	cfg *config.Config
	llm domain.LLMClient
}

func NewRunner(cfg *config.Config, llm domain.LLMClient) *Runner {
	return &Runner{cfg: cfg, llm: llm}
}

// Run executes one tool over the user's text and returns the raw
// markdown output.
func (r *Runner) Run(ctx context.Context, tool Tool, userText string) (string, error) {
	model := tool.Model
	if model == "" {
		model = config.DefaultModel
	}

	req := domain.OneShotRequest{
		Model:             model,
		SystemInstruction: tool.SystemInstruction,
		UserText:          userText,
	}
	// The thinking budget cap is only honored by the default flash
	// model; other models reject the parameter.
	if model == config.DefaultModel {
		req.ThinkingBudget = tool.ThinkingBudget
	}

	callCtx := ctx
	if r.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.cfg.RequestTimeout)
		defer cancel()
	}

	start := time.Now()
	out, err := r.llm.GenerateOneShot(callCtx, req)
	if err != nil {
		observability.LoggerFromContext(ctx).Error("quick tool failed",
			"tool", tool.Name, "model", model, "error", err)
		return "", err
	}
	observability.LoggerFromContext(ctx).Info("quick tool completed",
		"tool", tool.Name, "model", model, "elapsed", time.Since(start))
	return out, nil
}
