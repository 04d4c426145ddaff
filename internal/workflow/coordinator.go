// Package workflow sequences prompt retrieval and essay evaluation behind a
// thin, stateless façade.
package workflow

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/fluentedge/essaylab/internal/domain"
)

// PromptSelector retrieves one prompt for the criteria.
type PromptSelector interface {
	SelectPrompt(ctx context.Context, criteria domain.EvaluationCriteria, queryText string) (domain.PromptRecord, error)
}

// EssayEvaluator grades one essay against a prompt and rubric.
type EssayEvaluator interface {
	Evaluate(ctx context.Context, essay string, prompt domain.PromptRecord, weights domain.RubricWeights) (domain.GradingResult, error)
}

// Coordinator adds nothing beyond parameter validation and sequencing; all
// policy lives in the retrieval engine and the evaluation pipeline.
type Coordinator struct {
	selector  PromptSelector
	evaluator EssayEvaluator
	logger    *zap.Logger
}

// New creates a workflow coordinator.
func New(selector PromptSelector, evaluator EssayEvaluator, logger *zap.Logger) *Coordinator {
	return &Coordinator{selector: selector, evaluator: evaluator, logger: logger}
}

// SelectPrompt picks a writing prompt. Returns domain.ErrNoMatch when the
// corpus is exhausted; the caller supplies the fallback.
func (c *Coordinator) SelectPrompt(ctx context.Context, criteria domain.EvaluationCriteria, queryText string) (domain.PromptRecord, error) {
	return c.selector.SelectPrompt(ctx, criteria, queryText)
}

// GradeEssay grades the essay. Invalid input (empty essay, absent prompt)
// is rejected before any work begins; judgment failures surface as a
// degraded result, never as an error.
func (c *Coordinator) GradeEssay(ctx context.Context, essay string, prompt domain.PromptRecord, weights domain.RubricWeights) (domain.GradingResult, error) {
	if strings.TrimSpace(essay) == "" {
		return domain.GradingResult{}, domain.ErrEmptyEssay
	}
	if prompt.ID == "" {
		return domain.GradingResult{}, domain.ErrMissingPrompt
	}
	return c.evaluator.Evaluate(ctx, essay, prompt, weights)
}
