// Package retrieval selects one writing prompt for a learner by combining
// corpus similarity search with a ranking and relaxation policy.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fluentedge/essaylab/internal/domain"
	"github.com/fluentedge/essaylab/internal/metrics"
)

// Engine wraps corpus search with retrieval policy: synthetic query
// construction for keyword-only requests, the constraint relaxation chain,
// and a deterministic lowest-identifier tie-break.
type Engine struct {
	searcher PromptSearcher
	logger   *zap.Logger
}

// New creates a retrieval engine.
func New(searcher PromptSearcher, logger *zap.Logger) *Engine {
	return &Engine{searcher: searcher, logger: logger}
}

// SelectPrompt picks the best-matching prompt for the criteria. When no
// explicit query text is supplied, a synthetic query is built from the
// criteria so similarity ranking still applies. Exhausting every relaxation
// tier yields domain.ErrNoMatch; callers handle the no-match case
// explicitly.
func (e *Engine) SelectPrompt(ctx context.Context, criteria domain.EvaluationCriteria, queryText string) (domain.PromptRecord, error) {
	if err := criteria.Validate(); err != nil {
		return domain.PromptRecord{}, err
	}

	if queryText == "" {
		queryText = buildQuery(criteria)
	}

	matches, err := e.searcher.Search(ctx, criteria, queryText, 1)
	if err != nil {
		return domain.PromptRecord{}, fmt.Errorf("corpus search: %w", err)
	}
	if len(matches) == 0 {
		metrics.RetrievalTotal.WithLabelValues("no_match").Inc()
		return domain.PromptRecord{}, domain.ErrNoMatch
	}

	best := matches[0]
	outcome := "match"
	if best.Relaxation > 0 {
		outcome = "relaxed"
		e.logger.Info("prompt matched after constraint relaxation",
			zap.String("prompt_id", best.Record.ID),
			zap.Int("relaxation_tier", best.Relaxation),
		)
	}
	metrics.RetrievalTotal.WithLabelValues(outcome).Inc()

	return best.Record, nil
}

// buildQuery renders criteria as free text so keyword-only requests can
// still be similarity-ranked.
func buildQuery(criteria domain.EvaluationCriteria) string {
	var parts []string
	if criteria.Genre != "" {
		parts = append(parts, criteria.Genre+" essay")
	}
	if criteria.Topic != "" {
		parts = append(parts, criteria.Topic)
	}
	if len(parts) == 0 {
		parts = append(parts, "english essay")
	}
	parts = append(parts, string(criteria.Level))
	return strings.Join(parts, " ")
}
