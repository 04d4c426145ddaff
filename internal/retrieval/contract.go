package retrieval

import (
	"context"

	"github.com/fluentedge/essaylab/internal/corpus"
	"github.com/fluentedge/essaylab/internal/domain"
)

// PromptSearcher defines the corpus contract for retrieval.
type PromptSearcher interface {
	Search(ctx context.Context, criteria domain.EvaluationCriteria, queryText string, k int) ([]corpus.Match, error)
}
