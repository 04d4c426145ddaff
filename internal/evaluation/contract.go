package evaluation

import (
	"context"

	"github.com/fluentedge/essaylab/internal/domain"
)

// Judge is the external judgment contract the pipeline depends on. Failures
// and timeouts trigger the degrade policy instead of failing the evaluation.
type Judge interface {
	Judge(ctx context.Context, req domain.JudgmentRequest) (domain.Judgment, error)
}
