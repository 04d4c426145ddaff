package domain

import (
	"fmt"
	"math"
)

// weightEpsilon is the tolerance when checking that rubric weights sum to 1.
const weightEpsilon = 1e-6

// RubricWeights fixes the relative contribution of each rubric dimension
// to the overall score, plus the advisory essay length bounds.
type RubricWeights struct {
	Grammar    float64
	Vocabulary float64
	Content    float64
	MinWords   int
	MaxWords   int
}

// NewRubricWeights validates and creates rubric weights. Weights must be
// non-negative and sum to 1.0 within epsilon; bounds must be ordered.
func NewRubricWeights(grammar, vocabulary, content float64, minWords, maxWords int) (RubricWeights, error) {
	w := RubricWeights{
		Grammar:    grammar,
		Vocabulary: vocabulary,
		Content:    content,
		MinWords:   minWords,
		MaxWords:   maxWords,
	}
	if err := w.Validate(); err != nil {
		return RubricWeights{}, err
	}
	return w, nil
}

// DefaultRubricWeights returns the standard 0.3/0.3/0.4 rubric with
// 20-500 word bounds.
func DefaultRubricWeights() RubricWeights {
	return RubricWeights{
		Grammar:    0.3,
		Vocabulary: 0.3,
		Content:    0.4,
		MinWords:   20,
		MaxWords:   500,
	}
}

// Validate checks the weights. A malformed rubric fails here, before any
// essay is processed.
func (w RubricWeights) Validate() error {
	if w.Grammar < 0 || w.Vocabulary < 0 || w.Content < 0 {
		return fmt.Errorf("%w: weights must be non-negative", ErrInvalidRubric)
	}
	sum := w.Grammar + w.Vocabulary + w.Content
	if math.Abs(sum-1.0) > weightEpsilon {
		return fmt.Errorf("%w: weights sum to %.3f, want 1.0", ErrInvalidRubric, sum)
	}
	if w.MinWords < 0 || w.MaxWords < w.MinWords {
		return fmt.Errorf("%w: word bounds [%d, %d] are not ordered", ErrInvalidRubric, w.MinWords, w.MaxWords)
	}
	return nil
}

// Weight returns the weight for a dimension.
func (w RubricWeights) Weight(d Dimension) float64 {
	switch d {
	case DimensionGrammar:
		return w.Grammar
	case DimensionVocabulary:
		return w.Vocabulary
	case DimensionContent:
		return w.Content
	}
	return 0
}
