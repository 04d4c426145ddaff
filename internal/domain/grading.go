package domain

// Dimension is a rubric axis.
type Dimension string

// Rubric dimensions.
const (
	DimensionGrammar    Dimension = "grammar"
	DimensionVocabulary Dimension = "vocabulary"
	DimensionContent    Dimension = "content"
)

// Dimensions lists the rubric axes in scoring order.
func Dimensions() []Dimension {
	return []Dimension{DimensionGrammar, DimensionVocabulary, DimensionContent}
}

// Ceiling returns the maximum raw score for the dimension.
func (d Dimension) Ceiling() float64 {
	switch d {
	case DimensionContent:
		return 40
	default:
		return 30
	}
}

// DimensionScore is a sub-score along one rubric axis. Immutable once
// produced.
type DimensionScore struct {
	Dimension   Dimension
	Score       float64
	Issues      []string
	Suggestions []string
}

// GradingResult is the value object returned by one evaluation. Constructed
// exactly once per call, never mutated after return.
type GradingResult struct {
	Overall         float64
	Grammar         DimensionScore
	Vocabulary      DimensionScore
	Content         DimensionScore
	GrammarErrors   []string
	Suggestions     []string
	Feedback        string
	WordCount       int
	LengthCompliant bool
	// Degraded lists dimensions scored from deterministic metrics alone
	// because the judgment capability failed.
	Degraded []Dimension
	// Unavailable lists dimensions excluded from the overall score; the
	// remaining weights are renormalized over the available subset.
	Unavailable []Dimension
}

// IsDegraded reports whether any dimension fell back to deterministic
// scoring or was excluded.
func (r *GradingResult) IsDegraded() bool {
	return len(r.Degraded) > 0 || len(r.Unavailable) > 0
}
