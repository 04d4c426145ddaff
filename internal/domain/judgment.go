package domain

// JudgmentRequest asks the external judgment capability to score one rubric
// dimension of an essay.
type JudgmentRequest struct {
	Dimension     Dimension
	Essay         string
	PromptContext string
	Guidance      string
}

// Judgment is the structured verdict for one dimension. Score is clamped to
// the dimension ceiling before it reaches the pipeline. A judgment supplies
// leaf-level scores and feedback only, never control decisions; failed or
// timed-out judgment calls wrap ErrJudgmentUnavailable.
type Judgment struct {
	Score       float64
	Feedback    string
	Issues      []string
	Suggestions []string
}
