package domain

import "errors"

var (
	// ErrDuplicateID signals a prompt insert with an identifier already in the corpus.
	ErrDuplicateID = errors.New("duplicate prompt id")
	// ErrNoMatch signals that retrieval exhausted every relaxation tier.
	ErrNoMatch = errors.New("no matching prompt")
	// ErrInvalidRecord signals a prompt record missing required fields.
	ErrInvalidRecord = errors.New("invalid prompt record")
	// ErrMalformedImport signals a rejected corpus import; the corpus is unchanged.
	ErrMalformedImport = errors.New("malformed corpus import")
	// ErrVectorDimMismatch signals an embedding dimension mismatch within one corpus.
	ErrVectorDimMismatch = errors.New("embedding dimension mismatch")

	// ErrInvalidRubric signals malformed rubric weights. Fails at configuration
	// time, never during scoring.
	ErrInvalidRubric = errors.New("invalid rubric weights")
	// ErrInvalidCriteria signals retrieval criteria with an unknown grade
	// tier or proficiency level.
	ErrInvalidCriteria = errors.New("invalid retrieval criteria")
	// ErrEmptyEssay signals a grading request with no essay text.
	ErrEmptyEssay = errors.New("empty essay")
	// ErrMissingPrompt signals a grading request without a prompt record.
	ErrMissingPrompt = errors.New("missing prompt record")

	// ErrJudgmentUnavailable signals a failed or timed-out judgment call.
	// Recoverable: the pipeline degrades instead of failing the evaluation.
	ErrJudgmentUnavailable = errors.New("judgment unavailable")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
