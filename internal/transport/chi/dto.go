package chi

import (
	"fmt"

	"github.com/fluentedge/essaylab/internal/domain"
)

// selectPromptRequest is the retrieval input.
type selectPromptRequest struct {
	Grade string `json:"grade"`
	Level string `json:"level"`
	Genre string `json:"genre,omitempty"`
	Topic string `json:"topic,omitempty"`
	Query string `json:"query,omitempty"`
}

func (r *selectPromptRequest) criteria() (domain.EvaluationCriteria, error) {
	grade, ok := domain.ParseGradeTier(r.Grade)
	if !ok {
		return domain.EvaluationCriteria{}, fmt.Errorf("unknown grade %q", r.Grade)
	}
	level := grade.DefaultLevel()
	if r.Level != "" {
		level, ok = domain.ParseProficiency(r.Level)
		if !ok {
			return domain.EvaluationCriteria{}, fmt.Errorf("unknown level %q", r.Level)
		}
	}
	return domain.EvaluationCriteria{
		Grade: grade,
		Level: level,
		Genre: r.Genre,
		Topic: r.Topic,
	}, nil
}

// promptDTO is the wire shape of a prompt record. Embeddings stay internal;
// the export endpoint carries them instead.
type promptDTO struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Prompt       string   `json:"prompt"`
	Grade        string   `json:"grade"`
	Level        string   `json:"level"`
	Genre        string   `json:"genre,omitempty"`
	Topic        string   `json:"topic,omitempty"`
	Requirements []string `json:"requirements,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
	MinWords     int      `json:"min_words"`
	MaxWords     int      `json:"max_words"`
}

func promptToDTO(rec *domain.PromptRecord) promptDTO {
	return promptDTO{
		ID:           rec.ID,
		Title:        rec.Title,
		Prompt:       rec.Prompt,
		Grade:        string(rec.Grade),
		Level:        string(rec.Level),
		Genre:        rec.Genre,
		Topic:        rec.Topic,
		Requirements: rec.Requirements,
		Keywords:     rec.Keywords,
		MinWords:     rec.MinWords,
		MaxWords:     rec.MaxWords,
	}
}

func (d *promptDTO) record() (domain.PromptRecord, error) {
	grade, ok := domain.ParseGradeTier(d.Grade)
	if !ok {
		return domain.PromptRecord{}, fmt.Errorf("%w: unknown grade %q", domain.ErrInvalidRecord, d.Grade)
	}
	level := grade.DefaultLevel()
	if d.Level != "" {
		level, ok = domain.ParseProficiency(d.Level)
		if !ok {
			return domain.PromptRecord{}, fmt.Errorf("%w: unknown level %q", domain.ErrInvalidRecord, d.Level)
		}
	}
	return domain.PromptRecord{
		ID:           d.ID,
		Title:        d.Title,
		Prompt:       d.Prompt,
		Grade:        grade,
		Level:        level,
		Genre:        d.Genre,
		Topic:        d.Topic,
		Requirements: d.Requirements,
		Keywords:     d.Keywords,
		MinWords:     d.MinWords,
		MaxWords:     d.MaxWords,
	}, nil
}

// weightsDTO is an optional per-request rubric override.
type weightsDTO struct {
	Grammar    float64 `json:"grammar"`
	Vocabulary float64 `json:"vocabulary"`
	Content    float64 `json:"content"`
	MinWords   int     `json:"min_words"`
	MaxWords   int     `json:"max_words"`
}

func (d *weightsDTO) rubric() (domain.RubricWeights, error) {
	return domain.NewRubricWeights(d.Grammar, d.Vocabulary, d.Content, d.MinWords, d.MaxWords)
}

// gradeRequest is the grading input: an essay plus either a stored prompt
// id or an inline prompt.
type gradeRequest struct {
	Essay    string      `json:"essay"`
	PromptID string      `json:"prompt_id,omitempty"`
	Prompt   *promptDTO  `json:"prompt,omitempty"`
	Weights  *weightsDTO `json:"weights,omitempty"`
}

// dimensionDTO is the wire shape of one rubric dimension score.
type dimensionDTO struct {
	Dimension   string   `json:"dimension"`
	Score       float64  `json:"score"`
	Ceiling     float64  `json:"ceiling"`
	Issues      []string `json:"issues,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

func dimensionToDTO(ds *domain.DimensionScore) dimensionDTO {
	return dimensionDTO{
		Dimension:   string(ds.Dimension),
		Score:       ds.Score,
		Ceiling:     ds.Dimension.Ceiling(),
		Issues:      ds.Issues,
		Suggestions: ds.Suggestions,
	}
}

// gradingDTO is the wire shape of a grading result.
type gradingDTO struct {
	Overall         float64      `json:"overall"`
	Grammar         dimensionDTO `json:"grammar"`
	Vocabulary      dimensionDTO `json:"vocabulary"`
	Content         dimensionDTO `json:"content"`
	GrammarErrors   []string     `json:"grammar_errors,omitempty"`
	Suggestions     []string     `json:"suggestions,omitempty"`
	Feedback        string       `json:"feedback"`
	WordCount       int          `json:"word_count"`
	LengthCompliant bool         `json:"length_compliant"`
	Degraded        []string     `json:"degraded,omitempty"`
	Unavailable     []string     `json:"unavailable,omitempty"`
}

func gradingToDTO(res *domain.GradingResult) gradingDTO {
	return gradingDTO{
		Overall:         res.Overall,
		Grammar:         dimensionToDTO(&res.Grammar),
		Vocabulary:      dimensionToDTO(&res.Vocabulary),
		Content:         dimensionToDTO(&res.Content),
		GrammarErrors:   res.GrammarErrors,
		Suggestions:     res.Suggestions,
		Feedback:        res.Feedback,
		WordCount:       res.WordCount,
		LengthCompliant: res.LengthCompliant,
		Degraded:        dimensionsToStrings(res.Degraded),
		Unavailable:     dimensionsToStrings(res.Unavailable),
	}
}

func dimensionsToStrings(dims []domain.Dimension) []string {
	if len(dims) == 0 {
		return nil
	}
	out := make([]string, len(dims))
	for i, d := range dims {
		out[i] = string(d)
	}
	return out
}
