// Package evaluation scores essays against a weighted rubric. Deterministic
// text metrics combine with model judgment into a reproducible composite
// result; judgment failures degrade individual dimensions, never the whole
// evaluation.
package evaluation

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fluentedge/essaylab/internal/domain"
	"github.com/fluentedge/essaylab/internal/metrics"
	"github.com/fluentedge/essaylab/internal/textmetrics"
)

// penaltyPerIssue is the deterministic grammar penalty applied when the
// judge is unavailable.
const penaltyPerIssue = 5

// defaultJudgeTimeout bounds each judgment call when none is configured.
const defaultJudgeTimeout = 30 * time.Second

// Pipeline evaluates one essay per call. It holds no state across calls;
// every invocation runs the fixed sequence metrics, three dimension
// judgments, aggregation.
type Pipeline struct {
	judge        Judge
	judgeTimeout time.Duration
	logger       *zap.Logger
}

// New creates an evaluation pipeline. judgeTimeout bounds each individual
// judgment call; zero selects the default.
func New(judge Judge, judgeTimeout time.Duration, logger *zap.Logger) *Pipeline {
	if judgeTimeout <= 0 {
		judgeTimeout = defaultJudgeTimeout
	}
	return &Pipeline{judge: judge, judgeTimeout: judgeTimeout, logger: logger}
}

// judgeOutcome holds one dimension's judgment or its failure.
type judgeOutcome struct {
	judgment domain.Judgment
	err      error
}

// Evaluate scores the essay against the prompt and rubric. It always
// returns a result, possibly degraded, except on invalid input (empty
// essay, absent prompt, malformed weights), which is rejected before any
// work begins.
func (p *Pipeline) Evaluate(ctx context.Context, essay string, prompt domain.PromptRecord, weights domain.RubricWeights) (domain.GradingResult, error) {
	start := time.Now()

	if strings.TrimSpace(essay) == "" {
		metrics.GradingsTotal.WithLabelValues("rejected").Inc()
		return domain.GradingResult{}, domain.ErrEmptyEssay
	}
	if prompt.ID == "" {
		metrics.GradingsTotal.WithLabelValues("rejected").Inc()
		return domain.GradingResult{}, domain.ErrMissingPrompt
	}
	if err := weights.Validate(); err != nil {
		metrics.GradingsTotal.WithLabelValues("rejected").Inc()
		return domain.GradingResult{}, err
	}

	profile := textmetrics.AnalyzeVocabulary(essay)
	patternIssues := textmetrics.DetectPatternIssues(essay)
	wordCount := profile.WordCount
	lengthCompliant := wordCount >= weights.MinWords && wordCount <= weights.MaxWords

	outcomes := p.judgeDimensions(ctx, essay, prompt)

	result := domain.GradingResult{
		WordCount:       wordCount,
		LengthCompliant: lengthCompliant,
	}

	result.Grammar = p.scoreGrammar(outcomes[domain.DimensionGrammar], patternIssues, &result)
	result.Vocabulary = p.scoreVocabulary(outcomes[domain.DimensionVocabulary], profile, &result)
	result.Content = p.scoreContent(outcomes[domain.DimensionContent], &result)

	result.Overall = overallScore(&result, weights)
	result.GrammarErrors = result.Grammar.Issues
	result.Feedback = p.composeFeedback(outcomes[domain.DimensionContent], profile, lengthCompliant)
	result.Suggestions = aggregateSuggestions(&result)

	if !lengthCompliant {
		result.Suggestions = append(result.Suggestions, fmt.Sprintf(
			"Aim for between %d and %d words; this essay has %d.",
			weights.MinWords, weights.MaxWords, wordCount))
	}

	outcome := "complete"
	if result.IsDegraded() {
		outcome = "degraded"
	}
	metrics.GradingsTotal.WithLabelValues(outcome).Inc()
	metrics.GradingDuration.Observe(time.Since(start).Seconds())

	p.logger.Info("essay graded",
		zap.String("prompt_id", prompt.ID),
		zap.Float64("overall", result.Overall),
		zap.Int("word_count", wordCount),
		zap.Bool("length_compliant", lengthCompliant),
		zap.Bool("degraded", result.IsDegraded()),
	)
	return result, nil
}

// judgeDimensions issues the three judgment calls concurrently and waits
// for all of them (or their timeouts). The calls touch no shared mutable
// state, so caller cancellation simply abandons them.
func (p *Pipeline) judgeDimensions(ctx context.Context, essay string, prompt domain.PromptRecord) map[domain.Dimension]judgeOutcome {
	dims := domain.Dimensions()
	outcomes := make([]judgeOutcome, len(dims))
	promptCtx := promptContext(&prompt)

	var wg sync.WaitGroup
	for i, dim := range dims {
		wg.Add(1)
		go func(i int, dim domain.Dimension) {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, p.judgeTimeout)
			defer cancel()

			j, err := p.judge.Judge(callCtx, domain.JudgmentRequest{
				Dimension:     dim,
				Essay:         essay,
				PromptContext: promptCtx,
				Guidance:      guidance(dim),
			})
			if err != nil {
				p.logger.Warn("judgment failed, degrading dimension",
					zap.String("dimension", string(dim)), zap.Error(err))
				err = fmt.Errorf("%w: %w", domain.ErrJudgmentUnavailable, err)
			}
			outcomes[i] = judgeOutcome{judgment: j, err: err}
		}(i, dim)
	}
	wg.Wait()

	byDim := make(map[domain.Dimension]judgeOutcome, len(dims))
	for i, dim := range dims {
		byDim[dim] = outcomes[i]
	}
	return byDim
}

// scoreGrammar combines the deterministic pattern scan with the judged
// grammar score. On judgment failure the score derives from the issue count
// alone and the dimension is flagged degraded.
func (p *Pipeline) scoreGrammar(out judgeOutcome, patternIssues []textmetrics.PatternIssue, result *domain.GradingResult) domain.DimensionScore {
	ceiling := domain.DimensionGrammar.Ceiling()
	issues := make([]string, 0, len(patternIssues))
	for _, pi := range patternIssues {
		issues = append(issues, fmt.Sprintf("word %d: %s", pi.Position+1, pi.Description))
	}

	if out.err != nil {
		result.Degraded = append(result.Degraded, domain.DimensionGrammar)
		score := ceiling - math.Min(ceiling, float64(len(patternIssues))*penaltyPerIssue)
		return domain.DimensionScore{
			Dimension:   domain.DimensionGrammar,
			Score:       score,
			Issues:      issues,
			Suggestions: []string{"Review the flagged grammar patterns and check verb agreement."},
		}
	}

	score := clamp(out.judgment.Score, 0, ceiling)
	switch n := len(patternIssues); {
	case n > 10:
		score = math.Max(0, score-8)
	case n > 5:
		score = math.Max(0, score-5)
	case n > 2:
		score = math.Max(0, score-3)
	}

	return domain.DimensionScore{
		Dimension:   domain.DimensionGrammar,
		Score:       score,
		Issues:      append(issues, out.judgment.Issues...),
		Suggestions: out.judgment.Suggestions,
	}
}

// scoreVocabulary combines lexical diversity with the judged vocabulary
// score. The degraded formula scales the ceiling by the diversity ratio.
func (p *Pipeline) scoreVocabulary(out judgeOutcome, profile textmetrics.VocabularyProfile, result *domain.GradingResult) domain.DimensionScore {
	ceiling := domain.DimensionVocabulary.Ceiling()
	suggestions := vocabularySuggestions(profile)

	if out.err != nil {
		result.Degraded = append(result.Degraded, domain.DimensionVocabulary)
		return domain.DimensionScore{
			Dimension:   domain.DimensionVocabulary,
			Score:       ceiling * clamp(profile.Diversity, 0, 1),
			Suggestions: suggestions,
		}
	}

	score := clamp(out.judgment.Score, 0, ceiling)
	if profile.Diversity < 0.3 {
		score = math.Max(0, score-5)
	} else if profile.Diversity > 0.6 {
		score = math.Min(ceiling, score+3)
	}

	return domain.DimensionScore{
		Dimension:   domain.DimensionVocabulary,
		Score:       score,
		Issues:      out.judgment.Issues,
		Suggestions: append(out.judgment.Suggestions, suggestions...),
	}
}

// scoreContent is judged exclusively by the external capability. When that
// fails the dimension is reported unavailable, not silently zero, and the
// overall score renormalizes over the remaining dimensions.
func (p *Pipeline) scoreContent(out judgeOutcome, result *domain.GradingResult) domain.DimensionScore {
	if out.err != nil {
		result.Unavailable = append(result.Unavailable, domain.DimensionContent)
		return domain.DimensionScore{
			Dimension: domain.DimensionContent,
			Issues:    []string{"content judgment unavailable; dimension excluded from the overall score"},
		}
	}
	return domain.DimensionScore{
		Dimension:   domain.DimensionContent,
		Score:       clamp(out.judgment.Score, 0, domain.DimensionContent.Ceiling()),
		Issues:      out.judgment.Issues,
		Suggestions: out.judgment.Suggestions,
	}
}

// overallScore computes the weighted sum of dimension scores rescaled to
// 0-100, with weights renormalized over the available dimensions.
func overallScore(result *domain.GradingResult, weights domain.RubricWeights) float64 {
	unavailable := make(map[domain.Dimension]struct{}, len(result.Unavailable))
	for _, d := range result.Unavailable {
		unavailable[d] = struct{}{}
	}

	scores := map[domain.Dimension]float64{
		domain.DimensionGrammar:    result.Grammar.Score,
		domain.DimensionVocabulary: result.Vocabulary.Score,
		domain.DimensionContent:    result.Content.Score,
	}

	var weighted, totalWeight float64
	for _, dim := range domain.Dimensions() {
		if _, skip := unavailable[dim]; skip {
			continue
		}
		w := weights.Weight(dim)
		weighted += scores[dim] / dim.Ceiling() * w
		totalWeight += w
	}
	if totalWeight == 0 {
		return 0
	}
	return math.Round(weighted/totalWeight*1000) / 10
}

// composeFeedback prefers the content judge's qualitative feedback and
// falls back to deterministic remarks when the judge is down.
func (p *Pipeline) composeFeedback(content judgeOutcome, profile textmetrics.VocabularyProfile, lengthCompliant bool) string {
	if content.err == nil && content.judgment.Feedback != "" {
		return content.judgment.Feedback
	}

	var parts []string
	if lengthCompliant {
		parts = append(parts, "The essay length fits the expected range.")
	} else {
		parts = append(parts, "The essay length falls outside the expected range.")
	}
	if profile.Diversity > 0.6 {
		parts = append(parts, "Vocabulary variety is good.")
	} else {
		parts = append(parts, "Vocabulary variety can be improved.")
	}
	parts = append(parts, "Detailed feedback is temporarily unavailable.")
	return strings.Join(parts, " ")
}

// aggregateSuggestions flattens dimension suggestions, preserving each
// dimension's source tag.
func aggregateSuggestions(result *domain.GradingResult) []string {
	var out []string
	for _, ds := range []domain.DimensionScore{result.Grammar, result.Vocabulary, result.Content} {
		for _, s := range ds.Suggestions {
			out = append(out, fmt.Sprintf("%s: %s", ds.Dimension, s))
		}
	}
	return out
}

// vocabularySuggestions derives advisory suggestions from the vocabulary
// profile.
func vocabularySuggestions(profile textmetrics.VocabularyProfile) []string {
	var out []string
	if profile.WordCount < 30 {
		out = append(out, "The essay is short; expand your ideas with more detail.")
	}
	if profile.Diversity < 0.4 {
		out = append(out, "Many words repeat; try using more varied vocabulary.")
	}
	if profile.AdvancedRatio < 0.1 {
		out = append(out, "Try working in some more advanced vocabulary.")
	}
	return out
}

// promptContext renders the prompt record for the judge.
func promptContext(rec *domain.PromptRecord) string {
	var b strings.Builder
	b.WriteString("Title: " + rec.Title + "\n")
	b.WriteString("Task: " + rec.Prompt + "\n")
	if len(rec.Requirements) > 0 {
		b.WriteString("Requirements:\n")
		for _, req := range rec.Requirements {
			b.WriteString("- " + req + "\n")
		}
	}
	if len(rec.Keywords) > 0 {
		b.WriteString("Keywords: " + strings.Join(rec.Keywords, ", ") + "\n")
	}
	return b.String()
}

// guidance returns the rubric guidance text for a dimension.
func guidance(dim domain.Dimension) string {
	switch dim {
	case domain.DimensionGrammar:
		return "Check tense, voice, subject-verb agreement, sentence structure, and punctuation."
	case domain.DimensionVocabulary:
		return "Check word choice, richness and variety of vocabulary, and spelling."
	case domain.DimensionContent:
		return "Check that the essay addresses the task requirements, develops its ideas logically, and has a clear opening, body, and ending."
	}
	return ""
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
