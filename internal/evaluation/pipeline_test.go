package evaluation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/fluentedge/essaylab/internal/domain"
)

// --- Mocks ---

// mockJudge is called from the pipeline's concurrent dimension fan-out, so
// its state is mutex-guarded.
type mockJudge struct {
	mu     sync.Mutex
	scores map[domain.Dimension]float64
	errs   map[domain.Dimension]error
	calls  int
}

func (m *mockJudge) Judge(_ context.Context, req domain.JudgmentRequest) (domain.Judgment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err := m.errs[req.Dimension]; err != nil {
		return domain.Judgment{}, err
	}
	return domain.Judgment{
		Score:    m.scores[req.Dimension],
		Feedback: "Solid work on " + string(req.Dimension) + ".",
	}, nil
}

func (m *mockJudge) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// cleanEssay has 27 words, all unique, and trips no grammar patterns.
const cleanEssay = "My family has four people and we enjoy spending time together during " +
	"weekends when everyone gathers around our table sharing stories about school " +
	"work hobbies travel plans"

func testPrompt() domain.PromptRecord {
	return domain.PromptRecord{
		ID:     "p1",
		Title:  "My Family",
		Prompt: "Write about your family.",
		Grade:  domain.TierPrimary,
		Level:  domain.LevelBeginner,
	}
}

func newTestPipeline(judge Judge) *Pipeline {
	return New(judge, time.Second, zap.NewNop())
}

// --- Tests ---

func TestEvaluate_WeightedOverall(t *testing.T) {
	// Full diversity adds 3 to the judged vocabulary score: 17 becomes 20.
	// 25/30*0.3 + 20/30*0.3 + 32/40*0.4 = 0.77.
	judge := &mockJudge{scores: map[domain.Dimension]float64{
		domain.DimensionGrammar:    25,
		domain.DimensionVocabulary: 17,
		domain.DimensionContent:    32,
	}}
	p := newTestPipeline(judge)

	result, err := p.Evaluate(context.Background(), cleanEssay, testPrompt(), domain.DefaultRubricWeights())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Overall != 77.0 {
		t.Errorf("Overall = %v, want 77.0", result.Overall)
	}
	if result.Grammar.Score != 25 {
		t.Errorf("Grammar.Score = %v, want 25", result.Grammar.Score)
	}
	if result.Vocabulary.Score != 20 {
		t.Errorf("Vocabulary.Score = %v, want 20", result.Vocabulary.Score)
	}
	if result.Content.Score != 32 {
		t.Errorf("Content.Score = %v, want 32", result.Content.Score)
	}
	if result.IsDegraded() {
		t.Errorf("result flagged degraded: %+v", result)
	}
	if got := judge.callCount(); got != 3 {
		t.Errorf("judge called %d times, want 3", got)
	}
	if result.WordCount != 27 {
		t.Errorf("WordCount = %d, want 27", result.WordCount)
	}
	if !result.LengthCompliant {
		t.Error("expected length compliance")
	}
	if result.Feedback == "" {
		t.Error("expected content feedback")
	}
}

func TestEvaluate_GrammarDegradesOnJudgeFailure(t *testing.T) {
	judge := &mockJudge{
		scores: map[domain.Dimension]float64{
			domain.DimensionVocabulary: 20,
			domain.DimensionContent:    30,
		},
		errs: map[domain.Dimension]error{
			domain.DimensionGrammar: errors.New("timeout"),
		},
	}
	p := newTestPipeline(judge)

	// Two agreement issues: "He are" and "She have".
	essay := "He are happy about school. She have a dog at home."
	result, err := p.Evaluate(context.Background(), essay, testPrompt(), domain.DefaultRubricWeights())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Grammar.Score != 20 {
		t.Errorf("degraded Grammar.Score = %v, want 30 - 2*5 = 20", result.Grammar.Score)
	}
	if len(result.Degraded) != 1 || result.Degraded[0] != domain.DimensionGrammar {
		t.Errorf("Degraded = %v, want [grammar]", result.Degraded)
	}
	if len(result.GrammarErrors) != 2 {
		t.Errorf("GrammarErrors = %v, want 2 findings", result.GrammarErrors)
	}
	if !result.IsDegraded() {
		t.Error("expected degraded result")
	}
}

func TestEvaluate_ContentUnavailableRenormalizes(t *testing.T) {
	// Grammar 25 and vocabulary 20 over renormalized weights:
	// (25/30*0.3 + 20/30*0.3) / 0.6 * 100 = 75.0.
	judge := &mockJudge{
		scores: map[domain.Dimension]float64{
			domain.DimensionGrammar:    25,
			domain.DimensionVocabulary: 17,
		},
		errs: map[domain.Dimension]error{
			domain.DimensionContent: errors.New("provider down"),
		},
	}
	p := newTestPipeline(judge)

	result, err := p.Evaluate(context.Background(), cleanEssay, testPrompt(), domain.DefaultRubricWeights())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Overall != 75.0 {
		t.Errorf("Overall = %v, want 75.0", result.Overall)
	}
	if len(result.Unavailable) != 1 || result.Unavailable[0] != domain.DimensionContent {
		t.Errorf("Unavailable = %v, want [content]", result.Unavailable)
	}
	if result.Content.Score != 0 {
		t.Errorf("Content.Score = %v, want 0", result.Content.Score)
	}
	if len(result.Content.Issues) == 0 {
		t.Error("expected an explicit unavailability note on the content dimension")
	}
	// Fallback feedback replaces the content judge's.
	if !strings.Contains(result.Feedback, "unavailable") {
		t.Errorf("Feedback = %q, want the fallback text", result.Feedback)
	}
}

func TestEvaluate_LengthViolationStillScores(t *testing.T) {
	judge := &mockJudge{scores: map[domain.Dimension]float64{
		domain.DimensionGrammar:    25,
		domain.DimensionVocabulary: 17,
		domain.DimensionContent:    32,
	}}
	p := newTestPipeline(judge)

	weights, err := domain.NewRubricWeights(0.3, 0.3, 0.4, 30, 500)
	if err != nil {
		t.Fatal(err)
	}
	result, err := p.Evaluate(context.Background(), cleanEssay, testPrompt(), weights)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.LengthCompliant {
		t.Error("27 words against a 30-word minimum should not be compliant")
	}
	if result.Overall != 77.0 {
		t.Errorf("Overall = %v, want 77.0 despite the length violation", result.Overall)
	}
	last := result.Suggestions[len(result.Suggestions)-1]
	if !strings.Contains(last, "between 30 and 500") {
		t.Errorf("last suggestion = %q, want the length advisory", last)
	}
}

func TestEvaluate_RejectsInvalidInput(t *testing.T) {
	judge := &mockJudge{}
	p := newTestPipeline(judge)
	weights := domain.DefaultRubricWeights()

	if _, err := p.Evaluate(context.Background(), "   ", testPrompt(), weights); !errors.Is(err, domain.ErrEmptyEssay) {
		t.Errorf("blank essay: expected ErrEmptyEssay, got %v", err)
	}
	if _, err := p.Evaluate(context.Background(), cleanEssay, domain.PromptRecord{}, weights); !errors.Is(err, domain.ErrMissingPrompt) {
		t.Errorf("absent prompt: expected ErrMissingPrompt, got %v", err)
	}

	bad := weights
	bad.Content = 0.5 // sums to 1.1
	if _, err := p.Evaluate(context.Background(), cleanEssay, testPrompt(), bad); !errors.Is(err, domain.ErrInvalidRubric) {
		t.Errorf("bad weights: expected ErrInvalidRubric, got %v", err)
	}

	if got := judge.callCount(); got != 0 {
		t.Errorf("judge called %d times on rejected input, want 0", got)
	}
}

func TestEvaluate_SuggestionsCarryDimensionTags(t *testing.T) {
	judge := &mockJudge{
		scores: map[domain.Dimension]float64{
			domain.DimensionVocabulary: 20,
			domain.DimensionContent:    30,
		},
		errs: map[domain.Dimension]error{
			domain.DimensionGrammar: errors.New("timeout"),
		},
	}
	p := newTestPipeline(judge)

	result, err := p.Evaluate(context.Background(), cleanEssay, testPrompt(), domain.DefaultRubricWeights())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	found := false
	for _, s := range result.Suggestions {
		if strings.HasPrefix(s, "grammar: ") {
			found = true
		}
	}
	if !found {
		t.Errorf("Suggestions = %v, want a grammar-tagged entry", result.Suggestions)
	}
}
