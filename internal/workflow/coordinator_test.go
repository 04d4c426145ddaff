package workflow

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/fluentedge/essaylab/internal/domain"
)

// --- Mocks ---

type mockSelector struct {
	rec    domain.PromptRecord
	err    error
	called bool
}

func (m *mockSelector) SelectPrompt(_ context.Context, _ domain.EvaluationCriteria, _ string) (domain.PromptRecord, error) {
	m.called = true
	return m.rec, m.err
}

type mockEvaluator struct {
	result domain.GradingResult
	err    error
	called bool
}

func (m *mockEvaluator) Evaluate(_ context.Context, _ string, _ domain.PromptRecord, _ domain.RubricWeights) (domain.GradingResult, error) {
	m.called = true
	return m.result, m.err
}

// --- Tests ---

func TestSelectPrompt_Passthrough(t *testing.T) {
	selector := &mockSelector{rec: domain.PromptRecord{ID: "p1"}}
	c := New(selector, &mockEvaluator{}, zap.NewNop())

	criteria := domain.EvaluationCriteria{Grade: domain.TierPrimary, Level: domain.LevelBeginner}
	rec, err := c.SelectPrompt(context.Background(), criteria, "")
	if err != nil {
		t.Fatalf("SelectPrompt: %v", err)
	}
	if rec.ID != "p1" {
		t.Errorf("selected %q, want p1", rec.ID)
	}
}

func TestSelectPrompt_NoMatchPropagates(t *testing.T) {
	c := New(&mockSelector{err: domain.ErrNoMatch}, &mockEvaluator{}, zap.NewNop())

	criteria := domain.EvaluationCriteria{Grade: domain.TierPrimary, Level: domain.LevelBeginner}
	_, err := c.SelectPrompt(context.Background(), criteria, "")
	if !errors.Is(err, domain.ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}
}

func TestGradeEssay(t *testing.T) {
	evaluator := &mockEvaluator{result: domain.GradingResult{Overall: 77.0}}
	c := New(&mockSelector{}, evaluator, zap.NewNop())

	prompt := domain.PromptRecord{ID: "p1"}
	result, err := c.GradeEssay(context.Background(), "a fine essay", prompt, domain.DefaultRubricWeights())
	if err != nil {
		t.Fatalf("GradeEssay: %v", err)
	}
	if result.Overall != 77.0 {
		t.Errorf("Overall = %v, want 77.0", result.Overall)
	}
	if !evaluator.called {
		t.Error("expected Evaluate to be called")
	}
}

func TestGradeEssay_RejectsBeforeEvaluation(t *testing.T) {
	evaluator := &mockEvaluator{}
	c := New(&mockSelector{}, evaluator, zap.NewNop())
	weights := domain.DefaultRubricWeights()

	if _, err := c.GradeEssay(context.Background(), " \n ", domain.PromptRecord{ID: "p1"}, weights); !errors.Is(err, domain.ErrEmptyEssay) {
		t.Errorf("blank essay: expected ErrEmptyEssay, got %v", err)
	}
	if _, err := c.GradeEssay(context.Background(), "text", domain.PromptRecord{}, weights); !errors.Is(err, domain.ErrMissingPrompt) {
		t.Errorf("absent prompt: expected ErrMissingPrompt, got %v", err)
	}
	if evaluator.called {
		t.Error("Evaluate should not run on rejected input")
	}
}
