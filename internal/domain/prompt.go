package domain

import (
	"fmt"
	"strings"
)

// GradeTier is an ordered school level. The tier fixes the expected
// word-count range for an essay.
type GradeTier string

// Grade tiers, lowest first.
const (
	TierPrimary GradeTier = "primary"
	TierMiddle  GradeTier = "middle"
	TierHigh    GradeTier = "high"
)

// IsValid reports whether the tier is one of the known school levels.
func (t GradeTier) IsValid() bool {
	switch t {
	case TierPrimary, TierMiddle, TierHigh:
		return true
	}
	return false
}

// WordBounds returns the min/max essay length for the tier.
func (t GradeTier) WordBounds() (minWords, maxWords int) {
	switch t {
	case TierPrimary:
		return 30, 100
	case TierHigh:
		return 150, 300
	default:
		return 80, 180
	}
}

// DefaultLevel returns the proficiency level typically paired with the tier.
func (t GradeTier) DefaultLevel() Proficiency {
	switch t {
	case TierPrimary:
		return LevelBeginner
	case TierHigh:
		return LevelAdvanced
	default:
		return LevelIntermediate
	}
}

// ParseGradeTier normalizes loose grade identifiers such as
// "primary_school_5" or "High" to a tier, case-insensitively.
func ParseGradeTier(s string) (GradeTier, bool) {
	s = strings.ToLower(s)
	switch {
	case strings.HasPrefix(s, "primary"):
		return TierPrimary, true
	case strings.HasPrefix(s, "middle"):
		return TierMiddle, true
	case strings.HasPrefix(s, "high"):
		return TierHigh, true
	}
	return "", false
}

// Proficiency is a learner proficiency level.
type Proficiency string

// Proficiency levels.
const (
	LevelBeginner     Proficiency = "beginner"
	LevelIntermediate Proficiency = "intermediate"
	LevelAdvanced     Proficiency = "advanced"
)

// IsValid reports whether the proficiency level is known.
func (p Proficiency) IsValid() bool {
	switch p {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

// ParseProficiency normalizes loose level identifiers.
func ParseProficiency(s string) (Proficiency, bool) {
	switch strings.ToLower(s) {
	case "beginner", "basic", "elementary":
		return LevelBeginner, true
	case "intermediate", "medium":
		return LevelIntermediate, true
	case "advanced", "upper":
		return LevelAdvanced, true
	}
	return "", false
}

// PromptRecord is a stored writing task with metadata and a precomputed
// embedding. The embedding is computed once at insertion and immutable
// thereafter.
type PromptRecord struct {
	ID           string
	Title        string
	Prompt       string
	Grade        GradeTier
	Level        Proficiency
	Genre        string
	Topic        string
	Requirements []string
	Keywords     []string
	Embedding    []float32
	MinWords     int
	MaxWords     int
}

// EmbeddingText renders the record as the text that gets vectorized.
func (r *PromptRecord) EmbeddingText() string {
	var b strings.Builder
	b.WriteString("Title: " + r.Title + "\n")
	b.WriteString("Prompt: " + r.Prompt + "\n")
	b.WriteString("Genre: " + r.Genre + "\n")
	b.WriteString("Topic: " + r.Topic + "\n")
	for _, req := range r.Requirements {
		b.WriteString("- " + req + "\n")
	}
	if len(r.Keywords) > 0 {
		b.WriteString("Keywords: " + strings.Join(r.Keywords, ", "))
	}
	return b.String()
}

// EvaluationCriteria filters prompt retrieval. Genre and topic are
// optional; empty means unconstrained. Never mutated after construction.
type EvaluationCriteria struct {
	Grade GradeTier
	Level Proficiency
	Genre string
	Topic string
}

// Validate checks the mandatory criteria fields.
func (c EvaluationCriteria) Validate() error {
	if !c.Grade.IsValid() {
		return fmt.Errorf("%w: unknown grade tier %q", ErrInvalidCriteria, c.Grade)
	}
	if !c.Level.IsValid() {
		return fmt.Errorf("%w: unknown proficiency level %q", ErrInvalidCriteria, c.Level)
	}
	return nil
}
