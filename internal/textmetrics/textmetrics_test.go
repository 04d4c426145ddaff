package textmetrics

import (
	"strings"
	"testing"
)

func TestWordCount(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"", 0},
		{"   \n\t ", 0},
		{"Hello world", 2},
		{"Hello, world!", 2},
		{"It's a fine day.", 4},
		{"one two  three\nfour", 4},
		{"... !!! ???", 0},
	}
	for _, c := range cases {
		if got := WordCount(c.text); got != c.want {
			t.Errorf("WordCount(%q) = %d, want %d", c.text, got, c.want)
		}
	}
}

func TestSentenceCount(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"", 0},
		{"Hello world", 1},
		{"Hello. World.", 2},
		{"Really?! Yes.", 2},
		{"One. Two! Three? Four", 4},
	}
	for _, c := range cases {
		if got := SentenceCount(c.text); got != c.want {
			t.Errorf("SentenceCount(%q) = %d, want %d", c.text, got, c.want)
		}
	}
}

func TestLexicalDiversity(t *testing.T) {
	if got := LexicalDiversity(""); got != 0 {
		t.Errorf("empty text diversity = %v, want 0", got)
	}
	if got := LexicalDiversity("cat cat cat cat"); got != 0.25 {
		t.Errorf("repeated word diversity = %v, want 0.25", got)
	}
	if got := LexicalDiversity("The quick brown fox"); got != 1.0 {
		t.Errorf("all-unique diversity = %v, want 1.0", got)
	}
	// Case-insensitive: "The" and "the" are one form.
	if got := LexicalDiversity("The dog saw the cat"); got != 0.8 {
		t.Errorf("mixed-case diversity = %v, want 0.8", got)
	}
}

func TestAnalyzeVocabulary(t *testing.T) {
	p := AnalyzeVocabulary("")
	if p.WordCount != 0 || p.Diversity != 0 {
		t.Errorf("empty text profile = %+v, want zeros", p)
	}

	p = AnalyzeVocabulary("I have a wonderful family")
	if p.WordCount != 5 {
		t.Errorf("WordCount = %d, want 5", p.WordCount)
	}
	if p.UniqueWords != 5 {
		t.Errorf("UniqueWords = %d, want 5", p.UniqueWords)
	}
	// "i", "have", "a" are basic; "wonderful", "family" are not.
	if p.AdvancedRatio != 0.4 {
		t.Errorf("AdvancedRatio = %v, want 0.4", p.AdvancedRatio)
	}
}

func TestDetectPatternIssues_RepeatedWord(t *testing.T) {
	issues := DetectPatternIssues("I like like apples")
	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %d: %v", len(issues), issues)
	}
	if issues[0].Position != 2 {
		t.Errorf("Position = %d, want 2", issues[0].Position)
	}
	if !strings.Contains(issues[0].Description, "repeated") {
		t.Errorf("Description = %q, want repeated-word finding", issues[0].Description)
	}
}

func TestDetectPatternIssues_Agreement(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"He are my friend", 1},
		{"She have a dog", 1},
		{"They is my friends", 1},
		{"I is happy", 1},
		{"He is my friend", 0},
		{"I was happy", 0},
		{"They are my friends", 0},
	}
	for _, c := range cases {
		if got := len(DetectPatternIssues(c.text)); got != c.want {
			t.Errorf("DetectPatternIssues(%q) found %d issues, want %d", c.text, got, c.want)
		}
	}
}

func TestDetectPatternIssues_DoubleDeterminer(t *testing.T) {
	issues := DetectPatternIssues("I saw a the dog")
	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %d: %v", len(issues), issues)
	}
	if !strings.Contains(issues[0].Description, "determiner") {
		t.Errorf("Description = %q, want double-determiner finding", issues[0].Description)
	}
}

func TestDetectPatternIssues_CleanText(t *testing.T) {
	text := "My family has four people. We like to play games together on weekends."
	if issues := DetectPatternIssues(text); len(issues) != 0 {
		t.Errorf("expected no issues, got %v", issues)
	}
}
