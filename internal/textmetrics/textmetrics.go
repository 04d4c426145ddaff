// Package textmetrics provides deterministic essay analyzers: counts,
// lexical diversity, and a best-effort rule-based grammar scan. No external
// calls; the same input always yields the same output.
package textmetrics

import (
	"fmt"
	"strings"
	"unicode"
)

// Words tokenizes text into word forms, stripping surrounding punctuation.
func Words(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
		})
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

// WordCount counts word tokens.
func WordCount(text string) int {
	return len(Words(text))
}

// SentenceCount counts sentences by terminal punctuation. Text with words
// but no terminator counts as one sentence.
func SentenceCount(text string) int {
	count := 0
	inSentence := false
	for _, r := range text {
		switch {
		case r == '.' || r == '!' || r == '?':
			if inSentence {
				count++
				inSentence = false
			}
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			inSentence = true
		}
	}
	if inSentence {
		count++
	}
	return count
}

// LexicalDiversity is the ratio of unique case-insensitive word forms to
// total words. Returns 0 for empty text.
func LexicalDiversity(text string) float64 {
	words := Words(text)
	if len(words) == 0 {
		return 0
	}
	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[strings.ToLower(w)] = struct{}{}
	}
	return float64(len(unique)) / float64(len(words))
}

// basicWords is the stop set used to estimate the share of non-trivial
// vocabulary in an essay.
var basicWords = map[string]struct{}{
	"i": {}, "you": {}, "he": {}, "she": {}, "it": {}, "we": {}, "they": {},
	"is": {}, "am": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
	"have": {}, "has": {}, "had": {}, "do": {}, "does": {}, "did": {},
	"a": {}, "an": {}, "the": {}, "and": {}, "but": {}, "or": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
}

// VocabularyProfile summarizes vocabulary usage.
type VocabularyProfile struct {
	WordCount     int
	UniqueWords   int
	Diversity     float64
	AdvancedRatio float64
}

// AnalyzeVocabulary computes the vocabulary profile of the text.
func AnalyzeVocabulary(text string) VocabularyProfile {
	words := Words(text)
	if len(words) == 0 {
		return VocabularyProfile{}
	}

	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[strings.ToLower(w)] = struct{}{}
	}

	advanced := 0
	for w := range unique {
		if _, basic := basicWords[w]; !basic {
			advanced++
		}
	}

	return VocabularyProfile{
		WordCount:     len(words),
		UniqueWords:   len(unique),
		Diversity:     float64(len(unique)) / float64(len(words)),
		AdvancedRatio: float64(advanced) / float64(len(unique)),
	}
}

// PatternIssue is one finding from the rule-based grammar scan.
type PatternIssue struct {
	Position    int // word index of the finding
	Description string
}

// singularSubjects take third-person singular verb forms.
var singularSubjects = map[string]struct{}{"he": {}, "she": {}, "it": {}}

// pluralSubjects never pair with is/was/has/does.
var pluralSubjects = map[string]struct{}{"we": {}, "they": {}, "you": {}}

// DetectPatternIssues scans for a fixed set of common error patterns:
// repeated words, pronoun/be-verb agreement, and double determiners. It is
// best-effort, never fails on malformed input, only returns fewer findings.
func DetectPatternIssues(text string) []PatternIssue {
	words := Words(text)
	var issues []PatternIssue

	lower := make([]string, len(words))
	for i, w := range words {
		lower[i] = strings.ToLower(w)
	}

	for i := 0; i < len(lower); i++ {
		// Repeated consecutive word.
		if i > 0 && lower[i] == lower[i-1] {
			issues = append(issues, PatternIssue{
				Position:    i,
				Description: fmt.Sprintf("repeated word %q", lower[i]),
			})
			continue
		}

		if i+1 >= len(lower) {
			continue
		}
		next := lower[i+1]

		// Pronoun / be-verb agreement.
		if _, ok := singularSubjects[lower[i]]; ok {
			switch next {
			case "are", "were", "have", "don't", "do":
				issues = append(issues, PatternIssue{
					Position:    i,
					Description: fmt.Sprintf("subject-verb agreement: %q %q", lower[i], next),
				})
			}
		}
		if _, ok := pluralSubjects[lower[i]]; ok {
			switch next {
			case "is", "was", "has", "doesn't", "does":
				issues = append(issues, PatternIssue{
					Position:    i,
					Description: fmt.Sprintf("subject-verb agreement: %q %q", lower[i], next),
				})
			}
		}
		if lower[i] == "i" {
			switch next {
			case "is", "are", "were", "has", "does", "doesn't":
				issues = append(issues, PatternIssue{
					Position:    i,
					Description: fmt.Sprintf("subject-verb agreement: %q %q", lower[i], next),
				})
			}
		}

		// Double determiner ("a the book", "the a book").
		if isDeterminer(lower[i]) && isDeterminer(next) {
			issues = append(issues, PatternIssue{
				Position:    i,
				Description: fmt.Sprintf("double determiner: %q %q", lower[i], next),
			})
		}
	}

	return issues
}

func isDeterminer(w string) bool {
	switch w {
	case "a", "an", "the":
		return true
	}
	return false
}
