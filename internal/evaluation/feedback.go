package evaluation

import (
	"fmt"
	"math"
	"strings"
)

// Heuristic cutoffs for the cross-cutting suggestions: a semantically strong
// answer that misses the expected vocabulary, and its inverse.
const (
	highSimilarity = 0.75
	lowCoverage    = 0.4
	highCoverage   = 0.6
	lowSimilarity  = 0.5
)

var bandFeedback = map[Band]string{
	BandExcellent: "Excellent answer. You covered the core concepts accurately and completely.",
	BandGood:      "Good answer. You demonstrated solid understanding with minor gaps.",
	BandPartial:   "Partially correct. Your answer touches the right area but misses important points.",
	BandPoor:      "This answer misses the key concepts the question is looking for.",
}

// ToDisplayScale converts the canonical [0,1] combined score to the 0-10
// scale shown to candidates, rounded to one decimal. This is the only place
// presentation scaling happens.
func ToDisplayScale(combined float64) float64 {
	return math.Round(combined*100) / 10
}

func buildFeedback(band Band, keywords, matched []string, similarity, coverage float64) (string, []string) {
	suggestions := make([]string, 0, 3)

	missing := missingKeywords(keywords, matched)
	if len(missing) > 0 {
		suggestions = append(suggestions,
			fmt.Sprintf("Work these key concepts into your answer: %s.", strings.Join(missing, ", ")))
	}

	if similarity >= highSimilarity && coverage < lowCoverage && len(keywords) > 0 {
		suggestions = append(suggestions,
			"Your explanation is on topic but vague in places. Use more precise technical terminology.")
	}
	if coverage >= highCoverage && similarity < lowSimilarity {
		suggestions = append(suggestions,
			"You mention the right terms but the explanation wanders. Tighten the structure around a single clear line of reasoning.")
	}

	return bandFeedback[band], suggestions
}

func missingKeywords(keywords, matched []string) []string {
	matchedSet := make(map[string]bool, len(matched))
	for _, kw := range matched {
		matchedSet[strings.ToLower(kw)] = true
	}

	missing := make([]string, 0)
	for _, kw := range keywords {
		if strings.TrimSpace(kw) == "" {
			continue
		}
		if !matchedSet[strings.ToLower(kw)] {
			missing = append(missing, kw)
		}
	}
	return missing
}

// shortAnswerResult is the canned response for answers too short to score.
// The provider is never called for these.
func shortAnswerResult(questionID string) *Result {
	return &Result{
		QuestionID:      questionID,
		Band:            BandPoor,
		MatchedKeywords: []string{},
		Feedback:        "Your answer is too short to evaluate.",
		Suggestions: []string{
			"Expand your answer into at least a full sentence.",
			"Explain the core concept and back it up with an example.",
		},
	}
}

// degradedResult replaces a failed batch item so the batch always returns
// one result per input.
func degradedResult(questionID string) *Result {
	return &Result{
		QuestionID:      questionID,
		Band:            BandPoor,
		MatchedKeywords: []string{},
		Feedback:        "We hit a technical problem evaluating this answer. Please try again.",
		Suggestions:     []string{},
	}
}
