package content

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jdkato/prose/v2"
)

// Common posting boilerplate that carries no technical signal.
var keywordStopwords = map[string]bool{
	"experience": true, "team": true, "work": true, "role": true,
	"company": true, "job": true, "years": true, "ability": true,
	"skills": true, "candidate": true, "position": true, "people": true,
	"benefits": true, "salary": true, "opportunity": true, "employees": true,
	"day": true, "days": true, "time": true, "way": true, "things": true,
}

// SuggestKeywords extracts the most frequent nouns from text as candidate
// keywords, most frequent first.
func SuggestKeywords(text string, max int) ([]string, error) {
	doc, err := prose.NewDocument(text)
	if err != nil {
		return nil, fmt.Errorf("failed to tokenize text: %w", err)
	}

	counts := make(map[string]int)
	for _, token := range doc.Tokens() {
		if !strings.HasPrefix(token.Tag, "NN") {
			continue
		}
		word := strings.ToLower(strings.Trim(token.Text, ".,;:!?()\"'"))
		if len(word) < 3 || keywordStopwords[word] {
			continue
		}
		counts[word]++
	}

	keywords := make([]string, 0, len(counts))
	for word := range counts {
		keywords = append(keywords, word)
	}
	sort.Slice(keywords, func(i, j int) bool {
		if counts[keywords[i]] != counts[keywords[j]] {
			return counts[keywords[i]] > counts[keywords[j]]
		}
		return keywords[i] < keywords[j]
	})

	if max > 0 && len(keywords) > max {
		keywords = keywords[:max]
	}
	return keywords, nil
}
