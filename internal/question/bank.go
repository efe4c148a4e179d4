// Package question owns the static interview question bank: loading it from
// configuration, validating records, and exposing read-only views.
package question

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/chadd28/hackrice-15-sub000/pkg/logger"
)

// MinReferenceAnswerLength is the minimum trimmed length a reference answer
// needs to produce a meaningful embedding.
const MinReferenceAnswerLength = 10

type Question struct {
	ID                 string    `json:"id"`
	Role               string    `json:"role"`
	Text               string    `json:"question"`
	ReferenceAnswer    string    `json:"reference_answer"`
	Keywords           []string  `json:"keywords"`
	ReferenceEmbedding []float32 `json:"-"`
}

// RecordError describes one rejected record. Rejections are collected, not
// fatal; only an empty surviving set is.
type RecordError struct {
	Index  int
	ID     string
	Reason string
}

func (e RecordError) String() string {
	return fmt.Sprintf("record %d (id=%q): %s", e.Index, e.ID, e.Reason)
}

// LoadResult is the tagged outcome of loading a bank: the validated set plus
// every per-record failure.
type LoadResult struct {
	Questions []*Question
	Rejected  []RecordError
}

// LoadBank reads and validates a JSON question bank file.
func LoadBank(path string) (*LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read question bank %s: %w", path, err)
	}
	return ParseBank(data)
}

// ParseBank validates raw JSON records into a LoadResult.
func ParseBank(data []byte) (*LoadResult, error) {
	var records []Question
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse question bank: %w", err)
	}

	result := &LoadResult{}
	seen := make(map[string]bool)

	for i := range records {
		q := records[i]

		if reason, ok := validate(&q, seen); !ok {
			result.Rejected = append(result.Rejected, RecordError{Index: i, ID: q.ID, Reason: reason})
			logger.Warn("Dropping invalid question record",
				zap.Int("index", i),
				zap.String("id", q.ID),
				zap.String("reason", reason),
			)
			continue
		}

		seen[q.ID] = true
		copied := q
		result.Questions = append(result.Questions, &copied)
	}

	logger.Info("Question bank loaded",
		zap.Int("valid", len(result.Questions)),
		zap.Int("rejected", len(result.Rejected)),
	)

	return result, nil
}

func validate(q *Question, seen map[string]bool) (string, bool) {
	if strings.TrimSpace(q.ID) == "" {
		return "missing id", false
	}
	if seen[q.ID] {
		return "duplicate id", false
	}
	if strings.TrimSpace(q.Text) == "" {
		return "missing question text", false
	}
	if len(strings.TrimSpace(q.ReferenceAnswer)) < MinReferenceAnswerLength {
		return fmt.Sprintf("reference answer shorter than %d characters", MinReferenceAnswerLength), false
	}
	return "", true
}
