package embedding

import (
	"math"

	"go.uber.org/zap"

	"github.com/chadd28/hackrice-15-sub000/pkg/errs"
	"github.com/chadd28/hackrice-15-sub000/pkg/logger"
)

// DefaultSimilarityThreshold is the minimum similarity FindMostSimilar
// accepts when callers have no better value.
const DefaultSimilarityThreshold = 0.5

// CosineSimilarity returns dot(a,b) / (||a||*||b||), clamped to [0,1].
// Opposite-direction vectors score 0, not negative; a zero-norm input also
// scores 0 rather than dividing by zero.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, errs.Validationf("vector length mismatch: %d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if similarity < 0 {
		return 0, nil
	}
	if similarity > 1 {
		return 1, nil
	}
	return similarity, nil
}

// Match is the winner of a FindMostSimilar scan.
type Match struct {
	Index      int
	Similarity float64
}

// FindMostSimilar linearly scans candidates for the best cosine match that
// meets threshold. Candidates whose comparison fails (bad dimensionality)
// are skipped; the skip count is logged so partial failure is visible.
func FindMostSimilar(query []float32, candidates [][]float32, threshold float64) (Match, bool) {
	best := Match{Index: -1}
	skipped := 0

	for i, candidate := range candidates {
		similarity, err := CosineSimilarity(query, candidate)
		if err != nil {
			skipped++
			logger.Warn("Skipping candidate in similarity scan",
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}
		if similarity > best.Similarity || best.Index == -1 {
			best = Match{Index: i, Similarity: similarity}
		}
	}

	if skipped > 0 {
		logger.Warn("Similarity scan completed with skipped candidates",
			zap.Int("skipped", skipped),
			zap.Int("total", len(candidates)),
		)
	}

	if best.Index == -1 || best.Similarity < threshold {
		return Match{Index: -1}, false
	}
	return best, true
}
