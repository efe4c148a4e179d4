package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chadd28/hackrice-15-sub000/internal/storage/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	client, err := NewClient(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	require.NoError(t, client.InitSchema())
	return client
}

func record(id, questionID, sessionID string, score float64) *models.EvaluationRecord {
	return &models.EvaluationRecord{
		ID:                 id,
		QuestionID:         questionID,
		SessionID:          sessionID,
		AnswerText:         "some answer",
		SemanticSimilarity: score,
		KeywordCoverage:    score,
		CombinedScore:      score,
		Band:               "good",
		IsCorrect:          score >= 0.7,
		CreatedAt:          time.Now(),
	}
}

func TestInsertAndFetchEvaluations(t *testing.T) {
	client := newTestClient(t)

	require.NoError(t, client.InsertEvaluation(record("a", "1", "s1", 0.8)))
	require.NoError(t, client.InsertEvaluation(record("b", "2", "s1", 0.4)))
	require.NoError(t, client.InsertEvaluation(record("c", "1", "s2", 0.9)))

	records, err := client.GetRecentEvaluations("s1", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "good", records[0].Band)
	assert.True(t, records[0].IsCorrect || records[1].IsCorrect)
}

func TestGetRecentEvaluationsHonorsLimit(t *testing.T) {
	client := newTestClient(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, client.InsertEvaluation(record(string(rune('a'+i)), "1", "s", 0.5)))
	}

	records, err := client.GetRecentEvaluations("s", 3)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestGetQuestionAggregates(t *testing.T) {
	client := newTestClient(t)

	require.NoError(t, client.InsertEvaluation(record("a", "1", "s", 0.8)))
	require.NoError(t, client.InsertEvaluation(record("b", "1", "s", 0.6)))
	require.NoError(t, client.InsertEvaluation(record("c", "2", "s", 0.9)))

	aggregates, err := client.GetQuestionAggregates()
	require.NoError(t, err)
	require.Len(t, aggregates, 2)

	assert.Equal(t, "1", aggregates[0].QuestionID)
	assert.Equal(t, 2, aggregates[0].Evaluations)
	assert.InDelta(t, 0.7, aggregates[0].AvgScore, 1e-9)
	assert.Equal(t, 1, aggregates[0].CorrectCount)
}
