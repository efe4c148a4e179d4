package evaluation

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chadd28/hackrice-15-sub000/internal/cache/embedcache"
	"github.com/chadd28/hackrice-15-sub000/internal/embedding"
	"github.com/chadd28/hackrice-15-sub000/internal/question"
	"github.com/chadd28/hackrice-15-sub000/pkg/errs"
	"github.com/chadd28/hackrice-15-sub000/pkg/utils"
)

// fakeProvider returns canned vectors by normalized text, falling back to a
// default vector for anything unknown.
type fakeProvider struct {
	vectors     map[string][]float32
	fallback    []float32
	err         error
	singleCalls int
	batchCalls  int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		vectors:  make(map[string][]float32),
		fallback: []float32{0.5, 0.5},
	}
}

func (f *fakeProvider) lookup(text string) []float32 {
	if v, ok := f.vectors[utils.NormalizeText(text)]; ok {
		return v
	}
	return f.fallback
}

func (f *fakeProvider) GenerateEmbedding(ctx context.Context, text string, purpose embedding.Purpose) ([]float32, error) {
	f.singleCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.lookup(text), nil
}

func (f *fakeProvider) GenerateBatchEmbeddings(ctx context.Context, texts []string, purpose embedding.Purpose) ([][]float32, error) {
	f.batchCalls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.lookup(t)
	}
	return out, nil
}

func (f *fakeProvider) Model() string { return "fake-model" }

const (
	refArrays = "Arrays provide O(1) index access to elements"
	refHash   = "A hash map stores key-value pairs with average O(1) lookup"
)

func testBank() *question.LoadResult {
	return &question.LoadResult{
		Questions: []*question.Question{
			{ID: "1", Role: "swe", Text: "Array access complexity?", ReferenceAnswer: refArrays,
				Keywords: []string{"array", "index", "O(1)"}},
			{ID: "2", Role: "data", Text: "Explain hash maps.", ReferenceAnswer: refHash,
				Keywords: []string{}},
		},
	}
}

func staticLoader(result *question.LoadResult) BankLoader {
	return func() (*question.LoadResult, error) { return result, nil }
}

func newTestCache(t *testing.T) *embedcache.Cache {
	t.Helper()
	c := embedcache.New(embedcache.NewFileStore(filepath.Join(t.TempDir(), "cache.json")), "fake-model")
	// Drain background persists before the temp dir is removed.
	t.Cleanup(c.Flush)
	return c
}

func readyEngine(t *testing.T, provider *fakeProvider) *Engine {
	t.Helper()
	e := NewEngine(provider, newTestCache(t), staticLoader(testBank()), DefaultScoringConfig())
	require.NoError(t, e.Initialize(context.Background()))
	return e
}

func TestInitializeHappyPath(t *testing.T) {
	provider := newFakeProvider()
	e := readyEngine(t, provider)

	status := e.Status()
	assert.True(t, status.Ready)
	assert.Equal(t, "ready", status.State)
	assert.Equal(t, 2, status.QuestionCount)
	assert.Equal(t, 2, status.EmbeddingDimension)
	assert.Equal(t, 1, provider.batchCalls)
}

func TestInitializeTwiceIsNoop(t *testing.T) {
	provider := newFakeProvider()
	e := readyEngine(t, provider)

	require.NoError(t, e.Initialize(context.Background()))
	assert.Equal(t, 1, provider.batchCalls)
}

func TestInitializeWritesReferenceEmbeddingsToCache(t *testing.T) {
	provider := newFakeProvider()
	cache := newTestCache(t)
	e := NewEngine(provider, cache, staticLoader(testBank()), DefaultScoringConfig())

	require.NoError(t, e.Initialize(context.Background()))

	entry, ok := cache.GetQuestion("1", refArrays)
	require.True(t, ok)
	assert.Equal(t, provider.fallback, entry.Vector)
}

func TestInitializeReusesCacheHits(t *testing.T) {
	provider := newFakeProvider()
	cache := newTestCache(t)
	cache.StoreQuestionEmbeddings([]embedcache.BatchItem{
		{QuestionID: "1", Text: refArrays, Vector: []float32{1, 0}},
		{QuestionID: "2", Text: refHash, Vector: []float32{0, 1}},
	})

	e := NewEngine(provider, cache, staticLoader(testBank()), DefaultScoringConfig())
	require.NoError(t, e.Initialize(context.Background()))

	assert.Zero(t, provider.batchCalls, "cache hits must not trigger provider calls")
}

func TestInitializeRecomputesWhenReferenceTextChanged(t *testing.T) {
	provider := newFakeProvider()
	cache := newTestCache(t)
	cache.StoreQuestionEmbeddings([]embedcache.BatchItem{
		{QuestionID: "1", Text: "an outdated reference answer", Vector: []float32{9, 9}},
	})

	e := NewEngine(provider, cache, staticLoader(testBank()), DefaultScoringConfig())
	require.NoError(t, e.Initialize(context.Background()))

	assert.Equal(t, 1, provider.batchCalls)
	entry, ok := cache.GetQuestion("1", refArrays)
	require.True(t, ok)
	assert.Equal(t, provider.fallback, entry.Vector)
}

func TestInitializeEmptyBankIsFatal(t *testing.T) {
	e := NewEngine(newFakeProvider(), newTestCache(t),
		staticLoader(&question.LoadResult{}), DefaultScoringConfig())

	err := e.Initialize(context.Background())

	assert.ErrorIs(t, err, errs.ErrInitialization)
	assert.Equal(t, StateFailed, e.CurrentState())
}

func TestInitializeProviderFailureIsFatal(t *testing.T) {
	provider := newFakeProvider()
	provider.err = errors.New("provider down")
	e := NewEngine(provider, newTestCache(t), staticLoader(testBank()), DefaultScoringConfig())

	err := e.Initialize(context.Background())

	assert.ErrorIs(t, err, errs.ErrInitialization)
	assert.Equal(t, StateFailed, e.CurrentState())

	_, evalErr := e.EvaluateAnswer(context.Background(), "1", "anything at all", nil)
	assert.ErrorIs(t, evalErr, errs.ErrState)
}

func TestEvaluateBeforeInitializeIsStateError(t *testing.T) {
	e := NewEngine(newFakeProvider(), newTestCache(t), staticLoader(testBank()), DefaultScoringConfig())

	_, err := e.EvaluateAnswer(context.Background(), "1", "a reasonable answer", nil)

	assert.ErrorIs(t, err, errs.ErrState)
}

func TestEvaluateShortAnswerSkipsProvider(t *testing.T) {
	provider := newFakeProvider()
	e := readyEngine(t, provider)
	provider.singleCalls = 0

	result, err := e.EvaluateAnswer(context.Background(), "1", "  ok  ", nil)

	require.NoError(t, err)
	assert.Zero(t, result.CombinedScore)
	assert.False(t, result.IsCorrect)
	assert.Equal(t, BandPoor, result.Band)
	assert.NotEmpty(t, result.Suggestions)
	assert.Zero(t, provider.singleCalls, "short answers must not cost an embedding call")
}

func TestEvaluateUnknownQuestion(t *testing.T) {
	e := readyEngine(t, newFakeProvider())

	_, err := e.EvaluateAnswer(context.Background(), "999", "a long enough answer", nil)

	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestEvaluateAnswerEndToEnd(t *testing.T) {
	provider := newFakeProvider()
	candidate := "An array lets you access elements by index in constant time"
	provider.vectors[utils.NormalizeText(refArrays)] = []float32{0.95, 0.05}
	provider.vectors[utils.NormalizeText(candidate)] = []float32{0.90, 0.10}

	e := readyEngine(t, provider)

	result, err := e.EvaluateAnswer(context.Background(), "1", candidate, nil)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.KeywordCoverage, 2.0/3.0)
	assert.ElementsMatch(t, []string{"array", "index"}, result.MatchedKeywords)
	assert.Contains(t, []Band{BandGood, BandExcellent}, result.Band)
	assert.True(t, result.IsCorrect)
	assert.InDelta(t, result.CombinedScore*10, result.DisplayScore, 0.05)
}

func TestEvaluateEmptyKeywordListScoresZeroCoverage(t *testing.T) {
	provider := newFakeProvider()
	e := readyEngine(t, provider)

	result, err := e.EvaluateAnswer(context.Background(), "2", "hash maps store key-value pairs", nil)

	require.NoError(t, err)
	assert.Zero(t, result.KeywordCoverage)
	assert.Empty(t, result.MatchedKeywords)
}

func TestEvaluateWeightOverrides(t *testing.T) {
	provider := newFakeProvider()
	// Candidate orthogonal to reference: semantic similarity 0.
	candidate := "array index O(1) lookup detail"
	provider.vectors[utils.NormalizeText(refArrays)] = []float32{1, 0}
	provider.vectors[utils.NormalizeText(candidate)] = []float32{0, 1}

	e := readyEngine(t, provider)

	keywordOnly := DefaultScoringConfig()
	keywordOnly.SemanticWeight = 0
	keywordOnly.KeywordWeight = 1

	result, err := e.EvaluateAnswer(context.Background(), "1", candidate, &keywordOnly)

	require.NoError(t, err)
	assert.Zero(t, result.SemanticSimilarity)
	assert.Equal(t, 1.0, result.KeywordCoverage)
	assert.Equal(t, 1.0, result.CombinedScore, "score must depend only on coverage")
	assert.Equal(t, BandExcellent, result.Band)
}

func TestEvaluateProviderErrorPropagates(t *testing.T) {
	provider := newFakeProvider()
	e := readyEngine(t, provider)
	provider.err = errs.Providerf("embedding service down")

	_, err := e.EvaluateAnswer(context.Background(), "1", "a long enough answer", nil)

	assert.ErrorIs(t, err, errs.ErrProvider)
}

func TestEvaluateBatchDegradesFailedItems(t *testing.T) {
	provider := newFakeProvider()
	e := readyEngine(t, provider)

	results := e.EvaluateBatch(context.Background(), []BatchItem{
		{QuestionID: "1", Answer: "arrays give O(1) index access"},
		{QuestionID: "does-not-exist", Answer: "whatever answer"},
		{QuestionID: "2", Answer: "hash maps store key-value pairs"},
	}, nil)

	require.Len(t, results, 3)
	assert.Equal(t, "1", results[0].QuestionID)
	assert.Greater(t, results[0].CombinedScore, 0.0)

	assert.Equal(t, "does-not-exist", results[1].QuestionID)
	assert.Zero(t, results[1].CombinedScore)
	assert.False(t, results[1].IsCorrect)
	assert.Contains(t, results[1].Feedback, "technical problem")

	assert.Equal(t, "2", results[2].QuestionID)
}

func TestGetAllQuestionsPreservesOrderAndHidesVectors(t *testing.T) {
	e := readyEngine(t, newFakeProvider())

	views := e.GetAllQuestions()

	require.Len(t, views, 2)
	assert.Equal(t, "1", views[0].ID)
	assert.Equal(t, "2", views[1].ID)
	assert.Equal(t, refArrays, views[0].ReferenceAnswer)
}

func TestGetQuestionsByRole(t *testing.T) {
	e := readyEngine(t, newFakeProvider())

	assert.Len(t, e.GetQuestionsByRole("SWE"), 1)
	assert.Len(t, e.GetQuestionsByRole("data"), 1)
	assert.Empty(t, e.GetQuestionsByRole("designer"))
}

func TestGetQuestionUnknownID(t *testing.T) {
	e := readyEngine(t, newFakeProvider())

	_, err := e.GetQuestion("999")

	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestMatchKeywordsCaseInsensitive(t *testing.T) {
	matched, coverage := matchKeywords(
		[]string{"Array", "INDEX", "O(1)"},
		"an array indexed with o(1) semantics",
	)

	assert.Equal(t, 1.0, coverage)
	assert.Len(t, matched, 3)
}

func TestMatchKeywordsEmptyList(t *testing.T) {
	matched, coverage := matchKeywords(nil, "any answer")

	assert.Zero(t, coverage)
	assert.Empty(t, matched)
}

func TestClassifyBandBoundaries(t *testing.T) {
	cfg := DefaultScoringConfig()

	assert.Equal(t, BandExcellent, classifyBand(0.85, cfg))
	assert.Equal(t, BandGood, classifyBand(0.84, cfg))
	assert.Equal(t, BandGood, classifyBand(0.70, cfg))
	assert.Equal(t, BandPartial, classifyBand(0.69, cfg))
	assert.Equal(t, BandPartial, classifyBand(0.50, cfg))
	assert.Equal(t, BandPoor, classifyBand(0.49, cfg))
}
