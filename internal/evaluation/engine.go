// Package evaluation scores candidate answers against the question bank's
// reference answers by blending embedding similarity with keyword coverage.
package evaluation

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/chadd28/hackrice-15-sub000/internal/cache/embedcache"
	"github.com/chadd28/hackrice-15-sub000/internal/embedding"
	"github.com/chadd28/hackrice-15-sub000/internal/question"
	"github.com/chadd28/hackrice-15-sub000/pkg/errs"
	"github.com/chadd28/hackrice-15-sub000/pkg/logger"
)

// MinAnswerLength is the trimmed length below which an answer is scored zero
// without an embedding call. Embedding two words costs real money and tells
// us nothing.
const MinAnswerLength = 5

type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type Band string

const (
	BandExcellent Band = "excellent"
	BandGood      Band = "good"
	BandPartial   Band = "partial"
	BandPoor      Band = "poor"
)

type ScoringConfig struct {
	SemanticWeight     float64 `json:"semantic_weight"`
	KeywordWeight      float64 `json:"keyword_weight"`
	ExcellentThreshold float64 `json:"excellent_threshold"`
	GoodThreshold      float64 `json:"good_threshold"`
	PartialThreshold   float64 `json:"partial_threshold"`
}

func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		SemanticWeight:     0.7,
		KeywordWeight:      0.3,
		ExcellentThreshold: 0.85,
		GoodThreshold:      0.70,
		PartialThreshold:   0.50,
	}
}

// Result is one scored answer. CombinedScore in [0,1] is the canonical
// value; DisplayScore is derived from it at the presentation boundary only.
type Result struct {
	QuestionID         string   `json:"question_id"`
	SemanticSimilarity float64  `json:"semantic_similarity"`
	KeywordCoverage    float64  `json:"keyword_coverage"`
	CombinedScore      float64  `json:"combined_score"`
	DisplayScore       float64  `json:"display_score"`
	Band               Band     `json:"band"`
	IsCorrect          bool     `json:"is_correct"`
	MatchedKeywords    []string `json:"matched_keywords"`
	Feedback           string   `json:"feedback"`
	Suggestions        []string `json:"suggestions"`
}

// BatchItem is one answer in a batch evaluation request.
type BatchItem struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

// QuestionView is the outward shape of a question. It never carries the
// embedding vector.
type QuestionView struct {
	ID              string   `json:"id"`
	Role            string   `json:"role"`
	Question        string   `json:"question"`
	ReferenceAnswer string   `json:"reference_answer"`
	Keywords        []string `json:"keywords"`
}

type Status struct {
	State              string        `json:"state"`
	Ready              bool          `json:"ready"`
	QuestionCount      int           `json:"question_count"`
	EmbeddingDimension int           `json:"embedding_dimension"`
	Config             ScoringConfig `json:"config"`
}

// Provider is what the engine needs from the embedding layer.
type Provider interface {
	GenerateEmbedding(ctx context.Context, text string, purpose embedding.Purpose) ([]float32, error)
	GenerateBatchEmbeddings(ctx context.Context, texts []string, purpose embedding.Purpose) ([][]float32, error)
	Model() string
}

// BankLoader supplies the question bank. Production loads a JSON file;
// tests inject records directly.
type BankLoader func() (*question.LoadResult, error)

func FileBankLoader(path string) BankLoader {
	return func() (*question.LoadResult, error) {
		return question.LoadBank(path)
	}
}

type Engine struct {
	provider Provider
	cache    *embedcache.Cache
	loadBank BankLoader
	cfg      ScoringConfig

	mu        sync.RWMutex
	state     State
	questions map[string]*question.Question
	order     []string
	dimension int
}

func NewEngine(provider Provider, cache *embedcache.Cache, loadBank BankLoader, cfg ScoringConfig) *Engine {
	if cfg == (ScoringConfig{}) {
		cfg = DefaultScoringConfig()
	}
	return &Engine{
		provider:  provider,
		cache:     cache,
		loadBank:  loadBank,
		cfg:       cfg,
		questions: make(map[string]*question.Question),
	}
}

// Initialize loads the question bank and ensures every valid question has a
// reference embedding, reusing cache hits and batch-embedding the rest. Any
// provider failure here is fatal; a half-initialized engine never serves.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	switch e.state {
	case StateReady:
		e.mu.Unlock()
		return nil
	case StateInitializing:
		e.mu.Unlock()
		return errs.Statef("initialization already in progress")
	}
	e.state = StateInitializing
	e.mu.Unlock()

	err := e.initialize(ctx)

	e.mu.Lock()
	if err != nil {
		e.state = StateFailed
	} else {
		e.state = StateReady
	}
	e.mu.Unlock()

	return err
}

func (e *Engine) initialize(ctx context.Context) error {
	if err := e.cache.Initialize(); err != nil {
		// Cache failures degrade to always-recompute, never abort startup.
		logger.Warn("Embedding cache initialization failed", zap.Error(err))
	}

	bank, err := e.loadBank()
	if err != nil {
		return errs.Initializationf("failed to load question bank: %v", err)
	}
	if len(bank.Questions) == 0 {
		return errs.Initializationf("no valid questions in bank (%d rejected)", len(bank.Rejected))
	}

	var missing []*question.Question
	cacheHits := 0

	for _, q := range bank.Questions {
		entry, ok := e.cache.GetQuestion(q.ID, q.ReferenceAnswer)
		if ok {
			q.ReferenceEmbedding = entry.Vector
			cacheHits++
			continue
		}
		missing = append(missing, q)
	}

	if len(missing) > 0 {
		texts := make([]string, len(missing))
		for i, q := range missing {
			texts[i] = q.ReferenceAnswer
		}

		vectors, err := e.provider.GenerateBatchEmbeddings(ctx, texts, embedding.PurposeDocument)
		if err != nil {
			return errs.Initializationf("failed to embed reference answers: %v", err)
		}
		if len(vectors) != len(missing) {
			return errs.Initializationf("reference embedding count mismatch: got %d, expected %d",
				len(vectors), len(missing))
		}

		items := make([]embedcache.BatchItem, len(missing))
		for i, q := range missing {
			q.ReferenceEmbedding = vectors[i]
			items[i] = embedcache.BatchItem{
				QuestionID: q.ID,
				Text:       q.ReferenceAnswer,
				Vector:     vectors[i],
			}
		}
		e.cache.StoreQuestionEmbeddings(items)
	}

	questions := make(map[string]*question.Question, len(bank.Questions))
	order := make([]string, 0, len(bank.Questions))
	dimension := 0
	for _, q := range bank.Questions {
		questions[q.ID] = q
		order = append(order, q.ID)
		if dimension == 0 {
			dimension = len(q.ReferenceEmbedding)
		}
	}

	e.mu.Lock()
	e.questions = questions
	e.order = order
	e.dimension = dimension
	e.mu.Unlock()

	logger.Info("Evaluation engine initialized",
		zap.Int("questions", len(questions)),
		zap.Int("cache_hits", cacheHits),
		zap.Int("embedded", len(missing)),
		zap.Int("dimension", dimension),
		zap.String("model", e.provider.Model()),
	)

	return nil
}

// EvaluateAnswer scores one candidate answer against one question.
func (e *Engine) EvaluateAnswer(ctx context.Context, questionID, answer string, override *ScoringConfig) (*Result, error) {
	if e.CurrentState() != StateReady {
		return nil, errs.Statef("engine is %s, not ready", e.CurrentState())
	}

	cfg := e.cfg
	if override != nil {
		cfg = *override
	}

	if len(strings.TrimSpace(answer)) < MinAnswerLength {
		logger.Debug("Answer too short to evaluate", zap.String("question_id", questionID))
		return shortAnswerResult(questionID), nil
	}

	q, ok := e.questions[questionID]
	if !ok {
		return nil, errs.NotFoundf("unknown question %q", questionID)
	}
	if len(q.ReferenceEmbedding) == 0 {
		return nil, errs.NotFoundf("question %q has no reference embedding", questionID)
	}

	candidate, err := e.provider.GenerateEmbedding(ctx, answer, embedding.PurposeQuery)
	if err != nil {
		return nil, err
	}

	similarity, err := embedding.CosineSimilarity(q.ReferenceEmbedding, candidate)
	if err != nil {
		return nil, errs.WrapProvider(err)
	}

	matched, coverage := matchKeywords(q.Keywords, answer)
	combined := clamp01(similarity*cfg.SemanticWeight + coverage*cfg.KeywordWeight)
	band := classifyBand(combined, cfg)
	feedback, suggestions := buildFeedback(band, q.Keywords, matched, similarity, coverage)

	result := &Result{
		QuestionID:         questionID,
		SemanticSimilarity: similarity,
		KeywordCoverage:    coverage,
		CombinedScore:      combined,
		DisplayScore:       ToDisplayScale(combined),
		Band:               band,
		IsCorrect:          band == BandExcellent || band == BandGood,
		MatchedKeywords:    matched,
		Feedback:           feedback,
		Suggestions:        suggestions,
	}

	logger.Info("Answer evaluated",
		zap.String("question_id", questionID),
		zap.Float64("similarity", similarity),
		zap.Float64("coverage", coverage),
		zap.Float64("combined", combined),
		zap.String("band", string(band)),
	)

	return result, nil
}

// EvaluateBatch scores items sequentially and always returns exactly one
// result per item: failures become degraded zero-score results instead of
// aborting the batch.
func (e *Engine) EvaluateBatch(ctx context.Context, items []BatchItem, override *ScoringConfig) []*Result {
	results := make([]*Result, len(items))

	for i, item := range items {
		result, err := e.EvaluateAnswer(ctx, item.QuestionID, item.Answer, override)
		if err != nil {
			logger.Warn("Batch item evaluation failed, degrading to zero score",
				zap.Int("index", i),
				zap.String("question_id", item.QuestionID),
				zap.Error(err),
			)
			result = degradedResult(item.QuestionID)
		}
		results[i] = result
	}

	return results
}

func (e *Engine) GetQuestion(id string) (QuestionView, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	q, ok := e.questions[id]
	if !ok {
		return QuestionView{}, errs.NotFoundf("unknown question %q", id)
	}
	return toView(q), nil
}

func (e *Engine) GetAllQuestions() []QuestionView {
	e.mu.RLock()
	defer e.mu.RUnlock()

	views := make([]QuestionView, 0, len(e.order))
	for _, id := range e.order {
		views = append(views, toView(e.questions[id]))
	}
	return views
}

func (e *Engine) GetQuestionsByRole(role string) []QuestionView {
	e.mu.RLock()
	defer e.mu.RUnlock()

	views := make([]QuestionView, 0)
	for _, id := range e.order {
		q := e.questions[id]
		if strings.EqualFold(q.Role, role) {
			views = append(views, toView(q))
		}
	}
	return views
}

func (e *Engine) CurrentState() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return Status{
		State:              e.state.String(),
		Ready:              e.state == StateReady,
		QuestionCount:      len(e.questions),
		EmbeddingDimension: e.dimension,
		Config:             e.cfg,
	}
}

func toView(q *question.Question) QuestionView {
	keywords := make([]string, len(q.Keywords))
	copy(keywords, q.Keywords)
	return QuestionView{
		ID:              q.ID,
		Role:            q.Role,
		Question:        q.Text,
		ReferenceAnswer: q.ReferenceAnswer,
		Keywords:        keywords,
	}
}

// matchKeywords does case-insensitive substring matching of each keyword
// against the answer. Coverage is 0 when the keyword list is empty.
func matchKeywords(keywords []string, answer string) ([]string, float64) {
	matched := make([]string, 0, len(keywords))
	total := 0
	lowerAnswer := strings.ToLower(answer)

	for _, keyword := range keywords {
		trimmed := strings.TrimSpace(keyword)
		if trimmed == "" {
			continue
		}
		total++
		if strings.Contains(lowerAnswer, strings.ToLower(trimmed)) {
			matched = append(matched, keyword)
		}
	}

	if total == 0 {
		return matched, 0
	}
	return matched, float64(len(matched)) / float64(total)
}

func classifyBand(score float64, cfg ScoringConfig) Band {
	switch {
	case score >= cfg.ExcellentThreshold:
		return BandExcellent
	case score >= cfg.GoodThreshold:
		return BandGood
	case score >= cfg.PartialThreshold:
		return BandPartial
	default:
		return BandPoor
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
