package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chadd28/hackrice-15-sub000/internal/cache/redis"
	"github.com/chadd28/hackrice-15-sub000/internal/evaluation"
	"github.com/chadd28/hackrice-15-sub000/internal/metrics"
	"github.com/chadd28/hackrice-15-sub000/internal/storage/models"
	"github.com/chadd28/hackrice-15-sub000/internal/storage/sqlite"
	"github.com/chadd28/hackrice-15-sub000/pkg/errs"
	"github.com/chadd28/hackrice-15-sub000/pkg/logger"
)

// EvaluateHandler serves the scoring endpoints. The response cache and
// history store are optional; either may be nil.
type EvaluateHandler struct {
	engine    *evaluation.Engine
	respCache *redis.Client
	history   *sqlite.Client
}

func NewEvaluateHandler(engine *evaluation.Engine, respCache *redis.Client, history *sqlite.Client) *EvaluateHandler {
	return &EvaluateHandler{
		engine:    engine,
		respCache: respCache,
		history:   history,
	}
}

func (h *EvaluateHandler) HandleEvaluate(c *fiber.Ctx) error {
	var req struct {
		QuestionID string `json:"question_id"`
		Answer     string `json:"answer"`
		SessionID  string `json:"session_id"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse evaluate request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.QuestionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "question_id is required",
		})
	}
	if req.Answer == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "answer is required",
		})
	}

	cfg := h.engine.Status().Config
	cacheKey := redis.ResponseKey(req.QuestionID, req.Answer, cfg.SemanticWeight, cfg.KeywordWeight)
	if h.respCache != nil {
		var cached evaluation.Result
		found, err := h.respCache.GetResponse(c.Context(), cacheKey, &cached)
		if err != nil {
			logger.Warn("Response cache lookup failed", zap.Error(err))
		}
		if found {
			metrics.CacheHits.WithLabelValues("response").Inc()
			return c.JSON(cached)
		}
		metrics.CacheMisses.WithLabelValues("response").Inc()
	}

	start := time.Now()
	result, err := h.engine.EvaluateAnswer(c.Context(), req.QuestionID, req.Answer, nil)
	if err != nil {
		return h.evaluationError(c, err)
	}

	metrics.EvaluationDuration.WithLabelValues("single").Observe(time.Since(start).Seconds())
	metrics.EvaluationTotal.WithLabelValues(string(result.Band)).Inc()
	metrics.CombinedScore.Observe(result.CombinedScore)

	if h.respCache != nil {
		if err := h.respCache.SetResponse(c.Context(), cacheKey, result); err != nil {
			logger.Warn("Failed to cache evaluation response", zap.Error(err))
		}
	}

	h.record(req.SessionID, req.Answer, result)

	return c.JSON(result)
}

func (h *EvaluateHandler) HandleEvaluateBatch(c *fiber.Ctx) error {
	var req struct {
		Items     []evaluation.BatchItem `json:"items"`
		SessionID string                 `json:"session_id"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse batch request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if len(req.Items) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "items are required",
		})
	}

	if h.engine.CurrentState() != evaluation.StateReady {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Evaluation engine is not ready",
		})
	}

	start := time.Now()
	results := h.engine.EvaluateBatch(c.Context(), req.Items, nil)
	metrics.EvaluationDuration.WithLabelValues("batch").Observe(time.Since(start).Seconds())

	for i, result := range results {
		metrics.EvaluationTotal.WithLabelValues(string(result.Band)).Inc()
		h.record(req.SessionID, req.Items[i].Answer, result)
	}

	return c.JSON(fiber.Map{
		"results": results,
		"count":   len(results),
	})
}

func (h *EvaluateHandler) GetHistory(c *fiber.Ctx) error {
	if h.history == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "History storage is not enabled",
		})
	}

	sessionID := c.Query("session_id")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "session_id is required",
		})
	}

	limit := c.QueryInt("limit", 20)
	records, err := h.history.GetRecentEvaluations(sessionID, limit)
	if err != nil {
		logger.Error("Failed to load evaluation history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load history",
		})
	}

	return c.JSON(fiber.Map{
		"history": records,
		"count":   len(records),
	})
}

func (h *EvaluateHandler) GetAggregates(c *fiber.Ctx) error {
	if h.history == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "History storage is not enabled",
		})
	}

	aggregates, err := h.history.GetQuestionAggregates()
	if err != nil {
		logger.Error("Failed to load question aggregates", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load aggregates",
		})
	}

	return c.JSON(fiber.Map{
		"aggregates": aggregates,
	})
}

// HandleInvalidateCache drops every cached evaluation response. Used after
// question-bank or scoring changes so stale results are not served.
func (h *EvaluateHandler) HandleInvalidateCache(c *fiber.Ctx) error {
	if h.respCache == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Response cache is not enabled",
		})
	}

	if err := h.respCache.Invalidate(c.Context()); err != nil {
		logger.Error("Failed to invalidate response cache", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to invalidate cache",
		})
	}

	return c.JSON(fiber.Map{
		"status": "invalidated",
	})
}

func (h *EvaluateHandler) record(sessionID, answer string, result *evaluation.Result) {
	if h.history == nil {
		return
	}

	rec := &models.EvaluationRecord{
		ID:                 uuid.New().String(),
		QuestionID:         result.QuestionID,
		SessionID:          sessionID,
		AnswerText:         answer,
		SemanticSimilarity: result.SemanticSimilarity,
		KeywordCoverage:    result.KeywordCoverage,
		CombinedScore:      result.CombinedScore,
		Band:               string(result.Band),
		IsCorrect:          result.IsCorrect,
		CreatedAt:          time.Now().UTC(),
	}

	if err := h.history.InsertEvaluation(rec); err != nil {
		logger.Warn("Failed to record evaluation", zap.Error(err))
	}
}

func (h *EvaluateHandler) evaluationError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, errs.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, errs.ErrState):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Evaluation engine is not ready",
		})
	default:
		logger.Error("Evaluation failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to evaluate answer",
		})
	}
}
