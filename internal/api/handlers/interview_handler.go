package handlers

import (
	"context"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/chadd28/hackrice-15-sub000/internal/evaluation"
	"github.com/chadd28/hackrice-15-sub000/internal/metrics"
	"github.com/chadd28/hackrice-15-sub000/pkg/logger"
)

const evaluateTimeout = 30 * time.Second

// InterviewHandler runs a live mock-interview session over a websocket.
// The client submits answers one at a time and receives scored results
// on the same connection.
type InterviewHandler struct {
	engine *evaluation.Engine
}

func NewInterviewHandler(engine *evaluation.Engine) *InterviewHandler {
	return &InterviewHandler{
		engine: engine,
	}
}

func (h *InterviewHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("Interview session started")
	metrics.InterviewSessionsActive.Inc()

	defer func() {
		c.Close()
		metrics.InterviewSessionsActive.Dec()
		logger.Info("Interview session closed")
	}()

	for {
		var msg struct {
			Type       string `json:"type"`
			QuestionID string `json:"question_id"`
			Answer     string `json:"answer"`
			Role       string `json:"role"`
		}

		if err := c.ReadJSON(&msg); err != nil {
			logger.Debug("Websocket read ended", zap.Error(err))
			break
		}

		switch msg.Type {
		case "answer":
			h.handleAnswer(c, msg.QuestionID, msg.Answer)
		case "questions":
			h.handleQuestions(c, msg.Role)
		default:
			h.sendError(c, "Unknown message type")
		}
	}
}

func (h *InterviewHandler) handleAnswer(c *websocket.Conn, questionID, answer string) {
	if questionID == "" || answer == "" {
		h.sendError(c, "question_id and answer are required")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), evaluateTimeout)
	defer cancel()

	h.send(c, map[string]interface{}{
		"type":        "status",
		"question_id": questionID,
		"content":     "Evaluating answer...",
	})

	result, err := h.engine.EvaluateAnswer(ctx, questionID, answer, nil)
	if err != nil {
		logger.Error("Websocket evaluation failed",
			zap.String("question_id", questionID),
			zap.Error(err),
		)
		h.sendError(c, "Failed to evaluate answer")
		return
	}

	metrics.EvaluationTotal.WithLabelValues(string(result.Band)).Inc()

	h.send(c, map[string]interface{}{
		"type":   "result",
		"result": result,
	})
}

func (h *InterviewHandler) handleQuestions(c *websocket.Conn, role string) {
	var questions []evaluation.QuestionView
	if role != "" {
		questions = h.engine.GetQuestionsByRole(role)
	} else {
		questions = h.engine.GetAllQuestions()
	}

	h.send(c, map[string]interface{}{
		"type":      "questions",
		"questions": questions,
		"count":     len(questions),
	})
}

func (h *InterviewHandler) send(c *websocket.Conn, msg map[string]interface{}) {
	if err := c.WriteJSON(msg); err != nil {
		logger.Warn("Failed to write websocket message", zap.Error(err))
	}
}

func (h *InterviewHandler) sendError(c *websocket.Conn, errorMsg string) {
	h.send(c, map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}
