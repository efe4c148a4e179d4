package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/chadd28/hackrice-15-sub000/internal/evaluation"
	"github.com/chadd28/hackrice-15-sub000/pkg/errs"
)

type QuestionHandler struct {
	engine *evaluation.Engine
}

func NewQuestionHandler(engine *evaluation.Engine) *QuestionHandler {
	return &QuestionHandler{
		engine: engine,
	}
}

func (h *QuestionHandler) HandleListQuestions(c *fiber.Ctx) error {
	questions := h.engine.GetAllQuestions()
	return c.JSON(fiber.Map{
		"questions": questions,
		"count":     len(questions),
	})
}

func (h *QuestionHandler) HandleQuestionsByRole(c *fiber.Ctx) error {
	role := c.Params("role")
	if role == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "role is required",
		})
	}

	questions := h.engine.GetQuestionsByRole(role)
	return c.JSON(fiber.Map{
		"role":      role,
		"questions": questions,
		"count":     len(questions),
	})
}

func (h *QuestionHandler) HandleGetQuestion(c *fiber.Ctx) error {
	id := c.Params("id")
	view, err := h.engine.GetQuestion(id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Question not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load question",
		})
	}

	return c.JSON(view)
}

func (h *QuestionHandler) HandleStatus(c *fiber.Ctx) error {
	return c.JSON(h.engine.Status())
}
