package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/chadd28/hackrice-15-sub000/internal/content"
	"github.com/chadd28/hackrice-15-sub000/pkg/logger"
)

// PostingHandler analyzes job postings so candidates can practice
// against the keywords a specific listing emphasizes.
type PostingHandler struct {
	scraper *content.Scraper
}

func NewPostingHandler(scraper *content.Scraper) *PostingHandler {
	return &PostingHandler{
		scraper: scraper,
	}
}

func (h *PostingHandler) HandleAnalyzePosting(c *fiber.Ctx) error {
	var req struct {
		URL string `json:"url"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.URL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "url is required",
		})
	}

	posting, err := h.scraper.FetchJobPosting(c.Context(), req.URL)
	if err != nil {
		logger.Error("Failed to fetch job posting", zap.String("url", req.URL), zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to fetch job posting",
		})
	}

	return c.JSON(posting)
}
