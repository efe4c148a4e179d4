package validation

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var scriptPattern = regexp.MustCompile(`(?i)(<script|<iframe|javascript:|onerror=|onload=|onclick=)`)

type Config struct {
	MaxAnswerLength     int
	MaxBatchItems       int
	AllowedContentTypes []string
	Logger              *zap.Logger
}

// Middleware enforces content-type and payload limits for the
// evaluation and posting endpoints before handlers see the body.
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxAnswerLength == 0 {
		cfg.MaxAnswerLength = 10000
	}
	if cfg.MaxBatchItems == 0 {
		cfg.MaxBatchItems = 50
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json"}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		if c.Method() == "POST" || c.Method() == "PUT" {
			contentType := c.Get("Content-Type")
			if contentType != "" {
				allowed := false
				for _, allowedType := range cfg.AllowedContentTypes {
					if strings.Contains(contentType, allowedType) {
						allowed = true
						break
					}
				}
				if !allowed {
					return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
						"error": "Unsupported content type",
					})
				}
			}
		}

		path := c.Path()

		if strings.HasSuffix(path, "/evaluate") {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			answer, ok := req["answer"].(string)
			if !ok || answer == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Answer is required and must be a string",
				})
			}

			if len(answer) > cfg.MaxAnswerLength {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Answer exceeds maximum length",
				})
			}

			if scriptPattern.MatchString(answer) {
				cfg.Logger.Warn("Rejected answer with embedded markup",
					zap.String("ip", c.IP()),
					zap.String("path", path),
				)
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid answer content",
				})
			}
		}

		if strings.HasSuffix(path, "/evaluate/batch") {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			items, ok := req["items"].([]interface{})
			if !ok || len(items) == 0 {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Items are required",
				})
			}
			if len(items) > cfg.MaxBatchItems {
				return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
					"error": "Batch exceeds maximum size",
				})
			}
		}

		if strings.HasSuffix(path, "/postings/analyze") {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			urlStr, ok := req["url"].(string)
			if !ok || urlStr == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "URL is required and must be a string",
				})
			}

			if !isValidURL(urlStr) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid URL format",
				})
			}
		}

		return c.Next()
	}
}

func isValidURL(urlStr string) bool {
	u, err := url.Parse(urlStr)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
