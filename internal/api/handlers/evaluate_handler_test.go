package handlers

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvalidateCacheWithoutRedis(t *testing.T) {
	h := NewEvaluateHandler(nil, nil, nil)

	app := fiber.New()
	app.Post("/evaluate/cache/invalidate", h.HandleInvalidateCache)

	resp, err := app.Test(httptest.NewRequest("POST", "/evaluate/cache/invalidate", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHistoryWithoutStorage(t *testing.T) {
	h := NewEvaluateHandler(nil, nil, nil)

	app := fiber.New()
	app.Get("/evaluate/history", h.GetHistory)

	resp, err := app.Test(httptest.NewRequest("GET", "/evaluate/history?session_id=s1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
