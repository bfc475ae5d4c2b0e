package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/marketgen/api/internal/middleware"
	"github.com/marketgen/api/internal/model"
	"github.com/marketgen/api/internal/store"
	"github.com/marketgen/api/pkg/response"
)

// GenerationsHandler serves stored generation sessions.
type GenerationsHandler struct {
	sessionStore store.SessionStore
}

func NewGenerationsHandler(sessionStore store.SessionStore) *GenerationsHandler {
	return &GenerationsHandler{sessionStore: sessionStore}
}

// List handles GET /api/generations
func (h *GenerationsHandler) List(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	sessions, err := h.sessionStore.ListByUser(c.Context(), userID, limit)
	if err != nil {
		return response.ServiceError(c, "Failed to list generations")
	}

	return response.OK(c, model.ListGenerationsResponse{
		Success:     true,
		UserID:      userID,
		Count:       len(sessions),
		Generations: sessions,
	})
}

// Get handles GET /api/generations/:generationId
func (h *GenerationsHandler) Get(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	generationID := c.Params("generationId")
	if generationID == "" {
		return response.ValidationError(c, "Generation ID is required", nil)
	}

	session, err := h.sessionStore.Get(c.Context(), generationID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Generation not found")
		}
		return response.ServiceError(c, "Failed to load generation")
	}

	return response.OK(c, session)
}
