package releases

import (
	"errors"

	"app-host/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler serves the release history.
type Handler struct {
	store  *Store
	logger *zap.Logger
}

// NewHandler creates a release handler.
func NewHandler(store *Store, l *zap.Logger) *Handler {
	return &Handler{store: store, logger: l}
}

// RegisterRoutes registers the release routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	app.Get("/releases", h.HandleList)
	app.Get("/releases/latest", h.HandleLatest)
}

// HandleList lists recorded releases, newest first.
func (h *Handler) HandleList(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", DefaultLimit)
	list, err := h.store.List(c.UserContext(), limit)
	if err != nil {
		logger.WithRayID(h.logger, c).Error("Listing releases failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"releases": list})
}

// HandleLatest returns the active release.
func (h *Handler) HandleLatest(c *fiber.Ctx) error {
	rel, err := h.store.Latest(c.UserContext())
	if errors.Is(err, ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(rel)
}
