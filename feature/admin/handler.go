package admin

import (
	"errors"

	"app-host/core/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for the admin routes.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes registers the unauthenticated health and metrics routes.
func (h *Handler) RegisterPublicRoutes(app fiber.Router) {
	app.Get("/health", h.HandleHealth)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}

// RegisterRoutes registers the admin routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	app.Get("/routes", h.HandleRoutes)
	app.Get("/validate", h.HandleValidate)
	app.Post("/reload", h.HandleReload)
	app.Get("/instances", h.HandleInstances)
	app.Post("/scale", h.HandleScale)
}

// HandleHealth returns 200 when the application can serve requests.
func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	ok, ready := h.service.Healthy()
	status := fiber.StatusOK
	state := "ok"
	if !ok {
		status = fiber.StatusServiceUnavailable
		state = "unavailable"
	}
	return c.Status(status).JSON(fiber.Map{
		"status": state,
		"ready":  ready,
		"digest": h.service.holder.Current().Digest,
	})
}

// HandleRoutes lists the route table, or the handler matching ?path=.
func (h *Handler) HandleRoutes(c *fiber.Ctx) error {
	path := c.Query("path")
	if path == "" {
		return c.JSON(fiber.Map{"routes": h.service.Routes()})
	}

	m, ok := h.service.MatchPath(path)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no handler matches " + path})
	}
	return c.JSON(fiber.Map{
		"index": m.Index,
		"kind":  m.Kind,
		"url":   m.Handler.URL,
		"file":  m.File,
	})
}

// HandleValidate validates the descriptor on disk. Query: strict=true.
func (h *Handler) HandleValidate(c *fiber.Ctx) error {
	result := h.service.Validate(c.QueryBool("strict"))
	status := fiber.StatusOK
	if !result.Valid {
		status = fiber.StatusUnprocessableEntity
	}
	return c.Status(status).JSON(result)
}

// HandleReload activates the descriptor on disk.
func (h *Handler) HandleReload(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	changed, digest, err := h.service.Reload(c.UserContext())
	if err != nil {
		l.Warn("Reload rejected", zap.Error(err))
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error(), "digest": digest})
	}
	return c.JSON(fiber.Map{"changed": changed, "digest": digest})
}

// HandleInstances returns the pool and autoscaler state.
func (h *Handler) HandleInstances(c *fiber.Ctx) error {
	view := h.service.Instances()
	if view == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no instance pool"})
	}
	return c.JSON(view)
}

// HandleScale resizes the pool. Query: instances=N.
func (h *Handler) HandleScale(c *fiber.Ctx) error {
	n := c.QueryInt("instances", -1)
	if n < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "instances must be a non-negative integer"})
	}

	if err := h.service.Scale(c.UserContext(), n); err != nil {
		if errors.Is(err, ErrScaleOutOfRange) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		logger.WithRayID(h.service.logger, c).Error("Scale failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"instances": n})
}
