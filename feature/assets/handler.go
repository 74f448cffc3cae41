package assets

import (
	"app-host/core/logger"
	"app-host/core/reconcile"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for static asset publishing.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the asset routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/assets")
	group.Get("/", h.HandleDiff)
	group.Get("/plan", h.HandlePlan)
	group.Post("/publish", h.HandlePublish)
}

// HandleDiff reports local files missing from the bucket and stale objects.
func (h *Handler) HandleDiff(c *fiber.Ctx) error {
	delta, err := h.service.Diff(c.UserContext())
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Asset diff failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(delta)
}

// HandlePlan returns the publish plan. Query: prune=true.
func (h *Handler) HandlePlan(c *fiber.Ctx) error {
	plan, err := h.service.Plan(c.UserContext(), reconcile.Options{Prune: c.QueryBool("prune")})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(plan)
}

// HandlePublish syncs the bucket. Query: prune=true, dry_run=true.
func (h *Handler) HandlePublish(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	opts := reconcile.Options{Prune: c.QueryBool("prune"), DryRun: c.QueryBool("dry_run")}

	plan, executed, err := h.service.Publish(c.UserContext(), opts)
	if err != nil {
		l.Error("Publish request failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error(), "executed": executed})
	}
	return c.JSON(fiber.Map{
		"summary":  plan.Summary,
		"actions":  plan.Actions,
		"executed": executed,
		"dry_run":  opts.DryRun,
	})
}
