package assets

import (
	"app-host/core/storage"
	"app-host/core/watcher"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates the assets feature. A nil client disables it.
func NewFeature(client storage.Client, cfg storage.Config, holder *watcher.Holder, l *zap.Logger) *Feature {
	if client == nil {
		return &Feature{}
	}
	svc := NewService(client, cfg, holder, l)
	return &Feature{service: svc, handler: NewHandler(svc)}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "assets"
}

// IsEnabled reports whether object storage is configured.
func (f *Feature) IsEnabled() bool {
	return f.service != nil
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}

// Service returns the underlying service, nil when disabled.
func (f *Feature) Service() *Service {
	return f.service
}
