package admin

import (
	"app-host/core/loader"
	"app-host/core/middleware/auth"

	"github.com/gofiber/fiber/v2"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	handler *Handler
	prefix  string
	apiKey  string
	sub     *loader.Manager
}

// NewFeature creates the admin feature mounted at prefix (default /_ah). Features
// registered on sub are loaded into the authenticated admin group.
func NewFeature(svc *Service, prefix, apiKey string, sub *loader.Manager) *Feature {
	return &Feature{handler: NewHandler(svc), prefix: prefix, apiKey: apiKey, sub: sub}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "admin"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return true
}

// Load registers the public routes under the prefix and the admin routes under prefix/admin.
func (f *Feature) Load(app fiber.Router) error {
	root := app.Group(f.prefix)
	f.handler.RegisterPublicRoutes(root)

	group := root.Group("/admin", auth.New(auth.Config{ApiKey: f.apiKey}))
	f.handler.RegisterRoutes(group)
	if f.sub != nil {
		return f.sub.LoadAll(group)
	}
	return nil
}
