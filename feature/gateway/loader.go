package gateway

import (
	"github.com/gofiber/fiber/v2"
)

// Feature implements the loader.Feature interface. It must load last: it claims every path.
type Feature struct {
	gateway *Gateway
}

// NewFeature wraps a gateway as a feature.
func NewFeature(g *Gateway) *Feature {
	return &Feature{gateway: g}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "gateway"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return true
}

// Load registers the catch-all route.
func (f *Feature) Load(app fiber.Router) error {
	app.All("/*", f.gateway.Handle)
	return nil
}
