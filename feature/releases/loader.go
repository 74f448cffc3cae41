package releases

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	store   *Store
	handler *Handler
}

// NewFeature creates the releases feature. A nil store disables it.
func NewFeature(store *Store, l *zap.Logger) *Feature {
	f := &Feature{store: store}
	if store != nil {
		f.handler = NewHandler(store, l)
	}
	return f
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "releases"
}

// IsEnabled reports whether a database is available.
func (f *Feature) IsEnabled() bool {
	return f.store != nil
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}
