package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"app-host/core/descriptor"
	"app-host/core/logger"
	"app-host/core/metrics"
	"app-host/core/router"
	"app-host/core/static"
	"app-host/core/watcher"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/proxy"
	"go.uber.org/zap"
)

// Gateway dispatches requests through the descriptor's handler list.
type Gateway struct {
	holder       *watcher.Holder
	static       static.Source
	backend      Backend
	proxyTimeout time.Duration
	logger       *zap.Logger
}

// New creates a gateway. backend may be nil when the descriptor has no script handler.
func New(holder *watcher.Holder, src static.Source, backend Backend, proxyTimeout time.Duration, l *zap.Logger) *Gateway {
	return &Gateway{
		holder:       holder,
		static:       src,
		backend:      backend,
		proxyTimeout: proxyTimeout,
		logger:       l,
	}
}

// Handle is the catch-all fiber handler.
func (g *Gateway) Handle(c *fiber.Ctx) error {
	start := time.Now()
	kind := "none"
	defer func() {
		metrics.ObserveRequest(kind, c.Response().StatusCode(), time.Since(start))
	}()

	snap := g.holder.Current()
	m, ok := snap.Router.Match(c.Path())
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	}
	kind = string(m.Kind)

	if target, code, redirect := secureRedirect(c, m.Handler); redirect {
		return c.Redirect(target, code)
	}

	switch m.Kind {
	case descriptor.KindStaticDir, descriptor.KindStaticFiles:
		return g.serveStatic(c, snap.Descriptor, m)
	case descriptor.KindScript:
		return g.proxyScript(c)
	}
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
}

// secureRedirect returns the redirect target when the handler's secure setting rejects the scheme.
func secureRedirect(c *fiber.Ctx, h descriptor.Handler) (string, int, bool) {
	scheme := c.Protocol()
	var want string
	switch {
	case h.Secure == descriptor.SecureAlways && scheme == "http":
		want = "https"
	case h.Secure == descriptor.SecureNever && scheme == "https":
		want = "http"
	default:
		return "", 0, false
	}

	code := h.RedirectHTTPResponseCode
	if code == 0 {
		code = fiber.StatusFound
	}
	return want + "://" + c.Hostname() + c.OriginalURL(), code, true
}

func (g *Gateway) serveStatic(c *fiber.Ctx, d *descriptor.Descriptor, m *router.Match) error {
	body, info, err := g.static.Open(c.UserContext(), m.File)
	if errors.Is(err, static.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	}
	if err != nil {
		logger.WithRayID(g.logger, c).Error("Static file open failed", zap.String("file", m.File), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	contentType := info.ContentType
	if m.Handler.MimeType != "" {
		contentType = m.Handler.MimeType
	}
	c.Set(fiber.HeaderContentType, contentType)

	if ttl := d.CacheTTL(m.Handler).Std(); ttl > 0 {
		c.Set(fiber.HeaderCacheControl, "public, max-age="+strconv.Itoa(int(ttl/time.Second)))
		c.Set(fiber.HeaderExpires, time.Now().Add(ttl).UTC().Format(http.TimeFormat))
	}
	if !info.ModTime.IsZero() {
		c.Set(fiber.HeaderLastModified, info.ModTime.UTC().Format(http.TimeFormat))
	}
	if info.ETag != "" {
		c.Set(fiber.HeaderETag, fmt.Sprintf("%q", info.ETag))
	}
	for k, v := range m.Handler.HTTPHeaders {
		c.Set(k, v)
	}

	return c.Status(fiber.StatusOK).SendStream(body, int(info.Size))
}

func (g *Gateway) proxyScript(c *fiber.Ctx) error {
	l := logger.WithRayID(g.logger, c)
	if g.backend == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "no application instances"})
	}

	deadline := time.Now().Add(g.proxyTimeout)
	ctx, cancel := context.WithDeadline(c.UserContext(), deadline)
	slot, err := g.backend.Acquire(ctx)
	cancel()
	if err != nil {
		l.Warn("No instance capacity", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "no instance available"})
	}
	defer slot.Release()

	req := &c.Request().Header
	req.Set(fiber.HeaderXForwardedFor, c.IP())
	req.Set(fiber.HeaderXForwardedProto, c.Protocol())
	req.Set(fiber.HeaderXForwardedHost, c.Hostname())

	if err := proxy.DoDeadline(c, "http://"+slot.Addr()+c.OriginalURL(), deadline); err != nil {
		l.Error("Proxy to instance failed", zap.String("addr", slot.Addr()), zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "bad gateway"})
	}
	c.Response().Header.Del(fiber.HeaderServer)
	return nil
}
