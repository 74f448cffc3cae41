package gateway

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"app-host/core/pool"
	"app-host/core/static"
	"app-host/core/watcher"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const appYAML = `runtime: python39
entrypoint: gunicorn -b :$PORT app:app
default_expiration: 1h
handlers:
- url: /static
  static_dir: static
  http_headers:
    X-Static: "yes"
- url: /favicon.ico
  static_files: static/favicon.ico
  upload: static/favicon\.ico
  expiration: 1d
  mime_type: image/x-icon
- url: /img/(.*)\.png
  static_files: images/\1.png
  upload: images/.*\.png
- url: /account/.*
  script: auto
  secure: always
- url: /plain/.*
  script: auto
  secure: never
- url: .*
  script: auto
  secure: always
  redirect_http_response_code: 301
`

type fakeSlot struct {
	addr     string
	released *atomic.Int32
}

func (s fakeSlot) Addr() string { return s.addr }
func (s fakeSlot) Release()     { s.released.Add(1) }

type fakeBackend struct {
	addr     string
	err      error
	acquired atomic.Int32
	released atomic.Int32
}

func (b *fakeBackend) Acquire(context.Context) (Slot, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.acquired.Add(1)
	return fakeSlot{addr: b.addr, released: &b.released}, nil
}

func newApp(t *testing.T, backend Backend) *fiber.App {
	t.Helper()
	snap, err := watcher.Build([]byte(appYAML), "")
	require.NoError(t, err)
	holder := watcher.NewFromSnapshot(watcher.Config{}, snap, zap.NewNop())

	files := fstest.MapFS{
		"static/site.css":    {Data: []byte("body{}"), ModTime: time.Unix(1700000000, 0)},
		"static/favicon.ico": {Data: []byte("ico")},
		"images/logo.png":    {Data: []byte("png")},
	}

	g := New(holder, static.NewLocalFS(files), backend, 2*time.Second, zap.NewNop())
	app := fiber.New()
	require.NoError(t, NewFeature(g).Load(app))
	return app
}

func upstream(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Upstream-Path", r.URL.RequestURI())
		w.Header().Set("X-Upstream-Proto", r.Header.Get("X-Forwarded-Proto"))
		w.WriteHeader(http.StatusTeapot)
		_, _ = io.WriteString(w, "from app")
	}))
	t.Cleanup(srv.Close)
	return srv, strings.TrimPrefix(srv.URL, "http://")
}

func TestGateway_Static(t *testing.T) {
	app := newApp(t, nil)

	t.Run("Static dir", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/static/site.css", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "public, max-age=3600", resp.Header.Get("Cache-Control"))
		assert.NotEmpty(t, resp.Header.Get("Expires"))
		assert.Equal(t, "yes", resp.Header.Get("X-Static"))
		assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/css"))

		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "body{}", string(body))
	})

	t.Run("Static files with expiration and mime type", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/favicon.ico", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "public, max-age=86400", resp.Header.Get("Cache-Control"))
		assert.Equal(t, "image/x-icon", resp.Header.Get("Content-Type"))
	})

	t.Run("Back reference", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/img/logo.png", nil))
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "png", string(body))
	})

	t.Run("Missing file", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/static/nope.css", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}

func TestGateway_SecureRedirect(t *testing.T) {
	app := newApp(t, &fakeBackend{})

	tests := []struct {
		name     string
		url      string
		proto    string
		wantCode int
		wantLoc  string
	}{
		{
			name:     "Always over http uses the configured code",
			url:      "http://example.com/app?x=1",
			wantCode: fiber.StatusMovedPermanently,
			wantLoc:  "https://example.com/app?x=1",
		},
		{
			name:     "Always over http defaults to 302",
			url:      "http://example.com/account/settings",
			wantCode: fiber.StatusFound,
			wantLoc:  "https://example.com/account/settings",
		},
		{
			name:     "Never over https goes back to http",
			url:      "http://example.com/plain/page?q=2",
			proto:    "https",
			wantCode: fiber.StatusFound,
			wantLoc:  "http://example.com/plain/page?q=2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.url, nil)
			if tt.proto != "" {
				req.Header.Set(fiber.HeaderXForwardedProto, tt.proto)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, resp.StatusCode)
			assert.Equal(t, tt.wantLoc, resp.Header.Get("Location"))
		})
	}
}

func TestGateway_Script(t *testing.T) {
	_, addr := upstream(t)
	backend := &fakeBackend{addr: addr}
	app := newApp(t, backend)

	resp, err := app.Test(httptest.NewRequest("GET", "http://example.com/plain/hello?q=1", nil), 5000)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)
	assert.Equal(t, "/plain/hello?q=1", resp.Header.Get("X-Upstream-Path"))
	assert.Equal(t, "http", resp.Header.Get("X-Upstream-Proto"))
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "from app", string(body))

	assert.Equal(t, int32(1), backend.acquired.Load())
	assert.Equal(t, int32(1), backend.released.Load())
}

func TestGateway_NoCapacity(t *testing.T) {
	app := newApp(t, &fakeBackend{err: pool.ErrNoCapacity})

	resp, err := app.Test(httptest.NewRequest("GET", "http://example.com/plain/x", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestGateway_NoBackend(t *testing.T) {
	app := newApp(t, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "http://example.com/plain/x", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestGateway_NoMatch(t *testing.T) {
	snap, err := watcher.Build([]byte("runtime: python39\nhandlers:\n- url: /static\n  static_dir: static\n"), "")
	require.NoError(t, err)
	holder := watcher.NewFromSnapshot(watcher.Config{}, snap, zap.NewNop())

	app := fiber.New()
	require.NoError(t, NewFeature(New(holder, static.NewLocalFS(fstest.MapFS{}), nil, time.Second, zap.NewNop())).Load(app))

	resp, err := app.Test(httptest.NewRequest("GET", "/other", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
