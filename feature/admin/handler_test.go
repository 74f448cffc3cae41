package admin

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"app-host/core/loader"
	"app-host/core/pool"
	"app-host/core/scaling"
	"app-host/core/watcher"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const appYAML = `runtime: python39
entrypoint: gunicorn -b :$PORT app:app
handlers:
- url: /static
  static_dir: static
- url: .*
  script: auto
`

type fakeTarget struct {
	stats   pool.Stats
	resized []int
}

func (f *fakeTarget) Stats() pool.Stats { return f.stats }
func (f *fakeTarget) Resize(_ context.Context, n int) error {
	f.resized = append(f.resized, n)
	return nil
}

type fakeScaler struct{}

func (fakeScaler) Policy() scaling.Policy {
	return scaling.Policy{MinInstances: 1, MaxInstances: 3, MaxConcurrent: 10}
}
func (fakeScaler) Last() scaling.Decision { return scaling.Decision{Current: 1, Desired: 1} }

type testEnv struct {
	app    *fiber.App
	target *fakeTarget
	path   string
}

func setup(t *testing.T, apiKey string, target *fakeTarget) *testEnv {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "static"), 0o755))
	path := filepath.Join(root, "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte(appYAML), 0o644))

	holder, err := watcher.New(watcher.Config{Descriptor: path, Root: root, CheckFiles: true}, zap.NewNop())
	require.NoError(t, err)

	var instances scaling.Target
	var scaler Scaler
	if target != nil {
		instances = target
		scaler = fakeScaler{}
	}
	svc := NewService(holder, instances, scaler, zap.NewNop())

	app := fiber.New()
	feature := NewFeature(svc, "/_ah", apiKey, loader.NewManager())
	assert.Equal(t, "admin", feature.Name())
	require.NoError(t, feature.Load(app))
	return &testEnv{app: app, target: target, path: path}
}

func decode(t *testing.T, body io.Reader) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestHandleHealth(t *testing.T) {
	t.Run("Ready", func(t *testing.T) {
		env := setup(t, "", &fakeTarget{stats: pool.Stats{Instances: 1, Ready: 1}})
		resp, err := env.app.Test(httptest.NewRequest("GET", "/_ah/health", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("Starting", func(t *testing.T) {
		env := setup(t, "", &fakeTarget{stats: pool.Stats{Instances: 1}})
		resp, err := env.app.Test(httptest.NewRequest("GET", "/_ah/health", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	})
}

func TestHandleMetrics(t *testing.T) {
	env := setup(t, "secret", nil)
	resp, err := env.app.Test(httptest.NewRequest("GET", "/_ah/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAdminAuth(t *testing.T) {
	env := setup(t, "secret", nil)

	resp, err := env.app.Test(httptest.NewRequest("GET", "/_ah/admin/routes", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest("GET", "/_ah/admin/routes", nil)
	req.Header.Set("X-API-Key", "secret")
	resp, err = env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestHandleRoutes(t *testing.T) {
	env := setup(t, "", nil)

	resp, err := env.app.Test(httptest.NewRequest("GET", "/_ah/admin/routes", nil))
	require.NoError(t, err)
	body := decode(t, resp.Body)
	assert.Len(t, body["routes"], 2)

	resp, err = env.app.Test(httptest.NewRequest("GET", "/_ah/admin/routes?path=/static/a.css", nil))
	require.NoError(t, err)
	body = decode(t, resp.Body)
	assert.Equal(t, "static_dir", body["kind"])
	assert.Equal(t, "static/a.css", body["file"])
}

func TestHandleValidateAndReload(t *testing.T) {
	env := setup(t, "", nil)

	resp, err := env.app.Test(httptest.NewRequest("GET", "/_ah/admin/validate", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decode(t, resp.Body)
	assert.Equal(t, true, body["active"])

	require.NoError(t, os.WriteFile(env.path, []byte(appYAML+"- url: /after\n  script: auto\n"), 0o644))

	resp, err = env.app.Test(httptest.NewRequest("GET", "/_ah/admin/validate", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	resp, err = env.app.Test(httptest.NewRequest("POST", "/_ah/admin/reload", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	require.NoError(t, os.WriteFile(env.path, []byte(appYAML+"default_expiration: 1h\n"), 0o644))
	resp, err = env.app.Test(httptest.NewRequest("POST", "/_ah/admin/reload", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decode(t, resp.Body)["changed"])
}

func TestHandleInstancesAndScale(t *testing.T) {
	env := setup(t, "", &fakeTarget{stats: pool.Stats{Instances: 1, Ready: 1, InFlight: 5, MaxConcurrent: 10}})

	resp, err := env.app.Test(httptest.NewRequest("GET", "/_ah/admin/instances", nil))
	require.NoError(t, err)
	body := decode(t, resp.Body)
	assert.Equal(t, 0.5, body["utilization"])
	assert.NotNil(t, body["policy"])

	resp, err = env.app.Test(httptest.NewRequest("POST", "/_ah/admin/scale?instances=2", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, []int{2}, env.target.resized)

	resp, err = env.app.Test(httptest.NewRequest("POST", "/_ah/admin/scale?instances=9", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, err = env.app.Test(httptest.NewRequest("POST", "/_ah/admin/scale", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleInstances_NoPool(t *testing.T) {
	env := setup(t, "", nil)
	resp, err := env.app.Test(httptest.NewRequest("GET", "/_ah/admin/instances", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
