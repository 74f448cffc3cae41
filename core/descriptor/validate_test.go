package descriptor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// appRoot creates an application root with the files the test descriptor references.
func appRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range []string{"static/favicon.ico", "static/robots.txt", "static/css/site.css", "oauth_dropins_static/logo.png"} {
		p := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(f), 0o644))
	}
	return root
}

func loadFixture(t *testing.T) *Descriptor {
	t.Helper()
	d, _, err := Load("testdata/app.yaml")
	require.NoError(t, err)
	return d
}

func fields(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.Field)
	}
	return out
}

func TestValidate_Fixture(t *testing.T) {
	d := loadFixture(t)

	report := d.Validate(appRoot(t))
	assert.Empty(t, report.Errors())
	assert.NoError(t, report.Err())

	// 30 concurrent requests against 1 worker x 10 threads
	warnings := report.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, "automatic_scaling.max_concurrent_requests", warnings[0].Field)

	assert.Error(t, report.Strict().Err())
}

func TestValidate_MissingStaticPaths(t *testing.T) {
	d := loadFixture(t)

	report := d.Validate(t.TempDir())
	got := fields(report.Errors())
	assert.Contains(t, got, "handlers[0].static_dir")
	assert.Contains(t, got, "handlers[1].static_dir")
	assert.Contains(t, got, "handlers[2].upload")
	assert.Contains(t, got, "handlers[3].upload")
}

func TestValidate_SkipsFilesWithoutRoot(t *testing.T) {
	d := loadFixture(t)
	assert.NoError(t, d.Validate("").Err())
}

func TestValidate_Scaling(t *testing.T) {
	tests := []struct {
		name    string
		scaling AutomaticScaling
		field   string
	}{
		{"CPU zero is automatic", AutomaticScaling{TargetCPUUtilization: 0}, ""},
		{"CPU one is allowed", AutomaticScaling{TargetCPUUtilization: 1}, ""},
		{"CPU above one", AutomaticScaling{TargetCPUUtilization: 1.2}, "automatic_scaling.target_cpu_utilization"},
		{"CPU negative", AutomaticScaling{TargetCPUUtilization: -0.1}, "automatic_scaling.target_cpu_utilization"},
		{"Concurrency too high", AutomaticScaling{MaxConcurrentRequests: 5000}, "automatic_scaling.max_concurrent_requests"},
		{"Concurrency unset uses the default", AutomaticScaling{MaxConcurrentRequests: 0}, ""},
		{"Concurrency negative", AutomaticScaling{MaxConcurrentRequests: -1}, "automatic_scaling.max_concurrent_requests"},
		{"Negative idle", AutomaticScaling{MaxIdleInstances: -1}, "automatic_scaling.max_idle_instances"},
		{"Inverted bounds", AutomaticScaling{MinInstances: 5, MaxInstances: 2}, "automatic_scaling.min_instances"},
		{"Inverted latency", AutomaticScaling{MinPendingLatency: Duration(2e9), MaxPendingLatency: Duration(1e9)}, "automatic_scaling.min_pending_latency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Descriptor{
				Runtime:          "go122",
				AutomaticScaling: tt.scaling,
				Handlers:         []Handler{{URL: ".*", Script: "auto"}},
				Entrypoint:       "./app -port $PORT",
			}
			got := fields(d.Validate("").Errors())
			if tt.field == "" {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, []string{tt.field}, got)
		})
	}
}

func TestValidate_Handlers(t *testing.T) {
	t.Run("Invalid regex", func(t *testing.T) {
		d := &Descriptor{Runtime: "go122", Entrypoint: "app $PORT", Handlers: []Handler{
			{URL: "/api/(unclosed", Script: "auto"},
			{URL: ".*", Script: "auto"},
		}}
		assert.Contains(t, fields(d.Validate("").Errors()), "handlers[0].url")
	})

	t.Run("Unreachable after catch-all", func(t *testing.T) {
		d := &Descriptor{Runtime: "go122", Entrypoint: "app $PORT", Handlers: []Handler{
			{URL: ".*", Script: "auto"},
			{URL: "/static", StaticDir: "static"},
		}}
		errs := d.Validate("").Errors()
		require.NotEmpty(t, errs)
		assert.Equal(t, "handlers[1]", errs[0].Field)
		assert.True(t, strings.Contains(errs[0].Message, "unreachable"))
	})

	t.Run("Catch-all not last is a warning", func(t *testing.T) {
		d := &Descriptor{Runtime: "go122", Entrypoint: "app $PORT", Handlers: []Handler{
			{URL: "/api/.*", Script: "auto"},
		}}
		report := d.Validate("")
		assert.NoError(t, report.Err())
		assert.Contains(t, fields(report.Warnings()), "handlers")
	})

	t.Run("Target rules", func(t *testing.T) {
		d := &Descriptor{Runtime: "go122", Entrypoint: "app $PORT", Handlers: []Handler{
			{URL: "/a"},
			{URL: "/b", Script: "main.app"},
			{URL: "/c", StaticFiles: "c.txt"},
			{URL: "/d", StaticDir: "d", Secure: "sometimes"},
			{URL: "/e", StaticDir: "e", RedirectHTTPResponseCode: 308},
			{URL: ".*", Script: "auto"},
		}}
		got := fields(d.Validate("").Errors())
		assert.Equal(t, []string{
			"handlers[0]",
			"handlers[1].script",
			"handlers[2].upload",
			"handlers[3].secure",
			"handlers[4].redirect_http_response_code",
		}, got)
	})
}

func TestValidate_RuntimeAndEntrypoint(t *testing.T) {
	d := &Descriptor{
		Runtime:    "Python 3.9",
		Entrypoint: "gunicorn -b :8080 app:app",
		Handlers:   []Handler{{URL: ".*", Script: "auto"}},
	}
	got := fields(d.Validate("").Errors())
	assert.Equal(t, []string{"runtime", "entrypoint"}, got)

	d = &Descriptor{Handlers: []Handler{{URL: ".*", Script: "auto"}}}
	got = fields(d.Validate("").Errors())
	assert.Equal(t, []string{"runtime", "entrypoint"}, got)
}

func TestValidate_StaticDirEscapesRoot(t *testing.T) {
	d := &Descriptor{Runtime: "go122", Handlers: []Handler{{URL: "/x", StaticDir: "../outside"}}}
	assert.Contains(t, fields(d.Validate(t.TempDir()).Errors()), "handlers[0].static_dir")
}

func TestValidate_ConcurrencyMessage(t *testing.T) {
	d := &Descriptor{
		Runtime:          "go122",
		Entrypoint:       "./app -port $PORT",
		AutomaticScaling: AutomaticScaling{MaxConcurrentRequests: -3},
		Handlers:         []Handler{{URL: ".*", Script: "auto"}},
	}
	errs := d.Validate("").Errors()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "must be unset or lie in [1,1000]")
}
