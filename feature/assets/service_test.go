package assets

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"app-host/core/reconcile"
	"app-host/core/storage"
	"app-host/core/storage/mocks"
	"app-host/core/watcher"

	"github.com/gofiber/fiber/v2"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
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

var testStorage = storage.Config{Bucket: "static", Prefix: "myapp"}

func setupHolder(t *testing.T) *watcher.Holder {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"app.yaml":        appYAML,
		"static/site.css": "body{}",
		"static/app.js":   "run()",
		"main.py":         "app = None",
	}
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}

	h, err := watcher.New(watcher.Config{Descriptor: filepath.Join(root, "app.yaml"), Root: root, CheckFiles: true}, zap.NewNop())
	require.NoError(t, err)
	return h
}

func listing(objects ...minio.ObjectInfo) func(context.Context, string, minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	return func(context.Context, string, minio.ListObjectsOptions) <-chan minio.ObjectInfo {
		ch := make(chan minio.ObjectInfo, len(objects))
		for _, o := range objects {
			ch <- o
		}
		close(ch)
		return ch
	}
}

func drainRemovals(objects <-chan minio.ObjectInfo) <-chan minio.RemoveObjectError {
	out := make(chan minio.RemoveObjectError)
	go func() {
		defer close(out)
		for range objects {
		}
	}()
	return out
}

func TestService_Diff(t *testing.T) {
	client := new(mocks.Client)
	client.On("ListObjects", mock.Anything, "static", minio.ListObjectsOptions{Prefix: "myapp/", Recursive: true}).
		Return(listing(
			minio.ObjectInfo{Key: "myapp/static/site.css", Size: 6},
			minio.ObjectInfo{Key: "myapp/static/old.css", Size: 3},
		))

	svc := NewService(client, testStorage, setupHolder(t), zap.NewNop())
	delta, err := svc.Diff(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"static/app.js"}, delta.Missing)
	assert.Equal(t, []string{"static/old.css"}, delta.Extra)
	assert.Equal(t, []string{"static/site.css"}, delta.Present)
}

func TestService_Publish(t *testing.T) {
	client := new(mocks.Client)
	client.On("BucketExists", mock.Anything, "static").Return(false, nil)
	client.On("MakeBucket", mock.Anything, "static", mock.Anything).Return(nil)
	client.On("ListObjects", mock.Anything, "static", mock.Anything).
		Return(listing(minio.ObjectInfo{Key: "myapp/static/old.css", Size: 3}))
	client.On("PutObject", mock.Anything, "static", "myapp/static/app.js", mock.Anything, int64(5),
		mock.MatchedBy(func(o minio.PutObjectOptions) bool { return o.ContentType != "" })).
		Return(minio.UploadInfo{}, nil)
	client.On("PutObject", mock.Anything, "static", "myapp/static/site.css", mock.Anything, int64(6),
		mock.MatchedBy(func(o minio.PutObjectOptions) bool { return strings.HasPrefix(o.ContentType, "text/css") })).
		Return(minio.UploadInfo{}, nil)
	client.On("RemoveObjects", mock.Anything, "static", mock.Anything, mock.Anything).Return(drainRemovals)

	svc := NewService(client, testStorage, setupHolder(t), zap.NewNop())
	plan, executed, err := svc.Publish(context.Background(), reconcile.Options{Prune: true})
	require.NoError(t, err)

	assert.Equal(t, 3, executed)
	assert.Equal(t, 2, plan.Summary.Uploads)
	assert.Equal(t, 1, plan.Summary.Deletes)
	client.AssertExpectations(t)
}

func TestService_PublishDryRun(t *testing.T) {
	client := new(mocks.Client)
	client.On("ListObjects", mock.Anything, "static", mock.Anything).Return(listing())

	svc := NewService(client, testStorage, setupHolder(t), zap.NewNop())
	plan, executed, err := svc.Publish(context.Background(), reconcile.Options{DryRun: true})
	require.NoError(t, err)

	assert.Zero(t, executed)
	assert.Equal(t, 2, plan.Summary.Uploads)
	client.AssertNotCalled(t, "BucketExists", mock.Anything, mock.Anything)
	client.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPublisher_DeleteBatchErrors(t *testing.T) {
	client := new(mocks.Client)
	client.On("RemoveObjects", mock.Anything, "static", mock.Anything, mock.Anything).
		Return(func(objects <-chan minio.ObjectInfo) <-chan minio.RemoveObjectError {
			out := make(chan minio.RemoveObjectError)
			go func() {
				defer close(out)
				for obj := range objects {
					out <- minio.RemoveObjectError{ObjectName: obj.Key, Err: errors.New("denied")}
				}
			}()
			return out
		})

	p := NewPublisher(client, testStorage, t.TempDir())
	err := p.DeleteBatch(context.Background(), []string{"a", "b"})
	assert.ErrorContains(t, err, "remove myapp/a: denied")
	assert.ErrorContains(t, err, "remove myapp/b: denied")
}

func TestHandler(t *testing.T) {
	client := new(mocks.Client)
	client.On("ListObjects", mock.Anything, "static", mock.Anything).Return(listing())

	feature := NewFeature(client, testStorage, setupHolder(t), zap.NewNop())
	assert.Equal(t, "assets", feature.Name())
	assert.True(t, feature.IsEnabled())

	app := fiber.New()
	require.NoError(t, feature.Load(app))

	t.Run("Diff", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/assets", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var delta reconcile.Delta
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&delta))
		assert.Len(t, delta.Missing, 2)
	})

	t.Run("Dry run publish", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("POST", "/assets/publish?dry_run=true", nil))
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), `"executed":0`)
	})
}

func TestFeature_Disabled(t *testing.T) {
	assert.False(t, NewFeature(nil, testStorage, nil, zap.NewNop()).IsEnabled())
}
