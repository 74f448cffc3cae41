package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

const validDescriptor = `runtime: python39
entrypoint: gunicorn -b :$PORT app:app
handlers:
- url: /static
  static_dir: static
- url: .*
  script: auto
`

const secondDescriptor = `runtime: python39
entrypoint: gunicorn -b :$PORT app:app
handlers:
- url: .*
  script: auto
  secure: always
`

func writeApp(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newHolder(t *testing.T, watch bool) (*Holder, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "static"), 0o755))
	path := writeApp(t, dir, validDescriptor)

	h, err := New(Config{Descriptor: path, Root: dir, Watch: watch, CheckFiles: true, DebounceMillis: 20}, zap.NewNop())
	require.NoError(t, err)
	return h, dir
}

func TestNew(t *testing.T) {
	h, _ := newHolder(t, false)

	snap := h.Current()
	require.NotNil(t, snap)
	assert.Equal(t, "python39", snap.Descriptor.Runtime)
	assert.Equal(t, 2, snap.Router.Len())
	assert.Len(t, snap.Digest, 64)
}

func TestNew_InvalidDescriptor(t *testing.T) {
	dir := t.TempDir()
	path := writeApp(t, dir, "runtime: python39\nhandlers:\n- url: \"(\"\n  script: auto\n")

	_, err := New(Config{Descriptor: path, Root: dir, CheckFiles: true}, zap.NewNop())
	assert.Error(t, err)
}

func TestNew_MissingStaticDir(t *testing.T) {
	dir := t.TempDir()
	path := writeApp(t, dir, validDescriptor)

	_, err := New(Config{Descriptor: path, Root: dir, CheckFiles: true}, zap.NewNop())
	assert.Error(t, err)

	h, err := New(Config{Descriptor: path, Root: dir, CheckFiles: false}, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, h.Current())
}

func TestReload(t *testing.T) {
	h, dir := newHolder(t, false)
	first := h.Current()

	type ctxKey struct{}
	var notified atomic.Int32
	h.OnChange(func(ctx context.Context, s *Snapshot) {
		notified.Add(1)
		assert.Equal(t, 1, s.Router.Len())
		assert.Equal(t, "reload", ctx.Value(ctxKey{}), "listeners receive the caller's context")
	})

	t.Run("Unchanged", func(t *testing.T) {
		changed, err := h.Reload(context.Background())
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Same(t, first, h.Current())
	})

	t.Run("Changed", func(t *testing.T) {
		writeApp(t, dir, secondDescriptor)
		changed, err := h.Reload(context.WithValue(context.Background(), ctxKey{}, "reload"))
		require.NoError(t, err)
		assert.True(t, changed)
		assert.NotEqual(t, first.Digest, h.Current().Digest)
		assert.Equal(t, int32(1), notified.Load())
	})

	t.Run("Cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		changed, err := h.Reload(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, changed)
	})

	t.Run("Invalid keeps previous", func(t *testing.T) {
		before := h.Current()
		writeApp(t, dir, "runtime: python39\nbogus_key: 1\n")
		changed, err := h.Reload(context.Background())
		assert.Error(t, err)
		assert.False(t, changed)
		assert.Same(t, before, h.Current())
		assert.Equal(t, int32(1), notified.Load())
	})
}

func TestBuild(t *testing.T) {
	snap, err := Build([]byte(secondDescriptor), "")
	require.NoError(t, err)
	m, ok := snap.Router.Match("/anything")
	require.True(t, ok)
	assert.Equal(t, 0, m.Index)
}

func TestStart_Disabled(t *testing.T) {
	h, _ := newHolder(t, false)
	assert.NoError(t, h.Start(context.Background()))
}

func TestStart_ReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t)

	h, dir := newHolder(t, true)
	changed := make(chan *Snapshot, 1)
	h.OnChange(func(_ context.Context, s *Snapshot) { changed <- s })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, h.Start(ctx))

	writeApp(t, dir, secondDescriptor)

	select {
	case s := <-changed:
		assert.Equal(t, 1, s.Router.Len())
	case <-time.After(5 * time.Second):
		t.Fatal("descriptor change not picked up")
	}

	cancel()
	h.Wait()
}
