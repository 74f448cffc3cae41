// Package static opens static asset files for the gateway, either from the application root
// on disk or from a published object storage bucket.
package static

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"time"

	"app-host/core/storage"

	"github.com/minio/minio-go/v7"
)

// ErrNotFound is returned when the asset does not exist or is a directory.
var ErrNotFound = errors.New("static asset not found")

// Sources supported by Config.Source.
const (
	SourceLocal  = "local"
	SourceBucket = "bucket"
)

// Config selects where static assets are read from.
type Config struct {
	// Source is "local" (application root) or "bucket" (object storage).
	Source string `mapstructure:"source" default:"local"`
}

// Info describes an opened asset.
type Info struct {
	Size        int64
	ContentType string
	ModTime     time.Time
	ETag        string
}

// Source opens assets by slash separated path relative to the application root.
type Source interface {
	Open(ctx context.Context, rel string) (io.ReadCloser, Info, error)
}

// Local serves files from a directory.
type Local struct {
	fsys fs.FS
}

// NewLocal returns a Source rooted at dir.
func NewLocal(dir string) *Local {
	return &Local{fsys: os.DirFS(dir)}
}

// NewLocalFS returns a Source over an arbitrary filesystem.
func NewLocalFS(fsys fs.FS) *Local {
	return &Local{fsys: fsys}
}

// Open implements Source.
func (l *Local) Open(_ context.Context, rel string) (io.ReadCloser, Info, error) {
	if !fs.ValidPath(rel) {
		return nil, Info{}, ErrNotFound
	}

	f, err := l.fsys.Open(rel)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, Info{}, ErrNotFound
		}
		return nil, Info{}, fmt.Errorf("open %s: %w", rel, err)
	}

	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, Info{}, fmt.Errorf("stat %s: %w", rel, err)
	}
	if st.IsDir() {
		_ = f.Close()
		return nil, Info{}, ErrNotFound
	}

	return f, Info{
		Size:        st.Size(),
		ContentType: ContentType(rel),
		ModTime:     st.ModTime(),
	}, nil
}

// Bucket serves objects published to object storage.
type Bucket struct {
	client storage.Client
	cfg    storage.Config
}

// NewBucket returns a Source reading from the configured bucket.
func NewBucket(client storage.Client, cfg storage.Config) *Bucket {
	return &Bucket{client: client, cfg: cfg}
}

// Open implements Source.
func (b *Bucket) Open(ctx context.Context, rel string) (io.ReadCloser, Info, error) {
	if !fs.ValidPath(rel) {
		return nil, Info{}, ErrNotFound
	}
	key := b.cfg.Key(rel)

	stat, err := b.client.StatObject(ctx, b.cfg.Bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, Info{}, ErrNotFound
		}
		return nil, Info{}, fmt.Errorf("stat object %s: %w", key, err)
	}

	body, err := b.client.GetObject(ctx, b.cfg.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, Info{}, ErrNotFound
		}
		return nil, Info{}, fmt.Errorf("get object %s: %w", key, err)
	}

	ct := stat.ContentType
	if ct == "" || ct == "application/octet-stream" {
		ct = ContentType(rel)
	}

	return body, Info{
		Size:        stat.Size,
		ContentType: ct,
		ModTime:     stat.LastModified,
		ETag:        stat.ETag,
	}, nil
}

// ContentType guesses the MIME type from the file extension.
func ContentType(rel string) string {
	if ct := mime.TypeByExtension(path.Ext(rel)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
