package reconcile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"app-host/core/descriptor"
	"app-host/core/storage"

	"github.com/minio/minio-go/v7"
)

// Indexer loads one side of a reconciliation.
type Indexer interface {
	// Name identifies the indexer and its inputs for caching.
	Name() string

	// Index returns every asset keyed by its path relative to the application root.
	Index(ctx context.Context) (map[string]Asset, error)
}

// LocalIndexer indexes the files the descriptor's static handlers serve.
type LocalIndexer struct {
	descriptor *descriptor.Descriptor
	root       string
	version    string
}

// NewLocalIndexer indexes files under root. version distinguishes descriptor revisions
// in the cache key, typically the descriptor digest.
func NewLocalIndexer(d *descriptor.Descriptor, root, version string) *LocalIndexer {
	return &LocalIndexer{descriptor: d, root: root, version: version}
}

// Name implements Indexer.
func (l *LocalIndexer) Name() string {
	return "local:" + l.root + "@" + l.version
}

// Index implements Indexer.
func (l *LocalIndexer) Index(ctx context.Context) (map[string]Asset, error) {
	files, err := l.descriptor.StaticFiles(l.root)
	if err != nil {
		return nil, fmt.Errorf("list static files: %w", err)
	}

	out := make(map[string]Asset, len(files))
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := os.Stat(filepath.Join(l.root, filepath.FromSlash(rel)))
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", rel, err)
		}
		out[rel] = Asset{Key: rel, Size: info.Size()}
	}
	return out, nil
}

// BucketIndexer indexes objects published under the configured prefix.
type BucketIndexer struct {
	client storage.Client
	cfg    storage.Config
}

// NewBucketIndexer lists cfg.Bucket under cfg.Prefix.
func NewBucketIndexer(client storage.Client, cfg storage.Config) *BucketIndexer {
	return &BucketIndexer{client: client, cfg: cfg}
}

// Name implements Indexer.
func (b *BucketIndexer) Name() string {
	return "bucket:" + b.cfg.Bucket + "/" + b.cfg.Key("")
}

// Index implements Indexer. It lists once, without per-object HEAD calls.
func (b *BucketIndexer) Index(ctx context.Context) (map[string]Asset, error) {
	prefix := b.cfg.Key("")
	out := make(map[string]Asset)

	for obj := range b.client.ListObjects(ctx, b.cfg.Bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list objects: %w", obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		rel := strings.TrimPrefix(obj.Key, prefix)
		out[rel] = Asset{Key: rel, Size: obj.Size}
	}
	return out, nil
}
