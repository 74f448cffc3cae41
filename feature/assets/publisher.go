package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"app-host/core/static"
	"app-host/core/storage"

	"github.com/minio/minio-go/v7"
)

// Publisher uploads local files to the bucket and removes stale objects.
// It implements reconcile.Mutator and reconcile.BatchDeleter.
type Publisher struct {
	client storage.Client
	cfg    storage.Config
	root   string
}

// NewPublisher creates a publisher for files under root.
func NewPublisher(client storage.Client, cfg storage.Config, root string) *Publisher {
	return &Publisher{client: client, cfg: cfg, root: root}
}

// Upload puts the file at key with a content type guessed from its extension.
func (p *Publisher) Upload(ctx context.Context, key string) error {
	f, err := os.Open(filepath.Join(p.root, filepath.FromSlash(key)))
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	_, err = p.client.PutObject(ctx, p.cfg.Bucket, p.cfg.Key(key), f, info.Size(), minio.PutObjectOptions{
		ContentType: static.ContentType(key),
	})
	return err
}

// Delete removes the object at key.
func (p *Publisher) Delete(ctx context.Context, key string) error {
	return p.client.RemoveObject(ctx, p.cfg.Bucket, p.cfg.Key(key), minio.RemoveObjectOptions{})
}

// DeleteBatch removes all keys in one streaming call.
func (p *Publisher) DeleteBatch(ctx context.Context, keys []string) error {
	objects := make(chan minio.ObjectInfo)
	go func() {
		defer close(objects)
		for _, key := range keys {
			select {
			case objects <- minio.ObjectInfo{Key: p.cfg.Key(key)}:
			case <-ctx.Done():
				return
			}
		}
	}()

	var errs []error
	for rerr := range p.client.RemoveObjects(ctx, p.cfg.Bucket, objects, minio.RemoveObjectsOptions{}) {
		errs = append(errs, fmt.Errorf("remove %s: %w", rerr.ObjectName, rerr.Err))
	}
	return errors.Join(errs...)
}

// EnsureBucket creates the bucket when it does not exist.
func (p *Publisher) EnsureBucket(ctx context.Context) error {
	exists, err := p.client.BucketExists(ctx, p.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := p.client.MakeBucket(ctx, p.cfg.Bucket, minio.MakeBucketOptions{Region: p.cfg.Region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", p.cfg.Bucket, err)
	}
	return nil
}
