// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client so static assets can be published to, and served from,
// AWS S3 or a self-hosted MinIO bucket instead of the local application root.
//
// # Client Interface
//
// The Client interface abstracts the underlying storage provider, making it easier
// to mock storage interactions for unit testing (as seen in core/storage/mocks).
//
// # Operations
//
//   - BucketExists: Verifies access to the target bucket.
//   - PutObject / RemoveObject(s): Publish and prune assets.
//   - StatObject / GetObject: Serve an asset (metadata, then content stream).
//   - ListObjects: Lists objects in a bucket (supports prefix/recursive).
//
// # Usage
//
//	client, err := storage.NewClient(config)
//	exists, err := client.BucketExists(ctx, config.Bucket)
package storage
