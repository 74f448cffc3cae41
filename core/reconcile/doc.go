// Package reconcile compares the static files an application serves with the copies
// published to object storage.
//
// The local side is every file a static_dir or static_files handler can reach under the
// application root. The remote side is every object under the configured bucket prefix.
//
// # Architecture
//
// The reconcile system consists of three main components:
//
// 1. Indexers: LocalIndexer walks the application root, BucketIndexer lists the bucket
// once. Both return assets keyed by their path relative to the root.
//
// 2. Engine: builds the union of keys, detects presence on each side and size mismatches,
// and groups the outcome into a Delta (missing, extra, changed, present).
//
// 3. Cache: TTL-based caching of built indices with stampede protection, so repeated
// admin queries do not relist the bucket.
//
// # Plans
//
// ReconcileWithPlan turns results into upload and (with Options.Prune) delete actions.
// ApplyPlan executes them through a Mutator, preferring batch deletion when available.
//
// # Usage Example
//
//	spec := &reconcile.Spec{
//	    Local:    reconcile.NewLocalIndexer(d, root, digest),
//	    Remote:   reconcile.NewBucketIndexer(client, cfg.Storage),
//	    CacheTTL: time.Minute,
//	}
//	plan, executed, err := reconcile.ReconcileAndApply(ctx, spec, cache, publisher, reconcile.Options{Prune: true})
package reconcile
