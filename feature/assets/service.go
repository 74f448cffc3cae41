package assets

import (
	"context"
	"time"

	"app-host/core/reconcile"
	"app-host/core/storage"
	"app-host/core/watcher"

	"go.uber.org/zap"
)

// DefaultCacheTTL keeps bucket listings for repeated admin queries.
const DefaultCacheTTL = time.Minute

// Service compares and publishes static assets.
type Service struct {
	client    storage.Client
	cfg       storage.Config
	holder    *watcher.Holder
	publisher *Publisher
	cache     *reconcile.Cache
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// NewService creates an asset service for the active descriptor in holder.
func NewService(client storage.Client, cfg storage.Config, holder *watcher.Holder, l *zap.Logger) *Service {
	root := holder.Config().Root
	return &Service{
		client:    client,
		cfg:       cfg,
		holder:    holder,
		publisher: NewPublisher(client, cfg, root),
		cache:     reconcile.NewCache(),
		cacheTTL:  DefaultCacheTTL,
		logger:    l,
	}
}

func (s *Service) spec() *reconcile.Spec {
	snap := s.holder.Current()
	return &reconcile.Spec{
		Local:    reconcile.NewLocalIndexer(snap.Descriptor, s.holder.Config().Root, snap.Digest),
		Remote:   reconcile.NewBucketIndexer(s.client, s.cfg),
		CacheTTL: s.cacheTTL,
	}
}

// Diff returns the difference between local static files and the bucket.
func (s *Service) Diff(ctx context.Context) (*reconcile.Delta, error) {
	results, err := reconcile.ReconcileAll(ctx, s.spec(), s.cache)
	if err != nil {
		return nil, err
	}
	return reconcile.DeltaOf(results), nil
}

// Plan computes the publish plan without executing it.
func (s *Service) Plan(ctx context.Context, opts reconcile.Options) (*reconcile.Plan, error) {
	return reconcile.ReconcileWithPlan(ctx, s.spec(), s.cache, opts)
}

// Publish uploads missing and changed files and, with opts.Prune, deletes extra objects.
// Indices are rebuilt so the plan reflects the bucket right now.
func (s *Service) Publish(ctx context.Context, opts reconcile.Options) (*reconcile.Plan, int, error) {
	if !opts.DryRun {
		if err := s.publisher.EnsureBucket(ctx); err != nil {
			return nil, 0, err
		}
	}
	s.cache.Invalidate()

	plan, executed, err := reconcile.ReconcileAndApply(ctx, s.spec(), s.cache, s.publisher, opts)
	if err != nil {
		s.logger.Error("Publish failed", zap.Int("executed", executed), zap.Error(err))
		return plan, executed, err
	}

	s.logger.Info("Published static assets",
		zap.Int("uploads", plan.Summary.Uploads),
		zap.Int("deletes", plan.Summary.Deletes),
		zap.Int("executed", executed),
		zap.Bool("dry_run", opts.DryRun),
	)
	return plan, executed, nil
}
