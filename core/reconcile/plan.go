package reconcile

import (
	"context"
	"fmt"
)

// Mutator applies planned actions to the bucket.
type Mutator interface {
	// Upload publishes the local file at key.
	Upload(ctx context.Context, key string) error

	// Delete removes the object at key.
	Delete(ctx context.Context, key string) error
}

// BatchDeleter is implemented by mutators that remove many objects in one call.
type BatchDeleter interface {
	DeleteBatch(ctx context.Context, keys []string) error
}

// ReconcileWithPlan performs reconciliation and returns a plan with results and actions.
// It does NOT execute actions; use ApplyPlan for that.
func ReconcileWithPlan(ctx context.Context, spec *Spec, cache *Cache, opts Options) (*Plan, error) {
	results, err := ReconcileAll(ctx, spec, cache)
	if err != nil {
		return nil, err
	}

	summary, actions := buildPlanFromResults(results, opts)

	return &Plan{
		Results: results,
		Actions: actions,
		Summary: summary,
	}, nil
}

// ApplyPlan executes the actions in a plan.
// Returns the number of actions executed and any error encountered.
// Nothing runs when opts.DryRun is set.
func ApplyPlan(ctx context.Context, plan *Plan, mutator Mutator, opts Options) (executed int, err error) {
	if opts.DryRun {
		return 0, nil
	}

	var deleteKeys []string
	for _, action := range plan.Actions {
		switch action.Type {
		case ActionUpload:
			if err := mutator.Upload(ctx, action.Key); err != nil {
				return executed, fmt.Errorf("failed to upload %s: %w", action.Key, err)
			}
			executed++
		case ActionDelete:
			deleteKeys = append(deleteKeys, action.Key)
		}
	}

	if len(deleteKeys) == 0 {
		return executed, nil
	}

	// Try batch delete first
	if batchDeleter, ok := mutator.(BatchDeleter); ok {
		if err := batchDeleter.DeleteBatch(ctx, deleteKeys); err != nil {
			return executed, fmt.Errorf("failed to batch delete objects: %w", err)
		}
		return executed + len(deleteKeys), nil
	}

	// Fallback to one-at-a-time
	for _, key := range deleteKeys {
		if err := mutator.Delete(ctx, key); err != nil {
			return executed, fmt.Errorf("failed to delete %s: %w", key, err)
		}
		executed++
	}
	return executed, nil
}

// ReconcileAndApply is a convenience wrapper that plans and optionally applies actions.
// It returns the plan, number of actions executed, and any error.
func ReconcileAndApply(ctx context.Context, spec *Spec, cache *Cache, mutator Mutator, opts Options) (*Plan, int, error) {
	plan, err := ReconcileWithPlan(ctx, spec, cache, opts)
	if err != nil {
		return nil, 0, err
	}

	executed, err := ApplyPlan(ctx, plan, mutator, opts)
	if executed > 0 && cache != nil {
		cache.Invalidate()
	}
	return plan, executed, err
}

// buildPlanFromResults generates a summary and action plan from reconciliation results.
func buildPlanFromResults(results []Result, opts Options) (PlanSummary, []Action) {
	var summary PlanSummary
	var actions []Action

	summary.TotalItems = len(results)

	for _, result := range results {
		switch {
		case result.LocalPresent && !result.BucketPresent:
			summary.Missing++
			actions = append(actions, Action{Type: ActionUpload, Key: result.Key, Reason: "missing in bucket"})
			summary.Uploads++

		case !result.LocalPresent && result.BucketPresent:
			summary.Extra++
			if opts.Prune {
				actions = append(actions, Action{Type: ActionDelete, Key: result.Key, Reason: "not served by any static handler"})
				summary.Deletes++
			}

		case len(result.Mismatch) > 0:
			summary.Changed++
			actions = append(actions, Action{Type: ActionUpload, Key: result.Key, Reason: fmt.Sprintf("mismatch: %v", result.Mismatch)})
			summary.Uploads++
		}
	}

	return summary, actions
}
