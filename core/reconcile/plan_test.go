package reconcile

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMutator struct {
	uploads []string
	deletes []string
	failOn  string
}

func (m *recordingMutator) Upload(_ context.Context, key string) error {
	if key == m.failOn {
		return fmt.Errorf("upload refused")
	}
	m.uploads = append(m.uploads, key)
	return nil
}

func (m *recordingMutator) Delete(_ context.Context, key string) error {
	m.deletes = append(m.deletes, key)
	return nil
}

type batchMutator struct {
	recordingMutator
	batches [][]string
}

func (m *batchMutator) DeleteBatch(_ context.Context, keys []string) error {
	m.batches = append(m.batches, keys)
	return nil
}

func testSpec() *Spec {
	return &Spec{
		Local:  &mockIndexer{name: "l", assets: assets("a.css", 1, "b.js", 2, "c.png", 3)},
		Remote: &mockIndexer{name: "r", assets: assets("b.js", 2, "c.png", 4, "old1", 1, "old2", 1)},
	}
}

func TestReconcileWithPlan(t *testing.T) {
	t.Run("Without prune", func(t *testing.T) {
		plan, err := ReconcileWithPlan(context.Background(), testSpec(), nil, Options{})
		require.NoError(t, err)

		assert.Equal(t, PlanSummary{TotalItems: 5, Missing: 1, Extra: 2, Changed: 1, Uploads: 2}, plan.Summary)
		assert.Equal(t, []Action{
			{Type: ActionUpload, Key: "a.css", Reason: "missing in bucket"},
			{Type: ActionUpload, Key: "c.png", Reason: "mismatch: [size: local=3 bucket=4]"},
		}, plan.Actions)
	})

	t.Run("With prune", func(t *testing.T) {
		plan, err := ReconcileWithPlan(context.Background(), testSpec(), nil, Options{Prune: true})
		require.NoError(t, err)
		assert.Equal(t, 2, plan.Summary.Deletes)
		assert.Len(t, plan.Actions, 4)
	})
}

func TestApplyPlan(t *testing.T) {
	ctx := context.Background()

	t.Run("Dry run", func(t *testing.T) {
		m := &recordingMutator{}
		_, executed, err := ReconcileAndApply(ctx, testSpec(), nil, m, Options{Prune: true, DryRun: true})
		require.NoError(t, err)
		assert.Zero(t, executed)
		assert.Empty(t, m.uploads)
	})

	t.Run("One at a time", func(t *testing.T) {
		m := &recordingMutator{}
		_, executed, err := ReconcileAndApply(ctx, testSpec(), nil, m, Options{Prune: true})
		require.NoError(t, err)
		assert.Equal(t, 4, executed)
		assert.Equal(t, []string{"a.css", "c.png"}, m.uploads)
		assert.Equal(t, []string{"old1", "old2"}, m.deletes)
	})

	t.Run("Batch delete", func(t *testing.T) {
		m := &batchMutator{}
		_, executed, err := ReconcileAndApply(ctx, testSpec(), nil, m, Options{Prune: true})
		require.NoError(t, err)
		assert.Equal(t, 4, executed)
		assert.Empty(t, m.deletes)
		assert.Equal(t, [][]string{{"old1", "old2"}}, m.batches)
	})

	t.Run("Upload failure stops", func(t *testing.T) {
		m := &recordingMutator{failOn: "c.png"}
		_, executed, err := ReconcileAndApply(ctx, testSpec(), nil, m, Options{Prune: true})
		assert.ErrorContains(t, err, "failed to upload c.png")
		assert.Equal(t, 1, executed)
		assert.Empty(t, m.deletes)
	})
}
