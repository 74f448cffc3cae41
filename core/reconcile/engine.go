package reconcile

import (
	"context"
	"fmt"
	"sort"
)

// Diff indexes local and remote concurrently and returns their difference.
func Diff(ctx context.Context, local, remote Indexer) (*Delta, error) {
	indices, err := BuildIndices(ctx, &Spec{Local: local, Remote: remote})
	if err != nil {
		return nil, err
	}
	return DeltaOf(buildResults(indices)), nil
}

// ReconcileAll builds both indices and returns one result per key, sorted by key.
func ReconcileAll(ctx context.Context, spec *Spec, cache *Cache) ([]Result, error) {
	var (
		indices *Indices
		err     error
	)
	if cache != nil && spec.CacheTTL > 0 {
		indices, err = cache.GetOrBuild(ctx, spec)
	} else {
		indices, err = BuildIndices(ctx, spec)
	}
	if err != nil {
		return nil, err
	}
	return buildResults(indices), nil
}

// DeltaOf groups results into a Delta.
func DeltaOf(results []Result) *Delta {
	d := &Delta{Missing: []string{}, Extra: []string{}, Changed: []string{}, Present: []string{}}
	for _, r := range results {
		switch {
		case r.LocalPresent && !r.BucketPresent:
			d.Missing = append(d.Missing, r.Key)
		case !r.LocalPresent && r.BucketPresent:
			d.Extra = append(d.Extra, r.Key)
		case len(r.Mismatch) > 0:
			d.Changed = append(d.Changed, r.Key)
		default:
			d.Present = append(d.Present, r.Key)
		}
	}
	return d
}

func buildResults(indices *Indices) []Result {
	union := make(map[string]struct{}, len(indices.Local)+len(indices.Remote))
	for key := range indices.Local {
		union[key] = struct{}{}
	}
	for key := range indices.Remote {
		union[key] = struct{}{}
	}

	results := make([]Result, 0, len(union))
	for key := range union {
		results = append(results, buildResult(key, indices))
	}

	// Sort results by key for deterministic output
	sort.Slice(results, func(i, j int) bool {
		return results[i].Key < results[j].Key
	})
	return results
}

func buildResult(key string, indices *Indices) Result {
	local, localPresent := indices.Local[key]
	remote, remotePresent := indices.Remote[key]

	result := Result{
		Key:           key,
		LocalPresent:  localPresent,
		BucketPresent: remotePresent,
		Mismatch:      []string{},
	}
	if localPresent && remotePresent && local.Size != remote.Size {
		result.Mismatch = append(result.Mismatch, fmt.Sprintf("size: local=%d bucket=%d", local.Size, remote.Size))
	}
	return result
}
