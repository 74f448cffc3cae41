package reconcile

import "time"

// Asset is one file known to an index.
type Asset struct {
	// Key is the path relative to the application root, slash separated.
	Key string `json:"key"`
	// Size is the content length in bytes.
	Size int64 `json:"size"`
}

// Result is the reconciliation output for a single asset key.
type Result struct {
	// Key is the asset path relative to the application root.
	Key string `json:"key"`

	// LocalPresent indicates whether the file exists under the application root.
	LocalPresent bool `json:"local_present"`

	// BucketPresent indicates whether the object exists in the bucket.
	BucketPresent bool `json:"bucket_present"`

	// Mismatch describes differences between the two copies, e.g. "size: local=10 bucket=12".
	Mismatch []string `json:"mismatch"`
}

// Spec bundles the two indexers and cache settings for one reconciliation.
type Spec struct {
	// Local indexes the files static handlers serve.
	Local Indexer

	// Remote indexes the published objects.
	Remote Indexer

	// CacheTTL is the time-to-live for cached indices.
	// If zero, caching is disabled.
	CacheTTL time.Duration
}

// CacheKey returns a unique key for caching based on the indexers.
func (s *Spec) CacheKey() string {
	return s.Local.Name() + "|" + s.Remote.Name()
}

// Delta is the set difference between local files and bucket objects.
type Delta struct {
	// Missing are local files not yet published.
	Missing []string `json:"missing"`
	// Extra are published objects no static handler serves any more.
	Extra []string `json:"extra"`
	// Changed are present on both sides with differing content.
	Changed []string `json:"changed"`
	// Present are present on both sides and identical.
	Present []string `json:"present"`
}

// ActionType represents the type of mutation action.
type ActionType string

const (
	// ActionUpload publishes a local file to the bucket.
	ActionUpload ActionType = "upload"
	// ActionDelete removes an object from the bucket.
	ActionDelete ActionType = "delete"
)

// Action represents a planned mutation operation.
type Action struct {
	// Type specifies the action to perform.
	Type ActionType `json:"type"`

	// Key is the asset path.
	Key string `json:"key"`

	// Reason explains why this action is needed.
	Reason string `json:"reason"`
}

// Plan contains reconciliation results and planned actions.
type Plan struct {
	// Results contains per-asset reconciliation data.
	Results []Result `json:"results"`

	// Actions contains planned mutation operations.
	Actions []Action `json:"actions"`

	// Summary provides aggregate counts.
	Summary PlanSummary `json:"summary"`
}

// PlanSummary provides aggregate statistics for a plan.
type PlanSummary struct {
	// TotalItems is the total number of unique asset keys.
	TotalItems int `json:"total_items"`

	// Missing counts local files absent from the bucket.
	Missing int `json:"missing"`

	// Extra counts bucket objects absent locally.
	Extra int `json:"extra"`

	// Changed counts assets whose copies differ.
	Changed int `json:"changed"`

	// Uploads counts planned upload actions.
	Uploads int `json:"uploads"`

	// Deletes counts planned delete actions.
	Deletes int `json:"deletes"`
}

// Options controls which actions are planned and whether they run.
type Options struct {
	// DryRun prevents execution of any mutations if true.
	DryRun bool

	// Prune plans deletion of bucket objects that are not served locally.
	Prune bool
}
