package reconcile

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Indices holds both sides of a reconciliation.
type Indices struct {
	// Local is the indexed map of local files by key.
	Local map[string]Asset

	// Remote is the indexed map of bucket objects by key.
	Remote map[string]Asset

	// Built is the timestamp when these indices were built.
	Built time.Time

	// TTL is the time-to-live for these indices.
	TTL time.Duration
}

// IsExpired returns true if the indices have expired based on their TTL.
func (c *Indices) IsExpired() bool {
	if c.TTL == 0 {
		return true // No caching
	}
	return time.Since(c.Built) > c.TTL
}

// Cache holds built indices keyed by spec cache key.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Indices
	sf      singleflight.Group
}

// NewCache creates an empty index cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Indices)}
}

// BuildIndices loads both indices concurrently.
// This function does NOT store the result; use Cache.GetOrBuild for that.
func BuildIndices(ctx context.Context, spec *Spec) (*Indices, error) {
	var (
		local     map[string]Asset
		remote    map[string]Asset
		localErr  error
		remoteErr error
		wg        sync.WaitGroup
	)

	wg.Add(2)

	go func() {
		defer wg.Done()
		local, localErr = spec.Local.Index(ctx)
	}()

	go func() {
		defer wg.Done()
		remote, remoteErr = spec.Remote.Index(ctx)
	}()

	wg.Wait()

	if localErr != nil {
		return nil, localErr
	}
	if remoteErr != nil {
		return nil, remoteErr
	}

	return &Indices{
		Local:  local,
		Remote: remote,
		Built:  time.Now(),
		TTL:    spec.CacheTTL,
	}, nil
}

// GetOrBuild returns cached indices for spec, or builds them if missing or expired.
// Concurrent callers for the same key share one build.
func (c *Cache) GetOrBuild(ctx context.Context, spec *Spec) (*Indices, error) {
	key := spec.CacheKey()

	c.mu.RLock()
	cached, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && !cached.IsExpired() {
		return cached, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		c.mu.RLock()
		cached, ok := c.entries[key]
		c.mu.RUnlock()
		if ok && !cached.IsExpired() {
			return cached, nil
		}

		built, err := BuildIndices(ctx, spec)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = built
		c.mu.Unlock()
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Indices), nil
}

// Invalidate drops every cached index, e.g. after a publish.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]*Indices)
	c.mu.Unlock()
}
