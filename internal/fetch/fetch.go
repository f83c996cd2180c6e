// Package fetch implements the platform fetch adapters.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/model"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher retrieves raw platform content for a filter spec. Implementations
// may pre-filter server-side, but callers must not rely on that.
type Fetcher interface {
	Fetch(ctx context.Context, spec model.FilterSpec, limit int) ([]model.RawItem, error)
}

// Registry maps platforms to their fetch adapters.
type Registry struct {
	byPlatform map[model.Platform]Fetcher
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{byPlatform: make(map[model.Platform]Fetcher)}
}

// Register binds a fetcher to a platform, replacing any previous binding.
func (r *Registry) Register(p model.Platform, f Fetcher) {
	r.byPlatform[p] = f
}

// Fetcher returns the adapter for the platform.
func (r *Registry) Fetcher(p model.Platform) (Fetcher, bool) {
	f, ok := r.byPlatform[p]
	return f, ok
}

// Cached wraps a Fetcher with a TTL result cache keyed by the full filter
// spec, so repeating the same query within the TTL does not hit the
// platform again. This cache belongs to the adapter; clearing a session
// never touches it.
type Cached struct {
	inner Fetcher
	cache *gocache.Cache
	ttl   time.Duration
}

// NewCached creates a caching decorator with the given TTL.
func NewCached(inner Fetcher, ttl time.Duration) *Cached {
	return &Cached{
		inner: inner,
		cache: gocache.New(ttl, ttl),
		ttl:   ttl,
	}
}

// Fetch returns cached results for an identical spec, or delegates to the
// wrapped adapter and caches its successful result. Failures are never
// cached.
func (c *Cached) Fetch(ctx context.Context, spec model.FilterSpec, limit int) ([]model.RawItem, error) {
	key := cacheKey(spec, limit)
	if v, ok := c.cache.Get(key); ok {
		return v.([]model.RawItem), nil
	}

	items, err := c.inner.Fetch(ctx, spec, limit)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, items, c.ttl)
	return items, nil
}

func cacheKey(spec model.FilterSpec, limit int) string {
	return fmt.Sprintf("%s:%s:%d:%d:%d:%d",
		spec.Platform, spec.Target,
		spec.TimeRangeStart.Unix(), spec.TimeRangeEnd.Unix(),
		spec.MinPopularity, limit)
}
