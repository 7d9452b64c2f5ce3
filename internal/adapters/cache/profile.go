// Package cache provides read-through caching in front of the repository.
package cache

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/okian/matchmaker/internal/adapters/repository"
	"github.com/okian/matchmaker/internal/domain/model"
	"github.com/okian/matchmaker/pkg/metrics"
)

const (
	defaultSize = 10000
	defaultTTL  = 5 * time.Minute

	profileCacheName = "profile"

	generationStripes = 64
)

// ProfileCache wraps a Store and serves GetProfile from an expiring LRU.
// All other methods go straight to the wrapped store.
type ProfileCache struct {
	repository.Store
	lru  *expirable.LRU[string, model.Profile]
	size int
	ttl  time.Duration

	// generations move on every write; a load that raced a write to the
	// same stripe is returned but not cached.
	mu          sync.Mutex
	generations [generationStripes]uint64
}

// Option configures a ProfileCache.
type Option func(*ProfileCache)

// WithSize sets the maximum number of cached profiles.
func WithSize(n int) Option {
	return func(c *ProfileCache) {
		if n > 0 {
			c.size = n
		}
	}
}

// WithTTL sets how long a cached profile stays valid.
func WithTTL(d time.Duration) Option {
	return func(c *ProfileCache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// NewProfileCache wraps store.
func NewProfileCache(store repository.Store, opts ...Option) *ProfileCache {
	c := &ProfileCache{Store: store, size: defaultSize, ttl: defaultTTL}
	for _, opt := range opts {
		opt(c)
	}
	c.lru = expirable.NewLRU[string, model.Profile](c.size, nil, c.ttl)
	return c
}

// GetProfile returns the cached profile or loads it from the store.
// Misses for unknown ids are not cached.
func (c *ProfileCache) GetProfile(ctx context.Context, id string) (model.Profile, error) {
	if p, ok := c.lru.Get(id); ok {
		metrics.RecordCacheHit(profileCacheName)
		return clone(p), nil
	}
	metrics.RecordCacheMiss(profileCacheName)

	slot := stripe(id)
	c.mu.Lock()
	gen := c.generations[slot]
	c.mu.Unlock()

	p, err := c.Store.GetProfile(ctx, id)
	if err != nil {
		return model.Profile{}, err
	}

	c.mu.Lock()
	if c.generations[slot] == gen {
		c.lru.Add(id, clone(p))
	}
	c.mu.Unlock()
	return p, nil
}

// PutProfile writes through and drops the cached copy.
func (c *ProfileCache) PutProfile(ctx context.Context, p model.Profile) error {
	if err := c.Store.PutProfile(ctx, p); err != nil {
		return err
	}
	c.mu.Lock()
	c.generations[stripe(p.ID)]++
	c.lru.Remove(p.ID)
	c.mu.Unlock()
	return nil
}

// Len returns the number of cached profiles.
func (c *ProfileCache) Len() int {
	return c.lru.Len()
}

// Purge empties the cache.
func (c *ProfileCache) Purge() {
	c.lru.Purge()
}

func clone(p model.Profile) model.Profile {
	p.Industries = append([]string(nil), p.Industries...)
	p.Interests = append([]string(nil), p.Interests...)
	p.Goals = append([]string(nil), p.Goals...)
	return p
}

func stripe(id string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return h.Sum32() % generationStripes
}
