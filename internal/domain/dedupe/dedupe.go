// Package dedupe tracks interaction ids so that a resubmitted interaction
// is ingested at most once.
package dedupe

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultMaxSize = 50000

// Deduper records seen interaction ids.
type Deduper interface {
	// SeenAndRecord reports whether id was already seen and records it if
	// not. The check and the record happen atomically.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a rejected submission can be retried.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// NewInMemoryDeduper creates a deduper. With a positive max size the
// window evicts the least recently recorded id; otherwise it never forgets.
func NewInMemoryDeduper(opts ...Option) Deduper {
	cfg := config{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxSize <= 0 {
		return &unboundedDeduper{seen: make(map[string]struct{})}
	}
	cache, err := lru.New[string, struct{}](cfg.maxSize)
	if err != nil {
		// only reachable with a non-positive size, which is handled above
		panic(err)
	}
	return &lruDeduper{cache: cache}
}

type lruDeduper struct {
	cache *lru.Cache[string, struct{}]
}

func (d *lruDeduper) SeenAndRecord(_ context.Context, id string) bool {
	seen, _ := d.cache.ContainsOrAdd(id, struct{}{})
	return seen
}

func (d *lruDeduper) Unrecord(_ context.Context, id string) {
	d.cache.Remove(id)
}

func (d *lruDeduper) Size() int64 {
	return int64(d.cache.Len())
}

type unboundedDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func (d *unboundedDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[id]; ok {
		return true
	}
	d.seen[id] = struct{}{}
	return false
}

func (d *unboundedDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, id)
}

func (d *unboundedDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
