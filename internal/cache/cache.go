package cache

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Key identifies a cached response. Two keys built from the same parameter
// set compare equal regardless of the order the parameters were added in.
type Key struct {
	Collection string
	Operation  string
	Params     string
}

// NewKey builds a Key, canonicalizing params (url.Values.Encode sorts by name).
func NewKey(collection, operation string, params url.Values) Key {
	return Key{Collection: collection, Operation: operation, Params: params.Encode()}
}

func (k Key) String() string {
	return k.Collection + "/" + k.Operation + "?" + k.Params
}

type entry struct {
	value     any
	fetchedAt time.Time
}

// Cache is an in-memory response cache with a freshness window and
// per-collection invalidation.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu          sync.Mutex
	entries     map[Key]entry
	generations map[string]uint64

	group singleflight.Group
}

// New creates a Cache whose entries stay fresh for ttl.
func New(ttl time.Duration) *Cache {
	return &Cache{
		ttl:         ttl,
		now:         time.Now,
		entries:     make(map[Key]entry),
		generations: make(map[string]uint64),
	}
}

// Get returns the cached value for key if it is still fresh.
func (c *Cache) Get(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.fetchedAt) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key.
func (c *Cache) Set(key Key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, fetchedAt: c.now()}
}

// Invalidate drops every entry of collection. A fetch for that collection
// still in flight will not store its result.
func (c *Cache) Invalidate(collection string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generations[collection]++
	for key := range c.entries {
		if key.Collection == collection {
			delete(c.entries, key)
		}
	}
}

// Len returns the number of stored entries, fresh or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Fetch returns the fresh cached value for key or calls fn to load it.
// Concurrent fetches of the same key within one generation share one call
// to fn. The shared call does not stop when one caller gives up; each caller
// returns on its own ctx instead. Errors are never cached.
func (c *Cache) Fetch(ctx context.Context, key Key, fn func(ctx context.Context) (any, error)) (any, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	c.mu.Lock()
	gen := c.generations[key.Collection]
	c.mu.Unlock()

	// A read issued after an invalidation must not join a load that began before it.
	flight := fmt.Sprintf("%s#%d", key, gen)
	loadCtx := context.WithoutCancel(ctx)

	ch := c.group.DoChan(flight, func() (any, error) {
		value, err := fn(loadCtx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.generations[key.Collection] == gen {
			c.entries[key] = entry{value: value, fetchedAt: c.now()}
		}
		c.mu.Unlock()
		return value, nil
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
