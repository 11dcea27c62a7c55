// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package resultcache

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/danielhkuo/gotm/irv"
	"github.com/danielhkuo/gotm/metrics"
)

// Key identifies one tabulation
type Key struct {
	ElectionID string
	Category   string
}

func (k Key) String() string {
	return k.ElectionID + "/" + k.Category
}

// ComputeFunc produces the result for a key on a cache miss
type ComputeFunc func(ctx context.Context, key Key) (*irv.Result, error)

// Cache holds live tabulations keyed by election and category
type Cache struct {
	entries *lru.Cache[Key, *irv.Result]
	flight  singleflight.Group
	compute ComputeFunc

	mu          sync.Mutex
	generations map[Key]uint64
}

// New creates a cache holding at most size results, filled by compute
func New(size int, compute ComputeFunc) (*Cache, error) {
	entries, err := lru.New[Key, *irv.Result](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}
	return &Cache{
		entries:     entries,
		compute:     compute,
		generations: make(map[Key]uint64),
	}, nil
}

// Get returns the cached result or computes it. Concurrent misses for the
// same key and generation share one computation. A Get issued after
// Invalidate never joins a computation started before it, and a result
// whose key was invalidated while it was being computed is returned to its
// callers but not stored.
func (c *Cache) Get(ctx context.Context, key Key) (*irv.Result, error) {
	if result, ok := c.entries.Get(key); ok {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return result, nil
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	gen := c.generation(key)
	flightKey := fmt.Sprintf("%s#%d", key, gen)
	v, err, _ := c.flight.Do(flightKey, func() (interface{}, error) {
		result, err := c.compute(ctx, key)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.generations[key] == gen {
			c.entries.Add(key, result)
		}
		c.mu.Unlock()
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*irv.Result), nil
}

// Invalidate drops the result for one key
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generations[key]++
	c.entries.Remove(key)
	metrics.CacheInvalidations.Inc()
}

// InvalidateElection drops every category of an election
func (c *Cache) InvalidateElection(electionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.generations {
		if key.ElectionID == electionID {
			c.generations[key]++
		}
	}
	for _, key := range c.entries.Keys() {
		if key.ElectionID == electionID {
			c.entries.Remove(key)
		}
	}
	metrics.CacheInvalidations.Inc()
}

// Len reports how many results are stored
func (c *Cache) Len() int {
	return c.entries.Len()
}

func (c *Cache) generation(key Key) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	gen, ok := c.generations[key]
	if !ok {
		c.generations[key] = 0
	}
	return gen
}
