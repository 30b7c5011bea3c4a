package sqlmapper

import (
	"context"
	"sync"

	"github.com/leapstack-labs/leapunit/pkg/core"
)

// CachingMapper decorates a DataMapper with a read cache keyed by entity
// identifier. Writes are staged during the transaction and published to the
// cache only by the post-commit flush, so readers never observe state that
// was not durably committed.
type CachingMapper struct {
	core.DataMapper

	mu     sync.RWMutex
	staged []stagedWrite
	cache  map[any]core.Entity
}

type stagedWrite struct {
	entity  core.Entity
	removed bool
}

// NewCachingMapper wraps the delegate mapper.
func NewCachingMapper(delegate core.DataMapper) *CachingMapper {
	return &CachingMapper{
		DataMapper: delegate,
		cache:      make(map[any]core.Entity),
	}
}

// Insert delegates, then stages the entity for cache publication.
func (c *CachingMapper) Insert(ctx context.Context, tx core.Tx, e core.Entity) error {
	if err := c.DataMapper.Insert(ctx, tx, e); err != nil {
		return err
	}
	c.stage(e, false)
	return nil
}

// Update delegates, then stages the entity for cache publication.
func (c *CachingMapper) Update(ctx context.Context, tx core.Tx, e core.Entity) error {
	if err := c.DataMapper.Update(ctx, tx, e); err != nil {
		return err
	}
	c.stage(e, false)
	return nil
}

// Delete delegates, then stages the cache eviction.
func (c *CachingMapper) Delete(ctx context.Context, tx core.Tx, e core.Entity) error {
	if err := c.DataMapper.Delete(ctx, tx, e); err != nil {
		return err
	}
	c.stage(e, true)
	return nil
}

func (c *CachingMapper) stage(e core.Entity, removed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.staged = append(c.staged, stagedWrite{entity: e, removed: removed})
}

// FlushCache publishes staged writes to the read cache, in write order.
// Invoked by the unit of work only after the transaction has committed.
func (c *CachingMapper) FlushCache(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, w := range c.staged {
		id := w.entity.EntityID()
		if w.removed {
			delete(c.cache, id)
			continue
		}
		c.cache[id] = w.entity
	}
	c.staged = nil
	return nil
}

// Discard drops staged writes without publishing them. Call after a failed
// commit when the unit of work will not be retried, so a later flush cannot
// publish writes from the rolled-back transaction.
func (c *CachingMapper) Discard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.staged = nil
}

// Cached returns the committed entity cached under id.
func (c *CachingMapper) Cached(id any) (core.Entity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.cache[id]
	return e, ok
}

var _ core.CachedDataMapper = (*CachingMapper)(nil)
