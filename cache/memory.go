package cache

import (
	"context"
	"sync"
	"time"

	"github.com/Kaguya154/dbmodel/types"
)

type memoryEntry struct {
	records []*types.Record
	expires time.Time
}

// MemoryCache 是进程内缓存，过期项在读取时清除。
type MemoryCache struct {
	items sync.Map
	opts  options
}

var _ types.Cache = (*MemoryCache)(nil)

func NewMemoryCache(opts ...Option) *MemoryCache {
	return &MemoryCache{opts: newOptions(opts)}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]*types.Record, bool, error) {
	k := c.opts.key(key)
	val, ok := c.items.Load(k)
	if !ok {
		return nil, false, nil
	}
	e := val.(memoryEntry)
	if !c.opts.clock.Now().Before(e.expires) {
		c.items.Delete(k)
		return nil, false, nil
	}
	return cloneRecords(e.records), true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, records []*types.Record) error {
	c.items.Store(c.opts.key(key), memoryEntry{
		records: cloneRecords(records),
		expires: c.opts.clock.Now().Add(c.opts.ttl),
	})
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		c.items.Delete(c.opts.key(k))
	}
	return nil
}

// Len 返回当前条目数（包括尚未清除的过期项）
func (c *MemoryCache) Len() int {
	n := 0
	c.items.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
