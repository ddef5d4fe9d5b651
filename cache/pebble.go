package cache

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/Kaguya154/dbmodel/types"
)

// PebbleCache 将结果集以 JSON 持久化到 pebble，值的前 8 字节为过期时间（unix 纳秒）。
type PebbleCache struct {
	db   *pebble.DB
	opts options
}

var _ types.Cache = (*PebbleCache)(nil)

// OpenPebble 打开 path 下的缓存库，fs 为 nil 时使用磁盘。
func OpenPebble(path string, fs vfs.FS, opts ...Option) (*PebbleCache, error) {
	po := &pebble.Options{}
	if fs != nil {
		po.FS = fs
	}
	db, err := pebble.Open(path, po)
	if err != nil {
		return nil, fmt.Errorf("open pebble cache: %w", err)
	}
	return &PebbleCache{db: db, opts: newOptions(opts)}, nil
}

func (c *PebbleCache) Get(_ context.Context, key string) ([]*types.Record, bool, error) {
	k := []byte(c.opts.key(key))
	value, closer, err := c.db.Get(k)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("pebble get: %w", err)
	}
	defer closer.Close()

	if len(value) < 8 {
		return nil, false, fmt.Errorf("pebble get %s: corrupt entry", key)
	}
	expires := time.Unix(0, int64(binary.BigEndian.Uint64(value[:8])))
	if !c.opts.clock.Now().Before(expires) {
		if err := c.db.Delete(k, pebble.NoSync); err != nil {
			return nil, false, fmt.Errorf("pebble delete: %w", err)
		}
		return nil, false, nil
	}
	var records []*types.Record
	if err := json.Unmarshal(value[8:], &records); err != nil {
		return nil, false, fmt.Errorf("pebble decode %s: %w", key, err)
	}
	return records, true, nil
}

func (c *PebbleCache) Set(_ context.Context, key string, records []*types.Record) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("pebble encode %s: %w", key, err)
	}
	value := make([]byte, 8, 8+len(payload))
	binary.BigEndian.PutUint64(value, uint64(c.opts.clock.Now().Add(c.opts.ttl).UnixNano()))
	value = append(value, payload...)
	if err := c.db.Set([]byte(c.opts.key(key)), value, pebble.NoSync); err != nil {
		return fmt.Errorf("pebble set: %w", err)
	}
	return nil
}

func (c *PebbleCache) Delete(_ context.Context, keys ...string) error {
	b := c.db.NewBatch()
	defer b.Close()
	for _, k := range keys {
		if err := b.Delete([]byte(c.opts.key(k)), nil); err != nil {
			return fmt.Errorf("pebble delete: %w", err)
		}
	}
	if err := b.Commit(pebble.NoSync); err != nil {
		return fmt.Errorf("pebble delete: %w", err)
	}
	return nil
}

func (c *PebbleCache) Close() error {
	return c.db.Close()
}
