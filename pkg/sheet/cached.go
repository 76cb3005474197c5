package sheet

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/imiq/imiq-backend/pkg/logger"
)

// Cache is the key/value surface the cached store needs.
type Cache interface {
	Lookup(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	TableKey(name string) string
}

// CacheRecorder counts cache outcomes.
type CacheRecorder interface {
	CacheHit(table string)
	CacheMiss(table string)
}

// Cached serves table snapshots from a cache and drops them on every write.
// Cache failures never fail the call; the backing store stays authoritative.
type Cached struct {
	next     Store
	cache    Cache
	ttl      time.Duration
	logg     *logger.Logger
	recorder CacheRecorder
}

type CachedOption func(*Cached)

func WithCacheRecorder(r CacheRecorder) CachedOption {
	return func(c *Cached) { c.recorder = r }
}

func NewCached(next Store, cache Cache, ttl time.Duration, logg *logger.Logger, opts ...CachedOption) (*Cached, error) {
	if next == nil {
		return nil, fmt.Errorf("backing store required")
	}
	if cache == nil {
		return nil, fmt.Errorf("cache required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	c := &Cached{next: next, cache: cache, ttl: ttl, logg: logg}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Cached) ReadTable(ctx context.Context, name string) (*Table, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	key := c.cache.TableKey(name)
	raw, ok, err := c.cache.Lookup(ctx, key)
	if err != nil {
		c.logg.Warn(c.logg.WithTable(ctx, name), "table cache lookup failed: "+err.Error())
	}
	if ok {
		var t Table
		if err := json.Unmarshal([]byte(raw), &t); err == nil {
			c.hit(name)
			t.Normalize()
			return &t, nil
		}
		c.logg.Warn(c.logg.WithTable(ctx, name), "discarding undecodable cached table")
	}
	c.miss(name)

	t, err := c.next.ReadTable(ctx, name)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(t)
	if err != nil {
		return t, nil
	}
	if err := c.cache.Set(ctx, key, string(payload), c.ttl); err != nil {
		c.logg.Warn(c.logg.WithTable(ctx, name), "table cache fill failed: "+err.Error())
	}
	return t, nil
}

func (c *Cached) AppendRow(ctx context.Context, name string, row Row) error {
	err := c.next.AppendRow(ctx, name, row)
	c.invalidate(ctx, name)
	return err
}

func (c *Cached) UpdateRows(ctx context.Context, name string, match func(Row) bool, update func(Row) Row) (int, error) {
	n, err := c.next.UpdateRows(ctx, name, match, update)
	c.invalidate(ctx, name)
	return n, err
}

func (c *Cached) ReplaceTable(ctx context.Context, table *Table) error {
	err := c.next.ReplaceTable(ctx, table)
	if table != nil {
		c.invalidate(ctx, table.Name)
	}
	return err
}

func (c *Cached) Ping(ctx context.Context) error {
	if p, ok := c.next.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (c *Cached) invalidate(ctx context.Context, name string) {
	if validateName(name) != nil {
		return
	}
	if err := c.cache.Del(ctx, c.cache.TableKey(name)); err != nil {
		c.logg.Warn(c.logg.WithTable(ctx, name), "table cache invalidation failed: "+err.Error())
	}
}

func (c *Cached) hit(name string) {
	if c.recorder != nil {
		c.recorder.CacheHit(name)
	}
}

func (c *Cached) miss(name string) {
	if c.recorder != nil {
		c.recorder.CacheMiss(name)
	}
}
