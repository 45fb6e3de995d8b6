// Package cache holds the ephemeral status cache that mirrors task and
// execution state for fast polling. The store remains the source of truth.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache is a key/value store with per-entry expiry.
type Cache interface {
	// Set stores value under key for ttl. Strings and byte slices are stored
	// as-is; anything else is JSON encoded.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// Get returns the stored bytes. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// ErrClosed is returned by a MemoryCache after Close.
var ErrClosed = errors.New("cache closed")

const (
	defaultSize = 10000
	defaultTTL  = time.Hour
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is an in-process Cache backed by an expirable LRU.
// The LRU's own TTL is the upper bound; shorter per-entry TTLs are checked on read.
type MemoryCache struct {
	lru    *expirable.LRU[string, entry]
	maxTTL time.Duration
	closed atomic.Bool
	now    func() time.Time
}

// NewMemoryCache creates a cache holding at most size entries, none living
// longer than maxTTL. Zero values fall back to 10000 entries and one hour.
func NewMemoryCache(size int, maxTTL time.Duration) *MemoryCache {
	if size <= 0 {
		size = defaultSize
	}
	if maxTTL <= 0 {
		maxTTL = defaultTTL
	}
	return &MemoryCache{
		lru:    expirable.NewLRU[string, entry](size, nil, maxTTL),
		maxTTL: maxTTL,
		now:    time.Now,
	}
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if c.closed.Load() {
		return ErrClosed
	}
	data, err := encode(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if ttl <= 0 || ttl > c.maxTTL {
		ttl = c.maxTTL
	}
	c.lru.Add(key, entry{value: data, expiresAt: c.now().Add(ttl)})
	return nil
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	if c.closed.Load() {
		return nil, false, ErrClosed
	}
	e, ok := c.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(e.expiresAt) {
		c.lru.Remove(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

// Delete implements Cache.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	if c.closed.Load() {
		return ErrClosed
	}
	c.lru.Remove(key)
	return nil
}

// Ping implements Cache.
func (c *MemoryCache) Ping(context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Len returns the number of entries, including ones not yet swept.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}

// Close makes every further call fail with ErrClosed.
func (c *MemoryCache) Close() error {
	c.closed.Store(true)
	c.lru.Purge()
	return nil
}

func encode(value any) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return json.Marshal(v)
	}
}

var _ Cache = (*MemoryCache)(nil)
