// Package cache stores finished analyses under a content address: a digest
// of the normalized contract text plus a digest of the legally relevant part
// of the user context.
//
// An entry whose format version differs from FormatVersion, or whose payload
// no longer decodes, is deleted on read and reported as a miss. The store is
// bounded; when a write would exceed capacity the entries with the oldest
// write time are removed first. Reads never refresh an entry's age.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"
)

// FormatVersion tags every stored payload. Bump it whenever the shape of a
// cached report changes.
const FormatVersion = 3

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 100

// Entry is one stored analysis.
type Entry struct {
	Key      string
	Version  int
	StoredAt time.Time
	Payload  []byte
}

// Store is the persistence behind a Cache.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, e Entry) error
	Delete(ctx context.Context, key string) error
	// List returns every entry's key and write time. Payloads may be omitted.
	List(ctx context.Context) ([]Entry, error)
}

// Cache is a bounded, versioned content-addressed cache. It is safe for
// concurrent use.
type Cache struct {
	mu       sync.Mutex
	store    Store
	capacity int
	now      func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source used for write timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New wraps store with a capacity bound.
func New(store Store, capacity int, opts ...Option) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &Cache{store: store, capacity: capacity, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get decodes the entry stored under key into v. It reports false on a miss,
// on a stale or corrupt entry (which is deleted), and on store errors.
func (c *Cache) Get(ctx context.Context, key string, v any) bool {
	e, ok, err := c.store.Get(ctx, key)
	if err != nil {
		log.Printf("cache: read %s: %v", short(key), err)
		return false
	}
	if !ok {
		return false
	}
	if e.Version != FormatVersion {
		log.Printf("cache: dropping %s, version %d != %d", short(key), e.Version, FormatVersion)
		c.drop(ctx, key)
		return false
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		log.Printf("cache: dropping corrupt entry %s: %v", short(key), err)
		c.drop(ctx, key)
		return false
	}
	return true
}

// Put stores v under key, evicting the oldest entries first if the store
// would exceed capacity. Eviction and the write happen under one lock and
// are decided from a single listing of the store.
func (c *Cache) Put(ctx context.Context, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	existing, err := c.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list cache entries: %w", err)
	}
	others := make([]Entry, 0, len(existing))
	for _, e := range existing {
		if e.Key != key {
			others = append(others, e)
		}
	}
	if excess := len(others) + 1 - c.capacity; excess > 0 {
		sort.SliceStable(others, func(i, j int) bool {
			return others[i].StoredAt.Before(others[j].StoredAt)
		})
		for _, e := range others[:excess] {
			if err := c.store.Delete(ctx, e.Key); err != nil {
				return fmt.Errorf("evict %s: %w", short(e.Key), err)
			}
		}
	}

	return c.store.Put(ctx, Entry{
		Key:      key,
		Version:  FormatVersion,
		StoredAt: c.now(),
		Payload:  payload,
	})
}

// Len reports how many entries the store holds.
func (c *Cache) Len(ctx context.Context) (int, error) {
	entries, err := c.store.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (c *Cache) drop(ctx context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.Delete(ctx, key); err != nil {
		log.Printf("cache: delete %s: %v", short(key), err)
	}
}

func short(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
