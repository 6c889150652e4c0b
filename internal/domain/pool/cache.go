// Package pool caches candidate items per (theme, rating) so a round does not
// refetch its theme's results.
package pool

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/okian/gifduel/internal/domain/model"
	"github.com/okian/gifduel/pkg/logger"
	"github.com/okian/gifduel/pkg/metrics"
)

// minPoolSize is the smallest pool that can form a pair.
const minPoolSize = 2

// Fetcher retrieves raw candidates for a normalized theme.
type Fetcher interface {
	Fetch(ctx context.Context, theme string, rating model.Rating) ([]model.Item, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, theme string, rating model.Rating) ([]model.Item, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, theme string, rating model.Rating) ([]model.Item, error) {
	return f(ctx, theme, rating)
}

// Provider is what a duel session needs from the cache.
type Provider interface {
	Ensure(ctx context.Context, theme string, rating model.Rating) ([]model.Item, error)
}

// Cache is an insert-only map from "theme|rating" to a pool of at least two
// items. Entries are never evicted or replaced. Safe for concurrent use;
// concurrent misses on one key share a single upstream fetch.
type Cache struct {
	mu      sync.RWMutex
	entries map[string][]model.Item

	fetcher Fetcher
	flight  singleflight.Group
	logger  logger.Logger
}

// New creates an empty cache backed by fetcher.
func New(fetcher Fetcher, opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string][]model.Item),
		fetcher: fetcher,
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key builds the cache key for an already normalized theme.
func Key(theme string, rating model.Rating) string {
	return theme + "|" + string(rating)
}

// Ensure returns the pool for theme and rating, fetching it on first use.
// The returned slice is a copy.
func (c *Cache) Ensure(ctx context.Context, theme string, rating model.Rating) ([]model.Item, error) {
	norm := model.NormalizeTheme(theme)
	if norm == "" {
		return nil, ErrEmptyTheme
	}
	key := Key(norm, rating)

	if items, ok := c.lookup(key); ok {
		metrics.RecordPoolHit()
		return items, nil
	}
	metrics.RecordPoolMiss()

	// The shared fetch must outlive any one caller; each caller still stops
	// waiting when its own ctx ends.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(key, func() (any, error) {
		// A concurrent caller may have filled the entry while we queued.
		if items, ok := c.lookup(key); ok {
			return items, nil
		}
		return c.fill(fetchCtx, key, norm, rating)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("ensure pool %q: %w", key, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.Debug(ctx, "shared in-flight pool fetch", logger.String("key", key))
		}
		return clone(res.Val.([]model.Item)), nil
	}
}

func (c *Cache) fill(ctx context.Context, key, theme string, rating model.Rating) ([]model.Item, error) {
	start := time.Now()
	raw, err := c.fetcher.Fetch(ctx, theme, rating)
	if err != nil {
		metrics.RecordPoolFetch("error")
		c.logger.Warn(ctx, "pool fetch failed", logger.String("key", key), logger.Error(err))
		return nil, fmt.Errorf("fetch pool %q: %w", key, err)
	}

	usable := make([]model.Item, 0, len(raw))
	for _, it := range raw {
		if it.DisplayURL != "" {
			usable = append(usable, it)
		}
	}
	if len(usable) < minPoolSize {
		metrics.RecordPoolFetch("insufficient")
		c.logger.Info(ctx, "pool too small",
			logger.String("key", key),
			logger.Int("fetched", len(raw)),
			logger.Int("usable", len(usable)),
		)
		return nil, fmt.Errorf("%w: %d usable of %d for %q", ErrInsufficientResults, len(usable), len(raw), key)
	}

	c.mu.Lock()
	c.entries[key] = usable
	n := len(c.entries)
	c.mu.Unlock()

	metrics.RecordPoolFetch("ok")
	metrics.UpdatePoolEntries(n)
	c.logger.Info(ctx, "pool cached",
		logger.String("key", key),
		logger.Int("items", len(usable)),
		logger.Duration("took", time.Since(start)),
	)
	return usable, nil
}

func (c *Cache) lookup(key string) ([]model.Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	items, ok := c.entries[key]
	if !ok || len(items) < minPoolSize {
		return nil, false
	}
	return clone(items), true
}

// Len returns the number of cached pools.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Keys returns the cached keys in sorted order.
func (c *Cache) Keys() []string {
	c.mu.RLock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

func clone(items []model.Item) []model.Item {
	out := make([]model.Item, len(items))
	copy(out, items)
	return out
}
