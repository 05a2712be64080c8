package source

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/newthinker/momentum/internal/normalize"
)

// CacheObserver is notified of every cache lookup.
type CacheObserver func(source string, hit bool)

// Cached wraps a Source with a TTL cache keyed by source name and the
// sorted ticker set. Errors are never cached.
type Cached struct {
	inner    Source
	ttl      time.Duration
	now      func() time.Time
	observer CacheObserver

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	rows    []normalize.Row
	expires time.Time
}

// CacheOption configures a Cached source
type CacheOption func(*Cached)

// WithClock replaces time.Now
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cached) { c.now = now }
}

// WithObserver reports hits and misses, e.g. to metrics
func WithObserver(fn CacheObserver) CacheOption {
	return func(c *Cached) { c.observer = fn }
}

// NewCached wraps inner. A non-positive ttl returns inner unchanged.
func NewCached(inner Source, ttl time.Duration, opts ...CacheOption) Source {
	if ttl <= 0 {
		return inner
	}
	c := &Cached{
		inner:   inner,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cached) Name() string {
	return c.inner.Name()
}

func (c *Cached) Columns() normalize.ColumnMapping {
	return c.inner.Columns()
}

// FetchRows serves from cache while the entry is fresh. Concurrent misses
// for the same key may both reach the inner source. Expired entries are
// dropped on lookup and swept on every write, so the map only holds live
// ticker sets.
func (c *Cached) FetchRows(ctx context.Context, tickers []string) ([]normalize.Row, error) {
	key := cacheKey(c.inner.Name(), tickers)

	c.mu.Lock()
	e, ok := c.entries[key]
	fresh := ok && c.now().Before(e.expires)
	if ok && !fresh {
		delete(c.entries, key)
	}
	c.mu.Unlock()

	c.observe(fresh)
	if fresh {
		return e.rows, nil
	}

	rows, err := c.inner.FetchRows(ctx, tickers)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	now := c.now()
	for k, old := range c.entries {
		if !now.Before(old.expires) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = cacheEntry{rows: rows, expires: now.Add(c.ttl)}
	c.mu.Unlock()

	return rows, nil
}

// Len reports how many entries are held, fresh or not
func (c *Cached) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Purge drops every entry
func (c *Cached) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

func (c *Cached) observe(hit bool) {
	if c.observer != nil {
		c.observer(c.inner.Name(), hit)
	}
}

func cacheKey(name string, tickers []string) string {
	sorted := append([]string(nil), tickers...)
	sort.Strings(sorted)
	return name + "|" + strings.Join(sorted, ",")
}
