/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package respcache

import (
	"container/list"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Default parameter values.
const (
	DefaultMaxEntries = 100
	DefaultStaleAfter = 5 * time.Minute
)

// ErrInvalidConfiguration is returned when Cache is constructed with non-positive limits.
var ErrInvalidConfiguration = errors.New("invalid response cache configuration")

type cacheEntry[V any] struct {
	fingerprint string
	content     V
	createdAt   time.Time
}

// Opts represents options for Cache.
type Opts struct {
	// MaxEntries is the maximum number of entries in the cache.
	MaxEntries int

	// StaleAfter is the age after which an entry is not returned anymore.
	StaleAfter time.Duration

	// MetricsCollector is used to collect statistics about cache usage. Metrics are disabled if nil.
	MetricsCollector MetricsCollector

	// NowFunc returns the current time. time.Now is used by default.
	NowFunc func() time.Time
}

// Cache stores the most recent responses keyed by fingerprint.
type Cache[V any] struct {
	maxEntries int
	staleAfter time.Duration
	now        func() time.Time
	metrics    MetricsCollector

	mu      sync.RWMutex
	ageList *list.List // front is the newest entry, back is the oldest one
	entries map[string]*list.Element
}

// New creates a new Cache with the provided limits and metrics collector (may be nil).
func New[V any](maxEntries int, staleAfter time.Duration, metricsCollector MetricsCollector) (*Cache[V], error) {
	return NewWithOpts[V](Opts{MaxEntries: maxEntries, StaleAfter: staleAfter, MetricsCollector: metricsCollector})
}

// NewWithOpts creates a new Cache with the provided options.
func NewWithOpts[V any](opts Opts) (*Cache[V], error) {
	if opts.MaxEntries <= 0 {
		return nil, fmt.Errorf("%w: max entries must be greater than 0, got %d", ErrInvalidConfiguration, opts.MaxEntries)
	}
	if opts.StaleAfter <= 0 {
		return nil, fmt.Errorf("%w: stale after must be greater than 0, got %s", ErrInvalidConfiguration, opts.StaleAfter)
	}
	if opts.MetricsCollector == nil {
		opts.MetricsCollector = disabledMetrics{}
	}
	if opts.NowFunc == nil {
		opts.NowFunc = time.Now
	}
	return &Cache[V]{
		maxEntries: opts.MaxEntries,
		staleAfter: opts.StaleAfter,
		now:        opts.NowFunc,
		metrics:    opts.MetricsCollector,
		ageList:    list.New(),
		entries:    make(map[string]*list.Element, opts.MaxEntries),
	}, nil
}

// NewFromConfig creates a new Cache using limits from cfg.
// Limits in opts are ignored.
func NewFromConfig[V any](cfg *Config, opts Opts) (*Cache[V], error) {
	opts.MaxEntries = cfg.MaxEntries
	opts.StaleAfter = time.Duration(cfg.StaleAfter)
	return NewWithOpts[V](opts)
}

// Get returns the content stored for the fingerprint if it's present and not stale.
func (c *Cache[V]) Get(fingerprint string) (content V, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()

	elem, found := c.entries[fingerprint]
	if !found {
		c.metrics.IncMisses()
		return content, false
	}
	entry := elem.Value.(*cacheEntry[V])
	if now.Sub(entry.createdAt) >= c.staleAfter {
		c.metrics.IncStaleMisses()
		return content, false
	}
	c.metrics.IncHits()
	return entry.content, true
}

// Put inserts or overwrites the content for the fingerprint.
// Adding a new fingerprint to the full cache evicts the oldest entry.
// Overwriting never evicts, the overwritten entry becomes the newest one.
func (c *Cache[V]) Put(fingerprint string, content V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// The clock is read under the lock so that the age list stays ordered by createdAt.
	now := c.now()

	if elem, found := c.entries[fingerprint]; found {
		elem.Value = &cacheEntry[V]{fingerprint: fingerprint, content: content, createdAt: now}
		c.ageList.MoveToFront(elem)
		return
	}

	if len(c.entries) >= c.maxEntries {
		c.removeOldest()
		c.metrics.AddEvictions(1)
	}
	c.entries[fingerprint] = c.ageList.PushFront(&cacheEntry[V]{fingerprint: fingerprint, content: content, createdAt: now})
	c.metrics.SetAmount(len(c.entries))
}

// Remove removes the entry for the fingerprint and reports whether it was present.
func (c *Cache[V]) Remove(fingerprint string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, found := c.entries[fingerprint]
	if !found {
		return false
	}
	c.ageList.Remove(elem)
	delete(c.entries, fingerprint)
	c.metrics.SetAmount(len(c.entries))
	return true
}

// Clear removes all entries. Removed entries are not counted as evictions.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element, c.maxEntries)
	c.ageList.Init()
	c.metrics.SetAmount(0)
}

// Len returns the number of entries in the cache, stale ones included.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache[V]) removeOldest() {
	elem := c.ageList.Back()
	if elem == nil {
		return
	}
	c.ageList.Remove(elem)
	delete(c.entries, elem.Value.(*cacheEntry[V]).fingerprint)
}
