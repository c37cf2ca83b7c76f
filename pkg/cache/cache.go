// Package cache memoises compiled schemas keyed by the content of their
// metadata.
//
// A Cache is bounded: once full, adding a schema evicts the least recently
// used entry, and an evicted form is simply rebuilt on its next lookup.
// Concurrent lookups for the same content share a single build. Only
// successful builds are stored, so a form with problems is rebuilt on every
// call.
package cache

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-formcompiler/pkg/metadata"
	"github.com/goliatone/go-formcompiler/pkg/schema"
)

// DefaultMaxEntries is used by callers that do not size the cache.
const DefaultMaxEntries = 256

// Builder compiles metadata on a miss.
type Builder func(metadata.FormMetadata) (*schema.Schema, []schema.Problem)

// Stats is a snapshot of cache counters. Misses counts builds actually run;
// callers that joined an in-flight build are not counted twice.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Entries   int
}

// Option customises a Cache.
type Option func(*Cache)

// WithLogger routes cache diagnostics to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Cache is safe for concurrent use.
type Cache struct {
	entries *lru.Cache
	group   singleflight.Group
	logger  *zap.Logger

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type result struct {
	schema   *schema.Schema
	problems []schema.Problem
	hit      bool
}

// New returns a cache holding at most maxEntries schemas.
func New(maxEntries int, options ...Option) (*Cache, error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("cache: max entries must be positive, got %d", maxEntries)
	}
	c := &Cache{logger: zap.NewNop()}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}

	entries, err := lru.NewWithEvict(maxEntries, c.onEvict)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	c.entries = entries
	return c, nil
}

func (c *Cache) onEvict(key, _ interface{}) {
	c.logger.Debug("schema cache entry removed", zap.Any("key", key))
}

// Compile returns the cached schema for meta or builds it. hit reports
// whether the schema came from the cache; a hit returns the same *Schema
// as the build that populated the entry.
func (c *Cache) Compile(meta metadata.FormMetadata, build Builder) (s *schema.Schema, problems []schema.Problem, hit bool) {
	key, err := metadata.Fingerprint(meta)
	if err != nil {
		c.logger.Warn("schema cache bypassed", zap.String("form", meta.ID), zap.Error(err))
		s, problems = build(meta)
		return s, problems, false
	}

	if cached, ok := c.entries.Get(key); ok {
		c.hits.Add(1)
		c.logger.Debug("schema cache hit", zap.String("form", meta.ID), zap.String("key", key))
		return cached.(*schema.Schema), nil, true
	}

	v, _, _ := c.group.Do(key, func() (interface{}, error) {
		// a build that finished between our Get and Do has already stored it
		if cached, ok := c.entries.Get(key); ok {
			c.hits.Add(1)
			return result{schema: cached.(*schema.Schema), hit: true}, nil
		}

		c.misses.Add(1)
		s, problems := build(meta)
		if s == nil || len(problems) > 0 {
			c.logger.Debug("schema build failed",
				zap.String("form", meta.ID),
				zap.String("key", key),
				zap.Int("problems", len(problems)),
			)
			return result{problems: problems}, nil
		}

		if evicted := c.entries.Add(key, s); evicted {
			c.evictions.Add(1)
		}
		c.logger.Debug("schema cache miss", zap.String("form", meta.ID), zap.String("key", key))
		return result{schema: s}, nil
	})

	r := v.(result)
	return r.schema, r.problems, r.hit
}

// Contains reports whether a schema for meta is cached without touching its
// recency.
func (c *Cache) Contains(meta metadata.FormMetadata) bool {
	key, err := metadata.Fingerprint(meta)
	if err != nil {
		return false
	}
	return c.entries.Contains(key)
}

// Len returns the number of cached schemas.
func (c *Cache) Len() int { return c.entries.Len() }

// Purge drops every entry. Counters are kept.
func (c *Cache) Purge() { c.entries.Purge() }

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Entries:   c.entries.Len(),
	}
}
