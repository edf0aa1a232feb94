package library

import (
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/inkwellapp/inkwell-server/internal/domain"
	"github.com/inkwellapp/inkwell-server/internal/errors"
)

// DefaultCacheCapacity bounds how many fully materialized documents stay
// in memory at once.
const DefaultCacheCapacity = 10

// Cache is a bounded read-through cache over a Store. Loads for the
// same id are deduplicated so a burst of requests materializes a
// document at most once.
type Cache struct {
	store  *Store
	lru    *lru.Cache[string, *domain.Document]
	group  singleflight.Group
	logger *slog.Logger
}

// NewCache creates a Cache with the given capacity; capacity values
// below 1 fall back to DefaultCacheCapacity.
func NewCache(store *Store, capacity int, logger *slog.Logger) (*Cache, error) {
	if capacity < 1 {
		capacity = DefaultCacheCapacity
	}
	l, err := lru.New[string, *domain.Document](capacity)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "create document cache")
	}
	return &Cache{store: store, lru: l, logger: logger}, nil
}

// Get returns the document with the given id, loading and caching it on
// a miss. Load failures are not cached.
func (c *Cache) Get(id string) (*domain.Document, error) {
	if doc, ok := c.lru.Get(id); ok {
		return doc, nil
	}

	v, err, _ := c.group.Do(id, func() (any, error) {
		// A concurrent loader may have finished while we queued.
		if doc, ok := c.lru.Get(id); ok {
			return doc, nil
		}
		doc, err := c.store.Load(id)
		if err != nil {
			return nil, err
		}
		c.lru.Add(id, doc)
		c.logger.Debug("document cached", "id", id, "cached", c.lru.Len())
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Document), nil
}

// Invalidate drops the cached copy of one document.
func (c *Cache) Invalidate(id string) {
	c.lru.Remove(id)
}

// InvalidateAll empties the cache.
func (c *Cache) InvalidateAll() {
	c.lru.Purge()
}

// Len returns the number of cached documents.
func (c *Cache) Len() int {
	return c.lru.Len()
}
