package tiles

import (
	"image"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache is an address-keyed, size-bounded cache evicting the least recently
// used entry. Safe for concurrent use.
type Cache[V any] struct {
	lru *lru.Cache[TileAddress, V]
}

// NewCache creates a cache holding up to size entries. onEvict, if not nil,
// is called for every entry that leaves the cache.
func NewCache[V any](size int, onEvict func(TileAddress, V)) (*Cache[V], error) {
	var (
		c   *lru.Cache[TileAddress, V]
		err error
	)
	if onEvict != nil {
		c, err = lru.NewWithEvict[TileAddress, V](size, onEvict)
	} else {
		c, err = lru.New[TileAddress, V](size)
	}
	if err != nil {
		return nil, err
	}
	return &Cache[V]{lru: c}, nil
}

// NewImageCache is a Cache of decoded tile images.
func NewImageCache(size int) (*Cache[image.Image], error) {
	return NewCache[image.Image](size, nil)
}

func (c *Cache[V]) Get(key TileAddress) (V, bool) {
	return c.lru.Get(key)
}

func (c *Cache[V]) Set(key TileAddress, value V) {
	c.lru.Add(key, value)
}

func (c *Cache[V]) Contains(key TileAddress) bool {
	return c.lru.Contains(key)
}

func (c *Cache[V]) Len() int {
	return c.lru.Len()
}

// Resize changes the capacity, evicting the oldest entries if it shrinks.
func (c *Cache[V]) Resize(size int) {
	c.lru.Resize(size)
}

func (c *Cache[V]) Clear() {
	c.lru.Purge()
}
