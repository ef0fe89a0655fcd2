package symbols

import (
	lru "github.com/hashicorp/golang-lru"
)

// Cache keeps recently parsed module images so repeated lookups in the
// same module do not re-map and re-parse the file. Evicted resolvers
// release their mapping.
type Cache struct {
	lru *lru.Cache
}

type cacheKey struct {
	path string
	base uint64
}

// NewCache creates a cache holding up to size parsed images.
func NewCache(size int) (*Cache, error) {
	c, err := lru.NewWithEvict(size, func(_ interface{}, value interface{}) {
		value.(*Static).Close()
	})
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c}, nil
}

// Resolver returns a static resolver for the image at path loaded at
// base, reusing a previously parsed one when possible.
func (c *Cache) Resolver(path string, base uint64) (*Static, error) {
	key := cacheKey{path: path, base: base}
	if v, ok := c.lru.Get(key); ok {
		return v.(*Static), nil
	}
	s, err := OpenStatic(path, base)
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, s)
	return s, nil
}

// Close releases every cached resolver.
func (c *Cache) Close() {
	c.lru.Purge()
}
