package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxEntrySize bounds the size of a single cached file
const DefaultMaxEntrySize = 1 << 20

// Cache keeps recently read file contents keyed by archive path. A nil *Cache is a
// valid, always-empty cache
type Cache struct {
	lru          *lru.Cache[string, []byte]
	maxEntrySize int64
}

// New creates a cache holding at most entries files of at most maxEntrySize bytes
// each. It returns nil when entries is zero
func New(entries int, maxEntrySize int64) (*Cache, error) {
	if entries == 0 {
		return nil, nil
	}
	if entries < 0 {
		return nil, fmt.Errorf("cache entries cannot be negative: %d", entries)
	}
	if maxEntrySize <= 0 {
		maxEntrySize = DefaultMaxEntrySize
	}

	l, err := lru.New[string, []byte](entries)
	if err != nil {
		return nil, fmt.Errorf("creating LRU cache: %w", err)
	}

	return &Cache{lru: l, maxEntrySize: maxEntrySize}, nil
}

// Get returns the cached contents for path. The returned slice must not be modified
func (c *Cache) Get(path string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}

	return c.lru.Get(path)
}

// Add stores data for path unless it exceeds the per-entry limit
func (c *Cache) Add(path string, data []byte) bool {
	if c == nil || int64(len(data)) > c.maxEntrySize {
		return false
	}

	c.lru.Add(path, data)
	return true
}

// Len returns the number of cached files
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}

	return c.lru.Len()
}

// Purge drops every cached file
func (c *Cache) Purge() {
	if c == nil {
		return
	}

	c.lru.Purge()
}
