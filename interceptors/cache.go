package interceptors

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRUCache is an in-memory ResultCache that evicts the least recently used
// entry once it holds size entries
type LRUCache struct {
	entries *lru.Cache[string, []any]
}

// NewLRUCache creates a result cache holding at most size entries
func NewLRUCache(size int) (*LRUCache, error) {
	entries, err := lru.New[string, []any](size)
	if err != nil {
		return nil, err
	}
	return &LRUCache{entries: entries}, nil
}

// Get implements ResultCache
func (c *LRUCache) Get(_ context.Context, key string) ([]any, bool, error) {
	results, ok := c.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	return append([]any(nil), results...), true, nil
}

// Set implements ResultCache
func (c *LRUCache) Set(_ context.Context, key string, results []any) error {
	c.entries.Add(key, append([]any(nil), results...))
	return nil
}

// Len returns the number of cached entries
func (c *LRUCache) Len() int {
	return c.entries.Len()
}
