// Package redis stores the results of intercepted calls in Redis.
package redis

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	"github.com/glimte/mmate-plugin/interceptors"
	"github.com/redis/go-redis/v9"
)

// Client is the subset of go-redis client methods used by ResultCache
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Config holds cache key and expiry options
type Config struct {
	// Prefix is prepended to every call key
	Prefix string
	// TTL is the expiry of cached results; zero keeps them until evicted
	TTL time.Duration
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{Prefix: "mmate:plugin:", TTL: 5 * time.Minute}
}

// ResultCache implements interceptors.ResultCache over Redis. Results are
// gob encoded, so result types other than the predeclared ones must be
// registered with gob.Register.
type ResultCache struct {
	client Client
	cfg    Config
}

// NewResultCache creates a cache on client
func NewResultCache(client Client, cfg Config) *ResultCache {
	return &ResultCache{client: client, cfg: cfg}
}

// Get implements interceptors.ResultCache
func (c *ResultCache) Get(ctx context.Context, key string) ([]any, bool, error) {
	data, err := c.client.Get(ctx, c.cfg.Prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis cache get %s: %w", key, err)
	}

	var results []any
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&results); err != nil {
		return nil, false, fmt.Errorf("redis cache decode %s: %w", key, err)
	}
	return results, true, nil
}

// Set implements interceptors.ResultCache
func (c *ResultCache) Set(ctx context.Context, key string, results []any) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(results); err != nil {
		return fmt.Errorf("redis cache encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, c.cfg.Prefix+key, buf.Bytes(), c.cfg.TTL).Err(); err != nil {
		return fmt.Errorf("redis cache set %s: %w", key, err)
	}
	return nil
}

// Invalidate removes the cached results for key
func (c *ResultCache) Invalidate(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.cfg.Prefix+key).Err()
}

var _ interceptors.ResultCache = (*ResultCache)(nil)
