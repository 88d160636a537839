package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client is a thin wrapper around go-redis used for small read-side
// caches (the cart badge count). All methods are nil-safe so callers can
// run without Redis in tests and dev setups.
type Client struct {
	rdb *redis.Client
}

func New(addr string) *Client {
	return &Client{rdb: redis.NewClient(&redis.Options{Addr: addr})}
}

// GetInt64 returns the cached value and whether it was present.
func (c *Client) GetInt64(ctx context.Context, key string) (int64, bool) {
	if c == nil || c.rdb == nil {
		return 0, false
	}
	v, err := c.rdb.Get(ctx, key).Int64()
	if err != nil {
		return 0, false
	}
	return v, true
}

// SetInt64 stores the value with a TTL. Errors are swallowed: the cache is
// advisory and the source of truth is the database.
func (c *Client) SetInt64(ctx context.Context, key string, v int64, ttl time.Duration) {
	if c == nil || c.rdb == nil {
		return
	}
	c.rdb.Set(ctx, key, v, ttl)
}

// Delete drops the key, if present.
func (c *Client) Delete(ctx context.Context, key string) {
	if c == nil || c.rdb == nil {
		return
	}
	c.rdb.Del(ctx, key)
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
