// Package cache holds the Redis-backed read caches. The only cached value is
// the per-user "likes received" counter shown on /me/stats; the database
// stays the source of truth and a miss always falls back to it.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tbourn/go-match-backend/internal/config"
)

// LikeCounter caches the number of likes a user has received.
type LikeCounter interface {
	// GetLikeCount returns the cached count and whether it was present.
	GetLikeCount(ctx context.Context, userID string) (int64, bool, error)
	// SetLikeCount stores count, refreshing the TTL.
	SetLikeCount(ctx context.Context, userID string, count int64) error
	// IncrLikeCount bumps a cached count. A missing key is left missing so
	// the next read recomputes it from the database.
	IncrLikeCount(ctx context.Context, userID string) error
}

// NewRedisClient builds a go-redis client from cfg. Only Addr is mandatory.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	opts := &redis.Options{Addr: cfg.Addr}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	return redis.NewClient(opts)
}

// RedisCache implements LikeCounter on Redis.
type RedisCache struct {
	Client *redis.Client
	TTL    time.Duration
}

// NewRedisCache wraps client. ttl <= 0 defaults to one hour.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisCache{Client: client, TTL: ttl}
}

// Ping checks connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

// KeyForLikeCount generates the Redis key for a user's like count.
func KeyForLikeCount(userID string) string {
	return fmt.Sprintf("likes:count:%s", userID)
}

// GetLikeCount implements LikeCounter. A hit refreshes the TTL.
func (c *RedisCache) GetLikeCount(ctx context.Context, userID string) (int64, bool, error) {
	key := KeyForLikeCount(userID)
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil // cache miss
	} else if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		// Corrupt entry; drop it and report a miss.
		_ = c.Client.Del(ctx, key).Err()
		return 0, false, nil
	}
	_ = c.Client.Expire(ctx, key, c.TTL).Err()
	return n, true, nil
}

// SetLikeCount implements LikeCounter.
func (c *RedisCache) SetLikeCount(ctx context.Context, userID string, count int64) error {
	return c.Client.Set(ctx, KeyForLikeCount(userID), count, c.TTL).Err()
}

var incrIfExists = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  local v = redis.call('INCR', KEYS[1])
  redis.call('EXPIRE', KEYS[1], ARGV[1])
  return v
end
return -1
`)

// IncrLikeCount implements LikeCounter.
func (c *RedisCache) IncrLikeCount(ctx context.Context, userID string) error {
	secs := int64(c.TTL / time.Second)
	if secs < 1 {
		secs = 1
	}
	return incrIfExists.Run(ctx, c.Client, []string{KeyForLikeCount(userID)}, secs).Err()
}

// Nop is a LikeCounter that never caches; used when Redis is not configured.
type Nop struct{}

// GetLikeCount always misses.
func (Nop) GetLikeCount(context.Context, string) (int64, bool, error) { return 0, false, nil }

// SetLikeCount discards the value.
func (Nop) SetLikeCount(context.Context, string, int64) error { return nil }

// IncrLikeCount does nothing.
func (Nop) IncrLikeCount(context.Context, string) error { return nil }

var (
	_ LikeCounter = (*RedisCache)(nil)
	_ LikeCounter = Nop{}
)
