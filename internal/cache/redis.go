package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oggyb/matcha-engine/internal/config"
)

const counterTTL = time.Hour

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

// KeyForFameRating generates the Redis key mirroring a user's fame rating.
func (c *RedisCache) KeyForFameRating(userID uint64) string {
	return fmt.Sprintf("fame:rating:%d", userID)
}

// KeyForUnread generates the Redis key for a user's unread message count.
func (c *RedisCache) KeyForUnread(userID uint64) string {
	return fmt.Sprintf("unread:%d", userID)
}

// BumpFameRating adjusts the cached fame rating after a committed view or
// like transaction. Best effort: the DB value is authoritative, the cache
// only avoids a read per lookup. No-op when the key is not cached yet.
func (c *RedisCache) BumpFameRating(ctx context.Context, userID uint64, delta int64) error {
	key := c.KeyForFameRating(userID)
	exists, err := c.Client.Exists(ctx, key).Result()
	if err != nil || exists == 0 {
		return err
	}
	if err := c.Client.IncrBy(ctx, key, delta).Err(); err != nil {
		return err
	}
	return c.Client.Expire(ctx, key, counterTTL).Err()
}

// GetFameRating reads the cached fame rating. Returns ok=false on miss.
func (c *RedisCache) GetFameRating(ctx context.Context, userID uint64) (int64, bool, error) {
	val, err := c.Client.Get(ctx, c.KeyForFameRating(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	} else if err != nil {
		return 0, false, err
	}
	// refresh TTL on access
	_ = c.Client.Expire(ctx, c.KeyForFameRating(userID), counterTTL).Err()
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// SetFameRating stores the DB-sourced fame rating with a TTL.
func (c *RedisCache) SetFameRating(ctx context.Context, userID uint64, rating int64) error {
	return c.Client.Set(ctx, c.KeyForFameRating(userID), rating, counterTTL).Err()
}

// IncrUnread bumps the unread counter for a user who was offline when a
// message landed.
func (c *RedisCache) IncrUnread(ctx context.Context, userID uint64) (int64, error) {
	key := c.KeyForUnread(userID)
	n, err := c.Client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	_ = c.Client.Expire(ctx, key, counterTTL).Err()
	return n, nil
}

// ClearUnread resets the unread counter, called on history fetch.
func (c *RedisCache) ClearUnread(ctx context.Context, userID uint64) error {
	return c.Client.Del(ctx, c.KeyForUnread(userID)).Err()
}
