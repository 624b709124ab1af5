package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Options struct {
	Address  string
	Password string
	DB       int
}

// Cache wraps a redis client. A Cache with a nil client is valid: reads miss,
// writes are dropped and claims always succeed, so the portal keeps working
// without redis.
type Cache struct {
	client *redis.Client
	log    *zap.Logger
}

// NewCache connects to redis, returning a disabled cache when it is unreachable
func NewCache(ctx context.Context, opts Options, log *zap.Logger) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("Redis not available. Running without Redis.", zap.Error(err))
		_ = client.Close()
		return &Cache{log: log}
	}

	log.Info("Redis connected successfully.")
	return &Cache{client: client, log: log}
}

// NewCacheFromClient wraps an existing client
func NewCacheFromClient(client *redis.Client, log *zap.Logger) *Cache {
	return &Cache{client: client, log: log}
}

func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

// Get decodes a JSON value into dest and reports whether it was found
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	b, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		c.log.Debug("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, b, ttl).Err(); err != nil {
		c.log.Debug("cache set failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

// GetVersion returns the current version number stored under key (0 if unset)
func (c *Cache) GetVersion(ctx context.Context, key string) int64 {
	if !c.Enabled() {
		return 0
	}
	v, err := c.client.Get(ctx, key).Int64()
	if err != nil {
		return 0
	}
	return v
}

// IncrementVersion bumps a version key so cached entries built on the old
// version are never read again
func (c *Cache) IncrementVersion(ctx context.Context, key string) {
	if !c.Enabled() {
		return
	}
	if err := c.client.Incr(ctx, key).Err(); err != nil {
		c.log.Warn("cache version bump failed", zap.String("key", key), zap.Error(err))
	}
}

// Claim takes a short lived exclusive marker. It returns false when someone
// else holds it.
func (c *Cache) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if !c.Enabled() {
		return true, nil
	}
	return c.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339Nano), ttl).Result()
}

func (c *Cache) Release(ctx context.Context, key string) {
	if !c.Enabled() {
		return
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.log.Warn("cache release failed", zap.String("key", key), zap.Error(err))
	}
}
