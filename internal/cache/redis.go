package cache

import (
	"context"
	"errors"
	"time"

	"matchgogo/backend/internal/config"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 500

// Redis keeps entries in Redis with a native TTL, so it can be shared by
// several bot instances.
type Redis struct {
	Client    *redis.Client
	ttl       time.Duration
	keyPrefix string
}

// NewRedisClient builds a client from config. Only Addr is mandatory.
func NewRedisClient(cfg *config.Config) *redis.Client {
	opts := &redis.Options{Addr: cfg.Redis.Addr}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return redis.NewClient(opts)
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{Client: client, ttl: ttl, keyPrefix: "matchgogo:"}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.Client.Get(ctx, r.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	return r.Client.Set(ctx, r.keyPrefix+key, value, r.ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.keyPrefix + k
	}
	return r.Client.Del(ctx, full...).Err()
}

// DeletePrefix walks the keyspace with SCAN and deletes matches batch by batch.
func (r *Redis) DeletePrefix(ctx context.Context, prefix string) error {
	var cursor uint64
	pattern := r.keyPrefix + prefix + "*"
	for {
		keys, next, err := r.Client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := r.Client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Sweep is a no-op: Redis expires keys itself.
func (r *Redis) Sweep(context.Context) int { return 0 }
