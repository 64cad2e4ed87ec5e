package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "library:signin:"

// Redis is a Limiter whose state lives in Redis, so every replica sees the
// same counters. Keys expire on their own; nothing needs sweeping.
//
//	library:signin:fail:<key>  failure counter, TTL = window (set on first failure)
//	library:signin:lock:<key>  present while locked, TTL = lockout
type Redis struct {
	rdb    *redis.Client
	policy Policy
}

// NewRedis wraps an existing client.
func NewRedis(rdb *redis.Client, p Policy) *Redis {
	return &Redis{rdb: rdb, policy: p.withDefaults()}
}

// NewRedisFromURL parses a redis:// URL, connects and pings.
func NewRedisFromURL(ctx context.Context, url string, p Policy) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ratelimit: pinging redis: %w", err)
	}
	return NewRedis(rdb, p), nil
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.rdb.Close()
}

func failKey(key string) string { return keyPrefix + "fail:" + key }
func lockKey(key string) string { return keyPrefix + "lock:" + key }

func (r *Redis) Check(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := r.rdb.PTTL(ctx, lockKey(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("ratelimit: reading lock: %w", err)
	}
	// -2 missing, -1 no expiry (never set by us)
	if ttl <= 0 {
		return 0, nil
	}
	return ttl, nil
}

func (r *Redis) Failure(ctx context.Context, key string) (time.Duration, error) {
	if ttl, err := r.Check(ctx, key); err != nil || ttl > 0 {
		return ttl, err
	}

	var incr *redis.IntCmd
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, failKey(key))
		pipe.ExpireNX(ctx, failKey(key), r.policy.Window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("ratelimit: counting failure: %w", err)
	}

	if incr.Val() < int64(r.policy.MaxAttempts) {
		return 0, nil
	}

	// SetNX keeps the first lock's expiry if two failures race here.
	if err := r.rdb.SetNX(ctx, lockKey(key), 1, r.policy.Lockout).Err(); err != nil {
		return 0, fmt.Errorf("ratelimit: setting lock: %w", err)
	}
	if err := r.rdb.Del(ctx, failKey(key)).Err(); err != nil {
		return 0, fmt.Errorf("ratelimit: clearing counter: %w", err)
	}
	return r.Check(ctx, key)
}

func (r *Redis) Reset(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, failKey(key), lockKey(key)).Err(); err != nil {
		return fmt.Errorf("ratelimit: reset: %w", err)
	}
	return nil
}
