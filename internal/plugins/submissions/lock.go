package submissions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// lockKeyPrefix is the Redis key prefix for per-session submit locks.
const lockKeyPrefix = "submit:lock:"

// DefaultLockTTL bounds how long a crashed submit can block its session.
const DefaultLockTTL = 30 * time.Second

// Locker is the in-flight guard around Submit. Acquire reports false when
// another submit for the same key is still running or the key is held.
type Locker interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error

	// Hold overwrites the guard with value and keeps it for ttl.
	Hold(ctx context.Context, key, value string, ttl time.Duration) error

	// Value returns what the guard holds, or "" when it is not set.
	Value(ctx context.Context, key string) (string, error)
}

// redisLocker implements Locker with SET NX and a TTL.
type redisLocker struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisLocker creates a Redis-backed Locker.
func NewRedisLocker(rdb *redis.Client, ttl time.Duration) Locker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &redisLocker{rdb: rdb, ttl: ttl}
}

// Acquire sets the lock key if it is absent.
func (l *redisLocker) Acquire(ctx context.Context, key string) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, lockKeyPrefix+key, time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquiring submit lock: %w", err)
	}
	return ok, nil
}

// Release clears the lock key.
func (l *redisLocker) Release(ctx context.Context, key string) error {
	if err := l.rdb.Del(ctx, lockKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("releasing submit lock: %w", err)
	}
	return nil
}

// Hold pins the lock key to value.
func (l *redisLocker) Hold(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := l.rdb.Set(ctx, lockKeyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("holding submit lock: %w", err)
	}
	return nil
}

// Value reads the lock key.
func (l *redisLocker) Value(ctx context.Context, key string) (string, error) {
	v, err := l.rdb.Get(ctx, lockKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading submit lock: %w", err)
	}
	return v, nil
}
