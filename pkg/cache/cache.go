package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
	// ErrLockNotHeld is returned by Unlock and ExtendLock when the key is gone or owned by another token.
	ErrLockNotHeld = errors.New("cache: lock not held")
)

// Service defines cache and lock operations.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	// TryLock sets key to token if absent. It reports whether the lock was taken.
	TryLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	// ExtendLock resets the TTL of key only if it still holds token.
	ExtendLock(ctx context.Context, key, token string, ttl time.Duration) error
	// Unlock removes key only if it still holds token.
	Unlock(ctx context.Context, key, token string) error
	Close() error
}
