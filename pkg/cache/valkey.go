package cache

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned by Get when the key is absent or expired.
var ErrKeyNotFound = errors.New("key not found")

// ValkeyStore is the shared key-value store backing token revocation records,
// rate-limit counters, cache entries and tag indexes. Isolation between
// tenants happens entirely through key namespacing; all tenants share the
// same physical store.
type ValkeyStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) (int64, error)
	Exists(ctx context.Context, key string) (bool, error)

	// IncrWindow atomically increments key and, when the key is created by
	// this increment, applies ttl. Single round trip so concurrent callers
	// never observe a counter without an expiry.
	IncrWindow(ctx context.Context, key string, ttl time.Duration) (int64, error)

	SAdd(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SRem(ctx context.Context, key string, members ...string) error

	Keys(ctx context.Context, pattern string) ([]string, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)

	HealthCheck(ctx context.Context) error
}
