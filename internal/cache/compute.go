package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hireloop/platform-core/internal/tenant"
)

// ComputeKey derives a stable cache key from an operation name and its
// arguments. Arguments are hashed, not embedded, so keys stay short and
// never leak argument contents into key listings.
func ComputeKey(operation string, args ...interface{}) string {
	if len(args) == 0 {
		return operation
	}
	raw, err := json.Marshal(args)
	if err != nil {
		raw = []byte(fmt.Sprintf("%v", args))
	}
	sum := sha256.Sum256(raw)
	return operation + ":" + hex.EncodeToString(sum[:16])
}

// GetOrCompute returns the cached value for key, computing and storing it on
// a miss. A broken cache backend degrades to the compute path: the caller
// gets a correct answer either way, only slower.
func GetOrCompute[T any](ctx context.Context, m *Manager, key string, cfg Config, compute func(context.Context) (T, error)) (T, error) {
	var cached T
	err := m.Get(ctx, key, &cached, cfg)
	if err == nil {
		return cached, nil
	}
	if errors.Is(err, tenant.ErrNoTenant) {
		// A missing tenant is a caller bug, not a cache outage.
		var zero T
		return zero, err
	}
	if !errors.Is(err, ErrCacheMiss) {
		m.logger.Warn("cache read failed, computing directly", "key", key, "error", err)
	}

	value, err := compute(ctx)
	if err != nil {
		return value, err
	}

	if err := m.Set(ctx, key, value, cfg); err != nil {
		m.logger.Warn("cache write-back failed", "key", key, "error", err)
	}
	return value, nil
}

// InvalidateOnSuccess runs fn and, only when it succeeds, invalidates the
// given tags. Keeps cached aggregates consistent with writes.
func (m *Manager) InvalidateOnSuccess(ctx context.Context, tags []string, cfg Config, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		return err
	}
	for _, tag := range tags {
		if _, err := m.InvalidateByTag(ctx, tag, cfg); err != nil {
			m.logger.Warn("post-write tag invalidation failed", "tag", tag, "error", err)
		}
	}
	return nil
}
