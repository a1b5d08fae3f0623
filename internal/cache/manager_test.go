package cache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hireloop/platform-core/internal/models"
	"github.com/hireloop/platform-core/internal/tenant"
	vstore "github.com/hireloop/platform-core/pkg/cache"
	"github.com/hireloop/platform-core/pkg/logger"
)

func newTestManager(t *testing.T) (*Manager, vstore.ValkeyStore) {
	t.Helper()
	store := vstore.NewMemoryValkeyStore(logger.NewNop())
	return NewManager("hireloop", store, logger.NewNop()), store
}

func ctxFor(tenantID string) context.Context {
	return tenant.WithTenant(context.Background(), &models.Tenant{ID: tenantID, Tier: models.TierBasic})
}

type jobSummary struct {
	Title string `json:"title"`
	Count int    `json:"count"`
}

func TestSetGetRoundTrip(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := ctxFor("t1")

	require.NoError(t, m.Set(ctx, "jobs:summary", jobSummary{Title: "Engineer", Count: 7}, Config{TTL: time.Minute}))

	var got jobSummary
	require.NoError(t, m.Get(ctx, "jobs:summary", &got, Config{}))
	assert.Equal(t, jobSummary{Title: "Engineer", Count: 7}, got)
}

func TestGetMiss(t *testing.T) {
	m, _ := newTestManager(t)

	var got jobSummary
	err := m.Get(ctxFor("t1"), "absent", &got, Config{})
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestTenantIsolation(t *testing.T) {
	m, store := newTestManager(t)

	require.NoError(t, m.Set(ctxFor("t1"), "k", "tenant-one-value", Config{}))

	var got string
	err := m.Get(ctxFor("t2"), "k", &got, Config{})
	assert.ErrorIs(t, err, ErrCacheMiss, "tenant t2 must not see t1's entry")

	// The stored key embeds the tenant id between delimiters.
	keys, err := store.Keys(context.Background(), "hireloop:tenant:t1:*")
	require.NoError(t, err)
	assert.Contains(t, keys, "hireloop:tenant:t1:k")
}

func TestTenantRequiredForIsolatedEntries(t *testing.T) {
	m, _ := newTestManager(t)

	err := m.Set(context.Background(), "k", "v", Config{})
	assert.ErrorIs(t, err, tenant.ErrNoTenant)

	var got string
	err = m.Get(context.Background(), "k", &got, Config{})
	assert.ErrorIs(t, err, tenant.ErrNoTenant)
}

func TestGlobalEntriesSkipTenantScope(t *testing.T) {
	m, _ := newTestManager(t)

	require.NoError(t, m.Set(context.Background(), "feature-flags", map[string]bool{"beta": true}, Config{Global: true}))

	var got map[string]bool
	require.NoError(t, m.Get(context.Background(), "feature-flags", &got, Config{Global: true}))
	assert.True(t, got["beta"])
}

func TestCompressionRoundTrip(t *testing.T) {
	m, store := newTestManager(t)
	ctx := ctxFor("t1")

	big := strings.Repeat("abcdefgh", 1024) // well above the threshold
	require.NoError(t, m.Set(ctx, "big", big, Config{Compress: true}))

	raw, err := store.Get(ctx, "hireloop:tenant:t1:big")
	require.NoError(t, err)
	assert.Less(t, len(raw), len(big), "stored payload should be gzipped")

	var got string
	require.NoError(t, m.Get(ctx, "big", &got, Config{}))
	assert.Equal(t, big, got)
}

func TestDeleteRemovesEntryAndMetadata(t *testing.T) {
	m, store := newTestManager(t)
	ctx := ctxFor("t1")

	require.NoError(t, m.Set(ctx, "k", "v", Config{}))

	existed, err := m.Delete(ctx, "k", Config{})
	require.NoError(t, err)
	assert.True(t, existed)

	_, err = store.Get(ctx, "hireloop:tenant:t1:meta:k")
	assert.ErrorIs(t, err, vstore.ErrKeyNotFound)

	existed, err = m.Delete(ctx, "k", Config{})
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestDeleteDeregistersTags(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := ctxFor("t1")

	require.NoError(t, m.Set(ctx, "k", "tagged", Config{Tags: []string{"jobs"}}))

	existed, err := m.Delete(ctx, "k", Config{})
	require.NoError(t, err)
	assert.True(t, existed)

	// Re-created without the tag; invalidating the old tag must not touch it.
	require.NoError(t, m.Set(ctx, "k", "untagged", Config{}))

	removed, err := m.InvalidateByTag(ctx, "jobs", Config{})
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	var got string
	require.NoError(t, m.Get(ctx, "k", &got, Config{}))
	assert.Equal(t, "untagged", got)
}

func TestInvalidateByTag(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := ctxFor("t1")

	require.NoError(t, m.Set(ctx, "jobs:1", "a", Config{Tags: []string{"jobs"}}))
	require.NoError(t, m.Set(ctx, "jobs:2", "b", Config{Tags: []string{"jobs", "hot"}}))
	require.NoError(t, m.Set(ctx, "users:1", "c", Config{Tags: []string{"users"}}))

	removed, err := m.InvalidateByTag(ctx, "jobs", Config{})
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	var got string
	assert.ErrorIs(t, m.Get(ctx, "jobs:1", &got, Config{}), ErrCacheMiss)
	assert.ErrorIs(t, m.Get(ctx, "jobs:2", &got, Config{}), ErrCacheMiss)
	require.NoError(t, m.Get(ctx, "users:1", &got, Config{}))
	assert.Equal(t, "c", got)

	// Second invalidation finds an empty index and is a clean no-op.
	removed, err = m.InvalidateByTag(ctx, "jobs", Config{})
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestInvalidateByTagToleratesExpiredMembers(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := ctxFor("t1")

	require.NoError(t, m.Set(ctx, "short", "a", Config{TTL: time.Nanosecond, Tags: []string{"mixed"}}))
	require.NoError(t, m.Set(ctx, "long", "b", Config{Tags: []string{"mixed"}}))
	time.Sleep(2 * time.Millisecond)

	removed, err := m.InvalidateByTag(ctx, "mixed", Config{})
	require.NoError(t, err)
	assert.Equal(t, 1, removed, "expired member is a no-op, not an error")
}

func TestInvalidateByTagIsTenantScoped(t *testing.T) {
	m, _ := newTestManager(t)

	require.NoError(t, m.Set(ctxFor("t1"), "k", "a", Config{Tags: []string{"jobs"}}))
	require.NoError(t, m.Set(ctxFor("t2"), "k", "b", Config{Tags: []string{"jobs"}}))

	removed, err := m.InvalidateByTag(ctxFor("t1"), "jobs", Config{})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	var got string
	require.NoError(t, m.Get(ctxFor("t2"), "k", &got, Config{}))
	assert.Equal(t, "b", got)
}

func TestInvalidateByPattern(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := ctxFor("t1")

	require.NoError(t, m.Set(ctx, "jobs:1", "a", Config{}))
	require.NoError(t, m.Set(ctx, "jobs:2", "b", Config{}))
	require.NoError(t, m.Set(ctx, "users:1", "c", Config{}))

	removed, err := m.InvalidateByPattern(ctx, "jobs:*", Config{})
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	var got string
	assert.ErrorIs(t, m.Get(ctx, "jobs:1", &got, Config{}), ErrCacheMiss)
	require.NoError(t, m.Get(ctx, "users:1", &got, Config{}))
}

func TestClearTenant(t *testing.T) {
	m, _ := newTestManager(t)

	require.NoError(t, m.Set(ctxFor("t1"), "a", 1, Config{Tags: []string{"x"}}))
	require.NoError(t, m.Set(ctxFor("t1"), "b", 2, Config{}))
	require.NoError(t, m.Set(ctxFor("t2"), "a", 3, Config{}))

	removed, err := m.ClearTenant(ctxFor("t1"))
	require.NoError(t, err)
	assert.Greater(t, removed, 0)

	var got int
	assert.ErrorIs(t, m.Get(ctxFor("t1"), "a", &got, Config{}), ErrCacheMiss)
	assert.ErrorIs(t, m.Get(ctxFor("t1"), "b", &got, Config{}), ErrCacheMiss)

	require.NoError(t, m.Get(ctxFor("t2"), "a", &got, Config{}))
	assert.Equal(t, 3, got)
}

func TestMetadataTracksAccess(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := ctxFor("t1")

	require.NoError(t, m.Set(ctx, "k", "v", Config{Tags: []string{"jobs"}}))

	var got string
	require.NoError(t, m.Get(ctx, "k", &got, Config{}))
	require.NoError(t, m.Get(ctx, "k", &got, Config{}))

	meta, err := m.Stats(ctx, "k", Config{})
	require.NoError(t, err)
	assert.Equal(t, "t1", meta.TenantID)
	assert.Equal(t, int64(2), meta.AccessCount)
	assert.Equal(t, []string{"jobs"}, meta.Tags)
	assert.False(t, meta.LastAccess.IsZero())
}

func TestGetOrCompute(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := ctxFor("t1")

	calls := 0
	compute := func(context.Context) (jobSummary, error) {
		calls++
		return jobSummary{Title: "Engineer", Count: calls}, nil
	}

	key := ComputeKey("jobs.summary", "engineering", 10)

	first, err := GetOrCompute(ctx, m, key, Config{TTL: time.Minute}, compute)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Count)

	second, err := GetOrCompute(ctx, m, key, Config{TTL: time.Minute}, compute)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Count, "second call must hit the cache")
	assert.Equal(t, 1, calls)
}

func TestGetOrComputePropagatesComputeError(t *testing.T) {
	m, _ := newTestManager(t)

	boom := errors.New("upstream down")
	_, err := GetOrCompute(ctxFor("t1"), m, "k", Config{}, func(context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestComputeKeyStableAndArgSensitive(t *testing.T) {
	a := ComputeKey("op", "x", 1)
	b := ComputeKey("op", "x", 1)
	c := ComputeKey("op", "x", 2)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, "op", ComputeKey("op"))
}

func TestInvalidateOnSuccess(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := ctxFor("t1")

	require.NoError(t, m.Set(ctx, "agg", "stale", Config{Tags: []string{"jobs"}}))

	// Failed write leaves the cache alone.
	boom := errors.New("write failed")
	err := m.InvalidateOnSuccess(ctx, []string{"jobs"}, Config{}, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	var got string
	require.NoError(t, m.Get(ctx, "agg", &got, Config{}))

	// Successful write invalidates.
	require.NoError(t, m.InvalidateOnSuccess(ctx, []string{"jobs"}, Config{}, func(context.Context) error { return nil }))
	assert.ErrorIs(t, m.Get(ctx, "agg", &got, Config{}), ErrCacheMiss)
}
