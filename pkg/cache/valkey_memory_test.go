package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hireloop/platform-core/pkg/logger"
)

func TestMemoryStoreSetGetDelete(t *testing.T) {
	store := NewMemoryValkeyStore(logger.NewNop())
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "value", 0))

	raw, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "value", string(raw))

	n, err := store.Delete(ctx, "k", "missing")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	clock := &now
	store := NewMemoryValkeyStoreWithClock(logger.NewNop(), func() time.Time { return *clock })
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))

	_, err := store.Get(ctx, "k")
	require.NoError(t, err)

	*clock = clock.Add(61 * time.Second)
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestMemoryStoreSetNX(t *testing.T) {
	store := NewMemoryValkeyStore(logger.NewNop())
	ctx := context.Background()

	created, err := store.SetNX(ctx, "k", "first", time.Minute)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.SetNX(ctx, "k", "second", time.Minute)
	require.NoError(t, err)
	assert.False(t, created)

	raw, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "first", string(raw))
}

func TestMemoryStoreIncrWindow(t *testing.T) {
	store := NewMemoryValkeyStore(logger.NewNop())
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := store.IncrWindow(ctx, "counter", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestMemoryStoreIncrWindowConcurrent(t *testing.T) {
	store := NewMemoryValkeyStore(logger.NewNop())
	ctx := context.Background()

	const workers = 32
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := store.IncrWindow(ctx, "counter", time.Minute)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	final, err := store.IncrWindow(ctx, "counter", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(workers+1), final, "no lost increments")
}

func TestMemoryStoreSets(t *testing.T) {
	store := NewMemoryValkeyStore(logger.NewNop())
	ctx := context.Background()

	require.NoError(t, store.SAdd(ctx, "s", "a"))
	require.NoError(t, store.SAdd(ctx, "s", "b"))
	require.NoError(t, store.SAdd(ctx, "s", "a")) // duplicate

	members, err := store.SMembers(ctx, "s")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, members)

	require.NoError(t, store.SRem(ctx, "s", "a"))
	members, err = store.SMembers(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, members)
}

func TestMemoryStoreKeysPattern(t *testing.T) {
	store := NewMemoryValkeyStore(logger.NewNop())
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "app:tenant:t1:jobs", "a", 0))
	require.NoError(t, store.Set(ctx, "app:tenant:t1:users", "b", 0))
	require.NoError(t, store.Set(ctx, "app:tenant:t2:jobs", "c", 0))

	keys, err := store.Keys(ctx, "app:tenant:t1:*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"app:tenant:t1:jobs", "app:tenant:t1:users"}, keys)
}

func TestMemoryStoreJSONEncoding(t *testing.T) {
	store := NewMemoryValkeyStore(logger.NewNop())
	ctx := context.Background()

	type payload struct {
		Name string `json:"name"`
	}
	require.NoError(t, store.Set(ctx, "k", payload{Name: "x"}, 0))

	raw, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"x"}`, string(raw))
}
