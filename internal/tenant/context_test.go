package tenant

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hireloop/platform-core/internal/models"
)

func TestWithTenantAndRequire(t *testing.T) {
	ctx := context.Background()

	_, ok := FromContext(ctx)
	assert.False(t, ok)

	_, err := Require(ctx)
	assert.ErrorIs(t, err, ErrNoTenant)

	tn := &models.Tenant{ID: "t1", Name: "Acme", Tier: models.TierProfessional}
	ctx = WithTenant(ctx, tn)

	got, err := Require(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t1", got.ID)
	assert.Equal(t, "t1", ID(ctx))
}

func TestConcurrentRequestsDoNotLeakTenant(t *testing.T) {
	var wg sync.WaitGroup
	for _, id := range []string{"t1", "t2", "t3", "t4"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			ctx := WithTenant(context.Background(), &models.Tenant{ID: id})
			for i := 0; i < 100; i++ {
				got, err := Require(ctx)
				if err != nil || got.ID != id {
					t.Errorf("tenant leaked: want %s got %+v err %v", id, got, err)
					return
				}
			}
		}(id)
	}
	wg.Wait()
}

func TestRequireFunc(t *testing.T) {
	called := false
	fn := RequireFunc(func(ctx context.Context, tn *models.Tenant) error {
		called = true
		return nil
	})

	err := fn(context.Background())
	assert.ErrorIs(t, err, ErrNoTenant)
	assert.False(t, called, "body must not run without tenant")

	ctx := WithTenant(context.Background(), &models.Tenant{ID: "t1"})
	require.NoError(t, fn(ctx))
	assert.True(t, called)
}

func TestScopeQuery(t *testing.T) {
	ctx := WithTenant(context.Background(), &models.Tenant{ID: "t9"})

	q, args, err := ScopeQuery(ctx, "SELECT * FROM jobs", nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM jobs WHERE tenant_id = $1", q)
	assert.Equal(t, []interface{}{"t9"}, args)

	q, args, err = ScopeQuery(ctx, "SELECT * FROM jobs WHERE status = $1", []interface{}{"open"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM jobs WHERE status = $1 AND tenant_id = $2", q)
	assert.Equal(t, []interface{}{"open", "t9"}, args)

	_, _, err = ScopeQuery(context.Background(), "SELECT 1", nil)
	assert.ErrorIs(t, err, ErrNoTenant)
}
