package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hireloop/platform-core/internal/models"
	"github.com/hireloop/platform-core/internal/tenant"
	"github.com/hireloop/platform-core/pkg/cache"
	"github.com/hireloop/platform-core/pkg/logger"
)

func newTestService(t *testing.T) (*Service, cache.ValkeyStore) {
	t.Helper()
	store := cache.NewMemoryValkeyStore(logger.NewNop())
	svc, err := NewService(Config{
		Secret:     "test-signing-secret",
		BcryptCost: 4, // keep tests fast
	}, store, nil, nil, logger.NewNop())
	require.NoError(t, err)
	return svc, store
}

func testUser() *models.User {
	u := &models.User{
		ID:       "u1",
		Email:    "u1@acme.test",
		TenantID: "t1",
		IsActive: true,
	}
	SetRoles(u, []models.Role{models.RoleRecruiter})
	return u
}

func TestGenerateAndVerifyToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	signed, data, err := svc.GenerateToken(ctx, testUser(), models.TokenTypeAccess)
	require.NoError(t, err)
	assert.NotEmpty(t, data.JTI)
	assert.Equal(t, models.TokenTypeAccess, data.TokenType)

	verified, err := svc.VerifyToken(ctx, signed)
	require.NoError(t, err)
	assert.Equal(t, "u1", verified.UserID)
	assert.Equal(t, "t1", verified.TenantID)
	assert.Contains(t, verified.Permissions, models.PermWriteJobs)
}

func TestVerifyRejectsBadSignature(t *testing.T) {
	svc, _ := newTestService(t)
	other, err := NewService(Config{Secret: "different-secret"}, cache.NewMemoryValkeyStore(logger.NewNop()), nil, nil, logger.NewNop())
	require.NoError(t, err)

	signed, _, err := other.GenerateToken(context.Background(), testUser(), models.TokenTypeAccess)
	require.NoError(t, err)

	_, err = svc.VerifyToken(context.Background(), signed)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc, _ := newTestService(t)
	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }

	signed, _, err := svc.GenerateToken(context.Background(), testUser(), models.TokenTypeAccess)
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.VerifyToken(context.Background(), signed)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestRevokeTokenTakesEffectBeforeExpiry(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	signed, data, err := svc.GenerateToken(ctx, testUser(), models.TokenTypeAccess)
	require.NoError(t, err)

	_, err = svc.VerifyToken(ctx, signed)
	require.NoError(t, err)

	require.NoError(t, svc.RevokeToken(ctx, data.JTI))

	_, err = svc.VerifyToken(ctx, signed)
	assert.ErrorIs(t, err, ErrTokenRevoked, "signature is still valid but record is gone")
}

func TestRevokeAllUserTokens(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	u1 := testUser()
	u2 := testUser()
	u2.ID = "u2"

	t1a, _, err := svc.GenerateToken(ctx, u1, models.TokenTypeAccess)
	require.NoError(t, err)
	t1b, _, err := svc.GenerateToken(ctx, u1, models.TokenTypeRefresh)
	require.NoError(t, err)
	t2, _, err := svc.GenerateToken(ctx, u2, models.TokenTypeAccess)
	require.NoError(t, err)

	revoked, err := svc.RevokeAllUserTokens(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, revoked)

	_, err = svc.VerifyToken(ctx, t1a)
	assert.ErrorIs(t, err, ErrTokenRevoked)
	_, err = svc.VerifyToken(ctx, t1b)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	// Other users are unaffected.
	_, err = svc.VerifyToken(ctx, t2)
	assert.NoError(t, err)
}

func TestCurrentUserRejectsRefreshToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	refresh, _, err := svc.GenerateToken(ctx, testUser(), models.TokenTypeRefresh)
	require.NoError(t, err)

	_, _, err = svc.CurrentUser(ctx, refresh)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestCurrentTenantUserInstallsTenantContext(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	signed, _, err := svc.GenerateToken(ctx, testUser(), models.TokenTypeAccess)
	require.NoError(t, err)

	ctx2, user, err := svc.CurrentTenantUser(ctx, signed)
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	tn, err := tenant.Require(ctx2)
	require.NoError(t, err)
	assert.Equal(t, "t1", tn.ID)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)

	hash, err := svc.HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotContains(t, hash, "s3cret-pass")

	assert.True(t, svc.VerifyPassword("s3cret-pass", hash))
	assert.False(t, svc.VerifyPassword("wrong", hash))

	_, err = svc.HashPassword("")
	assert.Error(t, err)
}

func TestRequirePermissionAndRole(t *testing.T) {
	u := testUser()

	assert.NoError(t, RequirePermission(u, models.PermReadJobs))
	assert.ErrorIs(t, RequirePermission(u, models.PermManageTenants), ErrPermissionDenied)
	assert.ErrorIs(t, RequirePermission(nil, models.PermReadJobs), ErrPermissionDenied)

	assert.NoError(t, RequireRole(u, models.RoleRecruiter))
	assert.ErrorIs(t, RequireRole(u, models.RoleSuperAdmin), ErrRoleRequired)
}

func TestAuthErrorClassification(t *testing.T) {
	assert.True(t, IsAuthenticationError(ErrTokenRevoked))
	assert.True(t, IsAuthenticationError(ErrStoreUnavailable))
	assert.False(t, IsAuthenticationError(ErrPermissionDenied))
	assert.True(t, IsAuthorizationError(ErrPermissionDenied))
}
