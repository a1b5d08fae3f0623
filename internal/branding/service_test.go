package branding

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hireloop/platform-core/internal/cache"
	"github.com/hireloop/platform-core/internal/models"
	"github.com/hireloop/platform-core/internal/security"
	"github.com/hireloop/platform-core/internal/tenant"
	vstore "github.com/hireloop/platform-core/pkg/cache"
	"github.com/hireloop/platform-core/pkg/logger"
)

func newTestService(t *testing.T) (*Service, *security.AuditLogger) {
	t.Helper()
	store := vstore.NewMemoryValkeyStore(logger.NewNop())
	manager := cache.NewManager("hireloop", store, logger.NewNop())

	audit, err := security.NewAuditLogger(filepath.Join(t.TempDir(), "audit.log"), nil, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = audit.Close() })

	enc, err := security.NewEncryptor("unit-test-master-key-material")
	require.NoError(t, err)
	sec := security.NewService(enc, audit, nil, logger.NewNop())

	return NewService(manager, sec, logger.NewNop()), audit
}

func brandedCtx(tn *models.Tenant) context.Context {
	return tenant.WithTenant(context.Background(), tn)
}

func TestUpdateAndGetRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := brandedCtx(&models.Tenant{ID: "t1", Tier: models.TierProfessional})

	cfg := &models.BrandingConfig{
		CompanyName:  "Acme Recruiting",
		PrimaryColor: "#1a2b3c",
		LogoURL:      "https://cdn.acme.test/logo.svg",
	}
	require.NoError(t, svc.Update(ctx, "admin-1", cfg))

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestGetFallsBackToTenantRecordThenEmpty(t *testing.T) {
	svc, _ := newTestService(t)

	embedded := &models.BrandingConfig{CompanyName: "From Tenant Record"}
	got, err := svc.Get(brandedCtx(&models.Tenant{ID: "t1", Branding: embedded}))
	require.NoError(t, err)
	assert.Equal(t, embedded, got)

	got, err = svc.Get(brandedCtx(&models.Tenant{ID: "t2"}))
	require.NoError(t, err)
	assert.Equal(t, &models.BrandingConfig{}, got)
}

func TestUpdateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := brandedCtx(&models.Tenant{ID: "t1"})

	assert.ErrorIs(t, svc.Update(ctx, "admin-1", nil), ErrInvalidBranding)
	assert.ErrorIs(t, svc.Update(ctx, "admin-1", &models.BrandingConfig{PrimaryColor: "red"}), ErrInvalidBranding)
	assert.ErrorIs(t, svc.Update(ctx, "admin-1", &models.BrandingConfig{LogoURL: "http://insecure.test/x.png"}), ErrInvalidBranding)
	assert.NoError(t, svc.Update(ctx, "admin-1", &models.BrandingConfig{PrimaryColor: "#fff"}))
}

func TestBrandingIsTenantIsolated(t *testing.T) {
	svc, _ := newTestService(t)

	require.NoError(t, svc.Update(brandedCtx(&models.Tenant{ID: "t1"}), "a", &models.BrandingConfig{CompanyName: "One"}))

	got, err := svc.Get(brandedCtx(&models.Tenant{ID: "t2"}))
	require.NoError(t, err)
	assert.Empty(t, got.CompanyName)
}

func TestUpdateRequiresTenant(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.Update(context.Background(), "a", &models.BrandingConfig{})
	assert.ErrorIs(t, err, tenant.ErrNoTenant)
	_, err = svc.Get(context.Background())
	assert.ErrorIs(t, err, tenant.ErrNoTenant)
}

func TestUpdateAndResetAreAudited(t *testing.T) {
	svc, audit := newTestService(t)
	ctx := brandedCtx(&models.Tenant{ID: "t1"})

	require.NoError(t, svc.Update(ctx, "admin-1", &models.BrandingConfig{CompanyName: "Acme"}))
	require.NoError(t, svc.Reset(ctx, "admin-1"))

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.CompanyName)

	events, err := audit.TenantEvents(ctx, "t1", time.Hour)
	require.NoError(t, err)
	require.Len(t, events, 2)
	for _, e := range events {
		assert.Equal(t, models.AuditConfigChange, e.EventType)
		assert.Equal(t, "branding", e.Resource)
		assert.Equal(t, "admin-1", e.UserID)
	}
}
