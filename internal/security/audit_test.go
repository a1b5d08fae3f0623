package security

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hireloop/platform-core/internal/models"
	"github.com/hireloop/platform-core/internal/tenant"
	"github.com/hireloop/platform-core/pkg/logger"
)

func newTestAuditLogger(t *testing.T, siem *SIEMForwarder) *AuditLogger {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.log")
	audit, err := NewAuditLogger(path, siem, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = audit.Close() })
	return audit
}

func TestLogEventAssignsIDAndTimestamp(t *testing.T) {
	audit := newTestAuditLogger(t, nil)

	id, err := audit.LogEvent(context.Background(), &models.AuditEvent{
		TenantID:  "t1",
		EventType: models.AuditLoginSuccess,
		Resource:  "auth",
		Action:    "login",
		Success:   true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	events, err := audit.TenantEvents(context.Background(), "t1", time.Hour)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, id, events[0].ID)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestTenantEventsFiltersTenantAndWindow(t *testing.T) {
	audit := newTestAuditLogger(t, nil)
	ctx := context.Background()

	_, err := audit.LogEvent(ctx, &models.AuditEvent{TenantID: "t1", EventType: models.AuditDataAccess, Success: true})
	require.NoError(t, err)
	_, err = audit.LogEvent(ctx, &models.AuditEvent{TenantID: "t2", EventType: models.AuditDataAccess, Success: true})
	require.NoError(t, err)
	_, err = audit.LogEvent(ctx, &models.AuditEvent{
		TenantID:  "t1",
		EventType: models.AuditLogout,
		Timestamp: time.Now().Add(-48 * time.Hour),
		Success:   true,
	})
	require.NoError(t, err)

	events, err := audit.TenantEvents(ctx, "t1", time.Hour)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.AuditDataAccess, events[0].EventType)
}

func TestComplianceReportAggregatesAndFlags(t *testing.T) {
	audit := newTestAuditLogger(t, nil)
	ctx := context.Background()

	_, err := audit.LogEvent(ctx, &models.AuditEvent{TenantID: "t1", EventType: models.AuditLoginSuccess, Success: true})
	require.NoError(t, err)
	_, err = audit.LogEvent(ctx, &models.AuditEvent{TenantID: "t1", EventType: models.AuditLoginFailure, Success: false})
	require.NoError(t, err)

	report, err := audit.ComplianceReport(ctx, "t1", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalEvents)
	assert.Equal(t, 1, report.FailureCount)
	assert.Equal(t, 0, report.HighRiskCount)
	assert.Equal(t, models.ComplianceStatusCompliant, report.Status)

	// High-risk events are counted but do not flag the report by themselves.
	_, err = audit.LogEvent(ctx, &models.AuditEvent{
		TenantID:  "t1",
		EventType: models.AuditLoginFailure,
		Success:   false,
		RiskScore: 90,
	})
	require.NoError(t, err)

	report, err = audit.ComplianceReport(ctx, "t1", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, models.ComplianceStatusCompliant, report.Status)
	assert.Equal(t, 1, report.HighRiskCount)

	_, err = audit.LogEvent(ctx, &models.AuditEvent{
		TenantID:  "t1",
		EventType: models.AuditSecurityViolation,
		Success:   false,
		RiskScore: 90,
	})
	require.NoError(t, err)

	report, err = audit.ComplianceReport(ctx, "t1", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, models.ComplianceStatusNeedsReview, report.Status)
	assert.Equal(t, 2, report.HighRiskCount)
}

func TestSIEMForwardingIsBestEffort(t *testing.T) {
	var forwarded atomic.Int32
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer siem-token", r.Header.Get("Authorization"))
		forwarded.Add(1)
	}))
	defer collector.Close()

	siem := NewSIEMForwarder(collector.URL, "siem-token", logger.NewNop())
	audit := newTestAuditLogger(t, siem)

	_, err := audit.LogEvent(context.Background(), &models.AuditEvent{
		TenantID:  "t1",
		EventType: models.AuditLoginSuccess,
		Success:   true,
	})
	require.NoError(t, err)

	audit.wg.Wait()
	assert.Equal(t, int32(1), forwarded.Load())
}

func TestSIEMCollectorDownDoesNotFailLogging(t *testing.T) {
	siem := NewSIEMForwarder("http://127.0.0.1:1", "", logger.NewNop())
	audit := newTestAuditLogger(t, siem)

	_, err := audit.LogEvent(context.Background(), &models.AuditEvent{
		TenantID:  "t1",
		EventType: models.AuditLoginFailure,
		Success:   false,
	})
	require.NoError(t, err)
	audit.wg.Wait()

	events, err := audit.TenantEvents(context.Background(), "t1", time.Hour)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestServiceAuditEventResolvesAmbientTenant(t *testing.T) {
	audit := newTestAuditLogger(t, nil)
	svc := NewService(newTestEncryptor(t), audit, nil, logger.NewNop())

	ctx := tenant.WithTenant(context.Background(), &models.Tenant{ID: "t1", Tier: models.TierBasic})
	id := svc.AuditEvent(ctx, AuditParams{
		EventType: models.AuditDataAccess,
		Resource:  "jobs",
		Action:    "list",
		UserID:    "u1",
		Success:   true,
	})
	assert.NotEmpty(t, id)

	// Outside any tenant scope events attribute to the system tenant.
	svc.AuditEvent(context.Background(), AuditParams{
		EventType: models.AuditConfigChange,
		Resource:  "config",
		Action:    "reload",
		Success:   true,
	})

	tenantEvents, err := audit.TenantEvents(context.Background(), "t1", time.Hour)
	require.NoError(t, err)
	assert.Len(t, tenantEvents, 1)

	systemEvents, err := audit.TenantEvents(context.Background(), SystemTenantID, time.Hour)
	require.NoError(t, err)
	assert.Len(t, systemEvents, 1)
}
