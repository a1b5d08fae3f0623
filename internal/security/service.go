package security

import (
	"context"
	"time"

	"github.com/hireloop/platform-core/internal/models"
	"github.com/hireloop/platform-core/internal/tenant"
	"github.com/hireloop/platform-core/pkg/logger"
)

// Service bundles the security concerns (field encryption, audit logging,
// OAuth2) behind one constructor so the server wires a single dependency.
type Service struct {
	Encryptor *Encryptor
	Audit     *AuditLogger
	OAuth2    *OAuth2Service

	logger logger.Logger
}

func NewService(enc *Encryptor, audit *AuditLogger, oauth2 *OAuth2Service, log logger.Logger) *Service {
	return &Service{
		Encryptor: enc,
		Audit:     audit,
		OAuth2:    oauth2,
		logger:    log,
	}
}

// AuditParams carries the caller-known parts of an audit event. Tenant
// identity is resolved from the ambient context, not passed in.
type AuditParams struct {
	EventType models.AuditEventType
	Resource  string
	Action    string
	UserID    string
	Details   map[string]interface{}
	IPAddress string
	UserAgent string
	SessionID string
	Success   bool
	RiskScore int
}

// AuditEvent records a security-relevant operation. The tenant id comes from
// the ambient tenant context; events produced outside any tenant scope are
// attributed to the system tenant. Failure to write the local log is an
// error for the operator but never panics or disturbs the calling request,
// so this is safe to call on failure paths.
func (s *Service) AuditEvent(ctx context.Context, p AuditParams) string {
	tenantID := tenant.ID(ctx)
	if tenantID == "" {
		tenantID = SystemTenantID
	}

	event := &models.AuditEvent{
		TenantID:  tenantID,
		UserID:    p.UserID,
		EventType: p.EventType,
		Resource:  p.Resource,
		Action:    p.Action,
		Details:   p.Details,
		IPAddress: p.IPAddress,
		UserAgent: p.UserAgent,
		SessionID: p.SessionID,
		Success:   p.Success,
		RiskScore: p.RiskScore,
	}

	id, err := s.Audit.LogEvent(ctx, event)
	if err != nil {
		s.logger.Error("audit write failed",
			"event_type", string(p.EventType), "tenant_id", tenantID, "error", err)
		return ""
	}
	return id
}

// ComplianceReport builds the audit aggregate for the ambient tenant.
func (s *Service) ComplianceReport(ctx context.Context, window time.Duration) (*models.ComplianceReport, error) {
	tn, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	return s.Audit.ComplianceReport(ctx, tn.ID, window)
}
