package models

import "time"

// AuditEventType is the closed set of security-relevant event categories.
type AuditEventType string

const (
	AuditLoginSuccess      AuditEventType = "login_success"
	AuditLoginFailure      AuditEventType = "login_failure"
	AuditLogout            AuditEventType = "logout"
	AuditTokenRevoked      AuditEventType = "token_revoked"
	AuditPermissionDenied  AuditEventType = "permission_denied"
	AuditDataAccess        AuditEventType = "data_access"
	AuditDataModification  AuditEventType = "data_modification"
	AuditEncryptionOp      AuditEventType = "encryption_operation"
	AuditOAuth2Login       AuditEventType = "oauth2_login"
	AuditMFAEnrolled       AuditEventType = "mfa_enrolled"
	AuditMFAFailure        AuditEventType = "mfa_failure"
	AuditConfigChange      AuditEventType = "config_change"
	AuditSecurityViolation AuditEventType = "security_violation"
)

// AuditEvent is an immutable, append-only record of a security-relevant
// operation. Both successes and failures are recorded.
type AuditEvent struct {
	ID        string                 `json:"id"`
	TenantID  string                 `json:"tenant_id"`
	UserID    string                 `json:"user_id,omitempty"`
	EventType AuditEventType         `json:"event_type"`
	Resource  string                 `json:"resource"`
	Action    string                 `json:"action"`
	Details   map[string]interface{} `json:"details,omitempty"`
	IPAddress string                 `json:"ip_address,omitempty"`
	UserAgent string                 `json:"user_agent,omitempty"`
	SessionID string                 `json:"session_id,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Success   bool                   `json:"success"`
	RiskScore int                    `json:"risk_score"`
}

// Compliance report statuses.
const (
	ComplianceStatusCompliant   = "COMPLIANT"
	ComplianceStatusNeedsReview = "NEEDS_REVIEW"
)

// ComplianceReport aggregates audit activity for a tenant over a trailing
// window.
type ComplianceReport struct {
	TenantID      string                 `json:"tenant_id"`
	PeriodStart   time.Time              `json:"period_start"`
	PeriodEnd     time.Time              `json:"period_end"`
	TotalEvents   int                    `json:"total_events"`
	EventsByType  map[AuditEventType]int `json:"events_by_type"`
	FailureCount  int                    `json:"failure_count"`
	HighRiskCount int                    `json:"high_risk_count"`
	Status        string                 `json:"status"`
	GeneratedAt   time.Time              `json:"generated_at"`
}
