package models

import (
	"errors"
	"time"
)

// ErrUserNotFound is returned by user directory lookups for unknown
// accounts. Directories are external collaborators; the sentinel lives here
// so both sides agree on it.
var ErrUserNotFound = errors.New("user not found")

// Role names a bundle of permissions. Permissions are always derived from
// roles, never assigned individually.
type Role string

const (
	RoleSuperAdmin    Role = "super_admin"
	RoleTenantAdmin   Role = "tenant_admin"
	RoleRecruiter     Role = "recruiter"
	RoleHiringManager Role = "hiring_manager"
	RoleJobSeeker     Role = "job_seeker"
	RoleViewer        Role = "viewer"
)

// Permission is a single allowed operation.
type Permission string

const (
	PermReadJobs           Permission = "read_jobs"
	PermWriteJobs          Permission = "write_jobs"
	PermReadApplications   Permission = "read_applications"
	PermWriteApplications  Permission = "write_applications"
	PermReadUsers          Permission = "read_users"
	PermWriteUsers         Permission = "write_users"
	PermManageTenants      Permission = "manage_tenants"
	PermManageBilling      Permission = "manage_billing"
	PermManageIntegrations Permission = "manage_integrations"
	PermViewAnalytics      Permission = "view_analytics"
	PermManageCache        Permission = "manage_cache"
	PermViewAuditLog       Permission = "view_audit_log"
)

// TokenType distinguishes short-lived access tokens from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// User is the auth-domain projection of an account: identity, tenant binding
// and derived authorization state. The Permissions set is never written
// directly; it is recomputed whenever Roles change.
type User struct {
	ID          string                   `json:"id"`
	Email       string                   `json:"email"`
	TenantID    string                   `json:"tenant_id"`
	Roles       []Role                   `json:"roles"`
	Permissions map[Permission]struct{}  `json:"-"`
	IsActive    bool                     `json:"is_active"`
	IsVerified  bool                     `json:"is_verified"`
	MFAEnabled  bool                     `json:"mfa_enabled"`
}

// HasRole reports whether the user carries the given role.
func (u *User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasPermission reports whether the user's derived permission set includes p.
func (u *User) HasPermission(p Permission) bool {
	_, ok := u.Permissions[p]
	return ok
}

// TokenData is the verified claim set of a session token, and also the shape
// of the server-side record stored under the token's jti. Deleting that
// record revokes the token ahead of its natural expiry.
type TokenData struct {
	UserID      string       `json:"user_id"`
	TenantID    string       `json:"tenant_id"`
	Email       string       `json:"email"`
	Roles       []Role       `json:"roles"`
	Permissions []Permission `json:"permissions"`
	TokenType   TokenType    `json:"token_type"`
	ExpiresAt   time.Time    `json:"exp"`
	IssuedAt    time.Time    `json:"iat"`
	JTI         string       `json:"jti"`
}
