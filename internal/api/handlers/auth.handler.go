package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hireloop/platform-core/internal/api/middleware"
	"github.com/hireloop/platform-core/internal/auth"
	"github.com/hireloop/platform-core/internal/models"
	"github.com/hireloop/platform-core/internal/monitoring"
	"github.com/hireloop/platform-core/internal/security"
	"github.com/hireloop/platform-core/internal/tenant"
	"github.com/hireloop/platform-core/pkg/logger"
)

// UserDirectory resolves platform users. The core does not own the user
// store; deployments plug in their own directory (SQL, external IdP sync).
// FindByEmail returns the user and its password hash.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*models.User, string, error)
}

type AuthHandler struct {
	auth     *auth.Service
	security *security.Service
	users    UserDirectory
	logger   logger.Logger
}

func NewAuthHandler(authService *auth.Service, sec *security.Service, users UserDirectory, log logger.Logger) *AuthHandler {
	return &AuthHandler{
		auth:     authService,
		security: sec,
		users:    users,
		logger:   log,
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	MFACode  string `json:"mfa_code"`
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"`
	User         *models.User `json:"user"`
}

// Login authenticates with email and password (plus a TOTP code when the
// account has MFA) and issues an access/refresh token pair. All failure
// modes produce the same 401.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortBadRequest(c, "email and password are required")
		return
	}
	ctx := c.Request.Context()

	user, passwordHash, err := h.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, models.ErrUserNotFound) {
			h.logger.Error("user directory lookup failed", "error", err)
		}
		h.loginFailure(c, nil, "unknown_user")
		return
	}

	if !h.auth.VerifyPassword(req.Password, passwordHash) {
		h.loginFailure(c, user, "bad_password")
		return
	}
	if !user.IsActive {
		h.loginFailure(c, user, "inactive_account")
		return
	}

	if enabled, err := h.auth.MFAEnabled(ctx, user.ID); err == nil && enabled {
		if req.MFACode == "" {
			h.loginFailure(c, user, "mfa_required")
			return
		}
		if err := h.auth.VerifyMFA(ctx, user.ID, user.TenantID, req.MFACode); err != nil {
			monitoring.RecordAuthAttempt("mfa", "failure")
			h.auditFailure(c, user, models.AuditMFAFailure, "mfa_code_rejected")
			h.unauthorized(c)
			return
		}
	}

	resp, err := h.issueTokens(ctx, user)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	monitoring.RecordAuthAttempt("password", "success")
	h.security.AuditEvent(h.tenantScope(ctx, user), security.AuditParams{
		EventType: models.AuditLoginSuccess,
		Resource:  "auth",
		Action:    "login",
		UserID:    user.ID,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Success:   true,
	})
	c.JSON(http.StatusOK, resp)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued, so a leaked refresh token is single-use.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortBadRequest(c, "refresh_token is required")
		return
	}
	ctx := c.Request.Context()

	data, err := h.auth.VerifyToken(ctx, req.RefreshToken)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	if data.TokenType != models.TokenTypeRefresh {
		middleware.AbortWithError(c, auth.ErrTokenInvalid)
		return
	}

	if err := h.auth.RevokeToken(ctx, data.JTI); err != nil {
		h.logger.Warn("failed to revoke rotated refresh token", "jti", data.JTI, "error", err)
	}

	user := &models.User{
		ID:       data.UserID,
		Email:    data.Email,
		TenantID: data.TenantID,
		IsActive: true,
	}
	auth.SetRoles(user, data.Roles)

	resp, err := h.issueTokens(ctx, user)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Logout revokes the presented access token.
func (h *AuthHandler) Logout(c *gin.Context) {
	user := middleware.CurrentUser(c)
	ctx := c.Request.Context()

	bearer := c.GetHeader("Authorization")
	if len(bearer) > 7 {
		if data, err := h.auth.VerifyToken(ctx, bearer[7:]); err == nil {
			if err := h.auth.RevokeToken(ctx, data.JTI); err != nil {
				h.logger.Warn("logout revocation failed", "jti", data.JTI, "error", err)
			}
		}
	}

	h.security.AuditEvent(ctx, security.AuditParams{
		EventType: models.AuditLogout,
		Resource:  "auth",
		Action:    "logout",
		UserID:    user.ID,
		IPAddress: c.ClientIP(),
		Success:   true,
	})
	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}

// RevokeAll invalidates every outstanding token for the current user, e.g.
// after a credential change.
func (h *AuthHandler) RevokeAll(c *gin.Context) {
	user := middleware.CurrentUser(c)
	ctx := c.Request.Context()

	revoked, err := h.auth.RevokeAllUserTokens(ctx, user.ID)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	h.security.AuditEvent(ctx, security.AuditParams{
		EventType: models.AuditTokenRevoked,
		Resource:  "auth",
		Action:    "revoke_all",
		UserID:    user.ID,
		IPAddress: c.ClientIP(),
		Success:   true,
		Details:   map[string]interface{}{"revoked_count": revoked},
	})
	c.JSON(http.StatusOK, gin.H{"revoked": revoked})
}

// Me returns the authenticated user and the derived permission set.
func (h *AuthHandler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"user":        user,
		"roles":       user.Roles,
		"permissions": auth.PermissionList(user.Roles),
	})
}

func (h *AuthHandler) issueTokens(ctx context.Context, user *models.User) (*tokenResponse, error) {
	access, data, err := h.auth.GenerateToken(ctx, user, models.TokenTypeAccess)
	if err != nil {
		return nil, err
	}
	refresh, _, err := h.auth.GenerateToken(ctx, user, models.TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	return &tokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(time.Until(data.ExpiresAt).Seconds()),
		User:         user,
	}, nil
}

// tenantScope attributes an audit event to the user's tenant even though the
// request itself is unauthenticated (no ambient tenant yet during login).
func (h *AuthHandler) tenantScope(ctx context.Context, user *models.User) context.Context {
	if user == nil || user.TenantID == "" {
		return ctx
	}
	return tenant.WithTenant(ctx, &models.Tenant{ID: user.TenantID, Tier: models.TierBasic})
}

func (h *AuthHandler) loginFailure(c *gin.Context, user *models.User, reason string) {
	monitoring.RecordAuthAttempt("password", "failure")
	h.auditFailure(c, user, models.AuditLoginFailure, reason)
	h.unauthorized(c)
}

func (h *AuthHandler) auditFailure(c *gin.Context, user *models.User, eventType models.AuditEventType, reason string) {
	ctx := c.Request.Context()
	userID := ""
	if user != nil {
		userID = user.ID
		ctx = h.tenantScope(ctx, user)
	}
	h.security.AuditEvent(ctx, security.AuditParams{
		EventType: eventType,
		Resource:  "auth",
		Action:    "login",
		UserID:    userID,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Success:   false,
		RiskScore: 40,
		Details:   map[string]interface{}{"reason": reason},
	})
}

// unauthorized is the single response body for every login failure; the
// reason lives only in the audit trail.
func (h *AuthHandler) unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, middleware.ErrorResponse{
		Error:   "unauthorized",
		Message: "invalid credentials",
	})
}
