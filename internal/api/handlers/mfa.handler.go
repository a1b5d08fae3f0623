package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hireloop/platform-core/internal/api/middleware"
	"github.com/hireloop/platform-core/internal/auth"
	"github.com/hireloop/platform-core/internal/models"
	"github.com/hireloop/platform-core/internal/monitoring"
	"github.com/hireloop/platform-core/internal/security"
	"github.com/hireloop/platform-core/pkg/logger"
)

type MFAHandler struct {
	auth     *auth.Service
	security *security.Service
	logger   logger.Logger
}

func NewMFAHandler(authService *auth.Service, sec *security.Service, log logger.Logger) *MFAHandler {
	return &MFAHandler{auth: authService, security: sec, logger: log}
}

// Setup generates a TOTP secret for the current user. The secret is shown
// once; it is stored encrypted and MFA activates on first verification.
func (h *MFAHandler) Setup(c *gin.Context) {
	user := middleware.CurrentUser(c)
	ctx := c.Request.Context()

	secret, otpauthURL, err := h.auth.EnrollMFA(ctx, user.ID, user.TenantID, user.Email)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"secret":      secret,
		"otpauth_url": otpauthURL,
		"enabled":     false,
	})
}

type mfaVerifyRequest struct {
	Code string `json:"code" binding:"required"`
}

// Verify validates a TOTP code; the first success completes enrolment.
func (h *MFAHandler) Verify(c *gin.Context) {
	var req mfaVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortBadRequest(c, "code is required")
		return
	}

	user := middleware.CurrentUser(c)
	ctx := c.Request.Context()

	if err := h.auth.VerifyMFA(ctx, user.ID, user.TenantID, req.Code); err != nil {
		monitoring.RecordAuthAttempt("mfa", "failure")
		h.security.AuditEvent(ctx, security.AuditParams{
			EventType: models.AuditMFAFailure,
			Resource:  "auth",
			Action:    "mfa_verify",
			UserID:    user.ID,
			IPAddress: c.ClientIP(),
			Success:   false,
			RiskScore: 40,
		})
		middleware.AbortWithError(c, err)
		return
	}

	monitoring.RecordAuthAttempt("mfa", "success")
	h.security.AuditEvent(ctx, security.AuditParams{
		EventType: models.AuditMFAEnrolled,
		Resource:  "auth",
		Action:    "mfa_verify",
		UserID:    user.ID,
		IPAddress: c.ClientIP(),
		Success:   true,
	})
	c.JSON(http.StatusOK, gin.H{"enabled": true})
}

// Disable removes the user's TOTP enrolment.
func (h *MFAHandler) Disable(c *gin.Context) {
	user := middleware.CurrentUser(c)
	ctx := c.Request.Context()

	if err := h.auth.DisableMFA(ctx, user.ID); err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	h.security.AuditEvent(ctx, security.AuditParams{
		EventType: models.AuditConfigChange,
		Resource:  "auth",
		Action:    "mfa_disable",
		UserID:    user.ID,
		IPAddress: c.ClientIP(),
		Success:   true,
	})
	c.JSON(http.StatusOK, gin.H{"enabled": false})
}
