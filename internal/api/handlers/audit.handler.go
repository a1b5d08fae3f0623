package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hireloop/platform-core/internal/api/middleware"
	"github.com/hireloop/platform-core/internal/models"
	"github.com/hireloop/platform-core/internal/security"
	"github.com/hireloop/platform-core/internal/tenant"
	"github.com/hireloop/platform-core/pkg/logger"
)

const (
	defaultReportWindowHours = 24 * 90
	maxReportWindowHours     = 24 * 365
)

type AuditHandler struct {
	security *security.Service
	logger   logger.Logger
}

func NewAuditHandler(sec *security.Service, log logger.Logger) *AuditHandler {
	return &AuditHandler{security: sec, logger: log}
}

// ComplianceReport aggregates the ambient tenant's audit activity over a
// trailing window (?hours=, default 90 days).
func (h *AuditHandler) ComplianceReport(c *gin.Context) {
	window, ok := h.window(c)
	if !ok {
		return
	}

	report, err := h.security.ComplianceReport(c.Request.Context(), window)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	h.auditAccess(c, "compliance_report", window)
	c.JSON(http.StatusOK, report)
}

// RecentEvents lists the ambient tenant's raw audit events in the window.
func (h *AuditHandler) RecentEvents(c *gin.Context) {
	window, ok := h.window(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	tn, err := tenant.Require(ctx)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	events, err := h.security.Audit.TenantEvents(ctx, tn.ID, window)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	h.auditAccess(c, "list_events", window)
	c.JSON(http.StatusOK, gin.H{
		"tenant_id": tn.ID,
		"count":     len(events),
		"events":    events,
	})
}

// auditAccess records that someone viewed the audit surface; reads of the
// trail are themselves part of the trail.
func (h *AuditHandler) auditAccess(c *gin.Context, action string, window time.Duration) {
	user := middleware.CurrentUser(c)
	userID := ""
	if user != nil {
		userID = user.ID
	}
	h.security.AuditEvent(c.Request.Context(), security.AuditParams{
		EventType: models.AuditDataAccess,
		Resource:  "audit",
		Action:    action,
		UserID:    userID,
		IPAddress: c.ClientIP(),
		Success:   true,
		Details:   map[string]interface{}{"window_hours": int(window.Hours())},
	})
}

func (h *AuditHandler) window(c *gin.Context) (time.Duration, bool) {
	hours := defaultReportWindowHours
	if raw := c.Query("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxReportWindowHours {
			middleware.AbortBadRequest(c, "hours must be a positive integer within one year")
			return 0, false
		}
		hours = parsed
	}
	return time.Duration(hours) * time.Hour, true
}
