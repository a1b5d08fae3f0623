package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hireloop/platform-core/internal/api/middleware"
	"github.com/hireloop/platform-core/internal/cache"
	"github.com/hireloop/platform-core/internal/models"
	"github.com/hireloop/platform-core/internal/security"
	"github.com/hireloop/platform-core/pkg/logger"
)

// CacheAdminHandler exposes tenant-scoped cache maintenance. Every
// invalidation is audited as a data modification.
type CacheAdminHandler struct {
	cache    *cache.Manager
	security *security.Service
	logger   logger.Logger
}

func NewCacheAdminHandler(manager *cache.Manager, sec *security.Service, log logger.Logger) *CacheAdminHandler {
	return &CacheAdminHandler{cache: manager, security: sec, logger: log}
}

type invalidateRequest struct {
	Tag     string `json:"tag"`
	Pattern string `json:"pattern"`
}

// Invalidate removes cache entries by tag or glob pattern for the ambient
// tenant. Exactly one selector must be provided.
func (h *CacheAdminHandler) Invalidate(c *gin.Context) {
	var req invalidateRequest
	if err := c.ShouldBindJSON(&req); err != nil || (req.Tag == "") == (req.Pattern == "") {
		middleware.AbortBadRequest(c, "exactly one of tag or pattern is required")
		return
	}
	ctx := c.Request.Context()

	var (
		removed int
		err     error
		action  string
	)
	if req.Tag != "" {
		action = "invalidate_tag"
		removed, err = h.cache.InvalidateByTag(ctx, req.Tag, cache.Config{})
	} else {
		action = "invalidate_pattern"
		removed, err = h.cache.InvalidateByPattern(ctx, req.Pattern, cache.Config{})
	}
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	h.audit(c, action, removed, map[string]interface{}{"tag": req.Tag, "pattern": req.Pattern})
	c.JSON(http.StatusOK, gin.H{"invalidated": removed})
}

// ClearTenant wipes the ambient tenant's entire cache namespace.
func (h *CacheAdminHandler) ClearTenant(c *gin.Context) {
	removed, err := h.cache.ClearTenant(c.Request.Context())
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	h.audit(c, "clear_tenant", removed, nil)
	c.JSON(http.StatusOK, gin.H{"cleared": removed})
}

func (h *CacheAdminHandler) audit(c *gin.Context, action string, removed int, details map[string]interface{}) {
	if details == nil {
		details = map[string]interface{}{}
	}
	details["removed"] = removed

	user := middleware.CurrentUser(c)
	userID := ""
	if user != nil {
		userID = user.ID
	}
	h.security.AuditEvent(c.Request.Context(), security.AuditParams{
		EventType: models.AuditDataModification,
		Resource:  "cache",
		Action:    action,
		UserID:    userID,
		IPAddress: c.ClientIP(),
		Success:   true,
		Details:   details,
	})
}
