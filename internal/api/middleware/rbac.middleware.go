package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/hireloop/platform-core/internal/auth"
	"github.com/hireloop/platform-core/internal/models"
	"github.com/hireloop/platform-core/internal/security"
)

// RequirePermission guards a route group behind one permission. Denials are
// audited with the permission name in the details, but the 403 body stays
// generic.
func RequirePermission(p models.Permission, sec *security.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if err := auth.RequirePermission(user, p); err != nil {
			if sec != nil {
				userID := ""
				if user != nil {
					userID = user.ID
				}
				sec.AuditEvent(c.Request.Context(), security.AuditParams{
					EventType: models.AuditPermissionDenied,
					Resource:  c.Request.URL.Path,
					Action:    c.Request.Method,
					UserID:    userID,
					IPAddress: c.ClientIP(),
					UserAgent: c.Request.UserAgent(),
					Success:   false,
					Details:   map[string]interface{}{"permission": string(p)},
				})
			}
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// RequireRole guards a route group behind one role.
func RequireRole(r models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := auth.RequireRole(CurrentUser(c), r); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}
