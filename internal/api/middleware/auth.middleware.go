package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hireloop/platform-core/internal/auth"
	"github.com/hireloop/platform-core/internal/models"
)

// publicPaths skip bearer authentication entirely.
var publicPaths = []string{
	"/health",
	"/ready",
	"/metrics",
	"/api/v1/auth/login",
	"/api/v1/auth/refresh",
	"/api/v1/auth/oauth2",
}

// AuthMiddleware resolves the bearer token, installs the tenant into the
// request context, and exposes the current user to downstream handlers.
// Every failure mode returns the same generic 401.
func AuthMiddleware(authService *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isPublicPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		bearer := extractBearer(c)
		if bearer == "" {
			AbortWithError(c, auth.ErrTokenInvalid)
			return
		}

		ctx, user, err := authService.CurrentTenantUser(c.Request.Context(), bearer)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		// The tenant now rides the request context; gin keys are for
		// logging and metrics only.
		c.Request = c.Request.WithContext(ctx)
		c.Set(KeyUser, user)
		c.Set(KeyUserID, user.ID)
		c.Set(KeyTenantID, user.TenantID)

		c.Next()
	}
}

func isPublicPath(path string) bool {
	for _, prefix := range publicPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func extractBearer(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// CurrentUser returns the authenticated user installed by AuthMiddleware.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(KeyUser); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}
