package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hireloop/platform-core/internal/auth"
	"github.com/hireloop/platform-core/internal/tenant"
)

// Gin context keys shared across middleware and handlers.
const (
	KeyUserID   = "user_id"
	KeyTenantID = "tenant_id"
	KeyUser     = "current_user"
)

// ErrorResponse is the uniform error body for the whole API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// AbortWithError maps a domain error to its HTTP status and stops the chain.
// Authentication failures deliberately collapse into one generic 401 so the
// response cannot be used as an oracle for token state.
func AbortWithError(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case auth.IsAuthenticationError(err):
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "authentication required",
		})
	case auth.IsAuthorizationError(err):
		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
			Error:   "forbidden",
			Message: "insufficient permissions",
		})
	// A request reaching a tenant-scoped operation without tenant context is
	// treated as a malformed request, not a server fault: the middleware
	// installs the tenant for every authenticated route, so the only way to
	// get here is calling a tenant-scoped endpoint out of scope.
	case errors.Is(err, tenant.ErrNoTenant):
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
			Error:   "tenant_required",
			Message: "no tenant context for this request",
		})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "the request could not be processed",
		})
	}
}

// AbortBadRequest rejects malformed input with a caller-visible message.
func AbortBadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Error:   "bad_request",
		Message: message,
	})
}
