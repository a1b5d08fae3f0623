package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hireloop/platform-core/internal/api/middleware"
	"github.com/hireloop/platform-core/internal/auth"
	"github.com/hireloop/platform-core/internal/models"
	"github.com/hireloop/platform-core/internal/monitoring"
	"github.com/hireloop/platform-core/internal/security"
	"github.com/hireloop/platform-core/pkg/logger"
)

type OAuth2Handler struct {
	oauth2   *security.OAuth2Service
	auth     *auth.Service
	security *security.Service
	users    UserDirectory
	logger   logger.Logger
}

func NewOAuth2Handler(oauth2Service *security.OAuth2Service, authService *auth.Service, sec *security.Service, users UserDirectory, log logger.Logger) *OAuth2Handler {
	return &OAuth2Handler{
		oauth2:   oauth2Service,
		auth:     authService,
		security: sec,
		users:    users,
		logger:   log,
	}
}

// Providers lists the configured identity providers.
func (h *OAuth2Handler) Providers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"providers": h.oauth2.Providers()})
}

// AuthorizeURL mints a single-use state and returns the provider redirect.
func (h *OAuth2Handler) AuthorizeURL(c *gin.Context) {
	provider := c.Param("provider")
	redirectURI := c.Query("redirect_uri")
	if redirectURI == "" {
		middleware.AbortBadRequest(c, "redirect_uri is required")
		return
	}

	state := uuid.NewString()
	authURL, err := h.oauth2.AuthorizationURL(c.Request.Context(), provider, redirectURI, state)
	if err != nil {
		if errors.Is(err, security.ErrOAuth2) || errors.Is(err, security.ErrOAuth2State) {
			middleware.AbortBadRequest(c, "unknown provider")
			return
		}
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authorization_url": authURL,
		"state":             state,
	})
}

type oauth2CallbackRequest struct {
	Code        string `json:"code" binding:"required"`
	State       string `json:"state" binding:"required"`
	RedirectURI string `json:"redirect_uri" binding:"required"`
}

// Callback completes the authorization-code flow: burn the state, exchange
// the code, fetch the profile, and mint platform tokens for the matching
// directory user. Unknown or inactive users fail exactly like a bad code.
func (h *OAuth2Handler) Callback(c *gin.Context) {
	provider := c.Param("provider")

	var req oauth2CallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortBadRequest(c, "code, state, and redirect_uri are required")
		return
	}
	ctx := c.Request.Context()

	if err := h.oauth2.ConsumeState(ctx, req.State, req.RedirectURI); err != nil {
		h.oauthFailure(c, nil, "state_rejected")
		return
	}

	token, err := h.oauth2.ExchangeCode(ctx, provider, req.Code, req.RedirectURI)
	if err != nil {
		h.oauthFailure(c, nil, "code_exchange_failed")
		return
	}

	profile, err := h.oauth2.UserInfo(ctx, provider, token.AccessToken)
	if err != nil {
		h.oauthFailure(c, nil, "userinfo_failed")
		return
	}

	user, _, err := h.users.FindByEmail(ctx, profile.Email)
	if err != nil || !user.IsActive {
		h.oauthFailure(c, user, "no_matching_account")
		return
	}

	access, data, err := h.auth.GenerateToken(ctx, user, models.TokenTypeAccess)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	refresh, _, err := h.auth.GenerateToken(ctx, user, models.TokenTypeRefresh)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	monitoring.RecordAuthAttempt("oauth2", "success")
	h.security.AuditEvent(ctx, security.AuditParams{
		EventType: models.AuditOAuth2Login,
		Resource:  "auth",
		Action:    "oauth2_callback",
		UserID:    user.ID,
		IPAddress: c.ClientIP(),
		Success:   true,
		Details:   map[string]interface{}{"provider": provider},
	})

	c.JSON(http.StatusOK, gin.H{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "Bearer",
		"expires_at":    data.ExpiresAt,
		"user":          user,
	})
}

func (h *OAuth2Handler) oauthFailure(c *gin.Context, user *models.User, reason string) {
	monitoring.RecordAuthAttempt("oauth2", "failure")
	userID := ""
	if user != nil {
		userID = user.ID
	}
	h.security.AuditEvent(c.Request.Context(), security.AuditParams{
		EventType: models.AuditOAuth2Login,
		Resource:  "auth",
		Action:    "oauth2_callback",
		UserID:    userID,
		IPAddress: c.ClientIP(),
		Success:   false,
		RiskScore: 40,
		Details:   map[string]interface{}{"reason": reason},
	})
	c.AbortWithStatusJSON(http.StatusUnauthorized, middleware.ErrorResponse{
		Error:   "unauthorized",
		Message: "oauth2 authentication failed",
	})
}
