package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hireloop/platform-core/internal/api/middleware"
	"github.com/hireloop/platform-core/internal/branding"
	"github.com/hireloop/platform-core/internal/models"
	"github.com/hireloop/platform-core/internal/tenant"
	"github.com/hireloop/platform-core/pkg/logger"
)

type TenantHandler struct {
	branding *branding.Service
	logger   logger.Logger
}

func NewTenantHandler(brandingService *branding.Service, log logger.Logger) *TenantHandler {
	return &TenantHandler{branding: brandingService, logger: log}
}

// Current returns the ambient tenant for the request.
func (h *TenantHandler) Current(c *gin.Context) {
	tn, err := tenant.Require(c.Request.Context())
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, tn)
}

// GetBranding returns the tenant's theming configuration.
func (h *TenantHandler) GetBranding(c *gin.Context) {
	cfg, err := h.branding.Get(c.Request.Context())
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// UpdateBranding replaces the tenant's theming configuration.
func (h *TenantHandler) UpdateBranding(c *gin.Context) {
	var cfg models.BrandingConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		middleware.AbortBadRequest(c, "invalid branding payload")
		return
	}

	user := middleware.CurrentUser(c)
	if err := h.branding.Update(c.Request.Context(), user.ID, &cfg); err != nil {
		if errors.Is(err, branding.ErrInvalidBranding) {
			middleware.AbortBadRequest(c, err.Error())
			return
		}
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// ResetBranding clears the tenant's customization.
func (h *TenantHandler) ResetBranding(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := h.branding.Reset(c.Request.Context(), user.ID); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}
