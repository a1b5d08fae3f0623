// Package branding stores per-tenant theming configuration. Branding lives
// in the shared key-value store through the tenant cache layer, so the same
// isolation rules apply as to any other tenant data.
package branding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hireloop/platform-core/internal/cache"
	"github.com/hireloop/platform-core/internal/models"
	"github.com/hireloop/platform-core/internal/security"
	"github.com/hireloop/platform-core/internal/tenant"
	"github.com/hireloop/platform-core/pkg/logger"
)

const (
	brandingKey = "branding:config"
	brandingTag = "branding"
)

// ErrInvalidBranding rejects malformed branding updates.
var ErrInvalidBranding = errors.New("invalid branding configuration")

type Service struct {
	cache    *cache.Manager
	security *security.Service
	logger   logger.Logger
}

func NewService(cacheManager *cache.Manager, sec *security.Service, log logger.Logger) *Service {
	return &Service{
		cache:    cacheManager,
		security: sec,
		logger:   log,
	}
}

// Get returns the ambient tenant's branding. Tenants that never customized
// anything get the tenant record's embedded branding, or an empty config.
func (s *Service) Get(ctx context.Context) (*models.BrandingConfig, error) {
	tn, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	var cfg models.BrandingConfig
	err = s.cache.Get(ctx, brandingKey, &cfg, cache.Config{})
	if err == nil {
		return &cfg, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		return nil, fmt.Errorf("load branding: %w", err)
	}

	if tn.Branding != nil {
		return tn.Branding, nil
	}
	return &models.BrandingConfig{}, nil
}

// Update replaces the tenant's branding. Stored without TTL: branding is
// configuration, not a cacheable computation.
func (s *Service) Update(ctx context.Context, userID string, cfg *models.BrandingConfig) error {
	if _, err := tenant.Require(ctx); err != nil {
		return err
	}
	if err := validate(cfg); err != nil {
		s.security.AuditEvent(ctx, security.AuditParams{
			EventType: models.AuditConfigChange,
			Resource:  "branding",
			Action:    "update",
			UserID:    userID,
			Success:   false,
			Details:   map[string]interface{}{"reason": err.Error()},
		})
		return err
	}

	if err := s.cache.Set(ctx, brandingKey, cfg, cache.Config{Tags: []string{brandingTag}}); err != nil {
		return fmt.Errorf("store branding: %w", err)
	}

	s.security.AuditEvent(ctx, security.AuditParams{
		EventType: models.AuditConfigChange,
		Resource:  "branding",
		Action:    "update",
		UserID:    userID,
		Success:   true,
	})
	return nil
}

// Reset removes the tenant's customization, falling back to defaults.
func (s *Service) Reset(ctx context.Context, userID string) error {
	if _, err := tenant.Require(ctx); err != nil {
		return err
	}
	if _, err := s.cache.Delete(ctx, brandingKey, cache.Config{}); err != nil {
		return fmt.Errorf("reset branding: %w", err)
	}
	s.security.AuditEvent(ctx, security.AuditParams{
		EventType: models.AuditConfigChange,
		Resource:  "branding",
		Action:    "reset",
		UserID:    userID,
		Success:   true,
	})
	return nil
}

func validate(cfg *models.BrandingConfig) error {
	if cfg == nil {
		return fmt.Errorf("%w: empty config", ErrInvalidBranding)
	}
	for name, color := range map[string]string{
		"primary_color":   cfg.PrimaryColor,
		"secondary_color": cfg.SecondaryColor,
	} {
		if color != "" && !validHexColor(color) {
			return fmt.Errorf("%w: %s must be a hex color", ErrInvalidBranding, name)
		}
	}
	if cfg.LogoURL != "" && !strings.HasPrefix(cfg.LogoURL, "https://") {
		return fmt.Errorf("%w: logo_url must be https", ErrInvalidBranding)
	}
	return nil
}

func validHexColor(s string) bool {
	if len(s) != 7 && len(s) != 4 {
		return false
	}
	if s[0] != '#' {
		return false
	}
	for _, r := range s[1:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
