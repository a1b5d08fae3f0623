package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hireloop/platform-core/internal/api/handlers"
	"github.com/hireloop/platform-core/internal/api/middleware"
	"github.com/hireloop/platform-core/internal/auth"
	"github.com/hireloop/platform-core/internal/branding"
	tenantcache "github.com/hireloop/platform-core/internal/cache"
	"github.com/hireloop/platform-core/internal/config"
	"github.com/hireloop/platform-core/internal/models"
	"github.com/hireloop/platform-core/internal/monitoring"
	"github.com/hireloop/platform-core/internal/ratelimit"
	"github.com/hireloop/platform-core/internal/security"
	"github.com/hireloop/platform-core/pkg/cache"
	"github.com/hireloop/platform-core/pkg/logger"
)

// Deps are the singleton services the server serves. All of them are
// constructed once at startup and injected; nothing here is created per
// request.
type Deps struct {
	Auth     *auth.Service
	Security *security.Service
	Limiter  *ratelimit.Limiter
	Cache    *tenantcache.Manager
	Branding *branding.Service
	Users    handlers.UserDirectory
	Store    cache.ValkeyStore
}

type Server struct {
	config     *config.Config
	logger     logger.Logger
	deps       Deps
	router     *gin.Engine
	httpServer *http.Server
}

func NewServer(cfg *config.Config, deps Deps, log logger.Logger) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &Server{
		config: cfg,
		logger: log,
		deps:   deps,
		router: gin.New(),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// Middleware order matters: the tenant context must exist before the rate
// limiter runs, and both before any handler touches tenant-scoped state.
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.CORSMiddleware(s.config.CORS))
	s.router.Use(middleware.RequestLogger(s.logger))
	s.router.Use(monitoring.HTTPMetricsMiddleware())
	s.router.Use(middleware.AuthMiddleware(s.deps.Auth))
	if s.config.RateLimit.Enabled {
		s.router.Use(middleware.RateLimitMiddleware(s.deps.Limiter))
	}

	monitoring.SetupPrometheusMetrics(s.router)
}

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.deps.Store, s.logger)
	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/ready", healthHandler.ReadinessCheck)

	v1 := s.router.Group("/api/v1")

	authHandler := handlers.NewAuthHandler(s.deps.Auth, s.deps.Security, s.deps.Users, s.logger)
	v1.POST("/auth/login", authHandler.Login)
	v1.POST("/auth/refresh", authHandler.Refresh)
	v1.POST("/auth/logout", authHandler.Logout)
	v1.POST("/auth/revoke-all", authHandler.RevokeAll)
	v1.GET("/auth/me", authHandler.Me)

	mfaHandler := handlers.NewMFAHandler(s.deps.Auth, s.deps.Security, s.logger)
	v1.POST("/auth/mfa/setup", mfaHandler.Setup)
	v1.POST("/auth/mfa/verify", mfaHandler.Verify)
	v1.DELETE("/auth/mfa", mfaHandler.Disable)

	oauth2Handler := handlers.NewOAuth2Handler(s.deps.Security.OAuth2, s.deps.Auth, s.deps.Security, s.deps.Users, s.logger)
	v1.GET("/auth/oauth2/providers", oauth2Handler.Providers)
	v1.GET("/auth/oauth2/:provider/authorize-url", oauth2Handler.AuthorizeURL)
	v1.POST("/auth/oauth2/:provider/callback", oauth2Handler.Callback)

	tenantHandler := handlers.NewTenantHandler(s.deps.Branding, s.logger)
	v1.GET("/tenant", tenantHandler.Current)
	v1.GET("/tenant/branding", tenantHandler.GetBranding)
	v1.PUT("/tenant/branding",
		middleware.RequirePermission(models.PermManageIntegrations, s.deps.Security),
		tenantHandler.UpdateBranding)
	v1.DELETE("/tenant/branding",
		middleware.RequirePermission(models.PermManageIntegrations, s.deps.Security),
		tenantHandler.ResetBranding)

	cacheHandler := handlers.NewCacheAdminHandler(s.deps.Cache, s.deps.Security, s.logger)
	cacheAdmin := v1.Group("/cache", middleware.RequirePermission(models.PermManageCache, s.deps.Security))
	cacheAdmin.POST("/invalidate", cacheHandler.Invalidate)
	cacheAdmin.POST("/clear", cacheHandler.ClearTenant)

	auditHandler := handlers.NewAuditHandler(s.deps.Security, s.logger)
	auditRoutes := v1.Group("/audit", middleware.RequirePermission(models.PermViewAuditLog, s.deps.Security))
	auditRoutes.GET("/compliance-report", auditHandler.ComplianceReport)
	auditRoutes.GET("/events", auditHandler.RecentEvents)
}

func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("platform-core API server starting", "port", s.config.Port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutting down platform-core gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
