package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hireloop/platform-core/internal/api"
	"github.com/hireloop/platform-core/internal/auth"
	"github.com/hireloop/platform-core/internal/branding"
	tenantcache "github.com/hireloop/platform-core/internal/cache"
	"github.com/hireloop/platform-core/internal/config"
	"github.com/hireloop/platform-core/internal/directory"
	"github.com/hireloop/platform-core/internal/ratelimit"
	"github.com/hireloop/platform-core/internal/security"
	"github.com/hireloop/platform-core/pkg/cache"
	"github.com/hireloop/platform-core/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logg := logger.New(cfg.LogLevel)
	logg.Info("Starting platform-core", "environment", cfg.Environment)

	store, err := newStore(cfg)
	if err != nil {
		logg.Fatal("Failed to initialize valkey store", "error", err)
	}
	logg.Info("Valkey store initialized", "nodes", len(cfg.Valkey.Nodes))

	encryptor, err := security.NewEncryptor(cfg.Security.EncryptionMasterKey)
	if err != nil {
		logg.Fatal("Failed to initialize encryption", "error", err)
	}

	var siem *security.SIEMForwarder
	if cfg.Security.SIEMEndpoint != "" {
		siem = security.NewSIEMForwarder(cfg.Security.SIEMEndpoint, cfg.Security.SIEMToken, logg)
		logg.Info("SIEM forwarding enabled")
	}
	auditLogger, err := security.NewAuditLogger(cfg.Security.AuditLogPath, siem, logg)
	if err != nil {
		logg.Fatal("Failed to open audit log", "error", err)
	}
	defer func() {
		if err := auditLogger.Close(); err != nil {
			logg.Error("Failed to close audit log", "error", err)
		}
	}()

	oauth2Service := security.NewOAuth2Service(oauth2Providers(cfg), store, logg)
	securityService := security.NewService(encryptor, auditLogger, oauth2Service, logg)

	users := directory.NewMemoryDirectory()
	tenants := directory.NewMemoryTenantDirectory()

	authService, err := auth.NewService(auth.Config{
		Secret:     cfg.Auth.Secret,
		AccessTTL:  time.Duration(cfg.Auth.AccessTTLMinutes) * time.Minute,
		RefreshTTL: time.Duration(cfg.Auth.RefreshTTLDays) * 24 * time.Hour,
		BcryptCost: cfg.Auth.BcryptCost,
	}, store, tenants, encryptor, logg)
	if err != nil {
		logg.Fatal("Failed to initialize auth service", "error", err)
	}

	limiter := ratelimit.NewLimiter(rateLimitConfig(cfg), store, logg)
	cacheManager := tenantcache.NewManager(cfg.Cache.Namespace, store, logg)
	brandingService := branding.NewService(cacheManager, securityService, logg)

	apiServer := api.NewServer(cfg, api.Deps{
		Auth:     authService,
		Security: securityService,
		Limiter:  limiter,
		Cache:    cacheManager,
		Branding: brandingService,
		Users:    users,
		Store:    store,
	}, logg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logg.Info("Shutdown signal received")
		cancel()
	}()

	if err := apiServer.Start(ctx); err != nil {
		logg.Fatal("Server failed", "error", err)
	}

	logg.Info("platform-core shutdown complete")
}

func newStore(cfg *config.Config) (cache.ValkeyStore, error) {
	ttl := time.Duration(cfg.Cache.DefaultTTLSeconds) * time.Second
	if len(cfg.Valkey.Nodes) > 1 {
		return cache.NewValkeyCluster(cfg.Valkey.Nodes, cfg.Valkey.Password, ttl)
	}
	return cache.NewValkeySingle(cfg.Valkey.Nodes[0], cfg.Valkey.DB, cfg.Valkey.Password, ttl)
}

func oauth2Providers(cfg *config.Config) []security.OAuth2Provider {
	providers := make([]security.OAuth2Provider, 0, len(cfg.Auth.OAuth2Providers))
	for _, p := range cfg.Auth.OAuth2Providers {
		providers = append(providers, security.OAuth2Provider{
			Name:         p.Name,
			ClientID:     p.ClientID,
			ClientSecret: p.ClientSecret,
			AuthURL:      p.AuthURL,
			TokenURL:     p.TokenURL,
			UserInfoURL:  p.UserInfoURL,
			Scopes:       p.Scopes,
		})
	}
	return providers
}

func rateLimitConfig(cfg *config.Config) ratelimit.Config {
	out := ratelimit.Config{
		ExemptPaths:    cfg.RateLimit.ExemptPaths,
		EndpointLimits: make(map[string]ratelimit.RateLimit, len(cfg.RateLimit.EndpointLimits)),
		UserLimits:     make(map[string]ratelimit.RateLimit, len(cfg.RateLimit.UserLimits)),
	}
	for _, e := range cfg.RateLimit.EndpointLimits {
		out.EndpointLimits[e.Path] = ratelimit.RateLimit{
			Limit:      e.Limit,
			Window:     time.Duration(e.WindowSeconds) * time.Second,
			BurstLimit: e.BurstLimit,
		}
	}
	for _, u := range cfg.RateLimit.UserLimits {
		out.UserLimits[u.UserID] = ratelimit.RateLimit{
			Limit:      u.Limit,
			Window:     time.Duration(u.WindowSeconds) * time.Second,
			BurstLimit: u.BurstLimit,
		}
	}
	return out
}
