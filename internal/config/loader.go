package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load builds the configuration with priority order:
// 1. Environment variables (HIRELOOP_ prefix)
// 2. Configuration file (config.yaml)
// 3. Default values
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/hireloop/")
	v.AddConfigPath("./configs/")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("HIRELOOP")

	setDefaults(v)

	// The config file is optional; env vars and defaults are enough to boot.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")

	// Secrets default to empty so viper knows the keys; AutomaticEnv only
	// resolves keys it has seen, and these are usually env-only.
	v.SetDefault("auth.secret", "")
	v.SetDefault("security.encryption_master_key", "")
	v.SetDefault("security.siem_endpoint", "")
	v.SetDefault("security.siem_token", "")
	v.SetDefault("security.webhook_secret", "")

	v.SetDefault("auth.access_ttl_minutes", 30)
	v.SetDefault("auth.refresh_ttl_days", 30)
	v.SetDefault("auth.bcrypt_cost", 12)

	v.SetDefault("valkey.nodes", []string{"localhost:6379"})
	v.SetDefault("valkey.db", 0)

	v.SetDefault("cache.namespace", "hireloop")
	v.SetDefault("cache.default_ttl_seconds", 300)

	v.SetDefault("rate_limit.enabled", true)

	v.SetDefault("security.audit_log_path", "/var/log/hireloop/audit.log")

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Authorization", "Content-Type", "X-Requested-With"})
	v.SetDefault("cors.exposed_headers", []string{
		"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset",
		"X-RateLimit-Window", "X-RateLimit-Type",
	})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 300)
}

// Validate rejects configurations that cannot produce a working deployment.
// Secrets get length checks only; their values are never logged.
func Validate(cfg *Config) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("port %d out of range", cfg.Port)
	}
	if cfg.Auth.Secret == "" {
		return fmt.Errorf("auth.secret is required")
	}
	if len(cfg.Auth.Secret) < 16 {
		return fmt.Errorf("auth.secret must be at least 16 bytes")
	}
	if cfg.Auth.AccessTTLMinutes <= 0 {
		return fmt.Errorf("auth.access_ttl_minutes must be positive")
	}
	if cfg.Auth.RefreshTTLDays <= 0 {
		return fmt.Errorf("auth.refresh_ttl_days must be positive")
	}
	if cfg.Auth.BcryptCost < 4 || cfg.Auth.BcryptCost > 31 {
		return fmt.Errorf("auth.bcrypt_cost %d out of range", cfg.Auth.BcryptCost)
	}
	for _, p := range cfg.Auth.OAuth2Providers {
		if p.Name == "" || p.ClientID == "" || p.AuthURL == "" || p.TokenURL == "" || p.UserInfoURL == "" {
			return fmt.Errorf("oauth2 provider %q is missing required fields", p.Name)
		}
	}
	if len(cfg.Valkey.Nodes) == 0 {
		return fmt.Errorf("valkey.nodes must list at least one node")
	}
	if cfg.Security.EncryptionMasterKey == "" {
		return fmt.Errorf("security.encryption_master_key is required")
	}
	if len(cfg.Security.EncryptionMasterKey) < 16 {
		return fmt.Errorf("security.encryption_master_key must be at least 16 bytes")
	}
	if cfg.Security.AuditLogPath == "" {
		return fmt.Errorf("security.audit_log_path is required")
	}
	for _, e := range cfg.RateLimit.EndpointLimits {
		if e.Path == "" || e.Limit <= 0 || e.WindowSeconds <= 0 {
			return fmt.Errorf("endpoint limit for %q needs path, limit, and window", e.Path)
		}
	}
	for _, u := range cfg.RateLimit.UserLimits {
		if u.UserID == "" || u.Limit <= 0 || u.WindowSeconds <= 0 {
			return fmt.Errorf("user limit for %q needs user_id, limit, and window", u.UserID)
		}
	}
	return nil
}
