package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port: 8080,
		Auth: AuthConfig{
			Secret:           "long-enough-signing-secret",
			AccessTTLMinutes: 30,
			RefreshTTLDays:   30,
			BcryptCost:       12,
		},
		Valkey: ValkeyConfig{Nodes: []string{"localhost:6379"}},
		Security: SecurityConfig{
			EncryptionMasterKey: "long-enough-master-key",
			AuditLogPath:        "/tmp/audit.log",
		},
	}
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	assert.NoError(t, Validate(validConfig()))
}

func TestValidateRejectsMissingSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.Secret = ""
	assert.Error(t, Validate(cfg))

	cfg = validConfig()
	cfg.Auth.Secret = "short"
	assert.Error(t, Validate(cfg))

	cfg = validConfig()
	cfg.Security.EncryptionMasterKey = ""
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsBadRanges(t *testing.T) {
	cfg := validConfig()
	cfg.Port = 0
	assert.Error(t, Validate(cfg))

	cfg = validConfig()
	cfg.Auth.BcryptCost = 99
	assert.Error(t, Validate(cfg))

	cfg = validConfig()
	cfg.Valkey.Nodes = nil
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsIncompleteOAuth2Provider(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.OAuth2Providers = []OAuth2ProviderConfig{{Name: "idp", ClientID: "c"}}
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsIncompleteRateLimits(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimit.EndpointLimits = []EndpointLimitConfig{{Path: "/api/v1/x", Limit: 0, WindowSeconds: 60}}
	assert.Error(t, Validate(cfg))

	cfg = validConfig()
	cfg.RateLimit.UserLimits = []UserLimitConfig{{UserID: "", Limit: 10, WindowSeconds: 60}}
	assert.Error(t, Validate(cfg))
}

func TestLoadAppliesDefaultsFromEnv(t *testing.T) {
	t.Setenv("HIRELOOP_AUTH_SECRET", "long-enough-signing-secret")
	t.Setenv("HIRELOOP_SECURITY_ENCRYPTION_MASTER_KEY", "long-enough-master-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 30, cfg.Auth.AccessTTLMinutes)
	assert.Equal(t, "hireloop", cfg.Cache.Namespace)
	assert.Equal(t, []string{"localhost:6379"}, cfg.Valkey.Nodes)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Contains(t, cfg.CORS.ExposedHeaders, "X-RateLimit-Remaining")
}
