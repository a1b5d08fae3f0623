package config

// Config is the full platform-core configuration tree.
type Config struct {
	Environment string `mapstructure:"environment" yaml:"environment"`
	Port        int    `mapstructure:"port" yaml:"port"`
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`

	Auth      AuthConfig      `mapstructure:"auth" yaml:"auth"`
	Valkey    ValkeyConfig    `mapstructure:"valkey" yaml:"valkey"`
	Cache     CacheConfig     `mapstructure:"cache" yaml:"cache"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
	Security  SecurityConfig  `mapstructure:"security" yaml:"security"`
	CORS      CORSConfig      `mapstructure:"cors" yaml:"cors"`
}

// AuthConfig drives token issuance and password hashing.
type AuthConfig struct {
	Secret            string `mapstructure:"secret" yaml:"secret"`
	AccessTTLMinutes  int    `mapstructure:"access_ttl_minutes" yaml:"access_ttl_minutes"`
	RefreshTTLDays    int    `mapstructure:"refresh_ttl_days" yaml:"refresh_ttl_days"`
	BcryptCost        int    `mapstructure:"bcrypt_cost" yaml:"bcrypt_cost"`
	OAuth2RedirectURI string `mapstructure:"oauth2_redirect_uri" yaml:"oauth2_redirect_uri"`

	OAuth2Providers []OAuth2ProviderConfig `mapstructure:"oauth2_providers" yaml:"oauth2_providers"`
}

// OAuth2ProviderConfig configures one upstream identity provider.
type OAuth2ProviderConfig struct {
	Name         string   `mapstructure:"name" yaml:"name"`
	ClientID     string   `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret string   `mapstructure:"client_secret" yaml:"client_secret"`
	AuthURL      string   `mapstructure:"auth_url" yaml:"auth_url"`
	TokenURL     string   `mapstructure:"token_url" yaml:"token_url"`
	UserInfoURL  string   `mapstructure:"user_info_url" yaml:"user_info_url"`
	Scopes       []string `mapstructure:"scopes" yaml:"scopes"`
}

// ValkeyConfig points at the shared key-value store. More than one node
// switches the client into cluster mode.
type ValkeyConfig struct {
	Nodes    []string `mapstructure:"nodes" yaml:"nodes"`
	Password string   `mapstructure:"password" yaml:"password"`
	DB       int      `mapstructure:"db" yaml:"db"`
}

// CacheConfig controls the tenant cache layer.
type CacheConfig struct {
	Namespace         string `mapstructure:"namespace" yaml:"namespace"`
	DefaultTTLSeconds int    `mapstructure:"default_ttl_seconds" yaml:"default_ttl_seconds"`
}

// RateLimitConfig carries the admission-control policy tables.
type RateLimitConfig struct {
	Enabled        bool                  `mapstructure:"enabled" yaml:"enabled"`
	ExemptPaths    []string              `mapstructure:"exempt_paths" yaml:"exempt_paths"`
	EndpointLimits []EndpointLimitConfig `mapstructure:"endpoint_limits" yaml:"endpoint_limits"`
	UserLimits     []UserLimitConfig     `mapstructure:"user_limits" yaml:"user_limits"`
}

type EndpointLimitConfig struct {
	Path          string `mapstructure:"path" yaml:"path"`
	Limit         int    `mapstructure:"limit" yaml:"limit"`
	WindowSeconds int    `mapstructure:"window_seconds" yaml:"window_seconds"`
	BurstLimit    int    `mapstructure:"burst_limit" yaml:"burst_limit"`
}

type UserLimitConfig struct {
	UserID        string `mapstructure:"user_id" yaml:"user_id"`
	Limit         int    `mapstructure:"limit" yaml:"limit"`
	WindowSeconds int    `mapstructure:"window_seconds" yaml:"window_seconds"`
	BurstLimit    int    `mapstructure:"burst_limit" yaml:"burst_limit"`
}

// SecurityConfig covers encryption, audit, and SIEM forwarding.
type SecurityConfig struct {
	EncryptionMasterKey string `mapstructure:"encryption_master_key" yaml:"encryption_master_key"`
	AuditLogPath        string `mapstructure:"audit_log_path" yaml:"audit_log_path"`
	SIEMEndpoint        string `mapstructure:"siem_endpoint" yaml:"siem_endpoint"`
	SIEMToken           string `mapstructure:"siem_token" yaml:"siem_token"`
	WebhookSecret       string `mapstructure:"webhook_secret" yaml:"webhook_secret"`
}

// CORSConfig handles cross-origin policy for the HTTP surface.
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers" yaml:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers" yaml:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age" yaml:"max_age"`
}
