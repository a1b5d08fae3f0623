package models

// SubscriptionTier drives default rate limits and feature availability.
type SubscriptionTier string

const (
	TierBasic        SubscriptionTier = "basic"
	TierProfessional SubscriptionTier = "professional"
	TierEnterprise   SubscriptionTier = "enterprise"
)

// Valid reports whether the tier is one of the known subscription tiers.
func (t SubscriptionTier) Valid() bool {
	switch t {
	case TierBasic, TierProfessional, TierEnterprise:
		return true
	}
	return false
}

// Tenant describes the caller's organization. A value is installed into the
// request context at ingress and read by every tenant-aware component; it is
// immutable for the duration of a request.
type Tenant struct {
	ID              string           `json:"tenant_id"`
	Name            string           `json:"tenant_name"`
	Domain          string           `json:"tenant_domain"`
	Tier            SubscriptionTier `json:"subscription_tier"`
	FeaturesEnabled map[string]bool  `json:"features_enabled,omitempty"`
	RateLimits      map[string]int   `json:"rate_limits,omitempty"`
	Branding        *BrandingConfig  `json:"custom_branding,omitempty"`
}

// FeatureEnabled reports whether a named feature is switched on for the
// tenant. Unknown features are off.
func (t *Tenant) FeatureEnabled(name string) bool {
	if t == nil || t.FeaturesEnabled == nil {
		return false
	}
	return t.FeaturesEnabled[name]
}

// BrandingConfig holds per-tenant theming.
type BrandingConfig struct {
	LogoURL        string            `json:"logo_url,omitempty"`
	PrimaryColor   string            `json:"primary_color,omitempty"`
	SecondaryColor string            `json:"secondary_color,omitempty"`
	CompanyName    string            `json:"company_name,omitempty"`
	CustomCSS      string            `json:"custom_css,omitempty"`
	EmailFooter    string            `json:"email_footer,omitempty"`
	Extra          map[string]string `json:"extra,omitempty"`
}
