package security

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hireloop/platform-core/pkg/cache"
	"github.com/hireloop/platform-core/pkg/logger"
)

// ErrOAuth2 is the single error surfaced to clients for any provider-side
// failure. Provider responses are logged, never echoed, so upstream error
// bodies cannot leak through the API.
var ErrOAuth2 = errors.New("oauth2 authentication failed")

// ErrOAuth2State rejects missing, expired, or replayed state values.
var ErrOAuth2State = errors.New("oauth2 state invalid or expired")

const (
	oauth2StateTTL      = 10 * time.Minute
	oauth2ClientTimeout = 10 * time.Second
)

// OAuth2Provider describes one upstream identity provider.
type OAuth2Provider struct {
	Name         string   `json:"name"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"-"`
	AuthURL      string   `json:"auth_url"`
	TokenURL     string   `json:"token_url"`
	UserInfoURL  string   `json:"user_info_url"`
	Scopes       []string `json:"scopes"`
}

// OAuth2Token is the provider's token response.
type OAuth2Token struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
}

// OAuth2Profile is the subset of the provider's user info the platform uses.
type OAuth2Profile struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	EmailVerified bool   `json:"email_verified"`
	Provider      string `json:"provider"`
}

// OAuth2Service drives the authorization-code flow against configured
// providers. State values are stored server-side and are strictly single-use.
type OAuth2Service struct {
	providers map[string]OAuth2Provider
	store     cache.ValkeyStore
	client    *http.Client
	logger    logger.Logger
}

func NewOAuth2Service(providers []OAuth2Provider, store cache.ValkeyStore, log logger.Logger) *OAuth2Service {
	byName := make(map[string]OAuth2Provider, len(providers))
	for _, p := range providers {
		byName[p.Name] = p
	}
	return &OAuth2Service{
		providers: byName,
		store:     store,
		client:    &http.Client{Timeout: oauth2ClientTimeout},
		logger:    log,
	}
}

// Providers lists the configured provider names.
func (s *OAuth2Service) Providers() []string {
	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	return names
}

func oauth2StateKey(state string) string {
	return fmt.Sprintf("oauth2:state:%s", state)
}

// AuthorizationURL registers the state value and returns the provider URL to
// redirect the user to. The state must be an unguessable value minted by the
// caller (the HTTP layer uses a UUID).
func (s *OAuth2Service) AuthorizationURL(ctx context.Context, provider, redirectURI, state string) (string, error) {
	p, ok := s.providers[provider]
	if !ok {
		return "", fmt.Errorf("%w: unknown provider", ErrOAuth2)
	}
	if state == "" {
		return "", fmt.Errorf("%w: empty state", ErrOAuth2State)
	}

	created, err := s.store.SetNX(ctx, oauth2StateKey(state), redirectURI, oauth2StateTTL)
	if err != nil {
		return "", fmt.Errorf("store oauth2 state: %w", err)
	}
	if !created {
		return "", fmt.Errorf("%w: state already in use", ErrOAuth2State)
	}

	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", p.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("scope", strings.Join(p.Scopes, " "))
	q.Set("state", state)
	return p.AuthURL + "?" + q.Encode(), nil
}

// ConsumeState validates and burns a state value. A second consumption of
// the same state fails, which defeats replayed callbacks.
func (s *OAuth2Service) ConsumeState(ctx context.Context, state, redirectURI string) error {
	raw, err := s.store.Get(ctx, oauth2StateKey(state))
	if err != nil {
		if errors.Is(err, cache.ErrKeyNotFound) {
			return ErrOAuth2State
		}
		return fmt.Errorf("load oauth2 state: %w", err)
	}
	if _, err := s.store.Delete(ctx, oauth2StateKey(state)); err != nil {
		return fmt.Errorf("burn oauth2 state: %w", err)
	}
	if string(raw) != redirectURI {
		return fmt.Errorf("%w: redirect mismatch", ErrOAuth2State)
	}
	return nil
}

// ExchangeCode trades an authorization code for provider tokens.
func (s *OAuth2Service) ExchangeCode(ctx context.Context, provider, code, redirectURI string) (*OAuth2Token, error) {
	p, ok := s.providers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider", ErrOAuth2)
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	form.Set("client_id", p.ClientID)
	form.Set("client_secret", p.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("oauth2: token exchange failed", "provider", provider, "error", err)
		return nil, ErrOAuth2
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("oauth2: provider rejected code exchange",
			"provider", provider, "status", resp.StatusCode, "body", string(body))
		return nil, ErrOAuth2
	}

	var token OAuth2Token
	if err := json.Unmarshal(body, &token); err != nil || token.AccessToken == "" {
		s.logger.Warn("oauth2: malformed token response", "provider", provider, "error", err)
		return nil, ErrOAuth2
	}
	return &token, nil
}

// UserInfo fetches the authenticated user's profile from the provider.
func (s *OAuth2Service) UserInfo(ctx context.Context, provider, accessToken string) (*OAuth2Profile, error) {
	p, ok := s.providers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider", ErrOAuth2)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("oauth2: userinfo fetch failed", "provider", provider, "error", err)
		return nil, ErrOAuth2
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("oauth2: userinfo rejected", "provider", provider, "status", resp.StatusCode)
		return nil, ErrOAuth2
	}

	// Providers disagree on field names; accept the common variants.
	var raw struct {
		Sub           string `json:"sub"`
		ID            string `json:"id"`
		Email         string `json:"email"`
		Name          string `json:"name"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		s.logger.Warn("oauth2: malformed userinfo response", "provider", provider, "error", err)
		return nil, ErrOAuth2
	}

	subject := raw.Sub
	if subject == "" {
		subject = raw.ID
	}
	if subject == "" || raw.Email == "" {
		s.logger.Warn("oauth2: userinfo missing subject or email", "provider", provider)
		return nil, ErrOAuth2
	}

	return &OAuth2Profile{
		Subject:       subject,
		Email:         raw.Email,
		Name:          raw.Name,
		EmailVerified: raw.EmailVerified,
		Provider:      provider,
	}, nil
}
