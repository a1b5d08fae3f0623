package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hireloop/platform-core/internal/models"
	"github.com/hireloop/platform-core/internal/monitoring"
	"github.com/hireloop/platform-core/internal/tenant"
	"github.com/hireloop/platform-core/pkg/cache"
	"github.com/hireloop/platform-core/pkg/logger"
)

const (
	DefaultAccessTTL  = 30 * time.Minute
	DefaultRefreshTTL = 30 * 24 * time.Hour
)

// TenantLookup resolves a tenant id to its full record (tier, features,
// overrides). The platform core does not own the tenant directory; callers
// inject whatever resolver their deployment has.
type TenantLookup interface {
	Lookup(ctx context.Context, tenantID string) (*models.Tenant, error)
}

// Config carries the deployment-level auth settings.
type Config struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	BcryptCost int
}

// Service owns the RBAC tables and the token lifecycle. One instance is
// constructed at startup and shared by the request-handling layer.
type Service struct {
	store      cache.ValkeyStore
	logger     logger.Logger
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	bcryptCost int
	tenants    TenantLookup
	cipher     FieldCipher
	now        func() time.Time
}

func NewService(cfg Config, store cache.ValkeyStore, tenants TenantLookup, cipher FieldCipher, log logger.Logger) (*Service, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("auth: signing secret is required")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.BcryptCost <= 0 {
		cfg.BcryptCost = DefaultBcryptCost
	}
	return &Service{
		store:      store,
		logger:     log,
		secret:     []byte(cfg.Secret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		bcryptCost: cfg.BcryptCost,
		tenants:    tenants,
		cipher:     cipher,
		now:        time.Now,
	}, nil
}

type tokenClaims struct {
	jwt.RegisteredClaims
	UserID      string              `json:"user_id"`
	TenantID    string              `json:"tenant_id"`
	Email       string              `json:"email"`
	Roles       []models.Role       `json:"roles"`
	Permissions []models.Permission `json:"permissions"`
	TokenType   models.TokenType    `json:"token_type"`
}

func tokenKey(jti string) string {
	return fmt.Sprintf("auth:token:%s", jti)
}

func userTokensKey(userID string) string {
	return fmt.Sprintf("auth:user:%s:tokens", userID)
}

// GenerateToken issues a signed token for the user and persists its claim
// set server-side under the jti with TTL equal to the validity window, so
// deleting the record revokes the token ahead of its natural expiry.
func (s *Service) GenerateToken(ctx context.Context, user *models.User, tokenType models.TokenType) (string, *models.TokenData, error) {
	ttl := s.accessTTL
	if tokenType == models.TokenTypeRefresh {
		ttl = s.refreshTTL
	}

	now := s.now()
	jti := uuid.NewString()
	permissions := PermissionList(user.Roles)

	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:      user.ID,
		TenantID:    user.TenantID,
		Email:       user.Email,
		Roles:       user.Roles,
		Permissions: permissions,
		TokenType:   tokenType,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}

	data := &models.TokenData{
		UserID:      user.ID,
		TenantID:    user.TenantID,
		Email:       user.Email,
		Roles:       user.Roles,
		Permissions: permissions,
		TokenType:   tokenType,
		ExpiresAt:   now.Add(ttl),
		IssuedAt:    now,
		JTI:         jti,
	}

	if err := s.store.Set(ctx, tokenKey(jti), data, ttl); err != nil {
		return "", nil, fmt.Errorf("persist token record: %w", err)
	}
	if err := s.store.SAdd(ctx, userTokensKey(user.ID), jti); err != nil {
		s.logger.Warn("failed to index token for user", "user_id", user.ID, "error", err)
	}
	// The index only needs to outlive the longest-lived token.
	_ = s.store.Expire(ctx, userTokensKey(user.ID), s.refreshTTL)

	return signed, data, nil
}

// VerifyToken checks signature and expiry first, then requires the jti
// record to still exist server-side. A missing record means the token was
// revoked (or aged out) even when the signature is still valid. The caller
// receives distinct errors for observability; the HTTP layer collapses them
// all into 401.
func (s *Service) VerifyToken(ctx context.Context, tokenString string) (*models.TokenData, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		// Never trust the algorithm claimed inside an unverified token.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		monitoring.RecordAuthAttempt("token", "failure")
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		monitoring.RecordAuthAttempt("token", "failure")
		return nil, ErrTokenInvalid
	}

	raw, err := s.store.Get(ctx, tokenKey(claims.ID))
	if err != nil {
		monitoring.RecordAuthAttempt("token", "failure")
		if errors.Is(err, cache.ErrKeyNotFound) {
			return nil, ErrTokenRevoked
		}
		// Fail closed: without the revocation record we deny.
		s.logger.Error("token verification store lookup failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var data models.TokenData
	if err := json.Unmarshal(raw, &data); err != nil {
		monitoring.RecordAuthAttempt("token", "failure")
		return nil, fmt.Errorf("%w: corrupt token record", ErrTokenInvalid)
	}

	monitoring.RecordAuthAttempt("token", "success")
	return &data, nil
}

// RevokeToken deletes the server-side record for a jti. Revocation takes
// effect immediately regardless of the token's signature expiry.
func (s *Service) RevokeToken(ctx context.Context, jti string) error {
	raw, err := s.store.Get(ctx, tokenKey(jti))
	if err == nil {
		var data models.TokenData
		if json.Unmarshal(raw, &data) == nil && data.UserID != "" {
			_ = s.store.SRem(ctx, userTokensKey(data.UserID), jti)
		}
	}
	if _, err := s.store.Delete(ctx, tokenKey(jti)); err != nil {
		return fmt.Errorf("revoke token %s: %w", jti, err)
	}
	return nil
}

// RevokeAllUserTokens invalidates every outstanding token for the user.
// Tokens of other users are untouched.
func (s *Service) RevokeAllUserTokens(ctx context.Context, userID string) (int, error) {
	jtis, err := s.store.SMembers(ctx, userTokensKey(userID))
	if err != nil {
		return 0, fmt.Errorf("list user tokens: %w", err)
	}
	keys := make([]string, 0, len(jtis)+1)
	for _, jti := range jtis {
		keys = append(keys, tokenKey(jti))
	}
	keys = append(keys, userTokensKey(userID))
	if _, err := s.store.Delete(ctx, keys...); err != nil {
		return 0, fmt.Errorf("revoke user tokens: %w", err)
	}
	return len(jtis), nil
}

// CurrentUser resolves a bearer token to the auth-domain user projection.
// Only access tokens grant API access; refresh tokens are rejected here.
func (s *Service) CurrentUser(ctx context.Context, bearer string) (*models.User, *models.TokenData, error) {
	data, err := s.VerifyToken(ctx, bearer)
	if err != nil {
		return nil, nil, err
	}
	if data.TokenType != models.TokenTypeAccess {
		return nil, nil, fmt.Errorf("%w: refresh token used as access token", ErrTokenInvalid)
	}

	user := &models.User{
		ID:       data.UserID,
		Email:    data.Email,
		TenantID: data.TenantID,
		IsActive: true,
	}
	SetRoles(user, data.Roles)
	return user, data, nil
}

// CurrentTenantUser resolves the bearer token and additionally installs the
// token's tenant as the ambient tenant context of the returned context.
func (s *Service) CurrentTenantUser(ctx context.Context, bearer string) (context.Context, *models.User, error) {
	user, data, err := s.CurrentUser(ctx, bearer)
	if err != nil {
		return ctx, nil, err
	}

	tn := s.resolveTenant(ctx, data.TenantID)
	return tenant.WithTenant(ctx, tn), user, nil
}

func (s *Service) resolveTenant(ctx context.Context, tenantID string) *models.Tenant {
	if s.tenants != nil {
		if tn, err := s.tenants.Lookup(ctx, tenantID); err == nil && tn != nil {
			return tn
		} else if err != nil {
			s.logger.Warn("tenant lookup failed, using minimal tenant", "tenant_id", tenantID, "error", err)
		}
	}
	return &models.Tenant{ID: tenantID, Tier: models.TierBasic}
}

// RequirePermission fails with ErrPermissionDenied when the user's derived
// permission set lacks p. The error does not name the missing permission.
func RequirePermission(user *models.User, p models.Permission) error {
	if user == nil || !user.HasPermission(p) {
		return ErrPermissionDenied
	}
	return nil
}

// RequireRole fails with ErrRoleRequired when the user does not carry r.
func RequireRole(user *models.User, r models.Role) error {
	if user == nil || !user.HasRole(r) {
		return ErrRoleRequired
	}
	return nil
}
