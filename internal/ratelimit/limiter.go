package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hireloop/platform-core/internal/models"
	"github.com/hireloop/platform-core/internal/monitoring"
	"github.com/hireloop/platform-core/internal/tenant"
	"github.com/hireloop/platform-core/pkg/cache"
	"github.com/hireloop/platform-core/pkg/logger"
)

// Limit types surfaced in the X-RateLimit-Type header.
const (
	TypeWindow = "window"
	TypeBurst  = "burst"
	TypeExempt = "exempt"
	TypeBypass = "bypass"
)

// RateLimit is one resolved policy: steady-state limit per window plus a
// burst allowance on top.
type RateLimit struct {
	Limit      int           `json:"limit"`
	Window     time.Duration `json:"window"`
	BurstLimit int           `json:"burst_limit"`
}

// Decision is the outcome of one admission check. All fields are populated
// whether the request is allowed or not, so clients can back off
// deterministically.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	Reset      time.Time
	Window     time.Duration
	Type       string
	RetryAfter time.Duration
}

// Tier defaults: hourly global limits scaling with subscription level.
var tierDefaults = map[models.SubscriptionTier]RateLimit{
	models.TierBasic:        {Limit: 1_000, Window: time.Hour, BurstLimit: 50},
	models.TierProfessional: {Limit: 5_000, Window: time.Hour, BurstLimit: 250},
	models.TierEnterprise:   {Limit: 50_000, Window: time.Hour, BurstLimit: 2_500},
}

// Limiter performs tenant- and endpoint-aware admission control against the
// shared key-value store. Counters are correct across replicas because every
// increment is a single atomic store round trip.
type Limiter struct {
	store       cache.ValkeyStore
	logger      logger.Logger
	endpoints   map[string]RateLimit
	users       map[string]RateLimit
	exemptPaths []string
	now         func() time.Time
}

// Config carries the deployment's rate limit policy tables.
type Config struct {
	// EndpointLimits maps a path prefix (e.g. "/api/v1/auth/login") to a
	// policy tighter or looser than the tier default.
	EndpointLimits map[string]RateLimit
	// UserLimits maps a user id to a dedicated policy. Takes precedence
	// over everything else.
	UserLimits map[string]RateLimit
	// ExemptPaths are never rate limited. Health, metrics, and docs paths
	// are always included.
	ExemptPaths []string
}

var alwaysExempt = []string{"/health", "/ready", "/metrics", "/swagger", "/api/openapi"}

func NewLimiter(cfg Config, store cache.ValkeyStore, log logger.Logger) *Limiter {
	endpoints := make(map[string]RateLimit, len(cfg.EndpointLimits))
	for path, rl := range cfg.EndpointLimits {
		endpoints[path] = rl
	}
	users := make(map[string]RateLimit, len(cfg.UserLimits))
	for id, rl := range cfg.UserLimits {
		users[id] = rl
	}
	return &Limiter{
		store:       store,
		logger:      log,
		endpoints:   endpoints,
		users:       users,
		exemptPaths: append(append([]string{}, alwaysExempt...), cfg.ExemptPaths...),
		now:         time.Now,
	}
}

// Exempt reports whether the path skips rate limiting entirely.
func (l *Limiter) Exempt(path string) bool {
	for _, prefix := range l.exemptPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// resolve picks the applicable policy: user override, then endpoint policy,
// then the tenant's tier default.
func (l *Limiter) resolve(tn *models.Tenant, endpoint, userID string) (RateLimit, string) {
	if userID != "" {
		if rl, ok := l.users[userID]; ok {
			return rl, "user"
		}
	}
	for prefix, rl := range l.endpoints {
		if strings.HasPrefix(endpoint, prefix) {
			return rl, "endpoint"
		}
	}
	rl, ok := tierDefaults[tn.Tier]
	if !ok {
		rl = tierDefaults[models.TierBasic]
	}
	// Tenant-level overrides replace the tier's steady-state limit only.
	if override, ok := tn.RateLimits["global"]; ok && override > 0 {
		rl.Limit = override
	}
	return rl, "tier"
}

func windowKey(tenantID, endpoint, userID string, windowStart int64) string {
	if userID != "" {
		return fmt.Sprintf("ratelimit:%s:%s:%s:%d", tenantID, endpoint, userID, windowStart)
	}
	return fmt.Sprintf("ratelimit:%s:%s:%d", tenantID, endpoint, windowStart)
}

func bucketKey(tenantID, endpoint, userID string) string {
	if userID != "" {
		return fmt.Sprintf("ratelimit:bucket:%s:%s:%s", tenantID, endpoint, userID)
	}
	return fmt.Sprintf("ratelimit:bucket:%s:%s", tenantID, endpoint)
}

type bucketState struct {
	Tokens     float64 `json:"tokens"`
	LastRefill int64   `json:"last_refill"` // unix seconds
}

// Check admits or throttles one request. The tenant comes from the ambient
// context; requests with no tenant bypass this limiter and are expected to be
// throttled by a coarser public-traffic layer in front (deliberate policy,
// not an oversight). Store unavailability fails open with a warning:
// availability wins over strict quota enforcement here, unlike auth.
func (l *Limiter) Check(ctx context.Context, endpoint, userID string) Decision {
	now := l.now()

	if l.Exempt(endpoint) {
		monitoring.RecordRateLimitDecision(TypeExempt, true)
		return Decision{Allowed: true, Type: TypeExempt}
	}

	tn, ok := tenant.FromContext(ctx)
	if !ok {
		monitoring.RecordRateLimitDecision(TypeBypass, true)
		return Decision{Allowed: true, Type: TypeBypass}
	}

	rl, _ := l.resolve(tn, endpoint, userID)
	windowSecs := int64(rl.Window / time.Second)
	windowStart := now.Unix() - (now.Unix() % windowSecs)
	reset := time.Unix(windowStart+windowSecs, 0)

	count, err := l.store.IncrWindow(ctx, windowKey(tn.ID, endpoint, userID, windowStart), 2*rl.Window)
	if err != nil {
		l.logger.Warn("rate limit store unavailable, failing open",
			"tenant_id", tn.ID, "endpoint", endpoint, "error", err)
		monitoring.RecordRateLimitDecision(TypeWindow, true)
		return Decision{
			Allowed: true, Limit: rl.Limit, Remaining: rl.Limit,
			Reset: reset, Window: rl.Window, Type: TypeWindow,
		}
	}

	if count <= int64(rl.Limit) {
		monitoring.RecordRateLimitDecision(TypeWindow, true)
		return Decision{
			Allowed:   true,
			Limit:     rl.Limit,
			Remaining: rl.Limit - int(count),
			Reset:     reset,
			Window:    rl.Window,
			Type:      TypeWindow,
		}
	}

	// Steady-state window exhausted; spend a burst token if one is left.
	if l.takeBurstToken(ctx, tn.ID, endpoint, userID, rl, now) {
		monitoring.RecordRateLimitDecision(TypeBurst, true)
		return Decision{
			Allowed:   true,
			Limit:     rl.Limit,
			Remaining: 0,
			Reset:     reset,
			Window:    rl.Window,
			Type:      TypeBurst,
		}
	}

	monitoring.RecordRateLimitDecision(TypeWindow, false)
	retryAfter := reset.Sub(now)
	if refill := time.Duration(float64(rl.Window) / float64(rl.Limit)); refill < retryAfter {
		// A burst token refills sooner than the window resets.
		retryAfter = refill
	}
	if retryAfter < time.Second {
		retryAfter = time.Second
	}
	return Decision{
		Allowed:    false,
		Limit:      rl.Limit,
		Remaining:  0,
		Reset:      reset,
		Window:     rl.Window,
		Type:       TypeWindow,
		RetryAfter: retryAfter,
	}
}

// takeBurstToken refills and decrements the token bucket for the scope.
// The read-modify-write is not atomic; under extreme contention the bucket
// may over-admit slightly, which is the accepted failure direction. Tokens
// never go negative and never exceed the burst cap.
func (l *Limiter) takeBurstToken(ctx context.Context, tenantID, endpoint, userID string, rl RateLimit, now time.Time) bool {
	if rl.BurstLimit <= 0 {
		return false
	}
	key := bucketKey(tenantID, endpoint, userID)

	state := bucketState{Tokens: float64(rl.BurstLimit), LastRefill: now.Unix()}
	raw, err := l.store.Get(ctx, key)
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(raw, &state); jsonErr != nil {
			l.logger.Warn("corrupt token bucket, resetting", "key", key, "error", jsonErr)
			state = bucketState{Tokens: float64(rl.BurstLimit), LastRefill: now.Unix()}
		}
	case errors.Is(err, cache.ErrKeyNotFound):
		// Fresh bucket starts full.
	default:
		l.logger.Warn("token bucket store unavailable, failing open", "key", key, "error", err)
		return true
	}

	elapsed := float64(now.Unix() - state.LastRefill)
	if elapsed > 0 {
		refillRate := float64(rl.Limit) / rl.Window.Seconds()
		state.Tokens += elapsed * refillRate
		if max := float64(rl.BurstLimit); state.Tokens > max {
			state.Tokens = max
		}
		state.LastRefill = now.Unix()
	}

	if state.Tokens < 1 {
		if err := l.store.Set(ctx, key, state, 2*rl.Window); err != nil {
			l.logger.Warn("token bucket write failed", "key", key, "error", err)
		}
		return false
	}

	state.Tokens--
	if err := l.store.Set(ctx, key, state, 2*rl.Window); err != nil {
		l.logger.Warn("token bucket write failed", "key", key, "error", err)
	}
	return true
}
