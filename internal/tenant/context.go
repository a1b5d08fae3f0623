// Package tenant carries the ambient tenant identity through call chains.
//
// The current tenant rides the request's context.Context, which makes the
// value request-scoped by construction: concurrent requests can never observe
// each other's tenant, and the value is released with the request context, so
// there is nothing to clear on error paths.
package tenant

import (
	"context"
	"errors"

	"github.com/hireloop/platform-core/internal/models"
)

// ErrNoTenant indicates an operation that requires ambient tenant context ran
// without one. This is a caller bug (missing middleware), not a user error.
var ErrNoTenant = errors.New("tenant context required but not set")

type contextKey struct{}

// WithTenant returns a child context carrying t as the ambient tenant.
func WithTenant(ctx context.Context, t *models.Tenant) context.Context {
	return context.WithValue(ctx, contextKey{}, t)
}

// FromContext returns the ambient tenant, if one is set.
func FromContext(ctx context.Context) (*models.Tenant, bool) {
	t, ok := ctx.Value(contextKey{}).(*models.Tenant)
	if !ok || t == nil {
		return nil, false
	}
	return t, true
}

// Require returns the ambient tenant or ErrNoTenant.
func Require(ctx context.Context) (*models.Tenant, error) {
	t, ok := FromContext(ctx)
	if !ok {
		return nil, ErrNoTenant
	}
	return t, nil
}

// ID returns the ambient tenant id, or "" when none is set.
func ID(ctx context.Context) string {
	t, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return t.ID
}

// RequireFunc wraps an operation so it fails fast with ErrNoTenant before the
// body runs when no tenant is installed.
func RequireFunc(fn func(ctx context.Context, t *models.Tenant) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		t, err := Require(ctx)
		if err != nil {
			return err
		}
		return fn(ctx, t)
	}
}
