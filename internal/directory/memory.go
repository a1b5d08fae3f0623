// Package directory provides in-process user and tenant directories. The
// platform core treats both directories as external collaborators; these
// implementations back development deployments and tests, and define the
// reference behavior a SQL- or IdP-backed directory must match.
package directory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/hireloop/platform-core/internal/models"
)

// ErrTenantNotFound is returned for unknown tenant ids.
var ErrTenantNotFound = errors.New("tenant not found")

type userRecord struct {
	user         models.User
	passwordHash string
}

// MemoryDirectory is a concurrency-safe in-memory user directory.
type MemoryDirectory struct {
	mu    sync.RWMutex
	users map[string]userRecord // lowercased email -> record
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{users: make(map[string]userRecord)}
}

// AddUser registers or replaces a user. The password hash is stored as
// given; hashing is the caller's job.
func (d *MemoryDirectory) AddUser(user *models.User, passwordHash string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[strings.ToLower(user.Email)] = userRecord{user: *user, passwordHash: passwordHash}
}

// FindByEmail looks a user up case-insensitively. Returns a copy so callers
// cannot mutate directory state.
func (d *MemoryDirectory) FindByEmail(ctx context.Context, email string) (*models.User, string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	record, ok := d.users[strings.ToLower(email)]
	if !ok {
		return nil, "", models.ErrUserNotFound
	}
	user := record.user
	return &user, record.passwordHash, nil
}

// MemoryTenantDirectory is a concurrency-safe in-memory tenant registry.
type MemoryTenantDirectory struct {
	mu      sync.RWMutex
	tenants map[string]models.Tenant
}

func NewMemoryTenantDirectory() *MemoryTenantDirectory {
	return &MemoryTenantDirectory{tenants: make(map[string]models.Tenant)}
}

func (d *MemoryTenantDirectory) AddTenant(tn *models.Tenant) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tenants[tn.ID] = *tn
}

// Lookup resolves a tenant id to its full record.
func (d *MemoryTenantDirectory) Lookup(ctx context.Context, tenantID string) (*models.Tenant, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	tn, ok := d.tenants[tenantID]
	if !ok {
		return nil, ErrTenantNotFound
	}
	return &tn, nil
}
