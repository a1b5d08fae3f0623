package auth

import (
	"sort"

	"github.com/hireloop/platform-core/internal/models"
)

// allPermissions enumerates every permission the platform knows about.
// RoleSuperAdmin is defined as this full set, so any permission added here
// is granted to it automatically.
var allPermissions = []models.Permission{
	models.PermReadJobs,
	models.PermWriteJobs,
	models.PermReadApplications,
	models.PermWriteApplications,
	models.PermReadUsers,
	models.PermWriteUsers,
	models.PermManageTenants,
	models.PermManageBilling,
	models.PermManageIntegrations,
	models.PermViewAnalytics,
	models.PermManageCache,
	models.PermViewAuditLog,
}

// RolePermissions is the static role to permission-set mapping.
var RolePermissions = map[models.Role][]models.Permission{
	models.RoleSuperAdmin: allPermissions,
	models.RoleTenantAdmin: {
		models.PermReadJobs,
		models.PermWriteJobs,
		models.PermReadApplications,
		models.PermWriteApplications,
		models.PermReadUsers,
		models.PermWriteUsers,
		models.PermManageIntegrations,
		models.PermViewAnalytics,
		models.PermManageCache,
		models.PermViewAuditLog,
	},
	models.RoleRecruiter: {
		models.PermReadJobs,
		models.PermWriteJobs,
		models.PermReadApplications,
		models.PermWriteApplications,
		models.PermViewAnalytics,
	},
	models.RoleHiringManager: {
		models.PermReadJobs,
		models.PermReadApplications,
		models.PermWriteApplications,
		models.PermViewAnalytics,
	},
	models.RoleJobSeeker: {
		models.PermReadJobs,
	},
	models.RoleViewer: {
		models.PermReadJobs,
		models.PermReadApplications,
	},
}

// PermissionsForRoles derives the permission set as the union of each role's
// entry in RolePermissions. Unknown roles contribute nothing.
func PermissionsForRoles(roles []models.Role) map[models.Permission]struct{} {
	perms := make(map[models.Permission]struct{})
	for _, role := range roles {
		for _, p := range RolePermissions[role] {
			perms[p] = struct{}{}
		}
	}
	return perms
}

// PermissionList returns the derived permissions in stable order, for token
// claims and API responses.
func PermissionList(roles []models.Role) []models.Permission {
	set := PermissionsForRoles(roles)
	out := make([]models.Permission, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SetRoles replaces the user's roles and recomputes the derived permission
// set, so no stale entries survive a role change.
func SetRoles(u *models.User, roles []models.Role) {
	u.Roles = roles
	u.Permissions = PermissionsForRoles(roles)
}
