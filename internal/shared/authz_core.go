package shared

// Core admin permissions.
const (
	PermUserRead   = "user:read"
	PermUserCreate = "user:create"
	PermUserUpdate = "user:update"
	PermUserDelete = "user:delete"

	PermRoleRead  = "role:read"
	PermRoleWrite = "role:write"

	PermPermissionRead  = "permission:read"
	PermPermissionWrite = "permission:write"

	PermMenuRead = "menu:read"

	PermSystemMetrics = "system:metrics"
)

// CoreScopes lists all permissions related to the admin platform.
func CoreScopes() []string {
	return []string{
		PermUserRead,
		PermUserCreate,
		PermUserUpdate,
		PermUserDelete,
		PermRoleRead,
		PermRoleWrite,
		PermPermissionRead,
		PermPermissionWrite,
		PermMenuRead,
		PermSystemMetrics,
	}
}
