package rbac

// RolePermissions maps operator roles to permissions. Admins can also hit
// the diagnostics surface; plain operators only drive and inspect runs.
var RolePermissions = map[string][]string{
	"admin":    {"*"},
	"operator": {"runs:create", "runs:view"},
}
