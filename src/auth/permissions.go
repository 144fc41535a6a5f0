package auth

// Permissions checked by the HTTP layer.
const (
	PermBuildRead    = "build:read"
	PermBuildTrigger = "build:trigger"
	PermUserManage   = "user:manage"
)

// Roles.
const (
	RoleAdmin  = "admin"
	RoleUser   = "user"
	RoleViewer = "viewer"
)

// RolePermissions maps each role to what it may do.
var RolePermissions = map[string][]string{
	RoleAdmin:  {PermBuildRead, PermBuildTrigger, PermUserManage},
	RoleUser:   {PermBuildRead, PermBuildTrigger},
	RoleViewer: {PermBuildRead},
}

// HasPermission reports whether role grants any of perms.
func HasPermission(role string, perms ...string) bool {
	for _, granted := range RolePermissions[role] {
		for _, p := range perms {
			if granted == p {
				return true
			}
		}
	}
	return false
}

// CanSeeJob reports whether claims allow viewing job. Admins and users without
// a pipeline list see everything.
func (c *Claims) CanSeeJob(job string) bool {
	if c == nil {
		return false
	}
	if c.Role == RoleAdmin || len(c.Pipelines) == 0 {
		return true
	}
	for _, p := range c.Pipelines {
		if p == job {
			return true
		}
	}
	return false
}
