package domain

import "time"

type AdminID string

type Role string

const (
	RoleModerator  Role = "moderator"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Roles lists every role, most privileged last.
var Roles = []Role{RoleModerator, RoleAdmin, RoleSuperAdmin}

func (r Role) Valid() bool {
	for _, role := range Roles {
		if role == r {
			return true
		}
	}
	return false
}

// Capability is an admin action class checked by route guards.
type Capability string

const (
	CapModerate       Capability = "moderate"
	CapManagePlatform Capability = "manage_platform"
	CapManageAdmins   Capability = "manage_admins"
)

var capabilityRoles = map[Capability][]Role{
	CapModerate:       {RoleModerator, RoleAdmin, RoleSuperAdmin},
	CapManagePlatform: {RoleAdmin, RoleSuperAdmin},
	CapManageAdmins:   {RoleSuperAdmin},
}

// RolesWith returns the roles holding c, in Roles order. Unknown
// capabilities are held by nobody.
func RolesWith(c Capability) []Role {
	roles := capabilityRoles[c]
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

// Can reports whether r holds capability c.
func (r Role) Can(c Capability) bool {
	for _, role := range capabilityRoles[c] {
		if role == r {
			return true
		}
	}
	return false
}

type Admin struct {
	ID           AdminID
	Email        string
	PasswordHash string
	Role         Role
	Permissions  []string
	Status       Status
	LastLogin    *time.Time
	CreatedAt    time.Time
}
