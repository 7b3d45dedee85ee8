package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRolesWith(t *testing.T) {
	assert.Equal(t, []Role{RoleModerator, RoleAdmin, RoleSuperAdmin}, RolesWith(CapModerate))
	assert.Equal(t, []Role{RoleAdmin, RoleSuperAdmin}, RolesWith(CapManagePlatform))
	assert.Equal(t, []Role{RoleSuperAdmin}, RolesWith(CapManageAdmins))
	assert.Empty(t, RolesWith(Capability("launch_missiles")))
}

func TestRolesWith_ReturnsCopy(t *testing.T) {
	roles := RolesWith(CapManageAdmins)
	roles[0] = RoleModerator
	assert.Equal(t, []Role{RoleSuperAdmin}, RolesWith(CapManageAdmins))
}

func TestRole_Can(t *testing.T) {
	assert.True(t, RoleModerator.Can(CapModerate))
	assert.False(t, RoleModerator.Can(CapManagePlatform))
	assert.True(t, RoleAdmin.Can(CapManagePlatform))
	assert.False(t, RoleAdmin.Can(CapManageAdmins))
	assert.True(t, RoleSuperAdmin.Can(CapManageAdmins))
	assert.False(t, Role("guest").Can(CapModerate))
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleSuperAdmin.Valid())
	assert.False(t, Role("owner").Valid())
}

func TestStatus_IsActive(t *testing.T) {
	assert.True(t, StatusActive.IsActive())
	assert.False(t, StatusSuspended.IsActive())
	assert.False(t, StatusBanned.IsActive())
}
