package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrganizationRole(t *testing.T) {
	tests := []struct {
		role  OrganizationRole
		valid bool
		rank  int
	}{
		{OrganizationRoleUnspecified, false, 0},
		{OrganizationRoleReader, true, 1},
		{OrganizationRoleOwner, true, 2},
		{OrganizationRoleTenantSystem, true, 3},
		{OrganizationRole("ADMIN"), false, 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.role.Valid())
			assert.Equal(t, tt.rank, tt.role.Rank())
		})
	}

	assert.True(t, OrganizationRoleOwner.AtLeast(OrganizationRoleReader))
	assert.False(t, OrganizationRoleReader.AtLeast(OrganizationRoleOwner))
	assert.True(t, OrganizationRoleTenantSystem.AtLeast(OrganizationRoleOwner))
}

func TestProjectRole(t *testing.T) {
	assert.True(t, ProjectRoleOwner.Valid())
	assert.True(t, ProjectRoleMember.Valid())
	assert.False(t, ProjectRoleUnspecified.Valid())

	assert.True(t, ProjectRoleOwner.AtLeast(ProjectRoleMember))
	assert.False(t, ProjectRoleMember.AtLeast(ProjectRoleOwner))
	assert.True(t, ProjectRoleMember.AtLeast(ProjectRoleUnspecified))
}

func TestNormalizeUserID(t *testing.T) {
	assert.Equal(t, "alice@example.com", NormalizeUserID("  Alice@Example.COM "))
	assert.Empty(t, NormalizeUserID("   "))
}
