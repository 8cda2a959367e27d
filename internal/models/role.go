package models

// OrganizationRole is the role a user holds within an organization.
type OrganizationRole string

const (
	OrganizationRoleUnspecified  OrganizationRole = "ORGANIZATION_ROLE_UNSPECIFIED"
	OrganizationRoleOwner        OrganizationRole = "ORGANIZATION_ROLE_OWNER"
	OrganizationRoleReader       OrganizationRole = "ORGANIZATION_ROLE_READER"
	OrganizationRoleTenantSystem OrganizationRole = "ORGANIZATION_ROLE_TENANT_SYSTEM"
)

// Valid reports whether r is an assignable organization role.
func (r OrganizationRole) Valid() bool {
	switch r {
	case OrganizationRoleOwner, OrganizationRoleReader, OrganizationRoleTenantSystem:
		return true
	}
	return false
}

// Rank orders organization roles by privilege. Unknown roles rank zero.
func (r OrganizationRole) Rank() int {
	switch r {
	case OrganizationRoleReader:
		return 1
	case OrganizationRoleOwner:
		return 2
	case OrganizationRoleTenantSystem:
		return 3
	}
	return 0
}

// AtLeast reports whether r grants at least the privileges of other.
func (r OrganizationRole) AtLeast(other OrganizationRole) bool {
	return r.Rank() >= other.Rank()
}

// ProjectRole is the role a user holds within a project.
type ProjectRole string

const (
	ProjectRoleUnspecified ProjectRole = "PROJECT_ROLE_UNSPECIFIED"
	ProjectRoleOwner       ProjectRole = "PROJECT_ROLE_OWNER"
	ProjectRoleMember      ProjectRole = "PROJECT_ROLE_MEMBER"
)

// Valid reports whether r is an assignable project role.
func (r ProjectRole) Valid() bool {
	return r == ProjectRoleOwner || r == ProjectRoleMember
}

// Rank orders project roles by privilege. Unknown roles rank zero.
func (r ProjectRole) Rank() int {
	switch r {
	case ProjectRoleMember:
		return 1
	case ProjectRoleOwner:
		return 2
	}
	return 0
}

// AtLeast reports whether r grants at least the privileges of other.
func (r ProjectRole) AtLeast(other ProjectRole) bool {
	return r.Rank() >= other.Rank()
}
