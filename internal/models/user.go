package models

import (
	"strings"
	"time"
)

// User is an identity known to a tenant. Role bindings are never stored on the
// user; they are derived from OrganizationUser and ProjectUser rows on read.
type User struct {
	UserID           string // public id, always lower case
	TenantID         string
	InternalUserID   string // UUIDv7
	IsServiceAccount bool
	Hidden           bool
	CreatedAt        time.Time
}

// OrganizationRoleBinding is a derived view of an OrganizationUser row.
type OrganizationRoleBinding struct {
	OrganizationID string
	Role           OrganizationRole
}

// ProjectRoleBinding is a derived view of a ProjectUser row.
type ProjectRoleBinding struct {
	OrganizationID string
	ProjectID      string
	Role           ProjectRole
}

// NormalizeUserID canonicalises a user id supplied by a caller.
func NormalizeUserID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
