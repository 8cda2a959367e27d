package models

import (
	"time"
)

// Organization groups users that share projects within a tenant.
type Organization struct {
	OrganizationID string
	TenantID       string
	Title          string // unique per tenant
	IsDefault      bool   // at most one per tenant
	CreatedAt      time.Time
}

// OrganizationUser is the membership edge between a user and an organization.
type OrganizationUser struct {
	OrganizationID string
	UserID         string
	Role           OrganizationRole
	CreatedAt      time.Time
}

// OrganizationSummary is computed on demand and never persisted.
type OrganizationSummary struct {
	ProjectCount int
	UserCount    int
}
