package models

import (
	"time"
)

// APIKey is a long-lived credential scoped to an organization and optionally a project.
// The plaintext secret is never stored; only its hash and a display hint are kept.
type APIKey struct {
	APIKeyID       string
	TenantID       string
	Name           string // unique per tenant
	UserID         string
	OrganizationID string
	ProjectID      string // empty for organization-scoped keys

	// Role snapshot captured at issuance. Not updated when memberships change.
	OrganizationRole OrganizationRole
	ProjectRole      ProjectRole

	SecretHash string // hex sha256 of the secret
	SecretHint string // obfuscated secret for display

	IsServiceAccount         bool
	ExcludedFromRateLimiting bool

	CreatedAt time.Time
}
