package auth

import (
	"context"
	"errors"

	"connectrpc.com/connect"
)

// Source records how a principal was authenticated.
type Source string

const (
	SourceAPIKey  Source = "api_key"
	SourceSession Source = "session"
	SourceDev     Source = "dev"
)

// Principal is the authenticated caller. It is resolved once per request by the
// Authenticator and threaded through the request context.
type Principal struct {
	UserID   string
	TenantID string
	Source   Source

	// Set when the caller presented an API key.
	APIKeyID                 string
	IsServiceAccount         bool
	ExcludedFromRateLimiting bool
}

type contextKey int

const (
	principalContextKey contextKey = iota
)

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext extracts the authenticated principal from the request context.
// Returns nil if no principal is present (unauthenticated request).
func PrincipalFromContext(ctx context.Context) *Principal {
	principal, _ := ctx.Value(principalContextKey).(*Principal)
	return principal
}

// RequirePrincipal returns the principal or a connect UNAUTHENTICATED error.
func RequirePrincipal(ctx context.Context) (*Principal, error) {
	p := PrincipalFromContext(ctx)
	if p == nil || p.UserID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("not authenticated"))
	}
	return p, nil
}
