package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/usermanager/internal/ids"
	"github.com/wolfeidau/usermanager/internal/models"
)

// Headers trusted only when authentication is disabled.
const (
	DevUserHeader   = "X-User-Id"
	DevTenantHeader = "X-Tenant-Id"
)

// FailureRecorder counts rejected credentials.
type FailureRecorder interface {
	RecordAuthFailure(reason string)
}

// Authenticator resolves the caller of each request into a Principal. API key
// secrets (sk-...) and session JWTs are both accepted as bearer tokens.
type Authenticator struct {
	Keys     *APIKeyResolver
	Sessions *SessionVerifier // optional

	// Disabled trusts the dev headers instead of credentials.
	Disabled      bool
	DevUserID     string
	DevTenantID   string
	PublicPaths   []string
	FailureMetric FailureRecorder
}

// Middleware creates an HTTP middleware that supports both API key and session JWT authentication.
// A request without credentials continues without a principal; handlers decide
// whether that is acceptable. A request with bad credentials is rejected.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		for _, p := range a.PublicPaths {
			if r.URL.Path == p {
				next.ServeHTTP(w, r)
				return
			}
		}

		if a.Disabled {
			p := &Principal{
				UserID:   models.NormalizeUserID(a.DevUserID),
				TenantID: a.DevTenantID,
				Source:   SourceDev,
			}
			if v := r.Header.Get(DevUserHeader); v != "" {
				p.UserID = models.NormalizeUserID(v)
			}
			if v := r.Header.Get(DevTenantHeader); v != "" {
				p.TenantID = v
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, p)))
			return
		}

		token := extractBearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		var (
			principal *Principal
			err       error
			reason    string
		)
		switch {
		case ids.IsSecret(token):
			reason = "api_key"
			principal, err = a.Keys.Resolve(ctx, token)
		case a.Sessions != nil:
			reason = "session"
			principal, err = a.Sessions.Verify(token)
		default:
			reason = "session_disabled"
			err = errors.New("session tokens are not accepted")
		}
		if err != nil {
			log.Debug().Err(err).Str("reason", reason).Msg("Dual auth: credential rejected")
			if a.FailureMetric != nil {
				a.FailureMetric.RecordAuthFailure(reason)
			}
			writeUnauthenticated(w)
			return
		}

		log.Debug().
			Str("user_id", principal.UserID).
			Str("source", string(principal.Source)).
			Msg("Dual auth: authenticated")

		next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
	})
}

// writeUnauthenticated replies in the connect error shape so both REST and rpc
// clients can decode it.
func writeUnauthenticated(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"code":"unauthenticated","message":"invalid credentials"}`))
}

// extractBearerToken extracts the token from the Authorization header.
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return parts[1]
}
