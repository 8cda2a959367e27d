package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"connectrpc.com/connect"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/usermanager/internal/auth"
)

// refreshBefore is how long before expiry a cached token is replaced.
const refreshBefore = 5 * time.Minute

// TokenSource returns a bearer token and its expiry. A zero expiry never expires.
type TokenSource func() (token string, expiry time.Time, err error)

// StaticToken returns a source for a long lived credential such as an API key.
func StaticToken(token string) TokenSource {
	return func() (string, time.Time, error) {
		if token == "" {
			return "", time.Time{}, errors.New("no credential configured")
		}
		return token, time.Time{}, nil
	}
}

// SessionTokenSource mints session tokens signed with signingKeyPEM.
func SessionTokenSource(signingKeyPEM, userID, tenantID string, ttl time.Duration) TokenSource {
	return func() (string, time.Time, error) {
		expiry := time.Now().Add(ttl)
		token, err := auth.IssueSessionToken(signingKeyPEM, userID, tenantID, ttl)
		if err != nil {
			return "", time.Time{}, err
		}
		return token, expiry, nil
	}
}

// BearerInterceptor adds an Authorization header to rpc requests.
type BearerInterceptor struct {
	source TokenSource

	// Token caching
	mu          sync.RWMutex
	cachedToken string
	tokenExpiry time.Time
}

// NewBearerInterceptor creates an interceptor that authenticates requests with
// tokens from source.
func NewBearerInterceptor(source TokenSource) *BearerInterceptor {
	return &BearerInterceptor{source: source}
}

// WrapUnary implements connect.UnaryInterceptorFunc.
func (i *BearerInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		token, err := i.getToken()
		if err != nil {
			return nil, connect.NewError(connect.CodeUnauthenticated, err)
		}
		req.Header().Set("Authorization", "Bearer "+token)
		return next(ctx, req)
	}
}

// WrapStreamingClient implements connect.StreamingClientInterceptorFunc.
func (i *BearerInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return func(ctx context.Context, spec connect.Spec) connect.StreamingClientConn {
		conn := next(ctx, spec)
		token, err := i.getToken()
		if err != nil {
			log.Error().Err(err).Msg("Failed to add auth header to streaming request")
			return conn
		}
		conn.RequestHeader().Set("Authorization", "Bearer "+token)
		return conn
	}
}

// WrapStreamingHandler is not used for client interceptors.
func (i *BearerInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}

func (i *BearerInterceptor) valid(now time.Time) bool {
	if i.cachedToken == "" {
		return false
	}
	return i.tokenExpiry.IsZero() || now.Add(refreshBefore).Before(i.tokenExpiry)
}

// getToken returns a cached token or fetches a new one.
func (i *BearerInterceptor) getToken() (string, error) {
	i.mu.RLock()
	if i.valid(time.Now()) {
		token := i.cachedToken
		i.mu.RUnlock()
		return token, nil
	}
	i.mu.RUnlock()

	i.mu.Lock()
	defer i.mu.Unlock()

	// Double-check after acquiring write lock
	if i.valid(time.Now()) {
		return i.cachedToken, nil
	}

	token, expiry, err := i.source()
	if err != nil {
		return "", err
	}

	i.cachedToken = token
	i.tokenExpiry = expiry

	log.Debug().
		Time("expiry", i.tokenExpiry).
		Msg("cached new bearer token")

	return token, nil
}
