package client

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/usermanager/api/usersv1"
	"github.com/wolfeidau/usermanager/internal/auth"
	"github.com/wolfeidau/usermanager/internal/config"
	"github.com/wolfeidau/usermanager/internal/server"
	"github.com/wolfeidau/usermanager/internal/store/memory"
)

const testSecret = "sk-4kR7vN2pQ9sT3wX6zB8cD1fG5hJ2kL7mN9pQ3rS6tV8wX1yZ"

type testServer struct {
	url           string
	signingKeyPEM string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	st := memory.NewStore()
	srv := server.NewUsersServer(st)

	org, err := srv.EnsureDefaultOrganization(ctx, &config.DefaultOrganization{
		Title: "Default", TenantID: "t1", UserIDs: []string{"admin"},
	})
	require.NoError(t, err)
	_, err = srv.EnsureDefaultAPIKey(ctx, &config.DefaultAPIKey{Name: "admin", UserID: "admin", Secret: testSecret}, org, nil)
	require.NoError(t, err)

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	privDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	sessions, err := auth.NewSessionVerifierFromPEM(string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})))
	require.NoError(t, err)

	authn := &auth.Authenticator{
		Keys:     auth.NewAPIKeyResolver(st, auth.APIKeyResolverConfig{}),
		Sessions: sessions,
	}
	ts := httptest.NewServer(authn.Middleware(srv.Handler(zerolog.Nop())))
	t.Cleanup(ts.Close)

	return &testServer{
		url:           ts.URL,
		signingKeyPEM: string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: privDER})),
	}
}

func newUsersClient(t *testing.T, url string, source TokenSource) *Clients {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ServerURL = url
	clients, err := NewClients(cfg, connect.WithInterceptors(NewBearerInterceptor(source)))
	require.NoError(t, err)
	return clients
}

func TestBearerInterceptor_APIKey(t *testing.T) {
	ts := newTestServer(t)
	clients := newUsersClient(t, ts.url, StaticToken(testSecret))

	resp, err := clients.Users.GetUserSelf(context.Background(), connect.NewRequest(&usersv1.GetUserSelfRequest{}))
	require.NoError(t, err)
	require.Equal(t, "admin", resp.Msg.Id)
	require.Len(t, resp.Msg.OrganizationRoleBindings, 1)
}

func TestBearerInterceptor_Session(t *testing.T) {
	ts := newTestServer(t)

	calls := 0
	session := SessionTokenSource(ts.signingKeyPEM, "admin", "t1", time.Hour)
	clients := newUsersClient(t, ts.url, func() (string, time.Time, error) {
		calls++
		return session()
	})

	for range 3 {
		resp, err := clients.Users.ListOrganizations(context.Background(), connect.NewRequest(&usersv1.ListOrganizationsRequest{}))
		require.NoError(t, err)
		require.Len(t, resp.Msg.Organizations, 1)
	}
	require.Equal(t, 1, calls, "token should be cached")
}

func TestBearerInterceptor_ShortLivedTokensRefresh(t *testing.T) {
	ts := newTestServer(t)

	calls := 0
	session := SessionTokenSource(ts.signingKeyPEM, "admin", "t1", time.Minute)
	clients := newUsersClient(t, ts.url, func() (string, time.Time, error) {
		calls++
		return session()
	})

	for range 2 {
		_, err := clients.Users.GetUserSelf(context.Background(), connect.NewRequest(&usersv1.GetUserSelfRequest{}))
		require.NoError(t, err)
	}
	require.Equal(t, 2, calls)
}

func TestBearerInterceptor_Errors(t *testing.T) {
	ts := newTestServer(t)

	t.Run("missing credential", func(t *testing.T) {
		clients := newUsersClient(t, ts.url, StaticToken(""))
		_, err := clients.Users.GetUserSelf(context.Background(), connect.NewRequest(&usersv1.GetUserSelfRequest{}))
		require.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})

	t.Run("revoked key", func(t *testing.T) {
		clients := newUsersClient(t, ts.url, StaticToken("sk-notarealkey"))
		_, err := clients.Users.GetUserSelf(context.Background(), connect.NewRequest(&usersv1.GetUserSelfRequest{}))
		require.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})
}

func TestNewClients(t *testing.T) {
	_, err := NewClients(Config{})
	require.Error(t, err)

	_, err = NewClients(Config{ServerURL: "localhost:8080"})
	require.Error(t, err)

	clients, err := NewClients(Config{ServerURL: "http://localhost:8080", LegacyInternal: true})
	require.NoError(t, err)
	require.NotNil(t, clients.Users)
	require.NotNil(t, clients.Internal)
}
