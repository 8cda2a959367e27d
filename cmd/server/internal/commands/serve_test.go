package commands

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"connectrpc.com/connect"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	usersv1 "github.com/wolfeidau/usermanager/api/usersv1"
	"github.com/wolfeidau/usermanager/internal/client"
	httpmiddleware "github.com/wolfeidau/usermanager/internal/http"
	"github.com/wolfeidau/usermanager/internal/store/memory"
)

const seededSecret = "sk-9mV4xB6nC3pR8sW1yZ5dF2gJ7kL9mN4qR6tV8wX3aBcD2eFg"

const seedConfig = `
defaultOrganization:
  title: Default Organization
  tenantId: default-tenant-id
  userIds: [admin]
defaultProject:
  title: Default Project
  kubernetesNamespace: default
defaultApiKeys:
  - name: default-key-secret
    userId: admin
    secretEnv: TEST_USERS_DEFAULT_KEY
`

func newServeCmd(t *testing.T) *ServeCmd {
	t.Helper()
	t.Setenv("TEST_USERS_DEFAULT_KEY", seededSecret)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedConfig), 0600))

	return &ServeCmd{
		Config:          path,
		CORSOrigins:     []string{"http://localhost:3000"},
		APIKeyCacheSize: 16,
		DevUserID:       "admin",
		DevTenantID:     "default-tenant-id",
	}
}

func TestServeHandlers(t *testing.T) {
	ctx := context.Background()
	cmd := newServeCmd(t)

	public, internal, err := cmd.handlers(ctx, memory.NewStore(), zerolog.Nop())
	require.NoError(t, err)

	pub := httptest.NewServer(public)
	t.Cleanup(pub.Close)
	in := httptest.NewServer(internal)
	t.Cleanup(in.Close)

	t.Run("health is public", func(t *testing.T) {
		resp, err := http.Get(pub.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, resp.Header.Get(httpmiddleware.RequestIDHeader))
	})

	t.Run("seeded key authenticates", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, pub.URL+"/v1/users:getSelf", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+seededSecret)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var user usersv1.User
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&user))
		assert.Equal(t, "admin", user.Id)
		require.Len(t, user.OrganizationRoleBindings, 1)
		require.NotEmpty(t, user.ProjectRoleBindings)
	})

	t.Run("missing credentials", func(t *testing.T) {
		resp, err := http.Get(pub.URL + "/v1/organizations")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("cors preflight", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodOptions, pub.URL+"/v1/organizations", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	})

	t.Run("internal gateway under both names", func(t *testing.T) {
		for _, legacy := range []bool{false, true} {
			clients, err := client.NewClients(client.Config{ServerURL: in.URL, LegacyInternal: legacy})
			require.NoError(t, err)

			resp, err := clients.Internal.ListInternalOrganizations(ctx, connect.NewRequest(&usersv1.InternalListRequest{}))
			require.NoError(t, err)
			require.Len(t, resp.Msg.Organizations, 1)
			assert.Equal(t, "default-tenant-id", resp.Msg.Organizations[0].TenantId)
		}
	})
}

func TestServeHandlers_NoAuth(t *testing.T) {
	cmd := newServeCmd(t)
	cmd.NoAuth = true

	public, _, err := cmd.handlers(context.Background(), memory.NewStore(), zerolog.Nop())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	public.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/organizations", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp usersv1.ListOrganizationsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Organizations, 1)
}

func TestServeHandlers_Validation(t *testing.T) {
	ctx := context.Background()

	t.Run("cert without key", func(t *testing.T) {
		cmd := newServeCmd(t)
		cmd.Cert = "cert.pem"
		_, _, err := cmd.handlers(ctx, memory.NewStore(), zerolog.Nop())
		require.Error(t, err)
	})

	t.Run("bad session key", func(t *testing.T) {
		cmd := newServeCmd(t)
		cmd.SessionPublicKey = "not a pem"
		_, _, err := cmd.handlers(ctx, memory.NewStore(), zerolog.Nop())
		require.ErrorContains(t, err, "session public key")
	})

	t.Run("bad config", func(t *testing.T) {
		cmd := newServeCmd(t)
		require.NoError(t, os.WriteFile(cmd.Config, []byte("unknownField: true\n"), 0600))
		_, _, err := cmd.handlers(ctx, memory.NewStore(), zerolog.Nop())
		require.Error(t, err)
	})
}

func TestPostgresStoreFlags_Validate(t *testing.T) {
	require.Error(t, (&PostgresStoreFlags{}).validate())
	require.Error(t, (&PostgresStoreFlags{ConnString: "postgres://x", MinConns: 10, MaxConns: 5}).validate())
	require.NoError(t, (&PostgresStoreFlags{ConnString: "postgres://x", MinConns: 1, MaxConns: 5}).validate())
}
