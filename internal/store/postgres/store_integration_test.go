//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/wolfeidau/usermanager/internal/models"
	"github.com/wolfeidau/usermanager/internal/store"
)

func setupPostgresContainer(t *testing.T, ctx context.Context) (*Store, func()) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connString := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	st, err := NewStore(ctx, &Config{
		Pool:        PoolConfig{ConnString: connString, MinConns: 1, MaxConns: 4},
		AutoMigrate: true,
	})
	require.NoError(t, err)
	require.NoError(t, st.Start())

	cleanup := func() {
		_ = st.Stop()
		_ = container.Terminate(ctx)
	}

	return st, cleanup
}

func TestIntegration_Organizations(t *testing.T) {
	ctx := context.Background()
	st, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	now := time.Now().UTC().Truncate(time.Microsecond)

	org := &models.Organization{OrganizationID: "org-1", TenantID: "t1", Title: "Acme", IsDefault: true, CreatedAt: now}
	require.NoError(t, st.CreateOrganization(ctx, org))

	t.Run("duplicate title", func(t *testing.T) {
		err := st.CreateOrganization(ctx, &models.Organization{OrganizationID: "org-2", TenantID: "t1", Title: "Acme", CreatedAt: now})
		require.ErrorIs(t, err, store.ErrOrganizationAlreadyExists)
	})

	t.Run("second default", func(t *testing.T) {
		err := st.CreateOrganization(ctx, &models.Organization{OrganizationID: "org-3", TenantID: "t1", Title: "Other", IsDefault: true, CreatedAt: now})
		require.ErrorIs(t, err, store.ErrOrganizationAlreadyExists)
	})

	t.Run("tenant scoped get", func(t *testing.T) {
		got, err := st.GetOrganization(ctx, "t1", "org-1")
		require.NoError(t, err)
		require.Equal(t, "Acme", got.Title)
		require.True(t, got.IsDefault)

		_, err = st.GetOrganization(ctx, "t2", "org-1")
		require.ErrorIs(t, err, store.ErrOrganizationNotFound)
	})

	t.Run("membership requires organization", func(t *testing.T) {
		err := st.CreateOrganizationUser(ctx, &models.OrganizationUser{OrganizationID: "missing", UserID: "bob", Role: models.OrganizationRoleReader, CreatedAt: now})
		require.ErrorIs(t, err, store.ErrOrganizationNotFound)
	})

	t.Run("membership lifecycle", func(t *testing.T) {
		ou := &models.OrganizationUser{OrganizationID: "org-1", UserID: "alice", Role: models.OrganizationRoleOwner, CreatedAt: now}
		require.NoError(t, st.CreateOrganizationUser(ctx, ou))
		require.ErrorIs(t, st.CreateOrganizationUser(ctx, ou), store.ErrOrganizationUserAlreadyExists)

		got, err := st.GetOrganizationUser(ctx, "org-1", "alice")
		require.NoError(t, err)
		require.Equal(t, models.OrganizationRoleOwner, got.Role)

		require.NoError(t, st.DeleteOrganizationUser(ctx, "org-1", "alice"))
		require.ErrorIs(t, st.DeleteOrganizationUser(ctx, "org-1", "alice"), store.ErrOrganizationUserNotFound)
	})
}

func TestIntegration_ProjectsAndKeys(t *testing.T) {
	ctx := context.Background()
	st, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	now := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, st.CreateOrganization(ctx, &models.Organization{OrganizationID: "org-1", TenantID: "t1", Title: "Acme", CreatedAt: now}))

	p := &models.Project{
		ProjectID:           "proj_1",
		TenantID:            "t1",
		OrganizationID:      "org-1",
		Title:               "infra",
		KubernetesNamespace: "infra",
		Assignments: []models.ProjectAssignment{
			{ClusterID: "c1", Namespace: "infra", NodeSelector: []models.NodeSelector{{Key: "gpu", Value: "a100"}}},
		},
		CreatedAt: now,
	}
	require.NoError(t, st.CreateProject(ctx, p))

	t.Run("assignments round trip", func(t *testing.T) {
		got, err := st.GetProject(ctx, "t1", "proj_1")
		require.NoError(t, err)
		require.Equal(t, p.Assignments, got.Assignments)
	})

	t.Run("update ignores organization", func(t *testing.T) {
		upd := p.Clone()
		upd.Title = "platform"
		upd.Assignments = nil
		require.NoError(t, st.UpdateProject(ctx, upd))

		got, err := st.GetProject(ctx, "t1", "proj_1")
		require.NoError(t, err)
		require.Equal(t, "platform", got.Title)
		require.Empty(t, got.Assignments)
	})

	t.Run("api key lookups", func(t *testing.T) {
		k := &models.APIKey{
			APIKeyID:         "key_1",
			TenantID:         "t1",
			Name:             "ci",
			UserID:           "alice",
			OrganizationID:   "org-1",
			ProjectID:        "proj_1",
			OrganizationRole: models.OrganizationRoleReader,
			ProjectRole:      models.ProjectRoleMember,
			SecretHash:       "hash-1",
			SecretHint:       "sk-ab*****yz",
			CreatedAt:        now,
		}
		require.NoError(t, st.CreateAPIKey(ctx, k))

		dup := *k
		dup.APIKeyID = "key_2"
		dup.SecretHash = "hash-2"
		require.ErrorIs(t, st.CreateAPIKey(ctx, &dup), store.ErrAPIKeyAlreadyExists)

		got, err := st.GetAPIKeyBySecretHash(ctx, "hash-1")
		require.NoError(t, err)
		require.Equal(t, k.APIKeyID, got.APIKeyID)
		require.Equal(t, k.SecretHint, got.SecretHint)
		require.Equal(t, models.ProjectRoleMember, got.ProjectRole)
		require.True(t, k.CreatedAt.Equal(got.CreatedAt))

		keys, err := st.ListAPIKeysByProject(ctx, "proj_1")
		require.NoError(t, err)
		require.Len(t, keys, 1)

		require.NoError(t, st.DeleteAPIKey(ctx, "key_1"))
		require.ErrorIs(t, st.DeleteAPIKey(ctx, "key_1"), store.ErrAPIKeyNotFound)
	})
}

func TestIntegration_RunInTx(t *testing.T) {
	ctx := context.Background()
	st, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	now := time.Now().UTC().Truncate(time.Microsecond)

	t.Run("rollback on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := st.RunInTx(ctx, func(ctx context.Context, tx store.Repository) error {
			if err := tx.CreateUser(ctx, &models.User{UserID: "alice", TenantID: "t1", InternalUserID: "0190a6f0-0000-7000-8000-000000000001", CreatedAt: now}); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		_, err = st.GetUser(ctx, "alice")
		require.ErrorIs(t, err, store.ErrUserNotFound)
	})

	t.Run("commit", func(t *testing.T) {
		err := st.RunInTx(ctx, func(ctx context.Context, tx store.Repository) error {
			if err := tx.CreateUser(ctx, &models.User{UserID: "bob", TenantID: "t1", InternalUserID: "0190a6f0-0000-7000-8000-000000000002", CreatedAt: now}); err != nil {
				return err
			}
			if err := tx.CreateOrganization(ctx, &models.Organization{OrganizationID: "org-1", TenantID: "t1", Title: "Default", IsDefault: true, CreatedAt: now}); err != nil {
				return err
			}
			return tx.CreateOrganizationUser(ctx, &models.OrganizationUser{OrganizationID: "org-1", UserID: "bob", Role: models.OrganizationRoleOwner, CreatedAt: now})
		})
		require.NoError(t, err)

		u, err := st.GetUser(ctx, "bob")
		require.NoError(t, err)
		require.Equal(t, "0190a6f0-0000-7000-8000-000000000002", u.InternalUserID)

		users, err := st.ListOrganizationUsersByUser(ctx, "bob")
		require.NoError(t, err)
		require.Len(t, users, 1)
	})
}
