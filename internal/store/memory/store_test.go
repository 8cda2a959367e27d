package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/usermanager/internal/models"
	"github.com/wolfeidau/usermanager/internal/store"
)

func newOrg(id, tenant, title string) *models.Organization {
	return &models.Organization{
		OrganizationID: id,
		TenantID:       tenant,
		Title:          title,
		CreatedAt:      time.Now(),
	}
}

func TestStore_Organizations(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate title in tenant", func(t *testing.T) {
		st := NewStore()
		require.NoError(t, st.CreateOrganization(ctx, newOrg("org-1", "t1", "Acme")))

		err := st.CreateOrganization(ctx, newOrg("org-2", "t1", "Acme"))
		require.ErrorIs(t, err, store.ErrOrganizationAlreadyExists)

		// same title in another tenant is fine
		require.NoError(t, st.CreateOrganization(ctx, newOrg("org-3", "t2", "Acme")))
	})

	t.Run("single default per tenant", func(t *testing.T) {
		st := NewStore()
		o1 := newOrg("org-1", "t1", "one")
		o1.IsDefault = true
		require.NoError(t, st.CreateOrganization(ctx, o1))

		o2 := newOrg("org-2", "t1", "two")
		o2.IsDefault = true
		require.ErrorIs(t, st.CreateOrganization(ctx, o2), store.ErrOrganizationAlreadyExists)

		got, err := st.GetDefaultOrganization(ctx, "t1")
		require.NoError(t, err)
		require.Equal(t, "org-1", got.OrganizationID)
	})

	t.Run("get is tenant scoped", func(t *testing.T) {
		st := NewStore()
		require.NoError(t, st.CreateOrganization(ctx, newOrg("org-1", "t1", "Acme")))

		_, err := st.GetOrganization(ctx, "t2", "org-1")
		require.ErrorIs(t, err, store.ErrOrganizationNotFound)
		require.True(t, store.IsNotFound(err))
	})

	t.Run("list orders by creation", func(t *testing.T) {
		st := NewStore()
		base := time.Now()
		for i, id := range []string{"org-b", "org-a", "org-c"} {
			o := newOrg(id, "t1", id)
			o.CreatedAt = base.Add(time.Duration(i) * time.Second)
			require.NoError(t, st.CreateOrganization(ctx, o))
		}

		orgs, err := st.ListOrganizationsByTenant(ctx, "t1")
		require.NoError(t, err)
		require.Len(t, orgs, 3)
		require.Equal(t, "org-b", orgs[0].OrganizationID)
		require.Equal(t, "org-c", orgs[2].OrganizationID)

		all, err := st.ListOrganizationsByTenant(ctx, "")
		require.NoError(t, err)
		require.Len(t, all, 3)
	})

	t.Run("returned values are copies", func(t *testing.T) {
		st := NewStore()
		require.NoError(t, st.CreateOrganization(ctx, newOrg("org-1", "t1", "Acme")))

		got, err := st.GetOrganization(ctx, "t1", "org-1")
		require.NoError(t, err)
		got.Title = "changed"

		again, err := st.GetOrganization(ctx, "t1", "org-1")
		require.NoError(t, err)
		require.Equal(t, "Acme", again.Title)
	})
}

func TestStore_Memberships(t *testing.T) {
	ctx := context.Background()
	st := NewStore()
	require.NoError(t, st.CreateOrganization(ctx, newOrg("org-1", "t1", "Acme")))

	ou := &models.OrganizationUser{OrganizationID: "org-1", UserID: "alice", Role: models.OrganizationRoleOwner}
	require.NoError(t, st.CreateOrganizationUser(ctx, ou))
	require.ErrorIs(t, st.CreateOrganizationUser(ctx, ou), store.ErrOrganizationUserAlreadyExists)

	err := st.CreateOrganizationUser(ctx, &models.OrganizationUser{OrganizationID: "missing", UserID: "bob"})
	require.ErrorIs(t, err, store.ErrOrganizationNotFound)

	byUser, err := st.ListOrganizationUsersByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, byUser, 1)

	require.NoError(t, st.DeleteOrganizationUser(ctx, "org-1", "alice"))
	require.ErrorIs(t, st.DeleteOrganizationUser(ctx, "org-1", "alice"), store.ErrOrganizationUserNotFound)
}

func TestStore_Projects(t *testing.T) {
	ctx := context.Background()
	st := NewStore()
	require.NoError(t, st.CreateOrganization(ctx, newOrg("org-1", "t1", "Acme")))

	p := &models.Project{
		ProjectID:      "proj_1",
		TenantID:       "t1",
		OrganizationID: "org-1",
		Title:          "infra",
		Assignments: []models.ProjectAssignment{
			{ClusterID: "c1", Namespace: "ns1", NodeSelector: []models.NodeSelector{{Key: "gpu", Value: "a100"}}},
		},
		CreatedAt: time.Now(),
	}
	require.NoError(t, st.CreateProject(ctx, p))

	// caller mutations after create must not leak into the store
	p.Assignments[0].NodeSelector[0].Value = "h100"
	got, err := st.GetProject(ctx, "t1", "proj_1")
	require.NoError(t, err)
	require.Equal(t, "a100", got.Assignments[0].NodeSelector[0].Value)

	dup := *p
	dup.ProjectID = "proj_2"
	require.ErrorIs(t, st.CreateProject(ctx, &dup), store.ErrProjectAlreadyExists)

	got.Title = "platform"
	got.OrganizationID = "org-other"
	require.NoError(t, st.UpdateProject(ctx, got))

	updated, err := st.GetProject(ctx, "t1", "proj_1")
	require.NoError(t, err)
	require.Equal(t, "platform", updated.Title)
	require.Equal(t, "org-1", updated.OrganizationID)

	require.NoError(t, st.DeleteProject(ctx, "t1", "proj_1"))
	require.ErrorIs(t, st.DeleteProject(ctx, "t1", "proj_1"), store.ErrProjectNotFound)
}

func TestStore_APIKeys(t *testing.T) {
	ctx := context.Background()
	st := NewStore()

	k := &models.APIKey{APIKeyID: "key_1", TenantID: "t1", Name: "ci", SecretHash: "h1", CreatedAt: time.Now()}
	require.NoError(t, st.CreateAPIKey(ctx, k))

	t.Run("name unique per tenant", func(t *testing.T) {
		err := st.CreateAPIKey(ctx, &models.APIKey{APIKeyID: "key_2", TenantID: "t1", Name: "ci", SecretHash: "h2"})
		require.ErrorIs(t, err, store.ErrAPIKeyAlreadyExists)
		require.True(t, store.IsAlreadyExists(err))
	})

	t.Run("lookup by secret hash", func(t *testing.T) {
		got, err := st.GetAPIKeyBySecretHash(ctx, "h1")
		require.NoError(t, err)
		require.Equal(t, "key_1", got.APIKeyID)
	})

	t.Run("update only touches mutable columns", func(t *testing.T) {
		upd := &models.APIKey{APIKeyID: "key_1", Name: "deploy", ExcludedFromRateLimiting: true, SecretHash: "other"}
		require.NoError(t, st.UpdateAPIKey(ctx, upd))

		got, err := st.GetAPIKey(ctx, "key_1")
		require.NoError(t, err)
		require.Equal(t, "deploy", got.Name)
		require.True(t, got.ExcludedFromRateLimiting)
		require.Equal(t, "h1", got.SecretHash)
	})

	t.Run("delete twice", func(t *testing.T) {
		require.NoError(t, st.DeleteAPIKey(ctx, "key_1"))
		require.ErrorIs(t, st.DeleteAPIKey(ctx, "key_1"), store.ErrAPIKeyNotFound)
	})
}

func TestStore_RunInTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commit publishes all writes", func(t *testing.T) {
		st := NewStore()
		err := st.RunInTx(ctx, func(ctx context.Context, tx store.Repository) error {
			if err := tx.CreateOrganization(ctx, newOrg("org-1", "t1", "Acme")); err != nil {
				return err
			}
			return tx.CreateOrganizationUser(ctx, &models.OrganizationUser{
				OrganizationID: "org-1", UserID: "alice", Role: models.OrganizationRoleOwner,
			})
		})
		require.NoError(t, err)

		_, err = st.GetOrganizationUser(ctx, "org-1", "alice")
		require.NoError(t, err)
	})

	t.Run("error rolls back every write", func(t *testing.T) {
		st := NewStore()
		boom := errors.New("boom")
		err := st.RunInTx(ctx, func(ctx context.Context, tx store.Repository) error {
			if err := tx.CreateOrganization(ctx, newOrg("org-1", "t1", "Acme")); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		_, err = st.GetOrganization(ctx, "t1", "org-1")
		require.ErrorIs(t, err, store.ErrOrganizationNotFound)
	})

	t.Run("cancelled context rolls back", func(t *testing.T) {
		st := NewStore()
		cctx, cancel := context.WithCancel(ctx)
		err := st.RunInTx(cctx, func(ctx context.Context, tx store.Repository) error {
			if err := tx.CreateOrganization(ctx, newOrg("org-1", "t1", "Acme")); err != nil {
				return err
			}
			cancel()
			return nil
		})
		require.ErrorIs(t, err, context.Canceled)

		orgs, err := st.ListOrganizationsByTenant(ctx, "t1")
		require.NoError(t, err)
		require.Empty(t, orgs)
	})
}
