package server

import (
	"context"
	"strings"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/usermanager/api/usersv1"
	"github.com/wolfeidau/usermanager/internal/ids"
	"github.com/wolfeidau/usermanager/internal/models"
	"google.golang.org/protobuf/types/known/fieldmaskpb"
)

func TestCreateAPIKey(t *testing.T) {
	env := newTestEnv(t, "bob", "carol")
	alice, bob := asUser("alice"), asUser("bob")
	org := env.createOrg(t, alice, "Acme")
	env.addOrgUser(t, alice, org.Id, "bob", roleOrgReader)
	project := env.createProject(t, alice, org.Id, "infra", "infra")

	resp, err := env.srv.CreateAPIKey(alice, connect.NewRequest(&usersv1.CreateAPIKeyRequest{
		Name: "ci", OrganizationId: org.Id, ProjectId: project.Id,
	}))
	require.NoError(t, err)
	key := resp.Msg
	require.True(t, strings.HasPrefix(key.Id, ids.APIKeyPrefix))
	require.True(t, ids.IsSecret(key.Secret))
	require.Equal(t, usersv1.ObjectAPIKey, key.Object)
	require.Equal(t, "alice", key.User.Id)
	require.Equal(t, "Acme", key.Organization.Title)
	require.Equal(t, "infra", key.Project.Title)
	require.Equal(t, roleOrgOwner, key.OrganizationRole)
	require.Equal(t, roleProjectOwner, key.ProjectRole)

	stored, err := env.store.GetAPIKey(context.Background(), key.Id)
	require.NoError(t, err)
	require.Equal(t, ids.HashSecret(key.Secret), stored.SecretHash)
	require.NotContains(t, stored.SecretHint, key.Secret[5:len(key.Secret)-2])

	t.Run("reader requesting an owner key", func(t *testing.T) {
		_, err := env.srv.CreateAPIKey(bob, connect.NewRequest(&usersv1.CreateAPIKeyRequest{
			Name: "escalate", OrganizationId: org.Id, OrganizationRole: roleOrgOwner,
		}))
		requireCode(t, err, connect.CodePermissionDenied)
	})

	t.Run("reader cannot issue organization keys", func(t *testing.T) {
		_, err := env.srv.CreateAPIKey(bob, connect.NewRequest(&usersv1.CreateAPIKeyRequest{
			Name: "bob-org", OrganizationId: org.Id, OrganizationRole: roleOrgReader,
		}))
		requireCode(t, err, connect.CodePermissionDenied)

		keys, err := env.store.ListAPIKeysByTenant(context.Background(), testTenant)
		require.NoError(t, err)
		require.Len(t, keys, 1)
	})

	t.Run("project member cannot issue project keys", func(t *testing.T) {
		env.addOrgUser(t, alice, org.Id, "carol", roleOrgReader)
		env.addProjectUser(t, alice, org.Id, project.Id, "carol", roleProjectMember)

		_, err := env.srv.CreateProjectAPIKey(asUser("carol"), connect.NewRequest(&usersv1.CreateAPIKeyRequest{
			Name: "carol-proj", OrganizationId: org.Id, ProjectId: project.Id,
		}))
		requireCode(t, err, connect.CodePermissionDenied)
	})

	t.Run("owner issues a lower role", func(t *testing.T) {
		resp, err := env.srv.CreateAPIKey(alice, connect.NewRequest(&usersv1.CreateAPIKeyRequest{
			Name: "readonly", OrganizationId: org.Id, OrganizationRole: roleOrgReader,
		}))
		require.NoError(t, err)
		require.Equal(t, roleOrgReader, resp.Msg.OrganizationRole)
		require.Equal(t, usersv1.ProjectRole_PROJECT_ROLE_UNSPECIFIED, resp.Msg.ProjectRole)
		require.Nil(t, resp.Msg.Project)
	})

	t.Run("duplicate name", func(t *testing.T) {
		_, err := env.srv.CreateAPIKey(alice, connect.NewRequest(&usersv1.CreateAPIKeyRequest{
			Name: "ci", OrganizationId: org.Id,
		}))
		requireCode(t, err, connect.CodeAlreadyExists)
	})

	t.Run("project role without project", func(t *testing.T) {
		_, err := env.srv.CreateAPIKey(alice, connect.NewRequest(&usersv1.CreateAPIKeyRequest{
			Name: "x", OrganizationId: org.Id, ProjectRole: roleProjectMember,
		}))
		requireCode(t, err, connect.CodeInvalidArgument)
	})

	t.Run("non member of project", func(t *testing.T) {
		_, err := env.srv.CreateAPIKey(bob, connect.NewRequest(&usersv1.CreateAPIKeyRequest{
			Name: "x", OrganizationId: org.Id, ProjectId: project.Id,
		}))
		requireCode(t, err, connect.CodeNotFound)
	})

	t.Run("service account requires owner", func(t *testing.T) {
		_, err := env.srv.CreateAPIKey(bob, connect.NewRequest(&usersv1.CreateAPIKeyRequest{
			Name: "robot", OrganizationId: org.Id, IsServiceAccount: true,
		}))
		requireCode(t, err, connect.CodePermissionDenied)
	})

	t.Run("missing name", func(t *testing.T) {
		_, err := env.srv.CreateAPIKey(alice, connect.NewRequest(&usersv1.CreateAPIKeyRequest{OrganizationId: org.Id}))
		requireCode(t, err, connect.CodeInvalidArgument)
	})

	t.Run("project alias requires a project", func(t *testing.T) {
		_, err := env.srv.CreateProjectAPIKey(alice, connect.NewRequest(&usersv1.CreateAPIKeyRequest{Name: "x", OrganizationId: org.Id}))
		requireCode(t, err, connect.CodeInvalidArgument)
	})
}

func TestCreateAPIKey_ServiceAccount(t *testing.T) {
	env := newTestEnv(t)
	alice := asUser("alice")
	org := env.createOrg(t, alice, "Acme")
	project := env.createProject(t, alice, org.Id, "infra", "infra")

	resp, err := env.srv.CreateProjectAPIKey(alice, connect.NewRequest(&usersv1.CreateAPIKeyRequest{
		Name: "robot", OrganizationId: org.Id, ProjectId: project.Id, IsServiceAccount: true,
		ProjectRole: roleProjectMember,
	}))
	require.NoError(t, err)
	key := resp.Msg
	require.True(t, key.IsServiceAccount)
	require.Equal(t, ids.ServiceUserID(key.Id), key.User.Id)

	ctx := context.Background()
	u, err := env.store.GetUser(ctx, key.User.Id)
	require.NoError(t, err)
	require.True(t, u.Hidden)
	require.True(t, u.IsServiceAccount)

	pu, err := env.store.GetProjectUser(ctx, project.Id, key.User.Id)
	require.NoError(t, err)
	require.Equal(t, models.ProjectRoleMember, pu.Role)

	users, err := env.srv.ListOrganizationUsers(alice, connect.NewRequest(&usersv1.ListOrganizationUsersRequest{OrganizationId: org.Id}))
	require.NoError(t, err)
	require.Len(t, users.Msg.Users, 1)

	// the service user authenticates with the key and sees itself
	self, err := env.srv.GetUserSelf(asUser(key.User.Id), connect.NewRequest(&usersv1.GetUserSelfRequest{}))
	require.NoError(t, err)
	require.True(t, self.Msg.IsServiceAccount)
	require.Len(t, self.Msg.ProjectRoleBindings, 1)

	_, err = env.srv.DeleteAPIKey(alice, connect.NewRequest(&usersv1.DeleteAPIKeyRequest{Id: key.Id}))
	require.NoError(t, err)

	_, err = env.store.GetOrganizationUser(ctx, org.Id, key.User.Id)
	require.Error(t, err)
	_, err = env.store.GetProjectUser(ctx, project.Id, key.User.Id)
	require.Error(t, err)
}

func TestListAPIKeys_Redaction(t *testing.T) {
	env := newTestEnv(t, "bob")
	alice, bob := asUser("alice"), asUser("bob")
	org := env.createOrg(t, alice, "Acme")
	env.addOrgUser(t, alice, org.Id, "bob", roleOrgReader)
	project := env.createProject(t, alice, org.Id, "infra", "infra")
	ml := env.createProject(t, alice, org.Id, "ml", "ml")
	env.addProjectUser(t, alice, org.Id, ml.Id, "bob", roleProjectOwner)

	secrets := map[string]string{}
	for _, c := range []struct {
		ctx  context.Context
		name string
		proj string
	}{
		{alice, "alice-org", ""},
		{alice, "alice-proj", project.Id},
		{bob, "bob-proj", ml.Id},
	} {
		resp, err := env.srv.CreateAPIKey(c.ctx, connect.NewRequest(&usersv1.CreateAPIKeyRequest{
			Name: c.name, OrganizationId: org.Id, ProjectId: c.proj,
		}))
		require.NoError(t, err)
		secrets[resp.Msg.Id] = resp.Msg.Secret
	}

	requireRedacted := func(t *testing.T, keys []*usersv1.APIKey) {
		t.Helper()
		for _, k := range keys {
			for _, secret := range secrets {
				require.NotEqual(t, secret, k.Secret)
			}
			require.Equal(t, ids.ObfuscateSecret(secrets[k.Id]), k.Secret)
		}
	}

	names := func(keys []*usersv1.APIKey) []string {
		var out []string
		for _, k := range keys {
			out = append(out, k.Name)
		}
		return out
	}

	t.Run("owner sees every key", func(t *testing.T) {
		resp, err := env.srv.ListAPIKeys(alice, connect.NewRequest(&usersv1.ListAPIKeysRequest{}))
		require.NoError(t, err)
		require.Equal(t, usersv1.ObjectList, resp.Msg.Object)
		require.ElementsMatch(t, []string{"alice-org", "alice-proj", "bob-proj"}, names(resp.Msg.Data))
		requireRedacted(t, resp.Msg.Data)
	})

	t.Run("reader sees own keys", func(t *testing.T) {
		resp, err := env.srv.ListAPIKeys(bob, connect.NewRequest(&usersv1.ListAPIKeysRequest{OrganizationId: org.Id}))
		require.NoError(t, err)
		require.Equal(t, []string{"bob-proj"}, names(resp.Msg.Data))
		requireRedacted(t, resp.Msg.Data)
	})

	t.Run("project listing", func(t *testing.T) {
		resp, err := env.srv.ListProjectAPIKeys(alice, connect.NewRequest(&usersv1.ListAPIKeysRequest{
			OrganizationId: org.Id, ProjectId: project.Id,
		}))
		require.NoError(t, err)
		require.Equal(t, []string{"alice-proj"}, names(resp.Msg.Data))
		requireRedacted(t, resp.Msg.Data)
	})

	t.Run("internal listing", func(t *testing.T) {
		resp, err := env.internal.ListInternalAPIKeys(context.Background(), connect.NewRequest(&usersv1.InternalListRequest{TenantId: testTenant}))
		require.NoError(t, err)
		require.Len(t, resp.Msg.ApiKeys, 3)
		for _, k := range resp.Msg.ApiKeys {
			require.Empty(t, k.ApiKey.Secret)
			require.Equal(t, testTenant, k.TenantId)
			require.NotEmpty(t, k.ApiKey.User.InternalId)
		}
	})

	t.Run("other tenant sees nothing", func(t *testing.T) {
		resp, err := env.srv.ListAPIKeys(asTenantUser("tenant-b", "alice"), connect.NewRequest(&usersv1.ListAPIKeysRequest{}))
		require.NoError(t, err)
		require.Empty(t, resp.Msg.Data)
	})
}

func TestUpdateAPIKey(t *testing.T) {
	env := newTestEnv(t, "bob")
	alice := asUser("alice")
	org := env.createOrg(t, alice, "Acme")
	env.addOrgUser(t, alice, org.Id, "bob", roleOrgReader)

	created, err := env.srv.CreateAPIKey(alice, connect.NewRequest(&usersv1.CreateAPIKeyRequest{Name: "ci", OrganizationId: org.Id}))
	require.NoError(t, err)
	id := created.Msg.Id

	update := func(ctx context.Context, in *usersv1.APIKey, paths ...string) (*usersv1.APIKey, error) {
		resp, err := env.srv.UpdateAPIKey(ctx, connect.NewRequest(&usersv1.UpdateAPIKeyRequest{
			ApiKey:     in,
			UpdateMask: &fieldmaskpb.FieldMask{Paths: paths},
		}))
		if err != nil {
			return nil, err
		}
		return resp.Msg, nil
	}

	got, err := update(alice, &usersv1.APIKey{Id: id, Name: "deploy", ExcludedFromRateLimiting: true}, "excludedFromRateLimiting")
	require.NoError(t, err)
	require.Equal(t, "ci", got.Name)
	require.True(t, got.ExcludedFromRateLimiting)
	require.Equal(t, created.Msg.OrganizationRole, got.OrganizationRole)
	require.Equal(t, []string{id}, env.observer.updated)

	got, err = update(alice, &usersv1.APIKey{Id: id, Name: "deploy"}, "name")
	require.NoError(t, err)
	require.Equal(t, "deploy", got.Name)
	require.True(t, got.ExcludedFromRateLimiting)
	require.NotEqual(t, created.Msg.Secret, got.Secret)

	_, err = update(alice, &usersv1.APIKey{Id: id, Secret: "sk-new"}, "secret")
	requireCode(t, err, connect.CodeInvalidArgument)

	_, err = update(alice, &usersv1.APIKey{Id: id}, "organization_role")
	requireCode(t, err, connect.CodeInvalidArgument)

	_, err = update(asUser("bob"), &usersv1.APIKey{Id: id, Name: "mine"}, "name")
	requireCode(t, err, connect.CodeNotFound)

	_, err = update(alice, &usersv1.APIKey{Id: "key_missing", Name: "x"}, "name")
	requireCode(t, err, connect.CodeNotFound)
}

func TestDeleteAPIKey(t *testing.T) {
	env := newTestEnv(t, "bob")
	alice, bob := asUser("alice"), asUser("bob")
	org := env.createOrg(t, alice, "Acme")
	env.addOrgUser(t, alice, org.Id, "bob", roleOrgReader)
	project := env.createProject(t, alice, org.Id, "infra", "infra")
	env.addProjectUser(t, alice, org.Id, project.Id, "bob", roleProjectOwner)

	create := func(ctx context.Context, name, projectID string) string {
		resp, err := env.srv.CreateAPIKey(ctx, connect.NewRequest(&usersv1.CreateAPIKeyRequest{
			Name: name, OrganizationId: org.Id, ProjectId: projectID,
		}))
		require.NoError(t, err)
		return resp.Msg.Id
	}

	aliceKey := create(alice, "alice", "")
	bobKey := create(bob, "bob", project.Id)
	projectKey := create(alice, "infra", project.Id)

	t.Run("readers cannot see organization keys", func(t *testing.T) {
		_, err := env.srv.DeleteAPIKey(bob, connect.NewRequest(&usersv1.DeleteAPIKeyRequest{Id: aliceKey}))
		requireCode(t, err, connect.CodeNotFound)
	})

	t.Run("owner deletes a member key", func(t *testing.T) {
		resp, err := env.srv.DeleteAPIKey(alice, connect.NewRequest(&usersv1.DeleteAPIKeyRequest{Id: bobKey}))
		require.NoError(t, err)
		require.Equal(t, &usersv1.DeleteResponse{Id: bobKey, Object: "users.api_key", Deleted: true}, resp.Msg)
		require.Contains(t, env.observer.deleted, bobKey)
	})

	t.Run("deleted keys are not found", func(t *testing.T) {
		_, err := env.srv.DeleteAPIKey(alice, connect.NewRequest(&usersv1.DeleteAPIKeyRequest{Id: bobKey}))
		requireCode(t, err, connect.CodeNotFound)
	})

	t.Run("project alias checks scope", func(t *testing.T) {
		_, err := env.srv.DeleteProjectAPIKey(alice, connect.NewRequest(&usersv1.DeleteAPIKeyRequest{
			Id: aliceKey, OrganizationId: org.Id, ProjectId: project.Id,
		}))
		requireCode(t, err, connect.CodeNotFound)

		_, err = env.srv.DeleteProjectAPIKey(alice, connect.NewRequest(&usersv1.DeleteAPIKeyRequest{
			Id: projectKey, OrganizationId: org.Id, ProjectId: project.Id,
		}))
		require.NoError(t, err)
	})

	t.Run("other tenant", func(t *testing.T) {
		_, err := env.srv.DeleteAPIKey(asTenantUser("tenant-b", "alice"), connect.NewRequest(&usersv1.DeleteAPIKeyRequest{Id: aliceKey}))
		requireCode(t, err, connect.CodeNotFound)
	})
}

func TestGrantRoles(t *testing.T) {
	tests := []struct {
		name      string
		requested models.OrganizationRole
		caller    models.OrganizationRole
		want      models.OrganizationRole
		code      connect.Code
	}{
		{name: "inherit", requested: models.OrganizationRoleUnspecified, caller: models.OrganizationRoleReader, want: models.OrganizationRoleReader},
		{name: "lower", requested: models.OrganizationRoleReader, caller: models.OrganizationRoleOwner, want: models.OrganizationRoleReader},
		{name: "equal", requested: models.OrganizationRoleOwner, caller: models.OrganizationRoleOwner, want: models.OrganizationRoleOwner},
		{name: "escalate", requested: models.OrganizationRoleOwner, caller: models.OrganizationRoleReader, code: connect.CodePermissionDenied},
		{name: "tenant system grants owner", requested: models.OrganizationRoleOwner, caller: models.OrganizationRoleTenantSystem, want: models.OrganizationRoleOwner},
		{name: "unknown", requested: "ADMIN", caller: models.OrganizationRoleOwner, code: connect.CodeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := grantOrganizationRole(tt.requested, tt.caller)
			if tt.code != 0 {
				requireCode(t, err, tt.code)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
