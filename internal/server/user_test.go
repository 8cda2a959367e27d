package server

import (
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/usermanager/api/usersv1"
)

func TestGetUserSelf(t *testing.T) {
	env := newTestEnv(t)
	alice := asUser("alice")

	_, err := env.srv.GetUserSelf(alice, connect.NewRequest(&usersv1.GetUserSelfRequest{}))
	requireCode(t, err, connect.CodeNotFound)

	org := env.createOrg(t, alice, "Acme")
	project := env.createProject(t, alice, org.Id, "infra", "infra")

	resp, err := env.srv.GetUserSelf(alice, connect.NewRequest(&usersv1.GetUserSelfRequest{}))
	require.NoError(t, err)
	require.Equal(t, "alice", resp.Msg.Id)
	require.Equal(t, []*usersv1.OrganizationRoleBinding{{OrganizationId: org.Id, Role: roleOrgOwner}}, resp.Msg.OrganizationRoleBindings)
	require.Equal(t, []*usersv1.ProjectRoleBinding{{ProjectId: project.Id, OrganizationId: org.Id, Role: roleProjectOwner}}, resp.Msg.ProjectRoleBindings)

	_, err = env.srv.GetUserSelf(asTenantUser("tenant-b", "alice"), connect.NewRequest(&usersv1.GetUserSelfRequest{}))
	requireCode(t, err, connect.CodeNotFound)
}

func TestGetUser(t *testing.T) {
	env := newTestEnv(t, "bob", "carol", "dave")
	alice, bob := asUser("alice"), asUser("bob")
	org := env.createOrg(t, alice, "Acme")
	env.addOrgUser(t, alice, org.Id, "bob", roleOrgReader)
	env.addOrgUser(t, alice, org.Id, "carol", roleOrgReader)
	infra := env.createProject(t, alice, org.Id, "infra", "infra")
	web := env.createProject(t, alice, org.Id, "web", "web")
	env.addProjectUser(t, alice, org.Id, infra.Id, "bob", roleProjectMember)
	env.addProjectUser(t, alice, org.Id, infra.Id, "carol", roleProjectMember)
	env.addProjectUser(t, alice, org.Id, web.Id, "carol", roleProjectMember)

	robot, err := env.srv.CreateAPIKey(alice, connect.NewRequest(&usersv1.CreateAPIKeyRequest{
		Name: "robot", OrganizationId: org.Id, IsServiceAccount: true,
	}))
	require.NoError(t, err)

	get := func(t *testing.T, caller string, id string) (*usersv1.User, error) {
		t.Helper()
		resp, err := env.srv.GetUser(asUser(caller), connect.NewRequest(&usersv1.GetUserRequest{Id: id}))
		if err != nil {
			return nil, err
		}
		return resp.Msg, nil
	}

	t.Run("owner sees every binding", func(t *testing.T) {
		u, err := get(t, "alice", "carol")
		require.NoError(t, err)
		require.Len(t, u.OrganizationRoleBindings, 1)
		require.Len(t, u.ProjectRoleBindings, 2)
	})

	t.Run("co member sees shared project bindings only", func(t *testing.T) {
		u, err := get(t, "bob", "carol")
		require.NoError(t, err)
		require.Empty(t, u.OrganizationRoleBindings)
		require.Len(t, u.ProjectRoleBindings, 1)
		require.Equal(t, infra.Id, u.ProjectRoleBindings[0].ProjectId)
	})

	t.Run("unrelated user", func(t *testing.T) {
		_, err := get(t, "bob", "dave")
		requireCode(t, err, connect.CodeNotFound)
	})

	t.Run("service account", func(t *testing.T) {
		_, err := get(t, "alice", robot.Msg.User.Id)
		requireCode(t, err, connect.CodePermissionDenied)
	})

	t.Run("self", func(t *testing.T) {
		u, err := get(t, "bob", "BOB")
		require.NoError(t, err)
		require.Len(t, u.OrganizationRoleBindings, 1)
	})

	t.Run("list users", func(t *testing.T) {
		resp, err := env.srv.ListUsers(bob, connect.NewRequest(&usersv1.ListUsersRequest{IncludeHidden: true}))
		require.NoError(t, err)

		var ids []string
		for _, u := range resp.Msg.Users {
			ids = append(ids, u.Id)
			require.False(t, u.Hidden)
		}
		require.Equal(t, []string{"alice", "bob", "carol"}, ids)

		resp, err = env.srv.ListUsers(alice, connect.NewRequest(&usersv1.ListUsersRequest{}))
		require.NoError(t, err)
		require.Len(t, resp.Msg.Users, 3)
	})
}
