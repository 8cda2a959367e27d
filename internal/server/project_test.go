package server

import (
	"context"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/usermanager/api/usersv1"
	"github.com/wolfeidau/usermanager/internal/models"
	"google.golang.org/protobuf/types/known/fieldmaskpb"
)

const (
	roleProjectOwner  = usersv1.ProjectRole_PROJECT_ROLE_OWNER
	roleProjectMember = usersv1.ProjectRole_PROJECT_ROLE_MEMBER
)

func TestCreateProject(t *testing.T) {
	env := newTestEnv(t, "bob", "carol")
	alice := asUser("alice")
	org := env.createOrg(t, alice, "Acme")
	env.addOrgUser(t, alice, org.Id, "bob", roleOrgOwner)
	env.addOrgUser(t, alice, org.Id, "carol", roleOrgReader)

	project := env.createProject(t, alice, org.Id, "infra", "infra")
	require.Contains(t, project.Id, "proj_")
	require.Equal(t, org.Id, project.OrganizationId)
	require.Equal(t, "infra", project.KubernetesNamespace)
	require.Equal(t, []*usersv1.ProjectAssignment{{Namespace: "infra"}}, project.Assignments)

	t.Run("organization owners become project owners", func(t *testing.T) {
		users, err := env.store.ListProjectUsersByProject(context.Background(), project.Id)
		require.NoError(t, err)
		require.Len(t, users, 2)
		for _, u := range users {
			require.Equal(t, models.ProjectRoleOwner, u.Role)
			require.NotEqual(t, "carol", u.UserID)
		}
	})

	tests := []struct {
		name string
		ctx  context.Context
		req  *usersv1.CreateProjectRequest
		code connect.Code
	}{
		{
			name: "reader cannot create",
			ctx:  asUser("carol"),
			req:  &usersv1.CreateProjectRequest{OrganizationId: org.Id, Title: "x", KubernetesNamespace: "x"},
			code: connect.CodePermissionDenied,
		},
		{
			name: "duplicate title",
			ctx:  alice,
			req:  &usersv1.CreateProjectRequest{OrganizationId: org.Id, Title: "infra", KubernetesNamespace: "other"},
			code: connect.CodeAlreadyExists,
		},
		{
			name: "namespace and assignments",
			ctx:  alice,
			req: &usersv1.CreateProjectRequest{
				OrganizationId: org.Id, Title: "x", KubernetesNamespace: "x",
				Assignments: []*usersv1.ProjectAssignment{{ClusterId: "c1", Namespace: "x"}},
			},
			code: connect.CodeInvalidArgument,
		},
		{
			name: "neither namespace nor assignments",
			ctx:  alice,
			req:  &usersv1.CreateProjectRequest{OrganizationId: org.Id, Title: "x"},
			code: connect.CodeInvalidArgument,
		},
		{
			name: "invalid namespace",
			ctx:  alice,
			req:  &usersv1.CreateProjectRequest{OrganizationId: org.Id, Title: "x", KubernetesNamespace: "Bad_NS"},
			code: connect.CodeInvalidArgument,
		},
		{
			name: "duplicate assignment",
			ctx:  alice,
			req: &usersv1.CreateProjectRequest{
				OrganizationId: org.Id, Title: "x",
				Assignments: []*usersv1.ProjectAssignment{
					{ClusterId: "c1", Namespace: "ns1"},
					{ClusterId: "c1", Namespace: "ns1"},
				},
			},
			code: connect.CodeInvalidArgument,
		},
		{
			name: "duplicate node selector key",
			ctx:  alice,
			req: &usersv1.CreateProjectRequest{
				OrganizationId: org.Id, Title: "x",
				Assignments: []*usersv1.ProjectAssignment{{
					ClusterId: "c1", Namespace: "ns1",
					NodeSelector: []*usersv1.NodeSelector{{Key: "gpu", Value: "a"}, {Key: "gpu", Value: "b"}},
				}},
			},
			code: connect.CodeInvalidArgument,
		},
		{
			name: "unknown organization",
			ctx:  alice,
			req:  &usersv1.CreateProjectRequest{OrganizationId: "org-missing", Title: "x", KubernetesNamespace: "x"},
			code: connect.CodeNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.srv.CreateProject(tt.ctx, connect.NewRequest(tt.req))
			requireCode(t, err, tt.code)
		})
	}
}

func TestProjectAssignments_DuplicateOnUpdate(t *testing.T) {
	env := newTestEnv(t)
	alice := asUser("alice")
	org := env.createOrg(t, alice, "Acme")

	resp, err := env.srv.CreateProject(alice, connect.NewRequest(&usersv1.CreateProjectRequest{
		OrganizationId: org.Id,
		Title:          "infra",
		Assignments:    []*usersv1.ProjectAssignment{{ClusterId: "c1", Namespace: "ns1"}},
	}))
	require.NoError(t, err)
	project := resp.Msg

	_, err = env.srv.UpdateProject(alice, connect.NewRequest(&usersv1.UpdateProjectRequest{
		Project: &usersv1.Project{
			Id:             project.Id,
			OrganizationId: org.Id,
			Assignments: []*usersv1.ProjectAssignment{
				{ClusterId: "c1", Namespace: "ns1"},
				{ClusterId: "c1", Namespace: "ns1"},
			},
		},
		UpdateMask: &fieldmaskpb.FieldMask{Paths: []string{"assignments"}},
	}))
	requireCode(t, err, connect.CodeInvalidArgument)

	stored, err := env.store.GetProject(context.Background(), testTenant, project.Id)
	require.NoError(t, err)
	require.Len(t, stored.Assignments, 1)
}

func TestUpdateProject(t *testing.T) {
	env := newTestEnv(t, "bob")
	alice := asUser("alice")
	org := env.createOrg(t, alice, "Acme")
	env.addOrgUser(t, alice, org.Id, "bob", roleOrgReader)

	resp, err := env.srv.CreateProject(alice, connect.NewRequest(&usersv1.CreateProjectRequest{
		OrganizationId: org.Id,
		Title:          "infra",
		Assignments: []*usersv1.ProjectAssignment{{
			ClusterId: "c1", Namespace: "ns1", QueueName: "q",
			NodeSelector: []*usersv1.NodeSelector{{Key: "gpu", Value: "a100"}},
		}},
	}))
	require.NoError(t, err)
	project := resp.Msg

	update := func(ctx context.Context, in *usersv1.Project, paths ...string) (*usersv1.Project, error) {
		resp, err := env.srv.UpdateProject(ctx, connect.NewRequest(&usersv1.UpdateProjectRequest{
			Project:    in,
			UpdateMask: &fieldmaskpb.FieldMask{Paths: paths},
		}))
		if err != nil {
			return nil, err
		}
		return resp.Msg, nil
	}

	t.Run("title mask is idempotent", func(t *testing.T) {
		in := &usersv1.Project{Id: project.Id, OrganizationId: org.Id, Title: "platform", KubernetesNamespace: "ignored"}
		first, err := update(alice, in, "title")
		require.NoError(t, err)
		second, err := update(alice, in, "title")
		require.NoError(t, err)

		require.Equal(t, first, second)
		require.Equal(t, "platform", second.Title)
		require.Empty(t, second.KubernetesNamespace)
		require.Equal(t, project.Assignments, second.Assignments)
		require.Equal(t, project.CreatedAt, second.CreatedAt)
	})

	t.Run("namespace replaces assignments", func(t *testing.T) {
		got, err := update(alice, &usersv1.Project{Id: project.Id, OrganizationId: org.Id, KubernetesNamespace: "ns2"}, "kubernetesNamespace")
		require.NoError(t, err)
		require.Equal(t, "ns2", got.KubernetesNamespace)
		require.Equal(t, []*usersv1.ProjectAssignment{{Namespace: "ns2"}}, got.Assignments)
	})

	t.Run("assignments replace namespace", func(t *testing.T) {
		got, err := update(alice, &usersv1.Project{
			Id: project.Id, OrganizationId: org.Id,
			Assignments: []*usersv1.ProjectAssignment{{ClusterId: "c2", Namespace: "ns3"}},
		}, "assignments")
		require.NoError(t, err)
		require.Empty(t, got.KubernetesNamespace)
		require.Len(t, got.Assignments, 1)
		require.Equal(t, "c2", got.Assignments[0].ClusterId)

		stored, err := env.store.GetProject(context.Background(), testTenant, project.Id)
		require.NoError(t, err)
		require.False(t, projectHasNamespace(stored, "ns2"))
	})

	t.Run("namespace and assignments together", func(t *testing.T) {
		_, err := update(alice, &usersv1.Project{
			Id: project.Id, OrganizationId: org.Id, KubernetesNamespace: "ns4",
			Assignments: []*usersv1.ProjectAssignment{{ClusterId: "c1", Namespace: "ns5"}},
		}, "kubernetes_namespace", "assignments")
		requireCode(t, err, connect.CodeInvalidArgument)
	})

	tests := []struct {
		name  string
		ctx   context.Context
		in    *usersv1.Project
		paths []string
		code  connect.Code
	}{
		{name: "empty mask", ctx: alice, in: &usersv1.Project{Id: project.Id, OrganizationId: org.Id}, code: connect.CodeInvalidArgument},
		{name: "immutable path", ctx: alice, in: &usersv1.Project{Id: project.Id, OrganizationId: org.Id}, paths: []string{"organization_id"}, code: connect.CodeInvalidArgument},
		{name: "unknown path", ctx: alice, in: &usersv1.Project{Id: project.Id, OrganizationId: org.Id}, paths: []string{"color"}, code: connect.CodeInvalidArgument},
		{name: "empty title", ctx: alice, in: &usersv1.Project{Id: project.Id, OrganizationId: org.Id}, paths: []string{"title"}, code: connect.CodeInvalidArgument},
		{name: "clearing every target", ctx: alice, in: &usersv1.Project{Id: project.Id, OrganizationId: org.Id}, paths: []string{"kubernetes_namespace", "assignments"}, code: connect.CodeInvalidArgument},
		{name: "org reader", ctx: asUser("bob"), in: &usersv1.Project{Id: project.Id, OrganizationId: org.Id, Title: "x"}, paths: []string{"title"}, code: connect.CodeNotFound},
		{name: "wrong organization", ctx: alice, in: &usersv1.Project{Id: project.Id, OrganizationId: "org-other", Title: "x"}, paths: []string{"title"}, code: connect.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := update(tt.ctx, tt.in, tt.paths...)
			requireCode(t, err, tt.code)
		})
	}
}

func TestDeleteProject(t *testing.T) {
	env := newTestEnv(t, "bob")
	alice := asUser("alice")
	org := env.createOrg(t, alice, "Acme")
	env.addOrgUser(t, alice, org.Id, "bob", roleOrgReader)
	project := env.createProject(t, alice, org.Id, "infra", "infra")
	env.addProjectUser(t, alice, org.Id, project.Id, "bob", roleProjectMember)

	del := func(ctx context.Context) error {
		_, err := env.srv.DeleteProject(ctx, connect.NewRequest(&usersv1.DeleteProjectRequest{OrganizationId: org.Id, Id: project.Id}))
		return err
	}

	requireCode(t, del(asUser("bob")), connect.CodePermissionDenied)
	requireCode(t, del(alice), connect.CodeFailedPrecondition)

	ciKey, err := env.srv.CreateProjectAPIKey(alice, connect.NewRequest(&usersv1.CreateAPIKeyRequest{
		Name: "ci", OrganizationId: org.Id, ProjectId: project.Id,
	}))
	require.NoError(t, err)
	robot, err := env.srv.CreateProjectAPIKey(alice, connect.NewRequest(&usersv1.CreateAPIKeyRequest{
		Name: "robot", OrganizationId: org.Id, ProjectId: project.Id, IsServiceAccount: true,
	}))
	require.NoError(t, err)

	_, err = env.srv.DeleteProjectUser(alice, connect.NewRequest(&usersv1.DeleteProjectUserRequest{
		OrganizationId: org.Id, ProjectId: project.Id, UserId: "bob",
	}))
	require.NoError(t, err)

	require.NoError(t, del(alice))
	require.ElementsMatch(t, []string{ciKey.Msg.Id, robot.Msg.Id}, env.observer.deleted)

	keys, err := env.store.ListAPIKeysByProject(context.Background(), project.Id)
	require.NoError(t, err)
	require.Empty(t, keys)

	// the service account binding on the organization goes with its key
	users, err := env.store.ListOrganizationUsersByOrganization(context.Background(), org.Id)
	require.NoError(t, err)
	require.Len(t, users, 2)

	requireCode(t, del(alice), connect.CodeNotFound)
}

func TestDeleteProject_RequiresOrganization(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.srv.DeleteProject(asUser("alice"), connect.NewRequest(&usersv1.DeleteProjectRequest{Id: "proj_x"}))
	requireCode(t, err, connect.CodeInvalidArgument)
}

func TestListProjects(t *testing.T) {
	env := newTestEnv(t, "bob", "carol")
	alice := asUser("alice")
	org := env.createOrg(t, alice, "Acme")
	env.addOrgUser(t, alice, org.Id, "bob", roleOrgReader)
	infra := env.createProject(t, alice, org.Id, "infra", "infra")
	env.createProject(t, alice, org.Id, "web", "web")
	env.addProjectUser(t, alice, org.Id, infra.Id, "bob", roleProjectMember)

	list := func(ctx context.Context) ([]*usersv1.Project, error) {
		resp, err := env.srv.ListProjects(ctx, connect.NewRequest(&usersv1.ListProjectsRequest{OrganizationId: org.Id, IncludeSummary: true}))
		if err != nil {
			return nil, err
		}
		return resp.Msg.Projects, nil
	}

	projects, err := list(alice)
	require.NoError(t, err)
	require.Len(t, projects, 2)

	projects, err = list(asUser("bob"))
	require.NoError(t, err)
	require.Len(t, projects, 1)
	require.Equal(t, infra.Id, projects[0].Id)
	require.Equal(t, int32(2), projects[0].Summary.UserCount)

	_, err = list(asUser("carol"))
	requireCode(t, err, connect.CodeNotFound)
}

func TestProjectUsers(t *testing.T) {
	env := newTestEnv(t, "bob", "carol", "dave")
	alice := asUser("alice")
	org := env.createOrg(t, alice, "Acme")
	env.addOrgUser(t, alice, org.Id, "bob", roleOrgReader)
	env.addOrgUser(t, alice, org.Id, "carol", roleOrgReader)
	project := env.createProject(t, alice, org.Id, "infra", "infra")

	t.Run("target must belong to the organization", func(t *testing.T) {
		_, err := env.srv.CreateProjectUser(alice, connect.NewRequest(&usersv1.CreateProjectUserRequest{
			OrganizationId: org.Id, ProjectId: project.Id, UserId: "dave", Role: roleProjectMember,
		}))
		requireCode(t, err, connect.CodeFailedPrecondition)
	})

	t.Run("project owner manages members", func(t *testing.T) {
		env.addProjectUser(t, alice, org.Id, project.Id, "bob", roleProjectOwner)
		env.addProjectUser(t, asUser("bob"), org.Id, project.Id, "carol", roleProjectMember)

		_, err := env.srv.CreateProjectUser(asUser("carol"), connect.NewRequest(&usersv1.CreateProjectUserRequest{
			OrganizationId: org.Id, ProjectId: project.Id, UserId: "bob", Role: roleProjectMember,
		}))
		requireCode(t, err, connect.CodePermissionDenied)

		resp, err := env.srv.ListProjectUsers(asUser("carol"), connect.NewRequest(&usersv1.ListProjectUsersRequest{
			OrganizationId: org.Id, ProjectId: project.Id,
		}))
		require.NoError(t, err)
		require.Len(t, resp.Msg.Users, 3)
	})

	t.Run("last project owner stays", func(t *testing.T) {
		_, err := env.srv.DeleteProjectUser(alice, connect.NewRequest(&usersv1.DeleteProjectUserRequest{
			OrganizationId: org.Id, ProjectId: project.Id, UserId: "bob",
		}))
		require.NoError(t, err)

		_, err = env.srv.DeleteProjectUser(alice, connect.NewRequest(&usersv1.DeleteProjectUserRequest{
			OrganizationId: org.Id, ProjectId: project.Id, UserId: "alice",
		}))
		requireCode(t, err, connect.CodeFailedPrecondition)
	})

	t.Run("invalid role", func(t *testing.T) {
		_, err := env.srv.CreateProjectUser(alice, connect.NewRequest(&usersv1.CreateProjectUserRequest{
			OrganizationId: org.Id, ProjectId: project.Id, UserId: "bob",
		}))
		requireCode(t, err, connect.CodeInvalidArgument)
	})
}
