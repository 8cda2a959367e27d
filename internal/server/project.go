package server

import (
	"context"
	"errors"
	"strings"

	"connectrpc.com/connect"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/usermanager/api/usersv1"
	"github.com/wolfeidau/usermanager/internal/auth"
	"github.com/wolfeidau/usermanager/internal/ids"
	"github.com/wolfeidau/usermanager/internal/models"
	"github.com/wolfeidau/usermanager/internal/store"
)

// CreateProject creates a project in an organization. Every owner of the
// organization becomes an owner of the project.
func (s *UsersServer) CreateProject(ctx context.Context, req *connect.Request[usersv1.CreateProjectRequest]) (*connect.Response[usersv1.Project], error) {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Msg.Title)
	if title == "" {
		return nil, invalidArgument("title is required")
	}

	org, err := getOrganization(ctx, s.store, p.TenantID, req.Msg.OrganizationId)
	if err != nil {
		return nil, err
	}
	if _, err := requireOrganizationRole(ctx, s.store, p, org, models.OrganizationRoleOwner); err != nil {
		return nil, err
	}

	namespace, assignments, err := buildAssignments(req.Msg.KubernetesNamespace, req.Msg.Assignments)
	if err != nil {
		return nil, err
	}

	project, err := s.newProject(org, title, namespace, assignments, false)
	if err != nil {
		return nil, err
	}

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Repository) error {
		return s.createProjectTx(ctx, tx, project, p.UserID)
	})
	if err != nil {
		if errors.Is(err, store.ErrProjectAlreadyExists) {
			return nil, alreadyExists("project %q already exists", title)
		}
		return nil, storeError("create project", err)
	}

	s.metrics.ProjectsCreatedTotal.Add(ctx, 1)
	log.Info().
		Str("project_id", project.ProjectID).
		Str("organization_id", org.OrganizationID).
		Str("user_id", p.UserID).
		Msg("Created project")

	return connect.NewResponse(toProjectProto(project)), nil
}

func (s *UsersServer) newProject(org *models.Organization, title, namespace string, assignments []models.ProjectAssignment, isDefault bool) (*models.Project, error) {
	projectID, err := ids.NewProjectID()
	if err != nil {
		return nil, internalError("generate project id: %s", err)
	}
	return &models.Project{
		ProjectID:           projectID,
		TenantID:            org.TenantID,
		OrganizationID:      org.OrganizationID,
		Title:               title,
		KubernetesNamespace: namespace,
		Assignments:         assignments,
		IsDefault:           isDefault,
		CreatedAt:           s.now(),
	}, nil
}

// createProjectTx inserts project and makes every org owner, plus extraOwners,
// a project owner.
func (s *UsersServer) createProjectTx(ctx context.Context, tx store.Repository, project *models.Project, extraOwners ...string) error {
	if err := tx.CreateProject(ctx, project); err != nil {
		return err
	}

	orgUsers, err := tx.ListOrganizationUsersByOrganization(ctx, project.OrganizationID)
	if err != nil {
		return err
	}

	owners := make([]string, 0, len(orgUsers)+len(extraOwners))
	seen := make(map[string]bool)
	for _, ou := range orgUsers {
		if ou.Role == models.OrganizationRoleOwner && !seen[ou.UserID] {
			seen[ou.UserID] = true
			owners = append(owners, ou.UserID)
		}
	}
	for _, id := range extraOwners {
		if !seen[id] {
			seen[id] = true
			owners = append(owners, id)
		}
	}

	for _, userID := range owners {
		if err := tx.CreateProjectUser(ctx, &models.ProjectUser{
			ProjectID:      project.ProjectID,
			OrganizationID: project.OrganizationID,
			UserID:         userID,
			Role:           models.ProjectRoleOwner,
			CreatedAt:      project.CreatedAt,
		}); err != nil {
			return err
		}
	}
	return nil
}

// ListProjects lists the projects of an organization that the caller can see.
func (s *UsersServer) ListProjects(ctx context.Context, req *connect.Request[usersv1.ListProjectsRequest]) (*connect.Response[usersv1.ListProjectsResponse], error) {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}

	org, err := getOrganization(ctx, s.store, p.TenantID, req.Msg.OrganizationId)
	if err != nil {
		return nil, err
	}
	orgRole, err := requireOrganizationRole(ctx, s.store, p, org, models.OrganizationRoleReader)
	if err != nil {
		return nil, err
	}

	projects, err := s.store.ListProjectsByOrganization(ctx, org.OrganizationID)
	if err != nil {
		return nil, storeError("list projects", err)
	}

	memberOf := make(map[string]bool)
	if !orgRole.AtLeast(models.OrganizationRoleOwner) {
		bindings, err := s.store.ListProjectUsersByUser(ctx, p.UserID)
		if err != nil {
			return nil, storeError("list project users", err)
		}
		for _, b := range bindings {
			memberOf[b.ProjectID] = true
		}
	}

	var hidden map[string]bool
	if req.Msg.IncludeSummary {
		if hidden, err = hiddenUsers(ctx, s.store, p.TenantID); err != nil {
			return nil, err
		}
	}

	resp := &usersv1.ListProjectsResponse{Projects: []*usersv1.Project{}}
	for _, project := range projects {
		if !orgRole.AtLeast(models.OrganizationRoleOwner) && !memberOf[project.ProjectID] {
			continue
		}
		pp := toProjectProto(project)
		if req.Msg.IncludeSummary {
			pp.Summary = s.projectSummary(ctx, project, hidden)
		}
		resp.Projects = append(resp.Projects, pp)
	}
	return connect.NewResponse(resp), nil
}

// projectSummary is best effort: a failed count is logged and reported as zero.
func (s *UsersServer) projectSummary(ctx context.Context, project *models.Project, hidden map[string]bool) *usersv1.ProjectSummary {
	summary := &usersv1.ProjectSummary{}
	users, err := s.store.ListProjectUsersByProject(ctx, project.ProjectID)
	if err != nil {
		log.Warn().Err(err).Str("project_id", project.ProjectID).Msg("Failed to count project users")
		return summary
	}
	for _, u := range users {
		if !hidden[u.UserID] {
			summary.UserCount++
		}
	}
	return summary
}

// UpdateProject applies the fields named by the update mask.
func (s *UsersServer) UpdateProject(ctx context.Context, req *connect.Request[usersv1.UpdateProjectRequest]) (*connect.Response[usersv1.Project], error) {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}

	in := req.Msg.Project
	if in == nil {
		return nil, invalidArgument("project is required")
	}
	paths, err := normalizeMask(req.Msg.UpdateMask, projectMaskPaths)
	if err != nil {
		return nil, err
	}

	project, err := getProject(ctx, s.store, p.TenantID, in.OrganizationId, in.Id)
	if err != nil {
		return nil, err
	}
	if _, _, err := requireProjectRole(ctx, s.store, p, project, models.ProjectRoleOwner); err != nil {
		return nil, err
	}

	// namespace and assignments are one target: updating either replaces both
	var namespace string
	var assignments []*usersv1.ProjectAssignment
	retarget := false
	for _, path := range paths {
		switch path {
		case "title":
			title := strings.TrimSpace(in.Title)
			if title == "" {
				return nil, invalidArgument("title is required")
			}
			project.Title = title
		case "kubernetes_namespace":
			namespace = in.KubernetesNamespace
			retarget = true
		case "assignments":
			assignments = in.Assignments
			retarget = true
		}
	}
	if retarget {
		if project.KubernetesNamespace, project.Assignments, err = buildAssignments(namespace, assignments); err != nil {
			return nil, err
		}
	}

	if err := s.store.UpdateProject(ctx, project); err != nil {
		if errors.Is(err, store.ErrProjectAlreadyExists) {
			return nil, alreadyExists("project %q already exists", project.Title)
		}
		return nil, storeError("update project", err)
	}

	log.Info().
		Str("project_id", project.ProjectID).
		Strs("paths", paths).
		Msg("Updated project")

	return connect.NewResponse(toProjectProto(project)), nil
}

// DeleteProject deletes a project whose only remaining member is its owner. The
// project's API keys are revoked in the same transaction.
func (s *UsersServer) DeleteProject(ctx context.Context, req *connect.Request[usersv1.DeleteProjectRequest]) (*connect.Response[usersv1.DeleteResponse], error) {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}

	if req.Msg.OrganizationId == "" {
		return nil, invalidArgument("organization id is required")
	}
	project, err := getProject(ctx, s.store, p.TenantID, req.Msg.OrganizationId, req.Msg.Id)
	if err != nil {
		return nil, err
	}
	if _, _, err := requireProjectRole(ctx, s.store, p, project, models.ProjectRoleOwner); err != nil {
		return nil, err
	}
	if project.IsDefault {
		return nil, invalidArgument("cannot delete the default project")
	}

	var revoked []*models.APIKey
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Repository) error {
		keys, err := tx.ListAPIKeysByProject(ctx, project.ProjectID)
		if err != nil {
			return err
		}
		serviceAccounts, err := serviceAccountUsers(ctx, tx, project.TenantID)
		if err != nil {
			return err
		}

		users, err := tx.ListProjectUsersByProject(ctx, project.ProjectID)
		if err != nil {
			return err
		}
		remaining := humanProjectUsers(users, serviceAccounts)
		if len(remaining) > 1 || (len(remaining) == 1 && remaining[0].Role != models.ProjectRoleOwner) {
			return failedPrecondition("project %q still has members other than its owner", project.ProjectID)
		}

		if err := revokeAPIKeysTx(ctx, tx, keys); err != nil {
			return err
		}
		revoked = keys

		for _, u := range users {
			if err := tx.DeleteProjectUser(ctx, project.ProjectID, u.UserID); err != nil && !errors.Is(err, store.ErrProjectUserNotFound) {
				return err
			}
		}
		return tx.DeleteProject(ctx, project.TenantID, project.ProjectID)
	})
	if err != nil {
		return nil, storeError("delete project", err)
	}

	s.apiKeysRevoked(ctx, revoked)
	s.metrics.ProjectsDeletedTotal.Add(ctx, 1)
	log.Info().
		Str("project_id", project.ProjectID).
		Int("revoked_keys", len(revoked)).
		Msg("Deleted project")

	return connect.NewResponse(&usersv1.DeleteResponse{
		Id:      project.ProjectID,
		Object:  usersv1.ObjectProject,
		Deleted: true,
	}), nil
}

// CreateProjectUser adds an organization member to a project.
func (s *UsersServer) CreateProjectUser(ctx context.Context, req *connect.Request[usersv1.CreateProjectUserRequest]) (*connect.Response[usersv1.ProjectUser], error) {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}

	userID := models.NormalizeUserID(req.Msg.UserId)
	if userID == "" {
		return nil, invalidArgument("user id is required")
	}
	role := toProjectRole(req.Msg.Role)
	if !role.Valid() {
		return nil, invalidArgument("invalid project role %q", req.Msg.Role)
	}
	if req.Msg.OrganizationId == "" {
		return nil, invalidArgument("organization id is required")
	}

	project, err := getProject(ctx, s.store, p.TenantID, req.Msg.OrganizationId, req.Msg.ProjectId)
	if err != nil {
		return nil, err
	}
	if _, _, err := requireProjectRole(ctx, s.store, p, project, models.ProjectRoleOwner); err != nil {
		return nil, err
	}

	if err := s.getTenantUser(ctx, userID, p.TenantID); err != nil {
		return nil, err
	}
	orgRole, err := organizationRole(ctx, s.store, project.OrganizationID, userID)
	if err != nil {
		return nil, err
	}
	if orgRole == models.OrganizationRoleUnspecified {
		return nil, failedPrecondition("user %q is not a member of organization %q", userID, project.OrganizationID)
	}

	pu := &models.ProjectUser{
		ProjectID:      project.ProjectID,
		OrganizationID: project.OrganizationID,
		UserID:         userID,
		Role:           role,
		CreatedAt:      s.now(),
	}
	if err := s.store.CreateProjectUser(ctx, pu); err != nil {
		if errors.Is(err, store.ErrProjectUserAlreadyExists) {
			return nil, alreadyExists("user %q is already a member of project %q", userID, project.ProjectID)
		}
		return nil, storeError("create project user", err)
	}

	s.metrics.RecordMembershipChange(ctx, "project", "add")
	log.Info().
		Str("project_id", project.ProjectID).
		Str("user_id", userID).
		Str("role", string(role)).
		Msg("Added project user")

	return connect.NewResponse(toProjectUserProto(pu)), nil
}

// ListProjectUsers lists the visible members of a project.
func (s *UsersServer) ListProjectUsers(ctx context.Context, req *connect.Request[usersv1.ListProjectUsersRequest]) (*connect.Response[usersv1.ListProjectUsersResponse], error) {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}

	if req.Msg.OrganizationId == "" {
		return nil, invalidArgument("organization id is required")
	}
	project, err := getProject(ctx, s.store, p.TenantID, req.Msg.OrganizationId, req.Msg.ProjectId)
	if err != nil {
		return nil, err
	}
	if _, _, err := requireProjectRole(ctx, s.store, p, project, models.ProjectRoleMember); err != nil {
		return nil, err
	}

	users, err := s.store.ListProjectUsersByProject(ctx, project.ProjectID)
	if err != nil {
		return nil, storeError("list project users", err)
	}
	hidden, err := hiddenUsers(ctx, s.store, p.TenantID)
	if err != nil {
		return nil, err
	}

	resp := &usersv1.ListProjectUsersResponse{Users: []*usersv1.ProjectUser{}}
	for _, u := range users {
		if hidden[u.UserID] {
			continue
		}
		resp.Users = append(resp.Users, toProjectUserProto(u))
	}
	return connect.NewResponse(resp), nil
}

// DeleteProjectUser removes a user from a project. The last owner cannot be removed.
func (s *UsersServer) DeleteProjectUser(ctx context.Context, req *connect.Request[usersv1.DeleteProjectUserRequest]) (*connect.Response[usersv1.DeleteResponse], error) {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}

	userID := models.NormalizeUserID(req.Msg.UserId)
	if userID == "" {
		return nil, invalidArgument("user id is required")
	}
	if req.Msg.OrganizationId == "" {
		return nil, invalidArgument("organization id is required")
	}

	project, err := getProject(ctx, s.store, p.TenantID, req.Msg.OrganizationId, req.Msg.ProjectId)
	if err != nil {
		return nil, err
	}
	if _, _, err := requireProjectRole(ctx, s.store, p, project, models.ProjectRoleOwner); err != nil {
		return nil, err
	}

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Repository) error {
		pu, err := tx.GetProjectUser(ctx, project.ProjectID, userID)
		if err != nil {
			if errors.Is(err, store.ErrProjectUserNotFound) {
				return notFound("user %q is not a member of project %q", userID, project.ProjectID)
			}
			return err
		}

		serviceAccounts, err := serviceAccountUsers(ctx, tx, project.TenantID)
		if err != nil {
			return err
		}
		if pu.Role == models.ProjectRoleOwner && !serviceAccounts[userID] {
			users, err := tx.ListProjectUsersByProject(ctx, project.ProjectID)
			if err != nil {
				return err
			}
			if countProjectOwners(humanProjectUsers(users, serviceAccounts)) <= 1 {
				return failedPrecondition("cannot remove the last owner of project %q", project.ProjectID)
			}
		}

		return tx.DeleteProjectUser(ctx, project.ProjectID, userID)
	})
	if err != nil {
		return nil, storeError("delete project user", err)
	}

	s.metrics.RecordMembershipChange(ctx, "project", "remove")
	log.Info().
		Str("project_id", project.ProjectID).
		Str("user_id", userID).
		Msg("Removed project user")

	return connect.NewResponse(&usersv1.DeleteResponse{
		Id:      userID,
		Object:  usersv1.ObjectProjectUser,
		Deleted: true,
	}), nil
}
