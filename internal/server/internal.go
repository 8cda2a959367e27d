package server

import (
	"context"
	"errors"
	"strings"

	"connectrpc.com/connect"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/usermanager/api/usersv1"
	"github.com/wolfeidau/usermanager/internal/ids"
	"github.com/wolfeidau/usermanager/internal/models"
	"github.com/wolfeidau/usermanager/internal/store"
)

// CreateUserInternal bootstraps a user into a tenant. If an organization with
// the given title exists the user joins it as owner; otherwise a default
// organization and project are created for the user. An existing user is left
// untouched.
func (s *InternalServer) CreateUserInternal(ctx context.Context, req *connect.Request[usersv1.CreateUserInternalRequest]) (*connect.Response[usersv1.CreateUserInternalResponse], error) {
	msg := req.Msg
	if msg.TenantId == "" {
		return nil, invalidArgument("tenant id is required")
	}
	title := strings.TrimSpace(msg.Title)
	if title == "" {
		return nil, invalidArgument("title is required")
	}

	userID := models.NormalizeUserID(msg.UserId)
	if userID == "" {
		generated, err := ids.NewInternalUserID()
		if err != nil {
			return nil, internalError("%s", err)
		}
		userID = generated
	}

	namespace := msg.KubernetesNamespace
	if namespace == "" {
		namespace = msg.TenantId
	}
	if err := validateNamespace(namespace); err != nil {
		return nil, err
	}

	resp := &usersv1.CreateUserInternalResponse{UserId: userID}
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Repository) error {
		*resp = usersv1.CreateUserInternalResponse{UserId: userID}

		if u, err := tx.GetUser(ctx, userID); err == nil {
			if u.TenantID != msg.TenantId {
				return alreadyExists("user %q already exists in another tenant", userID)
			}
			return nil
		} else if !errors.Is(err, store.ErrUserNotFound) {
			return err
		}

		if err := s.ensureUser(ctx, tx, userID, msg.TenantId); err != nil {
			return err
		}
		resp.Created = true

		org, err := tx.GetOrganizationByTitle(ctx, msg.TenantId, title)
		switch {
		case err == nil:
			return s.joinOrganizationTx(ctx, tx, org, userID, namespace, resp)
		case !errors.Is(err, store.ErrOrganizationNotFound):
			return err
		}

		return s.createTenantDefaultsTx(ctx, tx, msg.TenantId, title, namespace, userID, resp)
	})
	if err != nil {
		return nil, storeError("create user", err)
	}

	if resp.Created {
		s.metrics.TenantBootstrapsTotal.Add(ctx, 1)
		log.Info().
			Str("tenant_id", msg.TenantId).
			Str("user_id", userID).
			Str("organization_id", resp.OrganizationId).
			Str("project_id", resp.ProjectId).
			Msg("Bootstrapped user")
	}

	return connect.NewResponse(resp), nil
}

// joinOrganizationTx makes userID an owner of org and of the org project that
// schedules into namespace, falling back to the default project.
func (s *InternalServer) joinOrganizationTx(ctx context.Context, tx store.Repository, org *models.Organization, userID, namespace string, resp *usersv1.CreateUserInternalResponse) error {
	now := s.now()
	if err := tx.CreateOrganizationUser(ctx, &models.OrganizationUser{
		OrganizationID: org.OrganizationID,
		UserID:         userID,
		Role:           models.OrganizationRoleOwner,
		CreatedAt:      now,
	}); err != nil {
		return err
	}
	resp.OrganizationId = org.OrganizationID

	projects, err := tx.ListProjectsByOrganization(ctx, org.OrganizationID)
	if err != nil {
		return err
	}
	var target *models.Project
	for _, p := range projects {
		if projectHasNamespace(p, namespace) {
			target = p
			break
		}
	}
	if target == nil {
		for _, p := range projects {
			if p.IsDefault {
				target = p
				break
			}
		}
	}
	if target == nil {
		return nil
	}

	resp.ProjectId = target.ProjectID
	return tx.CreateProjectUser(ctx, &models.ProjectUser{
		ProjectID:      target.ProjectID,
		OrganizationID: target.OrganizationID,
		UserID:         userID,
		Role:           models.ProjectRoleOwner,
		CreatedAt:      now,
	})
}

// createTenantDefaultsTx creates an organization and project owned by userID.
// They are marked default unless the tenant already has defaults.
func (s *InternalServer) createTenantDefaultsTx(ctx context.Context, tx store.Repository, tenantID, title, namespace, userID string, resp *usersv1.CreateUserInternalResponse) error {
	orgDefault, err := hasDefaultOrganization(ctx, tx, tenantID)
	if err != nil {
		return err
	}
	org, err := s.newOrganization(tenantID, title, !orgDefault)
	if err != nil {
		return err
	}
	if err := s.createOrganizationTx(ctx, tx, org, userID); err != nil {
		return err
	}
	resp.OrganizationId = org.OrganizationID

	projectDefault, err := hasDefaultProject(ctx, tx, tenantID)
	if err != nil {
		return err
	}
	project, err := s.newProject(org, title, namespace, []models.ProjectAssignment{{Namespace: namespace}}, !projectDefault)
	if err != nil {
		return err
	}
	if err := s.createProjectTx(ctx, tx, project); err != nil {
		return err
	}
	resp.ProjectId = project.ProjectID
	return nil
}

func hasDefaultOrganization(ctx context.Context, repo store.Repository, tenantID string) (bool, error) {
	_, err := repo.GetDefaultOrganization(ctx, tenantID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, store.ErrOrganizationNotFound):
		return false, nil
	}
	return false, err
}

func hasDefaultProject(ctx context.Context, repo store.Repository, tenantID string) (bool, error) {
	_, err := repo.GetDefaultProject(ctx, tenantID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, store.ErrProjectNotFound):
		return false, nil
	}
	return false, err
}

// ListInternalAPIKeys lists keys with their tenant. Secrets are never included.
func (s *InternalServer) ListInternalAPIKeys(ctx context.Context, req *connect.Request[usersv1.InternalListRequest]) (*connect.Response[usersv1.ListInternalAPIKeysResponse], error) {
	keys, err := s.store.ListAPIKeysByTenant(ctx, req.Msg.TenantId)
	if err != nil {
		return nil, storeError("list api keys", err)
	}
	internalIDs, err := s.internalUserIDs(ctx, req.Msg.TenantId)
	if err != nil {
		return nil, err
	}

	orgs := make(map[string]*models.Organization)
	projects := make(map[string]*models.Project)
	resp := &usersv1.ListInternalAPIKeysResponse{ApiKeys: []*usersv1.InternalAPIKey{}}
	for _, k := range keys {
		org, ok := orgs[k.OrganizationID]
		if !ok {
			if org, err = s.store.GetOrganization(ctx, k.TenantID, k.OrganizationID); err != nil {
				org = nil
			}
			orgs[k.OrganizationID] = org
		}
		var project *models.Project
		if k.ProjectID != "" {
			if project, ok = projects[k.ProjectID]; !ok {
				if project, err = s.store.GetProject(ctx, k.TenantID, k.ProjectID); err != nil {
					project = nil
				}
				projects[k.ProjectID] = project
			}
		}

		kp := toAPIKeyProto(k, "", org, project)
		kp.User.InternalId = internalIDs[k.UserID]
		resp.ApiKeys = append(resp.ApiKeys, &usersv1.InternalAPIKey{ApiKey: kp, TenantId: k.TenantID})
	}
	return connect.NewResponse(resp), nil
}

// ListInternalOrganizations lists organizations with their tenant.
func (s *InternalServer) ListInternalOrganizations(ctx context.Context, req *connect.Request[usersv1.InternalListRequest]) (*connect.Response[usersv1.ListInternalOrganizationsResponse], error) {
	orgs, err := s.store.ListOrganizationsByTenant(ctx, req.Msg.TenantId)
	if err != nil {
		return nil, storeError("list organizations", err)
	}
	resp := &usersv1.ListInternalOrganizationsResponse{Organizations: []*usersv1.InternalOrganization{}}
	for _, org := range orgs {
		resp.Organizations = append(resp.Organizations, &usersv1.InternalOrganization{
			Organization: toOrganizationProto(org),
			TenantId:     org.TenantID,
		})
	}
	return connect.NewResponse(resp), nil
}

// ListOrganizationUsers lists every organization membership, hidden users included.
func (s *InternalServer) ListOrganizationUsers(ctx context.Context, req *connect.Request[usersv1.InternalListRequest]) (*connect.Response[usersv1.ListOrganizationUsersResponse], error) {
	orgs, err := s.store.ListOrganizationsByTenant(ctx, req.Msg.TenantId)
	if err != nil {
		return nil, storeError("list organizations", err)
	}
	internalIDs, err := s.internalUserIDs(ctx, req.Msg.TenantId)
	if err != nil {
		return nil, err
	}

	resp := &usersv1.ListOrganizationUsersResponse{Users: []*usersv1.OrganizationUser{}}
	for _, org := range orgs {
		users, err := s.store.ListOrganizationUsersByOrganization(ctx, org.OrganizationID)
		if err != nil {
			return nil, storeError("list organization users", err)
		}
		for _, u := range users {
			up := toOrganizationUserProto(u)
			up.InternalUserId = internalIDs[u.UserID]
			resp.Users = append(resp.Users, up)
		}
	}
	return connect.NewResponse(resp), nil
}

// ListProjects lists projects with their tenant.
func (s *InternalServer) ListProjects(ctx context.Context, req *connect.Request[usersv1.InternalListRequest]) (*connect.Response[usersv1.ListInternalProjectsResponse], error) {
	projects, err := s.store.ListProjectsByTenant(ctx, req.Msg.TenantId)
	if err != nil {
		return nil, storeError("list projects", err)
	}
	resp := &usersv1.ListInternalProjectsResponse{Projects: []*usersv1.InternalProject{}}
	for _, p := range projects {
		resp.Projects = append(resp.Projects, &usersv1.InternalProject{
			Project:  toProjectProto(p),
			TenantId: p.TenantID,
		})
	}
	return connect.NewResponse(resp), nil
}

// ListProjectUsers lists every project membership, hidden users included.
func (s *InternalServer) ListProjectUsers(ctx context.Context, req *connect.Request[usersv1.InternalListRequest]) (*connect.Response[usersv1.ListProjectUsersResponse], error) {
	projects, err := s.store.ListProjectsByTenant(ctx, req.Msg.TenantId)
	if err != nil {
		return nil, storeError("list projects", err)
	}
	resp := &usersv1.ListProjectUsersResponse{Users: []*usersv1.ProjectUser{}}
	for _, p := range projects {
		users, err := s.store.ListProjectUsersByProject(ctx, p.ProjectID)
		if err != nil {
			return nil, storeError("list project users", err)
		}
		for _, u := range users {
			resp.Users = append(resp.Users, toProjectUserProto(u))
		}
	}
	return connect.NewResponse(resp), nil
}

// ListUsers lists users with their internal ids and all bindings.
func (s *InternalServer) ListUsers(ctx context.Context, req *connect.Request[usersv1.InternalListRequest]) (*connect.Response[usersv1.ListUsersResponse], error) {
	users, err := s.store.ListUsersByTenant(ctx, req.Msg.TenantId)
	if err != nil {
		return nil, storeError("list users", err)
	}
	resp := &usersv1.ListUsersResponse{Users: []*usersv1.User{}}
	for _, u := range users {
		orgs, projects, err := userBindings(ctx, s.store, u.UserID)
		if err != nil {
			return nil, err
		}
		up := toUserProto(u, orgs, projects)
		up.InternalId = u.InternalUserID
		resp.Users = append(resp.Users, up)
	}
	return connect.NewResponse(resp), nil
}

func (s *InternalServer) internalUserIDs(ctx context.Context, tenantID string) (map[string]string, error) {
	users, err := s.store.ListUsersByTenant(ctx, tenantID)
	if err != nil {
		return nil, storeError("list users", err)
	}
	out := make(map[string]string, len(users))
	for _, u := range users {
		out[u.UserID] = u.InternalUserID
	}
	return out, nil
}
