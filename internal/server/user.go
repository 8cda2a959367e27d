package server

import (
	"context"
	"errors"
	"slices"
	"strings"

	"connectrpc.com/connect"
	"github.com/wolfeidau/usermanager/api/usersv1"
	"github.com/wolfeidau/usermanager/internal/auth"
	"github.com/wolfeidau/usermanager/internal/models"
	"github.com/wolfeidau/usermanager/internal/store"
)

// GetUserSelf returns the caller with every role binding it holds.
func (s *UsersServer) GetUserSelf(ctx context.Context, req *connect.Request[usersv1.GetUserSelfRequest]) (*connect.Response[usersv1.User], error) {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}

	u, err := s.tenantUser(ctx, p.UserID, p.TenantID)
	if err != nil {
		return nil, err
	}
	orgs, projects, err := userBindings(ctx, s.store, u.UserID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(toUserProto(u, orgs, projects)), nil
}

// GetUser returns another user of the tenant together with the bindings the
// caller is allowed to see.
func (s *UsersServer) GetUser(ctx context.Context, req *connect.Request[usersv1.GetUserRequest]) (*connect.Response[usersv1.User], error) {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}

	userID := models.NormalizeUserID(req.Msg.Id)
	if userID == "" {
		return nil, invalidArgument("id is required")
	}
	if userID == p.UserID {
		return s.GetUserSelf(ctx, connect.NewRequest(&usersv1.GetUserSelfRequest{}))
	}

	u, err := s.tenantUser(ctx, userID, p.TenantID)
	if err != nil {
		return nil, err
	}
	if u.Hidden || u.IsServiceAccount {
		return nil, permissionDenied("user %q is not accessible", userID)
	}

	visible, err := visibleBindings(ctx, s.store, p)
	if err != nil {
		return nil, err
	}
	b, ok := visible[userID]
	if !ok {
		return nil, notFound("user %q not found", userID)
	}
	return connect.NewResponse(toUserProto(u, b.orgs, b.projects)), nil
}

// ListUsers lists the users that share an organization the caller owns, or a
// project the caller belongs to. Hidden users are only listed for TENANT_SYSTEM
// callers that ask for them.
func (s *UsersServer) ListUsers(ctx context.Context, req *connect.Request[usersv1.ListUsersRequest]) (*connect.Response[usersv1.ListUsersResponse], error) {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}

	includeHidden := false
	if req.Msg.IncludeHidden {
		if includeHidden, err = isTenantSystem(ctx, s.store, p); err != nil {
			return nil, err
		}
	}

	users, err := s.store.ListUsersByTenant(ctx, p.TenantID)
	if err != nil {
		return nil, storeError("list users", err)
	}
	visible, err := visibleBindings(ctx, s.store, p)
	if err != nil {
		return nil, err
	}

	resp := &usersv1.ListUsersResponse{Users: []*usersv1.User{}}
	for _, u := range users {
		if u.Hidden && !includeHidden {
			continue
		}
		if u.UserID == p.UserID {
			orgs, projects, err := userBindings(ctx, s.store, u.UserID)
			if err != nil {
				return nil, err
			}
			resp.Users = append(resp.Users, toUserProto(u, orgs, projects))
			continue
		}
		b, ok := visible[u.UserID]
		if !ok {
			continue
		}
		resp.Users = append(resp.Users, toUserProto(u, b.orgs, b.projects))
	}

	slices.SortFunc(resp.Users, func(a, b *usersv1.User) int {
		return strings.Compare(a.Id, b.Id)
	})
	return connect.NewResponse(resp), nil
}

func (s *UsersServer) tenantUser(ctx context.Context, userID, tenantID string) (*models.User, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, notFound("user %q not found", userID)
		}
		return nil, storeError("get user", err)
	}
	if u.TenantID != tenantID {
		return nil, notFound("user %q not found", userID)
	}
	return u, nil
}

// userBindings returns every membership of userID.
func userBindings(ctx context.Context, repo store.Repository, userID string) ([]*models.OrganizationUser, []*models.ProjectUser, error) {
	orgs, err := repo.ListOrganizationUsersByUser(ctx, userID)
	if err != nil {
		return nil, nil, storeError("list organization users", err)
	}
	projects, err := repo.ListProjectUsersByUser(ctx, userID)
	if err != nil {
		return nil, nil, storeError("list project users", err)
	}
	return orgs, projects, nil
}

type bindingSet struct {
	orgs     []*models.OrganizationUser
	projects []*models.ProjectUser
	seen     map[string]bool
}

func (b *bindingSet) addProject(pu *models.ProjectUser) {
	if b.seen[pu.ProjectID] {
		return
	}
	b.seen[pu.ProjectID] = true
	b.projects = append(b.projects, pu)
}

// visibleBindings returns, per user, the bindings the caller may see: every
// binding inside an organization the caller owns, and the project bindings of
// projects the caller is a member of.
func visibleBindings(ctx context.Context, repo store.Repository, p *auth.Principal) (map[string]*bindingSet, error) {
	out := make(map[string]*bindingSet)
	get := func(userID string) *bindingSet {
		b, ok := out[userID]
		if !ok {
			b = &bindingSet{seen: make(map[string]bool)}
			out[userID] = b
		}
		return b
	}

	callerOrgs, callerProjects, err := userBindings(ctx, repo, p.UserID)
	if err != nil {
		return nil, err
	}

	owned := make(map[string]bool)
	for _, b := range callerOrgs {
		if !b.Role.AtLeast(models.OrganizationRoleOwner) {
			continue
		}
		owned[b.OrganizationID] = true

		ous, err := repo.ListOrganizationUsersByOrganization(ctx, b.OrganizationID)
		if err != nil {
			return nil, storeError("list organization users", err)
		}
		for _, ou := range ous {
			get(ou.UserID).orgs = append(get(ou.UserID).orgs, ou)
		}

		pus, err := repo.ListProjectUsersByOrganization(ctx, b.OrganizationID)
		if err != nil {
			return nil, storeError("list project users", err)
		}
		for _, pu := range pus {
			get(pu.UserID).addProject(pu)
		}
	}

	for _, b := range callerProjects {
		if owned[b.OrganizationID] {
			continue
		}
		pus, err := repo.ListProjectUsersByProject(ctx, b.ProjectID)
		if err != nil {
			return nil, storeError("list project users", err)
		}
		for _, pu := range pus {
			get(pu.UserID).addProject(pu)
		}
	}

	return out, nil
}
