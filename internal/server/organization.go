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
	"github.com/wolfeidau/usermanager/internal/util"
)

// CreateOrganization creates an organization with the caller as its owner.
func (s *UsersServer) CreateOrganization(ctx context.Context, req *connect.Request[usersv1.CreateOrganizationRequest]) (*connect.Response[usersv1.Organization], error) {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Msg.Title)
	if title == "" {
		return nil, invalidArgument("title is required")
	}

	org, err := s.newOrganization(p.TenantID, title, false)
	if err != nil {
		return nil, err
	}

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Repository) error {
		if err := s.ensureUser(ctx, tx, p.UserID, p.TenantID); err != nil {
			return err
		}
		return s.createOrganizationTx(ctx, tx, org, p.UserID)
	})
	if err != nil {
		if errors.Is(err, store.ErrOrganizationAlreadyExists) {
			return nil, alreadyExists("organization %q already exists", title)
		}
		return nil, storeError("create organization", err)
	}

	s.metrics.OrganizationsCreatedTotal.Add(ctx, 1)
	log.Info().
		Str("organization_id", org.OrganizationID).
		Str("tenant_id", org.TenantID).
		Str("user_id", p.UserID).
		Msg("Created organization")

	return connect.NewResponse(toOrganizationProto(org)), nil
}

func (s *UsersServer) newOrganization(tenantID, title string, isDefault bool) (*models.Organization, error) {
	orgID, err := ids.NewOrganizationID()
	if err != nil {
		return nil, internalError("generate organization id: %s", err)
	}
	return &models.Organization{
		OrganizationID: orgID,
		TenantID:       tenantID,
		Title:          title,
		IsDefault:      isDefault,
		CreatedAt:      s.now(),
	}, nil
}

// createOrganizationTx inserts org and binds ownerID as OWNER.
func (s *UsersServer) createOrganizationTx(ctx context.Context, tx store.Repository, org *models.Organization, ownerID string) error {
	if err := tx.CreateOrganization(ctx, org); err != nil {
		return err
	}
	return tx.CreateOrganizationUser(ctx, &models.OrganizationUser{
		OrganizationID: org.OrganizationID,
		UserID:         ownerID,
		Role:           models.OrganizationRoleOwner,
		CreatedAt:      org.CreatedAt,
	})
}

// ensureUser creates a user record for userID if there is none. A user owned by
// another tenant is treated as not found.
func (s *UsersServer) ensureUser(ctx context.Context, tx store.Repository, userID, tenantID string) error {
	u, err := tx.GetUser(ctx, userID)
	if err == nil {
		if u.TenantID != tenantID {
			return notFound("user %q not found", userID)
		}
		return nil
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		return err
	}

	internalID, err := ids.NewInternalUserID()
	if err != nil {
		return internalError("%s", err)
	}
	return tx.CreateUser(ctx, &models.User{
		UserID:         userID,
		TenantID:       tenantID,
		InternalUserID: internalID,
		CreatedAt:      s.now(),
	})
}

// ListOrganizations lists the organizations the caller holds a role in. A
// TENANT_SYSTEM caller sees every organization of the tenant.
func (s *UsersServer) ListOrganizations(ctx context.Context, req *connect.Request[usersv1.ListOrganizationsRequest]) (*connect.Response[usersv1.ListOrganizationsResponse], error) {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}

	orgs, err := s.store.ListOrganizationsByTenant(ctx, p.TenantID)
	if err != nil {
		return nil, storeError("list organizations", err)
	}

	bindings, err := s.store.ListOrganizationUsersByUser(ctx, p.UserID)
	if err != nil {
		return nil, storeError("list organization users", err)
	}
	member := make(map[string]bool, len(bindings))
	all := false
	for _, b := range bindings {
		member[b.OrganizationID] = true
		if b.Role == models.OrganizationRoleTenantSystem {
			all = true
		}
	}

	resp := &usersv1.ListOrganizationsResponse{Organizations: []*usersv1.Organization{}}
	var hidden map[string]bool
	for _, org := range orgs {
		if !all && !member[org.OrganizationID] {
			continue
		}
		op := toOrganizationProto(org)
		if req.Msg.IncludeSummary {
			if hidden == nil {
				if hidden, err = hiddenUsers(ctx, s.store, p.TenantID); err != nil {
					return nil, err
				}
			}
			op.Summary = s.organizationSummary(ctx, org, hidden)
		}
		resp.Organizations = append(resp.Organizations, op)
	}

	return connect.NewResponse(resp), nil
}

// organizationSummary is best effort: a failed count is logged and reported as zero.
func (s *UsersServer) organizationSummary(ctx context.Context, org *models.Organization, hidden map[string]bool) *usersv1.OrganizationSummary {
	summary := &usersv1.OrganizationSummary{}

	projects, err := s.store.ListProjectsByOrganization(ctx, org.OrganizationID)
	if err != nil {
		log.Warn().Err(err).Str("organization_id", org.OrganizationID).Msg("Failed to count projects")
	} else {
		summary.ProjectCount = util.AsInt32(len(projects))
	}

	users, err := s.store.ListOrganizationUsersByOrganization(ctx, org.OrganizationID)
	if err != nil {
		log.Warn().Err(err).Str("organization_id", org.OrganizationID).Msg("Failed to count users")
	} else {
		for _, u := range users {
			if !hidden[u.UserID] {
				summary.UserCount++
			}
		}
	}

	return summary
}

// DeleteOrganization deletes an organization that has no projects and no members
// besides its sole owner.
func (s *UsersServer) DeleteOrganization(ctx context.Context, req *connect.Request[usersv1.DeleteOrganizationRequest]) (*connect.Response[usersv1.DeleteResponse], error) {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}

	org, err := getOrganization(ctx, s.store, p.TenantID, req.Msg.Id)
	if err != nil {
		return nil, err
	}
	if _, err := requireOrganizationRole(ctx, s.store, p, org, models.OrganizationRoleOwner); err != nil {
		return nil, err
	}
	if org.IsDefault {
		return nil, invalidArgument("cannot delete the default organization")
	}

	var revoked []*models.APIKey
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Repository) error {
		projects, err := tx.ListProjectsByOrganization(ctx, org.OrganizationID)
		if err != nil {
			return err
		}
		if len(projects) > 0 {
			return failedPrecondition("organization %q still has %d project(s)", org.OrganizationID, len(projects))
		}

		keys, err := tx.ListAPIKeysByTenant(ctx, org.TenantID)
		if err != nil {
			return err
		}
		for _, k := range keys {
			if k.OrganizationID == org.OrganizationID {
				revoked = append(revoked, k)
			}
		}
		serviceAccounts, err := serviceAccountUsers(ctx, tx, org.TenantID)
		if err != nil {
			return err
		}

		users, err := tx.ListOrganizationUsersByOrganization(ctx, org.OrganizationID)
		if err != nil {
			return err
		}
		remaining := humanOrganizationUsers(users, serviceAccounts)
		if len(remaining) > 1 || (len(remaining) == 1 && remaining[0].Role != models.OrganizationRoleOwner) {
			return failedPrecondition("organization %q still has members other than its owner", org.OrganizationID)
		}

		if err := revokeAPIKeysTx(ctx, tx, revoked); err != nil {
			return err
		}
		for _, u := range users {
			if err := tx.DeleteOrganizationUser(ctx, org.OrganizationID, u.UserID); err != nil && !errors.Is(err, store.ErrOrganizationUserNotFound) {
				return err
			}
		}
		return tx.DeleteOrganization(ctx, org.TenantID, org.OrganizationID)
	})
	if err != nil {
		return nil, storeError("delete organization", err)
	}

	s.apiKeysRevoked(ctx, revoked)
	s.metrics.OrganizationsDeletedTotal.Add(ctx, 1)
	log.Info().Str("organization_id", org.OrganizationID).Str("user_id", p.UserID).Msg("Deleted organization")

	return connect.NewResponse(&usersv1.DeleteResponse{
		Id:      org.OrganizationID,
		Object:  usersv1.ObjectOrganization,
		Deleted: true,
	}), nil
}

// CreateOrganizationUser adds a user to an organization.
func (s *UsersServer) CreateOrganizationUser(ctx context.Context, req *connect.Request[usersv1.CreateOrganizationUserRequest]) (*connect.Response[usersv1.OrganizationUser], error) {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}

	userID := models.NormalizeUserID(req.Msg.UserId)
	if userID == "" {
		return nil, invalidArgument("user id is required")
	}
	role := toOrganizationRole(req.Msg.Role)
	if !role.Valid() {
		return nil, invalidArgument("invalid organization role %q", req.Msg.Role)
	}

	org, err := getOrganization(ctx, s.store, p.TenantID, req.Msg.OrganizationId)
	if err != nil {
		return nil, err
	}
	callerRole, err := requireOrganizationRole(ctx, s.store, p, org, models.OrganizationRoleOwner)
	if err != nil {
		return nil, err
	}
	if !callerRole.AtLeast(role) {
		return nil, permissionDenied("cannot grant %s with role %s", role, callerRole)
	}

	if err := s.getTenantUser(ctx, userID, p.TenantID); err != nil {
		return nil, err
	}

	ou := &models.OrganizationUser{
		OrganizationID: org.OrganizationID,
		UserID:         userID,
		Role:           role,
		CreatedAt:      s.now(),
	}
	if err := s.store.CreateOrganizationUser(ctx, ou); err != nil {
		if errors.Is(err, store.ErrOrganizationUserAlreadyExists) {
			return nil, alreadyExists("user %q is already a member of organization %q", userID, org.OrganizationID)
		}
		return nil, storeError("create organization user", err)
	}

	s.metrics.RecordMembershipChange(ctx, "organization", "add")
	log.Info().
		Str("organization_id", org.OrganizationID).
		Str("user_id", userID).
		Str("role", string(role)).
		Msg("Added organization user")

	return connect.NewResponse(toOrganizationUserProto(ou)), nil
}

// getTenantUser returns NOT_FOUND unless userID is a user of tenantID.
func (s *UsersServer) getTenantUser(ctx context.Context, userID, tenantID string) error {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return notFound("user %q not found", userID)
		}
		return storeError("get user", err)
	}
	if u.TenantID != tenantID {
		return notFound("user %q not found", userID)
	}
	return nil
}

// ListOrganizationUsers lists the visible members of an organization.
func (s *UsersServer) ListOrganizationUsers(ctx context.Context, req *connect.Request[usersv1.ListOrganizationUsersRequest]) (*connect.Response[usersv1.ListOrganizationUsersResponse], error) {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}

	org, err := getOrganization(ctx, s.store, p.TenantID, req.Msg.OrganizationId)
	if err != nil {
		return nil, err
	}
	if _, err := requireOrganizationRole(ctx, s.store, p, org, models.OrganizationRoleReader); err != nil {
		return nil, err
	}

	users, err := s.store.ListOrganizationUsersByOrganization(ctx, org.OrganizationID)
	if err != nil {
		return nil, storeError("list organization users", err)
	}
	hidden, err := hiddenUsers(ctx, s.store, p.TenantID)
	if err != nil {
		return nil, err
	}

	resp := &usersv1.ListOrganizationUsersResponse{Users: []*usersv1.OrganizationUser{}}
	for _, u := range users {
		if hidden[u.UserID] {
			continue
		}
		resp.Users = append(resp.Users, toOrganizationUserProto(u))
	}
	return connect.NewResponse(resp), nil
}

// DeleteOrganizationUser removes a user from an organization and from every
// project of that organization.
func (s *UsersServer) DeleteOrganizationUser(ctx context.Context, req *connect.Request[usersv1.DeleteOrganizationUserRequest]) (*connect.Response[usersv1.DeleteResponse], error) {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}

	userID := models.NormalizeUserID(req.Msg.UserId)
	if userID == "" {
		return nil, invalidArgument("user id is required")
	}

	org, err := getOrganization(ctx, s.store, p.TenantID, req.Msg.OrganizationId)
	if err != nil {
		return nil, err
	}
	if _, err := requireOrganizationRole(ctx, s.store, p, org, models.OrganizationRoleOwner); err != nil {
		return nil, err
	}

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Repository) error {
		ou, err := tx.GetOrganizationUser(ctx, org.OrganizationID, userID)
		if err != nil {
			if errors.Is(err, store.ErrOrganizationUserNotFound) {
				return notFound("user %q is not a member of organization %q", userID, org.OrganizationID)
			}
			return err
		}

		serviceAccounts, err := serviceAccountUsers(ctx, tx, org.TenantID)
		if err != nil {
			return err
		}
		if ou.Role == models.OrganizationRoleOwner && !serviceAccounts[userID] {
			users, err := tx.ListOrganizationUsersByOrganization(ctx, org.OrganizationID)
			if err != nil {
				return err
			}
			if countOrganizationOwners(humanOrganizationUsers(users, serviceAccounts)) <= 1 {
				return failedPrecondition("cannot remove the last owner of organization %q", org.OrganizationID)
			}
		}

		projectUsers, err := tx.ListProjectUsersByOrganization(ctx, org.OrganizationID)
		if err != nil {
			return err
		}
		for _, pu := range projectUsers {
			if pu.UserID != userID {
				continue
			}
			if err := tx.DeleteProjectUser(ctx, pu.ProjectID, userID); err != nil {
				return err
			}
		}

		return tx.DeleteOrganizationUser(ctx, org.OrganizationID, userID)
	})
	if err != nil {
		return nil, storeError("delete organization user", err)
	}

	s.metrics.RecordMembershipChange(ctx, "organization", "remove")
	log.Info().
		Str("organization_id", org.OrganizationID).
		Str("user_id", userID).
		Msg("Removed organization user")

	return connect.NewResponse(&usersv1.DeleteResponse{
		Id:      userID,
		Object:  usersv1.ObjectOrganizationUser,
		Deleted: true,
	}), nil
}

func countOrganizationOwners(users []*models.OrganizationUser) int {
	n := 0
	for _, u := range users {
		if u.Role == models.OrganizationRoleOwner {
			n++
		}
	}
	return n
}

func countProjectOwners(users []*models.ProjectUser) int {
	n := 0
	for _, u := range users {
		if u.Role == models.ProjectRoleOwner {
			n++
		}
	}
	return n
}

// serviceAccountUsers returns the ids of the service account users of tenantID.
// Their bindings follow their keys and never count as members or owners.
func serviceAccountUsers(ctx context.Context, repo store.Repository, tenantID string) (map[string]bool, error) {
	users, err := repo.ListUsersByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	accounts := make(map[string]bool)
	for _, u := range users {
		if u.IsServiceAccount {
			accounts[u.UserID] = true
		}
	}
	return accounts, nil
}

func humanOrganizationUsers(users []*models.OrganizationUser, serviceAccounts map[string]bool) []*models.OrganizationUser {
	var out []*models.OrganizationUser
	for _, u := range users {
		if !serviceAccounts[u.UserID] {
			out = append(out, u)
		}
	}
	return out
}

func humanProjectUsers(users []*models.ProjectUser, serviceAccounts map[string]bool) []*models.ProjectUser {
	var out []*models.ProjectUser
	for _, u := range users {
		if !serviceAccounts[u.UserID] {
			out = append(out, u)
		}
	}
	return out
}

// hiddenUsers returns the ids of hidden users in tenantID.
func hiddenUsers(ctx context.Context, repo store.Repository, tenantID string) (map[string]bool, error) {
	users, err := repo.ListUsersByTenant(ctx, tenantID)
	if err != nil {
		return nil, storeError("list users", err)
	}
	hidden := make(map[string]bool)
	for _, u := range users {
		if u.Hidden {
			hidden[u.UserID] = true
		}
	}
	return hidden, nil
}
