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

// CreateAPIKey issues a key scoped to an organization and optionally a project.
// The caller must own the scope. The plaintext secret is only ever returned here.
func (s *UsersServer) CreateAPIKey(ctx context.Context, req *connect.Request[usersv1.CreateAPIKeyRequest]) (*connect.Response[usersv1.APIKey], error) {
	k, err := s.createAPIKey(ctx, req.Msg)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(k), nil
}

// CreateProjectAPIKey issues a project scoped key.
func (s *UsersServer) CreateProjectAPIKey(ctx context.Context, req *connect.Request[usersv1.CreateAPIKeyRequest]) (*connect.Response[usersv1.APIKey], error) {
	if req.Msg.ProjectId == "" {
		return nil, invalidArgument("project id is required")
	}
	return s.CreateAPIKey(ctx, req)
}

func (s *UsersServer) createAPIKey(ctx context.Context, msg *usersv1.CreateAPIKeyRequest) (*usersv1.APIKey, error) {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(msg.Name)
	if name == "" {
		return nil, invalidArgument("name is required")
	}

	org, err := getOrganization(ctx, s.store, p.TenantID, msg.OrganizationId)
	if err != nil {
		return nil, err
	}
	callerOrgRole, err := organizationRole(ctx, s.store, org.OrganizationID, p.UserID)
	if err != nil {
		return nil, err
	}

	key := &models.APIKey{
		TenantID:                 p.TenantID,
		Name:                     name,
		UserID:                   p.UserID,
		OrganizationID:           org.OrganizationID,
		ProjectRole:              models.ProjectRoleUnspecified,
		IsServiceAccount:         msg.IsServiceAccount,
		ExcludedFromRateLimiting: msg.ExcludedFromRateLimiting,
		CreatedAt:                s.now(),
	}

	var project *models.Project
	if msg.ProjectId != "" {
		project, err = getProject(ctx, s.store, p.TenantID, org.OrganizationID, msg.ProjectId)
		if err != nil {
			return nil, err
		}
		_, callerProjectRole, err := requireProjectRole(ctx, s.store, p, project, models.ProjectRoleOwner)
		if err != nil {
			return nil, err
		}
		key.ProjectID = project.ProjectID
		if key.ProjectRole, err = grantProjectRole(toProjectRole(msg.ProjectRole), callerProjectRole); err != nil {
			return nil, err
		}
	} else {
		if _, err := requireOrganizationRole(ctx, s.store, p, org, models.OrganizationRoleOwner); err != nil {
			return nil, err
		}
		if r := toProjectRole(msg.ProjectRole); r != models.ProjectRoleUnspecified {
			return nil, invalidArgument("project role requires a project id")
		}
	}

	if key.OrganizationRole, err = grantOrganizationRole(toOrganizationRole(msg.OrganizationRole), callerOrgRole); err != nil {
		return nil, err
	}

	if key.IsServiceAccount && !callerOrgRole.AtLeast(models.OrganizationRoleOwner) {
		return nil, permissionDenied("service account keys require role %s on organization %q", models.OrganizationRoleOwner, org.OrganizationID)
	}

	if key.APIKeyID, err = ids.NewAPIKeyID(); err != nil {
		return nil, internalError("generate api key id: %s", err)
	}
	secret, err := ids.NewSecret()
	if err != nil {
		return nil, internalError("generate api key secret: %s", err)
	}
	key.SecretHash = ids.HashSecret(secret)
	key.SecretHint = ids.ObfuscateSecret(secret)

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Repository) error {
		if key.IsServiceAccount {
			if err := s.createServiceAccountTx(ctx, tx, key); err != nil {
				return err
			}
		}
		return tx.CreateAPIKey(ctx, key)
	})
	if err != nil {
		if errors.Is(err, store.ErrAPIKeyAlreadyExists) {
			return nil, alreadyExists("api key %q already exists", name)
		}
		return nil, storeError("create api key", err)
	}

	s.metrics.APIKeysIssuedTotal.Add(ctx, 1)
	log.Info().
		Str("api_key_id", key.APIKeyID).
		Str("organization_id", key.OrganizationID).
		Str("project_id", key.ProjectID).
		Str("user_id", key.UserID).
		Bool("service_account", key.IsServiceAccount).
		Msg("Issued API key")

	return toAPIKeyProto(key, secret, org, project), nil
}

// grantOrganizationRole resolves the requested role against the caller's. An
// unspecified request inherits the caller's role.
func grantOrganizationRole(requested, caller models.OrganizationRole) (models.OrganizationRole, error) {
	if requested == models.OrganizationRoleUnspecified {
		return caller, nil
	}
	if !requested.Valid() {
		return "", invalidArgument("invalid organization role %q", requested)
	}
	if !caller.AtLeast(requested) {
		return "", permissionDenied("cannot issue a key with role %s", requested)
	}
	return requested, nil
}

func grantProjectRole(requested, caller models.ProjectRole) (models.ProjectRole, error) {
	if requested == models.ProjectRoleUnspecified {
		return caller, nil
	}
	if !requested.Valid() {
		return "", invalidArgument("invalid project role %q", requested)
	}
	if !caller.AtLeast(requested) {
		return "", permissionDenied("cannot issue a key with role %s", requested)
	}
	return requested, nil
}

// createServiceAccountTx creates the hidden user that owns a service account key
// and binds it with the key's roles.
func (s *UsersServer) createServiceAccountTx(ctx context.Context, tx store.Repository, key *models.APIKey) error {
	internalID, err := ids.NewInternalUserID()
	if err != nil {
		return internalError("%s", err)
	}

	key.UserID = ids.ServiceUserID(key.APIKeyID)
	if err := tx.CreateUser(ctx, &models.User{
		UserID:           key.UserID,
		TenantID:         key.TenantID,
		InternalUserID:   internalID,
		IsServiceAccount: true,
		Hidden:           true,
		CreatedAt:        key.CreatedAt,
	}); err != nil {
		return err
	}

	if err := tx.CreateOrganizationUser(ctx, &models.OrganizationUser{
		OrganizationID: key.OrganizationID,
		UserID:         key.UserID,
		Role:           key.OrganizationRole,
		CreatedAt:      key.CreatedAt,
	}); err != nil {
		return err
	}

	if key.ProjectID == "" {
		return nil
	}
	return tx.CreateProjectUser(ctx, &models.ProjectUser{
		ProjectID:      key.ProjectID,
		OrganizationID: key.OrganizationID,
		UserID:         key.UserID,
		Role:           key.ProjectRole,
		CreatedAt:      key.CreatedAt,
	})
}

// ListAPIKeys lists keys visible to the caller. Owners of a scope see every key
// in it; everyone else sees only their own keys. Secrets are never returned.
func (s *UsersServer) ListAPIKeys(ctx context.Context, req *connect.Request[usersv1.ListAPIKeysRequest]) (*connect.Response[usersv1.ListAPIKeysResponse], error) {
	resp, err := s.listAPIKeys(ctx, req.Msg)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

// ListProjectAPIKeys lists the visible keys of one project.
func (s *UsersServer) ListProjectAPIKeys(ctx context.Context, req *connect.Request[usersv1.ListAPIKeysRequest]) (*connect.Response[usersv1.ListAPIKeysResponse], error) {
	if req.Msg.ProjectId == "" {
		return nil, invalidArgument("project id is required")
	}
	return s.ListAPIKeys(ctx, req)
}

func (s *UsersServer) listAPIKeys(ctx context.Context, msg *usersv1.ListAPIKeysRequest) (*usersv1.ListAPIKeysResponse, error) {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}

	var keys []*models.APIKey
	switch {
	case msg.ProjectId != "":
		project, err := getProject(ctx, s.store, p.TenantID, msg.OrganizationId, msg.ProjectId)
		if err != nil {
			return nil, err
		}
		if _, _, err := requireProjectRole(ctx, s.store, p, project, models.ProjectRoleMember); err != nil {
			return nil, err
		}
		if keys, err = s.store.ListAPIKeysByProject(ctx, project.ProjectID); err != nil {
			return nil, storeError("list api keys", err)
		}
	case msg.OrganizationId != "":
		org, err := getOrganization(ctx, s.store, p.TenantID, msg.OrganizationId)
		if err != nil {
			return nil, err
		}
		if _, err := requireOrganizationRole(ctx, s.store, p, org, models.OrganizationRoleReader); err != nil {
			return nil, err
		}
		all, err := s.store.ListAPIKeysByTenant(ctx, p.TenantID)
		if err != nil {
			return nil, storeError("list api keys", err)
		}
		for _, k := range all {
			if k.OrganizationID == org.OrganizationID {
				keys = append(keys, k)
			}
		}
	default:
		if keys, err = s.store.ListAPIKeysByTenant(ctx, p.TenantID); err != nil {
			return nil, storeError("list api keys", err)
		}
	}

	access := newKeyAccess(s.store, p)
	resp := &usersv1.ListAPIKeysResponse{Object: usersv1.ObjectList, Data: []*usersv1.APIKey{}}
	for _, k := range keys {
		ok, err := access.canManage(ctx, k)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		resp.Data = append(resp.Data, toAPIKeyProto(k, k.SecretHint, access.organization(ctx, k), access.project(ctx, k)))
	}
	return resp, nil
}

// UpdateAPIKey changes the name or rate limit exemption of a key.
func (s *UsersServer) UpdateAPIKey(ctx context.Context, req *connect.Request[usersv1.UpdateAPIKeyRequest]) (*connect.Response[usersv1.APIKey], error) {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}

	in := req.Msg.ApiKey
	if in == nil || in.Id == "" {
		return nil, invalidArgument("api key id is required")
	}
	paths, err := normalizeMask(req.Msg.UpdateMask, apiKeyMaskPaths)
	if err != nil {
		return nil, err
	}

	access := newKeyAccess(s.store, p)
	key, err := access.get(ctx, in.Id)
	if err != nil {
		return nil, err
	}

	for _, path := range paths {
		switch path {
		case "name":
			name := strings.TrimSpace(in.Name)
			if name == "" {
				return nil, invalidArgument("name is required")
			}
			key.Name = name
		case "excluded_from_rate_limiting":
			key.ExcludedFromRateLimiting = in.ExcludedFromRateLimiting
		}
	}

	if err := s.store.UpdateAPIKey(ctx, key); err != nil {
		if errors.Is(err, store.ErrAPIKeyAlreadyExists) {
			return nil, alreadyExists("api key %q already exists", key.Name)
		}
		return nil, storeError("update api key", err)
	}
	s.keys.APIKeyUpdated(key)

	log.Info().Str("api_key_id", key.APIKeyID).Strs("paths", paths).Msg("Updated API key")

	return connect.NewResponse(toAPIKeyProto(key, key.SecretHint, access.organization(ctx, key), access.project(ctx, key))), nil
}

// DeleteAPIKey revokes a key. Unknown keys and keys the caller cannot manage
// are both reported as not found.
func (s *UsersServer) DeleteAPIKey(ctx context.Context, req *connect.Request[usersv1.DeleteAPIKeyRequest]) (*connect.Response[usersv1.DeleteResponse], error) {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if req.Msg.Id == "" {
		return nil, invalidArgument("id is required")
	}

	key, err := newKeyAccess(s.store, p).get(ctx, req.Msg.Id)
	if err != nil {
		return nil, err
	}
	if (req.Msg.OrganizationId != "" && key.OrganizationID != req.Msg.OrganizationId) ||
		(req.Msg.ProjectId != "" && key.ProjectID != req.Msg.ProjectId) {
		return nil, notFound("api key %q not found", req.Msg.Id)
	}

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Repository) error {
		return revokeAPIKeysTx(ctx, tx, []*models.APIKey{key})
	})
	if err != nil {
		if errors.Is(err, store.ErrAPIKeyNotFound) {
			return nil, notFound("api key %q not found", req.Msg.Id)
		}
		return nil, storeError("delete api key", err)
	}

	s.apiKeysRevoked(ctx, []*models.APIKey{key})
	log.Info().Str("api_key_id", key.APIKeyID).Str("user_id", p.UserID).Msg("Revoked API key")

	return connect.NewResponse(&usersv1.DeleteResponse{
		Id:      key.APIKeyID,
		Object:  usersv1.ObjectAPIKeyDeleted,
		Deleted: true,
	}), nil
}

// DeleteProjectAPIKey revokes a key of one project.
func (s *UsersServer) DeleteProjectAPIKey(ctx context.Context, req *connect.Request[usersv1.DeleteAPIKeyRequest]) (*connect.Response[usersv1.DeleteResponse], error) {
	if req.Msg.ProjectId == "" {
		return nil, invalidArgument("project id is required")
	}
	return s.DeleteAPIKey(ctx, req)
}

// revokeAPIKeysTx deletes keys along with the bindings of their service account users.
func revokeAPIKeysTx(ctx context.Context, tx store.Repository, keys []*models.APIKey) error {
	for _, k := range keys {
		if k.IsServiceAccount {
			if k.ProjectID != "" {
				if err := tx.DeleteProjectUser(ctx, k.ProjectID, k.UserID); err != nil && !errors.Is(err, store.ErrProjectUserNotFound) {
					return err
				}
			}
			if err := tx.DeleteOrganizationUser(ctx, k.OrganizationID, k.UserID); err != nil && !errors.Is(err, store.ErrOrganizationUserNotFound) {
				return err
			}
		}
		if err := tx.DeleteAPIKey(ctx, k.APIKeyID); err != nil {
			return err
		}
	}
	return nil
}

// apiKeysRevoked notifies observers once the revoking transaction has committed.
func (s *UsersServer) apiKeysRevoked(ctx context.Context, keys []*models.APIKey) {
	for _, k := range keys {
		s.keys.APIKeyDeleted(k)
	}
	if len(keys) > 0 {
		s.metrics.APIKeysRevokedTotal.Add(ctx, int64(len(keys)))
	}
}

// keyAccess memoises the lookups needed to decide key visibility within one request.
type keyAccess struct {
	repo      store.Repository
	principal *auth.Principal

	orgRoles     map[string]models.OrganizationRole
	projectRoles map[string]models.ProjectRole
	orgs         map[string]*models.Organization
	projects     map[string]*models.Project
}

func newKeyAccess(repo store.Repository, p *auth.Principal) *keyAccess {
	return &keyAccess{
		repo:         repo,
		principal:    p,
		orgRoles:     make(map[string]models.OrganizationRole),
		projectRoles: make(map[string]models.ProjectRole),
		orgs:         make(map[string]*models.Organization),
		projects:     make(map[string]*models.Project),
	}
}

// get returns a key the caller may manage, or NOT_FOUND.
func (a *keyAccess) get(ctx context.Context, apiKeyID string) (*models.APIKey, error) {
	key, err := a.repo.GetAPIKey(ctx, apiKeyID)
	if err != nil {
		if errors.Is(err, store.ErrAPIKeyNotFound) {
			return nil, notFound("api key %q not found", apiKeyID)
		}
		return nil, storeError("get api key", err)
	}
	if key.TenantID != a.principal.TenantID {
		return nil, notFound("api key %q not found", apiKeyID)
	}
	ok, err := a.canManage(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("api key %q not found", apiKeyID)
	}
	return key, nil
}

// canManage reports whether the caller owns the key or owns its scope.
func (a *keyAccess) canManage(ctx context.Context, k *models.APIKey) (bool, error) {
	if k.UserID == a.principal.UserID {
		return true, nil
	}

	orgRole, ok := a.orgRoles[k.OrganizationID]
	if !ok {
		var err error
		if orgRole, err = organizationRole(ctx, a.repo, k.OrganizationID, a.principal.UserID); err != nil {
			return false, err
		}
		a.orgRoles[k.OrganizationID] = orgRole
	}
	if orgRole != models.OrganizationRoleUnspecified && orgRole.AtLeast(models.OrganizationRoleOwner) {
		return true, nil
	}
	if k.ProjectID == "" {
		return false, nil
	}

	projectRole, ok := a.projectRoles[k.ProjectID]
	if !ok {
		projectRole = models.ProjectRoleUnspecified
		pu, err := a.repo.GetProjectUser(ctx, k.ProjectID, a.principal.UserID)
		switch {
		case err == nil:
			projectRole = pu.Role
		case !errors.Is(err, store.ErrProjectUserNotFound):
			return false, storeError("get project user", err)
		}
		a.projectRoles[k.ProjectID] = projectRole
	}
	return projectRole == models.ProjectRoleOwner, nil
}

// organization returns the key's organization, or nil if it cannot be loaded.
func (a *keyAccess) organization(ctx context.Context, k *models.APIKey) *models.Organization {
	if org, ok := a.orgs[k.OrganizationID]; ok {
		return org
	}
	org, err := a.repo.GetOrganization(ctx, k.TenantID, k.OrganizationID)
	if err != nil {
		org = nil
	}
	a.orgs[k.OrganizationID] = org
	return org
}

func (a *keyAccess) project(ctx context.Context, k *models.APIKey) *models.Project {
	if k.ProjectID == "" {
		return nil
	}
	if p, ok := a.projects[k.ProjectID]; ok {
		return p
	}
	p, err := a.repo.GetProject(ctx, k.TenantID, k.ProjectID)
	if err != nil {
		p = nil
	}
	a.projects[k.ProjectID] = p
	return p
}
