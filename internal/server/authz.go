package server

import (
	"context"
	"errors"

	"github.com/wolfeidau/usermanager/internal/auth"
	"github.com/wolfeidau/usermanager/internal/models"
	"github.com/wolfeidau/usermanager/internal/store"
)

// Resources in another tenant, or that the caller holds no role on, are reported
// as not found so their existence is not leaked.

func getOrganization(ctx context.Context, repo store.Repository, tenantID, orgID string) (*models.Organization, error) {
	if orgID == "" {
		return nil, invalidArgument("organization id is required")
	}
	org, err := repo.GetOrganization(ctx, tenantID, orgID)
	if err != nil {
		if errors.Is(err, store.ErrOrganizationNotFound) {
			return nil, notFound("organization %q not found", orgID)
		}
		return nil, storeError("get organization", err)
	}
	return org, nil
}

func getProject(ctx context.Context, repo store.Repository, tenantID, orgID, projectID string) (*models.Project, error) {
	if projectID == "" {
		return nil, invalidArgument("project id is required")
	}
	project, err := repo.GetProject(ctx, tenantID, projectID)
	if err != nil {
		if errors.Is(err, store.ErrProjectNotFound) {
			return nil, notFound("project %q not found", projectID)
		}
		return nil, storeError("get project", err)
	}
	if orgID != "" && project.OrganizationID != orgID {
		return nil, notFound("project %q not found", projectID)
	}
	return project, nil
}

// organizationRole returns the user's role in the org, or unspecified if the
// user is not a member.
func organizationRole(ctx context.Context, repo store.Repository, orgID, userID string) (models.OrganizationRole, error) {
	ou, err := repo.GetOrganizationUser(ctx, orgID, userID)
	if err != nil {
		if errors.Is(err, store.ErrOrganizationUserNotFound) {
			return models.OrganizationRoleUnspecified, nil
		}
		return "", storeError("get organization user", err)
	}
	return ou.Role, nil
}

// projectRoles returns the user's org role and effective project role. An org
// owner is treated as a project owner of every project in the org.
func projectRoles(ctx context.Context, repo store.Repository, project *models.Project, userID string) (models.OrganizationRole, models.ProjectRole, error) {
	orgRole, err := organizationRole(ctx, repo, project.OrganizationID, userID)
	if err != nil {
		return "", "", err
	}

	projectRole := models.ProjectRoleUnspecified
	pu, err := repo.GetProjectUser(ctx, project.ProjectID, userID)
	switch {
	case err == nil:
		projectRole = pu.Role
	case !errors.Is(err, store.ErrProjectUserNotFound):
		return "", "", storeError("get project user", err)
	}

	if orgRole != models.OrganizationRoleUnspecified && orgRole.AtLeast(models.OrganizationRoleOwner) {
		projectRole = models.ProjectRoleOwner
	}
	return orgRole, projectRole, nil
}

func requireOrganizationRole(ctx context.Context, repo store.Repository, p *auth.Principal, org *models.Organization, min models.OrganizationRole) (models.OrganizationRole, error) {
	role, err := organizationRole(ctx, repo, org.OrganizationID, p.UserID)
	if err != nil {
		return "", err
	}
	if role == models.OrganizationRoleUnspecified {
		return "", notFound("organization %q not found", org.OrganizationID)
	}
	if !role.AtLeast(min) {
		return "", permissionDenied("role %s required on organization %q", min, org.OrganizationID)
	}
	return role, nil
}

func requireProjectRole(ctx context.Context, repo store.Repository, p *auth.Principal, project *models.Project, min models.ProjectRole) (models.OrganizationRole, models.ProjectRole, error) {
	orgRole, projectRole, err := projectRoles(ctx, repo, project, p.UserID)
	if err != nil {
		return "", "", err
	}
	if projectRole == models.ProjectRoleUnspecified {
		return "", "", notFound("project %q not found", project.ProjectID)
	}
	if !projectRole.AtLeast(min) {
		return "", "", permissionDenied("role %s required on project %q", min, project.ProjectID)
	}
	return orgRole, projectRole, nil
}

// isTenantSystem reports whether the caller holds TENANT_SYSTEM on any
// organization of its tenant.
func isTenantSystem(ctx context.Context, repo store.Repository, p *auth.Principal) (bool, error) {
	bindings, err := repo.ListOrganizationUsersByUser(ctx, p.UserID)
	if err != nil {
		return false, storeError("list organization users", err)
	}
	for _, b := range bindings {
		if b.Role != models.OrganizationRoleTenantSystem {
			continue
		}
		if _, err := repo.GetOrganization(ctx, p.TenantID, b.OrganizationID); err == nil {
			return true, nil
		}
	}
	return false, nil
}
