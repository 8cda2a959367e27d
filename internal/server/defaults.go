package server

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/usermanager/internal/config"
	"github.com/wolfeidau/usermanager/internal/ids"
	"github.com/wolfeidau/usermanager/internal/models"
	"github.com/wolfeidau/usermanager/internal/store"
)

// EnsureDefaultOrganization creates the configured organization unless the
// tenant already has one with the same title, which is returned unchanged.
// Every configured user becomes an owner.
func (s *UsersServer) EnsureDefaultOrganization(ctx context.Context, c *config.DefaultOrganization) (*models.Organization, error) {
	title := strings.TrimSpace(c.Title)

	org, err := s.store.GetOrganizationByTitle(ctx, c.TenantID, title)
	if err == nil {
		return org, nil
	}
	if !errors.Is(err, store.ErrOrganizationNotFound) {
		return nil, fmt.Errorf("get organization %q: %w", title, err)
	}

	userIDs := make([]string, 0, len(c.UserIDs))
	for _, id := range c.UserIDs {
		userIDs = append(userIDs, models.NormalizeUserID(id))
	}

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Repository) error {
		for _, id := range userIDs {
			if err := s.ensureUser(ctx, tx, id, c.TenantID); err != nil {
				return err
			}
		}

		hasDefault, err := hasDefaultOrganization(ctx, tx, c.TenantID)
		if err != nil {
			return err
		}
		if org, err = s.newOrganization(c.TenantID, title, !hasDefault); err != nil {
			return err
		}
		if err := s.createOrganizationTx(ctx, tx, org, userIDs[0]); err != nil {
			return err
		}
		for _, id := range userIDs[1:] {
			err := tx.CreateOrganizationUser(ctx, &models.OrganizationUser{
				OrganizationID: org.OrganizationID,
				UserID:         id,
				Role:           models.OrganizationRoleOwner,
				CreatedAt:      org.CreatedAt,
			})
			if err != nil && !errors.Is(err, store.ErrOrganizationUserAlreadyExists) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create default organization: %w", err)
	}

	s.metrics.OrganizationsCreatedTotal.Add(ctx, 1)
	log.Info().
		Str("organization_id", org.OrganizationID).
		Str("tenant_id", org.TenantID).
		Str("title", org.Title).
		Msg("Created default organization")

	return org, nil
}

// EnsureDefaultProject creates the configured project in org unless the tenant
// already has a default project.
func (s *UsersServer) EnsureDefaultProject(ctx context.Context, c *config.DefaultProject, org *models.Organization) (*models.Project, error) {
	project, err := s.store.GetDefaultProject(ctx, org.TenantID)
	if err == nil {
		return project, nil
	}
	if !errors.Is(err, store.ErrProjectNotFound) {
		return nil, fmt.Errorf("get default project: %w", err)
	}

	if err := validateNamespace(c.KubernetesNamespace); err != nil {
		return nil, err
	}

	project, err = s.newProject(org, strings.TrimSpace(c.Title), c.KubernetesNamespace,
		[]models.ProjectAssignment{{Namespace: c.KubernetesNamespace}}, true)
	if err != nil {
		return nil, err
	}

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Repository) error {
		return s.createProjectTx(ctx, tx, project)
	})
	if err != nil {
		return nil, fmt.Errorf("create default project: %w", err)
	}

	s.metrics.ProjectsCreatedTotal.Add(ctx, 1)
	log.Info().
		Str("project_id", project.ProjectID).
		Str("organization_id", org.OrganizationID).
		Str("title", project.Title).
		Msg("Created default project")

	return project, nil
}

// EnsureDefaultAPIKey issues the configured key unless the tenant already has a
// key with the same name. The key inherits the user's current roles in org and,
// when project is non-nil, in project. A configured secret is used verbatim.
func (s *UsersServer) EnsureDefaultAPIKey(ctx context.Context, c *config.DefaultAPIKey, org *models.Organization, project *models.Project) (*models.APIKey, error) {
	name := strings.TrimSpace(c.Name)

	key, err := s.store.GetAPIKeyByName(ctx, org.TenantID, name)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, store.ErrAPIKeyNotFound) {
		return nil, fmt.Errorf("get api key %q: %w", name, err)
	}

	userID := models.NormalizeUserID(c.UserID)
	orgRole, err := organizationRole(ctx, s.store, org.OrganizationID, userID)
	if err != nil {
		return nil, err
	}
	if orgRole == models.OrganizationRoleUnspecified {
		return nil, fmt.Errorf("user %q is not a member of organization %q", userID, org.OrganizationID)
	}

	key = &models.APIKey{
		TenantID:         org.TenantID,
		Name:             name,
		UserID:           userID,
		OrganizationID:   org.OrganizationID,
		OrganizationRole: orgRole,
		ProjectRole:      models.ProjectRoleUnspecified,
		CreatedAt:        s.now(),
	}
	if project != nil {
		_, projRole, err := projectRoles(ctx, s.store, project, userID)
		if err != nil {
			return nil, err
		}
		if projRole == models.ProjectRoleUnspecified {
			return nil, fmt.Errorf("user %q is not a member of project %q", userID, project.ProjectID)
		}
		key.ProjectID = project.ProjectID
		key.ProjectRole = projRole
	}

	secret := c.Secret
	if secret == "" {
		if secret, err = ids.NewSecret(); err != nil {
			return nil, err
		}
	}
	if key.APIKeyID, err = ids.NewAPIKeyID(); err != nil {
		return nil, err
	}
	key.SecretHash = ids.HashSecret(secret)
	key.SecretHint = ids.ObfuscateSecret(secret)

	if err := s.store.CreateAPIKey(ctx, key); err != nil {
		return nil, fmt.Errorf("create default api key: %w", err)
	}

	s.metrics.APIKeysIssuedTotal.Add(ctx, 1)
	log.Info().
		Str("api_key_id", key.APIKeyID).
		Str("organization_id", key.OrganizationID).
		Str("project_id", key.ProjectID).
		Str("user_id", key.UserID).
		Msg("Issued default API key")

	return key, nil
}
