package bootstrap

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/usermanager/internal/config"
	"github.com/wolfeidau/usermanager/internal/models"
)

// Bootstrap seeds the default organization, project and API keys described by
// cfg. Resources that already exist are left untouched, so it is safe to run on
// every start.
func Bootstrap(ctx context.Context, seeder Seeder, cfg *config.Config) (*Resources, error) {
	resources := &Resources{
		APIKeyIDs: make(map[string]string),
	}
	if cfg == nil || cfg.DefaultOrganization == nil {
		return resources, nil
	}

	org, err := seeder.EnsureDefaultOrganization(ctx, cfg.DefaultOrganization)
	if err != nil {
		return nil, fmt.Errorf("failed to create default organization: %w", err)
	}
	resources.OrganizationID = org.OrganizationID

	var project *models.Project
	if cfg.DefaultProject != nil {
		project, err = seeder.EnsureDefaultProject(ctx, cfg.DefaultProject, org)
		if err != nil {
			return nil, fmt.Errorf("failed to create default project: %w", err)
		}
		resources.ProjectID = project.ProjectID
	}

	for i := range cfg.DefaultAPIKeys {
		c := &cfg.DefaultAPIKeys[i]
		key, err := seeder.EnsureDefaultAPIKey(ctx, c, org, project)
		if err != nil {
			return nil, fmt.Errorf("failed to create default api key %q: %w", c.Name, err)
		}
		resources.APIKeyIDs[c.Name] = key.APIKeyID
	}

	log.Info().
		Str("organization_id", resources.OrganizationID).
		Str("project_id", resources.ProjectID).
		Int("api_keys", len(resources.APIKeyIDs)).
		Msg("Bootstrap complete")

	return resources, nil
}
