package bootstrap

import (
	"context"

	"github.com/wolfeidau/usermanager/internal/config"
	"github.com/wolfeidau/usermanager/internal/models"
)

// Seeder creates default resources. It is implemented by *server.UsersServer.
type Seeder interface {
	EnsureDefaultOrganization(ctx context.Context, c *config.DefaultOrganization) (*models.Organization, error)
	EnsureDefaultProject(ctx context.Context, c *config.DefaultProject, org *models.Organization) (*models.Project, error)
	EnsureDefaultAPIKey(ctx context.Context, c *config.DefaultAPIKey, org *models.Organization, project *models.Project) (*models.APIKey, error)
}

// Resources holds identifiers for the seeded resources.
type Resources struct {
	OrganizationID string
	ProjectID      string

	// API key ids by configured name
	APIKeyIDs map[string]string
}
