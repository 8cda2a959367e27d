package store

import (
	"context"
	"errors"

	"github.com/wolfeidau/usermanager/internal/models"
)

// Sentinel errors returned by every Store implementation.
var (
	ErrUserNotFound                  = errors.New("user not found")
	ErrUserAlreadyExists             = errors.New("user already exists")
	ErrOrganizationNotFound          = errors.New("organization not found")
	ErrOrganizationAlreadyExists     = errors.New("organization already exists")
	ErrOrganizationUserNotFound      = errors.New("organization user not found")
	ErrOrganizationUserAlreadyExists = errors.New("organization user already exists")
	ErrProjectNotFound               = errors.New("project not found")
	ErrProjectAlreadyExists          = errors.New("project already exists")
	ErrProjectUserNotFound           = errors.New("project user not found")
	ErrProjectUserAlreadyExists      = errors.New("project user already exists")
	ErrAPIKeyNotFound                = errors.New("api key not found")
	ErrAPIKeyAlreadyExists           = errors.New("api key already exists")

	// ErrConflict is returned when a transaction lost a race with a concurrent
	// writer and was rolled back. The caller may retry the whole operation.
	ErrConflict = errors.New("transaction conflict")
)

// IsNotFound reports whether err is any of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrOrganizationNotFound) ||
		errors.Is(err, ErrOrganizationUserNotFound) ||
		errors.Is(err, ErrProjectNotFound) ||
		errors.Is(err, ErrProjectUserNotFound) ||
		errors.Is(err, ErrAPIKeyNotFound)
}

// IsAlreadyExists reports whether err is any of the already-exists sentinels.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrUserAlreadyExists) ||
		errors.Is(err, ErrOrganizationAlreadyExists) ||
		errors.Is(err, ErrOrganizationUserAlreadyExists) ||
		errors.Is(err, ErrProjectAlreadyExists) ||
		errors.Is(err, ErrProjectUserAlreadyExists) ||
		errors.Is(err, ErrAPIKeyAlreadyExists)
}

// Repository is the set of row-level operations over identity data.
// Implementations return copies; callers may mutate returned values freely.
// An empty tenantID on a List*ByTenant call lists across all tenants.
type Repository interface {
	UserRepository
	OrganizationRepository
	ProjectRepository
	APIKeyRepository
}

// UserRepository stores users.
type UserRepository interface {
	// CreateUser returns ErrUserAlreadyExists if the user id is taken.
	CreateUser(ctx context.Context, user *models.User) error
	// GetUser returns ErrUserNotFound if no user has the id.
	GetUser(ctx context.Context, userID string) (*models.User, error)
	ListUsersByTenant(ctx context.Context, tenantID string) ([]*models.User, error)
}

// OrganizationRepository stores organizations and their memberships.
type OrganizationRepository interface {
	// CreateOrganization returns ErrOrganizationAlreadyExists on a duplicate id, a duplicate
	// title within the tenant, or a second default organization for the tenant.
	CreateOrganization(ctx context.Context, org *models.Organization) error
	GetOrganization(ctx context.Context, tenantID, orgID string) (*models.Organization, error)
	GetOrganizationByTitle(ctx context.Context, tenantID, title string) (*models.Organization, error)
	GetDefaultOrganization(ctx context.Context, tenantID string) (*models.Organization, error)
	ListOrganizationsByTenant(ctx context.Context, tenantID string) ([]*models.Organization, error)
	DeleteOrganization(ctx context.Context, tenantID, orgID string) error

	// CreateOrganizationUser returns ErrOrganizationUserAlreadyExists if the binding exists.
	CreateOrganizationUser(ctx context.Context, ou *models.OrganizationUser) error
	GetOrganizationUser(ctx context.Context, orgID, userID string) (*models.OrganizationUser, error)
	ListOrganizationUsersByOrganization(ctx context.Context, orgID string) ([]*models.OrganizationUser, error)
	ListOrganizationUsersByUser(ctx context.Context, userID string) ([]*models.OrganizationUser, error)
	DeleteOrganizationUser(ctx context.Context, orgID, userID string) error
}

// ProjectRepository stores projects and their memberships.
type ProjectRepository interface {
	// CreateProject returns ErrProjectAlreadyExists on a duplicate id or title within the tenant.
	CreateProject(ctx context.Context, project *models.Project) error
	GetProject(ctx context.Context, tenantID, projectID string) (*models.Project, error)
	GetDefaultProject(ctx context.Context, tenantID string) (*models.Project, error)
	ListProjectsByOrganization(ctx context.Context, orgID string) ([]*models.Project, error)
	ListProjectsByTenant(ctx context.Context, tenantID string) ([]*models.Project, error)
	// UpdateProject overwrites the mutable columns (title, namespace, assignments).
	UpdateProject(ctx context.Context, project *models.Project) error
	DeleteProject(ctx context.Context, tenantID, projectID string) error

	CreateProjectUser(ctx context.Context, pu *models.ProjectUser) error
	GetProjectUser(ctx context.Context, projectID, userID string) (*models.ProjectUser, error)
	ListProjectUsersByProject(ctx context.Context, projectID string) ([]*models.ProjectUser, error)
	ListProjectUsersByUser(ctx context.Context, userID string) ([]*models.ProjectUser, error)
	ListProjectUsersByOrganization(ctx context.Context, orgID string) ([]*models.ProjectUser, error)
	DeleteProjectUser(ctx context.Context, projectID, userID string) error
}

// APIKeyRepository stores API key metadata. Secrets are never stored in plaintext.
type APIKeyRepository interface {
	// CreateAPIKey returns ErrAPIKeyAlreadyExists on a duplicate id, secret or name within the tenant.
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	GetAPIKey(ctx context.Context, apiKeyID string) (*models.APIKey, error)
	GetAPIKeyBySecretHash(ctx context.Context, secretHash string) (*models.APIKey, error)
	GetAPIKeyByName(ctx context.Context, tenantID, name string) (*models.APIKey, error)
	ListAPIKeysByTenant(ctx context.Context, tenantID string) ([]*models.APIKey, error)
	ListAPIKeysByProject(ctx context.Context, projectID string) ([]*models.APIKey, error)
	// UpdateAPIKey overwrites the mutable columns (name, excluded_from_rate_limiting).
	UpdateAPIKey(ctx context.Context, key *models.APIKey) error
	DeleteAPIKey(ctx context.Context, apiKeyID string) error
}

// Store is a Repository that can run a group of operations atomically.
type Store interface {
	Repository

	// RunInTx runs fn against a transactional Repository. If fn returns an error
	// no change made through tx is visible to any other caller.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Repository) error) error
}
