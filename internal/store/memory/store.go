package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/wolfeidau/usermanager/internal/models"
	"github.com/wolfeidau/usermanager/internal/store"
)

var (
	_ store.Store      = (*Store)(nil)
	_ store.Repository = (*dataset)(nil)
)

// Store implements store.Store using in-memory storage.
// This implementation is for testing and development only - data is lost on restart.
//
// Stored values are never mutated in place: writes replace map entries with fresh
// copies, so a transaction can snapshot the maps cheaply and swap them in on commit.
type Store struct {
	mu   sync.RWMutex
	data *dataset
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{data: newDataset()}
}

type orgUserKey struct {
	orgID  string
	userID string
}

type projectUserKey struct {
	projectID string
	userID    string
}

type dataset struct {
	users        map[string]*models.User
	orgs         map[string]*models.Organization
	orgUsers     map[orgUserKey]*models.OrganizationUser
	projects     map[string]*models.Project
	projectUsers map[projectUserKey]*models.ProjectUser
	apiKeys      map[string]*models.APIKey
}

func newDataset() *dataset {
	return &dataset{
		users:        make(map[string]*models.User),
		orgs:         make(map[string]*models.Organization),
		orgUsers:     make(map[orgUserKey]*models.OrganizationUser),
		projects:     make(map[string]*models.Project),
		projectUsers: make(map[projectUserKey]*models.ProjectUser),
		apiKeys:      make(map[string]*models.APIKey),
	}
}

func (d *dataset) clone() *dataset {
	return &dataset{
		users:        maps.Clone(d.users),
		orgs:         maps.Clone(d.orgs),
		orgUsers:     maps.Clone(d.orgUsers),
		projects:     maps.Clone(d.projects),
		projectUsers: maps.Clone(d.projectUsers),
		apiKeys:      maps.Clone(d.apiKeys),
	}
}

// RunInTx runs fn against a snapshot of the data and publishes the snapshot only
// if fn succeeds. Writers are serialised for the duration of fn.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(ctx, snapshot); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.data = snapshot
	return nil
}

// Users

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.CreateUser(ctx, user)
}

func (s *Store) GetUser(ctx context.Context, userID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.GetUser(ctx, userID)
}

func (s *Store) ListUsersByTenant(ctx context.Context, tenantID string) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ListUsersByTenant(ctx, tenantID)
}

// Organizations

func (s *Store) CreateOrganization(ctx context.Context, org *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.CreateOrganization(ctx, org)
}

func (s *Store) GetOrganization(ctx context.Context, tenantID, orgID string) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.GetOrganization(ctx, tenantID, orgID)
}

func (s *Store) GetOrganizationByTitle(ctx context.Context, tenantID, title string) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.GetOrganizationByTitle(ctx, tenantID, title)
}

func (s *Store) GetDefaultOrganization(ctx context.Context, tenantID string) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.GetDefaultOrganization(ctx, tenantID)
}

func (s *Store) ListOrganizationsByTenant(ctx context.Context, tenantID string) ([]*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ListOrganizationsByTenant(ctx, tenantID)
}

func (s *Store) DeleteOrganization(ctx context.Context, tenantID, orgID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.DeleteOrganization(ctx, tenantID, orgID)
}

func (s *Store) CreateOrganizationUser(ctx context.Context, ou *models.OrganizationUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.CreateOrganizationUser(ctx, ou)
}

func (s *Store) GetOrganizationUser(ctx context.Context, orgID, userID string) (*models.OrganizationUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.GetOrganizationUser(ctx, orgID, userID)
}

func (s *Store) ListOrganizationUsersByOrganization(ctx context.Context, orgID string) ([]*models.OrganizationUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ListOrganizationUsersByOrganization(ctx, orgID)
}

func (s *Store) ListOrganizationUsersByUser(ctx context.Context, userID string) ([]*models.OrganizationUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ListOrganizationUsersByUser(ctx, userID)
}

func (s *Store) DeleteOrganizationUser(ctx context.Context, orgID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.DeleteOrganizationUser(ctx, orgID, userID)
}

// Projects

func (s *Store) CreateProject(ctx context.Context, project *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.CreateProject(ctx, project)
}

func (s *Store) GetProject(ctx context.Context, tenantID, projectID string) (*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.GetProject(ctx, tenantID, projectID)
}

func (s *Store) GetDefaultProject(ctx context.Context, tenantID string) (*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.GetDefaultProject(ctx, tenantID)
}

func (s *Store) ListProjectsByOrganization(ctx context.Context, orgID string) ([]*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ListProjectsByOrganization(ctx, orgID)
}

func (s *Store) ListProjectsByTenant(ctx context.Context, tenantID string) ([]*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ListProjectsByTenant(ctx, tenantID)
}

func (s *Store) UpdateProject(ctx context.Context, project *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.UpdateProject(ctx, project)
}

func (s *Store) DeleteProject(ctx context.Context, tenantID, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.DeleteProject(ctx, tenantID, projectID)
}

func (s *Store) CreateProjectUser(ctx context.Context, pu *models.ProjectUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.CreateProjectUser(ctx, pu)
}

func (s *Store) GetProjectUser(ctx context.Context, projectID, userID string) (*models.ProjectUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.GetProjectUser(ctx, projectID, userID)
}

func (s *Store) ListProjectUsersByProject(ctx context.Context, projectID string) ([]*models.ProjectUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ListProjectUsersByProject(ctx, projectID)
}

func (s *Store) ListProjectUsersByUser(ctx context.Context, userID string) ([]*models.ProjectUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ListProjectUsersByUser(ctx, userID)
}

func (s *Store) ListProjectUsersByOrganization(ctx context.Context, orgID string) ([]*models.ProjectUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ListProjectUsersByOrganization(ctx, orgID)
}

func (s *Store) DeleteProjectUser(ctx context.Context, projectID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.DeleteProjectUser(ctx, projectID, userID)
}

// API keys

func (s *Store) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.CreateAPIKey(ctx, key)
}

func (s *Store) GetAPIKey(ctx context.Context, apiKeyID string) (*models.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.GetAPIKey(ctx, apiKeyID)
}

func (s *Store) GetAPIKeyBySecretHash(ctx context.Context, secretHash string) (*models.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.GetAPIKeyBySecretHash(ctx, secretHash)
}

func (s *Store) GetAPIKeyByName(ctx context.Context, tenantID, name string) (*models.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.GetAPIKeyByName(ctx, tenantID, name)
}

func (s *Store) ListAPIKeysByTenant(ctx context.Context, tenantID string) ([]*models.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ListAPIKeysByTenant(ctx, tenantID)
}

func (s *Store) ListAPIKeysByProject(ctx context.Context, projectID string) ([]*models.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ListAPIKeysByProject(ctx, projectID)
}

func (s *Store) UpdateAPIKey(ctx context.Context, key *models.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.UpdateAPIKey(ctx, key)
}

func (s *Store) DeleteAPIKey(ctx context.Context, apiKeyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.DeleteAPIKey(ctx, apiKeyID)
}
