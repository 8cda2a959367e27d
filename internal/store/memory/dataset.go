package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/wolfeidau/usermanager/internal/models"
	"github.com/wolfeidau/usermanager/internal/store"
)

// sorted returns the values of m ordered by creation time, then by id, matching
// the ORDER BY used by the postgres store.
func sorted[K comparable, V any](m map[K]*V, created func(*V) time.Time, id func(*V) string, keep func(*V) bool) []*V {
	var out []*V
	for _, v := range m {
		if keep(v) {
			c := *v
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *V) int {
		if c := created(a).Compare(created(b)); c != 0 {
			return c
		}
		return cmp.Compare(id(a), id(b))
	})
	return out
}

func tenantMatches(want, got string) bool {
	return want == "" || want == got
}

// Users

func (d *dataset) CreateUser(ctx context.Context, user *models.User) error {
	if _, exists := d.users[user.UserID]; exists {
		return store.ErrUserAlreadyExists
	}
	clone := *user
	d.users[user.UserID] = &clone
	return nil
}

func (d *dataset) GetUser(ctx context.Context, userID string) (*models.User, error) {
	u, ok := d.users[userID]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (d *dataset) ListUsersByTenant(ctx context.Context, tenantID string) ([]*models.User, error) {
	return sorted(d.users,
		func(u *models.User) time.Time { return u.CreatedAt },
		func(u *models.User) string { return u.UserID },
		func(u *models.User) bool { return tenantMatches(tenantID, u.TenantID) },
	), nil
}

// Organizations

func (d *dataset) CreateOrganization(ctx context.Context, org *models.Organization) error {
	if _, exists := d.orgs[org.OrganizationID]; exists {
		return store.ErrOrganizationAlreadyExists
	}
	for _, o := range d.orgs {
		if o.TenantID != org.TenantID {
			continue
		}
		if o.Title == org.Title || (o.IsDefault && org.IsDefault) {
			return store.ErrOrganizationAlreadyExists
		}
	}
	clone := *org
	d.orgs[org.OrganizationID] = &clone
	return nil
}

func (d *dataset) GetOrganization(ctx context.Context, tenantID, orgID string) (*models.Organization, error) {
	o, ok := d.orgs[orgID]
	if !ok || o.TenantID != tenantID {
		return nil, store.ErrOrganizationNotFound
	}
	clone := *o
	return &clone, nil
}

func (d *dataset) GetOrganizationByTitle(ctx context.Context, tenantID, title string) (*models.Organization, error) {
	for _, o := range d.orgs {
		if o.TenantID == tenantID && o.Title == title {
			clone := *o
			return &clone, nil
		}
	}
	return nil, store.ErrOrganizationNotFound
}

func (d *dataset) GetDefaultOrganization(ctx context.Context, tenantID string) (*models.Organization, error) {
	for _, o := range d.orgs {
		if o.TenantID == tenantID && o.IsDefault {
			clone := *o
			return &clone, nil
		}
	}
	return nil, store.ErrOrganizationNotFound
}

func (d *dataset) ListOrganizationsByTenant(ctx context.Context, tenantID string) ([]*models.Organization, error) {
	return sorted(d.orgs,
		func(o *models.Organization) time.Time { return o.CreatedAt },
		func(o *models.Organization) string { return o.OrganizationID },
		func(o *models.Organization) bool { return tenantMatches(tenantID, o.TenantID) },
	), nil
}

func (d *dataset) DeleteOrganization(ctx context.Context, tenantID, orgID string) error {
	o, ok := d.orgs[orgID]
	if !ok || o.TenantID != tenantID {
		return store.ErrOrganizationNotFound
	}
	delete(d.orgs, orgID)
	return nil
}

func (d *dataset) CreateOrganizationUser(ctx context.Context, ou *models.OrganizationUser) error {
	if _, ok := d.orgs[ou.OrganizationID]; !ok {
		return store.ErrOrganizationNotFound
	}
	key := orgUserKey{orgID: ou.OrganizationID, userID: ou.UserID}
	if _, exists := d.orgUsers[key]; exists {
		return store.ErrOrganizationUserAlreadyExists
	}
	clone := *ou
	d.orgUsers[key] = &clone
	return nil
}

func (d *dataset) GetOrganizationUser(ctx context.Context, orgID, userID string) (*models.OrganizationUser, error) {
	ou, ok := d.orgUsers[orgUserKey{orgID: orgID, userID: userID}]
	if !ok {
		return nil, store.ErrOrganizationUserNotFound
	}
	clone := *ou
	return &clone, nil
}

func (d *dataset) listOrganizationUsers(keep func(*models.OrganizationUser) bool) []*models.OrganizationUser {
	return sorted(d.orgUsers,
		func(ou *models.OrganizationUser) time.Time { return ou.CreatedAt },
		func(ou *models.OrganizationUser) string { return ou.OrganizationID + "/" + ou.UserID },
		keep,
	)
}

func (d *dataset) ListOrganizationUsersByOrganization(ctx context.Context, orgID string) ([]*models.OrganizationUser, error) {
	return d.listOrganizationUsers(func(ou *models.OrganizationUser) bool { return ou.OrganizationID == orgID }), nil
}

func (d *dataset) ListOrganizationUsersByUser(ctx context.Context, userID string) ([]*models.OrganizationUser, error) {
	return d.listOrganizationUsers(func(ou *models.OrganizationUser) bool { return ou.UserID == userID }), nil
}

func (d *dataset) DeleteOrganizationUser(ctx context.Context, orgID, userID string) error {
	key := orgUserKey{orgID: orgID, userID: userID}
	if _, ok := d.orgUsers[key]; !ok {
		return store.ErrOrganizationUserNotFound
	}
	delete(d.orgUsers, key)
	return nil
}

// Projects

func (d *dataset) CreateProject(ctx context.Context, project *models.Project) error {
	if _, exists := d.projects[project.ProjectID]; exists {
		return store.ErrProjectAlreadyExists
	}
	if _, ok := d.orgs[project.OrganizationID]; !ok {
		return store.ErrOrganizationNotFound
	}
	for _, p := range d.projects {
		if p.TenantID != project.TenantID {
			continue
		}
		if p.Title == project.Title || (p.IsDefault && project.IsDefault) {
			return store.ErrProjectAlreadyExists
		}
	}
	d.projects[project.ProjectID] = project.Clone()
	return nil
}

func (d *dataset) GetProject(ctx context.Context, tenantID, projectID string) (*models.Project, error) {
	p, ok := d.projects[projectID]
	if !ok || p.TenantID != tenantID {
		return nil, store.ErrProjectNotFound
	}
	return p.Clone(), nil
}

func (d *dataset) GetDefaultProject(ctx context.Context, tenantID string) (*models.Project, error) {
	for _, p := range d.projects {
		if p.TenantID == tenantID && p.IsDefault {
			return p.Clone(), nil
		}
	}
	return nil, store.ErrProjectNotFound
}

func (d *dataset) listProjects(keep func(*models.Project) bool) []*models.Project {
	ps := sorted(d.projects,
		func(p *models.Project) time.Time { return p.CreatedAt },
		func(p *models.Project) string { return p.ProjectID },
		keep,
	)
	for i, p := range ps {
		ps[i] = p.Clone()
	}
	return ps
}

func (d *dataset) ListProjectsByOrganization(ctx context.Context, orgID string) ([]*models.Project, error) {
	return d.listProjects(func(p *models.Project) bool { return p.OrganizationID == orgID }), nil
}

func (d *dataset) ListProjectsByTenant(ctx context.Context, tenantID string) ([]*models.Project, error) {
	return d.listProjects(func(p *models.Project) bool { return tenantMatches(tenantID, p.TenantID) }), nil
}

func (d *dataset) UpdateProject(ctx context.Context, project *models.Project) error {
	existing, ok := d.projects[project.ProjectID]
	if !ok || existing.TenantID != project.TenantID {
		return store.ErrProjectNotFound
	}
	for _, p := range d.projects {
		if p.ProjectID != project.ProjectID && p.TenantID == project.TenantID && p.Title == project.Title {
			return store.ErrProjectAlreadyExists
		}
	}
	updated := existing.Clone()
	updated.Title = project.Title
	updated.KubernetesNamespace = project.KubernetesNamespace
	updated.Assignments = models.CloneAssignments(project.Assignments)
	d.projects[project.ProjectID] = updated
	return nil
}

func (d *dataset) DeleteProject(ctx context.Context, tenantID, projectID string) error {
	p, ok := d.projects[projectID]
	if !ok || p.TenantID != tenantID {
		return store.ErrProjectNotFound
	}
	delete(d.projects, projectID)
	return nil
}

func (d *dataset) CreateProjectUser(ctx context.Context, pu *models.ProjectUser) error {
	if _, ok := d.projects[pu.ProjectID]; !ok {
		return store.ErrProjectNotFound
	}
	key := projectUserKey{projectID: pu.ProjectID, userID: pu.UserID}
	if _, exists := d.projectUsers[key]; exists {
		return store.ErrProjectUserAlreadyExists
	}
	clone := *pu
	d.projectUsers[key] = &clone
	return nil
}

func (d *dataset) GetProjectUser(ctx context.Context, projectID, userID string) (*models.ProjectUser, error) {
	pu, ok := d.projectUsers[projectUserKey{projectID: projectID, userID: userID}]
	if !ok {
		return nil, store.ErrProjectUserNotFound
	}
	clone := *pu
	return &clone, nil
}

func (d *dataset) listProjectUsers(keep func(*models.ProjectUser) bool) []*models.ProjectUser {
	return sorted(d.projectUsers,
		func(pu *models.ProjectUser) time.Time { return pu.CreatedAt },
		func(pu *models.ProjectUser) string { return pu.ProjectID + "/" + pu.UserID },
		keep,
	)
}

func (d *dataset) ListProjectUsersByProject(ctx context.Context, projectID string) ([]*models.ProjectUser, error) {
	return d.listProjectUsers(func(pu *models.ProjectUser) bool { return pu.ProjectID == projectID }), nil
}

func (d *dataset) ListProjectUsersByUser(ctx context.Context, userID string) ([]*models.ProjectUser, error) {
	return d.listProjectUsers(func(pu *models.ProjectUser) bool { return pu.UserID == userID }), nil
}

func (d *dataset) ListProjectUsersByOrganization(ctx context.Context, orgID string) ([]*models.ProjectUser, error) {
	return d.listProjectUsers(func(pu *models.ProjectUser) bool { return pu.OrganizationID == orgID }), nil
}

func (d *dataset) DeleteProjectUser(ctx context.Context, projectID, userID string) error {
	key := projectUserKey{projectID: projectID, userID: userID}
	if _, ok := d.projectUsers[key]; !ok {
		return store.ErrProjectUserNotFound
	}
	delete(d.projectUsers, key)
	return nil
}

// API keys

func (d *dataset) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	if _, exists := d.apiKeys[key.APIKeyID]; exists {
		return store.ErrAPIKeyAlreadyExists
	}
	for _, k := range d.apiKeys {
		if k.SecretHash == key.SecretHash || (k.TenantID == key.TenantID && k.Name == key.Name) {
			return store.ErrAPIKeyAlreadyExists
		}
	}
	clone := *key
	d.apiKeys[key.APIKeyID] = &clone
	return nil
}

func (d *dataset) GetAPIKey(ctx context.Context, apiKeyID string) (*models.APIKey, error) {
	k, ok := d.apiKeys[apiKeyID]
	if !ok {
		return nil, store.ErrAPIKeyNotFound
	}
	clone := *k
	return &clone, nil
}

func (d *dataset) GetAPIKeyBySecretHash(ctx context.Context, secretHash string) (*models.APIKey, error) {
	for _, k := range d.apiKeys {
		if k.SecretHash == secretHash {
			clone := *k
			return &clone, nil
		}
	}
	return nil, store.ErrAPIKeyNotFound
}

func (d *dataset) GetAPIKeyByName(ctx context.Context, tenantID, name string) (*models.APIKey, error) {
	for _, k := range d.apiKeys {
		if k.TenantID == tenantID && k.Name == name {
			clone := *k
			return &clone, nil
		}
	}
	return nil, store.ErrAPIKeyNotFound
}

func (d *dataset) listAPIKeys(keep func(*models.APIKey) bool) []*models.APIKey {
	return sorted(d.apiKeys,
		func(k *models.APIKey) time.Time { return k.CreatedAt },
		func(k *models.APIKey) string { return k.APIKeyID },
		keep,
	)
}

func (d *dataset) ListAPIKeysByTenant(ctx context.Context, tenantID string) ([]*models.APIKey, error) {
	return d.listAPIKeys(func(k *models.APIKey) bool { return tenantMatches(tenantID, k.TenantID) }), nil
}

func (d *dataset) ListAPIKeysByProject(ctx context.Context, projectID string) ([]*models.APIKey, error) {
	return d.listAPIKeys(func(k *models.APIKey) bool { return k.ProjectID == projectID }), nil
}

func (d *dataset) UpdateAPIKey(ctx context.Context, key *models.APIKey) error {
	existing, ok := d.apiKeys[key.APIKeyID]
	if !ok {
		return store.ErrAPIKeyNotFound
	}
	for _, k := range d.apiKeys {
		if k.APIKeyID != key.APIKeyID && k.TenantID == existing.TenantID && k.Name == key.Name {
			return store.ErrAPIKeyAlreadyExists
		}
	}
	updated := *existing
	updated.Name = key.Name
	updated.ExcludedFromRateLimiting = key.ExcludedFromRateLimiting
	d.apiKeys[key.APIKeyID] = &updated
	return nil
}

func (d *dataset) DeleteAPIKey(ctx context.Context, apiKeyID string) error {
	if _, ok := d.apiKeys[apiKeyID]; !ok {
		return store.ErrAPIKeyNotFound
	}
	delete(d.apiKeys, apiKeyID)
	return nil
}
