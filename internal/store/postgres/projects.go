package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/usermanager/internal/models"
	"github.com/wolfeidau/usermanager/internal/store"
)

const projectColumns = `project_id, tenant_id, organization_id, title, kubernetes_namespace, assignments, is_default, created_at`

func scanProject(row pgx.Row) (*models.Project, error) {
	var p models.Project
	err := row.Scan(
		&p.ProjectID,
		&p.TenantID,
		&p.OrganizationID,
		&p.Title,
		&p.KubernetesNamespace,
		&p.Assignments,
		&p.IsDefault,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// assignmentsParam keeps the JSONB column a JSON array even when there are no assignments.
func assignmentsParam(as []models.ProjectAssignment) []models.ProjectAssignment {
	if as == nil {
		return []models.ProjectAssignment{}
	}
	return as
}

func (q *queries) CreateProject(ctx context.Context, project *models.Project) error {
	query := `
		INSERT INTO projects (
			project_id, tenant_id, organization_id, title, kubernetes_namespace,
			assignments, is_default, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`
	_, err := q.db.Exec(ctx, query,
		project.ProjectID,
		project.TenantID,
		project.OrganizationID,
		project.Title,
		project.KubernetesNamespace,
		assignmentsParam(project.Assignments),
		project.IsDefault,
		project.CreatedAt,
	)
	if err != nil {
		return mapPostgresError(err)
	}

	log.Debug().
		Str("project_id", project.ProjectID).
		Str("organization_id", project.OrganizationID).
		Str("title", project.Title).
		Msg("Created project")
	return nil
}

func (q *queries) GetProject(ctx context.Context, tenantID, projectID string) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE project_id = $1 AND tenant_id = $2`

	p, err := scanProject(q.db.QueryRow(ctx, query, projectID, tenantID))
	if err != nil {
		return nil, notFound(err, store.ErrProjectNotFound)
	}
	return p, nil
}

func (q *queries) GetDefaultProject(ctx context.Context, tenantID string) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE tenant_id = $1 AND is_default`

	p, err := scanProject(q.db.QueryRow(ctx, query, tenantID))
	if err != nil {
		return nil, notFound(err, store.ErrProjectNotFound)
	}
	return p, nil
}

func (q *queries) ListProjectsByOrganization(ctx context.Context, orgID string) ([]*models.Project, error) {
	return q.listProjects(ctx, `organization_id = $1`, orgID)
}

func (q *queries) ListProjectsByTenant(ctx context.Context, tenantID string) ([]*models.Project, error) {
	return q.listProjects(ctx, `$1 = '' OR tenant_id = $1`, tenantID)
}

func (q *queries) listProjects(ctx context.Context, where string, arg string) ([]*models.Project, error) {
	query := `
		SELECT ` + projectColumns + `
		FROM projects
		WHERE ` + where + `
		ORDER BY created_at, project_id
	`
	rows, err := q.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", mapPostgresError(err))
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Project, error) {
		return scanProject(row)
	})
}

func (q *queries) UpdateProject(ctx context.Context, project *models.Project) error {
	query := `
		UPDATE projects SET
			title = $2,
			kubernetes_namespace = $3,
			assignments = $4
		WHERE project_id = $1
	`
	result, err := q.db.Exec(ctx, query,
		project.ProjectID,
		project.Title,
		project.KubernetesNamespace,
		assignmentsParam(project.Assignments),
	)
	if err != nil {
		return mapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return store.ErrProjectNotFound
	}

	log.Debug().Str("project_id", project.ProjectID).Msg("Updated project")
	return nil
}

func (q *queries) DeleteProject(ctx context.Context, tenantID, projectID string) error {
	result, err := q.db.Exec(ctx, `DELETE FROM projects WHERE project_id = $1 AND tenant_id = $2`, projectID, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", mapPostgresError(err))
	}
	if result.RowsAffected() == 0 {
		return store.ErrProjectNotFound
	}

	log.Info().Str("project_id", projectID).Msg("Deleted project")
	return nil
}

const projectUserColumns = `project_id, organization_id, user_id, role, created_at`

func scanProjectUser(row pgx.Row) (*models.ProjectUser, error) {
	var pu models.ProjectUser
	if err := row.Scan(&pu.ProjectID, &pu.OrganizationID, &pu.UserID, &pu.Role, &pu.CreatedAt); err != nil {
		return nil, err
	}
	return &pu, nil
}

func (q *queries) CreateProjectUser(ctx context.Context, pu *models.ProjectUser) error {
	query := `
		INSERT INTO project_users (project_id, organization_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := q.db.Exec(ctx, query, pu.ProjectID, pu.OrganizationID, pu.UserID, pu.Role, pu.CreatedAt)
	if err != nil {
		return mapPostgresError(err)
	}

	log.Debug().
		Str("project_id", pu.ProjectID).
		Str("user_id", pu.UserID).
		Str("role", string(pu.Role)).
		Msg("Added project user")
	return nil
}

func (q *queries) GetProjectUser(ctx context.Context, projectID, userID string) (*models.ProjectUser, error) {
	query := `SELECT ` + projectUserColumns + ` FROM project_users WHERE project_id = $1 AND user_id = $2`

	pu, err := scanProjectUser(q.db.QueryRow(ctx, query, projectID, userID))
	if err != nil {
		return nil, notFound(err, store.ErrProjectUserNotFound)
	}
	return pu, nil
}

func (q *queries) ListProjectUsersByProject(ctx context.Context, projectID string) ([]*models.ProjectUser, error) {
	return q.listProjectUsers(ctx, `project_id = $1`, projectID)
}

func (q *queries) ListProjectUsersByUser(ctx context.Context, userID string) ([]*models.ProjectUser, error) {
	return q.listProjectUsers(ctx, `user_id = $1`, userID)
}

func (q *queries) ListProjectUsersByOrganization(ctx context.Context, orgID string) ([]*models.ProjectUser, error) {
	return q.listProjectUsers(ctx, `organization_id = $1`, orgID)
}

func (q *queries) listProjectUsers(ctx context.Context, where string, arg string) ([]*models.ProjectUser, error) {
	query := `
		SELECT ` + projectUserColumns + `
		FROM project_users
		WHERE ` + where + `
		ORDER BY created_at, project_id, user_id
	`
	rows, err := q.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list project users: %w", mapPostgresError(err))
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.ProjectUser, error) {
		return scanProjectUser(row)
	})
}

func (q *queries) DeleteProjectUser(ctx context.Context, projectID, userID string) error {
	result, err := q.db.Exec(ctx, `DELETE FROM project_users WHERE project_id = $1 AND user_id = $2`, projectID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete project user: %w", mapPostgresError(err))
	}
	if result.RowsAffected() == 0 {
		return store.ErrProjectUserNotFound
	}
	return nil
}
