package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/usermanager/internal/models"
	"github.com/wolfeidau/usermanager/internal/store"
)

const organizationColumns = `organization_id, tenant_id, title, is_default, created_at`

func scanOrganization(row pgx.Row) (*models.Organization, error) {
	var o models.Organization
	if err := row.Scan(&o.OrganizationID, &o.TenantID, &o.Title, &o.IsDefault, &o.CreatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

func (q *queries) CreateOrganization(ctx context.Context, org *models.Organization) error {
	query := `
		INSERT INTO organizations (
			organization_id, tenant_id, title, is_default, created_at
		) VALUES (
			$1, $2, $3, $4, $5
		)
	`
	_, err := q.db.Exec(ctx, query,
		org.OrganizationID,
		org.TenantID,
		org.Title,
		org.IsDefault,
		org.CreatedAt,
	)
	if err != nil {
		return mapPostgresError(err)
	}

	log.Debug().
		Str("organization_id", org.OrganizationID).
		Str("tenant_id", org.TenantID).
		Str("title", org.Title).
		Msg("Created organization")
	return nil
}

func (q *queries) GetOrganization(ctx context.Context, tenantID, orgID string) (*models.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE organization_id = $1 AND tenant_id = $2`

	o, err := scanOrganization(q.db.QueryRow(ctx, query, orgID, tenantID))
	if err != nil {
		return nil, notFound(err, store.ErrOrganizationNotFound)
	}
	return o, nil
}

func (q *queries) GetOrganizationByTitle(ctx context.Context, tenantID, title string) (*models.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE tenant_id = $1 AND title = $2`

	o, err := scanOrganization(q.db.QueryRow(ctx, query, tenantID, title))
	if err != nil {
		return nil, notFound(err, store.ErrOrganizationNotFound)
	}
	return o, nil
}

func (q *queries) GetDefaultOrganization(ctx context.Context, tenantID string) (*models.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE tenant_id = $1 AND is_default`

	o, err := scanOrganization(q.db.QueryRow(ctx, query, tenantID))
	if err != nil {
		return nil, notFound(err, store.ErrOrganizationNotFound)
	}
	return o, nil
}

func (q *queries) ListOrganizationsByTenant(ctx context.Context, tenantID string) ([]*models.Organization, error) {
	query := `
		SELECT ` + organizationColumns + `
		FROM organizations
		WHERE $1 = '' OR tenant_id = $1
		ORDER BY created_at, organization_id
	`
	rows, err := q.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", mapPostgresError(err))
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Organization, error) {
		return scanOrganization(row)
	})
}

// DeleteOrganization removes the organization. Memberships cascade; projects
// must be removed first or the foreign key rejects the delete.
func (q *queries) DeleteOrganization(ctx context.Context, tenantID, orgID string) error {
	result, err := q.db.Exec(ctx, `DELETE FROM organizations WHERE organization_id = $1 AND tenant_id = $2`, orgID, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", mapPostgresError(err))
	}
	if result.RowsAffected() == 0 {
		return store.ErrOrganizationNotFound
	}

	log.Info().Str("organization_id", orgID).Msg("Deleted organization")
	return nil
}

const organizationUserColumns = `organization_id, user_id, role, created_at`

func scanOrganizationUser(row pgx.Row) (*models.OrganizationUser, error) {
	var ou models.OrganizationUser
	if err := row.Scan(&ou.OrganizationID, &ou.UserID, &ou.Role, &ou.CreatedAt); err != nil {
		return nil, err
	}
	return &ou, nil
}

func (q *queries) CreateOrganizationUser(ctx context.Context, ou *models.OrganizationUser) error {
	query := `
		INSERT INTO organization_users (organization_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := q.db.Exec(ctx, query, ou.OrganizationID, ou.UserID, ou.Role, ou.CreatedAt)
	if err != nil {
		return mapPostgresError(err)
	}

	log.Debug().
		Str("organization_id", ou.OrganizationID).
		Str("user_id", ou.UserID).
		Str("role", string(ou.Role)).
		Msg("Added organization user")
	return nil
}

func (q *queries) GetOrganizationUser(ctx context.Context, orgID, userID string) (*models.OrganizationUser, error) {
	query := `SELECT ` + organizationUserColumns + ` FROM organization_users WHERE organization_id = $1 AND user_id = $2`

	ou, err := scanOrganizationUser(q.db.QueryRow(ctx, query, orgID, userID))
	if err != nil {
		return nil, notFound(err, store.ErrOrganizationUserNotFound)
	}
	return ou, nil
}

func (q *queries) ListOrganizationUsersByOrganization(ctx context.Context, orgID string) ([]*models.OrganizationUser, error) {
	return q.listOrganizationUsers(ctx, `organization_id = $1`, orgID)
}

func (q *queries) ListOrganizationUsersByUser(ctx context.Context, userID string) ([]*models.OrganizationUser, error) {
	return q.listOrganizationUsers(ctx, `user_id = $1`, userID)
}

func (q *queries) listOrganizationUsers(ctx context.Context, where string, arg string) ([]*models.OrganizationUser, error) {
	query := `
		SELECT ` + organizationUserColumns + `
		FROM organization_users
		WHERE ` + where + `
		ORDER BY created_at, organization_id, user_id
	`
	rows, err := q.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list organization users: %w", mapPostgresError(err))
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.OrganizationUser, error) {
		return scanOrganizationUser(row)
	})
}

func (q *queries) DeleteOrganizationUser(ctx context.Context, orgID, userID string) error {
	result, err := q.db.Exec(ctx, `DELETE FROM organization_users WHERE organization_id = $1 AND user_id = $2`, orgID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete organization user: %w", mapPostgresError(err))
	}
	if result.RowsAffected() == 0 {
		return store.ErrOrganizationUserNotFound
	}
	return nil
}
