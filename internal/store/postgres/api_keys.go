package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/usermanager/internal/models"
	"github.com/wolfeidau/usermanager/internal/store"
)

const apiKeyColumns = `
	api_key_id, tenant_id, name, user_id, organization_id, project_id,
	organization_role, project_role, secret_hash, secret_hint,
	is_service_account, excluded_from_rate_limiting, created_at`

func scanAPIKey(row pgx.Row) (*models.APIKey, error) {
	var k models.APIKey
	err := row.Scan(
		&k.APIKeyID,
		&k.TenantID,
		&k.Name,
		&k.UserID,
		&k.OrganizationID,
		&k.ProjectID,
		&k.OrganizationRole,
		&k.ProjectRole,
		&k.SecretHash,
		&k.SecretHint,
		&k.IsServiceAccount,
		&k.ExcludedFromRateLimiting,
		&k.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &k, nil
}

func (q *queries) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	query := `
		INSERT INTO api_keys (` + apiKeyColumns + `
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
	`
	_, err := q.db.Exec(ctx, query,
		key.APIKeyID,
		key.TenantID,
		key.Name,
		key.UserID,
		key.OrganizationID,
		key.ProjectID,
		key.OrganizationRole,
		key.ProjectRole,
		key.SecretHash,
		key.SecretHint,
		key.IsServiceAccount,
		key.ExcludedFromRateLimiting,
		key.CreatedAt,
	)
	if err != nil {
		return mapPostgresError(err)
	}

	log.Debug().
		Str("api_key_id", key.APIKeyID).
		Str("organization_id", key.OrganizationID).
		Str("project_id", key.ProjectID).
		Msg("Created API key")
	return nil
}

func (q *queries) getAPIKey(ctx context.Context, where string, args ...any) (*models.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE ` + where

	k, err := scanAPIKey(q.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFound(err, store.ErrAPIKeyNotFound)
	}
	return k, nil
}

func (q *queries) GetAPIKey(ctx context.Context, apiKeyID string) (*models.APIKey, error) {
	return q.getAPIKey(ctx, `api_key_id = $1`, apiKeyID)
}

func (q *queries) GetAPIKeyBySecretHash(ctx context.Context, secretHash string) (*models.APIKey, error) {
	return q.getAPIKey(ctx, `secret_hash = $1`, secretHash)
}

func (q *queries) GetAPIKeyByName(ctx context.Context, tenantID, name string) (*models.APIKey, error) {
	return q.getAPIKey(ctx, `tenant_id = $1 AND name = $2`, tenantID, name)
}

func (q *queries) ListAPIKeysByTenant(ctx context.Context, tenantID string) ([]*models.APIKey, error) {
	return q.listAPIKeys(ctx, `$1 = '' OR tenant_id = $1`, tenantID)
}

func (q *queries) ListAPIKeysByProject(ctx context.Context, projectID string) ([]*models.APIKey, error) {
	return q.listAPIKeys(ctx, `project_id = $1`, projectID)
}

func (q *queries) listAPIKeys(ctx context.Context, where string, arg string) ([]*models.APIKey, error) {
	query := `
		SELECT ` + apiKeyColumns + `
		FROM api_keys
		WHERE ` + where + `
		ORDER BY created_at, api_key_id
	`
	rows, err := q.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", mapPostgresError(err))
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.APIKey, error) {
		return scanAPIKey(row)
	})
}

func (q *queries) UpdateAPIKey(ctx context.Context, key *models.APIKey) error {
	query := `
		UPDATE api_keys SET
			name = $2,
			excluded_from_rate_limiting = $3
		WHERE api_key_id = $1
	`
	result, err := q.db.Exec(ctx, query, key.APIKeyID, key.Name, key.ExcludedFromRateLimiting)
	if err != nil {
		return mapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return store.ErrAPIKeyNotFound
	}
	return nil
}

func (q *queries) DeleteAPIKey(ctx context.Context, apiKeyID string) error {
	result, err := q.db.Exec(ctx, `DELETE FROM api_keys WHERE api_key_id = $1`, apiKeyID)
	if err != nil {
		return fmt.Errorf("failed to delete api key: %w", mapPostgresError(err))
	}
	if result.RowsAffected() == 0 {
		return store.ErrAPIKeyNotFound
	}

	log.Info().Str("api_key_id", apiKeyID).Msg("Deleted API key")
	return nil
}
