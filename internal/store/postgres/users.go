package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/usermanager/internal/models"
	"github.com/wolfeidau/usermanager/internal/store"
)

const userColumns = `user_id, tenant_id, internal_user_id::text, is_service_account, hidden, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.UserID,
		&u.TenantID,
		&u.InternalUserID,
		&u.IsServiceAccount,
		&u.Hidden,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (q *queries) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (
			user_id, tenant_id, internal_user_id, is_service_account, hidden, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`
	_, err := q.db.Exec(ctx, query,
		user.UserID,
		user.TenantID,
		user.InternalUserID,
		user.IsServiceAccount,
		user.Hidden,
		user.CreatedAt,
	)
	if err != nil {
		return mapPostgresError(err)
	}

	log.Debug().Str("user_id", user.UserID).Str("tenant_id", user.TenantID).Msg("Created user")
	return nil
}

func (q *queries) GetUser(ctx context.Context, userID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`

	u, err := scanUser(q.db.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, notFound(err, store.ErrUserNotFound)
	}
	return u, nil
}

func (q *queries) ListUsersByTenant(ctx context.Context, tenantID string) ([]*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE $1 = '' OR tenant_id = $1
		ORDER BY created_at, user_id
	`
	rows, err := q.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", mapPostgresError(err))
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.User, error) {
		return scanUser(row)
	})
}
