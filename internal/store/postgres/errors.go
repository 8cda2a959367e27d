package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/wolfeidau/usermanager/internal/store"
)

// uniqueConstraints maps unique constraint and index names to the sentinel
// error reported when they are violated.
var uniqueConstraints = map[string]error{
	"users_pkey":                        store.ErrUserAlreadyExists,
	"users_internal_user_id_key":        store.ErrUserAlreadyExists,
	"organizations_pkey":                store.ErrOrganizationAlreadyExists,
	"organizations_tenant_id_title_key": store.ErrOrganizationAlreadyExists,
	"idx_organizations_tenant_default":  store.ErrOrganizationAlreadyExists,
	"organization_users_pkey":           store.ErrOrganizationUserAlreadyExists,
	"projects_pkey":                     store.ErrProjectAlreadyExists,
	"projects_tenant_id_title_key":      store.ErrProjectAlreadyExists,
	"idx_projects_tenant_default":       store.ErrProjectAlreadyExists,
	"project_users_pkey":                store.ErrProjectUserAlreadyExists,
	"api_keys_pkey":                     store.ErrAPIKeyAlreadyExists,
	"api_keys_tenant_id_name_key":       store.ErrAPIKeyAlreadyExists,
	"api_keys_secret_hash_key":          store.ErrAPIKeyAlreadyExists,
}

// foreignKeys maps foreign key constraint names to the sentinel error for the
// missing parent row.
var foreignKeys = map[string]error{
	"organization_users_organization_id_fkey": store.ErrOrganizationNotFound,
	"projects_organization_id_fkey":           store.ErrOrganizationNotFound,
	"project_users_project_id_fkey":           store.ErrProjectNotFound,
}

// mapPostgresError maps PostgreSQL-specific errors to store sentinel errors.
// Returns the original error if it's not a PostgreSQL error or doesn't match known patterns.
func mapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		if sentinel, ok := uniqueConstraints[pgErr.ConstraintName]; ok {
			return sentinel
		}
		return fmt.Errorf("unique constraint violation: %s: %w", pgErr.ConstraintName, err)

	case pgerrcode.ForeignKeyViolation:
		if sentinel, ok := foreignKeys[pgErr.ConstraintName]; ok {
			return fmt.Errorf("%w: %s", sentinel, pgErr.Detail)
		}
		return fmt.Errorf("foreign key violation: %s: %w", pgErr.ConstraintName, err)

	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
		return fmt.Errorf("%w: %s", store.ErrConflict, pgErr.Message)

	case pgerrcode.ConnectionException,
		pgerrcode.ConnectionDoesNotExist,
		pgerrcode.ConnectionFailure,
		pgerrcode.CannotConnectNow,
		pgerrcode.SQLClientUnableToEstablishSQLConnection:
		return fmt.Errorf("database connection error: %w", err)

	case pgerrcode.AdminShutdown,
		pgerrcode.CrashShutdown:
		return fmt.Errorf("database server unavailable: %w", err)

	case pgerrcode.QueryCanceled:
		return fmt.Errorf("query canceled: %w", err)

	default:
		return fmt.Errorf("postgres error [%s]: %s (detail: %s, hint: %s): %w",
			pgErr.Code, pgErr.Message, pgErr.Detail, pgErr.Hint, err)
	}
}
