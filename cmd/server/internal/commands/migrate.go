package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/usermanager/internal/logger"
	postgresstore "github.com/wolfeidau/usermanager/internal/store/postgres"
)

// MigrateCmd applies pending PostgreSQL schema migrations and exits.
type MigrateCmd struct {
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

func (m *MigrateCmd) Run(ctx context.Context, globals *Globals) error {
	log.Logger = logger.Setup(globals.Debug)

	if err := m.PostgresStore.validate(); err != nil {
		return err
	}

	cfg := m.PostgresStore.poolConfig()
	pool, err := postgresstore.NewPool(ctx, &cfg)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	if err := postgresstore.RunMigrations(ctx, pool); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info().Msg("Database migrations completed")
	return nil
}
