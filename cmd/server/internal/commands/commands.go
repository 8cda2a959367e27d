package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/usermanager/internal/store"
	memorystore "github.com/wolfeidau/usermanager/internal/store/memory"
	postgresstore "github.com/wolfeidau/usermanager/internal/store/postgres"
)

type Globals struct {
	Debug   bool
	Version string
}

func configureHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
		IdleTimeout:       5 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}
}

// PostgresStoreFlags configure the PostgreSQL store.
type PostgresStoreFlags struct {
	// Connection Configuration
	ConnString string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`

	// Connection Pool Configuration
	MaxConns        int32 `help:"maximum number of connections in pool" default:"20"`
	MinConns        int32 `help:"minimum number of connections in pool" default:"5"`
	MaxConnLifetime int32 `help:"maximum connection lifetime in seconds" default:"3600"`
	MaxConnIdleTime int32 `help:"maximum connection idle time in seconds" default:"1800"`

	StatsInterval time.Duration `help:"how often to log pool statistics, 0 disables" default:"0s"`

	// Migration Configuration
	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"USERS_POSTGRES_AUTO_MIGRATE"`
}

func (s *PostgresStoreFlags) validate() error {
	if s.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or POSTGRES_CONNECTION_STRING)")
	}
	if s.MinConns > s.MaxConns {
		return fmt.Errorf("min conns (%d) must not exceed max conns (%d)", s.MinConns, s.MaxConns)
	}
	return nil
}

func (s *PostgresStoreFlags) poolConfig() postgresstore.PoolConfig {
	return postgresstore.PoolConfig{
		ConnString:      s.ConnString,
		MaxConns:        s.MaxConns,
		MinConns:        s.MinConns,
		MaxConnLifetime: s.MaxConnLifetime,
		MaxConnIdleTime: s.MaxConnIdleTime,
	}
}

// openStore returns the configured store and a function that releases it.
func openStore(ctx context.Context, storeType string, pg *PostgresStoreFlags) (store.Store, func(), error) {
	switch storeType {
	case "postgres":
		if err := pg.validate(); err != nil {
			return nil, nil, err
		}
		pgStore, err := postgresstore.NewStore(ctx, &postgresstore.Config{
			Pool:          pg.poolConfig(),
			AutoMigrate:   pg.AutoMigrate,
			StatsInterval: pg.StatsInterval,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create postgres store: %w", err)
		}
		if err := pgStore.Start(); err != nil {
			_ = pgStore.Stop()
			return nil, nil, err
		}
		log.Info().Bool("auto_migrate", pg.AutoMigrate).Msg("Using PostgreSQL store")
		return pgStore, func() {
			if err := pgStore.Stop(); err != nil {
				log.Error().Err(err).Msg("Failed to stop store")
			}
		}, nil
	default:
		log.Warn().Msg("Using in-memory store, data is lost on restart")
		return memorystore.NewStore(), func() {}, nil
	}
}
