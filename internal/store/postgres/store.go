package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/usermanager/internal/store"
)

var (
	_ store.Store      = (*Store)(nil)
	_ store.Repository = (*queries)(nil)
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx so the same queries run
// inside or outside a transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type queries struct {
	db dbtx
}

// Config holds the PostgreSQL store configuration.
type Config struct {
	Pool PoolConfig

	// AutoMigrate applies pending schema migrations on start up.
	AutoMigrate bool

	// StatsInterval controls how often pool statistics are logged. Zero disables it.
	StatsInterval time.Duration
}

// Store implements store.Store on PostgreSQL. Transactions run at serializable
// isolation; a serialization failure is reported as store.ErrConflict.
type Store struct {
	*queries

	pool *pgxpool.Pool
	cfg  *Config

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewStore connects to PostgreSQL and optionally runs migrations.
func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("store config is required")
	}

	pool, err := NewPool(ctx, &cfg.Pool)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("database", pool.Config().ConnConfig.Database).
		Str("host", pool.Config().ConnConfig.Host).
		Int32("max_conns", cfg.Pool.MaxConns).
		Msg("Connected to PostgreSQL")

	if cfg.AutoMigrate {
		if err := RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return NewStoreWithPool(pool, cfg), nil
}

// NewStoreWithPool wraps an existing pool. The store takes ownership of the pool
// and closes it on Stop.
func NewStoreWithPool(pool *pgxpool.Pool, cfg *Config) *Store {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Store{
		queries: &queries{db: pool},
		pool:    pool,
		cfg:     cfg,
		stopCh:  make(chan struct{}),
	}
}

// Start begins background pool monitoring.
func (s *Store) Start() error {
	log.Info().Msg("Starting PostgreSQL store")

	if s.cfg.StatsInterval > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.monitorConnectionPool()
		}()
	}
	return nil
}

// Stop waits for background tasks and closes the pool.
func (s *Store) Stop() error {
	s.stopOnce.Do(func() {
		log.Info().Msg("Stopping PostgreSQL store")
		close(s.stopCh)
		s.wg.Wait()
		s.pool.Close()
	})
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// RunInTx runs fn in a serializable transaction, committing if fn returns nil.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Repository) error) error {
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
		return fn(ctx, &queries{db: tx})
	})
	// commit can fail with a serialization error after fn succeeded
	return mapPostgresError(err)
}

func (s *Store) monitorConnectionPool() {
	ticker := time.NewTicker(s.cfg.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats := s.pool.Stat()
			log.Debug().
				Int32("total_conns", stats.TotalConns()).
				Int32("idle_conns", stats.IdleConns()).
				Int32("acquired_conns", stats.AcquiredConns()).
				Int64("acquire_count", stats.AcquireCount()).
				Int64("acquire_duration_ns", stats.AcquireDuration().Nanoseconds()).
				Msg("Connection pool stats")
		case <-s.stopCh:
			return
		}
	}
}

// notFound converts pgx.ErrNoRows into the given sentinel.
func notFound(err error, sentinel error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel
	}
	return mapPostgresError(err)
}
