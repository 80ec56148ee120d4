// Package store persists resolved parking records in PostgreSQL.
//
// Three concerns live here: the connection pool, the reference resolver
// that maps natural keys (provider name, 4-digit service code) onto durable
// entities, and the upsert engine that merges transaction records under the
// (provider, date, service label, billing group) conflict key.
//
// Every unit of work uses its own transactional boundary. Transactions are
// never held open across files or across the whole batch.
package store

import (
	"context"
	"errors"
	"time"

	apperrors "parking-report-importer/pkg/errors"
	"parking-report-importer/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgxpool.Pool the resolver and audit sink need.
// Narrowing it keeps those components testable without a database.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// RecordTx is the slice of pgx.Tx the upsert engine uses for one batch.
type RecordTx interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TxBeginner starts a new transaction for one upsert batch.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store wraps the PostgreSQL connection pool.
type Store struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

// Connect opens a connection pool against databaseURL and verifies it with
// a ping. A missing URL is a configuration error; an unreachable database
// is a storage error. Both abort the run before any file is touched.
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	if databaseURL == "" {
		return nil, apperrors.ConfigurationError(apperrors.CodeMissingConfig, "DATABASE_URL", nil, nil)
	}

	log := logger.GetGlobalLogger().WithComponent("store")

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, apperrors.ConfigurationError(apperrors.CodeInvalidConfig, "DATABASE_URL", "<redacted>", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, apperrors.StorageError(apperrors.CodeConnectionFailed, "pool creation", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, apperrors.StorageError(apperrors.CodeConnectionFailed, "ping", err)
	}

	log.Info("Connected to database")
	return &Store{pool: pool, logger: log}, nil
}

// Pool exposes the underlying pool for components that need transactions.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
