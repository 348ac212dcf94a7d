package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ifeis/server/internal/config"
	"github.com/ifeis/server/internal/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Open connects to the database described by cfg and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConnections)
	}
	if cfg.MaxIdle > 0 {
		poolConfig.MinConns = int32(min(cfg.MaxIdle, int(poolConfig.MaxConns)))
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// DBTX is satisfied by both the pool and a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// base is embedded by every repository. A zero tx means statements run on
// the pool.
type base struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

// queryer returns the appropriate database interface (transaction or pool).
func (b base) queryer() DBTX {
	if b.tx != nil {
		return b.tx
	}
	return b.pool
}

// withTx executes fn within a database transaction. If fn returns an error,
// the transaction is rolled back. Otherwise it's committed.
func (b base) withTx(ctx context.Context, fn func(tx base) error) (err error) {
	if b.tx != nil {
		return errors.New("already in transaction")
	}
	start := time.Now()
	defer func() { metrics.RecordQuery("transaction", start, err) }()

	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(base{pool: b.pool, tx: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("transaction error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// inTx runs fn in the current transaction, or in a new one when b is not
// in a transaction yet.
func (b base) inTx(ctx context.Context, fn func(tx base) error) error {
	if b.tx != nil {
		return fn(b)
	}
	return b.withTx(ctx, fn)
}
