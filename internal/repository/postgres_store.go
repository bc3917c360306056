package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresStore runs repositories against a pgx pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	repos  Repositories
	logger *zap.Logger
}

// NewPostgresStore wires repositories to the pool.
func NewPostgresStore(pool *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, repos: NewRepositories(pool), logger: logger}
}

// Repositories returns repositories bound to the pool (autocommit).
func (s *PostgresStore) Repositories() Repositories {
	return s.repos
}

// WithinTransaction runs fn in a read-committed transaction. The transaction
// commits when fn returns nil and rolls back otherwise, including on panic.
func (s *PostgresStore) WithinTransaction(ctx context.Context, fn TxFn) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		s.logger.Error("failed to begin transaction", zap.Error(err))
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error("failed to roll back transaction after panic", zap.Error(rbErr), zap.Any("panic", p))
			}
			panic(p)
		}
	}()

	if err := fn(ctx, NewRepositories(tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Error("failed to roll back transaction", zap.Error(rbErr), zap.NamedError("original_error", err))
			return fmt.Errorf("rollback transaction: %v (original error: %w)", rbErr, err)
		}
		s.logger.Debug("rolled back transaction", zap.Error(err))
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		s.logger.Error("failed to commit transaction", zap.Error(err))
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
