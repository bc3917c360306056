// Package repository defines persistence contracts and their Postgres implementation.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrDuplicate reports a unique constraint violation, e.g. a taken username.
	ErrDuplicate = errors.New("duplicate key")
	// ErrReferenced reports that a row is still referenced by another row.
	ErrReferenced = errors.New("row is still referenced")
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories groups the repositories sharing one connection or transaction.
type Repositories struct {
	Users     UserRepository
	Cards     CardRepository
	Transfers TransferRepository
}

// TxFn runs inside a transaction. Returning an error rolls everything back.
type TxFn func(ctx context.Context, repos Repositories) error

// Store hands out repositories and runs all-or-nothing units of work.
type Store interface {
	Repositories() Repositories
	WithinTransaction(ctx context.Context, fn TxFn) error
}

// NewRepositories binds Postgres repositories to db.
func NewRepositories(db DBTX) Repositories {
	return Repositories{
		Users:     NewUserRepository(db),
		Cards:     NewCardRepository(db),
		Transfers: NewTransferRepository(db),
	}
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// translatePgError maps constraint violations to repository sentinels.
func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return errors.Join(ErrDuplicate, err)
	case pgForeignKeyViolation:
		return errors.Join(ErrReferenced, err)
	default:
		return err
	}
}

// isUUID reports whether id can name a row. Ids are uuid columns, so anything
// else would fail the cast in Postgres instead of simply not matching.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// canonicalID returns the lower-case hyphenated form of a uuid, or id itself
// when it is not a uuid.
func canonicalID(id string) string {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return id
	}
	return parsed.String()
}
