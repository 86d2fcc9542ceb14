package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// TransactionManager defines methods for transaction management
type TransactionManager interface {
	// Begin starts a new database transaction
	Begin(ctx context.Context) (pgx.Tx, error)

	// Commit commits a transaction
	Commit(ctx context.Context, tx pgx.Tx) error

	// Rollback rolls back a transaction; a transaction that is already done is not an error
	Rollback(ctx context.Context, tx pgx.Tx) error
}

// RecordRepositoryWithTx is a record repository backed by a transactional database
type RecordRepositoryWithTx interface {
	RecordRepositoryFacade
	TransactionManager
}
