package pgsql

import (
	portsrepo "github.com/SscSPs/esiti_settimanali/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRepositoryProvider wires the Postgres record store with the given local state store.
func NewRepositoryProvider(dbPool *pgxpool.Pool, localState portsrepo.LocalStateRepositoryFacade) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		RecordRepo:     newPgxRecordRepository(dbPool),
		LocalStateRepo: localState,
	}
}
