package repositories

import (
	"context"

	"github.com/SscSPs/esiti_settimanali/internal/core/domain"
)

// LocalStateReader loads the hierarchy state kept outside the record store.
type LocalStateReader interface {
	// LoadAssignments returns the locally stored assignment of every record that has one.
	LoadAssignments(ctx context.Context) (map[string]domain.HierarchyAssignment, error)

	// LoadInclusionFlags returns the versamenti inclusion flag of every record that has one.
	LoadInclusionFlags(ctx context.Context) (map[string]bool, error)
}

// LocalStateWriter persists hierarchy state kept outside the record store.
type LocalStateWriter interface {
	SaveAssignment(ctx context.Context, recordID string, assignment domain.HierarchyAssignment) error
	SaveInclusion(ctx context.Context, recordID string, include bool) error

	// DeleteRecordState forgets everything stored for recordID.
	DeleteRecordState(ctx context.Context, recordID string) error
}

// LocalStateRepositoryFacade combines the local state interfaces
type LocalStateRepositoryFacade interface {
	LocalStateReader
	LocalStateWriter
}
