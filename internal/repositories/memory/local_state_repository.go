package memory

import (
	"context"
	"sync"

	"github.com/SscSPs/esiti_settimanali/internal/core/domain"
	portsrepo "github.com/SscSPs/esiti_settimanali/internal/core/ports/repositories"
)

// LocalStateRepository keeps assignments and inclusion flags in memory.
type LocalStateRepository struct {
	mu          sync.RWMutex
	assignments map[string]domain.HierarchyAssignment
	flags       map[string]bool
}

// NewLocalStateRepository creates an empty local state store.
func NewLocalStateRepository() *LocalStateRepository {
	return &LocalStateRepository{
		assignments: map[string]domain.HierarchyAssignment{},
		flags:       map[string]bool{},
	}
}

var _ portsrepo.LocalStateRepositoryFacade = (*LocalStateRepository)(nil)

func (r *LocalStateRepository) LoadAssignments(ctx context.Context) (map[string]domain.HierarchyAssignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]domain.HierarchyAssignment, len(r.assignments))
	for id, a := range r.assignments {
		out[id] = a
	}
	return out, nil
}

func (r *LocalStateRepository) LoadInclusionFlags(ctx context.Context) (map[string]bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]bool, len(r.flags))
	for id, include := range r.flags {
		out[id] = include
	}
	return out, nil
}

func (r *LocalStateRepository) SaveAssignment(ctx context.Context, recordID string, assignment domain.HierarchyAssignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assignments[recordID] = assignment
	return nil
}

func (r *LocalStateRepository) SaveInclusion(ctx context.Context, recordID string, include bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flags[recordID] = include
	return nil
}

func (r *LocalStateRepository) DeleteRecordState(ctx context.Context, recordID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.assignments, recordID)
	delete(r.flags, recordID)
	return nil
}
