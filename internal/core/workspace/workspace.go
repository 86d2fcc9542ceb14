// Package workspace holds the in-memory state every view is computed from: the records
// in store order plus the hierarchy assignments and versamenti inclusion flags.
//
// A Workspace has a single writer lock. Readers work on immutable snapshots, so a
// traversal or an aggregation never observes a half-applied mutation.
package workspace

import (
	"context"
	"fmt"
	"sync"

	"github.com/SscSPs/esiti_settimanali/internal/apperrors"
	"github.com/SscSPs/esiti_settimanali/internal/core/domain"
)

// Workspace is the mutable record set plus its local hierarchy state.
type Workspace struct {
	mu          sync.Mutex
	records     []domain.Record
	levels      map[string]domain.Level
	parents     map[string]string
	versInclude map[string]bool
	source      domain.HierarchySource
	generation  uint64
	snap        *Snapshot
}

// New returns an empty workspace that keeps assignments locally until the first Reset.
func New() *Workspace {
	return &Workspace{
		levels:      map[string]domain.Level{},
		parents:     map[string]string{},
		versInclude: map[string]bool{},
		source:      domain.HierarchySourceLocal,
	}
}

// Reset replaces the whole state with a fresh fetch from the record store.
// With a backend source the assignments come from the records themselves and
// localAssignments is ignored. Inclusion flags are always local.
func (w *Workspace) Reset(records []domain.Record, source domain.HierarchySource, localAssignments map[string]domain.HierarchyAssignment, localFlags map[string]bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.records = make([]domain.Record, len(records))
	copy(w.records, records)
	w.source = source
	w.levels = make(map[string]domain.Level, len(records))
	w.parents = make(map[string]string, len(records))
	w.versInclude = make(map[string]bool, len(localFlags))

	for _, r := range records {
		var a domain.HierarchyAssignment
		var ok bool
		if source == domain.HierarchySourceBackend {
			if r.Hierarchy != nil {
				a, ok = *r.Hierarchy, true
			}
		} else {
			a, ok = localAssignments[r.RecordID]
		}
		if ok {
			w.assignLocked(r.RecordID, a)
		}
	}
	for id, include := range localFlags {
		w.versInclude[id] = include
	}
	w.bumpLocked()
}

// Apply folds one change feed event into the state. Remote events win over any
// optimistic local value for the same record.
func (w *Workspace) Apply(ev domain.ChangeEvent) error {
	switch ev.Op {
	case domain.ChangeInsert, domain.ChangeUpdate:
		if ev.Record.RecordID == "" {
			return fmt.Errorf("%w: %s event without record id", apperrors.ErrValidation, ev.Op)
		}
		w.PutRecord(ev.Record)
	case domain.ChangeDelete:
		id := ev.RecordID
		if id == "" {
			id = ev.Record.RecordID
		}
		w.RemoveRecord(id)
	default:
		return fmt.Errorf("%w: unknown change op %q", apperrors.ErrValidation, ev.Op)
	}
	return nil
}

// Run applies events until the channel is closed or ctx is done. Events are applied one
// at a time in arrival order. onError, when set, receives events that could not be applied.
func (w *Workspace) Run(ctx context.Context, events <-chan domain.ChangeEvent, onError func(domain.ChangeEvent, error)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := w.Apply(ev); err != nil && onError != nil {
				onError(ev, err)
			}
		}
	}
}

// PutRecord inserts r as the newest record, or replaces the record with the same id in place.
// With a backend source a non-nil r.Hierarchy also replaces the assignment.
func (w *Workspace) PutRecord(r domain.Record) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if i := w.indexLocked(r.RecordID); i >= 0 {
		w.records[i] = r
	} else {
		w.records = append([]domain.Record{r}, w.records...)
	}
	if w.source == domain.HierarchySourceBackend && r.Hierarchy != nil {
		w.assignLocked(r.RecordID, *r.Hierarchy)
	}
	w.bumpLocked()
}

// SetField applies a single field update and returns the record as it was before.
func (w *Workspace) SetField(id string, u domain.FieldUpdate) (domain.Record, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	i := w.indexLocked(id)
	if i < 0 {
		return domain.Record{}, fmt.Errorf("%w: record %s", apperrors.ErrNotFound, id)
	}
	prev := w.records[i]
	w.records[i] = u.Apply(prev)
	w.bumpLocked()
	return prev, nil
}

// RemoveRecord drops a record with its assignment and flag. It reports whether the record
// was present. Children keep pointing at the removed id and surface as roots.
func (w *Workspace) RemoveRecord(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	i := w.indexLocked(id)
	if i < 0 {
		return false
	}
	w.records = append(w.records[:i:i], w.records[i+1:]...)
	delete(w.levels, id)
	delete(w.parents, id)
	delete(w.versInclude, id)
	w.bumpLocked()
	return true
}

// SetAssignment replaces the hierarchy assignment of id.
func (w *Workspace) SetAssignment(id string, a domain.HierarchyAssignment) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.assignLocked(id, a)
	if i := w.indexLocked(id); i >= 0 && w.source == domain.HierarchySourceBackend {
		a := a
		w.records[i].Hierarchy = &a
	}
	w.bumpLocked()
}

// SetInclusion sets the versamenti inclusion flag of id.
func (w *Workspace) SetInclusion(id string, include bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.versInclude[id] = include
	w.bumpLocked()
}

// Source reports where assignments are authoritative.
func (w *Workspace) Source() domain.HierarchySource {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.source
}

// Generation is bumped by every mutation.
func (w *Workspace) Generation() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.generation
}

// Snapshot returns the immutable view of the current generation. Consecutive calls
// without a mutation in between return the same snapshot.
func (w *Workspace) Snapshot() *Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.snap != nil && w.snap.generation == w.generation {
		return w.snap
	}
	records := make([]domain.Record, len(w.records))
	copy(records, w.records)
	assignments := make(map[string]domain.HierarchyAssignment, len(w.levels))
	for id, level := range w.levels {
		assignments[id] = domain.HierarchyAssignment{Level: level, ParentID: w.parents[id]}
	}
	flags := make(map[string]bool, len(w.versInclude))
	for id, include := range w.versInclude {
		flags[id] = include
	}
	w.snap = &Snapshot{
		generation:  w.generation,
		source:      w.source,
		records:     records,
		assignments: assignments,
		flags:       flags,
	}
	return w.snap
}

func (w *Workspace) assignLocked(id string, a domain.HierarchyAssignment) {
	w.levels[id] = domain.LevelOrDefault(a.Level)
	w.parents[id] = a.ParentID
}

func (w *Workspace) indexLocked(id string) int {
	for i, r := range w.records {
		if r.RecordID == id {
			return i
		}
	}
	return -1
}

func (w *Workspace) bumpLocked() {
	w.generation++
}
