package workspace

import (
	"sync"

	"github.com/SscSPs/esiti_settimanali/internal/core/domain"
	"github.com/SscSPs/esiti_settimanali/internal/core/hierarchy"
)

// Snapshot is a read-only copy of one workspace generation. The tree and the subtree
// sums are built on first use and shared by every reader of the snapshot.
type Snapshot struct {
	generation  uint64
	source      domain.HierarchySource
	records     []domain.Record
	assignments map[string]domain.HierarchyAssignment
	flags       map[string]bool

	once sync.Once
	tree *hierarchy.Tree
	agg  *hierarchy.Aggregator
}

func (s *Snapshot) build() {
	s.once.Do(func() {
		s.tree = hierarchy.Build(s.records, s.assignments)
		s.agg = hierarchy.NewAggregator(s.tree, s.flags)
		// fill sums now so concurrent readers only ever read them
		s.agg.Totals()
	})
}

// Generation identifies the workspace state the snapshot was taken from.
func (s *Snapshot) Generation() uint64 { return s.generation }

// Source reports where assignments were authoritative at snapshot time.
func (s *Snapshot) Source() domain.HierarchySource { return s.source }

// Len is the number of records.
func (s *Snapshot) Len() int { return len(s.records) }

// Records returns a copy of the records in store order.
func (s *Snapshot) Records() []domain.Record {
	out := make([]domain.Record, len(s.records))
	copy(out, s.records)
	return out
}

// Record looks a record up by id.
func (s *Snapshot) Record(id string) (domain.Record, bool) {
	for _, r := range s.records {
		if r.RecordID == id {
			return r, true
		}
	}
	return domain.Record{}, false
}

// Assignment returns the stored assignment of id, or the default one.
func (s *Snapshot) Assignment(id string) domain.HierarchyAssignment {
	if a, ok := s.assignments[id]; ok {
		return a
	}
	return domain.DefaultAssignment()
}

// IncludesVers reports the effective inclusion flag of id.
func (s *Snapshot) IncludesVers(id string) bool {
	include, ok := s.flags[id]
	return !ok || include
}

// Tree returns the hierarchy built from this snapshot.
func (s *Snapshot) Tree() *hierarchy.Tree {
	s.build()
	return s.tree
}

// Aggregator returns the value aggregator for this snapshot's tree.
func (s *Snapshot) Aggregator() *hierarchy.Aggregator {
	s.build()
	return s.agg
}
