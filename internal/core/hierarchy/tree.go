// Package hierarchy builds the referral tree from flat records and computes
// per-node and subtree values over it. Everything here is a pure function of
// its inputs; nothing is persisted.
package hierarchy

import (
	"sort"

	"github.com/SscSPs/esiti_settimanali/internal/core/domain"
)

// node is one arena slot. parent is -1 for roots.
type node struct {
	record   domain.Record
	level    domain.Level
	parentID string // as assigned, possibly dangling
	parent   int
	children []int
}

// Tree is an arena of nodes indexed by position in the record slice.
// Children keep the records' native order.
type Tree struct {
	nodes []node
	index map[string]int
	roots []int
}

// Build joins records with their assignments. Records without an assignment get the
// default one. A parent reference that is empty, points at the record itself, or does
// not resolve to a record in the input makes the record a root.
func Build(records []domain.Record, assignments map[string]domain.HierarchyAssignment) *Tree {
	t := &Tree{
		nodes: make([]node, len(records)),
		index: make(map[string]int, len(records)),
	}
	for i, r := range records {
		a, ok := assignments[r.RecordID]
		if !ok {
			a = domain.DefaultAssignment()
		}
		t.nodes[i] = node{
			record:   r,
			level:    domain.LevelOrDefault(a.Level),
			parentID: a.ParentID,
			parent:   -1,
		}
		t.index[r.RecordID] = i
	}
	for i := range t.nodes {
		n := &t.nodes[i]
		p, ok := t.index[n.parentID]
		if n.parentID == "" || !ok || p == i {
			t.roots = append(t.roots, i)
			continue
		}
		n.parent = p
		t.nodes[p].children = append(t.nodes[p].children, i)
	}
	t.breakCycles()
	return t
}

// breakCycles promotes to root the first record (in native order) of every parent
// chain that never reaches a root. Level-checked writes cannot create such chains,
// but raw imported data can.
func (t *Tree) breakCycles() {
	reached := make([]bool, len(t.nodes))
	mark := func(from int) {
		stack := []int{from}
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if reached[i] {
				continue
			}
			reached[i] = true
			stack = append(stack, t.nodes[i].children...)
		}
	}
	for _, r := range t.roots {
		mark(r)
	}
	promoted := false
	for i := range t.nodes {
		if reached[i] {
			continue
		}
		p := t.nodes[i].parent
		siblings := t.nodes[p].children
		for k, c := range siblings {
			if c == i {
				t.nodes[p].children = append(siblings[:k:k], siblings[k+1:]...)
				break
			}
		}
		t.nodes[i].parent = -1
		t.roots = append(t.roots, i)
		promoted = true
		mark(i)
	}
	if promoted {
		sort.Ints(t.roots)
	}
}

// Len is the number of records in the tree.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Has reports whether id is a record in the tree.
func (t *Tree) Has(id string) bool {
	_, ok := t.index[id]
	return ok
}

// Record returns the record stored under id.
func (t *Tree) Record(id string) (domain.Record, bool) {
	i, ok := t.index[id]
	if !ok {
		return domain.Record{}, false
	}
	return t.nodes[i].record, true
}

// Level returns the effective level of id (the default level for unknown ids).
func (t *Tree) Level(id string) domain.Level {
	i, ok := t.index[id]
	if !ok {
		return domain.DefaultLevel
	}
	return t.nodes[i].level
}

// Parent returns the resolved parent id, or "" for roots and orphans.
func (t *Tree) Parent(id string) string {
	i, ok := t.index[id]
	if !ok || t.nodes[i].parent < 0 {
		return ""
	}
	return t.nodes[t.nodes[i].parent].record.RecordID
}

// IsOrphan reports whether id carries a parent reference that did not resolve.
func (t *Tree) IsOrphan(id string) bool {
	i, ok := t.index[id]
	if !ok {
		return false
	}
	n := t.nodes[i]
	return n.parentID != "" && n.parent < 0
}

// ChildrenOf lists the ids of every record whose parent is id.
func (t *Tree) ChildrenOf(id string) []string {
	i, ok := t.index[id]
	if !ok {
		return nil
	}
	return t.ids(t.nodes[i].children)
}

// Roots lists root ids in native record order.
func (t *Tree) Roots() []string {
	return t.ids(t.roots)
}

// Records returns the records in native order.
func (t *Tree) Records() []domain.Record {
	out := make([]domain.Record, len(t.nodes))
	for i, n := range t.nodes {
		out[i] = n.record
	}
	return out
}

func (t *Tree) ids(idx []int) []string {
	out := make([]string, len(idx))
	for k, i := range idx {
		out[k] = t.nodes[i].record.RecordID
	}
	return out
}
