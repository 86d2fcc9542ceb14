package hierarchy

import "github.com/SscSPs/esiti_settimanali/internal/core/domain"

// Aggregator computes own values and subtree sums over a Tree.
// Subtree sums are filled once, bottom-up, the first time they are asked for.
type Aggregator struct {
	tree  *Tree
	flags map[string]bool
	own   []domain.Values
	sums  []domain.Values
}

// NewAggregator binds a tree to the per-record versamenti inclusion flags.
// A record missing from flags includes its versamenti.
func NewAggregator(tree *Tree, flags map[string]bool) *Aggregator {
	a := &Aggregator{
		tree:  tree,
		flags: flags,
		own:   make([]domain.Values, len(tree.nodes)),
	}
	for i, n := range tree.nodes {
		a.own[i] = domain.OwnValues(n.record, a.includes(n.record.RecordID))
	}
	return a
}

func (a *Aggregator) includes(id string) bool {
	include, ok := a.flags[id]
	return !ok || include
}

// IncludesVers reports the effective inclusion flag for id.
func (a *Aggregator) IncludesVers(id string) bool {
	return a.includes(id)
}

// ValueOf returns the record's own values. Unknown ids yield zero values.
func (a *Aggregator) ValueOf(id string) domain.Values {
	i, ok := a.tree.index[id]
	if !ok {
		return domain.Values{}
	}
	return a.own[i]
}

// SumTree returns the record's own values plus those of every transitive descendant.
func (a *Aggregator) SumTree(id string) domain.Values {
	i, ok := a.tree.index[id]
	if !ok {
		return domain.Values{}
	}
	a.fill()
	return a.sums[i]
}

// Totals sums every root subtree, i.e. every record exactly once.
func (a *Aggregator) Totals() domain.Values {
	a.fill()
	var total domain.Values
	for _, r := range a.tree.roots {
		total = total.Add(a.sums[r])
	}
	return total
}

// fill computes all subtree sums with an explicit post-order stack so depth is unbounded.
func (a *Aggregator) fill() {
	if a.sums != nil {
		return
	}
	sums := make([]domain.Values, len(a.own))
	copy(sums, a.own)

	type frame struct {
		idx     int
		visited bool
	}
	stack := make([]frame, 0, len(a.tree.roots))
	for _, r := range a.tree.roots {
		stack = append(stack, frame{idx: r})
	}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := a.tree.nodes[top.idx]
		if top.visited {
			for _, c := range n.children {
				sums[top.idx] = sums[top.idx].Add(sums[c])
			}
			continue
		}
		stack = append(stack, frame{idx: top.idx, visited: true})
		for _, c := range n.children {
			stack = append(stack, frame{idx: c})
		}
	}
	a.sums = sums
}
