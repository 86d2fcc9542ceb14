package hierarchy

import (
	"sort"
	"strings"

	"github.com/SscSPs/esiti_settimanali/internal/core/domain"
)

// ViewState is the per-session display state. It never affects computed values.
type ViewState struct {
	// Expanded holds the expansion flag per record id. A nil map means the caller has
	// no expansion state yet, which auto-expands a lone root.
	Expanded       map[string]bool
	SelectedRootID string
	SearchQuery    string
}

// Mode is the traversal mode picked from a ViewState.
type Mode string

const (
	ModeSearch   Mode = "search"
	ModeSubtree  Mode = "subtree"
	ModeFullTree Mode = "full"
)

// Row is one visible line of the tree.
type Row struct {
	Record      domain.Record
	Level       domain.Level
	Depth       int
	HasChildren bool // has children eligible for display
	Expanded    bool
}

// ModeFor resolves which traversal applies to state over t.
func ModeFor(t *Tree, state ViewState) Mode {
	if strings.TrimSpace(state.SearchQuery) != "" {
		return ModeSearch
	}
	if state.SelectedRootID != "" && t.Has(state.SelectedRootID) {
		return ModeSubtree
	}
	return ModeFullTree
}

// Traverse produces the ordered, depth-tagged rows to display for state.
func Traverse(t *Tree, state ViewState) []Row {
	switch ModeFor(t, state) {
	case ModeSearch:
		return search(t, state.SearchQuery)
	case ModeSubtree:
		return walk(t, []int{t.index[state.SelectedRootID]}, expansion(t, state))
	default:
		return walk(t, sortedRoots(t), expansion(t, state))
	}
}

// TraverseAll walks the full tree as if every node were expanded.
func TraverseAll(t *Tree) []Row {
	return walk(t, sortedRoots(t), func(int) bool { return true })
}

func search(t *Tree, query string) []Row {
	q := strings.ToLower(strings.TrimSpace(query))
	var rows []Row
	for _, n := range t.nodes {
		if strings.Contains(strings.ToLower(n.record.Name), q) {
			rows = append(rows, Row{Record: n.record, Level: n.level})
		}
	}
	return rows
}

func expansion(t *Tree, state ViewState) func(int) bool {
	if state.Expanded == nil && len(t.roots) == 1 {
		only := t.roots[0]
		return func(i int) bool { return i == only }
	}
	return func(i int) bool { return state.Expanded[t.nodes[i].record.RecordID] }
}

// sortedRoots orders roots by level, keeping native order within a level.
func sortedRoots(t *Tree) []int {
	roots := make([]int, len(t.roots))
	copy(roots, t.roots)
	sort.SliceStable(roots, func(a, b int) bool {
		return t.nodes[roots[a]].level.Rank() < t.nodes[roots[b]].level.Rank()
	})
	return roots
}

// eligibleChildren keeps children strictly below the node's level, pvr first,
// then by level, then native order.
func eligibleChildren(t *Tree, i int) []int {
	parentRank := t.nodes[i].level.Rank()
	var out []int
	for _, c := range t.nodes[i].children {
		if t.nodes[c].level.Rank() > parentRank {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return siblingKey(t.nodes[out[a]].level) < siblingKey(t.nodes[out[b]].level)
	})
	return out
}

func siblingKey(l domain.Level) int {
	if l == domain.LevelPVR {
		return -1
	}
	return l.Rank()
}

func walk(t *Tree, starts []int, isExpanded func(int) bool) []Row {
	type frame struct {
		idx   int
		depth int
	}
	rows := make([]Row, 0, len(t.nodes))
	stack := make([]frame, 0, len(starts))
	for k := len(starts) - 1; k >= 0; k-- {
		stack = append(stack, frame{idx: starts[k]})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := t.nodes[f.idx]
		children := eligibleChildren(t, f.idx)
		open := isExpanded(f.idx)
		rows = append(rows, Row{
			Record:      n.record,
			Level:       n.level,
			Depth:       f.depth,
			HasChildren: len(children) > 0,
			Expanded:    open,
		})
		if !open {
			continue
		}
		for k := len(children) - 1; k >= 0; k-- {
			stack = append(stack, frame{idx: children[k], depth: f.depth + 1})
		}
	}
	return rows
}
