package hierarchy

import "github.com/SscSPs/esiti_settimanali/internal/core/domain"

// ExportRows flattens the whole tree, every node expanded, in display order.
// Each record contributes its own row; a record with any children is followed,
// after its displayable descendants, by an aggregate row holding its subtree totals,
// so values of hidden children still reach the export.
func ExportRows(t *Tree, agg *Aggregator) []domain.ExportRow {
	type frame struct {
		idx   int
		depth int
		exit  bool
	}
	rows := make([]domain.ExportRow, 0, len(t.nodes))
	roots := sortedRoots(t)
	stack := make([]frame, 0, len(roots))
	for k := len(roots) - 1; k >= 0; k-- {
		stack = append(stack, frame{idx: roots[k]})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := t.nodes[f.idx]
		id := n.record.RecordID
		if f.exit {
			rows = append(rows, exportRow(t, n, agg.SumTree(id), f.depth, true))
			continue
		}
		rows = append(rows, exportRow(t, n, agg.ValueOf(id), f.depth, false))
		if len(n.children) == 0 {
			continue
		}
		stack = append(stack, frame{idx: f.idx, depth: f.depth, exit: true})
		children := eligibleChildren(t, f.idx)
		for k := len(children) - 1; k >= 0; k-- {
			stack = append(stack, frame{idx: children[k], depth: f.depth + 1})
		}
	}
	return rows
}

func exportRow(t *Tree, n node, v domain.Values, depth int, aggregate bool) domain.ExportRow {
	parentName := ""
	if n.parent >= 0 {
		parentName = t.nodes[n.parent].record.Name
	}
	return domain.ExportRow{
		Record:         n.record,
		Level:          n.level,
		ParentName:     parentName,
		Negativo:       v.Negativo,
		Cauzione:       v.Cauzione,
		Vers:           v.Vers,
		Disponibilita:  v.Disponibilita,
		Result:         v.Result,
		Depth:          depth,
		IsAggregateRow: aggregate,
	}
}
