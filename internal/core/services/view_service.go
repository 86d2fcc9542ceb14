package services

import (
	"context"
	"fmt"

	"github.com/SscSPs/esiti_settimanali/internal/apperrors"
	"github.com/SscSPs/esiti_settimanali/internal/core/domain"
	"github.com/SscSPs/esiti_settimanali/internal/core/hierarchy"
	portssvc "github.com/SscSPs/esiti_settimanali/internal/core/ports/services"
	"github.com/SscSPs/esiti_settimanali/internal/core/workspace"
	"github.com/SscSPs/esiti_settimanali/internal/dto"
	"github.com/SscSPs/esiti_settimanali/internal/utils"
)

// viewService renders read-only views from workspace snapshots
type viewService struct {
	BaseService
	ws *workspace.Workspace
}

// NewViewService creates a view service over ws
func NewViewService(ws *workspace.Workspace) portssvc.ViewSvc {
	return &viewService{ws: ws}
}

var _ portssvc.ViewSvc = (*viewService)(nil)

func treeRow(tree *hierarchy.Tree, agg *hierarchy.Aggregator, row hierarchy.Row) dto.TreeRowResponse {
	id := row.Record.RecordID
	return dto.TreeRowResponse{
		RecordID:    id,
		Name:        row.Record.Name,
		Level:       row.Level,
		ParentID:    tree.Parent(id),
		Depth:       row.Depth,
		HasChildren: row.HasChildren,
		Expanded:    row.Expanded,
		IncludeVers: agg.IncludesVers(id),
		Own:         agg.ValueOf(id),
		Subtree:     agg.SumTree(id),
	}
}

func (s *viewService) Tree(ctx context.Context, state hierarchy.ViewState) dto.TreeResponse {
	snap := s.ws.Snapshot()
	tree, agg := snap.Tree(), snap.Aggregator()

	rows := hierarchy.Traverse(tree, state)
	res := dto.TreeResponse{
		Mode:       hierarchy.ModeFor(tree, state),
		Generation: snap.Generation(),
		Rows:       make([]dto.TreeRowResponse, len(rows)),
		Totals:     agg.Totals(),
	}
	for i, row := range rows {
		res.Rows[i] = treeRow(tree, agg, row)
	}
	s.LogDebug(ctx, "Tree rendered", "mode", res.Mode, "rows", len(rows))
	return res
}

func (s *viewService) Totals(ctx context.Context) domain.Values {
	return s.ws.Snapshot().Aggregator().Totals()
}

func (s *viewService) Node(ctx context.Context, recordID string) (*dto.NodeResponse, error) {
	snap := s.ws.Snapshot()
	tree, agg := snap.Tree(), snap.Aggregator()
	r, ok := tree.Record(recordID)
	if !ok {
		return nil, fmt.Errorf("%w: record %s", apperrors.ErrNotFound, recordID)
	}

	depth := 0
	for p := tree.Parent(recordID); p != "" && depth <= tree.Len(); p = tree.Parent(p) {
		depth++
	}
	level := tree.Level(recordID)
	children := tree.ChildrenOf(recordID)
	candidates := hierarchy.CandidateParents(tree, recordID, level)
	candidateIDs := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if !hierarchy.IsAncestor(tree, recordID, c.RecordID) {
			candidateIDs = append(candidateIDs, c.RecordID)
		}
	}

	return &dto.NodeResponse{
		TreeRowResponse: treeRow(tree, agg, hierarchy.Row{
			Record:      r,
			Level:       level,
			Depth:       depth,
			HasChildren: len(children) > 0,
		}),
		Children:         children,
		AllowedParents:   domain.AllowedParentLevels(level),
		CandidateParents: candidateIDs,
	}, nil
}

func (s *viewService) ExportRows(ctx context.Context) []domain.ExportRow {
	snap := s.ws.Snapshot()
	rows := hierarchy.ExportRows(snap.Tree(), snap.Aggregator())
	s.LogInfo(ctx, "Export rows generated", "rows", len(rows))
	return rows
}

func (s *viewService) FlatRows(ctx context.Context) []dto.FlatRowResponse {
	snap := s.ws.Snapshot()
	records := snap.Records()
	rows := make([]dto.FlatRowResponse, len(records))
	for i, r := range records {
		v := domain.OwnValues(r, snap.IncludesVers(r.RecordID))
		rows[i] = dto.FlatRowResponse{
			Name:                  utils.DisplayName(r.Name),
			Negativo:              utils.FormatAmount(r.Negativo),
			Cauzione:              utils.FormatAmount(r.Cauzione),
			VersamentiSettimanali: utils.FormatAmount(r.VersamentiSettimanali),
			Disponibilita:         utils.FormatAmount(r.Disponibilita),
			Result:                utils.FormatAmount(v.Result),
		}
	}
	return rows
}

func (s *viewService) Levels() []dto.LevelInfo {
	out := make([]dto.LevelInfo, len(domain.Levels))
	for i, l := range domain.Levels {
		out[i] = dto.LevelInfo{
			Level:          l,
			Rank:           l.Rank(),
			AllowedParents: domain.AllowedParentLevels(l),
		}
	}
	return out
}
