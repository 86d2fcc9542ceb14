package services

import (
	"context"

	"github.com/SscSPs/esiti_settimanali/internal/core/domain"
	"github.com/SscSPs/esiti_settimanali/internal/core/hierarchy"
	"github.com/SscSPs/esiti_settimanali/internal/dto"
)

// ViewSvc exposes the computed, read-only views over the current workspace
type ViewSvc interface {
	// Tree returns the visible rows for state with own and subtree values.
	Tree(ctx context.Context, state hierarchy.ViewState) dto.TreeResponse

	// Totals sums every record exactly once.
	Totals(ctx context.Context) domain.Values

	// Node describes a single record in the tree.
	Node(ctx context.Context, recordID string) (*dto.NodeResponse, error)

	// ExportRows returns the hierarchical export in full-tree order.
	ExportRows(ctx context.Context) []domain.ExportRow

	// FlatRows returns store-order rows formatted for the flat export.
	FlatRows(ctx context.Context) []dto.FlatRowResponse

	// Levels describes the level table.
	Levels() []dto.LevelInfo
}

// SyncSvc keeps the workspace in step with remote changes
type SyncSvc interface {
	// Start subscribes to the change feed and applies events until ctx is done.
	// It returns once the subscription is established.
	Start(ctx context.Context) error
}
