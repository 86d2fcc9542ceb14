package domain

import "github.com/shopspring/decimal"

// ChangeOp is the kind of change reported by the record store.
type ChangeOp string

const (
	ChangeInsert ChangeOp = "insert"
	ChangeUpdate ChangeOp = "update"
	ChangeDelete ChangeOp = "delete"
)

// ChangeEvent is one notification from the record store change feed.
// For deletes only RecordID is meaningful.
type ChangeEvent struct {
	Op       ChangeOp `json:"op"`
	RecordID string   `json:"id"`
	Record   Record   `json:"record"`
}

// ExportRow is one line of the hierarchical export, in full-tree traversal order.
type ExportRow struct {
	Record         Record          `json:"record"`
	Level          Level           `json:"level"`
	ParentName     string          `json:"parentName"`
	Negativo       decimal.Decimal `json:"negativo"`
	Cauzione       decimal.Decimal `json:"cauzione"`
	Vers           decimal.Decimal `json:"vers"`
	Disponibilita  decimal.Decimal `json:"disponibilita"`
	Result         decimal.Decimal `json:"result"`
	Depth          int             `json:"depth"`
	IsAggregateRow bool            `json:"isAggregateRow"`
}
