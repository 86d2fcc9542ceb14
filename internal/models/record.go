package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Record is a row of the calculations table. Level and ParentID are only meaningful
// when HasHierarchy is set, i.e. the table carries the hierarchy columns.
type Record struct {
	ID                    string              `db:"id" json:"id"`
	UserID                sql.NullString      `db:"user_id" json:"-"`
	Name                  string              `db:"name" json:"name"`
	Negativo              decimal.NullDecimal `db:"negativo" json:"negativo"`
	Cauzione              decimal.NullDecimal `db:"cauzione" json:"cauzione"`
	VersamentiSettimanali decimal.NullDecimal `db:"versamenti_settimanali" json:"versamenti_settimanali"`
	Disponibilita         decimal.NullDecimal `db:"disponibilita" json:"disponibilita"`
	CreatedAt             time.Time           `db:"created_at" json:"created_at"`
	Level                 sql.NullString      `db:"level" json:"-"`
	ParentID              sql.NullString      `db:"parent_id" json:"-"`
	HasHierarchy          bool                `db:"-" json:"-"`
}
