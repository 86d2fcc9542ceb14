package hierarchy_test

import (
	"github.com/SscSPs/esiti_settimanali/internal/core/domain"
	"github.com/SscSPs/esiti_settimanali/internal/core/hierarchy"
	"github.com/shopspring/decimal"
)

func rec(id, name string, amounts ...int64) domain.Record {
	vals := make([]decimal.Decimal, 4)
	for i := range vals {
		vals[i] = decimal.Zero
		if i < len(amounts) {
			vals[i] = decimal.NewFromInt(amounts[i])
		}
	}
	return domain.Record{
		RecordID:              id,
		Name:                  name,
		Negativo:              vals[0],
		Cauzione:              vals[1],
		VersamentiSettimanali: vals[2],
		Disponibilita:         vals[3],
	}
}

func assign(level domain.Level, parent string) domain.HierarchyAssignment {
	return domain.HierarchyAssignment{Level: level, ParentID: parent}
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func rowIDs(rows []hierarchy.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Record.RecordID
	}
	return out
}
