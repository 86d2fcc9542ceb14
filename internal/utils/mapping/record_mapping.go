package mapping

import (
	"database/sql"

	"github.com/SscSPs/esiti_settimanali/internal/core/domain"
	"github.com/SscSPs/esiti_settimanali/internal/models"
	"github.com/shopspring/decimal"
)

func nullDecimal(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// ToModelRecord converts a domain Record to a model Record. Hierarchy columns are only
// marked present when the record carries an assignment.
func ToModelRecord(d domain.Record) models.Record {
	m := models.Record{
		ID:                    d.RecordID,
		UserID:                nullString(d.OwnerID),
		Name:                  d.Name,
		Negativo:              nullDecimal(d.Negativo),
		Cauzione:              nullDecimal(d.Cauzione),
		VersamentiSettimanali: nullDecimal(d.VersamentiSettimanali),
		Disponibilita:         nullDecimal(d.Disponibilita),
		CreatedAt:             d.CreatedAt,
	}
	if d.Hierarchy != nil {
		m.HasHierarchy = true
		m.Level = nullString(string(d.Hierarchy.Level))
		m.ParentID = nullString(d.Hierarchy.ParentID)
	}
	return m
}

// ToDomainRecord converts a model Record to a domain Record. Null amounts read as zero,
// an unknown or null level reads as the default level.
func ToDomainRecord(m models.Record) domain.Record {
	d := domain.Record{
		RecordID:              m.ID,
		Name:                  m.Name,
		Negativo:              m.Negativo.Decimal,
		Cauzione:              m.Cauzione.Decimal,
		VersamentiSettimanali: m.VersamentiSettimanali.Decimal,
		Disponibilita:         m.Disponibilita.Decimal,
		OwnerID:               m.UserID.String,
		CreatedAt:             m.CreatedAt,
	}
	if m.HasHierarchy {
		a := domain.HierarchyAssignment{
			Level:    domain.LevelOrDefault(domain.Level(m.Level.String)),
			ParentID: m.ParentID.String,
		}
		d.Hierarchy = &a
	}
	return d
}

// ToDomainRecords converts a slice of model Records
func ToDomainRecords(ms []models.Record) []domain.Record {
	out := make([]domain.Record, len(ms))
	for i, m := range ms {
		out[i] = ToDomainRecord(m)
	}
	return out
}
