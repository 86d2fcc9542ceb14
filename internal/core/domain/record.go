package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/SscSPs/esiti_settimanali/internal/apperrors"
	"github.com/shopspring/decimal"
)

// Record is one weekly financial outcome entry.
type Record struct {
	RecordID              string          `json:"id"`
	Name                  string          `json:"name"`
	Negativo              decimal.Decimal `json:"negativo"` // always <= 0 once written
	Cauzione              decimal.Decimal `json:"cauzione"`
	VersamentiSettimanali decimal.Decimal `json:"versamentiSettimanali"`
	Disponibilita         decimal.Decimal `json:"disponibilita"`
	OwnerID               string          `json:"ownerID"` // account that created it, not the hierarchy parent
	CreatedAt             time.Time       `json:"createdAt"`

	// Hierarchy is nil when the record store has no hierarchy columns.
	Hierarchy *HierarchyAssignment `json:"hierarchy,omitempty"`
}

// HierarchyAssignment places a record in the tree. An empty ParentID marks a root.
type HierarchyAssignment struct {
	Level    Level  `json:"level"`
	ParentID string `json:"parentID"`
}

// DefaultAssignment is used for records without any assignment.
func DefaultAssignment() HierarchyAssignment {
	return HierarchyAssignment{Level: DefaultLevel}
}

// RecordDraft carries the values for a record that does not exist yet.
type RecordDraft struct {
	Name                  string
	Negativo              decimal.Decimal
	Cauzione              decimal.Decimal
	VersamentiSettimanali decimal.Decimal
	Disponibilita         decimal.Decimal
	OwnerID               string

	// Hierarchy is only written to the store when it is backend-authoritative.
	Hierarchy *HierarchyAssignment
}

// RecordField names an individually editable field of a Record.
type RecordField string

const (
	FieldName                  RecordField = "name"
	FieldNegativo              RecordField = "negativo"
	FieldCauzione              RecordField = "cauzione"
	FieldVersamentiSettimanali RecordField = "versamenti_settimanali"
	FieldDisponibilita         RecordField = "disponibilita"
)

// ParseRecordField validates a field name coming from a client.
func ParseRecordField(raw string) (RecordField, error) {
	f := RecordField(strings.TrimSpace(raw))
	switch f {
	case FieldName, FieldNegativo, FieldCauzione, FieldVersamentiSettimanali, FieldDisponibilita:
		return f, nil
	}
	return "", fmt.Errorf("%w: unknown field %q", apperrors.ErrValidation, raw)
}

// FieldUpdate is a single-field change. Text is set for FieldName, Amount otherwise.
type FieldUpdate struct {
	Field  RecordField
	Text   string
	Amount decimal.Decimal
}

// Apply returns a copy of r with the update applied.
func (u FieldUpdate) Apply(r Record) Record {
	switch u.Field {
	case FieldName:
		r.Name = u.Text
	case FieldNegativo:
		r.Negativo = u.Amount
	case FieldCauzione:
		r.Cauzione = u.Amount
	case FieldVersamentiSettimanali:
		r.VersamentiSettimanali = u.Amount
	case FieldDisponibilita:
		r.Disponibilita = u.Amount
	}
	return r
}

// NormalizeNegativo stores the deficit as -|v| whatever sign was entered.
func NormalizeNegativo(v decimal.Decimal) decimal.Decimal {
	return v.Abs().Neg()
}

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// ParseAmount reads a user-typed amount. A comma is accepted as the decimal separator,
// trailing garbage after a numeric prefix is ignored, and anything unparseable is zero.
func ParseAmount(raw string) decimal.Decimal {
	s := strings.TrimSpace(raw)
	s = strings.Replace(s, ",", ".", 1)
	m := leadingNumber.FindString(s)
	if m == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(m)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ValidateName rejects empty or whitespace-only names.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name cannot be empty", apperrors.ErrValidation)
	}
	return nil
}
