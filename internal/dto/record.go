package dto

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/SscSPs/esiti_settimanali/internal/core/domain"
	"github.com/shopspring/decimal"
)

// RawValue is user-typed input. JSON strings are kept verbatim; JSON numbers are
// kept in their literal form so "12,5" and 12.5 both reach the amount parser.
type RawValue string

// UnmarshalJSON accepts a string, a number or null.
func (v *RawValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*v = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = RawValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*v = RawValue(n.String())
	return nil
}

// CreateRecordRequest defines the data needed to add a record.
type CreateRecordRequest struct {
	Name                  string   `json:"name" binding:"required"`
	Negativo              RawValue `json:"negativo"`
	Cauzione              RawValue `json:"cauzione"`
	VersamentiSettimanali RawValue `json:"versamentiSettimanali"`
	Disponibilita         RawValue `json:"disponibilita"`
	Level                 string   `json:"level"`    // Optional, defaults to user
	ParentID              *string  `json:"parentID"` // Optional, nil for a root
}

// UpdateFieldRequest changes one field of a record.
type UpdateFieldRequest struct {
	Field string   `json:"field" binding:"required,oneof=name negativo cauzione versamenti_settimanali disponibilita"`
	Value RawValue `json:"value"`
}

// EditHierarchyRequest reassigns level and, optionally, parent.
// When ParentID is omitted the current parent is kept if the new level still allows it.
// An empty string makes the record a root.
type EditHierarchyRequest struct {
	Level    string  `json:"level" binding:"required"`
	ParentID *string `json:"parentID"`
}

// SetInclusionRequest toggles whether versamenti count towards the record's result.
type SetInclusionRequest struct {
	Include *bool `json:"include" binding:"required"`
}

// RecordResponse defines the data returned for a record.
type RecordResponse struct {
	RecordID              string          `json:"id"`
	Name                  string          `json:"name"`
	Negativo              decimal.Decimal `json:"negativo"`
	Cauzione              decimal.Decimal `json:"cauzione"`
	VersamentiSettimanali decimal.Decimal `json:"versamentiSettimanali"`
	Disponibilita         decimal.Decimal `json:"disponibilita"`
	Result                decimal.Decimal `json:"result"`
	Level                 domain.Level    `json:"level"`
	ParentID              string          `json:"parentID"`
	IncludeVers           bool            `json:"includeVers"`
	OwnerID               string          `json:"ownerID"`
	CreatedAt             time.Time       `json:"createdAt"`
}

// ToRecordResponse converts a record with its hierarchy state to a RecordResponse DTO
func ToRecordResponse(r domain.Record, a domain.HierarchyAssignment, includeVers bool) RecordResponse {
	return RecordResponse{
		RecordID:              r.RecordID,
		Name:                  r.Name,
		Negativo:              r.Negativo,
		Cauzione:              r.Cauzione,
		VersamentiSettimanali: r.VersamentiSettimanali,
		Disponibilita:         r.Disponibilita,
		Result:                domain.ComputeResult(r.Negativo, r.Cauzione, r.VersamentiSettimanali, includeVers),
		Level:                 domain.LevelOrDefault(a.Level),
		ParentID:              a.ParentID,
		IncludeVers:           includeVers,
		OwnerID:               r.OwnerID,
		CreatedAt:             r.CreatedAt,
	}
}

// ImportRecordRow is one parsed line of a bulk import file. Amounts stay raw text.
type ImportRecordRow struct {
	Line                  int    `json:"line"`
	Name                  string `json:"name" validate:"required"`
	Negativo              string `json:"negativo"`
	Cauzione              string `json:"cauzione"`
	VersamentiSettimanali string `json:"versamentiSettimanali"`
	Disponibilita         string `json:"disponibilita"`
	Level                 string `json:"level"`
	ParentID              string `json:"parentID"`
}

// ImportResult summarises a bulk import.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	// RootedLines lists input lines whose hierarchy assignment was rejected and imported as roots.
	RootedLines []int            `json:"rootedLines,omitempty"`
	Records     []RecordResponse `json:"records"`
}

// ListRecordsParams defines the optional paging of the record list.
// A zero Limit returns every record.
type ListRecordsParams struct {
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=500"`
	NextToken string `form:"nextToken"`
}

// ListRecordsResponse is one page of records in store order.
type ListRecordsResponse struct {
	Records   []RecordResponse `json:"records"`
	NextToken *string          `json:"nextToken,omitempty"`
}
