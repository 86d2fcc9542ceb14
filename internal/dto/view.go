package dto

import (
	"strings"

	"github.com/SscSPs/esiti_settimanali/internal/core/domain"
	"github.com/SscSPs/esiti_settimanali/internal/core/hierarchy"
)

// TreeQuery defines the query parameters of the tree view.
type TreeQuery struct {
	Root     string `form:"root"`
	Query    string `form:"q"`
	Expanded string `form:"expanded"` // comma separated record ids
	// ExpandedSet tells an empty expansion list apart from no expansion state at all.
	ExpandedSet bool `form:"-"`
}

// ToViewState converts the query to the traversal engine's state.
func (q TreeQuery) ToViewState() hierarchy.ViewState {
	state := hierarchy.ViewState{
		SelectedRootID: strings.TrimSpace(q.Root),
		SearchQuery:    q.Query,
	}
	if q.ExpandedSet || q.Expanded != "" {
		state.Expanded = map[string]bool{}
		for _, id := range strings.Split(q.Expanded, ",") {
			if id = strings.TrimSpace(id); id != "" {
				state.Expanded[id] = true
			}
		}
	}
	return state
}

// TreeRowResponse is one visible row with its own and subtree values.
type TreeRowResponse struct {
	RecordID    string        `json:"id"`
	Name        string        `json:"name"`
	Level       domain.Level  `json:"level"`
	ParentID    string        `json:"parentID"`
	Depth       int           `json:"depth"`
	HasChildren bool          `json:"hasChildren"`
	Expanded    bool          `json:"expanded"`
	IncludeVers bool          `json:"includeVers"`
	Own         domain.Values `json:"own"`
	Subtree     domain.Values `json:"subtree"`
}

// TreeResponse is the full answer of the tree view.
type TreeResponse struct {
	Mode       hierarchy.Mode    `json:"mode"`
	Generation uint64            `json:"generation"`
	Rows       []TreeRowResponse `json:"rows"`
	Totals     domain.Values     `json:"totals"`
}

// NodeResponse describes one record in the tree.
type NodeResponse struct {
	TreeRowResponse
	Children         []string       `json:"children"`
	AllowedParents   []domain.Level `json:"allowedParents"`
	CandidateParents []string       `json:"candidateParents"`
}

// FlatRowResponse is one line of the flat export: display name upper-cased,
// amounts rounded to two decimals.
type FlatRowResponse struct {
	Name                  string `json:"name"`
	Negativo              string `json:"negativo"`
	Cauzione              string `json:"cauzione"`
	VersamentiSettimanali string `json:"versamentiSettimanali"`
	Disponibilita         string `json:"disponibilita"`
	Result                string `json:"result"`
}

// LevelInfo describes one hierarchy level and the levels it may report to.
type LevelInfo struct {
	Level          domain.Level   `json:"level"`
	Rank           int            `json:"rank"`
	AllowedParents []domain.Level `json:"allowedParents"`
}
