package hierarchy

import (
	"fmt"

	"github.com/SscSPs/esiti_settimanali/internal/apperrors"
	"github.com/SscSPs/esiti_settimanali/internal/core/domain"
)

// CheckAssignment validates placing id at level under parentID against the tree.
// An empty parentID is always accepted. The parent must exist, must not be id itself,
// and its level must be one the child level may report to.
func CheckAssignment(t *Tree, id string, level domain.Level, parentID string) error {
	if !level.IsValid() {
		return fmt.Errorf("%w: unknown level %q", apperrors.ErrValidation, level)
	}
	if parentID == "" {
		return nil
	}
	if parentID == id {
		return fmt.Errorf("%w: record %s cannot be its own parent", apperrors.ErrHierarchyAssignment, id)
	}
	if !t.Has(parentID) {
		return fmt.Errorf("%w: parent %s does not exist", apperrors.ErrHierarchyAssignment, parentID)
	}
	parentLevel := t.Level(parentID)
	if !domain.ValidateAssignment(level, parentLevel) {
		return fmt.Errorf("%w: a %s cannot report to a %s", apperrors.ErrHierarchyAssignment, level, parentLevel)
	}
	if IsAncestor(t, id, parentID) {
		return fmt.Errorf("%w: %s is a descendant of %s", apperrors.ErrHierarchyAssignment, parentID, id)
	}
	return nil
}

// IsAncestor reports whether ancestor lies on the resolved parent chain of id.
func IsAncestor(t *Tree, ancestor, id string) bool {
	for steps, cur := 0, t.Parent(id); cur != "" && steps <= t.Len(); steps, cur = steps+1, t.Parent(cur) {
		if cur == ancestor {
			return true
		}
	}
	return false
}

// Revalidate returns the parent id that id keeps when moved to newLevel: the current
// resolved parent if it is still allowed, "" otherwise.
func Revalidate(t *Tree, id string, newLevel domain.Level) string {
	parentID := t.Parent(id)
	if parentID == "" {
		return ""
	}
	if CheckAssignment(t, id, newLevel, parentID) != nil {
		return ""
	}
	return parentID
}

// StrandedChildren lists the children of id that could no longer report to it once it
// is moved to newLevel.
func StrandedChildren(t *Tree, id string, newLevel domain.Level) []string {
	var out []string
	for _, c := range t.ChildrenOf(id) {
		if !domain.ValidateAssignment(t.Level(c), newLevel) {
			out = append(out, c)
		}
	}
	return out
}

// CandidateParents lists the records that id could report to at level, in native order.
func CandidateParents(t *Tree, id string, level domain.Level) []domain.Record {
	var out []domain.Record
	for _, n := range t.nodes {
		if n.record.RecordID == id {
			continue
		}
		if domain.ValidateAssignment(level, n.level) {
			out = append(out, n.record)
		}
	}
	return out
}
