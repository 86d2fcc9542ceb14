package hierarchy_test

import (
	"testing"

	"github.com/SscSPs/esiti_settimanali/internal/core/domain"
	"github.com/SscSPs/esiti_settimanali/internal/core/hierarchy"
	"github.com/stretchr/testify/assert"
)

func TestBuild_ChildrenAndRoots(t *testing.T) {
	records := []domain.Record{rec("a", "A"), rec("b", "B"), rec("c", "C"), rec("d", "D")}
	assignments := map[string]domain.HierarchyAssignment{
		"a": assign(domain.LevelMaster, ""),
		"b": assign(domain.LevelAgente, "a"),
		"c": assign(domain.LevelUser, "b"),
		"d": assign(domain.LevelPVR, "a"),
	}

	tree := hierarchy.Build(records, assignments)

	assert.Equal(t, 4, tree.Len())
	assert.Equal(t, []string{"a"}, tree.Roots())
	assert.Equal(t, []string{"b", "d"}, tree.ChildrenOf("a"))
	assert.Equal(t, []string{"c"}, tree.ChildrenOf("b"))
	assert.Empty(t, tree.ChildrenOf("c"))
	assert.Equal(t, "b", tree.Parent("c"))
	assert.Equal(t, "", tree.Parent("a"))
}

func TestBuild_MissingAssignmentDefaultsToUserRoot(t *testing.T) {
	tree := hierarchy.Build([]domain.Record{rec("x", "X")}, nil)

	assert.Equal(t, []string{"x"}, tree.Roots())
	assert.Equal(t, domain.LevelUser, tree.Level("x"))
}

func TestBuild_OrphanBecomesRoot(t *testing.T) {
	records := []domain.Record{rec("a", "A"), rec("c", "C")}
	assignments := map[string]domain.HierarchyAssignment{
		"a": assign(domain.LevelMaster, ""),
		"c": assign(domain.LevelUser, "deleted-id"),
	}

	tree := hierarchy.Build(records, assignments)

	assert.Equal(t, []string{"a", "c"}, tree.Roots())
	assert.True(t, tree.IsOrphan("c"))
	assert.False(t, tree.IsOrphan("a"))
	assert.Equal(t, "", tree.Parent("c"))
}

func TestBuild_SelfParentIsRoot(t *testing.T) {
	tree := hierarchy.Build(
		[]domain.Record{rec("a", "A")},
		map[string]domain.HierarchyAssignment{"a": assign(domain.LevelAgente, "a")},
	)

	assert.Equal(t, []string{"a"}, tree.Roots())
	assert.Empty(t, tree.ChildrenOf("a"))
}

func TestBuild_CycleIsBrokenAtFirstRecord(t *testing.T) {
	records := []domain.Record{rec("a", "A"), rec("b", "B"), rec("c", "C")}
	assignments := map[string]domain.HierarchyAssignment{
		"a": assign(domain.LevelAgente, "b"),
		"b": assign(domain.LevelUser, "a"),
		"c": assign(domain.LevelMaster, ""),
	}

	tree := hierarchy.Build(records, assignments)

	assert.Equal(t, []string{"a", "c"}, tree.Roots())
	assert.Equal(t, []string{"b"}, tree.ChildrenOf("a"))
	assert.Equal(t, 3, len(hierarchy.TraverseAll(tree)))
}

func TestBuild_UnknownLevelFallsBackToDefault(t *testing.T) {
	tree := hierarchy.Build(
		[]domain.Record{rec("a", "A")},
		map[string]domain.HierarchyAssignment{"a": assign(domain.Level("boss"), "")},
	)
	assert.Equal(t, domain.LevelUser, tree.Level("a"))
}
