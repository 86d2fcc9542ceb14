package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/SscSPs/esiti_settimanali/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *LocalStateRepository {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "nested", "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewLocalStateRepository(db)
}

func TestLocalState_AssignmentRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.SaveAssignment(ctx, "a", domain.HierarchyAssignment{Level: domain.LevelMaster}))
	require.NoError(t, repo.SaveAssignment(ctx, "b", domain.HierarchyAssignment{Level: domain.LevelAgente, ParentID: "a"}))
	require.NoError(t, repo.SaveAssignment(ctx, "b", domain.HierarchyAssignment{Level: domain.LevelPVR, ParentID: "a"}))

	got, err := repo.LoadAssignments(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]domain.HierarchyAssignment{
		"a": {Level: domain.LevelMaster},
		"b": {Level: domain.LevelPVR, ParentID: "a"},
	}, got)
}

func TestLocalState_InclusionIndependentOfAssignment(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.SaveInclusion(ctx, "a", false))
	require.NoError(t, repo.SaveAssignment(ctx, "a", domain.HierarchyAssignment{Level: domain.LevelUser}))
	require.NoError(t, repo.SaveInclusion(ctx, "c", true))

	flags, err := repo.LoadInclusionFlags(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"a": false, "c": true}, flags)

	// c only has a flag, so it has no assignment
	assignments, err := repo.LoadAssignments(ctx)
	require.NoError(t, err)
	assert.Len(t, assignments, 1)
	assert.Contains(t, assignments, "a")
}

func TestLocalState_DeleteRecordState(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.SaveAssignment(ctx, "a", domain.HierarchyAssignment{Level: domain.LevelMaster}))
	require.NoError(t, repo.SaveInclusion(ctx, "a", false))
	require.NoError(t, repo.DeleteRecordState(ctx, "a"))
	require.NoError(t, repo.DeleteRecordState(ctx, "missing"))

	assignments, err := repo.LoadAssignments(ctx)
	require.NoError(t, err)
	assert.Empty(t, assignments)
	flags, err := repo.LoadInclusionFlags(ctx)
	require.NoError(t, err)
	assert.Empty(t, flags)
}

func TestLocalState_UnknownLevelFallsBack(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.db.ExecContext(ctx, `INSERT INTO record_hierarchy (record_id, level) VALUES ('x', 'boss')`)
	require.NoError(t, err)

	got, err := repo.LoadAssignments(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultLevel, got["x"].Level)
}

func TestMigrate_IsRepeatable(t *testing.T) {
	db, err := OpenDB(MemoryPath)
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, Migrate(db))
	assert.NoError(t, Migrate(db))
}
