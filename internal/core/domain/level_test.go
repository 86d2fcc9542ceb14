package domain_test

import (
	"testing"

	"github.com/SscSPs/esiti_settimanali/internal/apperrors"
	"github.com/SscSPs/esiti_settimanali/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAssignment(t *testing.T) {
	tests := []struct {
		name   string
		child  domain.Level
		parent domain.Level
		want   bool
	}{
		{name: "agente under master", child: domain.LevelAgente, parent: domain.LevelMaster, want: true},
		{name: "agente under collaboratore", child: domain.LevelAgente, parent: domain.LevelCollaboratore, want: false},
		{name: "master never has a parent", child: domain.LevelMaster, parent: domain.LevelMaster, want: false},
		{name: "collaboratore under agente", child: domain.LevelCollaboratore, parent: domain.LevelAgente, want: true},
		{name: "collaboratore under pvr", child: domain.LevelCollaboratore, parent: domain.LevelPVR, want: false},
		{name: "pvr under collaboratore", child: domain.LevelPVR, parent: domain.LevelCollaboratore, want: true},
		{name: "user under pvr", child: domain.LevelUser, parent: domain.LevelPVR, want: true},
		{name: "user under user", child: domain.LevelUser, parent: domain.LevelUser, want: false},
		{name: "same level is never allowed", child: domain.LevelPVR, parent: domain.LevelPVR, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.ValidateAssignment(tt.child, tt.parent))
		})
	}
}

func TestAllowedParentsAreStrictlyHigher(t *testing.T) {
	for _, child := range domain.Levels {
		for _, parent := range domain.AllowedParentLevels(child) {
			assert.True(t, parent.IsAbove(child), "%s may not report to %s", child, parent)
		}
	}
	assert.Empty(t, domain.AllowedParentLevels(domain.LevelMaster))
}

func TestAllowedParentLevelsReturnsCopy(t *testing.T) {
	got := domain.AllowedParentLevels(domain.LevelUser)
	got[0] = domain.LevelUser
	assert.Equal(t, domain.LevelMaster, domain.AllowedParentLevels(domain.LevelUser)[0])
}

func TestParseLevel(t *testing.T) {
	l, err := domain.ParseLevel("  PVR ")
	require.NoError(t, err)
	assert.Equal(t, domain.LevelPVR, l)

	l, err = domain.ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, domain.LevelUser, l)

	_, err = domain.ParseLevel("boss")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestLevelRankOrder(t *testing.T) {
	assert.Equal(t, 0, domain.LevelMaster.Rank())
	assert.Equal(t, 4, domain.LevelUser.Rank())
	assert.True(t, domain.LevelMaster.IsAbove(domain.LevelAgente))
	assert.False(t, domain.LevelUser.IsAbove(domain.LevelPVR))
	assert.Equal(t, domain.LevelUser, domain.LevelOrDefault(domain.Level("nope")))
}
