package domain

import (
	"fmt"
	"strings"

	"github.com/SscSPs/esiti_settimanali/internal/apperrors"
)

// Level is the rank of a record in the ownership hierarchy.
type Level string

const (
	LevelMaster        Level = "master"
	LevelAgente        Level = "agente"
	LevelCollaboratore Level = "collaboratore"
	LevelPVR           Level = "pvr"
	LevelUser          Level = "user"
)

// DefaultLevel is applied to records that carry no assignment.
const DefaultLevel = LevelUser

// Levels lists every level from the highest (master) to the lowest (user).
var Levels = []Level{LevelMaster, LevelAgente, LevelCollaboratore, LevelPVR, LevelUser}

// allowedParents is the child level -> permitted parent levels table.
var allowedParents = map[Level][]Level{
	LevelMaster:        nil,
	LevelAgente:        {LevelMaster},
	LevelCollaboratore: {LevelMaster, LevelAgente},
	LevelPVR:           {LevelMaster, LevelAgente, LevelCollaboratore},
	LevelUser:          {LevelMaster, LevelAgente, LevelCollaboratore, LevelPVR},
}

// Rank returns the position of the level in the master..user order (master = 0).
// Unknown levels rank after user.
func (l Level) Rank() int {
	for i, lv := range Levels {
		if lv == l {
			return i
		}
	}
	return len(Levels)
}

// IsValid reports whether l is one of the known levels.
func (l Level) IsValid() bool {
	return l.Rank() < len(Levels)
}

// IsAbove reports whether l is strictly higher in the hierarchy than other.
func (l Level) IsAbove(other Level) bool {
	return l.Rank() < other.Rank()
}

// AllowedParentLevels returns the levels a parent of l may have. A copy is returned.
func AllowedParentLevels(l Level) []Level {
	allowed := allowedParents[l]
	out := make([]Level, len(allowed))
	copy(out, allowed)
	return out
}

// ValidateAssignment reports whether a record at childLevel may report to a parent at parentLevel.
func ValidateAssignment(childLevel, parentLevel Level) bool {
	for _, allowed := range allowedParents[childLevel] {
		if allowed == parentLevel {
			return true
		}
	}
	return false
}

// ParseLevel parses a level name case-insensitively. An empty string yields DefaultLevel.
func ParseLevel(raw string) (Level, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return DefaultLevel, nil
	}
	l := Level(s)
	if !l.IsValid() {
		return "", fmt.Errorf("%w: unknown level %q", apperrors.ErrValidation, raw)
	}
	return l, nil
}

// LevelOrDefault returns l when it is a known level, DefaultLevel otherwise.
func LevelOrDefault(l Level) Level {
	if l.IsValid() {
		return l
	}
	return DefaultLevel
}
