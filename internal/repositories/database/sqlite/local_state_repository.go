package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/SscSPs/esiti_settimanali/internal/apperrors"
	"github.com/SscSPs/esiti_settimanali/internal/core/domain"
	portsrepo "github.com/SscSPs/esiti_settimanali/internal/core/ports/repositories"
)

// LocalStateRepository persists assignments and inclusion flags in SQLite.
type LocalStateRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewLocalStateRepository wraps an open database, see OpenDB.
func NewLocalStateRepository(db *sql.DB) *LocalStateRepository {
	return &LocalStateRepository{db: db, now: time.Now}
}

var _ portsrepo.LocalStateRepositoryFacade = (*LocalStateRepository)(nil)

func (r *LocalStateRepository) LoadAssignments(ctx context.Context) (map[string]domain.HierarchyAssignment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT record_id, level, COALESCE(parent_id, '') FROM record_hierarchy WHERE level IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("%w: loading assignments: %w", apperrors.ErrPersistence, err)
	}
	defer rows.Close()

	out := map[string]domain.HierarchyAssignment{}
	for rows.Next() {
		var id, level, parent string
		if err := rows.Scan(&id, &level, &parent); err != nil {
			return nil, fmt.Errorf("%w: scanning assignment: %w", apperrors.ErrPersistence, err)
		}
		out[id] = domain.HierarchyAssignment{
			Level:    domain.LevelOrDefault(domain.Level(level)),
			ParentID: parent,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating assignments: %w", apperrors.ErrPersistence, err)
	}
	return out, nil
}

func (r *LocalStateRepository) LoadInclusionFlags(ctx context.Context) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT record_id, vers_include FROM record_hierarchy WHERE vers_include IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("%w: loading inclusion flags: %w", apperrors.ErrPersistence, err)
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var id string
		var include bool
		if err := rows.Scan(&id, &include); err != nil {
			return nil, fmt.Errorf("%w: scanning inclusion flag: %w", apperrors.ErrPersistence, err)
		}
		out[id] = include
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating inclusion flags: %w", apperrors.ErrPersistence, err)
	}
	return out, nil
}

func (r *LocalStateRepository) SaveAssignment(ctx context.Context, recordID string, assignment domain.HierarchyAssignment) error {
	var parent any
	if assignment.ParentID != "" {
		parent = assignment.ParentID
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO record_hierarchy (record_id, level, parent_id, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(record_id) DO UPDATE SET
			level = excluded.level,
			parent_id = excluded.parent_id,
			updated_at = excluded.updated_at`,
		recordID, string(assignment.Level), parent, r.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("%w: saving assignment of %s: %w", apperrors.ErrPersistence, recordID, err)
	}
	return nil
}

func (r *LocalStateRepository) SaveInclusion(ctx context.Context, recordID string, include bool) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO record_hierarchy (record_id, vers_include, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(record_id) DO UPDATE SET
			vers_include = excluded.vers_include,
			updated_at = excluded.updated_at`,
		recordID, include, r.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("%w: saving inclusion flag of %s: %w", apperrors.ErrPersistence, recordID, err)
	}
	return nil
}

func (r *LocalStateRepository) DeleteRecordState(ctx context.Context, recordID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM record_hierarchy WHERE record_id = ?`, recordID); err != nil {
		return fmt.Errorf("%w: deleting local state of %s: %w", apperrors.ErrPersistence, recordID, err)
	}
	return nil
}
