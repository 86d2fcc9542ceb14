package pgsql

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SscSPs/esiti_settimanali/internal/apperrors"
	"github.com/SscSPs/esiti_settimanali/internal/core/domain"
	portsrepo "github.com/SscSPs/esiti_settimanali/internal/core/ports/repositories"
	"github.com/SscSPs/esiti_settimanali/internal/models"
	"github.com/SscSPs/esiti_settimanali/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const recordsTable = "calculations"

// fieldColumns whitelists the columns UpdateRecordField may touch.
var fieldColumns = map[domain.RecordField]string{
	domain.FieldName:                  "name",
	domain.FieldNegativo:              "negativo",
	domain.FieldCauzione:              "cauzione",
	domain.FieldVersamentiSettimanali: "versamenti_settimanali",
	domain.FieldDisponibilita:         "disponibilita",
}

type PgxRecordRepository struct {
	BaseRepository
	channel string
}

// newPgxRecordRepository creates a new repository for calculation records.
func newPgxRecordRepository(pool *pgxpool.Pool) *PgxRecordRepository {
	return &PgxRecordRepository{
		BaseRepository: BaseRepository{Pool: pool},
		channel:        ChangesChannel,
	}
}

var _ portsrepo.RecordRepositoryWithTx = (*PgxRecordRepository)(nil)

func hasHierarchyColumns(fields []pgconn.FieldDescription) bool {
	hasLevel, hasParent := false, false
	for _, fd := range fields {
		switch fd.Name {
		case "level":
			hasLevel = true
		case "parent_id":
			hasParent = true
		}
	}
	return hasLevel && hasParent
}

// scanRecords reads rows of an arbitrary column set, so a table without hierarchy
// columns still loads.
func scanRecords(rows pgx.Rows) ([]models.Record, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	withHierarchy := hasHierarchyColumns(fields)

	var out []models.Record
	for rows.Next() {
		var m models.Record
		dest := make([]any, len(fields))
		for i, fd := range fields {
			switch fd.Name {
			case "id":
				dest[i] = &m.ID
			case "user_id":
				dest[i] = &m.UserID
			case "name":
				dest[i] = &m.Name
			case "negativo":
				dest[i] = &m.Negativo
			case "cauzione":
				dest[i] = &m.Cauzione
			case "versamenti_settimanali":
				dest[i] = &m.VersamentiSettimanali
			case "disponibilita":
				dest[i] = &m.Disponibilita
			case "created_at":
				dest[i] = &m.CreatedAt
			case "level":
				dest[i] = &m.Level
			case "parent_id":
				dest[i] = &m.ParentID
			default:
				var ignored any
				dest[i] = &ignored
			}
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		m.HasHierarchy = withHierarchy
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PgxRecordRepository) ListRecords(ctx context.Context) ([]domain.Record, error) {
	rows, err := r.Pool.Query(ctx, `SELECT * FROM `+recordsTable+` ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, translateError(err, "listing records")
	}
	ms, err := scanRecords(rows)
	if err != nil {
		return nil, translateError(err, "scanning records")
	}
	slog.DebugContext(ctx, "Records loaded", "count", len(ms))
	return mapping.ToDomainRecords(ms), nil
}

// HasHierarchyColumns inspects the column set of an empty result, so it answers
// for a table with no rows too.
func (r *PgxRecordRepository) HasHierarchyColumns(ctx context.Context) (bool, error) {
	rows, err := r.Pool.Query(ctx, `SELECT * FROM `+recordsTable+` LIMIT 0`)
	if err != nil {
		return false, translateError(err, "reading record columns")
	}
	withHierarchy := hasHierarchyColumns(rows.FieldDescriptions())
	rows.Close()
	if err := rows.Err(); err != nil {
		return false, translateError(err, "reading record columns")
	}
	return withHierarchy, nil
}

func (r *PgxRecordRepository) FindRecordByID(ctx context.Context, recordID string) (*domain.Record, error) {
	rows, err := r.Pool.Query(ctx, `SELECT * FROM `+recordsTable+` WHERE id = $1`, recordID)
	if err != nil {
		return nil, translateError(err, "finding record "+recordID)
	}
	ms, err := scanRecords(rows)
	if err != nil {
		return nil, translateError(err, "scanning record "+recordID)
	}
	if len(ms) == 0 {
		return nil, fmt.Errorf("%w: record %s", apperrors.ErrNotFound, recordID)
	}
	rec := mapping.ToDomainRecord(ms[0])
	return &rec, nil
}

func insertRecord(ctx context.Context, q pgx.Tx, m models.Record) error {
	if m.HasHierarchy {
		_, err := q.Exec(ctx, `
			INSERT INTO `+recordsTable+` (id, user_id, name, negativo, cauzione, versamenti_settimanali, disponibilita, created_at, level, parent_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			m.ID, m.UserID, m.Name, m.Negativo, m.Cauzione, m.VersamentiSettimanali, m.Disponibilita, m.CreatedAt, m.Level, m.ParentID)
		return err
	}
	_, err := q.Exec(ctx, `
		INSERT INTO `+recordsTable+` (id, user_id, name, negativo, cauzione, versamenti_settimanali, disponibilita, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.UserID, m.Name, m.Negativo, m.Cauzione, m.VersamentiSettimanali, m.Disponibilita, m.CreatedAt)
	return err
}

func (r *PgxRecordRepository) SaveRecord(ctx context.Context, record domain.Record) error {
	return r.SaveRecords(ctx, []domain.Record{record})
}

// SaveRecords inserts all records in one transaction.
func (r *PgxRecordRepository) SaveRecords(ctx context.Context, records []domain.Record) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if rbErr := r.Rollback(ctx, tx); rbErr != nil {
			slog.ErrorContext(ctx, "Failed to rollback record insert", "error", rbErr)
		}
	}()

	for _, rec := range records {
		if err := insertRecord(ctx, tx, mapping.ToModelRecord(rec)); err != nil {
			return translateError(err, "saving record "+rec.RecordID)
		}
	}
	if err := r.Commit(ctx, tx); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Records saved", "count", len(records))
	return nil
}

func (r *PgxRecordRepository) UpdateRecordField(ctx context.Context, recordID string, update domain.FieldUpdate) error {
	col, ok := fieldColumns[update.Field]
	if !ok {
		return fmt.Errorf("%w: unknown field %q", apperrors.ErrValidation, update.Field)
	}
	var value any = update.Amount
	if update.Field == domain.FieldName {
		value = update.Text
	}
	tag, err := r.Pool.Exec(ctx, fmt.Sprintf(`UPDATE %s SET %s = $1 WHERE id = $2`, recordsTable, col), value, recordID)
	if err != nil {
		return translateError(err, "updating record "+recordID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: record %s", apperrors.ErrNotFound, recordID)
	}
	return nil
}

func (r *PgxRecordRepository) UpdateHierarchy(ctx context.Context, recordID string, assignment domain.HierarchyAssignment) error {
	var parent any
	if assignment.ParentID != "" {
		parent = assignment.ParentID
	}
	tag, err := r.Pool.Exec(ctx, `UPDATE `+recordsTable+` SET level = $1, parent_id = $2 WHERE id = $3`,
		string(assignment.Level), parent, recordID)
	if err != nil {
		return translateError(err, "updating hierarchy of record "+recordID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: record %s", apperrors.ErrNotFound, recordID)
	}
	return nil
}

func (r *PgxRecordRepository) DeleteRecord(ctx context.Context, recordID string) error {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM `+recordsTable+` WHERE id = $1`, recordID)
	if err != nil {
		return translateError(err, "deleting record "+recordID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: record %s", apperrors.ErrNotFound, recordID)
	}
	return nil
}
