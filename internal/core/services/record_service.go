package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/SscSPs/esiti_settimanali/internal/apperrors"
	"github.com/SscSPs/esiti_settimanali/internal/core/domain"
	"github.com/SscSPs/esiti_settimanali/internal/core/hierarchy"
	portsrepo "github.com/SscSPs/esiti_settimanali/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/esiti_settimanali/internal/core/ports/services"
	"github.com/SscSPs/esiti_settimanali/internal/core/workspace"
	"github.com/SscSPs/esiti_settimanali/internal/dto"
	"github.com/SscSPs/esiti_settimanali/internal/utils/pagination"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// recordService implements the RecordSvcFacade interface
type recordService struct {
	BaseService
	recordRepo portsrepo.RecordRepositoryFacade
	localState portsrepo.LocalStateRepositoryFacade
	ws         *workspace.Workspace
	validate   *validator.Validate
	now        func() time.Time
	newID      func() string
}

// RecordServiceOption is a functional option for configuring the record service
type RecordServiceOption func(*recordService)

// WithLocalStateRepository sets where local assignments and inclusion flags are persisted
func WithLocalStateRepository(repo portsrepo.LocalStateRepositoryFacade) RecordServiceOption {
	return func(s *recordService) {
		s.localState = repo
	}
}

// WithClock overrides the time source used for created_at
func WithClock(now func() time.Time) RecordServiceOption {
	return func(s *recordService) {
		s.now = now
	}
}

// WithIDGenerator overrides how new record ids are generated
func WithIDGenerator(newID func() string) RecordServiceOption {
	return func(s *recordService) {
		s.newID = newID
	}
}

// NewRecordService creates a new record service with the provided options
func NewRecordService(repo portsrepo.RecordRepositoryFacade, ws *workspace.Workspace, options ...RecordServiceOption) portssvc.RecordSvcFacade {
	svc := &recordService{
		recordRepo: repo,
		ws:         ws,
		validate:   validator.New(),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.RecordSvcFacade = (*recordService)(nil)

func persistenceErr(msg string, err error) error {
	return fmt.Errorf("%w: %s: %w", apperrors.ErrPersistence, msg, err)
}

func (s *recordService) response(snap *workspace.Snapshot, r domain.Record) dto.RecordResponse {
	return dto.ToRecordResponse(r, snap.Assignment(r.RecordID), snap.IncludesVers(r.RecordID))
}

// detectSource asks the store for the capability rather than inspecting rows, so an
// empty store with hierarchy columns is still authoritative.
func (s *recordService) detectSource(ctx context.Context) (domain.HierarchySource, error) {
	withHierarchy, err := s.recordRepo.HasHierarchyColumns(ctx)
	if err != nil {
		return "", err
	}
	if withHierarchy {
		return domain.HierarchySourceBackend, nil
	}
	return domain.HierarchySourceLocal, nil
}

func (s *recordService) Refresh(ctx context.Context) error {
	records, err := s.recordRepo.ListRecords(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to list records")
		return persistenceErr("failed to list records", err)
	}

	source, err := s.detectSource(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to detect hierarchy source")
		return persistenceErr("failed to detect hierarchy source", err)
	}
	var assignments map[string]domain.HierarchyAssignment
	var flags map[string]bool
	if s.localState != nil {
		flags, err = s.localState.LoadInclusionFlags(ctx)
		if err != nil {
			s.LogError(ctx, err, "Failed to load inclusion flags")
			return persistenceErr("failed to load inclusion flags", err)
		}
		if source == domain.HierarchySourceLocal {
			assignments, err = s.localState.LoadAssignments(ctx)
			if err != nil {
				s.LogError(ctx, err, "Failed to load local assignments")
				return persistenceErr("failed to load local assignments", err)
			}
		}
	}

	s.ws.Reset(records, source, assignments, flags)
	s.LogInfo(ctx, "Workspace refreshed",
		slog.Int("records", len(records)),
		slog.String("hierarchy_source", string(source)))
	return nil
}

func (s *recordService) ListRecords(ctx context.Context) []dto.RecordResponse {
	snap := s.ws.Snapshot()
	records := snap.Records()
	res := make([]dto.RecordResponse, len(records))
	for i, r := range records {
		res[i] = s.response(snap, r)
	}
	return res
}

func (s *recordService) ListRecordsPage(ctx context.Context, params dto.ListRecordsParams) (*dto.ListRecordsResponse, error) {
	snap := s.ws.Snapshot()
	records := snap.Records()
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].RecordID < records[j].RecordID
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	if params.NextToken != "" {
		cursor, err := pagination.DecodeToken(params.NextToken)
		if err != nil {
			return nil, err
		}
		start := sort.Search(len(records), func(i int) bool {
			return cursor.After(records[i].CreatedAt, records[i].RecordID)
		})
		records = records[start:]
	}

	res := &dto.ListRecordsResponse{}
	if params.Limit > 0 && len(records) > params.Limit {
		records = records[:params.Limit]
		last := records[len(records)-1]
		token := pagination.EncodeToken(pagination.Cursor{CreatedAt: last.CreatedAt, RecordID: last.RecordID})
		res.NextToken = &token
	}
	res.Records = make([]dto.RecordResponse, len(records))
	for i, r := range records {
		res.Records[i] = s.response(snap, r)
	}
	return res, nil
}

func (s *recordService) GetRecord(ctx context.Context, recordID string) (*dto.RecordResponse, error) {
	snap := s.ws.Snapshot()
	r, ok := snap.Record(recordID)
	if !ok {
		return nil, fmt.Errorf("%w: record %s", apperrors.ErrNotFound, recordID)
	}
	res := s.response(snap, r)
	return &res, nil
}

func (s *recordService) AddRecord(ctx context.Context, ownerID string, req dto.CreateRecordRequest) (*dto.RecordResponse, error) {
	if err := domain.ValidateName(req.Name); err != nil {
		s.LogError(ctx, err, "Rejected record with blank name", slog.String("owner_id", ownerID))
		return nil, err
	}
	level, err := domain.ParseLevel(req.Level)
	if err != nil {
		return nil, err
	}

	snap := s.ws.Snapshot()
	id := s.newID()
	parentID := ""
	if req.ParentID != nil {
		parentID = strings.TrimSpace(*req.ParentID)
	}
	if err := hierarchy.CheckAssignment(snap.Tree(), id, level, parentID); err != nil {
		s.LogError(ctx, err, "Invalid hierarchy for new record",
			slog.String("level", string(level)),
			slog.String("parent_id", parentID))
		return nil, err
	}
	assignment := domain.HierarchyAssignment{Level: level, ParentID: parentID}

	record := domain.Record{
		RecordID:              id,
		Name:                  req.Name,
		Negativo:              domain.NormalizeNegativo(domain.ParseAmount(string(req.Negativo))),
		Cauzione:              domain.ParseAmount(string(req.Cauzione)),
		VersamentiSettimanali: domain.ParseAmount(string(req.VersamentiSettimanali)),
		Disponibilita:         domain.ParseAmount(string(req.Disponibilita)),
		OwnerID:               ownerID,
		CreatedAt:             s.now(),
	}
	source := snap.Source()
	if source == domain.HierarchySourceBackend {
		record.Hierarchy = &assignment
	}

	if err := s.recordRepo.SaveRecord(ctx, record); err != nil {
		s.LogError(ctx, err, "Failed to save record", slog.String("record_id", id))
		return nil, persistenceErr("failed to save record", err)
	}

	s.ws.PutRecord(record)
	s.ws.SetAssignment(id, assignment)
	s.ws.SetInclusion(id, true)
	if source == domain.HierarchySourceLocal {
		s.persistLocalAssignment(ctx, id, assignment)
	}

	s.LogInfo(ctx, "Record created successfully",
		slog.String("record_id", id),
		slog.String("level", string(level)))
	res := s.response(s.ws.Snapshot(), record)
	return &res, nil
}

// persistLocalAssignment stores an assignment for a record that already exists in the
// record store. Failure only costs the assignment on the next restart, so it is logged.
func (s *recordService) persistLocalAssignment(ctx context.Context, id string, a domain.HierarchyAssignment) {
	if s.localState == nil {
		return
	}
	if err := s.localState.SaveAssignment(ctx, id, a); err != nil {
		s.LogError(ctx, err, "Failed to persist local assignment", slog.String("record_id", id))
	}
}

func (s *recordService) UpdateField(ctx context.Context, recordID string, req dto.UpdateFieldRequest) (*dto.RecordResponse, error) {
	field, err := domain.ParseRecordField(req.Field)
	if err != nil {
		return nil, err
	}

	update := domain.FieldUpdate{Field: field}
	raw := string(req.Value)
	switch field {
	case domain.FieldName:
		if err := domain.ValidateName(raw); err != nil {
			s.LogError(ctx, err, "Rejected blank name update", slog.String("record_id", recordID))
			return nil, err
		}
		update.Text = raw
	case domain.FieldNegativo:
		update.Amount = domain.NormalizeNegativo(domain.ParseAmount(raw))
	default:
		update.Amount = domain.ParseAmount(raw)
	}

	if _, err := s.ws.SetField(recordID, update); err != nil {
		return nil, err
	}

	if err := s.recordRepo.UpdateRecordField(ctx, recordID, update); err != nil {
		s.LogError(ctx, err, "Failed to update record, reloading",
			slog.String("record_id", recordID),
			slog.String("field", string(field)))
		if rerr := s.Refresh(ctx); rerr != nil {
			s.LogError(ctx, rerr, "Reload after failed update also failed")
		}
		return nil, persistenceErr("failed to update record", err)
	}

	snap := s.ws.Snapshot()
	r, ok := snap.Record(recordID)
	if !ok {
		// deleted remotely in the meantime
		return nil, fmt.Errorf("%w: record %s", apperrors.ErrNotFound, recordID)
	}
	s.LogInfo(ctx, "Record updated successfully",
		slog.String("record_id", recordID),
		slog.String("field", string(field)))
	res := s.response(snap, r)
	return &res, nil
}

func (s *recordService) DeleteRecord(ctx context.Context, recordID string, confirmed bool) error {
	if !confirmed {
		return fmt.Errorf("%w: deletion of %s not confirmed", apperrors.ErrValidation, recordID)
	}
	if _, ok := s.ws.Snapshot().Record(recordID); !ok {
		return fmt.Errorf("%w: record %s", apperrors.ErrNotFound, recordID)
	}

	if err := s.recordRepo.DeleteRecord(ctx, recordID); err != nil {
		s.LogError(ctx, err, "Failed to delete record", slog.String("record_id", recordID))
		if errors.Is(err, apperrors.ErrNotFound) {
			s.ws.RemoveRecord(recordID)
			return err
		}
		return persistenceErr("failed to delete record", err)
	}

	s.ws.RemoveRecord(recordID)
	if s.localState != nil {
		if err := s.localState.DeleteRecordState(ctx, recordID); err != nil {
			s.LogError(ctx, err, "Failed to drop local state of deleted record", slog.String("record_id", recordID))
		}
	}
	s.LogInfo(ctx, "Record deleted successfully", slog.String("record_id", recordID))
	return nil
}

func (s *recordService) EditHierarchy(ctx context.Context, recordID string, req dto.EditHierarchyRequest) (*domain.HierarchyAssignment, error) {
	level, err := domain.ParseLevel(req.Level)
	if err != nil {
		return nil, err
	}
	snap := s.ws.Snapshot()
	tree := snap.Tree()
	if !tree.Has(recordID) {
		return nil, fmt.Errorf("%w: record %s", apperrors.ErrNotFound, recordID)
	}

	var parentID string
	if req.ParentID == nil {
		parentID = hierarchy.Revalidate(tree, recordID, level)
	} else {
		parentID = strings.TrimSpace(*req.ParentID)
		if err := hierarchy.CheckAssignment(tree, recordID, level, parentID); err != nil {
			s.LogError(ctx, err, "Rejected hierarchy assignment",
				slog.String("record_id", recordID),
				slog.String("level", string(level)),
				slog.String("parent_id", parentID))
			return nil, err
		}
	}

	changes := map[string]domain.HierarchyAssignment{
		recordID: {Level: level, ParentID: parentID},
	}
	// children that may not report to the new level are detached and become roots
	for _, child := range hierarchy.StrandedChildren(tree, recordID, level) {
		changes[child] = domain.HierarchyAssignment{Level: tree.Level(child)}
	}

	for id, a := range changes {
		if err := s.writeAssignment(ctx, snap.Source(), id, a); err != nil {
			s.LogError(ctx, err, "Failed to persist hierarchy assignment", slog.String("record_id", id))
			return nil, persistenceErr("failed to persist hierarchy assignment", err)
		}
		s.ws.SetAssignment(id, a)
	}

	s.LogInfo(ctx, "Hierarchy updated successfully",
		slog.String("record_id", recordID),
		slog.String("level", string(level)),
		slog.String("parent_id", parentID),
		slog.Int("detached_children", len(changes)-1))
	assignment := changes[recordID]
	return &assignment, nil
}

func (s *recordService) writeAssignment(ctx context.Context, source domain.HierarchySource, id string, a domain.HierarchyAssignment) error {
	if source == domain.HierarchySourceBackend {
		return s.recordRepo.UpdateHierarchy(ctx, id, a)
	}
	if s.localState == nil {
		return nil
	}
	return s.localState.SaveAssignment(ctx, id, a)
}

func (s *recordService) SetInclusion(ctx context.Context, recordID string, include bool) error {
	if _, ok := s.ws.Snapshot().Record(recordID); !ok {
		return fmt.Errorf("%w: record %s", apperrors.ErrNotFound, recordID)
	}
	if s.localState != nil {
		if err := s.localState.SaveInclusion(ctx, recordID, include); err != nil {
			s.LogError(ctx, err, "Failed to persist inclusion flag", slog.String("record_id", recordID))
			return persistenceErr("failed to persist inclusion flag", err)
		}
	}
	s.ws.SetInclusion(recordID, include)
	s.LogInfo(ctx, "Inclusion flag updated",
		slog.String("record_id", recordID),
		slog.Bool("include", include))
	return nil
}

func (s *recordService) ImportRecords(ctx context.Context, ownerID string, rows []dto.ImportRecordRow) (*dto.ImportResult, error) {
	snap := s.ws.Snapshot()
	tree := snap.Tree()
	source := snap.Source()
	now := s.now()

	result := &dto.ImportResult{}
	records := make([]domain.Record, 0, len(rows))
	assignments := make([]domain.HierarchyAssignment, 0, len(rows))

	for _, row := range rows {
		row.Name = strings.TrimSpace(row.Name)
		if err := s.validate.Struct(row); err != nil {
			s.LogDebug(ctx, "Skipping import row", slog.Int("line", row.Line), slog.String("reason", err.Error()))
			result.Skipped++
			continue
		}

		id := s.newID()
		record := domain.Record{
			RecordID:              id,
			Name:                  row.Name,
			Negativo:              domain.NormalizeNegativo(domain.ParseAmount(row.Negativo)),
			Cauzione:              domain.ParseAmount(row.Cauzione),
			VersamentiSettimanali: domain.ParseAmount(row.VersamentiSettimanali),
			Disponibilita:         domain.ParseAmount(row.Disponibilita),
			OwnerID:               ownerID,
			// later lines are newer so store order matches the file read bottom-up
			CreatedAt: now.Add(time.Duration(len(records)) * time.Microsecond),
		}

		assignment := domain.DefaultAssignment()
		if source == domain.HierarchySourceBackend {
			assignment = s.importAssignment(ctx, tree, id, row, result)
			a := assignment
			record.Hierarchy = &a
		}
		records = append(records, record)
		assignments = append(assignments, assignment)
	}

	if len(records) == 0 {
		s.LogError(ctx, apperrors.ErrImportEmpty, "Import produced no records", slog.Int("rows", len(rows)))
		return nil, apperrors.ErrImportEmpty
	}

	if err := s.recordRepo.SaveRecords(ctx, records); err != nil {
		s.LogError(ctx, err, "Failed to import records", slog.Int("records", len(records)))
		return nil, persistenceErr("failed to import records", err)
	}

	for i, r := range records {
		s.ws.PutRecord(r)
		if source == domain.HierarchySourceBackend {
			s.ws.SetAssignment(r.RecordID, assignments[i])
		}
	}

	snap = s.ws.Snapshot()
	result.Imported = len(records)
	result.Records = make([]dto.RecordResponse, len(records))
	for i, r := range records {
		result.Records[i] = s.response(snap, r)
	}
	s.LogInfo(ctx, "Records imported successfully",
		slog.Int("imported", result.Imported),
		slog.Int("skipped", result.Skipped),
		slog.Int("rooted", len(result.RootedLines)))
	return result, nil
}

// importAssignment honours the row's level and parent when they pass validation.
// An unknown level falls back to the default; a parent that does not pass is dropped.
func (s *recordService) importAssignment(ctx context.Context, tree *hierarchy.Tree, id string, row dto.ImportRecordRow, result *dto.ImportResult) domain.HierarchyAssignment {
	level, err := domain.ParseLevel(row.Level)
	if err != nil {
		s.LogWarn(ctx, "Unknown level in import row, using default",
			slog.Int("line", row.Line), slog.String("level", row.Level))
		level = domain.DefaultLevel
	}
	parentID := strings.TrimSpace(row.ParentID)
	if err := hierarchy.CheckAssignment(tree, id, level, parentID); err != nil {
		s.LogWarn(ctx, "Invalid parent in import row, importing as root",
			slog.Int("line", row.Line),
			slog.String("parent_id", parentID),
			slog.String("reason", err.Error()))
		result.RootedLines = append(result.RootedLines, row.Line)
		parentID = ""
	}
	return domain.HierarchyAssignment{Level: level, ParentID: parentID}
}
