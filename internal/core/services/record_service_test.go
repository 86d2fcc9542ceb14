package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/SscSPs/esiti_settimanali/internal/apperrors"
	"github.com/SscSPs/esiti_settimanali/internal/core/domain"
	portssvc "github.com/SscSPs/esiti_settimanali/internal/core/ports/services"
	"github.com/SscSPs/esiti_settimanali/internal/core/services"
	"github.com/SscSPs/esiti_settimanali/internal/core/workspace"
	"github.com/SscSPs/esiti_settimanali/internal/dto"
	"github.com/SscSPs/esiti_settimanali/internal/repositories/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

func strPtr(s string) *string { return &s }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// --- Fixture over the in-memory stores ---

type recordFixture struct {
	suite.Suite
	ctx     context.Context
	repo    *memory.RecordRepository
	local   *memory.LocalStateRepository
	ws      *workspace.Workspace
	service portssvc.RecordSvcFacade
	seq     int
}

func (suite *recordFixture) newService(repo *memory.RecordRepository) {
	suite.ctx = context.Background()
	suite.repo = repo
	suite.local = memory.NewLocalStateRepository()
	suite.ws = workspace.New()
	suite.seq = 0
	clock := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	suite.service = services.NewRecordService(suite.repo, suite.ws,
		services.WithLocalStateRepository(suite.local),
		services.WithIDGenerator(func() string {
			suite.seq++
			return fmt.Sprintf("r%d", suite.seq)
		}),
		services.WithClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}),
	)
	suite.Require().NoError(suite.service.Refresh(suite.ctx))
}

func (suite *recordFixture) add(name string, level domain.Level, parent string) string {
	req := dto.CreateRecordRequest{Name: name, Level: string(level)}
	if parent != "" {
		req.ParentID = strPtr(parent)
	}
	res, err := suite.service.AddRecord(suite.ctx, "owner-1", req)
	suite.Require().NoError(err)
	return res.RecordID
}

type RecordServiceTestSuite struct {
	recordFixture
}

func (suite *RecordServiceTestSuite) SetupTest() {
	suite.newService(memory.NewRecordRepository())
}

func (suite *RecordServiceTestSuite) TestAddRecord_NormalisesNegativo() {
	res, err := suite.service.AddRecord(suite.ctx, "owner-1", dto.CreateRecordRequest{
		Name:                  "Rossi",
		Negativo:              "50",
		Cauzione:              "10",
		VersamentiSettimanali: "5",
	})

	suite.Require().NoError(err)
	suite.True(dec("-50").Equal(res.Negativo))
	suite.True(dec("-35").Equal(res.Result))
	suite.Equal(domain.LevelUser, res.Level)
	suite.Equal("", res.ParentID)
	suite.True(res.IncludeVers)
	suite.Equal("owner-1", res.OwnerID)

	stored, err := suite.repo.FindRecordByID(suite.ctx, res.RecordID)
	suite.Require().NoError(err)
	suite.True(dec("-50").Equal(stored.Negativo))

	assignments, _ := suite.local.LoadAssignments(suite.ctx)
	suite.Equal(domain.LevelUser, assignments[res.RecordID].Level)
	suite.Len(suite.service.ListRecords(suite.ctx), 1)
}

func (suite *RecordServiceTestSuite) TestListRecordsPage() {
	for _, name := range []string{"A", "B", "C"} {
		suite.add(name, domain.LevelUser, "")
	}

	page, err := suite.service.ListRecordsPage(suite.ctx, dto.ListRecordsParams{Limit: 2})
	suite.Require().NoError(err)
	suite.Require().Len(page.Records, 2)
	suite.Equal("C", page.Records[0].Name)
	suite.Equal("B", page.Records[1].Name)
	suite.Require().NotNil(page.NextToken)

	page, err = suite.service.ListRecordsPage(suite.ctx, dto.ListRecordsParams{Limit: 2, NextToken: *page.NextToken})
	suite.Require().NoError(err)
	suite.Require().Len(page.Records, 1)
	suite.Equal("A", page.Records[0].Name)
	suite.Nil(page.NextToken)

	all, err := suite.service.ListRecordsPage(suite.ctx, dto.ListRecordsParams{})
	suite.Require().NoError(err)
	suite.Len(all.Records, 3)

	_, err = suite.service.ListRecordsPage(suite.ctx, dto.ListRecordsParams{NextToken: "%%"})
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *RecordServiceTestSuite) TestAddRecord_CommaDecimalsAndGarbage() {
	res, err := suite.service.AddRecord(suite.ctx, "owner-1", dto.CreateRecordRequest{
		Name:          "Bianchi",
		Cauzione:      "12,5",
		Disponibilita: "abc",
	})
	suite.Require().NoError(err)
	suite.True(dec("12.5").Equal(res.Cauzione))
	suite.True(res.Disponibilita.IsZero())
}

func (suite *RecordServiceTestSuite) TestAddRecord_BlankNameRejected() {
	_, err := suite.service.AddRecord(suite.ctx, "owner-1", dto.CreateRecordRequest{Name: "   "})
	suite.ErrorIs(err, apperrors.ErrValidation)

	records, _ := suite.repo.ListRecords(suite.ctx)
	suite.Empty(records)
}

func (suite *RecordServiceTestSuite) TestAddRecord_InvalidParentRejected() {
	collab := suite.add("Collab", domain.LevelCollaboratore, "")

	_, err := suite.service.AddRecord(suite.ctx, "owner-1", dto.CreateRecordRequest{
		Name:     "Agente",
		Level:    string(domain.LevelAgente),
		ParentID: strPtr(collab),
	})
	suite.ErrorIs(err, apperrors.ErrHierarchyAssignment)
	suite.Len(suite.service.ListRecords(suite.ctx), 1)
}

func (suite *RecordServiceTestSuite) TestUpdateField() {
	id := suite.add("Verdi", domain.LevelUser, "")

	res, err := suite.service.UpdateField(suite.ctx, id, dto.UpdateFieldRequest{Field: "negativo", Value: "20"})
	suite.Require().NoError(err)
	suite.True(dec("-20").Equal(res.Negativo))

	res, err = suite.service.UpdateField(suite.ctx, id, dto.UpdateFieldRequest{Field: "cauzione", Value: "-4,5"})
	suite.Require().NoError(err)
	suite.True(dec("-4.5").Equal(res.Cauzione))

	_, err = suite.service.UpdateField(suite.ctx, id, dto.UpdateFieldRequest{Field: "name", Value: "  "})
	suite.ErrorIs(err, apperrors.ErrValidation)
	got, _ := suite.service.GetRecord(suite.ctx, id)
	suite.Equal("Verdi", got.Name)

	_, err = suite.service.UpdateField(suite.ctx, "missing", dto.UpdateFieldRequest{Field: "cauzione", Value: "1"})
	suite.ErrorIs(err, apperrors.ErrNotFound)
	_, err = suite.service.UpdateField(suite.ctx, id, dto.UpdateFieldRequest{Field: "colour", Value: "1"})
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *RecordServiceTestSuite) TestDeleteRecord() {
	parent := suite.add("Master", domain.LevelMaster, "")
	child := suite.add("Agente", domain.LevelAgente, parent)
	suite.Require().NoError(suite.service.SetInclusion(suite.ctx, parent, false))

	suite.ErrorIs(suite.service.DeleteRecord(suite.ctx, parent, false), apperrors.ErrValidation)
	suite.Len(suite.service.ListRecords(suite.ctx), 2)

	suite.Require().NoError(suite.service.DeleteRecord(suite.ctx, parent, true))
	suite.Len(suite.service.ListRecords(suite.ctx), 1)

	tree := suite.ws.Snapshot().Tree()
	suite.Equal([]string{child}, tree.Roots())

	flags, _ := suite.local.LoadInclusionFlags(suite.ctx)
	suite.NotContains(flags, parent)

	suite.ErrorIs(suite.service.DeleteRecord(suite.ctx, parent, true), apperrors.ErrNotFound)
}

func (suite *RecordServiceTestSuite) TestEditHierarchy_ExplicitParent() {
	master := suite.add("Master", domain.LevelMaster, "")
	user := suite.add("User", domain.LevelUser, "")

	a, err := suite.service.EditHierarchy(suite.ctx, user, dto.EditHierarchyRequest{
		Level:    string(domain.LevelAgente),
		ParentID: strPtr(master),
	})
	suite.Require().NoError(err)
	suite.Equal(domain.HierarchyAssignment{Level: domain.LevelAgente, ParentID: master}, *a)
	suite.Equal(master, suite.ws.Snapshot().Tree().Parent(user))

	stored, _ := suite.local.LoadAssignments(suite.ctx)
	suite.Equal(master, stored[user].ParentID)
}

func (suite *RecordServiceTestSuite) TestEditHierarchy_RejectsInvalidParent() {
	collab := suite.add("Collab", domain.LevelCollaboratore, "")
	user := suite.add("User", domain.LevelUser, "")

	_, err := suite.service.EditHierarchy(suite.ctx, user, dto.EditHierarchyRequest{
		Level:    string(domain.LevelAgente),
		ParentID: strPtr(collab),
	})
	suite.ErrorIs(err, apperrors.ErrHierarchyAssignment)

	_, err = suite.service.EditHierarchy(suite.ctx, user, dto.EditHierarchyRequest{Level: "capo"})
	suite.ErrorIs(err, apperrors.ErrValidation)

	_, err = suite.service.EditHierarchy(suite.ctx, user, dto.EditHierarchyRequest{Level: "pvr", ParentID: strPtr(user)})
	suite.ErrorIs(err, apperrors.ErrHierarchyAssignment)
}

func (suite *RecordServiceTestSuite) TestEditHierarchy_RevalidatesExistingParent() {
	agente := suite.add("Agente", domain.LevelAgente, "")
	collab := suite.add("Collab", domain.LevelCollaboratore, agente)

	// pvr may still report to agente: parent kept
	a, err := suite.service.EditHierarchy(suite.ctx, collab, dto.EditHierarchyRequest{Level: string(domain.LevelPVR)})
	suite.Require().NoError(err)
	suite.Equal(agente, a.ParentID)

	// master may not report to anyone: parent cleared
	a, err = suite.service.EditHierarchy(suite.ctx, collab, dto.EditHierarchyRequest{Level: string(domain.LevelMaster)})
	suite.Require().NoError(err)
	suite.Equal("", a.ParentID)
	suite.Contains(suite.ws.Snapshot().Tree().Roots(), collab)
}

func (suite *RecordServiceTestSuite) TestEditHierarchy_DetachesStrandedChildren() {
	master := suite.add("Master", domain.LevelMaster, "")
	agente := suite.add("Agente", domain.LevelAgente, master)

	_, err := suite.service.EditHierarchy(suite.ctx, master, dto.EditHierarchyRequest{Level: string(domain.LevelUser)})
	suite.Require().NoError(err)

	tree := suite.ws.Snapshot().Tree()
	suite.Equal("", tree.Parent(agente))
	suite.Equal(domain.LevelAgente, tree.Level(agente))
	stored, _ := suite.local.LoadAssignments(suite.ctx)
	suite.Equal("", stored[agente].ParentID)
}

func (suite *RecordServiceTestSuite) TestSetInclusion() {
	id := suite.add("Neri", domain.LevelUser, "")
	_, err := suite.service.UpdateField(suite.ctx, id, dto.UpdateFieldRequest{Field: "versamenti_settimanali", Value: "100"})
	suite.Require().NoError(err)

	suite.Require().NoError(suite.service.SetInclusion(suite.ctx, id, false))
	res, _ := suite.service.GetRecord(suite.ctx, id)
	suite.True(res.Result.IsZero())
	suite.False(res.IncludeVers)

	flags, _ := suite.local.LoadInclusionFlags(suite.ctx)
	suite.False(flags[id])

	suite.ErrorIs(suite.service.SetInclusion(suite.ctx, "missing", true), apperrors.ErrNotFound)
}

func (suite *RecordServiceTestSuite) TestRefresh_RestoresLocalState() {
	master := suite.add("Master", domain.LevelMaster, "")
	agente := suite.add("Agente", domain.LevelAgente, master)
	suite.Require().NoError(suite.service.SetInclusion(suite.ctx, agente, false))

	fresh := workspace.New()
	svc := services.NewRecordService(suite.repo, fresh, services.WithLocalStateRepository(suite.local))
	suite.Require().NoError(svc.Refresh(suite.ctx))

	snap := fresh.Snapshot()
	suite.Equal(domain.HierarchySourceLocal, snap.Source())
	suite.Equal(master, snap.Tree().Parent(agente))
	suite.False(snap.IncludesVers(agente))
}

func (suite *RecordServiceTestSuite) TestImportRecords_LocalSourceIgnoresHierarchy() {
	master := suite.add("Master", domain.LevelMaster, "")

	res, err := suite.service.ImportRecords(suite.ctx, "owner-1", []dto.ImportRecordRow{
		{Line: 2, Name: "Uno", Negativo: "10", Level: "agente", ParentID: master},
		{Line: 3, Name: "   "},
		{Line: 4, Name: "Due", Cauzione: "3,5"},
	})
	suite.Require().NoError(err)
	suite.Equal(2, res.Imported)
	suite.Equal(1, res.Skipped)
	suite.Require().Len(res.Records, 2)
	suite.True(dec("-10").Equal(res.Records[0].Negativo))
	suite.Equal(domain.LevelUser, res.Records[0].Level)
	suite.Equal("", res.Records[0].ParentID)
	suite.True(dec("3.5").Equal(res.Records[1].Cauzione))

	// newest first: the last imported line comes first
	list := suite.service.ListRecords(suite.ctx)
	suite.Equal("Due", list[0].Name)
}

func (suite *RecordServiceTestSuite) TestImportRecords_Empty() {
	_, err := suite.service.ImportRecords(suite.ctx, "owner-1", []dto.ImportRecordRow{{Line: 2, Name: ""}})
	suite.ErrorIs(err, apperrors.ErrImportEmpty)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.Empty(suite.service.ListRecords(suite.ctx))
}

func TestRecordServiceTestSuite(t *testing.T) {
	suite.Run(t, new(RecordServiceTestSuite))
}

// --- Backend-authoritative hierarchy ---

type BackendHierarchyTestSuite struct {
	recordFixture
}

func (suite *BackendHierarchyTestSuite) SetupTest() {
	seed := domain.Record{
		RecordID:  "m0",
		Name:      "Capo",
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Hierarchy: &domain.HierarchyAssignment{Level: domain.LevelMaster},
	}
	suite.newService(memory.NewRecordRepository(memory.WithHierarchyColumns(), memory.WithRecords(seed)))
}

func (suite *BackendHierarchyTestSuite) TestSourceDetected() {
	suite.Equal(domain.HierarchySourceBackend, suite.ws.Snapshot().Source())
}

func (suite *BackendHierarchyTestSuite) TestEditHierarchyWritesColumns() {
	user := suite.add("User", domain.LevelUser, "")
	_, err := suite.service.EditHierarchy(suite.ctx, user, dto.EditHierarchyRequest{Level: "agente", ParentID: strPtr("m0")})
	suite.Require().NoError(err)

	stored, err := suite.repo.FindRecordByID(suite.ctx, user)
	suite.Require().NoError(err)
	suite.Equal(domain.HierarchyAssignment{Level: domain.LevelAgente, ParentID: "m0"}, *stored.Hierarchy)

	local, _ := suite.local.LoadAssignments(suite.ctx)
	suite.NotContains(local, user)
}

func (suite *BackendHierarchyTestSuite) TestImportHonoursValidHierarchyOnly() {
	res, err := suite.service.ImportRecords(suite.ctx, "owner-1", []dto.ImportRecordRow{
		{Line: 2, Name: "Agente", Level: "AGENTE", ParentID: "m0"},
		{Line: 3, Name: "Bad", Level: "agente", ParentID: "nope"},
		{Line: 4, Name: "Weird", Level: "boss"},
	})
	suite.Require().NoError(err)
	suite.Equal(3, res.Imported)
	suite.Equal([]int{3}, res.RootedLines)

	suite.Equal(domain.LevelAgente, res.Records[0].Level)
	suite.Equal("m0", res.Records[0].ParentID)
	suite.Equal(domain.LevelAgente, res.Records[1].Level)
	suite.Equal("", res.Records[1].ParentID)
	suite.Equal(domain.LevelUser, res.Records[2].Level)

	tree := suite.ws.Snapshot().Tree()
	suite.Equal("m0", tree.Parent(res.Records[0].RecordID))
}

func (suite *BackendHierarchyTestSuite) TestImportKeepsRowsWithOverlongHierarchyText() {
	res, err := suite.service.ImportRecords(suite.ctx, "owner-1", []dto.ImportRecordRow{
		{Line: 2, Name: "Lungo", Level: strings.Repeat("x", 40)},
		{Line: 3, Name: "Orfano", Level: "pvr", ParentID: strings.Repeat("9", 80)},
	})
	suite.Require().NoError(err)
	suite.Equal(2, res.Imported)
	suite.Equal(0, res.Skipped)
	suite.Equal([]int{3}, res.RootedLines)
	suite.Equal(domain.LevelUser, res.Records[0].Level)
	suite.Equal(domain.LevelPVR, res.Records[1].Level)
	suite.Equal("", res.Records[1].ParentID)
}

func (suite *BackendHierarchyTestSuite) TestEmptyStoreWithColumnsKeepsHierarchyAcrossRefresh() {
	suite.newService(memory.NewRecordRepository(memory.WithHierarchyColumns()))
	suite.Equal(domain.HierarchySourceBackend, suite.ws.Snapshot().Source())

	master := suite.add("Master", domain.LevelMaster, "")
	agente := suite.add("Agente", domain.LevelAgente, master)
	suite.Require().NoError(suite.service.Refresh(suite.ctx))

	snap := suite.ws.Snapshot()
	suite.Equal(domain.HierarchySourceBackend, snap.Source())
	suite.Equal(domain.HierarchyAssignment{Level: domain.LevelMaster}, snap.Assignment(master))
	suite.Equal(domain.HierarchyAssignment{Level: domain.LevelAgente, ParentID: master}, snap.Assignment(agente))

	local, err := suite.local.LoadAssignments(suite.ctx)
	suite.Require().NoError(err)
	suite.Empty(local)
}

func TestBackendHierarchyTestSuite(t *testing.T) {
	suite.Run(t, new(BackendHierarchyTestSuite))
}

// --- Failure paths against a mocked store ---

type RecordServiceFailureTestSuite struct {
	suite.Suite
	mockRepo *MockRecordRepository
	ws       *workspace.Workspace
	service  portssvc.RecordSvcFacade
	original domain.Record
}

func (suite *RecordServiceFailureTestSuite) SetupTest() {
	suite.mockRepo = new(MockRecordRepository)
	suite.ws = workspace.New()
	suite.service = services.NewRecordService(suite.mockRepo, suite.ws,
		services.WithLocalStateRepository(memory.NewLocalStateRepository()))
	suite.original = domain.Record{RecordID: "a", Name: "Gialli", Cauzione: dec("7")}
	suite.mockRepo.On("HasHierarchyColumns", mock.Anything).Return(false, nil).Maybe()
}

func (suite *RecordServiceFailureTestSuite) TestUpdateField_FailureReloads() {
	ctx := context.Background()
	suite.mockRepo.On("ListRecords", ctx).Return([]domain.Record{suite.original}, nil).Twice()
	suite.mockRepo.On("UpdateRecordField", ctx, "a", mock.AnythingOfType("domain.FieldUpdate")).
		Return(errors.New("connection reset")).Once()

	suite.Require().NoError(suite.service.Refresh(ctx))
	_, err := suite.service.UpdateField(ctx, "a", dto.UpdateFieldRequest{Field: "cauzione", Value: "99"})

	suite.ErrorIs(err, apperrors.ErrPersistence)
	r, ok := suite.ws.Snapshot().Record("a")
	suite.Require().True(ok)
	suite.True(dec("7").Equal(r.Cauzione))
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *RecordServiceFailureTestSuite) TestAddRecord_FailureAppliesNothing() {
	ctx := context.Background()
	suite.mockRepo.On("ListRecords", ctx).Return([]domain.Record{}, nil).Once()
	suite.mockRepo.On("SaveRecord", ctx, mock.AnythingOfType("domain.Record")).
		Return(errors.New("insert failed")).Once()

	suite.Require().NoError(suite.service.Refresh(ctx))
	_, err := suite.service.AddRecord(ctx, "owner-1", dto.CreateRecordRequest{Name: "Viola"})

	suite.ErrorIs(err, apperrors.ErrPersistence)
	suite.Equal(0, suite.ws.Snapshot().Len())
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *RecordServiceFailureTestSuite) TestDeleteRecord_FailureKeepsRecord() {
	ctx := context.Background()
	suite.mockRepo.On("ListRecords", ctx).Return([]domain.Record{suite.original}, nil).Once()
	suite.mockRepo.On("DeleteRecord", ctx, "a").Return(errors.New("timeout")).Once()

	suite.Require().NoError(suite.service.Refresh(ctx))
	err := suite.service.DeleteRecord(ctx, "a", true)

	suite.ErrorIs(err, apperrors.ErrPersistence)
	suite.Equal(1, suite.ws.Snapshot().Len())
}

func (suite *RecordServiceFailureTestSuite) TestRefresh_ListFailure() {
	ctx := context.Background()
	suite.mockRepo.On("ListRecords", ctx).Return(nil, errors.New("down")).Once()

	suite.ErrorIs(suite.service.Refresh(ctx), apperrors.ErrPersistence)
}

func (suite *RecordServiceFailureTestSuite) TestRefresh_CapabilityFailure() {
	repo := new(MockRecordRepository)
	service := services.NewRecordService(repo, suite.ws)
	ctx := context.Background()
	repo.On("ListRecords", ctx).Return([]domain.Record{suite.original}, nil).Once()
	repo.On("HasHierarchyColumns", ctx).Return(false, errors.New("relation does not exist")).Once()

	suite.ErrorIs(service.Refresh(ctx), apperrors.ErrPersistence)
	suite.Equal(0, suite.ws.Snapshot().Len())
	repo.AssertExpectations(suite.T())
}

func TestRecordServiceFailureTestSuite(t *testing.T) {
	suite.Run(t, new(RecordServiceFailureTestSuite))
}
