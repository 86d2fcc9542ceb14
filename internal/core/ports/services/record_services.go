package services

import (
	"context"

	"github.com/SscSPs/esiti_settimanali/internal/core/domain"
	"github.com/SscSPs/esiti_settimanali/internal/dto"
)

// RecordReaderSvc defines read operations for record data
type RecordReaderSvc interface {
	// ListRecords returns every record in store order with its hierarchy state.
	ListRecords(ctx context.Context) []dto.RecordResponse

	// ListRecordsPage returns records newest first, one page at a time.
	ListRecordsPage(ctx context.Context, params dto.ListRecordsParams) (*dto.ListRecordsResponse, error)

	// GetRecord returns a single record with its hierarchy state.
	GetRecord(ctx context.Context, recordID string) (*dto.RecordResponse, error)
}

// RecordWriterSvc defines the mutation operations on records and their hierarchy
type RecordWriterSvc interface {
	// Refresh re-fetches every record and rebuilds the workspace.
	Refresh(ctx context.Context) error

	// AddRecord creates a record owned by ownerID.
	AddRecord(ctx context.Context, ownerID string, req dto.CreateRecordRequest) (*dto.RecordResponse, error)

	// UpdateField changes a single field. A failed store write reverts the workspace.
	UpdateField(ctx context.Context, recordID string, req dto.UpdateFieldRequest) (*dto.RecordResponse, error)

	// DeleteRecord removes a record. Nothing happens unless confirmed is true.
	DeleteRecord(ctx context.Context, recordID string, confirmed bool) error

	// EditHierarchy reassigns level and parent.
	EditHierarchy(ctx context.Context, recordID string, req dto.EditHierarchyRequest) (*domain.HierarchyAssignment, error)

	// SetInclusion toggles whether versamenti count towards the record's result.
	SetInclusion(ctx context.Context, recordID string, include bool) error

	// ImportRecords bulk-creates records from parsed rows.
	ImportRecords(ctx context.Context, ownerID string, rows []dto.ImportRecordRow) (*dto.ImportResult, error)
}

// RecordSvcFacade combines all record-related service interfaces
type RecordSvcFacade interface {
	RecordReaderSvc
	RecordWriterSvc
}
