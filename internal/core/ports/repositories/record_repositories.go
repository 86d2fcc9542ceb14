package repositories

import (
	"context"

	"github.com/SscSPs/esiti_settimanali/internal/core/domain"
)

// RecordReader defines read operations for record data
type RecordReader interface {
	// ListRecords returns every record in store order (newest first).
	// Records carry a Hierarchy only when the store has hierarchy columns.
	ListRecords(ctx context.Context) ([]domain.Record, error)

	// HasHierarchyColumns reports whether the store carries level and parent_id,
	// independent of whether it holds any rows.
	HasHierarchyColumns(ctx context.Context) (bool, error)

	// FindRecordByID retrieves a single record.
	FindRecordByID(ctx context.Context, recordID string) (*domain.Record, error)
}

// RecordWriter defines write operations for record data
type RecordWriter interface {
	// SaveRecord persists a new record. Hierarchy columns are written only when
	// record.Hierarchy is set.
	SaveRecord(ctx context.Context, record domain.Record) error

	// SaveRecords persists a batch of new records atomically.
	SaveRecords(ctx context.Context, records []domain.Record) error

	// UpdateRecordField changes a single field of an existing record.
	UpdateRecordField(ctx context.Context, recordID string, update domain.FieldUpdate) error

	// UpdateHierarchy writes level and parent_id. Only valid on stores with hierarchy columns.
	UpdateHierarchy(ctx context.Context, recordID string, assignment domain.HierarchyAssignment) error

	// DeleteRecord removes a record.
	DeleteRecord(ctx context.Context, recordID string) error
}

// RecordChangeFeed delivers remote insert, update and delete notifications.
type RecordChangeFeed interface {
	// SubscribeChanges starts delivering events on the returned channel until the
	// returned cancel func is called or ctx is done. The channel is closed afterwards.
	SubscribeChanges(ctx context.Context) (<-chan domain.ChangeEvent, func(), error)
}

// RecordRepositoryFacade combines all record-related repository interfaces
type RecordRepositoryFacade interface {
	RecordReader
	RecordWriter
	RecordChangeFeed
}
