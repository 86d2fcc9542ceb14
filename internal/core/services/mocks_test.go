package services_test

import (
	"context"

	"github.com/SscSPs/esiti_settimanali/internal/core/domain"
	"github.com/stretchr/testify/mock"
)

// MockRecordRepository is a mock type for the RecordRepositoryFacade interface
type MockRecordRepository struct {
	mock.Mock
}

func (m *MockRecordRepository) ListRecords(ctx context.Context) ([]domain.Record, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Record), args.Error(1)
}

func (m *MockRecordRepository) HasHierarchyColumns(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockRecordRepository) FindRecordByID(ctx context.Context, recordID string) (*domain.Record, error) {
	args := m.Called(ctx, recordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Record), args.Error(1)
}

func (m *MockRecordRepository) SaveRecord(ctx context.Context, record domain.Record) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockRecordRepository) SaveRecords(ctx context.Context, records []domain.Record) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *MockRecordRepository) UpdateRecordField(ctx context.Context, recordID string, update domain.FieldUpdate) error {
	args := m.Called(ctx, recordID, update)
	return args.Error(0)
}

func (m *MockRecordRepository) UpdateHierarchy(ctx context.Context, recordID string, assignment domain.HierarchyAssignment) error {
	args := m.Called(ctx, recordID, assignment)
	return args.Error(0)
}

func (m *MockRecordRepository) DeleteRecord(ctx context.Context, recordID string) error {
	args := m.Called(ctx, recordID)
	return args.Error(0)
}

func (m *MockRecordRepository) SubscribeChanges(ctx context.Context) (<-chan domain.ChangeEvent, func(), error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(<-chan domain.ChangeEvent), args.Get(1).(func()), args.Error(2)
}
