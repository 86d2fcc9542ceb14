// Package memory holds in-process repositories, used when no database is configured
// and as fakes in tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/SscSPs/esiti_settimanali/internal/apperrors"
	"github.com/SscSPs/esiti_settimanali/internal/core/domain"
	portsrepo "github.com/SscSPs/esiti_settimanali/internal/core/ports/repositories"
)

const subscriberBuffer = 64

type subscriber struct {
	mu   sync.RWMutex
	ch   chan domain.ChangeEvent
	done chan struct{}
	once sync.Once
}

func (s *subscriber) send(ev domain.ChangeEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	select {
	case <-s.done:
	case s.ch <- ev:
	}
}

func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.done)
		s.mu.Lock()
		close(s.ch)
		s.mu.Unlock()
	})
}

// RecordRepository keeps records in memory and publishes every write to subscribers.
type RecordRepository struct {
	mu            sync.RWMutex
	records       map[string]domain.Record
	withHierarchy bool

	subsMu sync.Mutex
	subs   map[int]*subscriber
	nextID int
}

// RecordRepositoryOption configures a RecordRepository
type RecordRepositoryOption func(*RecordRepository)

// WithHierarchyColumns makes the store behave like one with level and parent_id columns.
func WithHierarchyColumns() RecordRepositoryOption {
	return func(r *RecordRepository) {
		r.withHierarchy = true
	}
}

// WithRecords seeds the store.
func WithRecords(records ...domain.Record) RecordRepositoryOption {
	return func(r *RecordRepository) {
		for _, rec := range records {
			r.records[rec.RecordID] = rec
		}
	}
}

// NewRecordRepository creates an empty in-memory record store.
func NewRecordRepository(options ...RecordRepositoryOption) *RecordRepository {
	r := &RecordRepository{
		records: map[string]domain.Record{},
		subs:    map[int]*subscriber{},
	}
	for _, option := range options {
		option(r)
	}
	return r
}

var _ portsrepo.RecordRepositoryFacade = (*RecordRepository)(nil)

// shape returns the record the way a store with or without hierarchy columns would.
func (r *RecordRepository) shape(rec domain.Record) domain.Record {
	if !r.withHierarchy {
		rec.Hierarchy = nil
		return rec
	}
	a := domain.DefaultAssignment()
	if rec.Hierarchy != nil {
		a = *rec.Hierarchy
	}
	rec.Hierarchy = &a
	return rec
}

func (r *RecordRepository) ListRecords(ctx context.Context) ([]domain.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, r.shape(rec))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].RecordID < out[j].RecordID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *RecordRepository) HasHierarchyColumns(ctx context.Context) (bool, error) {
	return r.withHierarchy, nil
}

func (r *RecordRepository) FindRecordByID(ctx context.Context, recordID string) (*domain.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[recordID]
	if !ok {
		return nil, fmt.Errorf("%w: record %s", apperrors.ErrNotFound, recordID)
	}
	rec = r.shape(rec)
	return &rec, nil
}

func (r *RecordRepository) SaveRecord(ctx context.Context, record domain.Record) error {
	return r.SaveRecords(ctx, []domain.Record{record})
}

func (r *RecordRepository) SaveRecords(ctx context.Context, records []domain.Record) error {
	r.mu.Lock()
	for _, rec := range records {
		if _, exists := r.records[rec.RecordID]; exists {
			r.mu.Unlock()
			return fmt.Errorf("%w: record %s", apperrors.ErrDuplicate, rec.RecordID)
		}
	}
	events := make([]domain.ChangeEvent, len(records))
	for i, rec := range records {
		rec = r.shape(rec)
		r.records[rec.RecordID] = rec
		events[i] = domain.ChangeEvent{Op: domain.ChangeInsert, RecordID: rec.RecordID, Record: rec}
	}
	r.mu.Unlock()

	r.publish(events...)
	return nil
}

func (r *RecordRepository) UpdateRecordField(ctx context.Context, recordID string, update domain.FieldUpdate) error {
	r.mu.Lock()
	rec, ok := r.records[recordID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: record %s", apperrors.ErrNotFound, recordID)
	}
	rec = update.Apply(rec)
	r.records[recordID] = rec
	r.mu.Unlock()

	r.publish(domain.ChangeEvent{Op: domain.ChangeUpdate, RecordID: recordID, Record: r.shape(rec)})
	return nil
}

func (r *RecordRepository) UpdateHierarchy(ctx context.Context, recordID string, assignment domain.HierarchyAssignment) error {
	if !r.withHierarchy {
		return fmt.Errorf("%w: record store has no hierarchy columns", apperrors.ErrValidation)
	}
	r.mu.Lock()
	rec, ok := r.records[recordID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: record %s", apperrors.ErrNotFound, recordID)
	}
	rec.Hierarchy = &assignment
	r.records[recordID] = rec
	r.mu.Unlock()

	r.publish(domain.ChangeEvent{Op: domain.ChangeUpdate, RecordID: recordID, Record: r.shape(rec)})
	return nil
}

func (r *RecordRepository) DeleteRecord(ctx context.Context, recordID string) error {
	r.mu.Lock()
	if _, ok := r.records[recordID]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: record %s", apperrors.ErrNotFound, recordID)
	}
	delete(r.records, recordID)
	r.mu.Unlock()

	r.publish(domain.ChangeEvent{Op: domain.ChangeDelete, RecordID: recordID})
	return nil
}

// SubscribeChanges delivers every subsequent write. Delivery blocks the writer while
// the subscriber's buffer is full.
func (r *RecordRepository) SubscribeChanges(ctx context.Context) (<-chan domain.ChangeEvent, func(), error) {
	sub := &subscriber{
		ch:   make(chan domain.ChangeEvent, subscriberBuffer),
		done: make(chan struct{}),
	}
	r.subsMu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = sub
	r.subsMu.Unlock()

	cancel := func() {
		r.subsMu.Lock()
		delete(r.subs, id)
		r.subsMu.Unlock()
		sub.close()
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-sub.done:
		}
	}()
	return sub.ch, cancel, nil
}

func (r *RecordRepository) publish(events ...domain.ChangeEvent) {
	r.subsMu.Lock()
	subs := make([]*subscriber, 0, len(r.subs))
	for _, s := range r.subs {
		subs = append(subs, s)
	}
	r.subsMu.Unlock()

	for _, ev := range events {
		for _, s := range subs {
			s.send(ev)
		}
	}
}
