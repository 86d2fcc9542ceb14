package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/esiti_settimanali/internal/apperrors"
	"github.com/SscSPs/esiti_settimanali/internal/core/domain"
	"github.com/SscSPs/esiti_settimanali/internal/core/services"
	"github.com/SscSPs/esiti_settimanali/internal/core/workspace"
	"github.com/SscSPs/esiti_settimanali/internal/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSyncService_AppliesRemoteChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := memory.NewRecordRepository()
	ws := workspace.New()
	require.NoError(t, services.NewSyncService(repo, ws).Start(ctx))

	// another client writes straight to the store
	require.NoError(t, repo.SaveRecord(ctx, domain.Record{RecordID: "x", Name: "Remote"}))

	assert.Eventually(t, func() bool {
		_, ok := ws.Snapshot().Record("x")
		return ok
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, repo.DeleteRecord(ctx, "x"))
	assert.Eventually(t, func() bool {
		return ws.Snapshot().Len() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestSyncService_StartReloadsChangesMissedBeforeSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := memory.NewRecordRepository()
	ws := workspace.New()
	records := services.NewRecordService(repo, ws)
	require.NoError(t, records.Refresh(ctx))

	// committed by another client after the initial load, before the feed is up
	require.NoError(t, repo.SaveRecord(ctx, domain.Record{RecordID: "early", Name: "Early"}))

	require.NoError(t, services.NewSyncService(repo, ws, services.WithResync(records.Refresh)).Start(ctx))

	_, ok := ws.Snapshot().Record("early")
	assert.True(t, ok)
}

func TestSyncService_SubscribeFailure(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRecordRepository)
	repo.On("SubscribeChanges", ctx).Return(nil, nil, errors.New("no listen")).Once()

	err := services.NewSyncService(repo, workspace.New()).Start(ctx)
	assert.ErrorIs(t, err, apperrors.ErrPersistence)
}

func TestSyncService_ResubscribesAndResyncs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := make(chan domain.ChangeEvent)
	second := make(chan domain.ChangeEvent, 1)
	repo := new(MockRecordRepository)
	repo.On("SubscribeChanges", mock.Anything).Return((<-chan domain.ChangeEvent)(first), func() {}, nil).Once()
	repo.On("SubscribeChanges", mock.Anything).Return((<-chan domain.ChangeEvent)(second), func() {}, nil)

	resynced := make(chan struct{}, 2)
	ws := workspace.New()
	svc := services.NewSyncService(repo, ws,
		services.WithResubscribeDelay(time.Millisecond),
		services.WithResync(func(context.Context) error {
			resynced <- struct{}{}
			return nil
		}),
	)
	require.NoError(t, svc.Start(ctx))
	require.Len(t, resynced, 1, "reload once after the first subscribe")
	<-resynced

	close(first)
	select {
	case <-resynced:
	case <-time.After(time.Second):
		t.Fatal("resync not called after feed closed")
	}

	second <- domain.ChangeEvent{Op: domain.ChangeInsert, Record: domain.Record{RecordID: "y", Name: "Y"}}
	assert.Eventually(t, func() bool {
		_, ok := ws.Snapshot().Record("y")
		return ok
	}, time.Second, 10*time.Millisecond)
}
