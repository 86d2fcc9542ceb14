package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/SscSPs/esiti_settimanali/internal/core/domain"
	portsrepo "github.com/SscSPs/esiti_settimanali/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/esiti_settimanali/internal/core/ports/services"
	"github.com/SscSPs/esiti_settimanali/internal/core/workspace"
)

const defaultResubscribeDelay = 2 * time.Second

// syncService feeds remote change events into the workspace reducer
type syncService struct {
	BaseService
	feed    portsrepo.RecordChangeFeed
	ws      *workspace.Workspace
	resync  func(ctx context.Context) error
	backoff time.Duration
}

// SyncServiceOption is a functional option for configuring the sync service
type SyncServiceOption func(*syncService)

// WithResync sets the full reload run after the feed had to be re-established,
// since events may have been missed in between.
func WithResync(resync func(ctx context.Context) error) SyncServiceOption {
	return func(s *syncService) {
		s.resync = resync
	}
}

// WithResubscribeDelay sets the pause before re-subscribing to a closed feed
func WithResubscribeDelay(d time.Duration) SyncServiceOption {
	return func(s *syncService) {
		s.backoff = d
	}
}

// NewSyncService creates a sync service reading from feed
func NewSyncService(feed portsrepo.RecordChangeFeed, ws *workspace.Workspace, options ...SyncServiceOption) portssvc.SyncSvc {
	svc := &syncService{
		feed:    feed,
		ws:      ws,
		backoff: defaultResubscribeDelay,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.SyncSvc = (*syncService)(nil)

func (s *syncService) Start(ctx context.Context) error {
	events, cancel, err := s.feed.SubscribeChanges(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to subscribe to record changes")
		return persistenceErr("failed to subscribe to record changes", err)
	}
	s.LogInfo(ctx, "Subscribed to record changes")
	// changes committed before the subscription was in place are only visible to a reload
	if s.resync != nil {
		if err := s.resync(ctx); err != nil {
			s.LogError(ctx, err, "Reload after subscribing failed")
		}
	}
	go s.loop(ctx, events, cancel)
	return nil
}

func (s *syncService) loop(ctx context.Context, events <-chan domain.ChangeEvent, cancel func()) {
	onError := func(ev domain.ChangeEvent, err error) {
		s.LogError(ctx, err, "Skipping change event",
			slog.String("op", string(ev.Op)),
			slog.String("record_id", ev.RecordID))
	}
	for {
		err := s.ws.Run(ctx, events, onError)
		cancel()
		if err != nil || ctx.Err() != nil {
			if err != nil && !errors.Is(err, context.Canceled) {
				s.LogError(ctx, err, "Change feed stopped")
			}
			s.LogInfo(ctx, "Stopped applying record changes")
			return
		}

		s.LogWarn(ctx, "Change feed closed, re-subscribing", slog.Duration("delay", s.backoff))
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.backoff):
			}
			events, cancel, err = s.feed.SubscribeChanges(ctx)
			if err == nil {
				break
			}
			s.LogError(ctx, err, "Failed to re-subscribe to record changes")
		}
		if s.resync != nil {
			if err := s.resync(ctx); err != nil {
				s.LogError(ctx, err, "Reload after re-subscribing failed")
			}
		}
	}
}
