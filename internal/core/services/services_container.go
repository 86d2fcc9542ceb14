package services

import (
	portsrepo "github.com/SscSPs/esiti_settimanali/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/esiti_settimanali/internal/core/ports/services"
	"github.com/SscSPs/esiti_settimanali/internal/core/workspace"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(repos portsrepo.RepositoryProvider, ws *workspace.Workspace, syncOptions ...SyncServiceOption) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	container.Record = NewRecordService(
		repos.RecordRepo,
		ws,
		WithLocalStateRepository(repos.LocalStateRepo),
	)
	container.View = NewViewService(ws)
	container.Sync = NewSyncService(
		repos.RecordRepo,
		ws,
		append([]SyncServiceOption{WithResync(container.Record.Refresh)}, syncOptions...)...,
	)

	return container
}

// Helper to check interface implementations at compile time
var (
	_ portssvc.RecordSvcFacade = (*recordService)(nil)
	_ portssvc.ViewSvc         = (*viewService)(nil)
	_ portssvc.SyncSvc         = (*syncService)(nil)
)
