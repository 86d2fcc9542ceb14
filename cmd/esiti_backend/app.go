package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/esiti_settimanali/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/esiti_settimanali/internal/core/ports/services"
	"github.com/SscSPs/esiti_settimanali/internal/core/services"
	"github.com/SscSPs/esiti_settimanali/internal/core/workspace"
	"github.com/SscSPs/esiti_settimanali/internal/platform/config"
	"github.com/SscSPs/esiti_settimanali/internal/repositories/database/pgsql"
	"github.com/SscSPs/esiti_settimanali/internal/repositories/database/sqlite"
	"github.com/SscSPs/esiti_settimanali/internal/repositories/memory"
	"github.com/SscSPs/esiti_settimanali/pkg/database"
	"github.com/jackc/pgx/v5/pgxpool"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// app holds everything a command needs once the stores are open.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	pool      *pgxpool.Pool
	localDB   *sql.DB
	workspace *workspace.Workspace
	services  *portssvc.ServiceContainer
}

// openApp connects the record store (Postgres, or memory when no URL is configured) and
// the local state store, then loads every record into a fresh workspace.
func openApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, workspace: workspace.New()}

	localDB, err := sqlite.OpenDB(cfg.LocalStatePath)
	if err != nil {
		return nil, fmt.Errorf("opening local state store: %w", err)
	}
	a.localDB = localDB
	localState := sqlite.NewLocalStateRepository(localDB)

	var repos repositories.RepositoryProvider
	if cfg.DatabaseURL == "" {
		logger.Warn("No database configured, records are kept in memory")
		repos = repositories.RepositoryProvider{
			RecordRepo:     memory.NewRecordRepository(),
			LocalStateRepo: localState,
		}
	} else {
		pool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("initializing database pool: %w", err)
		}
		a.pool = pool
		logger.Info("Database connection pool established.")
		repos = pgsql.NewRepositoryProvider(pool, localState)
	}

	a.services = services.NewServiceContainer(repos, a.workspace,
		services.WithResubscribeDelay(cfg.ResubscribeDelay))

	if err := a.services.Record.Refresh(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("loading records: %w", err)
	}
	return a, nil
}

// Close releases the stores.
func (a *app) Close() {
	if a.pool != nil {
		database.ClosePgxPool(a.pool)
	}
	if a.localDB != nil {
		if err := a.localDB.Close(); err != nil {
			a.logger.Error("Error closing local state store", slog.String("error", err.Error()))
		}
	}
}

// runMigrations applies every pending migration to the Postgres record store.
func runMigrations(cfg *config.Config, logger *slog.Logger) error {
	if cfg.DatabaseURL == "" {
		logger.Info("No database configured, skipping migrations.")
		return nil
	}
	logger.Info("Running database migrations...")

	// Using pgx/v5/stdlib driver to be compatible with the main pool
	migrationDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("opening database connection for migrations: %w", err)
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()
	if err := migrationDB.Ping(); err != nil {
		return fmt.Errorf("pinging database for migrations: %w", err)
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("creating postgres driver instance for migrations: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(cfg.MigrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}

	upErr := m.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", upErr)
	}

	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		return fmt.Errorf("migration source error: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("migration database error: %w", dbErr)
	}

	if errors.Is(upErr, migrate.ErrNoChange) {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
	return nil
}
