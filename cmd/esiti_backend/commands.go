package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/SscSPs/esiti_settimanali/internal/core/hierarchy"
	"github.com/SscSPs/esiti_settimanali/internal/dto"
	"github.com/SscSPs/esiti_settimanali/internal/handlers"
	"github.com/SscSPs/esiti_settimanali/internal/importer"
	"github.com/SscSPs/esiti_settimanali/internal/middleware"
	"github.com/SscSPs/esiti_settimanali/internal/platform/config"
	"github.com/SscSPs/esiti_settimanali/internal/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newRootCmd(logger *slog.Logger) *cobra.Command {
	var cfg *config.Config

	root := &cobra.Command{
		Use:           "esiti_backend",
		Short:         "Weekly outcome records with hierarchical totals",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cfg = loaded
			return nil
		},
	}
	serve := newServeCmd(logger, &cfg)
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(
		serve,
		newMigrateCmd(logger, &cfg),
		newImportCmd(logger, &cfg),
		newTreeCmd(logger, &cfg),
	)
	return root
}

func newServeCmd(logger *slog.Logger, cfg **config.Config) *cobra.Command {
	var skipMigrations bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, *cfg, logger, skipMigrations)
		},
	}
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "Do not apply database migrations on startup")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger, skipMigrations bool) error {
	if !skipMigrations {
		if err := runMigrations(cfg, logger); err != nil {
			return err
		}
	}

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.services.Sync.Start(ctx); err != nil {
		return fmt.Errorf("starting change feed: %w", err)
	}

	writeLimiter, err := middleware.NewMemoryLimiter(cfg.RateLimit)
	if err != nil {
		return err
	}

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	if err := r.SetTrustedProxies(nil); err != nil {
		return fmt.Errorf("setting trusted proxies: %w", err)
	}

	handlers.RegisterRoutes(r, cfg, a.services, writeLimiter)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed to run: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newMigrateCmd(logger *slog.Logger, cfg **config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (*cfg).DatabaseURL == "" {
				return errors.New("PGSQL_URL is required to run migrations")
			}
			return runMigrations(*cfg, logger)
		},
	}
}

func newImportCmd(logger *slog.Logger, cfg **config.Config) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import records from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), *cfg, logger, args[0], owner, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "User ID recorded as the owner of imported records")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func runImport(ctx context.Context, cfg *config.Config, logger *slog.Logger, path, owner string, out io.Writer) error {
	rows, err := importer.ParseFile(path)
	if err != nil {
		return err
	}

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.services.Record.ImportRecords(ctx, owner, rows)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "imported %d records, skipped %d rows\n", result.Imported, result.Skipped)
	if len(result.RootedLines) > 0 {
		fmt.Fprintf(out, "lines imported as roots: %v\n", result.RootedLines)
	}
	return nil
}

func newTreeCmd(logger *slog.Logger, cfg **config.Config) *cobra.Command {
	var root, query string

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the hierarchy with subtree totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			state := hierarchy.ViewState{SelectedRootID: root, SearchQuery: query, Expanded: map[string]bool{}}
			for _, rec := range a.services.Record.ListRecords(ctx) {
				state.Expanded[rec.RecordID] = true
			}
			writeTree(cmd.OutOrStdout(), a.services.View.Tree(ctx, state))
			return nil
		},
	}
	cmd.Flags().StringVar(&root, "root", "", "Only print the subtree of this record")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Only print records whose name matches")
	return cmd
}

// writeTree prints one indented line per row followed by the grand total.
func writeTree(w io.Writer, tree dto.TreeResponse) {
	for _, row := range tree.Rows {
		fmt.Fprintf(w, "%s%s [%s] %s\n",
			strings.Repeat("  ", row.Depth),
			utils.DisplayName(row.Name),
			row.Level,
			utils.FormatAmount(row.Subtree.Result))
	}
	fmt.Fprintf(w, "TOTAL %s\n", utils.FormatAmount(tree.Totals.Result))
}
